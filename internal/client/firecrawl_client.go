package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/reelcraft/api/internal/config"
)

// ContentFetcher turns an article URL into markdown text.
type ContentFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// FirecrawlClient implements ContentFetcher against the Firecrawl scrape API.
type FirecrawlClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	minLength  int
}

type scrapeRequest struct {
	URL     string   `json:"url"`
	Formats []string `json:"formats"`
}

type scrapeResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Markdown string `json:"markdown"`
	} `json:"data"`
	Error string `json:"error,omitempty"`
}

// errorPageSignatures mark scraped content that is a hosting error page, not
// an article. Matched case-insensitively against the first part of the body.
var errorPageSignatures = []string{
	"404 not found",
	"page not found",
	"access denied",
	"just a moment",
	"enable javascript and cookies",
}

// NewFirecrawlClient creates a new Firecrawl scrape client.
func NewFirecrawlClient(cfg *config.FirecrawlConfig) *FirecrawlClient {
	return &FirecrawlClient{
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		baseURL:   cfg.BaseURL,
		apiKey:    cfg.APIKey,
		minLength: cfg.MinContentLength,
	}
}

// Fetch scrapes the URL and returns its content as markdown. Empty, too-short
// or error-page content fails the fetch.
func (c *FirecrawlClient) Fetch(ctx context.Context, url string) (string, error) {
	reqBody := scrapeRequest{
		URL:     url,
		Formats: []string{"markdown"},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/scrape", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("firecrawl API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var scrapeResp scrapeResponse
	if err := json.Unmarshal(respBody, &scrapeResp); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if !scrapeResp.Success {
		return "", fmt.Errorf("firecrawl scrape failed: %s", scrapeResp.Error)
	}

	markdown := strings.TrimSpace(scrapeResp.Data.Markdown)
	if err := ValidateArticleContent(markdown, c.minLength); err != nil {
		return "", err
	}

	return markdown, nil
}

// ValidateArticleContent rejects content that cannot make a video: empty,
// shorter than minLength runes, or a recognizable error page.
func ValidateArticleContent(markdown string, minLength int) error {
	if markdown == "" {
		return fmt.Errorf("scraped content is empty")
	}
	if len([]rune(markdown)) < minLength {
		return fmt.Errorf("insufficient content: got %d characters, need at least %d", len([]rune(markdown)), minLength)
	}

	head := strings.ToLower(markdown)
	if len(head) > 512 {
		head = head[:512]
	}
	for _, sig := range errorPageSignatures {
		if strings.Contains(head, sig) {
			return fmt.Errorf("scraped content looks like an error page (%q)", sig)
		}
	}
	return nil
}

// IsConfigured returns true if the client has valid configuration.
func (c *FirecrawlClient) IsConfigured() bool {
	return c.apiKey != ""
}
