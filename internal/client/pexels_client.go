package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/reelcraft/api/internal/config"
)

// AssetProvider is the stock-media collaborator: ranked candidate search plus
// byte download for a chosen candidate.
type AssetProvider interface {
	SearchPhotos(ctx context.Context, query, orientation string, perPage int) ([]Photo, error)
	SearchVideos(ctx context.Context, query, orientation string, perPage int) ([]Video, error)
	DownloadFile(ctx context.Context, fileURL, destPath string) (string, error)
}

// Photo is one image candidate from a Pexels search.
type Photo struct {
	ID  int    `json:"id"`
	URL string `json:"url"`
	Alt string `json:"alt"`
	Src struct {
		Original string `json:"original"`
		Large    string `json:"large"`
		Portrait string `json:"portrait"`
	} `json:"src"`
}

// Video is one video candidate from a Pexels search.
type Video struct {
	ID         int    `json:"id"`
	URL        string `json:"url"`
	Image      string `json:"image"`
	Duration   int    `json:"duration"`
	VideoFiles []struct {
		Quality string `json:"quality"`
		Link    string `json:"link"`
		Width   int    `json:"width"`
		Height  int    `json:"height"`
	} `json:"video_files"`
}

// FileLink returns the download link for the requested quality, falling back
// to the first available file.
func (v *Video) FileLink(quality string) (string, error) {
	for _, vf := range v.VideoFiles {
		if vf.Quality == quality {
			return vf.Link, nil
		}
	}
	if len(v.VideoFiles) > 0 {
		return v.VideoFiles[0].Link, nil
	}
	return "", fmt.Errorf("no video files available for video %d", v.ID)
}

// PexelsClient implements AssetProvider against the Pexels API.
type PexelsClient struct {
	httpClient    *http.Client
	photosBaseURL string
	videosBaseURL string
	apiKey        string
}

type photoSearchResponse struct {
	Photos []Photo `json:"photos"`
}

type videoSearchResponse struct {
	Videos []Video `json:"videos"`
}

// NewPexelsClient creates a new Pexels API client.
func NewPexelsClient(cfg *config.PexelsConfig) *PexelsClient {
	return &PexelsClient{
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		photosBaseURL: cfg.PhotosBaseURL,
		videosBaseURL: cfg.VideosBaseURL,
		apiKey:        cfg.APIKey,
	}
}

// SearchPhotos searches for stock photos matching the query.
func (c *PexelsClient) SearchPhotos(ctx context.Context, query, orientation string, perPage int) ([]Photo, error) {
	var result photoSearchResponse
	if err := c.get(ctx, c.photosBaseURL+"/search", query, orientation, perPage, &result); err != nil {
		return nil, err
	}
	return result.Photos, nil
}

// SearchVideos searches for stock videos matching the query.
func (c *PexelsClient) SearchVideos(ctx context.Context, query, orientation string, perPage int) ([]Video, error) {
	var result videoSearchResponse
	if err := c.get(ctx, c.videosBaseURL+"/search", query, orientation, perPage, &result); err != nil {
		return nil, err
	}
	return result.Videos, nil
}

// DownloadFile streams fileURL into destPath, creating parent directories.
func (c *PexelsClient) DownloadFile(ctx context.Context, fileURL, destPath string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download asset: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("asset download error (status %d)", resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create asset directory: %w", err)
	}

	out, err := os.Create(destPath)
	if err != nil {
		return "", fmt.Errorf("failed to create asset file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		// partial download is useless, remove it
		os.Remove(destPath)
		return "", fmt.Errorf("failed to write asset file: %w", err)
	}

	return destPath, nil
}

func (c *PexelsClient) get(ctx context.Context, endpoint, query, orientation string, perPage int, result interface{}) error {
	params := url.Values{}
	params.Set("query", query)
	params.Set("orientation", orientation)
	params.Set("per_page", strconv.Itoa(perPage))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("pexels API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

// IsConfigured returns true if the client has valid configuration.
func (c *PexelsClient) IsConfigured() bool {
	return c.apiKey != ""
}
