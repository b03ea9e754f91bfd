package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/reelcraft/api/internal/config"
)

// ScriptModel is the LLM collaborator: structured script generation and
// free-text completions (used for asset re-ranking).
type ScriptModel interface {
	GenerateJSON(ctx context.Context, system, user string) (string, error)
	GenerateText(ctx context.Context, system, user string) (string, error)
}

// SpeechSynthesizer turns a script line into raw single-channel PCM at
// SampleRate.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// PCM sample rate the TTS model emits.
const TTSSampleRate = 24000

// GeminiClient handles communication with the Gemini generateContent API,
// for both text and speech models.
type GeminiClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	ttsModel   string
	voiceName  string
}

type geminiPart struct {
	Text       string `json:"text,omitempty"`
	InlineData *struct {
		MimeType string `json:"mimeType"`
		Data     string `json:"data"`
	} `json:"inlineData,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type generationConfig struct {
	Temperature        float64       `json:"temperature,omitempty"`
	ResponseMimeType   string        `json:"responseMimeType,omitempty"`
	ResponseModalities []string      `json:"responseModalities,omitempty"`
	SpeechConfig       *speechConfig `json:"speechConfig,omitempty"`
}

type speechConfig struct {
	VoiceConfig struct {
		PrebuiltVoiceConfig struct {
			VoiceName string `json:"voiceName"`
		} `json:"prebuiltVoiceConfig"`
	} `json:"voiceConfig"`
}

type generateContentRequest struct {
	SystemInstruction *geminiContent   `json:"system_instruction,omitempty"`
	Contents          []geminiContent  `json:"contents"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
}

// NewGeminiClient creates a new Gemini API client.
func NewGeminiClient(cfg *config.GeminiConfig) *GeminiClient {
	return &GeminiClient{
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		baseURL:   cfg.BaseURL,
		apiKey:    cfg.APIKey,
		model:     cfg.Model,
		ttsModel:  cfg.TTSModel,
		voiceName: cfg.VoiceName,
	}
}

// GenerateJSON asks the text model for a JSON response and returns the raw
// JSON string.
func (c *GeminiClient) GenerateJSON(ctx context.Context, system, user string) (string, error) {
	return c.generate(ctx, system, user, "application/json")
}

// GenerateText asks the text model for a plain-text completion.
func (c *GeminiClient) GenerateText(ctx context.Context, system, user string) (string, error) {
	return c.generate(ctx, system, user, "")
}

func (c *GeminiClient) generate(ctx context.Context, system, user, mimeType string) (string, error) {
	req := generateContentRequest{
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: user}}},
		},
		GenerationConfig: generationConfig{
			Temperature:      0.7,
			ResponseMimeType: mimeType,
		},
	}
	if system != "" {
		req.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: system}}}
	}

	resp, err := c.post(ctx, c.model, &req)
	if err != nil {
		return "", err
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}
	return resp.Candidates[0].Content.Parts[0].Text, nil
}

// Synthesize generates voiceover speech for text and returns raw PCM bytes
// (16-bit mono at TTSSampleRate).
func (c *GeminiClient) Synthesize(ctx context.Context, text string) ([]byte, error) {
	sc := &speechConfig{}
	sc.VoiceConfig.PrebuiltVoiceConfig.VoiceName = c.voiceName

	req := generateContentRequest{
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: text}}},
		},
		GenerationConfig: generationConfig{
			ResponseModalities: []string{"AUDIO"},
			SpeechConfig:       sc,
		},
	}

	resp, err := c.post(ctx, c.ttsModel, &req)
	if err != nil {
		return nil, err
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("no candidates in response")
	}
	inline := resp.Candidates[0].Content.Parts[0].InlineData
	if inline == nil {
		return nil, fmt.Errorf("no audio data in response")
	}

	pcm, err := base64.StdEncoding.DecodeString(inline.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode audio data: %w", err)
	}
	return pcm, nil
}

func (c *GeminiClient) post(ctx context.Context, model string, body *generateContentRequest) (*generateContentResponse, error) {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gemini API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var genResp generateContentResponse
	if err := json.Unmarshal(respBody, &genResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return &genResp, nil
}

// IsConfigured returns true if the client has valid configuration.
func (c *GeminiClient) IsConfigured() bool {
	return c.apiKey != ""
}
