package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/reelcraft/api/internal/client"
	"github.com/reelcraft/api/internal/model"
	"github.com/reelcraft/api/pkg/logger"
)

const scriptGeneratorSystem = `**Role:** You are an expert short-form video scriptwriter and visual content strategist. Your task is to adapt a given article into a compelling, fast-paced vertical video script.

**Objective:** Convert the provided article text into a JSON object containing a complete video script broken into logical scenes. Each scene includes a concise voiceover line and search keywords for finding b-roll footage.

**Constraints:**
* The output must be a single, valid JSON object with no surrounding text or code fences.
* Total script length must suit a 30 to 60 second video; generate 7-15 scenes.
* Asset keywords are used to search stock media, so they must describe concrete, searchable visuals, not abstract concepts. Prefer "rising stock market graph" over "success"; prefer "close-up hands typing keyboard" over "technology". Before writing a keyword ask: would the first search result be exactly what this scene needs?

**JSON Output Format:**
{
  "title": "A Catchy Title for the Reel",
  "scenes": [
    {
      "scene_number": 1,
      "script": "This is the hook. A strong, attention-grabbing opening sentence.",
      "asset_keywords": ["keyword1", "keyword2", "keyword3"],
      "asset_type": "image/video",
      "scene_type": "media"
    },
    {
      "scene_number": 2,
      "script": "KEY POINT",
      "scene_type": "text"
    }
  ]
}

**Scene Types:**
* "media": regular scene with voiceover plus a stock image or video. This is the default.
* "text": a short, punchy key point (1-5 words) shown on a solid background. Use sparingly, at most 1-2 times per video, to emphasize critical points. Omit asset_keywords and asset_type; the script field contains only the text to display.`

// ScriptService turns an article URL into a validated scene-by-scene script.
type ScriptService struct {
	fetcher client.ContentFetcher
	llm     client.ScriptModel
	log     *logger.Logger
}

func NewScriptService(fetcher client.ContentFetcher, llm client.ScriptModel, log *logger.Logger) *ScriptService {
	return &ScriptService{fetcher: fetcher, llm: llm, log: log}
}

// FetchContent scrapes the article and returns its markdown. Validation of
// emptiness, length and error pages happens inside the fetcher.
func (s *ScriptService) FetchContent(ctx context.Context, url string) (string, error) {
	markdown, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		return "", fmt.Errorf("content fetch failed: %w", err)
	}
	s.log.Debug("fetched article content", "url", url, "chars", len(markdown))
	return markdown, nil
}

// GenerateScript asks the language model for a scene script over the article
// content and validates the result.
func (s *ScriptService) GenerateScript(ctx context.Context, markdown string) (*model.Script, error) {
	user := fmt.Sprintf("ARTICLE CONTENT:\n\"\"\"\n%s\n\"\"\"\n", markdown)

	raw, err := s.llm.GenerateJSON(ctx, scriptGeneratorSystem, user)
	if err != nil {
		return nil, fmt.Errorf("script generation failed: %w", err)
	}

	script, err := model.DecodeScript([]byte(stripCodeFence(raw)))
	if err != nil {
		return nil, fmt.Errorf("script generation produced invalid output: %w", err)
	}

	s.log.Info("generated script", "title", script.Title, "scenes", len(script.Scenes))
	return script, nil
}

// stripCodeFence removes a markdown ```json fence the model sometimes wraps
// its output in despite instructions.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
