package model

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Script is the scene-by-scene plan produced by the script generator.
type Script struct {
	Title  string  `json:"title"`
	Scenes []Scene `json:"scenes"`
}

// Scene is one narrative beat of the script. Media scenes carry asset search
// fields; text scenes carry only the script line. The resolved fields
// (AssetFilePath, AudioFilePath, Duration) are filled in by later pipeline
// stages and travel with the scene.
type Scene struct {
	SceneNumber   int       `json:"scene_number"`
	Script        string    `json:"script"`
	SceneType     SceneType `json:"scene_type"`
	AssetKeywords []string  `json:"asset_keywords,omitempty"`
	AssetType     AssetType `json:"asset_type,omitempty"`

	AssetFilePath string  `json:"asset_file_path,omitempty"`
	AudioFilePath string  `json:"audio_file_path,omitempty"`
	Duration      float64 `json:"duration,omitempty"`
}

// IsMedia reports whether the scene needs a stock asset.
func (s *Scene) IsMedia() bool { return s.SceneType == SceneTypeMedia }

// PrimaryKeyword returns the first search keyword, or "generic" when the
// generator supplied none.
func (s *Scene) PrimaryKeyword() string {
	if len(s.AssetKeywords) == 0 {
		return "generic"
	}
	return s.AssetKeywords[0]
}

// DecodeScript parses and validates generator output. The generator is an LLM,
// so everything is checked here once and trusted downstream: scene numbers
// must cover exactly 1..N with no duplicates, every scene needs a script line,
// and media scenes need at least one keyword.
func DecodeScript(data []byte) (*Script, error) {
	var script Script
	if err := json.Unmarshal(data, &script); err != nil {
		return nil, fmt.Errorf("malformed script JSON: %w", err)
	}

	if strings.TrimSpace(script.Title) == "" {
		return nil, fmt.Errorf("script has no title")
	}
	if len(script.Scenes) == 0 {
		return nil, fmt.Errorf("script has no scenes")
	}

	n := len(script.Scenes)
	seen := make(map[int]bool, n)
	for i := range script.Scenes {
		sc := &script.Scenes[i]
		if sc.SceneNumber < 1 || sc.SceneNumber > n {
			return nil, fmt.Errorf("scene_number %d out of range 1..%d", sc.SceneNumber, n)
		}
		if seen[sc.SceneNumber] {
			return nil, fmt.Errorf("duplicate scene_number %d", sc.SceneNumber)
		}
		seen[sc.SceneNumber] = true

		if strings.TrimSpace(sc.Script) == "" {
			return nil, fmt.Errorf("scene %d has no script text", sc.SceneNumber)
		}

		switch sc.SceneType {
		case SceneTypeText:
			// text scenes carry no asset fields
		case SceneTypeMedia, "":
			sc.SceneType = SceneTypeMedia
			if len(sc.AssetKeywords) == 0 {
				return nil, fmt.Errorf("media scene %d has no asset keywords", sc.SceneNumber)
			}
			switch sc.AssetType {
			case AssetTypeImage, AssetTypeVideo, AssetTypeMixed:
			case "":
				sc.AssetType = AssetTypeImage
			default:
				// provider hints like "image/video" show up in practice
				if strings.Contains(string(sc.AssetType), "video") {
					sc.AssetType = AssetTypeVideo
				} else {
					sc.AssetType = AssetTypeImage
				}
			}
		default:
			return nil, fmt.Errorf("scene %d has unknown scene_type %q", sc.SceneNumber, sc.SceneType)
		}
	}

	sort.Slice(script.Scenes, func(i, j int) bool {
		return script.Scenes[i].SceneNumber < script.Scenes[j].SceneNumber
	})

	return &script, nil
}

// SanitizeTitle converts a script title to the filename stem used for every
// artifact of a generation: lowercase, spaces to underscores, filesystem
// metacharacters stripped.
func SanitizeTitle(title string) string {
	s := strings.ToLower(strings.TrimSpace(title))
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		}
		return -1
	}, s)
	if s == "" {
		s = "untitled"
	}
	return s
}
