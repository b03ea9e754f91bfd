package service

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/reelcraft/api/internal/model"
	"github.com/reelcraft/api/pkg/logger"
)

// extensionTypes maps a downloaded file's extension to its visual type. The
// extension is the authority here; upstream type hints can be ambiguous.
var extensionTypes = map[string]model.VisualType{
	".jpg":  model.VisualTypeImage,
	".jpeg": model.VisualTypeImage,
	".png":  model.VisualTypeImage,
	".webp": model.VisualTypeImage,
	".mp4":  model.VisualTypeVideo,
	".mov":  model.VisualTypeVideo,
	".webm": model.VisualTypeVideo,
	".mkv":  model.VisualTypeVideo,
}

// Assembler turns fully resolved scenes into a render plan.
type Assembler struct {
	voice             *VoiceService
	outputDir         string
	textSceneDuration float64
	backgroundScore   string
	log               *logger.Logger
}

func NewAssembler(voice *VoiceService, outputDir string, textSceneDuration float64, backgroundScore string, log *logger.Logger) *Assembler {
	return &Assembler{
		voice:             voice,
		outputDir:         outputDir,
		textSceneDuration: textSceneDuration,
		backgroundScore:   backgroundScore,
		log:               log,
	}
}

// BuildPlan emits one visual asset per scene in scene order, combines the
// scene audio into a single voiceover track, and derives the output path from
// the sanitized title. Zero-length media scenes are rejected here, before the
// compositor ever sees them.
func (a *Assembler) BuildPlan(ctx context.Context, script *model.Script, scenes []model.Scene) (*model.RenderPlan, error) {
	if len(scenes) == 0 {
		return nil, fmt.Errorf("no scenes to assemble")
	}

	assets := make([]model.VisualAsset, 0, len(scenes))
	for _, sc := range scenes {
		if sc.SceneType == model.SceneTypeText {
			dur := sc.Duration
			if dur <= 0 {
				dur = a.textSceneDuration
			}
			assets = append(assets, model.VisualAsset{
				Type:     model.VisualTypeText,
				Text:     sc.Script,
				Duration: dur,
			})
			continue
		}

		if sc.Duration <= 0 {
			return nil, fmt.Errorf("scene %d has zero duration", sc.SceneNumber)
		}
		if sc.AssetFilePath == "" {
			return nil, fmt.Errorf("scene %d has no resolved asset", sc.SceneNumber)
		}

		visualType, ok := extensionTypes[strings.ToLower(filepath.Ext(sc.AssetFilePath))]
		if !ok {
			return nil, fmt.Errorf("scene %d asset has unrecognized extension %q", sc.SceneNumber, filepath.Ext(sc.AssetFilePath))
		}

		assets = append(assets, model.VisualAsset{
			Type:     visualType,
			Path:     sc.AssetFilePath,
			Duration: sc.Duration,
		})
	}

	voiceoverPath, err := a.voice.Combine(ctx, script.Title, scenes)
	if err != nil {
		return nil, err
	}

	plan := &model.RenderPlan{
		Title:               script.Title,
		VisualAssets:        assets,
		VoiceoverPath:       voiceoverPath,
		BackgroundScorePath: a.backgroundScore,
		OutputPath:          filepath.Join(a.outputDir, model.SanitizeTitle(script.Title)+".mp4"),
	}

	if plan.TotalDuration() <= 0 {
		return nil, fmt.Errorf("render plan has zero total duration")
	}

	a.log.Debug("built render plan",
		"title", script.Title,
		"assets", len(assets),
		"total_duration", plan.TotalDuration(),
	)
	return plan, nil
}
