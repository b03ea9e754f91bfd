package service

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/reelcraft/api/internal/client"
	"github.com/reelcraft/api/internal/model"
	"github.com/reelcraft/api/pkg/logger"
)

const assetRerankSystem = `You select the single best stock asset for a video scene. You are given the scene's voiceover line and a numbered list of candidate descriptions. Reply with ONLY the number of the best candidate, nothing else.`

// AssetService resolves media scenes to downloaded local files.
type AssetService struct {
	provider       client.AssetProvider
	llm            client.ScriptModel
	imageDir       string
	videoDir       string
	candidateCount int
	aiFiltering    bool
	log            *logger.Logger
}

func NewAssetService(provider client.AssetProvider, llm client.ScriptModel, imageDir, videoDir string, candidateCount int, aiFiltering bool, log *logger.Logger) *AssetService {
	if candidateCount < 1 {
		candidateCount = 1
	}
	return &AssetService{
		provider:       provider,
		llm:            llm,
		imageDir:       imageDir,
		videoDir:       videoDir,
		candidateCount: candidateCount,
		aiFiltering:    aiFiltering,
		log:            log,
	}
}

// Resolve downloads a stock asset for every media scene concurrently and sets
// each scene's asset path. Results are matched back by scene_number. Text
// scenes pass through untouched. A scene with no search results is a hard
// error for the whole stage.
func (s *AssetService) Resolve(ctx context.Context, title string, scenes []model.Scene) ([]model.Scene, error) {
	out := make([]model.Scene, len(scenes))
	copy(out, scenes)

	indexByNumber := make(map[int]int, len(out))
	for i, sc := range out {
		indexByNumber[sc.SceneNumber] = i
	}

	stem := model.SanitizeTitle(title)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, sc := range scenes {
		if !sc.IsMedia() {
			continue
		}
		sc := sc
		g.Go(func() error {
			path, err := s.resolveScene(gctx, stem, sc)
			if err != nil {
				return fmt.Errorf("asset resolution for scene %d failed: %w", sc.SceneNumber, err)
			}
			mu.Lock()
			out[indexByNumber[sc.SceneNumber]].AssetFilePath = path
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *AssetService) resolveScene(ctx context.Context, stem string, sc model.Scene) (string, error) {
	keyword := sc.PrimaryKeyword()

	if sc.AssetType == model.AssetTypeVideo || sc.AssetType == model.AssetTypeMixed {
		videos, err := s.provider.SearchVideos(ctx, keyword, "portrait", s.candidateCount)
		if err != nil {
			return "", err
		}
		if len(videos) == 0 {
			return "", fmt.Errorf("no videos found for keyword %q", keyword)
		}

		idx := 0
		if s.aiFiltering && len(videos) > 1 {
			descs := make([]string, len(videos))
			for i, v := range videos {
				descs[i] = fmt.Sprintf("video, %ds, %s", v.Duration, v.URL)
			}
			idx = s.rerank(ctx, sc.Script, descs)
		}

		link, err := videos[idx].FileLink("hd")
		if err != nil {
			return "", err
		}
		dest := filepath.Join(s.videoDir, fmt.Sprintf("%s_%d.mp4", stem, sc.SceneNumber))
		return s.provider.DownloadFile(ctx, link, dest)
	}

	photos, err := s.provider.SearchPhotos(ctx, keyword, "portrait", s.candidateCount)
	if err != nil {
		return "", err
	}
	if len(photos) == 0 {
		return "", fmt.Errorf("no images found for keyword %q", keyword)
	}

	idx := 0
	if s.aiFiltering && len(photos) > 1 {
		descs := make([]string, len(photos))
		for i, p := range photos {
			descs[i] = p.Alt
		}
		idx = s.rerank(ctx, sc.Script, descs)
	}

	dest := filepath.Join(s.imageDir, fmt.Sprintf("%s_%d.jpg", stem, sc.SceneNumber))
	return s.provider.DownloadFile(ctx, photos[idx].Src.Original, dest)
}

// rerank asks the language model to pick the best candidate for a scene line.
// Any model failure or unparseable answer falls back to the first candidate;
// re-ranking never fails a resolution.
func (s *AssetService) rerank(ctx context.Context, sceneScript string, candidates []string) int {
	var b strings.Builder
	fmt.Fprintf(&b, "Scene voiceover: %q\n\nCandidates:\n", sceneScript)
	for i, c := range candidates {
		if strings.TrimSpace(c) == "" {
			c = "no description"
		}
		fmt.Fprintf(&b, "%d. %s\n", i+1, c)
	}

	resp, err := s.llm.GenerateText(ctx, assetRerankSystem, b.String())
	if err != nil {
		s.log.Warn("asset re-ranking failed, using first candidate", "error", err)
		return 0
	}
	return parseChoice(resp, len(candidates))
}

var choicePattern = regexp.MustCompile(`\d+`)

// parseChoice extracts a 1-based candidate number from a model reply and
// returns it as a 0-based index. Anything unparseable or out of range picks
// the first candidate.
func parseChoice(resp string, n int) int {
	m := choicePattern.FindString(resp)
	if m == "" {
		return 0
	}
	v, err := strconv.Atoi(m)
	if err != nil || v < 1 || v > n {
		return 0
	}
	return v - 1
}
