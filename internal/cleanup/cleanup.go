package cleanup

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/reelcraft/api/internal/config"
	"github.com/reelcraft/api/internal/model"
	"github.com/reelcraft/api/pkg/logger"
)

// Cleaner removes intermediate generation files. Output videos are only
// touched by SweepFailed.
type Cleaner struct {
	tempDirs  []string
	outputDir string
	log       *logger.Logger
}

func New(cfg *config.AssetsConfig, log *logger.Logger) *Cleaner {
	return &Cleaner{
		tempDirs:  []string{cfg.AudioDir, cfg.ImageDir, cfg.VideoDir, cfg.TextDir},
		outputDir: cfg.OutputDir,
		log:       log,
	}
}

// SweepGeneration removes the temp files of one generation, matched by the
// title-derived filename stem. The rendered output is kept. Errors are logged
// and swallowed; cleanup never fails a job.
func (c *Cleaner) SweepGeneration(title string) int {
	return c.removeMatching(c.tempDirs, model.SanitizeTitle(title))
}

// SweepFailed removes everything a failed generation left behind, including a
// partial output file.
func (c *Cleaner) SweepFailed(title string) int {
	stem := model.SanitizeTitle(title)
	removed := c.removeMatching(c.tempDirs, stem)

	output := filepath.Join(c.outputDir, stem+".mp4")
	if err := os.Remove(output); err == nil {
		removed++
	} else if !os.IsNotExist(err) {
		c.log.Warn("failed to remove partial output", "path", output, "error", err)
	}
	return removed
}

// SweepOld removes temp files older than maxAge regardless of title. Meant to
// run periodically to catch leftovers from crashed generations.
func (c *Cleaner) SweepOld(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)
	removed := 0

	for _, dir := range c.tempDirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			info, err := entry.Info()
			if err != nil || info.ModTime().After(cutoff) {
				continue
			}
			path := filepath.Join(dir, entry.Name())
			if err := os.Remove(path); err != nil {
				c.log.Warn("failed to remove old asset", "path", path, "error", err)
				continue
			}
			removed++
		}
	}

	if removed > 0 {
		c.log.Info("removed old temp assets", "count", removed)
	}
	return removed
}

func (c *Cleaner) removeMatching(dirs []string, stem string) int {
	removed := 0
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasPrefix(strings.ToLower(entry.Name()), stem) {
				continue
			}
			path := filepath.Join(dir, entry.Name())
			if err := os.Remove(path); err != nil {
				c.log.Warn("failed to remove temp asset", "path", path, "error", err)
				continue
			}
			removed++
		}
	}

	if removed > 0 {
		c.log.Debug("cleaned generation assets", "stem", stem, "count", removed)
	}
	return removed
}
