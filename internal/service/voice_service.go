package service

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/reelcraft/api/internal/client"
	"github.com/reelcraft/api/internal/media"
	"github.com/reelcraft/api/internal/model"
	"github.com/reelcraft/api/pkg/logger"
)

// VoiceService synthesizes per-scene voiceover clips and combines them into
// a single track.
type VoiceService struct {
	tts       client.SpeechSynthesizer
	prober    media.Prober
	runner    media.Runner
	ffmpegBin string
	audioDir  string
	log       *logger.Logger
}

func NewVoiceService(tts client.SpeechSynthesizer, prober media.Prober, runner media.Runner, ffmpegBin, audioDir string, log *logger.Logger) *VoiceService {
	return &VoiceService{
		tts:       tts,
		prober:    prober,
		runner:    runner,
		ffmpegBin: ffmpegBin,
		audioDir:  audioDir,
		log:       log,
	}
}

// Synthesize generates voiceover audio for every scene concurrently and sets
// each scene's audio path and measured duration. Results are matched back by
// scene_number, not completion order. One failed scene fails the stage.
func (s *VoiceService) Synthesize(ctx context.Context, title string, scenes []model.Scene) ([]model.Scene, error) {
	if err := os.MkdirAll(s.audioDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create audio directory: %w", err)
	}

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
		sc := sc
		g.Go(func() error {
			pcm, err := s.tts.Synthesize(gctx, sc.Script)
			if err != nil {
				return fmt.Errorf("voiceover synthesis for scene %d failed: %w", sc.SceneNumber, err)
			}

			path := filepath.Join(s.audioDir, fmt.Sprintf("%s_%d.wav", stem, sc.SceneNumber))
			if err := writeWAV(path, pcm, client.TTSSampleRate); err != nil {
				return fmt.Errorf("failed to write audio for scene %d: %w", sc.SceneNumber, err)
			}

			dur, err := s.prober.Duration(gctx, path)
			if err != nil {
				return fmt.Errorf("failed to measure audio for scene %d: %w", sc.SceneNumber, err)
			}

			mu.Lock()
			idx := indexByNumber[sc.SceneNumber]
			out[idx].AudioFilePath = path
			out[idx].Duration = dur
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.log.Info("synthesized voiceover", "title", title, "scenes", len(out))
	return out, nil
}

// Combine concatenates the scene clips, strictly in scene_number order, into
// one voiceover track and returns its path.
func (s *VoiceService) Combine(ctx context.Context, title string, scenes []model.Scene) (string, error) {
	if len(scenes) == 0 {
		return "", fmt.Errorf("no scenes to combine")
	}

	stem := model.SanitizeTitle(title)
	listPath := filepath.Join(s.audioDir, stem+"_concat.txt")
	outPath := filepath.Join(s.audioDir, stem+"_voiceover.wav")

	var b strings.Builder
	for _, sc := range scenes {
		if sc.AudioFilePath == "" {
			return "", fmt.Errorf("scene %d has no audio clip", sc.SceneNumber)
		}
		abs, err := filepath.Abs(sc.AudioFilePath)
		if err != nil {
			return "", fmt.Errorf("failed to resolve audio path for scene %d: %w", sc.SceneNumber, err)
		}
		// concat demuxer syntax; single quotes in the path are escaped
		fmt.Fprintf(&b, "file '%s'\n", strings.ReplaceAll(abs, "'", `'\''`))
	}

	if err := os.WriteFile(listPath, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("failed to write concat list: %w", err)
	}
	defer os.Remove(listPath)

	_, err := s.runner.Run(ctx, s.ffmpegBin,
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c", "copy",
		"-y", outPath,
	)
	if err != nil {
		os.Remove(outPath)
		return "", fmt.Errorf("failed to combine voiceover clips: %w", err)
	}

	return outPath, nil
}

// writeWAV wraps raw 16-bit mono PCM in a minimal RIFF header.
func writeWAV(path string, pcm []byte, sampleRate int) error {
	const (
		channels      = 1
		bitsPerSample = 16
	)
	byteRate := sampleRate * channels * bitsPerSample / 8
	blockAlign := channels * bitsPerSample / 8

	header := make([]byte, 44)
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], uint32(36+len(pcm)))
	copy(header[8:12], "WAVE")
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(header[22:24], channels)
	binary.LittleEndian.PutUint32(header[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(header[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(header[34:36], bitsPerSample)
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], uint32(len(pcm)))

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.Write(header); err != nil {
		return err
	}
	_, err = f.Write(pcm)
	return err
}
