package media

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/reelcraft/api/internal/config"
	"github.com/reelcraft/api/internal/model"
	"github.com/reelcraft/api/pkg/logger"
)

// transitionStyles are cycled by position so adjacent cuts do not all look
// identical. All are valid xfade transition names.
var transitionStyles = []string{"fade", "wipeleft", "slideup", "circleopen"}

// Compositor renders a RenderPlan into a single vertical video via ffmpeg.
type Compositor struct {
	ffmpegBin  string
	width      int
	height     int
	fps        int
	transition float64
	textDir    string
	runner     Runner
	prober     Prober
	log        *logger.Logger
}

func NewCompositor(cfg *config.MediaConfig, textDir string, runner Runner, prober Prober, log *logger.Logger) *Compositor {
	return &Compositor{
		ffmpegBin:  cfg.FFmpegBin,
		width:      cfg.FrameWidth,
		height:     cfg.FrameHeight,
		fps:        cfg.FrameRate,
		transition: cfg.TransitionDuration,
		textDir:    textDir,
		runner:     runner,
		prober:     prober,
		log:        log,
	}
}

// Render composes the plan's visual timeline and audio into plan.OutputPath
// and returns that path. Partial output is removed on failure.
func (c *Compositor) Render(ctx context.Context, plan *model.RenderPlan) (string, error) {
	if len(plan.VisualAssets) == 0 {
		return "", fmt.Errorf("render plan has no visual assets")
	}
	target := plan.TotalDuration()
	if target <= 0 {
		return "", fmt.Errorf("render plan has zero total duration")
	}
	for i, a := range plan.VisualAssets {
		if a.Duration <= 0 {
			return "", fmt.Errorf("visual asset %d has non-positive duration", i)
		}
	}

	var inputArgs []string
	var filters []string

	for i, asset := range plan.VisualAssets {
		switch asset.Type {
		case model.VisualTypeImage:
			inputArgs = append(inputArgs,
				"-loop", "1",
				"-framerate", fmt.Sprintf("%d", c.fps),
				"-t", formatSeconds(asset.Duration),
				"-i", asset.Path,
			)
			filters = append(filters, c.imageSegment(i, asset.Duration))

		case model.VisualTypeVideo:
			w, h, err := c.prober.Dimensions(ctx, asset.Path)
			if err != nil {
				return "", fmt.Errorf("failed to inspect video asset: %w", err)
			}
			inputArgs = append(inputArgs, "-i", asset.Path)
			filters = append(filters, c.videoSegment(i, asset.Duration, w, h))

		case model.VisualTypeText:
			clipPath, err := c.ensureTextClip(ctx, asset.Text, asset.Duration)
			if err != nil {
				return "", err
			}
			inputArgs = append(inputArgs, "-i", clipPath)
			filters = append(filters,
				fmt.Sprintf("[%d:v]trim=duration=%s,setpts=PTS-STARTPTS,format=yuv420p[v%d]",
					i, formatSeconds(asset.Duration), i))

		default:
			return "", fmt.Errorf("unknown visual asset type %q", asset.Type)
		}
	}

	durations := make([]float64, len(plan.VisualAssets))
	for i, a := range plan.VisualAssets {
		durations[i] = a.Duration
	}
	xfadeFilters, videoOut := c.transitionChain(durations)
	filters = append(filters, xfadeFilters...)

	// Voiceover is the input right after the visual assets.
	voIdx := len(plan.VisualAssets)
	inputArgs = append(inputArgs, "-i", plan.VoiceoverPath)

	voDur, err := c.prober.Duration(ctx, plan.VoiceoverPath)
	if err != nil {
		return "", fmt.Errorf("failed to inspect voiceover: %w", err)
	}
	tempo := tempoFor(voDur, target)

	audioOut := "[aout]"
	if plan.BackgroundScorePath != "" {
		bgIdx := voIdx + 1
		inputArgs = append(inputArgs, "-i", plan.BackgroundScorePath)
		filters = append(filters,
			fmt.Sprintf("[%d:a]atempo=%s,asplit=2[vokey][vomix]", voIdx, formatSeconds(tempo)),
			fmt.Sprintf("[%d:a]volume=0.3[bgq]", bgIdx),
			"[bgq][vokey]sidechaincompress=threshold=0.05:ratio=8:attack=50:release=300[bgduck]",
			"[vomix][bgduck]amix=inputs=2:duration=first:weights=2 1[aout]",
		)
	} else {
		filters = append(filters,
			fmt.Sprintf("[%d:a]atempo=%s[aout]", voIdx, formatSeconds(tempo)))
	}

	if err := os.MkdirAll(filepath.Dir(plan.OutputPath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	args := append([]string{}, inputArgs...)
	args = append(args,
		"-filter_complex", strings.Join(filters, ";"),
		"-map", videoOut,
		"-map", audioOut,
		"-t", formatSeconds(target),
		"-r", fmt.Sprintf("%d", c.fps),
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-y", plan.OutputPath,
	)

	c.log.Info("rendering video",
		"output", plan.OutputPath,
		"scenes", len(plan.VisualAssets),
		"target_duration", target,
		"tempo", tempo,
	)

	if _, err := c.runner.Run(ctx, c.ffmpegBin, args...); err != nil {
		os.Remove(plan.OutputPath)
		return "", fmt.Errorf("composition failed: %w", err)
	}

	return plan.OutputPath, nil
}

// imageSegment holds a still for its duration with a continuous slow zoom.
// The pre-zoom upscale smooths zoompan's subpixel jitter.
func (c *Compositor) imageSegment(idx int, duration float64) string {
	frames := int(math.Round(duration * float64(c.fps)))
	return fmt.Sprintf(
		"[%d:v]scale=%d:-2,zoompan=z='zoom+0.001':d=%d:s=%dx%d:fps=%d,format=yuv420p,trim=duration=%s,setpts=PTS-STARTPTS[v%d]",
		idx, c.width*4, frames, c.width, c.height, c.fps, formatSeconds(duration), idx)
}

// videoSegment trims a video clip to its scene duration and normalizes it to
// the target frame. Clips much wider than the portrait frame are centered
// over a blurred, cropped copy of themselves instead of being stretched.
func (c *Compositor) videoSegment(idx int, duration float64, srcWidth, srcHeight int) string {
	dur := formatSeconds(duration)
	if c.needsBlurBackground(srcWidth, srcHeight) {
		return fmt.Sprintf(
			"[%d:v]trim=duration=%s,setpts=PTS-STARTPTS,split=2[bg%d][fg%d];"+
				"[bg%d]scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d,boxblur=20:2[bgb%d];"+
				"[fg%d]scale=%d:-2[fgs%d];"+
				"[bgb%d][fgs%d]overlay=(W-w)/2:(H-h)/2,fps=%d,format=yuv420p[v%d]",
			idx, dur, idx, idx,
			idx, c.width, c.height, c.width, c.height, idx,
			idx, c.width, idx,
			idx, idx, c.fps, idx)
	}
	return fmt.Sprintf(
		"[%d:v]trim=duration=%s,setpts=PTS-STARTPTS,scale=%d:%d,fps=%d,format=yuv420p[v%d]",
		idx, dur, c.width, c.height, c.fps, idx)
}

// needsBlurBackground reports whether a source is more than 20% wider, in
// aspect ratio, than the target frame.
func (c *Compositor) needsBlurBackground(srcWidth, srcHeight int) bool {
	if srcWidth <= 0 || srcHeight <= 0 {
		return false
	}
	srcAspect := float64(srcWidth) / float64(srcHeight)
	targetAspect := float64(c.width) / float64(c.height)
	return srcAspect > targetAspect*1.2
}

// transitionChain builds the xfade chain over labeled segments [v0..vN-1].
// Each transition starts before the previous clip fully ends, so each offset
// accumulates (duration - transition). A single segment needs no chain.
func (c *Compositor) transitionChain(durations []float64) ([]string, string) {
	n := len(durations)
	if n == 1 {
		return nil, "[v0]"
	}

	trans := c.effectiveTransition(durations)

	var filters []string
	prev := "[v0]"
	offset := durations[0] - trans
	for k := 1; k < n; k++ {
		style := transitionStyles[(k-1)%len(transitionStyles)]
		out := fmt.Sprintf("[x%d]", k)
		if k == n-1 {
			out = "[vout]"
		}
		filters = append(filters, fmt.Sprintf(
			"%s[v%d]xfade=transition=%s:duration=%s:offset=%s%s",
			prev, k, style, formatSeconds(trans), formatSeconds(offset), out))
		prev = out
		offset += durations[k] - trans
	}
	return filters, "[vout]"
}

// effectiveTransition caps the configured transition so it never exceeds half
// the shortest segment; xfade needs both clips alive through the overlap.
func (c *Compositor) effectiveTransition(durations []float64) float64 {
	trans := c.transition
	for _, d := range durations {
		if half := d / 2; half < trans {
			trans = half
		}
	}
	return trans
}

// ensureTextClip renders a centered-text clip on a solid background with a
// fade in/out, cached by content so identical text scenes reuse one render.
func (c *Compositor) ensureTextClip(ctx context.Context, text string, duration float64) (string, error) {
	if text == "" {
		return "", fmt.Errorf("text asset has empty text")
	}

	sum := sha1.Sum([]byte(text))
	clipPath := filepath.Join(c.textDir, fmt.Sprintf("text_%s.mp4", hex.EncodeToString(sum[:6])))
	if _, err := os.Stat(clipPath); err == nil {
		return clipPath, nil
	}

	if err := os.MkdirAll(c.textDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create text clip directory: %w", err)
	}

	fade := fadeWindow(duration)
	vf := fmt.Sprintf(
		"drawtext=text='%s':fontcolor=white:fontsize=54:x=(w-text_w)/2:y=(h-text_h)/2,fade=t=in:st=0:d=%s,fade=t=out:st=%s:d=%s,format=yuv420p",
		escapeDrawtext(text), formatSeconds(fade), formatSeconds(duration-fade), formatSeconds(fade))

	args := []string{
		"-f", "lavfi",
		"-i", fmt.Sprintf("color=c=0x101020:s=%dx%d:d=%s:r=%d", c.width, c.height, formatSeconds(duration), c.fps),
		"-vf", vf,
		"-c:v", "libx264",
		"-y", clipPath,
	}

	if _, err := c.runner.Run(ctx, c.ffmpegBin, args...); err != nil {
		os.Remove(clipPath)
		return "", fmt.Errorf("failed to render text clip: %w", err)
	}
	return clipPath, nil
}

// tempoFor computes the atempo multiplier that stretches a voiceover of
// voiceoverDur seconds onto targetDur seconds, clamped to [0.5, 2.0]. A
// degenerate target means no stretch.
func tempoFor(voiceoverDur, targetDur float64) float64 {
	if targetDur <= 0 || voiceoverDur <= 0 {
		return 1.0
	}
	tempo := voiceoverDur / targetDur
	if tempo < 0.5 {
		return 0.5
	}
	if tempo > 2.0 {
		return 2.0
	}
	return tempo
}

// fadeWindow is at most half a second and never more than a quarter of the
// clip, so even short clips keep a visible hold.
func fadeWindow(duration float64) float64 {
	return math.Min(0.5, duration/4)
}

// escapeDrawtext escapes the characters drawtext treats specially inside a
// single-quoted text value.
func escapeDrawtext(text string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		`'`, `\'`,
		`:`, `\:`,
		`%`, `\%`,
	)
	return r.Replace(text)
}

func formatSeconds(v float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.3f", v), "0"), ".")
}
