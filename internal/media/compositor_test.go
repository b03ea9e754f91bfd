package media

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/reelcraft/api/internal/config"
	"github.com/reelcraft/api/internal/model"
	"github.com/reelcraft/api/pkg/logger"
)

type fakeRunner struct {
	calls [][]string
	err   error
}

func (r *fakeRunner) Run(_ context.Context, bin string, args ...string) ([]byte, error) {
	call := append([]string{bin}, args...)
	r.calls = append(r.calls, call)
	return nil, r.err
}

type fakeProber struct {
	duration float64
	width    int
	height   int
}

func (p *fakeProber) Duration(_ context.Context, _ string) (float64, error) {
	return p.duration, nil
}

func (p *fakeProber) Dimensions(_ context.Context, _ string) (int, int, error) {
	return p.width, p.height, nil
}

func testCompositor(t *testing.T, runner Runner, prober Prober) *Compositor {
	t.Helper()
	cfg := &config.MediaConfig{
		FFmpegBin:          "ffmpeg",
		FrameWidth:         720,
		FrameHeight:        1280,
		FrameRate:          25,
		TransitionDuration: 0.5,
	}
	return NewCompositor(cfg, t.TempDir(), runner, prober, logger.NewNop())
}

func filterComplex(t *testing.T, call []string) string {
	t.Helper()
	for i, arg := range call {
		if arg == "-filter_complex" && i+1 < len(call) {
			return call[i+1]
		}
	}
	t.Fatal("no -filter_complex in ffmpeg call")
	return ""
}

func TestRender_EmptyPlanFails(t *testing.T) {
	c := testCompositor(t, &fakeRunner{}, &fakeProber{duration: 10})

	_, err := c.Render(context.Background(), &model.RenderPlan{OutputPath: "out.mp4"})
	if err == nil {
		t.Fatal("expected error for empty plan")
	}
}

func TestRender_NonPositiveDurationFails(t *testing.T) {
	c := testCompositor(t, &fakeRunner{}, &fakeProber{duration: 10})

	plan := &model.RenderPlan{
		VisualAssets: []model.VisualAsset{
			{Path: "a.jpg", Type: model.VisualTypeImage, Duration: 0},
		},
		VoiceoverPath: "vo.wav",
		OutputPath:    "out.mp4",
	}
	if _, err := c.Render(context.Background(), plan); err == nil {
		t.Fatal("expected error for zero-duration asset")
	}
}

func TestRender_SingleSegmentHasNoTransition(t *testing.T) {
	runner := &fakeRunner{}
	c := testCompositor(t, runner, &fakeProber{duration: 5})

	plan := &model.RenderPlan{
		VisualAssets: []model.VisualAsset{
			{Path: "a.jpg", Type: model.VisualTypeImage, Duration: 5},
		},
		VoiceoverPath: "vo.wav",
		OutputPath:    t.TempDir() + "/out.mp4",
	}
	if _, err := c.Render(context.Background(), plan); err != nil {
		t.Fatalf("render failed: %v", err)
	}

	fc := filterComplex(t, runner.calls[len(runner.calls)-1])
	if strings.Contains(fc, "xfade") {
		t.Errorf("single segment must not use xfade, got %q", fc)
	}
	if !strings.Contains(fc, "zoompan") {
		t.Errorf("image segment must use zoompan, got %q", fc)
	}
}

func TestRender_TransitionOffsetsAccumulateOverlap(t *testing.T) {
	runner := &fakeRunner{}
	c := testCompositor(t, runner, &fakeProber{duration: 12})

	plan := &model.RenderPlan{
		VisualAssets: []model.VisualAsset{
			{Path: "a.jpg", Type: model.VisualTypeImage, Duration: 4},
			{Path: "b.jpg", Type: model.VisualTypeImage, Duration: 3},
			{Path: "c.jpg", Type: model.VisualTypeImage, Duration: 5},
		},
		VoiceoverPath: "vo.wav",
		OutputPath:    t.TempDir() + "/out.mp4",
	}
	if _, err := c.Render(context.Background(), plan); err != nil {
		t.Fatalf("render failed: %v", err)
	}

	fc := filterComplex(t, runner.calls[len(runner.calls)-1])

	// First transition at 4 - 0.5 = 3.5, second at 3.5 + 3 - 0.5 = 6.
	if !strings.Contains(fc, "offset=3.5") {
		t.Errorf("expected first xfade offset 3.5 in %q", fc)
	}
	if !strings.Contains(fc, "offset=6") {
		t.Errorf("expected second xfade offset 6 in %q", fc)
	}

	// Styles cycle by position index.
	if !strings.Contains(fc, "transition=fade") || !strings.Contains(fc, "transition=wipeleft") {
		t.Errorf("expected cycled transition styles in %q", fc)
	}
}

func TestRender_WideVideoGetsBlurBackground(t *testing.T) {
	runner := &fakeRunner{}
	c := testCompositor(t, runner, &fakeProber{duration: 5, width: 1920, height: 1080})

	plan := &model.RenderPlan{
		VisualAssets: []model.VisualAsset{
			{Path: "a.mp4", Type: model.VisualTypeVideo, Duration: 5},
		},
		VoiceoverPath: "vo.wav",
		OutputPath:    t.TempDir() + "/out.mp4",
	}
	if _, err := c.Render(context.Background(), plan); err != nil {
		t.Fatalf("render failed: %v", err)
	}

	fc := filterComplex(t, runner.calls[len(runner.calls)-1])
	if !strings.Contains(fc, "boxblur") || !strings.Contains(fc, "overlay") {
		t.Errorf("wide video must be composed over blurred background, got %q", fc)
	}
}

func TestRender_PortraitVideoScalesDirectly(t *testing.T) {
	runner := &fakeRunner{}
	c := testCompositor(t, runner, &fakeProber{duration: 5, width: 1080, height: 1920})

	plan := &model.RenderPlan{
		VisualAssets: []model.VisualAsset{
			{Path: "a.mp4", Type: model.VisualTypeVideo, Duration: 5},
		},
		VoiceoverPath: "vo.wav",
		OutputPath:    t.TempDir() + "/out.mp4",
	}
	if _, err := c.Render(context.Background(), plan); err != nil {
		t.Fatalf("render failed: %v", err)
	}

	fc := filterComplex(t, runner.calls[len(runner.calls)-1])
	if strings.Contains(fc, "boxblur") {
		t.Errorf("portrait video must scale directly, got %q", fc)
	}
	if !strings.Contains(fc, "scale=720:1280") {
		t.Errorf("expected direct scale to target frame in %q", fc)
	}
}

func TestRender_BackgroundScoreAddsDucking(t *testing.T) {
	runner := &fakeRunner{}
	c := testCompositor(t, runner, &fakeProber{duration: 5})

	plan := &model.RenderPlan{
		VisualAssets: []model.VisualAsset{
			{Path: "a.jpg", Type: model.VisualTypeImage, Duration: 5},
		},
		VoiceoverPath:       "vo.wav",
		BackgroundScorePath: "score.mp3",
		OutputPath:          t.TempDir() + "/out.mp4",
	}
	if _, err := c.Render(context.Background(), plan); err != nil {
		t.Fatalf("render failed: %v", err)
	}

	fc := filterComplex(t, runner.calls[len(runner.calls)-1])
	if !strings.Contains(fc, "sidechaincompress") {
		t.Errorf("background score must be ducked, got %q", fc)
	}
	if !strings.Contains(fc, "amix") {
		t.Errorf("background score must be mixed under voiceover, got %q", fc)
	}
}

func TestRender_TextClipIsCached(t *testing.T) {
	runner := &fakeRunner{}
	c := testCompositor(t, runner, &fakeProber{duration: 8})

	clipPath, err := c.ensureTextClip(context.Background(), "Hello there", 4)
	if err != nil {
		t.Fatalf("text clip render failed: %v", err)
	}
	if len(runner.calls) != 1 {
		t.Fatalf("expected one ffmpeg call, got %d", len(runner.calls))
	}

	// Simulate the first render having produced the file.
	if err := os.WriteFile(clipPath, []byte("clip"), 0o644); err != nil {
		t.Fatalf("failed to seed clip file: %v", err)
	}

	again, err := c.ensureTextClip(context.Background(), "Hello there", 4)
	if err != nil {
		t.Fatalf("cached text clip lookup failed: %v", err)
	}
	if again != clipPath {
		t.Errorf("cached path mismatch: %q vs %q", again, clipPath)
	}
	if len(runner.calls) != 1 {
		t.Errorf("identical text must reuse the cached clip, got %d renders", len(runner.calls))
	}
}

func TestTempoFor(t *testing.T) {
	cases := []struct {
		name     string
		voDur    float64
		target   float64
		expected float64
	}{
		{"matched durations", 10, 10, 1.0},
		{"voiceover slightly long", 12, 10, 1.2},
		{"clamped high", 30, 10, 2.0},
		{"clamped low", 2, 10, 0.5},
		{"zero target", 10, 0, 1.0},
		{"zero voiceover", 0, 10, 1.0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := tempoFor(tc.voDur, tc.target)
			if got != tc.expected {
				t.Errorf("tempoFor(%v, %v) = %v, want %v", tc.voDur, tc.target, got, tc.expected)
			}
		})
	}
}

func TestFadeWindow(t *testing.T) {
	if got := fadeWindow(4); got != 0.5 {
		t.Errorf("fadeWindow(4) = %v, want 0.5", got)
	}
	// Short clips scale the fade down so a visible hold remains.
	if got := fadeWindow(1); got != 0.25 {
		t.Errorf("fadeWindow(1) = %v, want 0.25", got)
	}
}

func TestEffectiveTransition_CappedByShortSegment(t *testing.T) {
	c := testCompositor(t, &fakeRunner{}, &fakeProber{})

	got := c.effectiveTransition([]float64{4, 0.6, 5})
	if got != 0.3 {
		t.Errorf("effectiveTransition = %v, want 0.3", got)
	}
}

func TestEscapeDrawtext(t *testing.T) {
	got := escapeDrawtext(`it's 50%: fine`)
	if !strings.Contains(got, `\'`) || !strings.Contains(got, `\%`) || !strings.Contains(got, `\:`) {
		t.Errorf("special characters not escaped: %q", got)
	}
}
