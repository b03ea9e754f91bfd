package media

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
)

// Prober inspects media files. Both methods shell out to ffprobe.
type Prober interface {
	Duration(ctx context.Context, path string) (float64, error)
	Dimensions(ctx context.Context, path string) (width, height int, err error)
}

// FFProber implements Prober on top of the ffprobe binary.
type FFProber struct {
	bin    string
	runner Runner
}

func NewFFProber(bin string, runner Runner) *FFProber {
	return &FFProber{bin: bin, runner: runner}
}

type probeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType string `json:"codec_type"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
}

func (p *FFProber) probe(ctx context.Context, path string) (*probeOutput, error) {
	out, err := p.runner.Run(ctx, p.bin,
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to probe %s: %w", path, err)
	}

	var result probeOutput
	if err := json.Unmarshal(out, &result); err != nil {
		return nil, fmt.Errorf("failed to parse probe output for %s: %w", path, err)
	}
	return &result, nil
}

// Duration returns the container duration in seconds.
func (p *FFProber) Duration(ctx context.Context, path string) (float64, error) {
	result, err := p.probe(ctx, path)
	if err != nil {
		return 0, err
	}

	dur, err := strconv.ParseFloat(result.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("no duration in probe output for %s: %w", path, err)
	}
	return dur, nil
}

// Dimensions returns the width and height of the first video stream.
func (p *FFProber) Dimensions(ctx context.Context, path string) (int, int, error) {
	result, err := p.probe(ctx, path)
	if err != nil {
		return 0, 0, err
	}

	for _, s := range result.Streams {
		if s.CodecType == "video" && s.Width > 0 && s.Height > 0 {
			return s.Width, s.Height, nil
		}
	}
	return 0, 0, fmt.Errorf("no video stream in %s", path)
}
