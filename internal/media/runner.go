package media

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

// Runner executes an external media tool and returns its stdout. Implemented
// by execRunner in production and by fakes in tests.
type Runner interface {
	Run(ctx context.Context, bin string, args ...string) ([]byte, error)
}

type execRunner struct{}

// NewRunner returns a Runner backed by os/exec.
func NewRunner() Runner {
	return &execRunner{}
}

func (r *execRunner) Run(ctx context.Context, bin string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, bin, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s failed: %w: %s", bin, err, tail(stderr.String(), 512))
	}
	return stdout.Bytes(), nil
}

// tail keeps the last n bytes of s; ffmpeg puts the actual error at the end
// of a long banner.
func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
