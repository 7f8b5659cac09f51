package media

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Thumbnailer produces a still-frame image for a local video file.
type Thumbnailer interface {
	Generate(ctx context.Context, videoPath string) (string, error)
}

// CommandRunner executes external commands and returns stdout bytes.
type CommandRunner func(ctx context.Context, binary string, args ...string) ([]byte, error)

// FFmpegThumbnailer extracts the frame at timestamp zero using the ffmpeg CLI.
type FFmpegThumbnailer struct {
	Binary  string
	Run     CommandRunner
	Timeout time.Duration
	OutDir  string
}

// NewFFmpegThumbnailer constructs a Thumbnailer that shells out to ffmpeg.
func NewFFmpegThumbnailer(binary string, timeout time.Duration) *FFmpegThumbnailer {
	if strings.TrimSpace(binary) == "" {
		binary = "ffmpeg"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &FFmpegThumbnailer{
		Binary:  binary,
		Run:     defaultCommandRunner,
		Timeout: timeout,
	}
}

// Generate writes a single JPEG frame from the start of the video and returns
// its path. The caller owns the returned file.
func (t *FFmpegThumbnailer) Generate(ctx context.Context, videoPath string) (string, error) {
	if t == nil {
		return "", ErrThumbnailerUnavailable
	}
	if t.Run == nil {
		t.Run = defaultCommandRunner
	}

	outDir := t.OutDir
	if outDir == "" {
		outDir = os.TempDir()
	}
	outPath := filepath.Join(outDir, fmt.Sprintf("thumb-%s.jpg", uuid.NewString()))

	execCtx, cancel := context.WithTimeout(ctx, t.Timeout)
	defer cancel()

	args := []string{"-y", "-i", videoPath, "-ss", "00:00:00", "-frames:v", "1", outPath}
	if _, err := t.Run(execCtx, t.Binary, args...); err != nil {
		os.Remove(outPath)
		return "", fmt.Errorf("ffmpeg thumbnail: %w", err)
	}

	if _, err := os.Stat(outPath); err != nil {
		return "", fmt.Errorf("ffmpeg produced no thumbnail: %w", err)
	}

	return outPath, nil
}

func defaultCommandRunner(ctx context.Context, binary string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...)
	return cmd.Output()
}
