package assembler

import (
	"context"
	"fmt"
	"os/exec"
)

// FFmpeg runs the system ffmpeg binary with the concat demuxer. The inputs
// are decoded and re-encoded once so clips from mixed sources line up, and
// audio is stripped since narration is mixed in later.
type FFmpeg struct {
	// Binary overrides the executable name. Defaults to "ffmpeg".
	Binary string
}

// Concat implements Transcoder.
func (f *FFmpeg) Concat(ctx context.Context, manifestPath, outPath string) error {
	binary := f.Binary
	if binary == "" {
		binary = "ffmpeg"
	}
	if _, err := exec.LookPath(binary); err != nil {
		return fmt.Errorf("%s not found in PATH: %w", binary, err)
	}

	cmd := exec.CommandContext(ctx, binary,
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", manifestPath,
		"-c:v", "libx264",
		"-an",
		outPath,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg concat failed: %w: %s", err, out)
	}
	return nil
}

var _ Transcoder = (*FFmpeg)(nil)
