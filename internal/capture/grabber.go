// Package capture pulls still frames from the public stream and feeds
// them through angle classification into the frame store.
package capture

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Grabber acquires one still frame for "now". Implementations must honor
// context cancellation with a forced stop of any external process.
type Grabber interface {
	Grab(ctx context.Context) ([]byte, error)
}

// FFmpegGrabber shells out to ffmpeg to pull a single JPEG frame from a
// live stream URL. The process is killed when the context expires.
type FFmpegGrabber struct {
	streamURL string
}

// NewFFmpegGrabber creates a grabber for the given stream locator.
func NewFFmpegGrabber(streamURL string) *FFmpegGrabber {
	return &FFmpegGrabber{streamURL: streamURL}
}

// Grab runs ffmpeg for exactly one frame and returns the JPEG bytes.
func (g *FFmpegGrabber) Grab(ctx context.Context) ([]byte, error) {
	if g.streamURL == "" {
		return nil, fmt.Errorf("no stream URL configured")
	}

	args := []string{"-hide_banner", "-loglevel", "error"}
	if strings.HasPrefix(g.streamURL, "rtsp://") {
		args = append(args, "-rtsp_transport", "tcp")
	}
	args = append(args,
		"-i", g.streamURL,
		"-frames:v", "1",
		"-f", "image2pipe",
		"-vcodec", "mjpeg",
		"-q:v", "5",
		"-",
	)

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("frame grab timed out: %w", ctx.Err())
		}
		return nil, fmt.Errorf("ffmpeg failed: %w (%s)", err, strings.TrimSpace(stderr.String()))
	}

	frame := stdout.Bytes()
	if len(frame) < 4 || frame[0] != 0xFF || frame[1] != 0xD8 {
		return nil, fmt.Errorf("ffmpeg produced no usable JPEG frame (%d bytes)", len(frame))
	}
	return frame, nil
}

var _ Grabber = (*FFmpegGrabber)(nil)
