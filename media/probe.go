// Package media wraps the ffmpeg/ffprobe binaries to read metadata from
// uploaded clips and derive thumbnails from them. Every operation is a
// single attempt bounded by a deadline.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrProbeTimeout is returned when ffprobe didn't finish within
	// the probe deadline. Kept separate from decode failures so callers
	// can tell "slow" from "broken".
	ErrProbeTimeout = errors.New("timed out while reading video duration")

	// ErrThumbnailTimeout is returned when frame extraction didn't
	// finish within its deadline.
	ErrThumbnailTimeout = errors.New("timed out while extracting thumbnail")

	// ErrEncoderUnavailable is returned when no ffmpeg binary can be
	// found on PATH, so no frame can be rasterized at all.
	ErrEncoderUnavailable = errors.New("ffmpeg not available")
)

const probeTimeout = 15 * time.Second

// Duration runs ffprobe once against the file at p and returns the
// container duration in seconds.
func Duration(ctx context.Context, p string) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	zap.L().Debug("Running ffprobe to determine video duration")

	cmd := exec.CommandContext(ctx, "ffprobe", "-v", "error", "-show_entries", "format=duration", "-of", "default=noprint_wrappers=1:nokey=1", "-i", p)

	var stdOut, stdErr bytes.Buffer
	cmd.Stdout = &stdOut
	cmd.Stderr = &stdErr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return 0, ErrProbeTimeout
		}

		return 0, fmt.Errorf("ffprobe failed, %w (%s)", err, stdErr.String())
	}

	d, err := strconv.ParseFloat(strings.TrimSpace(stdOut.String()), 64)
	if err != nil {
		return 0, fmt.Errorf("malformed duration: %w (%s)", err, stdErr.String())
	}

	zap.L().Debug("ffprobe finished", zap.Float64("duration", d))
	return d, nil
}

// dimensions returns the native width, height and duration of the first
// video stream of the file at p.
func dimensions(ctx context.Context, p string) (w, h int, dur float64, err error) {
	cmd := exec.CommandContext(ctx, "ffprobe", "-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height",
		"-show_entries", "format=duration",
		"-of", "csv=p=0", "-i", p)

	var stdOut, stdErr bytes.Buffer
	cmd.Stdout = &stdOut
	cmd.Stderr = &stdErr

	if err := cmd.Run(); err != nil {
		return 0, 0, 0, fmt.Errorf("ffprobe failed, %w (%s)", err, stdErr.String())
	}

	// Two csv lines: "width,height" for the stream and "duration" for
	// the format section
	lines := strings.Split(strings.TrimSpace(stdOut.String()), "\n")
	if len(lines) < 2 {
		return 0, 0, 0, fmt.Errorf("malformed ffprobe output: %q", stdOut.String())
	}

	dims := strings.Split(strings.TrimSpace(lines[0]), ",")
	if len(dims) < 2 {
		return 0, 0, 0, fmt.Errorf("malformed stream dimensions: %q", lines[0])
	}

	if w, err = strconv.Atoi(dims[0]); err != nil {
		return 0, 0, 0, fmt.Errorf("malformed width: %w", err)
	}
	if h, err = strconv.Atoi(dims[1]); err != nil {
		return 0, 0, 0, fmt.Errorf("malformed height: %w", err)
	}
	if dur, err = strconv.ParseFloat(strings.TrimSpace(lines[1]), 64); err != nil {
		return 0, 0, 0, fmt.Errorf("malformed duration: %w", err)
	}

	return w, h, dur, nil
}
