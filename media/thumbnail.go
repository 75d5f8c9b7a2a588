package media

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.uber.org/zap"
)

const (
	thumbnailTimeout = 30 * time.Second

	// Neither thumbnail dimension may exceed this, no matter how large
	// the source raster is
	maxThumbDim = 1280

	// Seeking is clamped this far away from end-of-stream so the frame
	// grab never lands past the last frame
	seekLeeway = 0.1

	// ffmpeg's 2-31 JPEG quality scale, 9 lands around the usual 0.7
	jpegQuality = "9"
)

// Thumbnail decodes one frame of the video at src around seekSeconds,
// scales it down to fit maxThumbDim while preserving the aspect ratio
// and encodes it as JPEG. It returns the path of the written file,
// which the caller owns and should remove when done.
func Thumbnail(ctx context.Context, src string, seekSeconds float64) (string, error) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return "", ErrEncoderUnavailable
	}

	ctx, cancel := context.WithTimeout(ctx, thumbnailTimeout)
	defer cancel()

	w, h, dur, err := dimensions(ctx, src)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", ErrThumbnailTimeout
		}
		return "", fmt.Errorf("failed to probe video dimensions, %w", err)
	}

	tw, th := fitWithin(w, h, maxThumbDim)
	seek := clampSeek(seekSeconds, dur)

	out := path.Join(os.TempDir(), "thumb_"+gonanoid.Must(10)+".jpg")

	zap.L().Debug("Creating thumbnail for video",
		zap.String("path", out),
		zap.Float64("seek", seek),
		zap.Int("width", tw),
		zap.Int("height", th),
	)
	now := time.Now()

	// -ss before the input uses key-frame seeking so it's fast even on
	// long files
	cmd := exec.CommandContext(ctx, "ffmpeg", "-loglevel", "error",
		"-ss", fmt.Sprintf("%.3f", seek),
		"-i", src,
		"-frames:v", "1",
		"-q:v", jpegQuality,
		"-vf", fmt.Sprintf("scale=%d:%d", tw, th),
		out, "-y")

	if err := cmd.Run(); err != nil {
		os.Remove(out)

		if ctx.Err() == context.DeadlineExceeded {
			return "", ErrThumbnailTimeout
		}

		return "", fmt.Errorf("failed to create thumbnail for video, %w", err)
	}

	zap.L().Debug("Finished creating thumbnail", zap.Duration("took", time.Since(now)))

	return out, nil
}

// fitWithin scales w x h down so that neither dimension exceeds max,
// keeping the aspect ratio. Sources already small enough pass through
// unchanged.
func fitWithin(w, h, max int) (int, int) {
	if w <= 0 || h <= 0 {
		return max, max
	}

	if w <= max && h <= max {
		return w, h
	}

	if w >= h {
		scaled := int(float64(h)*float64(max)/float64(w) + 0.5)
		if scaled < 1 {
			scaled = 1
		}
		return max, scaled
	}

	scaled := int(float64(w)*float64(max)/float64(h) + 0.5)
	if scaled < 1 {
		scaled = 1
	}
	return scaled, max
}

// clampSeek keeps the requested seek inside [0, dur-seekLeeway].
func clampSeek(seek, dur float64) float64 {
	end := dur - seekLeeway
	if end < 0 {
		end = 0
	}

	if seek < 0 {
		return 0
	}
	if seek > end {
		return end
	}
	return seek
}
