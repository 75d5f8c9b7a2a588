// Package validators checks user supplied input before it's allowed
// anywhere near storage
package validators

import (
	"context"
	"fmt"
	"path"
	"strings"

	"clipfeed/clip-api/media"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Candidate describes one uploaded file after it has been spooled to
// disk. ContentType is whatever the client declared and may be empty
// or plain wrong.
type Candidate struct {
	Name        string
	ContentType string
	Size        int64
	Path        string
}

// Result lists everything wrong with a candidate. An upload may only
// proceed when OK is true. Duration is only meaningful when the probe
// ran and succeeded.
type Result struct {
	OK       bool
	Errors   []string
	Duration float64
}

// Swapped out in tests so they don't need ffprobe installed
var probeDuration = media.Duration

// File runs every static check on c and, only when those all pass,
// probes the playable duration. It never returns an error, problems
// are accumulated in the result instead.
//
// Cheap checks run first: format by declared type or extension (clients
// on some platforms report empty or bogus content types, so either
// passing is enough), then size, and the ffprobe run only happens on
// files that are otherwise acceptable.
func File(ctx context.Context, c *Candidate) Result {
	if c == nil {
		return Result{Errors: []string{"No file provided"}}
	}

	var errs []string

	allowedTypes := viper.GetStringSlice("upload.allowed_types")
	allowedExts := viper.GetStringSlice("upload.allowed_exts")

	if !formatAllowed(c, allowedTypes, allowedExts) {
		errs = append(errs, fmt.Sprintf(
			"Unsupported format %q. Supported formats: %s (extensions: %s)",
			c.ContentType,
			strings.Join(allowedTypes, ", "),
			strings.Join(allowedExts, ", "),
		))
	}

	maxSize := viper.GetInt64("upload.max_size")

	if c.Size == 0 {
		errs = append(errs, "File is empty")
	} else if c.Size > maxSize {
		errs = append(errs, fmt.Sprintf(
			"File too large: %.1f MB (max %.0f MB)",
			float64(c.Size)/(1<<20),
			float64(maxSize)/(1<<20),
		))
	}

	if len(errs) > 0 {
		return Result{Errors: errs}
	}

	// Everything static passed, now the expensive part
	maxDuration := viper.GetFloat64("upload.max_duration")

	dur, err := probeDuration(ctx, c.Path)
	if err != nil {
		zap.L().Debug("Duration probe failed during validation", zap.Error(err))
		return Result{Errors: []string{"Unable to read video duration"}}
	}

	if dur > maxDuration {
		return Result{Errors: []string{fmt.Sprintf(
			"Video too long: %.1f seconds (max %.0f seconds)",
			dur,
			maxDuration,
		)}}
	}

	return Result{OK: true, Duration: dur}
}

func formatAllowed(c *Candidate, types, exts []string) bool {
	ct := strings.ToLower(strings.TrimSpace(c.ContentType))
	for _, t := range types {
		if ct == t {
			return true
		}
	}

	ext := strings.ToLower(path.Ext(c.Name))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}

	// Last resort: sniff the actual bytes. Catches clients that send
	// a useless content type with a renamed file
	if c.Path != "" {
		if m, err := mimetype.DetectFile(c.Path); err == nil {
			for _, t := range types {
				if m.Is(t) {
					return true
				}
			}
		}
	}

	return false
}
