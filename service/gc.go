// Package service contains the background maintenance jobs of the
// application
package service

import (
	"context"
	"path"
	"strings"
	"time"

	"clipfeed/clip-api/model"
	"clipfeed/clip-api/upload"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// The upload pipeline doesn't roll back blobs when a later stage
// fails, so media and thumbnails without a record accumulate in the
// bucket. SweepOrphans deletes them once they're older than the grace
// period; anything younger might belong to an upload that's still in
// flight.

// AttachOrphanSweep schedules SweepOrphans on the configured cron
// schedule and returns the started scheduler.
func AttachOrphanSweep(db *gorm.DB, blobs upload.BlobStore) (*cron.Cron, error) {
	c := cron.New()

	schedule := viper.GetString("gc.schedule")

	_, err := c.AddFunc(schedule, func() {
		if err := SweepOrphans(context.Background(), db, blobs); err != nil {
			zap.L().Error("Orphan sweep failed", zap.Error(err))
		}
	})
	if err != nil {
		return nil, err
	}

	c.Start()
	zap.L().Debug("Orphan sweep attached", zap.String("schedule", schedule))

	return c, nil
}

// SweepOrphans runs one sweep over every stored blob.
func SweepOrphans(ctx context.Context, db *gorm.DB, blobs upload.BlobStore) error {
	grace := viper.GetDuration("gc.grace_period")
	cutoff := time.Now().Add(-grace)

	stored, err := blobs.List(ctx, "users/")
	if err != nil {
		return err
	}

	if len(stored) == 0 {
		return nil
	}

	// One set of referenced URLs beats a query per blob
	var urls []string
	err = db.WithContext(ctx).
		Model(model.VideoAsset{}).
		Pluck("media_url", &urls).
		Error
	if err != nil {
		return err
	}

	var thumbURLs []string
	err = db.WithContext(ctx).
		Model(model.VideoAsset{}).
		Pluck("thumbnail_url", &thumbURLs).
		Error
	if err != nil {
		return err
	}

	referenced := make(map[string]struct{}, len(urls)+len(thumbURLs))
	for _, u := range append(urls, thumbURLs...) {
		referenced[path.Base(u)] = struct{}{}
	}

	removed := 0
	for _, blob := range stored {
		if !blob.LastModified.Before(cutoff) {
			continue
		}

		// Keys look like users/{owner}/videos/{id}.mp4 and
		// users/{owner}/thumbnails/{id}.jpg
		if !strings.Contains(blob.Key, "/videos/") && !strings.Contains(blob.Key, "/thumbnails/") {
			continue
		}

		if _, ok := referenced[path.Base(blob.Key)]; ok {
			continue
		}

		if err := blobs.Delete(ctx, blob.Key); err != nil {
			zap.L().Error("Failed to delete orphaned blob", zap.String("key", blob.Key), zap.Error(err))
			continue
		}

		removed++
		zap.L().Debug("Deleted orphaned blob", zap.String("key", blob.Key))
	}

	if removed > 0 {
		zap.L().Info("Orphan sweep finished", zap.Int("removed", removed))
	}

	return nil
}
