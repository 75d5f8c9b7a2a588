package service

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"clipfeed/clip-api/model"
	"clipfeed/clip-api/upload"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type fakeBlobs struct {
	blobs   map[string]time.Time
	deleted []string
}

func (f *fakeBlobs) Put(_ context.Context, key, _ string, _ io.Reader, _ int64) (string, error) {
	return "https://cdn.test/" + key, nil
}

func (f *fakeBlobs) Delete(_ context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	delete(f.blobs, key)
	return nil
}

func (f *fakeBlobs) List(_ context.Context, prefix string) ([]upload.BlobInfo, error) {
	var out []upload.BlobInfo
	for key, mod := range f.blobs {
		out = append(out, upload.BlobInfo{Key: key, LastModified: mod})
	}
	return out, nil
}

func gcDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")))
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(model.VideoAsset{}, model.Comment{}))

	return db
}

func TestSweepOrphans(t *testing.T) {
	viper.Set("gc.grace_period", "1h")

	old := time.Now().Add(-2 * time.Hour)
	fresh := time.Now().Add(-5 * time.Minute)

	t.Run("stale unreferenced blobs are removed, everything else stays", func(t *testing.T) {
		db := gcDB(t)

		// One fully persisted clip
		require.NoError(t, db.Create(&model.VideoAsset{
			ID:           "kept",
			OwnerID:      "u1",
			MediaURL:     "https://cdn.test/users/u1/videos/kept-1.mp4",
			ThumbnailURL: "https://cdn.test/users/u1/thumbnails/kept-1.jpg",
			Visibility:   model.VisibilityPublic,
			Likes:        model.StringSlice{},
			CreatedAt:    time.Now().Unix(),
		}).Error)

		blobs := &fakeBlobs{blobs: map[string]time.Time{
			// Referenced, must survive no matter the age
			"users/u1/videos/kept-1.mp4":     old,
			"users/u1/thumbnails/kept-1.jpg": old,
			// Orphaned and stale, both halves of a failed upload
			"users/u1/videos/orphan-1.mp4":     old,
			"users/u1/thumbnails/orphan-1.jpg": old,
			// Orphaned but young, could be an upload in flight
			"users/u1/videos/inflight-1.mp4": fresh,
		}}

		require.NoError(t, SweepOrphans(context.Background(), db, blobs))

		assert.ElementsMatch(t, []string{
			"users/u1/videos/orphan-1.mp4",
			"users/u1/thumbnails/orphan-1.jpg",
		}, blobs.deleted)

		assert.Contains(t, blobs.blobs, "users/u1/videos/kept-1.mp4")
		assert.Contains(t, blobs.blobs, "users/u1/thumbnails/kept-1.jpg")
		assert.Contains(t, blobs.blobs, "users/u1/videos/inflight-1.mp4")
	})

	t.Run("keys outside the media prefixes are ignored", func(t *testing.T) {
		blobs := &fakeBlobs{blobs: map[string]time.Time{
			"users/u1/avatar.png": old,
		}}

		require.NoError(t, SweepOrphans(context.Background(), gcDB(t), blobs))

		assert.Empty(t, blobs.deleted)
	})

	t.Run("an empty bucket is a no-op", func(t *testing.T) {
		blobs := &fakeBlobs{blobs: map[string]time.Time{}}

		require.NoError(t, SweepOrphans(context.Background(), gcDB(t), blobs))

		assert.Empty(t, blobs.deleted)
	})
}
