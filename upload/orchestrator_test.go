package upload

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"

	"clipfeed/clip-api/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type fakeBlobs struct {
	mu      sync.Mutex
	puts    []string
	failKey string // fail any Put whose key contains this
	onPut   func(key string)
}

func (f *fakeBlobs) Put(_ context.Context, key, _ string, body io.Reader, _ int64) (string, error) {
	if f.onPut != nil {
		f.onPut(key)
	}

	if f.failKey != "" && strings.Contains(key, f.failKey) {
		return "", errors.New("put failed")
	}

	io.Copy(io.Discard, body)

	f.mu.Lock()
	f.puts = append(f.puts, key)
	f.mu.Unlock()

	return "https://cdn.test/" + key, nil
}

func (f *fakeBlobs) Delete(context.Context, string) error { return nil }

func (f *fakeBlobs) List(context.Context, string) ([]BlobInfo, error) { return nil, nil }

func (f *fakeBlobs) keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.puts...)
}

func orchDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")))
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(model.VideoAsset{}, model.Comment{}))

	return db
}

func srcFile(t *testing.T) string {
	t.Helper()

	p := filepath.Join(t.TempDir(), "clip.mp4")
	require.NoError(t, os.WriteFile(p, []byte("not really mp4"), 0o600))

	return p
}

func stubThumbnail(t *testing.T) func(context.Context, string, float64) (string, error) {
	t.Helper()

	return func(context.Context, string, float64) (string, error) {
		p := filepath.Join(t.TempDir(), "thumb.jpg")
		if err := os.WriteFile(p, []byte("not really jpeg"), 0o600); err != nil {
			return "", err
		}
		return p, nil
	}
}

func TestOrchestratorDo(t *testing.T) {
	t.Run("success populates the record and reaches exactly 100", func(t *testing.T) {
		blobs := &fakeBlobs{}
		o := NewOrchestrator(orchDB(t), blobs)
		o.Thumbnail = stubThumbnail(t)

		// Observe the session from inside the pipeline, like the
		// progress endpoint would
		var progression []int
		blobs.onPut = func(string) {
			if snap, ok := o.Progress("user-1"); ok {
				progression = append(progression, snap.Progress)
			}
		}

		asset, err := o.Do(context.Background(), "user-1", srcFile(t), Options{
			Title:       "Surf day",
			Description: "small waves",
			Visibility:  model.VisibilityPublic,
			Duration:    12.5,
			Size:        14,
		})
		require.NoError(t, err)

		assert.NotEmpty(t, asset.ID)
		assert.Equal(t, "user-1", asset.OwnerID)
		assert.Equal(t, "Surf day", asset.Title)
		assert.Equal(t, 12.5, asset.DurationSeconds)
		assert.Equal(t, int64(14), asset.FileSizeBytes)
		assert.Zero(t, asset.Views)
		assert.Empty(t, asset.Likes)
		assert.Contains(t, asset.MediaURL, "users/user-1/videos/")
		assert.Contains(t, asset.ThumbnailURL, "users/user-1/thumbnails/")

		// Media and thumbnail share one generated id under different
		// prefixes and extensions
		keys := blobs.keys()
		require.Len(t, keys, 2)
		mediaID := strings.TrimSuffix(filepath.Base(keys[0]), ".mp4")
		thumbID := strings.TrimSuffix(filepath.Base(keys[1]), ".jpg")
		assert.Equal(t, mediaID, thumbID)
		assert.True(t, strings.HasPrefix(keys[0], "users/user-1/videos/"))
		assert.True(t, strings.HasPrefix(keys[1], "users/user-1/thumbnails/"))

		// Mid-pipeline observations plus the final snapshot never
		// decrease and end at exactly 100
		snap, ok := o.Progress("user-1")
		require.True(t, ok)
		progression = append(progression, snap.Progress)

		for i := 1; i < len(progression); i++ {
			assert.GreaterOrEqual(t, progression[i], progression[i-1])
		}
		assert.Equal(t, 100, progression[len(progression)-1])

		// And the record actually landed
		var stored model.VideoAsset
		require.NoError(t, o.DB.First(&stored, "id = ?", asset.ID).Error)
		assert.Equal(t, asset.MediaURL, stored.MediaURL)
		assert.Equal(t, asset.ThumbnailURL, stored.ThumbnailURL)
	})

	t.Run("no identity fails before any network activity", func(t *testing.T) {
		blobs := &fakeBlobs{}
		o := NewOrchestrator(orchDB(t), blobs)
		o.Thumbnail = stubThumbnail(t)

		_, err := o.Do(context.Background(), "", srcFile(t), Options{})

		assert.ErrorIs(t, err, ErrNotAuthenticated)
		assert.Empty(t, blobs.keys())
	})

	t.Run("omitted title and description get defaults", func(t *testing.T) {
		o := NewOrchestrator(orchDB(t), &fakeBlobs{})
		o.Thumbnail = stubThumbnail(t)

		asset, err := o.Do(context.Background(), "user-1", srcFile(t), Options{})
		require.NoError(t, err)

		assert.Regexp(t, regexp.MustCompile(`^Video \d{1,2}/\d{1,2}/\d{4}$`), asset.Title)
		assert.Empty(t, asset.Description)
		assert.Equal(t, model.VisibilityPublic, asset.Visibility)
	})

	t.Run("media upload failure halts everything after it", func(t *testing.T) {
		blobs := &fakeBlobs{failKey: "/videos/"}
		o := NewOrchestrator(orchDB(t), blobs)

		thumbnailRan := false
		o.Thumbnail = func(context.Context, string, float64) (string, error) {
			thumbnailRan = true
			return "", errors.New("should not run")
		}

		_, err := o.Do(context.Background(), "user-1", srcFile(t), Options{})
		require.Error(t, err)

		assert.False(t, thumbnailRan)

		snap, ok := o.Progress("user-1")
		require.True(t, ok)
		assert.Equal(t, StageFailed.String(), snap.Stage)
		assert.Zero(t, snap.Progress)

		var count int64
		o.DB.Model(model.VideoAsset{}).Count(&count)
		assert.Zero(t, count)
	})

	t.Run("thumbnail failure leaves the media blob behind but persists nothing", func(t *testing.T) {
		blobs := &fakeBlobs{}
		o := NewOrchestrator(orchDB(t), blobs)
		o.Thumbnail = func(context.Context, string, float64) (string, error) {
			return "", errors.New("decode failed")
		}

		_, err := o.Do(context.Background(), "user-1", srcFile(t), Options{})
		require.Error(t, err)

		// No rollback of the already uploaded media, the orphan
		// sweeper handles it later
		keys := blobs.keys()
		require.Len(t, keys, 1)
		assert.Contains(t, keys[0], "/videos/")

		var count int64
		o.DB.Model(model.VideoAsset{}).Count(&count)
		assert.Zero(t, count)

		snap, _ := o.Progress("user-1")
		assert.Less(t, snap.Progress, 100)
	})

	t.Run("rapid uploads from one owner never collide on keys", func(t *testing.T) {
		blobs := &fakeBlobs{}
		o := NewOrchestrator(orchDB(t), blobs)
		o.Thumbnail = stubThumbnail(t)

		for range 5 {
			_, err := o.Do(context.Background(), "user-1", srcFile(t), Options{})
			require.NoError(t, err)
		}

		seen := map[string]bool{}
		for _, k := range blobs.keys() {
			assert.False(t, seen[k], "key %s reused", k)
			seen[k] = true
		}
	})
}
