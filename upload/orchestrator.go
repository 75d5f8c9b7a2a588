package upload

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"clipfeed/clip-api/media"
	"clipfeed/clip-api/model"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrNotAuthenticated is returned before any network activity when no
// actor identity was resolved for the upload.
var ErrNotAuthenticated = errors.New("no signed-in user for upload")

// Options carries everything the caller decided about the clip. Title
// and Description may be empty, defaults are synthesized here.
type Options struct {
	Title       string
	Description string
	Visibility  model.Visibility

	// Measured during validation
	Duration float64
	Size     int64
}

// Orchestrator runs every upload strictly in sequence so the progress
// checkpoints always come out the same. One Session per owner is kept
// around until the pipeline settles and a new upload replaces it.
type Orchestrator struct {
	DB    *gorm.DB
	Blobs BlobStore

	// Swapped out in tests so they don't need ffmpeg installed
	Thumbnail func(ctx context.Context, src string, seekSeconds float64) (string, error)

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewOrchestrator(db *gorm.DB, blobs BlobStore) *Orchestrator {
	return &Orchestrator{
		DB:        db,
		Blobs:     blobs,
		Thumbnail: media.Thumbnail,
		sessions:  make(map[string]*Session),
	}
}

// Progress returns a snapshot of ownerID's most recent upload session,
// or false when there has never been one.
func (o *Orchestrator) Progress(ownerID string) (Snapshot, bool) {
	o.mu.Lock()
	s, ok := o.sessions[ownerID]
	o.mu.Unlock()

	if !ok {
		return Snapshot{}, false
	}
	return s.Snapshot(), true
}

// Do uploads the already validated clip at src and persists its record.
// Stages never overlap: media bytes first (the thumbnail needs the same
// decodable bytes but not the upload result), thumbnail second, record
// once at the very end. A failing stage settles the session, surfaces
// its error and skips everything after it. Blobs written by earlier
// stages are not rolled back here, the orphan sweeper picks those up.
func (o *Orchestrator) Do(ctx context.Context, ownerID, src string, opts Options) (*model.VideoAsset, error) {
	if ownerID == "" {
		return nil, ErrNotAuthenticated
	}

	session := NewSession()
	o.mu.Lock()
	o.sessions[ownerID] = session
	o.mu.Unlock()

	session.advance(StageInitializing, "Preparing upload")

	// Owner + timestamp + random suffix keeps keys collision resistant
	// even for rapid uploads from one account
	assetID := fmt.Sprintf("%d_%s", time.Now().UnixNano(), gonanoid.Must(8))
	mediaKey := fmt.Sprintf("users/%s/videos/%s.mp4", ownerID, assetID)
	thumbKey := fmt.Sprintf("users/%s/thumbnails/%s.jpg", ownerID, assetID)

	session.advance(StageUploadingMedia, "Uploading video")

	mediaURL, err := o.putFile(ctx, mediaKey, "video/mp4", src)
	if err != nil {
		err = fmt.Errorf("failed to upload video, %w", err)
		session.fail(err)
		return nil, err
	}

	session.advance(StageGeneratingThumbnail, "Generating thumbnail")

	thumbPath, err := o.Thumbnail(ctx, src, 1)
	if err != nil {
		err = fmt.Errorf("failed to generate thumbnail, %w", err)
		session.fail(err)
		return nil, err
	}
	defer os.Remove(thumbPath)

	session.advance(StageUploadingThumbnail, "Uploading thumbnail")

	thumbURL, err := o.putFile(ctx, thumbKey, "image/jpeg", thumbPath)
	if err != nil {
		err = fmt.Errorf("failed to upload thumbnail, %w", err)
		session.fail(err)
		return nil, err
	}

	session.advance(StagePersistingRecord, "Saving")

	title := opts.Title
	if title == "" {
		title = "Video " + time.Now().Format("1/2/2006")
	}

	visibility := opts.Visibility
	if visibility == "" {
		visibility = model.VisibilityPublic
	}

	now := time.Now().Unix()
	asset := &model.VideoAsset{
		ID:              uuid.NewString(),
		OwnerID:         ownerID,
		Title:           title,
		Description:     opts.Description,
		MediaURL:        mediaURL,
		ThumbnailURL:    thumbURL,
		Visibility:      visibility,
		Likes:           model.StringSlice{},
		Views:           0,
		DurationSeconds: opts.Duration,
		FileSizeBytes:   opts.Size,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := o.DB.Create(asset).Error; err != nil {
		err = fmt.Errorf("failed to save video record, %w", err)
		session.fail(err)
		return nil, err
	}

	session.advance(StageComplete, "Done")

	zap.L().Info("Upload finished",
		zap.String("owner_id", ownerID),
		zap.String("video_id", asset.ID),
		zap.Float64("duration", asset.DurationSeconds),
	)

	return asset, nil
}

func (o *Orchestrator) putFile(ctx context.Context, key, contentType, p string) (string, error) {
	f, err := os.Open(p)
	if err != nil {
		return "", fmt.Errorf("failed to open %s, %w", p, err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("failed to stat %s, %w", p, err)
	}

	return o.Blobs.Put(ctx, key, contentType, f, stat.Size())
}
