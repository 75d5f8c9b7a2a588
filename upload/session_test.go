package upload

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionTransitions(t *testing.T) {
	t.Run("happy path walks every checkpoint in order", func(t *testing.T) {
		s := NewSession()

		steps := []struct {
			stage    Stage
			progress int
		}{
			{StageInitializing, 0},
			{StageUploadingMedia, 30},
			{StageGeneratingThumbnail, 60},
			{StageUploadingThumbnail, 80},
			{StagePersistingRecord, 90},
			{StageComplete, 100},
		}

		last := 0
		for _, step := range steps {
			require.NoError(t, s.advance(step.stage, ""))

			snap := s.Snapshot()
			assert.Equal(t, step.progress, snap.Progress)
			assert.GreaterOrEqual(t, snap.Progress, last, "progress went backwards")
			last = snap.Progress
		}

		assert.True(t, s.Settled())
		assert.Equal(t, 100, s.Snapshot().Progress)
	})

	t.Run("stages can't be skipped or replayed", func(t *testing.T) {
		s := NewSession()

		assert.Error(t, s.advance(StageUploadingMedia, ""), "skipping initializing")

		require.NoError(t, s.advance(StageInitializing, ""))
		require.NoError(t, s.advance(StageUploadingMedia, ""))

		assert.Error(t, s.advance(StageUploadingMedia, ""), "replaying a stage")
		assert.Error(t, s.advance(StageInitializing, ""), "going backwards")
	})

	t.Run("failure settles the session and resets progress", func(t *testing.T) {
		s := NewSession()
		require.NoError(t, s.advance(StageInitializing, ""))
		require.NoError(t, s.advance(StageUploadingMedia, "Uploading video"))

		s.fail(errors.New("connection reset"))

		snap := s.Snapshot()
		assert.Equal(t, StageFailed.String(), snap.Stage)
		assert.Equal(t, 0, snap.Progress)
		assert.Equal(t, "connection reset", snap.Error)
		assert.True(t, s.Settled())

		// Settled sessions stay settled
		assert.Error(t, s.advance(StageGeneratingThumbnail, ""))
		s.fail(errors.New("second error"))
		assert.Equal(t, "connection reset", s.Snapshot().Error)
	})

	t.Run("a failed run never reports 100", func(t *testing.T) {
		s := NewSession()
		require.NoError(t, s.advance(StageInitializing, ""))
		require.NoError(t, s.advance(StageUploadingMedia, ""))
		require.NoError(t, s.advance(StageGeneratingThumbnail, ""))

		s.fail(errors.New("boom"))

		assert.Less(t, s.Snapshot().Progress, 100)
	})
}
