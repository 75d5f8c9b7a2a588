package feed

import (
	"context"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// swipe up past the threshold, i.e. "next"
var next = Gesture{StartY: 500, EndY: 400}

// swipe down past the threshold, i.e. "previous"
var prev = Gesture{StartY: 400, EndY: 500}

func waitForItems(t *testing.T, s *Session, n int) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(s.State().Items) >= n && !s.State().Fetching {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}

	t.Fatalf("session never reached %d items, has %d", n, len(s.State().Items))
}

func TestSessionLifecycle(t *testing.T) {
	viper.Set("feed.page_size", 3)

	t.Run("first page loads on creation", func(t *testing.T) {
		db := testDB(t)
		seedClips(t, db, 7)

		s, err := NewSession(context.Background(), NewPager(db))
		require.NoError(t, err)

		st := s.State()
		assert.Equal(t, PhaseReady, st.Phase)
		assert.Len(t, st.Items, 3)
		assert.Equal(t, 0, st.CurrentIndex)
		assert.True(t, st.HasMore)
	})

	t.Run("empty feed is reported as empty, not as an error", func(t *testing.T) {
		s, err := NewSession(context.Background(), NewPager(testDB(t)))
		require.NoError(t, err)

		st := s.State()
		assert.Equal(t, PhaseEmpty, st.Phase)
		assert.Empty(t, st.FetchError)
	})

	t.Run("swiping forward appends pages and stays in bounds", func(t *testing.T) {
		db := testDB(t)
		seedClips(t, db, 4)

		s, err := NewSession(context.Background(), NewPager(db))
		require.NoError(t, err)

		s.Gesture(context.Background(), next)
		waitForItems(t, s, 4)

		// Walk to the real end
		s.Gesture(context.Background(), next)
		s.Gesture(context.Background(), next)
		st := s.Gesture(context.Background(), next)

		assert.Equal(t, 3, st.CurrentIndex)
		assert.False(t, st.HasMore)

		// And one more past it changes nothing
		st = s.Gesture(context.Background(), next)
		assert.Equal(t, 3, st.CurrentIndex)
	})

	t.Run("previous clamps at the first item", func(t *testing.T) {
		db := testDB(t)
		seedClips(t, db, 2)

		s, err := NewSession(context.Background(), NewPager(db))
		require.NoError(t, err)

		st := s.Gesture(context.Background(), prev)
		assert.Equal(t, 0, st.CurrentIndex)

		st = s.Gesture(context.Background(), prev)
		assert.Equal(t, 0, st.CurrentIndex)
	})

	t.Run("a gesture at the threshold moves nothing", func(t *testing.T) {
		db := testDB(t)
		seedClips(t, db, 2)

		s, err := NewSession(context.Background(), NewPager(db))
		require.NoError(t, err)

		st := s.Gesture(context.Background(), Gesture{StartY: 450, EndY: 400})
		assert.Equal(t, 0, st.CurrentIndex)
	})

	t.Run("refresh resets the index, gestures never do", func(t *testing.T) {
		db := testDB(t)
		seedClips(t, db, 7)

		s, err := NewSession(context.Background(), NewPager(db))
		require.NoError(t, err)

		s.Gesture(context.Background(), next)
		waitForItems(t, s, 6)
		st := s.Gesture(context.Background(), next)
		assert.Equal(t, 2, st.CurrentIndex)

		st = s.Refresh(context.Background())
		assert.Equal(t, 0, st.CurrentIndex)
		assert.Len(t, st.Items, 3)
	})

	t.Run("a disposed session ignores everything", func(t *testing.T) {
		db := testDB(t)
		seedClips(t, db, 4)

		s, err := NewSession(context.Background(), NewPager(db))
		require.NoError(t, err)

		s.Dispose()

		st := s.Gesture(context.Background(), next)
		assert.Equal(t, 0, st.CurrentIndex)
		assert.Len(t, st.Items, 3)

		st = s.Refresh(context.Background())
		assert.Len(t, st.Items, 3)
	})
}

func TestRegistry(t *testing.T) {
	viper.Set("feed.page_size", 3)

	r := NewRegistry(time.Minute)
	defer r.Close()

	db := testDB(t)
	seedClips(t, db, 1)

	s, err := NewSession(context.Background(), NewPager(db))
	require.NoError(t, err)

	r.Add(s)

	got, ok := r.Get(s.ID)
	require.True(t, ok)
	assert.Same(t, s, got)

	assert.True(t, r.Remove(s.ID))
	_, ok = r.Get(s.ID)
	assert.False(t, ok)

	// Removing twice reports missing
	assert.False(t, r.Remove(s.ID))
}
