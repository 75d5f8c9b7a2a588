package feed

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Session pairs one consumer's navigation state with its own pager.
// All methods are safe for concurrent use; the mutex also serializes
// page fetches so cursor continuation stays in order.
type Session struct {
	ID string

	mu     sync.Mutex
	state  State
	cursor string
	pager  *Pager
	nav    Navigator

	// Cleared on dispose. A fetch that resolves late checks it before
	// touching the state, so a torn-down session never mutates.
	alive bool
}

// NewSession loads the first page and returns a navigable session.
func NewSession(ctx context.Context, pager *Pager) (*Session, error) {
	s := &Session{
		ID:    uuid.NewString(),
		pager: pager,
		alive: true,
	}
	s.state.Phase = PhaseLoading

	page, err := pager.LoadPage(ctx, "")
	if err != nil {
		return nil, err
	}

	s.state.reset(page)
	s.cursor = page.NextCursor

	return s, nil
}

// State returns a snapshot of the current navigation state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Gesture consumes one swipe sample and returns the state after it.
// A "next" at the boundary appends the following page instead of
// moving; near the end a prefetch is kicked off in the background so
// there are always about two items of lookahead.
func (s *Session) Gesture(ctx context.Context, g Gesture) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.alive {
		return s.state
	}

	if s.nav.Apply(&s.state, s.nav.Resolve(g)) {
		s.loadMoreLocked(ctx)
	}

	if s.nav.NeedsPrefetch(&s.state) {
		s.prefetchLocked()
	}

	return s.state
}

// Refresh drops the loaded result set and starts over from the first
// page. This is the retry affordance after a failed fetch and the only
// operation that resets the index.
func (s *Session) Refresh(ctx context.Context) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.alive {
		return s.state
	}

	page, err := s.pager.LoadPage(ctx, "")
	if err != nil {
		if !errors.Is(err, ErrFetchInProgress) {
			s.state.Phase = PhaseFailed
			s.state.FetchError = err.Error()
		}
		return s.state
	}

	s.state.reset(page)
	s.cursor = page.NextCursor

	return s.state
}

// Dispose marks the session dead. Late-resolving fetches become no-ops.
func (s *Session) Dispose() {
	s.mu.Lock()
	s.alive = false
	s.mu.Unlock()
}

func (s *Session) loadMoreLocked(ctx context.Context) {
	page, err := s.pager.LoadPage(ctx, s.cursor)
	if err != nil {
		if !errors.Is(err, ErrFetchInProgress) {
			s.state.FetchError = err.Error()
			zap.L().Error("Feed append failed", zap.String("session_id", s.ID), zap.Error(err))
		}
		return
	}

	s.state.append(page)
	s.cursor = page.NextCursor
}

// prefetchLocked fetches the next page without blocking the gesture
// that triggered it.
func (s *Session) prefetchLocked() {
	s.state.Fetching = true
	cur := s.cursor

	go func() {
		page, err := s.pager.LoadPage(context.Background(), cur)

		s.mu.Lock()
		defer s.mu.Unlock()

		s.state.Fetching = false

		if !s.alive {
			return
		}

		if err != nil {
			if !errors.Is(err, ErrFetchInProgress) {
				s.state.FetchError = err.Error()
				zap.L().Error("Feed prefetch failed", zap.String("session_id", s.ID), zap.Error(err))
			}
			return
		}

		s.state.append(page)
		s.cursor = page.NextCursor
	}()
}
