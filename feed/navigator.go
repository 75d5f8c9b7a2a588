package feed

// DefaultMinSwipeDistance is the vertical distance in pixels a swipe
// must strictly exceed before it counts as navigation. Anything at or
// below it is treated as an accidental tap.
const DefaultMinSwipeDistance = 50

// Gesture is one finished touch interaction. It's consumed once to
// compute the signed delta and then discarded.
type Gesture struct {
	StartY float64 `json:"startY"`
	EndY   float64 `json:"endY"`
}

func (g Gesture) delta() float64 {
	return g.StartY - g.EndY
}

// Action is what a gesture resolved to.
type Action int

const (
	ActionNone Action = iota
	ActionNext
	ActionPrev
)

// Navigator maps gestures onto index movement over a State. The zero
// value uses DefaultMinSwipeDistance.
type Navigator struct {
	MinSwipeDistance float64
}

func (n Navigator) threshold() float64 {
	if n.MinSwipeDistance > 0 {
		return n.MinSwipeDistance
	}
	return DefaultMinSwipeDistance
}

// Resolve turns a gesture into an action. An upward swipe (start below
// end on screen, positive delta) means "next".
func (n Navigator) Resolve(g Gesture) Action {
	d := g.delta()

	switch {
	case d > n.threshold():
		return ActionNext
	case d < -n.threshold():
		return ActionPrev
	default:
		return ActionNone
	}
}

// Apply moves the index, clamped at both ends. It reports whether the
// caller should append the next page instead: that's the case for
// "next" at the last loaded item when more items exist and no fetch is
// already running.
func (n Navigator) Apply(s *State, a Action) bool {
	switch a {
	case ActionNext:
		if s.CurrentIndex < len(s.Items)-1 {
			s.CurrentIndex++
			return false
		}

		return s.HasMore && !s.Fetching
	case ActionPrev:
		if s.CurrentIndex > 0 {
			s.CurrentIndex--
		}
	}

	return false
}

// NeedsPrefetch reports whether the lookahead dropped below two items
// and another page should be fetched regardless of the last gesture.
func (n Navigator) NeedsPrefetch(s *State) bool {
	return s.HasMore && !s.Fetching && s.CurrentIndex >= len(s.Items)-2
}
