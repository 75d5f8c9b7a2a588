package feed

import "clipfeed/clip-api/model"

// Phase tells a consumer apart "nothing loaded yet", "confirmed
// empty", "usable" and "the fetch itself broke". Empty and Failed are
// deliberately distinct so the UI can offer a retry only where it
// makes sense.
type Phase string

const (
	PhaseLoading Phase = "loading"
	PhaseReady   Phase = "ready"
	PhaseEmpty   Phase = "empty"
	PhaseFailed  Phase = "failed"
)

// State is the view-owned navigation state over the loaded feed.
// Whenever Items is non-empty, 0 <= CurrentIndex < len(Items) holds.
type State struct {
	Items        []model.VideoAsset `json:"items"`
	CurrentIndex int                `json:"current_index"`
	HasMore      bool               `json:"has_more"`
	Fetching     bool               `json:"fetching"`
	Phase        Phase              `json:"phase"`

	// Set when an append fetch failed; cleared by the next successful
	// one. The already loaded items stay navigable.
	FetchError string `json:"fetch_error,omitempty"`
}

// Current returns the record the cursor sits on.
func (s *State) Current() (model.VideoAsset, bool) {
	if len(s.Items) == 0 {
		return model.VideoAsset{}, false
	}
	return s.Items[s.CurrentIndex], true
}

// append extends the loaded items without touching CurrentIndex. The
// index only ever resets when the underlying result set changes
// identity, never on a pure append.
func (s *State) append(p Page) {
	s.Items = append(s.Items, p.Items...)
	s.HasMore = p.HasMore
	s.FetchError = ""

	if len(s.Items) == 0 {
		s.Phase = PhaseEmpty
	} else {
		s.Phase = PhaseReady
	}
}

// reset replaces the result set and puts the cursor back at the start.
func (s *State) reset(p Page) {
	s.Items = p.Items
	s.CurrentIndex = 0
	s.HasMore = p.HasMore
	s.FetchError = ""

	if len(s.Items) == 0 {
		s.Phase = PhaseEmpty
	} else {
		s.Phase = PhaseReady
	}
}
