// Package upload drives the whole clip ingest pipeline: media bytes to
// the blob store, thumbnail derivation and upload, then one record
// write at the very end.
package upload

import (
	"fmt"
	"sync"
)

// Stage is one step of the upload pipeline. Stages only ever move
// forward, except that any unsettled stage may fail.
type Stage int

const (
	StageIdle Stage = iota
	StageInitializing
	StageUploadingMedia
	StageGeneratingThumbnail
	StageUploadingThumbnail
	StagePersistingRecord
	StageComplete
	StageFailed
)

var stageNames = map[Stage]string{
	StageIdle:                "idle",
	StageInitializing:        "initializing",
	StageUploadingMedia:      "uploading_media",
	StageGeneratingThumbnail: "generating_thumbnail",
	StageUploadingThumbnail:  "uploading_thumbnail",
	StagePersistingRecord:    "persisting_record",
	StageComplete:            "complete",
	StageFailed:              "failed",
}

func (s Stage) String() string {
	if n, ok := stageNames[s]; ok {
		return n
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// Progress checkpoint reported when a stage is entered. Entering the
// next stage doubles as "previous stage finished", which is what makes
// the sequence reproducible.
var checkpoints = map[Stage]int{
	StageIdle:                0,
	StageInitializing:        0,
	StageUploadingMedia:      30,
	StageGeneratingThumbnail: 60,
	StageUploadingThumbnail:  80,
	StagePersistingRecord:    90,
	StageComplete:            100,
}

// The only legal forward transitions. Failed is reachable from every
// unsettled stage and is handled separately.
var transitions = map[Stage]Stage{
	StageIdle:                StageInitializing,
	StageInitializing:        StageUploadingMedia,
	StageUploadingMedia:      StageGeneratingThumbnail,
	StageGeneratingThumbnail: StageUploadingThumbnail,
	StageUploadingThumbnail:  StagePersistingRecord,
	StagePersistingRecord:    StageComplete,
}

// Session tracks one in-flight upload. It's owned by the orchestrator,
// everything else only ever sees snapshots of it.
type Session struct {
	mu       sync.Mutex
	stage    Stage
	progress int
	status   string
	errMsg   string
}

// Snapshot is a read-only copy of the session state, safe to hand out.
type Snapshot struct {
	Stage    string `json:"stage"`
	Progress int    `json:"progress"`
	Status   string `json:"status,omitempty"`
	Error    string `json:"error,omitempty"`
}

func NewSession() *Session {
	return &Session{stage: StageIdle}
}

// advance moves the session to next if the transition table allows it.
// Progress never decreases, even if a checkpoint would say otherwise.
func (s *Session) advance(next Stage, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if transitions[s.stage] != next {
		return fmt.Errorf("illegal transition %s -> %s", s.stage, next)
	}

	s.stage = next
	s.status = status

	if p := checkpoints[next]; p > s.progress {
		s.progress = p
	}

	return nil
}

// fail settles the session with the triggering error. Progress resets
// to not-busy so a retry starts from scratch.
func (s *Session) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stage == StageComplete || s.stage == StageFailed {
		return
	}

	s.stage = StageFailed
	s.progress = 0
	s.status = ""
	s.errMsg = err.Error()
}

// Settled reports whether the pipeline reached a terminal stage.
func (s *Session) Settled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stage == StageComplete || s.stage == StageFailed
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Snapshot{
		Stage:    s.stage.String(),
		Progress: s.progress,
		Status:   s.status,
		Error:    s.errMsg,
	}
}
