package pipeline

import (
	"time"

	"github.com/teranos/refresh/backup"
	"github.com/teranos/refresh/errors"
)

// State is a pipeline state. Stage states are named for the work done in them.
type State string

const (
	StateIdle                State = "idle"
	StateValidatingSource    State = "validating_source"
	StateBackingUp           State = "backing_up"
	StateExtracting          State = "extracting"
	StateVersioning          State = "versioning"
	StateValidatingStructure State = "validating_structure"
	StatePublishing          State = "publishing"
	StateCheckingIntegrity   State = "checking_integrity"
	StateCommitting          State = "committing"
	StateRollingBack         State = "rolling_back"
	StateSucceeded           State = "succeeded"
	StateFailed              State = "failed"
)

// Terminal reports whether no transition leaves s
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// Transition is one entry of a run's history
type Transition struct {
	State State
	At    time.Time
}

// Run is the record of one pipeline invocation. It lives only as long as
// the process; log output and the metrics textfile are its only trace.
type Run struct {
	ID     string
	Source string

	// State is the current state, terminal once the run returns
	State   State
	History []Transition

	// FailedStage and Err are set on failure
	FailedStage State
	Err         error

	// Backup is set once backing_up completed; rollback depends on it
	Backup      *backup.Record
	RolledBack  bool
	RollbackErr error

	Version  string
	Commit   string
	Warnings []error
	Started  time.Time
	Finished time.Time
}

func newRun(id, src string, now time.Time) *Run {
	return &Run{
		ID:      id,
		Source:  src,
		State:   StateIdle,
		History: []Transition{{State: StateIdle, At: now}},
		Started: now,
	}
}

func (r *Run) enter(s State, now time.Time) {
	r.State = s
	r.History = append(r.History, Transition{State: s, At: now})
}

// Succeeded reports whether the run ended in StateSucceeded
func (r *Run) Succeeded() bool {
	return r.State == StateSucceeded
}

// ExitCode is 0 on success and 1 on failure
func (r *Run) ExitCode() int {
	if r.Succeeded() {
		return 0
	}
	return 1
}

// Kind returns the error taxonomy name of the failure, "" on success
func (r *Run) Kind() string {
	return errors.KindOf(r.Err)
}

// Duration is the wall time of the run
func (r *Run) Duration() time.Duration {
	if r.Finished.IsZero() {
		return 0
	}
	return r.Finished.Sub(r.Started)
}

// States returns the visited states in order
func (r *Run) States() []State {
	out := make([]State, len(r.History))
	for i, t := range r.History {
		out[i] = t.State
	}
	return out
}

// StageDurations returns the time spent in each visited non-terminal state
func (r *Run) StageDurations() map[State]time.Duration {
	out := make(map[State]time.Duration, len(r.History))
	for i := 0; i+1 < len(r.History); i++ {
		s := r.History[i].State
		out[s] += r.History[i+1].At.Sub(r.History[i].At)
	}
	return out
}
