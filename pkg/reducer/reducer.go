// Package reducer implements the pure update-state state machine: given
// a current per-series State and an Action emitted by the Applier, it
// computes the next State. It performs no I/O and holds no mutable
// fields of its own — every call is independent, which is what lets the
// Facade (pkg/jpdict) safely fold actions from several series in
// parallel without sharing a lock with the reducer itself.
package reducer

import "github.com/birchill/hikibiki-data/pkg/types"

// Status is the observable phase of a series' update lifecycle.
type Status int

const (
	StatusIdle Status = iota
	StatusChecking
	StatusDownloading
	StatusUpdatingDB
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusChecking:
		return "checking"
	case StatusDownloading:
		return "downloading"
	case StatusUpdatingDB:
		return "updatingdb"
	default:
		return "unknown"
	}
}

// Progress is the last-observed download progress tick.
type Progress struct {
	Loaded int
	Total  int
}

// State is the full per-series update state, including retry
// bookkeeping that sits alongside the observable status per §4.4.
type State struct {
	Status          Status
	LastCheck       *int64 // unix millis; nil means "never checked"
	DownloadVersion types.Version
	Progress        Progress
	RetryIntervalMs int
	RetryCount      int
}

// Idle returns the terminal/initial state: idle with no last check.
func Idle() State {
	return State{Status: StatusIdle}
}

// ActionKind names one of the seven transitions the Applier (or the
// jpdict Facade, for start and error) may emit.
type ActionKind string

const (
	ActionStart          ActionKind = "start"
	ActionStartDownload  ActionKind = "startdownload"
	ActionProgress       ActionKind = "progress"
	ActionFinishDownload ActionKind = "finishdownload"
	ActionFinishPatch    ActionKind = "finishpatch"
	ActionFinish         ActionKind = "finish"
	ActionError          ActionKind = "error"
)

// Action is the tagged union of events the reducer folds. Only the
// fields relevant to Kind are read.
type Action struct {
	Kind ActionKind

	Version   types.Version // startdownload, finishdownload, finishpatch
	Progress  Progress      // progress
	CheckDate *int64        // finish, error: set iff a patch was durably committed first
	Retriable bool          // error: whether to bump retry bookkeeping instead of going idle
}

// Reduce computes the next state for one action. It is a pure function:
// the same (state, action) pair always produces the same result, and it
// never blocks or performs I/O.
func Reduce(state State, action Action) State {
	switch action.Kind {
	case ActionStart:
		return State{Status: StatusChecking, LastCheck: state.LastCheck}

	case ActionStartDownload:
		return State{
			Status:          StatusDownloading,
			LastCheck:       state.LastCheck,
			DownloadVersion: action.Version,
		}

	case ActionProgress:
		next := state
		next.Progress = action.Progress
		return next

	case ActionFinishDownload:
		next := state
		next.Status = StatusUpdatingDB
		next.DownloadVersion = action.Version
		return next

	case ActionFinishPatch:
		// A successful write clears retry bookkeeping and waits for
		// either the next file's startdownload or a terminal finish.
		return State{
			Status:          StatusDownloading,
			LastCheck:       state.LastCheck,
			DownloadVersion: action.Version,
		}

	case ActionFinish:
		return State{Status: StatusIdle, LastCheck: action.CheckDate}

	case ActionError:
		if action.Retriable {
			next := state
			next.RetryCount++
			next.RetryIntervalMs = backoffMs(next.RetryCount)
			return next
		}
		return State{Status: StatusIdle, LastCheck: action.CheckDate}

	default:
		return state
	}
}

// backoffMs computes the lower bound of the randomized backoff window
// for attempt n (n >= 1): min(3000*2^(n-1), 12h), matching the retry
// controller's own schedule in pkg/retry so the two stay consistent
// even though only pkg/retry actually sleeps.
func backoffMs(attempt int) int {
	const (
		base   = 3000
		capMs  = 12 * 60 * 60 * 1000
	)
	ms := base
	for i := 1; i < attempt && ms < capMs; i++ {
		ms *= 2
	}
	if ms > capMs {
		ms = capMs
	}
	return ms
}
