// internal/game/errors.go
package game

import (
	"errors"
	"fmt"
)

var (
	// ErrValidationRejected means the local playability check failed; no request was made.
	ErrValidationRejected = errors.New("move rejected locally")

	// ErrSyncSuspended means the synchronization budget is exhausted. Polling has
	// stopped and only a fresh Synchronizer (Table.Refresh) resumes it.
	ErrSyncSuspended = errors.New("synchronization suspended")

	// ErrSynchronizerClosed is returned by cycles requested after Close.
	ErrSynchronizerClosed = errors.New("synchronizer closed")

	// ErrStatusRegression marks a snapshot whose status goes backwards. It is logged
	// by the merge and never returned to callers.
	ErrStatusRegression = errors.New("status regression")

	// ErrUnknownStatus marks a snapshot with a status outside the known lifecycle.
	ErrUnknownStatus = errors.New("unknown session status")

	ErrCannotStart    = errors.New("this player may not start the session")
	ErrAlreadyStarted = errors.New("session start already completed")
	ErrNoPlayers      = errors.New("no known players to deal to")
)

// Protocol steps named in StepError.
const (
	StepStart   = "start"
	StepDeal    = "deal"
	StepSync    = "sync"
	StepSubmit  = "submit"
	StepDraw    = "draw"
	StepAdvance = "advance"
	StepLeave   = "leave"
)

// StepError attributes a protocol failure to the step that failed.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s step failed: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

func stepErr(step string, err error) error {
	return &StepError{Step: step, Err: err}
}

// FailedStep returns the step named by a StepError in err's chain, or "".
func FailedStep(err error) string {
	var se *StepError
	if errors.As(err, &se) {
		return se.Step
	}
	return ""
}
