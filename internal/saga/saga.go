// Package saga runs short ordered sequences of remote writes and reports
// exactly how far a failed sequence got. There is no automatic rollback:
// a failure after the first step is returned as a *PartialFailure carrying
// the message the user must see.
package saga

import (
	"context"
	"errors"
	"fmt"
)

// Step is one remote write in a sequence.
type Step struct {
	Name string
	Run  func(ctx context.Context) error
	// Partial is the user-facing message when this step fails after an
	// earlier step already succeeded.
	Partial string
}

// PartialFailure reports that at least one step committed before a later
// step failed.
type PartialFailure struct {
	Completed []string
	Failed    string
	Message   string
	Err       error
}

func (p *PartialFailure) Error() string {
	return fmt.Sprintf("partial failure at %s after %v: %v", p.Failed, p.Completed, p.Err)
}

func (p *PartialFailure) Unwrap() error { return p.Err }

// Run executes steps in order and stops at the first error. When the first
// step fails its error is returned unchanged because nothing happened.
func Run(ctx context.Context, steps ...Step) error {
	var completed []string
	for _, step := range steps {
		if err := step.Run(ctx); err != nil {
			if len(completed) == 0 {
				return err
			}
			msg := step.Partial
			if msg == "" {
				msg = fmt.Sprintf("%s failed after %s succeeded", step.Name, completed[len(completed)-1])
			}
			return &PartialFailure{
				Completed: completed,
				Failed:    step.Name,
				Message:   msg,
				Err:       err,
			}
		}
		completed = append(completed, step.Name)
	}
	return nil
}

// AsPartial reports whether err is a partial failure.
func AsPartial(err error) (*PartialFailure, bool) {
	var pf *PartialFailure
	if errors.As(err, &pf) {
		return pf, true
	}
	return nil, false
}
