// internal/app/system/dualwrite/dualwrite.go
//
// Package dualwrite runs related writes that must move together but
// cannot share a transaction (two collections, or a collection and the
// credential store). Steps run in order; a failure stops the sequence and
// nothing already applied is undone.
package dualwrite

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Step is one named write.
type Step struct {
	Name string
	Run  func(ctx context.Context) error
}

// PartialFailure reports that at least one step was applied before a later
// step failed. The applied writes are left in place.
type PartialFailure struct {
	CompletedStep string
	FailedStep    string
	Err           error
}

func (e *PartialFailure) Error() string {
	return fmt.Sprintf("partial write: %q applied, %q failed: %v", e.CompletedStep, e.FailedStep, e.Err)
}

func (e *PartialFailure) Unwrap() error { return e.Err }

// Run executes steps sequentially. A failure in the first step is returned
// wrapped with the step name; a failure after any step succeeded is
// returned as *PartialFailure.
func Run(ctx context.Context, steps ...Step) error {
	completed := ""
	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return fail(completed, s.Name, err)
		}
		if err := s.Run(ctx); err != nil {
			return fail(completed, s.Name, err)
		}
		completed = s.Name
	}
	return nil
}

// Fanout runs the first step, then every remaining step concurrently. It is
// used for cascades where the follow-up writes are independent of each
// other (for example clearing a reference on each former group member).
// Any follow-up failure is reported as *PartialFailure naming the head step.
func Fanout(ctx context.Context, head Step, followups ...Step) error {
	if err := head.Run(ctx); err != nil {
		return fmt.Errorf("%s: %w", head.Name, err)
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, s := range followups {
		s := s
		g.Go(func() error {
			if err := s.Run(gctx); err != nil {
				return &PartialFailure{CompletedStep: head.Name, FailedStep: s.Name, Err: err}
			}
			return nil
		})
	}
	return g.Wait()
}

func fail(completed, failed string, err error) error {
	if completed == "" {
		return fmt.Errorf("%s: %w", failed, err)
	}
	return &PartialFailure{CompletedStep: completed, FailedStep: failed, Err: err}
}
