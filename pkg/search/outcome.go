package search

import (
	"fmt"
	"time"

	"github.com/operator-framework/satplan/pkg/plan"
	"github.com/operator-framework/satplan/pkg/solver"
)

// Status is the terminal state of a horizon search.
type Status int

const (
	// Found means a plan exists; Outcome.Horizon is the smallest
	// horizon at which the problem is satisfiable.
	Found Status = iota
	// NoPlanWithinBound means every horizon up to Outcome.Horizon is
	// unsatisfiable.
	NoPlanWithinBound
	// Indeterminate means the solver could not decide Outcome.Horizon.
	// It is not evidence that no plan exists.
	Indeterminate
)

func (s Status) String() string {
	switch s {
	case Found:
		return "found"
	case NoPlanWithinBound:
		return "no-plan-within-bound"
	case Indeterminate:
		return "indeterminate"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Attempt records one solver check of one horizon.
type Attempt struct {
	Horizon int
	// Try counts checks of the same horizon, starting at 0.
	Try        int
	Result     solver.Result
	Timeout    time.Duration
	Duration   time.Duration
	Symbols    int
	Assertions int
}

// Outcome is the result of a horizon search.
type Outcome struct {
	Status  Status
	Horizon int
	// Plan is set when Status is Found.
	Plan *plan.Plan
	// Reason explains an Indeterminate outcome.
	Reason string
	// Attempts lists the attempts the outcome was decided from, in
	// increasing horizon order.
	Attempts []Attempt
}

func (o *Outcome) String() string {
	switch o.Status {
	case Found:
		return fmt.Sprintf("found a plan of %d steps", o.Plan.Len())
	case NoPlanWithinBound:
		return fmt.Sprintf("no plan within %d steps", o.Horizon)
	case Indeterminate:
		return fmt.Sprintf("indeterminate at horizon %d: %s", o.Horizon, o.Reason)
	}
	return o.Status.String()
}
