package search

import (
	"fmt"
	"io"
)

// Tracer observes every attempt made by a Planner. Planners with
// Parallelism above one call Trace from several goroutines.
type Tracer interface {
	Trace(a Attempt)
}

type DefaultTracer struct{}

func (DefaultTracer) Trace(_ Attempt) {
}

// TracerFunc adapts a function to the Tracer interface.
type TracerFunc func(a Attempt)

func (f TracerFunc) Trace(a Attempt) {
	f(a)
}

type LoggingTracer struct {
	Writer io.Writer
}

func (t LoggingTracer) Trace(a Attempt) {
	fmt.Fprintf(t.Writer, "---\nHorizon: %d\n", a.Horizon)
	fmt.Fprintf(t.Writer, "Try: %d\n", a.Try)
	fmt.Fprintf(t.Writer, "Result: %s\n", a.Result)
	fmt.Fprintf(t.Writer, "Encoding: %d symbols, %d assertions\n", a.Symbols, a.Assertions)
}

// Tracers fans an attempt out to several tracers in order.
type Tracers []Tracer

func (ts Tracers) Trace(a Attempt) {
	for _, t := range ts {
		t.Trace(a)
	}
}
