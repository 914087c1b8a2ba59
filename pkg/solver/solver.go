// Package solver exposes finite-domain satisfiability sessions. A
// session accepts symbol declarations and formula assertions, decides
// them under a context, and reads back a model.
package solver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/operator-framework/satplan/pkg/formula"
)

// Result is the outcome of a Check.
type Result int

const (
	Unknown Result = iota
	Satisfiable
	Unsatisfiable
)

func (r Result) String() string {
	switch r {
	case Satisfiable:
		return "sat"
	case Unsatisfiable:
		return "unsat"
	}
	return "unknown"
}

// ErrUnavailable is returned when a backend cannot be created or stops
// working. It is not recoverable by retrying the same backend.
var ErrUnavailable = errors.New("solver unavailable")

// Solver is a single satisfiability session. Symbols must be declared
// before they are referenced. Evaluate is defined only after a Check
// that returned Satisfiable. Sessions are not safe for concurrent use.
type Solver interface {
	Declare(name formula.Symbol, sort formula.Sort) error
	Assert(f formula.Formula) error
	Check(ctx context.Context) (Result, error)
	Evaluate(name formula.Symbol) (formula.Value, error)
	// WriteDIMACS writes the clauses of the session in DIMACS CNF.
	WriteDIMACS(w io.Writer) error
}

// Factory creates fresh sessions.
type Factory func() (Solver, error)

// DefaultBackend names the backend used when none is configured.
const DefaultBackend = "gini"

var backends = map[string]func() Solver{
	"gini":      newGiniSolver,
	"gophersat": newGophersatSolver,
}

// Backends lists the available backend names in sorted order.
func Backends() []string {
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New returns a fresh session of the named backend. An empty name
// selects DefaultBackend.
func New(backend string) (Solver, error) {
	if backend == "" {
		backend = DefaultBackend
	}
	mk, ok := backends[backend]
	if !ok {
		return nil, fmt.Errorf("%w: unknown backend %q", ErrUnavailable, backend)
	}
	return mk(), nil
}

// NewFactory returns a Factory for the named backend, failing early if
// the backend does not exist.
func NewFactory(backend string) (Factory, error) {
	if _, err := New(backend); err != nil {
		return nil, err
	}
	return func() (Solver, error) {
		return New(backend)
	}, nil
}

// DuplicateSymbol is returned when a symbol is declared twice.
type DuplicateSymbol formula.Symbol

func (e DuplicateSymbol) Error() string {
	return fmt.Sprintf("duplicate symbol %q", formula.Symbol(e))
}

// UndeclaredSymbol is returned when a formula or evaluation refers to
// a symbol that was never declared.
type UndeclaredSymbol formula.Symbol

func (e UndeclaredSymbol) Error() string {
	return fmt.Sprintf("undeclared symbol %q", formula.Symbol(e))
}

var errSealed = errors.New("session already checked; declarations and assertions are closed")

// errNoModel is returned by Evaluate when the last Check was not
// satisfiable.
var errNoModel = errors.New("no model available")

// recoverUnavailable converts a backend panic into ErrUnavailable.
func recoverUnavailable(backend string, err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("%w: %s backend panicked: %v", ErrUnavailable, backend, r)
	}
}
