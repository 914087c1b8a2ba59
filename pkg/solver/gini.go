package solver

import (
	"context"
	"io"
	"time"

	"github.com/go-air/gini"
	"github.com/go-air/gini/z"

	"github.com/operator-framework/satplan/pkg/formula"
)

const (
	satisfiable   = 1
	unsatisfiable = -1
)

// pollInterval bounds how long a cancelled context may go unnoticed
// while a background solve is running.
const pollInterval = 5 * time.Millisecond

type giniSolver struct {
	g      *gini.Gini
	dict   *circuit
	loaded bool
	result Result
}

func newGiniSolver() Solver {
	return &giniSolver{g: gini.New(), dict: newCircuit()}
}

func (s *giniSolver) Declare(name formula.Symbol, sort formula.Sort) error {
	if s.loaded {
		return errSealed
	}
	return s.dict.declare(name, sort)
}

func (s *giniSolver) Assert(f formula.Formula) error {
	if s.loaded {
		return errSealed
	}
	return s.dict.assert(f)
}

func (s *giniSolver) load() {
	if !s.loaded {
		s.dict.ToCnf(s.g)
		s.loaded = true
	}
}

// Check runs the search in a background goroutine and polls it, so
// that cancellation of ctx stops the search and yields Unknown.
func (s *giniSolver) Check(ctx context.Context) (result Result, err error) {
	defer recoverUnavailable("gini", &err)
	s.result = Unknown
	if err := ctx.Err(); err != nil {
		return Unknown, nil
	}
	s.load()

	solve := s.g.GoSolve()
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			solve.Stop()
			return Unknown, nil
		case <-ticker.C:
			if res, done := solve.Test(); done {
				switch res {
				case satisfiable:
					s.result = Satisfiable
				case unsatisfiable:
					s.result = Unsatisfiable
				}
				return s.result, nil
			}
		}
	}
}

func (s *giniSolver) Evaluate(name formula.Symbol) (formula.Value, error) {
	if s.result != Satisfiable {
		return formula.Value{}, errNoModel
	}
	return s.dict.evaluate(name, s.value)
}

// value reads m from the last model. Variables the solver never saw
// in a clause are unconstrained and read as false.
func (s *giniSolver) value(m z.Lit) bool {
	if m.Var() > s.g.MaxVar() {
		return !m.IsPos()
	}
	return s.g.Value(m)
}

func (s *giniSolver) WriteDIMACS(w io.Writer) error {
	s.load()
	return s.g.Write(w)
}
