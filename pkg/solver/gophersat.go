package solver

import (
	"bufio"
	"context"
	"fmt"
	"io"

	gophersat "github.com/crillab/gophersat/solver"
	"github.com/go-air/gini/z"

	"github.com/operator-framework/satplan/pkg/formula"
)

// clauses collects the CNF taught by a circuit as DIMACS integers.
type clauses struct {
	cnf    [][]int
	buf    []int
	maxVar int
}

func (c *clauses) Add(m z.Lit) {
	if m == z.LitNull {
		c.cnf = append(c.cnf, c.buf)
		c.buf = nil
		return
	}
	d := m.Dimacs()
	if v := int(m.Var()); v > c.maxVar {
		c.maxVar = v
	}
	c.buf = append(c.buf, d)
}

// gophersatSolver flattens the circuit to clauses and hands them to
// the CDCL solver of github.com/crillab/gophersat. The underlying
// Solve cannot be interrupted: when ctx expires first, Check returns
// Unknown and the search finishes in the background.
type gophersatSolver struct {
	dict   *circuit
	cnf    *clauses
	model  []bool
	result Result
}

func newGophersatSolver() Solver {
	return &gophersatSolver{dict: newCircuit()}
}

func (s *gophersatSolver) Declare(name formula.Symbol, sort formula.Sort) error {
	if s.cnf != nil {
		return errSealed
	}
	return s.dict.declare(name, sort)
}

func (s *gophersatSolver) Assert(f formula.Formula) error {
	if s.cnf != nil {
		return errSealed
	}
	return s.dict.assert(f)
}

func (s *gophersatSolver) load() {
	if s.cnf == nil {
		s.cnf = &clauses{}
		s.dict.ToCnf(s.cnf)
	}
}

type gophersatOutcome struct {
	status gophersat.Status
	model  []bool
	err    error
}

func (s *gophersatSolver) Check(ctx context.Context) (result Result, err error) {
	defer recoverUnavailable("gophersat", &err)
	s.result, s.model = Unknown, nil
	if err := ctx.Err(); err != nil {
		return Unknown, nil
	}
	s.load()

	pb := gophersat.ParseSlice(s.cnf.cnf)
	done := make(chan gophersatOutcome, 1)
	go func() {
		var out gophersatOutcome
		defer func() {
			if r := recover(); r != nil {
				out.err = fmt.Errorf("%w: gophersat backend panicked: %v", ErrUnavailable, r)
			}
			done <- out
		}()
		sv := gophersat.New(pb)
		out.status = sv.Solve()
		if out.status == gophersat.Sat {
			out.model = sv.Model()
		}
	}()

	select {
	case <-ctx.Done():
		return Unknown, nil
	case out := <-done:
		if out.err != nil {
			return Unknown, out.err
		}
		switch out.status {
		case gophersat.Sat:
			s.result, s.model = Satisfiable, out.model
		case gophersat.Unsat:
			s.result = Unsatisfiable
		}
		return s.result, nil
	}
}

func (s *gophersatSolver) Evaluate(name formula.Symbol) (formula.Value, error) {
	if s.result != Satisfiable {
		return formula.Value{}, errNoModel
	}
	return s.dict.evaluate(name, s.value)
}

// value reads m from the model, where model[i] binds variable i+1.
// Variables beyond the model are unconstrained and read as false.
func (s *gophersatSolver) value(m z.Lit) bool {
	i := int(m.Var()) - 1
	if i < 0 || i >= len(s.model) {
		return !m.IsPos()
	}
	return s.model[i] == m.IsPos()
}

// WriteDIMACS prints the collected clauses. gophersat only parses
// DIMACS, so the header and clause lines are formatted here.
func (s *gophersatSolver) WriteDIMACS(w io.Writer) error {
	s.load()
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "p cnf %d %d\n", s.cnf.maxVar, len(s.cnf.cnf))
	for _, clause := range s.cnf.cnf {
		for _, d := range clause {
			fmt.Fprintf(bw, "%d ", d)
		}
		fmt.Fprintln(bw, "0")
	}
	return bw.Flush()
}
