// Package search drives the horizon loop: it encodes a problem at
// increasing horizons, asks a fresh solver session about each one, and
// stops at the first satisfiable horizon.
package search

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/operator-framework/satplan/pkg/domain"
	"github.com/operator-framework/satplan/pkg/encoding"
	"github.com/operator-framework/satplan/pkg/plan"
	"github.com/operator-framework/satplan/pkg/solver"
)

type Planner interface {
	Plan(ctx context.Context, p *domain.Problem) (*Outcome, error)
}

type planner struct {
	config  Config
	factory solver.Factory
	log     logrus.FieldLogger
	tracer  Tracer
}

var _ Planner = &planner{}

type Option func(p *planner) error

// WithConfig replaces the default configuration. The configuration is
// used as given and must pass Validate.
func WithConfig(c Config) Option {
	return func(p *planner) error {
		p.config = c
		return nil
	}
}

// WithSolverFactory overrides the backend named by the configuration.
func WithSolverFactory(f solver.Factory) Option {
	return func(p *planner) error {
		p.factory = f
		return nil
	}
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(p *planner) error {
		p.log = log
		return nil
	}
}

func WithTracer(t Tracer) Option {
	return func(p *planner) error {
		p.tracer = t
		return nil
	}
}

var defaults = []Option{
	func(p *planner) error {
		return p.config.Validate()
	},
	func(p *planner) error {
		if p.factory == nil {
			f, err := solver.NewFactory(p.config.Backend)
			if err != nil {
				return err
			}
			p.factory = f
		}
		return nil
	},
	func(p *planner) error {
		if p.log == nil {
			l := logrus.New()
			l.SetOutput(io.Discard)
			p.log = l
		}
		return nil
	},
	func(p *planner) error {
		if p.tracer == nil {
			p.tracer = DefaultTracer{}
		}
		return nil
	},
}

func New(options ...Option) (Planner, error) {
	p := planner{config: DefaultConfig()}
	for _, option := range append(options, defaults...) {
		if err := option(&p); err != nil {
			return nil, err
		}
	}
	return &p, nil
}

// horizonResult is the decision reached for one horizon after retries.
type horizonResult struct {
	horizon  int
	result   solver.Result
	plan     *plan.Plan
	reason   string
	attempts []Attempt
}

// Plan searches horizons from MinHorizon to MaxHorizon and returns the
// first that is satisfiable. An Unknown result stops the search with
// Indeterminate. Errors are reserved for defects and unusable solvers;
// running out of horizons is reported as NoPlanWithinBound.
func (s *planner) Plan(ctx context.Context, p *domain.Problem) (*Outcome, error) {
	log := s.log.WithField("domain", p.Domain.Name())
	log.WithFields(logrus.Fields{
		"min":         s.config.MinHorizon,
		"max":         s.config.MaxHorizon,
		"parallelism": s.config.Parallelism,
	}).Debug("starting horizon search")

	out := &Outcome{}
	for lo := s.config.MinHorizon; lo <= s.config.MaxHorizon; lo += s.config.Parallelism {
		hi := lo + s.config.Parallelism - 1
		if hi > s.config.MaxHorizon {
			hi = s.config.MaxHorizon
		}
		results, err := s.window(ctx, log, p, lo, hi)
		if err != nil {
			return nil, err
		}
		for _, r := range results {
			for _, a := range r.attempts {
				s.tracer.Trace(a)
			}
			out.Attempts = append(out.Attempts, r.attempts...)
			out.Horizon = r.horizon
			switch r.result {
			case solver.Satisfiable:
				out.Status = Found
				out.Plan = r.plan
				log.WithField("horizon", r.horizon).Info("found plan")
				return out, nil
			case solver.Unknown:
				out.Status = Indeterminate
				out.Reason = r.reason
				log.WithField("horizon", r.horizon).WithField("reason", r.reason).Info("search indeterminate")
				return out, nil
			}
		}
	}
	out.Status = NoPlanWithinBound
	log.WithField("horizon", out.Horizon).Info("no plan within bound")
	return out, nil
}

// window decides the horizons lo..hi, concurrently when there is more
// than one. Once a horizon is satisfiable, attempts at larger horizons
// in the window are cancelled; their results are never consulted or
// traced.
func (s *planner) window(ctx context.Context, log logrus.FieldLogger, p *domain.Problem, lo, hi int) ([]horizonResult, error) {
	results := make([]horizonResult, hi-lo+1)
	if lo == hi {
		r, err := s.horizon(ctx, log, p, lo)
		if err != nil {
			return nil, err
		}
		results[0] = r
		return results, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	cancels := make([]context.CancelFunc, len(results))
	contexts := make([]context.Context, len(results))
	for i := range results {
		contexts[i], cancels[i] = context.WithCancel(gctx)
	}
	defer func() {
		for _, cancel := range cancels {
			cancel()
		}
	}()
	for i := range results {
		i := i
		g.Go(func() error {
			r, err := s.horizon(contexts[i], log, p, lo+i)
			if err != nil {
				return err
			}
			results[i] = r
			if r.result == solver.Satisfiable {
				for _, cancel := range cancels[i+1:] {
					cancel()
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// horizon decides one horizon, retrying Unknown results with a doubled
// timeout while retries remain and ctx is live.
func (s *planner) horizon(ctx context.Context, log logrus.FieldLogger, p *domain.Problem, k int) (horizonResult, error) {
	r := horizonResult{horizon: k}
	timeout := s.config.AttemptTimeout
	for try := 0; ; try++ {
		a, pl, err := s.attempt(ctx, log, p, k, try, timeout)
		if err != nil {
			return r, err
		}
		r.attempts = append(r.attempts, a)
		r.result = a.Result
		r.plan = pl
		if a.Result != solver.Unknown {
			return r, nil
		}
		if err := ctx.Err(); err != nil {
			r.reason = fmt.Sprintf("search cancelled at horizon %d: %v", k, err)
			return r, nil
		}
		if try >= s.config.UnknownRetries || timeout == 0 {
			r.reason = fmt.Sprintf("solver returned unknown at horizon %d after %d tries, last timeout %s", k, try+1, timeout)
			return r, nil
		}
		timeout *= 2
	}
}

// attempt encodes p at horizon k into a fresh session and checks it.
// A satisfiable model is extracted and replayed against the domain
// before it is accepted.
func (s *planner) attempt(ctx context.Context, log logrus.FieldLogger, p *domain.Problem, k, try int, timeout time.Duration) (Attempt, *plan.Plan, error) {
	start := time.Now()
	a := Attempt{Horizon: k, Try: try, Timeout: timeout}

	sv, err := s.factory()
	if err != nil {
		return a, nil, err
	}
	enc, err := encoding.Encode(p, k, sv)
	if err != nil {
		return a, nil, err
	}
	a.Symbols, a.Assertions = enc.Symbols(), enc.Assertions()

	cctx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		cctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	a.Result, err = sv.Check(cctx)
	if err != nil {
		return a, nil, fmt.Errorf("checking horizon %d: %w", k, err)
	}

	var pl *plan.Plan
	if a.Result == solver.Satisfiable {
		pl, err = plan.Extract(enc, sv)
		if err != nil {
			return a, nil, err
		}
		if err := plan.Verify(p, pl); err != nil {
			return a, nil, &encoding.EncodingError{Horizon: k, Err: fmt.Errorf("extracted plan does not replay: %w", err)}
		}
	}
	a.Duration = time.Since(start)

	log.WithFields(logrus.Fields{
		"horizon":  k,
		"try":      try,
		"result":   a.Result.String(),
		"duration": a.Duration,
	}).Debug("attempt finished")
	return a, pl, nil
}
