package search

import (
	"context"
	"time"

	"github.com/operator-framework/satplan/pkg/domain"
)

// OutcomeError labels searches that failed with an error rather than
// reaching a terminal Status.
const OutcomeError = "error"

type InstrumentedPlanner struct {
	planner               Planner
	outcomeMetricsEmitter func(string, time.Duration)
	horizonMetricsEmitter func(int)
}

var _ Planner = &InstrumentedPlanner{}

func NewInstrumentedPlanner(planner Planner, outcomeMetricsEmitter func(string, time.Duration), horizonMetricsEmitter func(int)) *InstrumentedPlanner {
	return &InstrumentedPlanner{
		planner:               planner,
		outcomeMetricsEmitter: outcomeMetricsEmitter,
		horizonMetricsEmitter: horizonMetricsEmitter,
	}
}

func (ip *InstrumentedPlanner) Plan(ctx context.Context, p *domain.Problem) (*Outcome, error) {
	start := time.Now()
	out, err := ip.planner.Plan(ctx, p)
	if err != nil {
		ip.outcomeMetricsEmitter(OutcomeError, time.Since(start))
		return out, err
	}
	ip.outcomeMetricsEmitter(out.Status.String(), time.Since(start))
	if out.Status == Found {
		ip.horizonMetricsEmitter(out.Plan.Len())
	}
	return out, nil
}
