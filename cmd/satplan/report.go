package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/itchyny/gojq"
	"github.com/pkg/errors"

	"github.com/operator-framework/satplan/pkg/domain"
	"github.com/operator-framework/satplan/pkg/plan"
	"github.com/operator-framework/satplan/pkg/search"
)

type attemptReport struct {
	Horizon    int    `json:"horizon"`
	Try        int    `json:"try"`
	Result     string `json:"result"`
	Timeout    string `json:"timeout,omitempty"`
	Duration   string `json:"duration"`
	Symbols    int    `json:"symbols"`
	Assertions int    `json:"assertions"`
}

type report struct {
	Domain      string          `json:"domain"`
	Fingerprint string          `json:"fingerprint,omitempty"`
	Status      string          `json:"status"`
	Horizon     int             `json:"horizon"`
	Reason      string          `json:"reason,omitempty"`
	Initial     domain.State    `json:"initial"`
	Steps       []plan.Record   `json:"steps,omitempty"`
	Attempts    []attemptReport `json:"attempts"`

	outcome *search.Outcome
}

func newReport(p *domain.Problem, out *search.Outcome, fingerprint string) *report {
	r := &report{
		Domain:      p.Domain.Name(),
		Fingerprint: fingerprint,
		Status:      out.Status.String(),
		Horizon:     out.Horizon,
		Reason:      out.Reason,
		Initial:     p.Init,
		outcome:     out,
	}
	if out.Plan != nil {
		r.Steps = out.Plan.Records()
	}
	for _, a := range out.Attempts {
		ar := attemptReport{
			Horizon:    a.Horizon,
			Try:        a.Try,
			Result:     a.Result.String(),
			Duration:   a.Duration.String(),
			Symbols:    a.Symbols,
			Assertions: a.Assertions,
		}
		if a.Timeout > 0 {
			ar.Timeout = a.Timeout.String()
		}
		r.Attempts = append(r.Attempts, ar)
	}
	return r
}

func (r *report) writeText(w io.Writer) error {
	fmt.Fprintf(w, "%s: %s\n", r.Domain, r.outcome)
	if r.outcome.Plan == nil {
		return nil
	}
	fmt.Fprintf(w, "initial: %s\n", r.Initial)
	for _, s := range r.outcome.Plan.Steps {
		fmt.Fprintf(w, "%d: %s -> %s\n", s.Index, s.Action, s.After)
	}
	return nil
}

func (r *report) writeJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// query runs a jq expression over the JSON form of r and prints every
// result on its own line.
func (r *report) query(w io.Writer, expr string) error {
	q, err := gojq.Parse(expr)
	if err != nil {
		return errors.Wrapf(err, "parsing query %q", expr)
	}
	raw, err := json.Marshal(r)
	if err != nil {
		return err
	}
	var input interface{}
	if err := json.Unmarshal(raw, &input); err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	iter := q.Run(input)
	for {
		v, ok := iter.Next()
		if !ok {
			return nil
		}
		if err, ok := v.(error); ok {
			return errors.Wrapf(err, "running query %q", expr)
		}
		if err := enc.Encode(v); err != nil {
			return err
		}
	}
}
