package main

import (
	"context"
	"net/http"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/operator-framework/satplan/pkg/description"
	"github.com/operator-framework/satplan/pkg/domain"
	"github.com/operator-framework/satplan/pkg/lib/profile"
	"github.com/operator-framework/satplan/pkg/lib/signals"
	"github.com/operator-framework/satplan/pkg/metrics"
	"github.com/operator-framework/satplan/pkg/search"
)

type solveOptions struct {
	config      search.Config
	output      string
	query       string
	trace       bool
	metricsAddr string
	profiling   bool
	watch       bool
}

func (o *solveOptions) addFlags(fs *pflag.FlagSet) {
	o.config = search.DefaultConfig()
	o.config.AddFlags(fs)
	fs.StringVarP(&o.output, "output", "o", "text", "output format, one of text or json")
	fs.StringVar(&o.query, "query", "", "jq expression applied to the json output")
	fs.BoolVar(&o.trace, "trace", false, "print every solver attempt to stderr")
	fs.StringVar(&o.metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address while solving")
	fs.BoolVar(&o.profiling, "profiling", false, "also serve pprof endpoints to loopback callers on the metrics address")
}

// effective layers the flags the user set over the document's search
// block, which already carries the defaults for anything it leaves out.
func (o *solveOptions) effective(fs *pflag.FlagSet, fromDocument search.Config) search.Config {
	c := fromDocument
	fs.Visit(func(fl *pflag.Flag) {
		switch fl.Name {
		case "min-horizon":
			c.MinHorizon = o.config.MinHorizon
		case "max-horizon":
			c.MaxHorizon = o.config.MaxHorizon
		case "attempt-timeout":
			c.AttemptTimeout = o.config.AttemptTimeout
		case "unknown-retries":
			c.UnknownRetries = o.config.UnknownRetries
		case "parallelism":
			c.Parallelism = o.config.Parallelism
		case "solver":
			c.Backend = o.config.Backend
		}
	})
	return c
}

func newSolveCmd(logger *logrus.Logger) *cobra.Command {
	o := &solveOptions{}
	cmd := &cobra.Command{
		Use:   "solve FILE",
		Short: "Search for a plan for the problem described in a YAML or JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.validate(); err != nil {
				return err
			}
			ctx, stop := signals.Context(context.Background())
			defer stop()
			defer o.serveMetrics(logger)()

			path := args[0]
			solve := func() error {
				d, err := description.Load(path)
				if err != nil {
					return err
				}
				fingerprint, err := d.Fingerprint()
				if err != nil {
					return err
				}
				p, err := d.Problem()
				if err != nil {
					return errors.Wrapf(err, "building problem from %s", path)
				}
				fromDocument, err := d.Search.Config()
				if err != nil {
					return err
				}
				log := logger.WithField("fingerprint", fingerprint)
				return o.run(ctx, cmd, log, p, o.effective(cmd.Flags(), fromDocument), fingerprint)
			}
			if o.watch {
				return watch(ctx, logger.WithField("file", path), path, solve)
			}
			return solve()
		},
	}
	o.addFlags(cmd.Flags())
	cmd.Flags().BoolVarP(&o.watch, "watch", "w", false, "solve again every time the file is written, until interrupted")
	return cmd
}

func (o *solveOptions) validate() error {
	if o.output != "text" && o.output != "json" {
		return errors.Errorf("unknown output format %q", o.output)
	}
	return nil
}

// serveMetrics starts the metrics endpoint when an address is set and
// returns a function that shuts it down.
func (o *solveOptions) serveMetrics(log logrus.FieldLogger) func() {
	if o.metricsAddr == "" {
		return func() {}
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if o.profiling {
		profile.RegisterHandlers(mux, profile.LocalOnly())
	}
	srv := &http.Server{Addr: o.metricsAddr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Warn("metrics server stopped")
		}
	}()
	log.WithField("addr", o.metricsAddr).Info("serving metrics")
	return func() {
		srv.Close()
	}
}

func (o *solveOptions) run(ctx context.Context, cmd *cobra.Command, log logrus.FieldLogger, p *domain.Problem, c search.Config, fingerprint string) error {
	tracers := search.Tracers{search.TracerFunc(func(a search.Attempt) {
		metrics.EmitAttempt(a.Result.String(), a.Duration)
	})}
	if o.trace {
		tracers = append(tracers, search.LoggingTracer{Writer: cmd.ErrOrStderr()})
	}
	planner, err := search.New(
		search.WithConfig(c),
		search.WithLogger(log),
		search.WithTracer(tracers),
	)
	if err != nil {
		return err
	}
	planner = search.NewInstrumentedPlanner(planner, metrics.EmitSearch, metrics.EmitPlanHorizon)

	out, err := planner.Plan(ctx, p)
	if err != nil {
		return err
	}
	r := newReport(p, out, fingerprint)
	switch {
	case o.query != "":
		return r.query(cmd.OutOrStdout(), o.query)
	case o.output == "json":
		return r.writeJSON(cmd.OutOrStdout())
	}
	return r.writeText(cmd.OutOrStdout())
}
