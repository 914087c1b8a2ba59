package main

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/operator-framework/satplan/pkg/description"
	"github.com/operator-framework/satplan/pkg/domain"
	"github.com/operator-framework/satplan/pkg/encoding"
	"github.com/operator-framework/satplan/pkg/scenarios"
	"github.com/operator-framework/satplan/pkg/solver"
)

type encodeOptions struct {
	horizon int
	backend string
	example bool
	dimacs  bool
}

func newEncodeCmd() *cobra.Command {
	o := &encodeOptions{}
	cmd := &cobra.Command{
		Use:   "encode FILE",
		Short: "Write the CNF encoding of one horizon in DIMACS format",
		Long: `Encode the problem at a single horizon and write the resulting clauses
in DIMACS format, for use with an external SAT solver. With --example,
FILE names a built-in example instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !o.dimacs {
				return errors.New("--dimacs=false: DIMACS is the only output format")
			}
			var (
				p   *domain.Problem
				err error
			)
			if o.example {
				p, err = scenarios.Load(args[0])
			} else {
				var d *description.Description
				if d, err = description.Load(args[0]); err == nil {
					p, err = d.Problem()
				}
			}
			if err != nil {
				return err
			}

			s, err := solver.New(o.backend)
			if err != nil {
				return err
			}
			if _, err := encoding.Encode(p, o.horizon, s); err != nil {
				return errors.Wrapf(err, "encoding horizon %d", o.horizon)
			}
			return s.WriteDIMACS(cmd.OutOrStdout())
		},
	}
	cmd.Flags().IntVar(&o.horizon, "horizon", 1, "number of steps to encode")
	cmd.Flags().StringVar(&o.backend, "solver", solver.DefaultBackend, "solver backend whose circuit is written")
	cmd.Flags().BoolVar(&o.example, "example", false, "treat FILE as the name of a built-in example")
	cmd.Flags().BoolVar(&o.dimacs, "dimacs", true, "write DIMACS CNF, the only supported format")
	return cmd
}
