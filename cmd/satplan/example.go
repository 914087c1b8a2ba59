package main

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/operator-framework/satplan/pkg/lib/signals"
	"github.com/operator-framework/satplan/pkg/scenarios"
)

func newExampleCmd(logger *logrus.Logger) *cobra.Command {
	o := &solveOptions{}
	cmd := &cobra.Command{
		Use:   "example [NAME]",
		Short: "Solve a built-in example problem, or list them",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				for _, name := range scenarios.Names() {
					fmt.Fprintln(cmd.OutOrStdout(), name)
				}
				return nil
			}
			if err := o.validate(); err != nil {
				return err
			}
			p, err := scenarios.Load(args[0])
			if err != nil {
				return err
			}
			ctx, stop := signals.Context(context.Background())
			defer stop()
			defer o.serveMetrics(logger)()
			return o.run(ctx, cmd, logger.WithField("example", args[0]), p, o.config, "")
		},
	}
	o.addFlags(cmd.Flags())
	return cmd
}
