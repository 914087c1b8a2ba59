package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/operator-framework/satplan/pkg/metrics"
	"github.com/operator-framework/satplan/pkg/version"
)

func init() {
	metrics.RegisterPlanner()
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		debug       bool
		showVersion bool
	)
	logger := logrus.New()

	cmd := &cobra.Command{
		Use:          "satplan",
		Short:        "Bounded planning as satisfiability",
		Long:         `Find the shortest sequence of actions that drives a described world from its initial state to a goal, by asking a SAT solver about one horizon at a time.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if debug {
				logger.SetLevel(logrus.DebugLevel)
			}
			logger.Debugf("log level %s", logger.Level)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				fmt.Fprint(cmd.OutOrStdout(), version.String())
				return nil
			}
			return cmd.Help()
		},
	}
	cmd.PersistentFlags().BoolVar(&debug, "debug", false, "use debug log level")
	cmd.Flags().BoolVar(&showVersion, "version", false, "displays the satplan version")

	cmd.AddCommand(newSolveCmd(logger), newExampleCmd(logger), newEncodeCmd())
	return cmd
}
