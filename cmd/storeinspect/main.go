// Command storeinspect watches stores published by a devtools hub and turns
// recorded sessions into reports.
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "storeinspect",
		Short:         "Inspect furry-store state over the devtools websocket",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("log-json", false, "Log in JSON format")

	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newReportCmd())
	return cmd
}

// getLogger builds the command logger from the persistent flags.
func getLogger(cmd *cobra.Command) *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(cmd.ErrOrStderr())
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	if asJSON, _ := cmd.Flags().GetBool("log-json"); asJSON {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return logger.WithField("component", "storeinspect")
}
