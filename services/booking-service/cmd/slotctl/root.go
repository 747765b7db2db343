package main

import (
	"log/slog"
	"os"

	"github.com/md-rashed-zaman/consultbook/libs/config"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "slotctl",
		Short: "Inspect booking availability offline",
		Long: `slotctl evaluates the booking rules without a database.

It prints the holiday calendar, quotes a price from explicit percentages and
lists the slots a resource file would offer on a given date.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadDotEnv(); err != nil {
				return err
			}
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
			return nil
		},
	}
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug output to stderr")
	cmd.AddCommand(newHolidaysCmd(), newPriceCmd(), newSlotsCmd())
	return cmd
}
