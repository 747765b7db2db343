package main

import (
	"fmt"
	"time"

	"github.com/md-rashed-zaman/consultbook/services/booking-service/internal/holidays"
	"github.com/spf13/cobra"
)

func newHolidaysCmd() *cobra.Command {
	var from, to int
	cmd := &cobra.Command{
		Use:   "holidays",
		Short: "List public holidays for a range of years",
		Example: `  slotctl holidays --from 2026
  slotctl holidays --from 2026 --to 2028`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if from == 0 {
				from = time.Now().Year()
			}
			if to == 0 {
				to = from
			}
			list, err := holidays.ForYears(from, to)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, h := range list {
				fmt.Fprintf(out, "%s  %-9s  %s\n", h.Date, h.Date.In(time.UTC).Weekday(), h.Name)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&from, "from", 0, "first year (default current year)")
	cmd.Flags().IntVar(&to, "to", 0, "last year (default --from)")
	return cmd
}
