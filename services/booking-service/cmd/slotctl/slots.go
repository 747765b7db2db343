package main

import (
	"fmt"
	"time"

	"github.com/golang-sql/civil"
	"github.com/md-rashed-zaman/consultbook/services/booking-service/internal/apperr"
	"github.com/md-rashed-zaman/consultbook/services/booking-service/internal/scheduling"
	"github.com/md-rashed-zaman/consultbook/services/booking-service/internal/tzconv"
	"github.com/spf13/cobra"
)

func newSlotsCmd() *cobra.Command {
	var resourcePath, bookingsPath, date, zone, now string
	cmd := &cobra.Command{
		Use:   "slots",
		Short: "List the free slots of a resource file on a date",
		Long: `List the slots a resource would offer on a date in its own time zone.

The resource file is JSON with open_hours entries such as
{"weekday": 1, "start": "09:00", "end": "17:00"}. The optional bookings file is a
JSON array of {"id", "start", "end"} objects with RFC 3339 instants.`,
		Example: `  slotctl slots --resource studio.json --date 2026-10-28
  slotctl slots --resource studio.json --date 2026-10-28 --tz America/New_York --bookings taken.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := civil.ParseDate(date)
			if err != nil {
				return &apperr.InvalidDateError{Value: date}
			}
			at := time.Now()
			if now != "" {
				if at, err = time.Parse(time.RFC3339, now); err != nil {
					return fmt.Errorf("invalid --now %q: want RFC 3339", now)
				}
			}
			if _, err := tzconv.LoadZone(zone); err != nil {
				return err
			}
			r, err := loadResource(resourcePath)
			if err != nil {
				return err
			}
			taken, err := loadBookings(bookingsPath, r.ID)
			if err != nil {
				return err
			}
			day, err := scheduling.SlotsFor(cmd.Context(), taken, r, scheduling.SlotsRequest{
				ResourceID:  r.ID,
				Date:        d,
				VisitorZone: zone,
			}, zone, at)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s on %s (bookable %s to %s, shown in %s)\n",
				r.ID, day.Date, day.Bounds.Min, day.Bounds.Max, day.VisitorZone)
			if len(day.Slots) == 0 {
				fmt.Fprintln(out, "no slots")
				return nil
			}
			for _, s := range day.Slots {
				fmt.Fprintf(out, "%s - %s  (%s UTC)\n",
					s.StartLocal.Format("2006-01-02 15:04"),
					s.EndLocal.Format("15:04"),
					s.StartUTC.Format("15:04"))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&resourcePath, "resource", "", "resource JSON file")
	cmd.Flags().StringVar(&bookingsPath, "bookings", "", "confirmed bookings JSON file")
	cmd.Flags().StringVar(&date, "date", "", "calendar date in the resource's zone (YYYY-MM-DD)")
	cmd.Flags().StringVar(&zone, "tz", "UTC", "visitor time zone")
	cmd.Flags().StringVar(&now, "now", "", "evaluate as of this instant (RFC 3339)")
	_ = cmd.MarkFlagRequired("resource")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}
