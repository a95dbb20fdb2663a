// Package clix implements the /bc CLI command (spec.md §6): a
// non-interactive human-readable summary of device state. Grounded on the
// teacher's cmd/cobra_cli.go cobra.Command idiom.
package clix

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"betterclaw/internal/devicectx"
)

// NewCommand builds the "bc" cobra command.
func NewCommand(ctxStore *devicectx.Store) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bc",
		Short: "Print a summary of the current device context",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printSummary(cmd.OutOrStdout(), ctxStore)
		},
	}
	return cmd
}

func printSummary(w io.Writer, ctxStore *devicectx.Store) error {
	ctx := ctxStore.Get()

	battery := "unknown"
	if ctx.Device.Battery != nil {
		battery = fmt.Sprintf("%.0f%%", ctx.Device.Battery.Level*100)
	}

	location := "unknown"
	if ctx.Device.Location != nil {
		if ctx.Device.Location.Label != "" {
			location = ctx.Device.Location.Label
		} else {
			location = fmt.Sprintf("%.4f,%.4f", ctx.Device.Location.Latitude, ctx.Device.Location.Longitude)
		}
	}

	zone := "none"
	if ctx.Activity.CurrentZone != "" {
		since := time.Duration(0)
		if ctx.Activity.ZoneEnteredAt > 0 {
			since = time.Since(time.Unix(int64(ctx.Activity.ZoneEnteredAt), 0)).Round(time.Minute)
		}
		zone = fmt.Sprintf("%s (%s)", ctx.Activity.CurrentZone, since)
	}

	steps := "0"
	if ctx.Device.Health != nil && ctx.Device.Health.StepsToday != nil {
		steps = fmt.Sprintf("%.0f", *ctx.Device.Health.StepsToday)
	}

	_, err := fmt.Fprintf(w,
		"Battery: %s\nLocation: %s\nZone: %s\nSteps today: %s\nEvents today: %d\nPushes today: %d\n",
		battery, location, zone, steps, ctx.Meta.EventsToday, ctx.Meta.PushesToday,
	)
	return err
}
