package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli"

	"github.com/dokzlo13/smartpanel/internal/app"
	"github.com/dokzlo13/smartpanel/internal/ledger"
	"github.com/dokzlo13/smartpanel/internal/scheduler"
)

var historyFlags = []cli.Flag{
	cli.IntFlag{
		Name:  "limit, n",
		Value: 20,
		Usage: "number of entries to show",
	},
	cli.StringFlag{
		Name:  "event, e",
		Usage: "only show one event type (e.g. timer_fired, actuation_failed)",
	},
}

func timers(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	inspector := app.NewInspector(cfg)
	defer inspector.Close()

	entries, err := inspector.Timers()
	if err != nil {
		return cli.NewExitError("failed to read timers: "+err.Error(), 1)
	}

	clock, err := scheduler.NewSystemClock(cfg.Scheduler.Timezone)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}

	fmt.Print(scheduler.FormatTimers(entries, clock.Now()))
	return nil
}

func appliances(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tROOM\tTRANSPORT\tTIMERS")
	for _, a := range app.NewInspector(cfg).Appliances() {
		availability := "unavailable"
		if a.Schedulable {
			availability = "available"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", a.ID, a.Name, dash(a.Room), a.Transport, availability)
	}
	return w.Flush()
}

func history(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	inspector := app.NewInspector(cfg)
	defer inspector.Close()

	entries, err := inspector.History(ctx.Args().First(), ledger.EventType(ctx.String("event")), ctx.Int("limit"))
	if err != nil {
		return cli.NewExitError("failed to read history: "+err.Error(), 1)
	}
	if len(entries) == 0 {
		fmt.Println("No events recorded")
		return nil
	}
	return printHistory(os.Stdout, entries)
}

func printHistory(out io.Writer, entries []*ledger.Entry) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tAPPLIANCE\tEVENT\tSOURCE\tDETAILS")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			e.Timestamp.Local().Format(time.DateTime),
			dash(e.ApplianceID),
			e.EventType,
			dash(e.Source),
			formatPayload(e.Payload),
		)
	}
	return w.Flush()
}

// formatPayload renders the payload as sorted key=value pairs.
func formatPayload(payload map[string]any) string {
	if len(payload) == 0 {
		return "-"
	}
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, payload[k]))
	}
	return strings.Join(parts, " ")
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
