package command

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/shopmate-go/internal/cli/connection"
	"github.com/yndnr/shopmate-go/internal/cli/output"
)

// SystemCommand returns the system subcommand group.
func SystemCommand() *cli.Command {
	return &cli.Command{
		Name:    "system",
		Aliases: []string{"sys"},
		Usage:   "Server health and persistence administration",
		Subcommands: []*cli.Command{
			{
				Name:   "health",
				Usage:  "Check that the server is up",
				Action: systemHealth,
			},
			{
				Name:   "ready",
				Usage:  "Check the cache and durable store connections",
				Action: systemReady,
			},
			{
				Name:   "worker",
				Usage:  "Show persistence worker state and counters",
				Action: systemWorker,
			},
			{
				Name:  "sweep",
				Usage: "Run the orphan sweeper now",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "last",
						Usage: "Show the last sweep instead of starting one",
					},
				},
				Action: systemSweep,
			},
		},
	}
}

func systemHealth(c *cli.Context) error {
	client, flags, err := newClient(c)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Context, flags.Timeout)
	defer cancel()

	resp, err := client.Get(ctx, "/health")
	if err != nil {
		return fmt.Errorf("server unreachable: %w", err)
	}

	var result map[string]any
	if err := connection.ParseResponse(resp, &result); err != nil {
		return err
	}

	if flags.Output != output.FormatTable {
		return render(c, flags, result)
	}
	fmt.Fprintf(c.App.Writer, "Server is %v\n", result["status"])
	fmt.Fprintf(c.App.Writer, "  Target: %s\n", client.BaseURL())
	return nil
}

type readyResult struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func systemReady(c *cli.Context) error {
	client, flags, err := newClient(c)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Context, flags.Timeout)
	defer cancel()

	resp, err := client.Get(ctx, "/ready")
	if err != nil {
		return fmt.Errorf("server unreachable: %w", err)
	}

	var result readyResult
	err = connection.ParseResponse(resp, &result)
	if apiErr, ok := err.(*connection.APIError); ok && apiErr.Status == http.StatusServiceUnavailable {
		result = readyFromDetails(apiErr.Details)
	} else if err != nil {
		return err
	}

	if flags.Output != output.FormatTable {
		if rerr := render(c, flags, result); rerr != nil {
			return rerr
		}
	} else {
		names := make([]string, 0, len(result.Checks))
		for name := range result.Checks {
			names = append(names, name)
		}
		sort.Strings(names)

		table := &output.Table{Headers: []string{"CHECK", "RESULT"}}
		for _, name := range names {
			table.AddRow(name, result.Checks[name])
		}
		if rerr := table.Render(c.App.Writer); rerr != nil {
			return rerr
		}
	}

	if result.Status != "ready" {
		return fmt.Errorf("server not ready")
	}
	return nil
}

// readyFromDetails recovers the check results carried by a 503 envelope.
func readyFromDetails(details any) readyResult {
	result := readyResult{Status: "unavailable", Checks: map[string]string{}}
	m, ok := details.(map[string]any)
	if !ok {
		return result
	}
	if checks, ok := m["checks"].(map[string]any); ok {
		for k, v := range checks {
			result.Checks[k] = fmt.Sprint(v)
		}
	}
	return result
}

func systemWorker(c *cli.Context) error {
	client, flags, err := newClient(c)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Context, flags.Timeout)
	defer cancel()

	resp, err := client.Get(ctx, "/admin/v1/worker")
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	var result map[string]any
	if err := connection.ParseResponse(resp, &result); err != nil {
		return err
	}
	return render(c, flags, result)
}

type sweepResult struct {
	StartedAt time.Time      `json:"started_at"`
	Duration  time.Duration  `json:"duration"`
	Scanned   int            `json:"scanned"`
	Orphans   int            `json:"orphans"`
	Suspects  int            `json:"suspects"`
	Outcomes  map[string]int `json:"outcomes"`
}

func systemSweep(c *cli.Context) error {
	client, flags, err := newClient(c)
	if err != nil {
		return err
	}

	// A sweep walks the whole shadow namespace; give it more room.
	timeout := flags.Timeout
	if !c.Bool("last") && timeout < 5*time.Minute {
		timeout = 5 * time.Minute
	}
	ctx, cancel := context.WithTimeout(c.Context, timeout)
	defer cancel()

	var resp *http.Response
	if c.Bool("last") {
		resp, err = client.Get(ctx, "/admin/v1/sweep")
	} else {
		resp, err = client.Post(ctx, "/admin/v1/sweep", nil)
	}
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	var result *sweepResult
	if err := connection.ParseResponse(resp, &result); err != nil {
		return err
	}

	if flags.Output != output.FormatTable {
		return render(c, flags, result)
	}
	if result == nil || result.StartedAt.IsZero() {
		fmt.Fprintln(c.App.Writer, "No sweep has run yet.")
		return nil
	}

	fmt.Fprintf(c.App.Writer, "Sweep started %s, took %s\n",
		result.StartedAt.Local().Format(time.RFC3339), result.Duration)
	fmt.Fprintf(c.App.Writer, "  Shadows scanned: %d\n", result.Scanned)
	fmt.Fprintf(c.App.Writer, "  Orphans:         %d\n", result.Orphans)
	fmt.Fprintf(c.App.Writer, "  Suspects:        %d\n", result.Suspects)

	outcomes := make([]string, 0, len(result.Outcomes))
	for o := range result.Outcomes {
		outcomes = append(outcomes, o)
	}
	sort.Strings(outcomes)
	for _, o := range outcomes {
		fmt.Fprintf(c.App.Writer, "  %-16s %d\n", o+":", result.Outcomes[o])
	}
	return nil
}

