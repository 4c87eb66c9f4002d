package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/satish1373/ag-devops/internal/monitor"
)

func newMonitorCmd(c *cli) *cobra.Command {
	var (
		targets  []string
		interval time.Duration
		once     bool
	)
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Poll health endpoints until interrupted",
		Example: `  devopsctl monitor
  devopsctl monitor --target api=http://localhost:8080/health --target web=http://localhost:3000 --interval 10s
  devopsctl monitor --once`,
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := c.monitorTargets(targets)
			if err != nil {
				return err
			}
			m := monitor.New(parsed, monitor.WithInterval(interval), monitor.WithHTTPClient(c.http))

			if once {
				results, err := m.Once(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(c.out, renderResults(results))
				for _, r := range results {
					if !r.Up {
						return fmt.Errorf("%s is down", r.Target.Name)
					}
				}
				return nil
			}

			fmt.Fprintln(c.out, mutedStyle.Render(fmt.Sprintf("checking %d target(s) every %s, Ctrl+C to stop", len(parsed), m.Interval())))
			err = m.Run(cmd.Context(), func(results []monitor.Result) {
				fmt.Fprintln(c.out, renderResults(results))
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().StringArrayVarP(&targets, "target", "t", nil, "Target as name=url (repeatable; defaults to the server's /health)")
	cmd.Flags().DurationVar(&interval, "interval", monitor.DefaultInterval, "Time between rounds")
	cmd.Flags().BoolVar(&once, "once", false, "Check once and exit non-zero if any target is down")
	return cmd
}

func (c *cli) monitorTargets(flags []string) ([]monitor.Target, error) {
	if len(flags) == 0 {
		return []monitor.Target{{Name: "api", URL: c.url("/health")}}, nil
	}
	targets := make([]monitor.Target, 0, len(flags))
	for _, f := range flags {
		t, err := monitor.ParseTarget(f)
		if err != nil {
			return nil, err
		}
		targets = append(targets, t)
	}
	return targets, nil
}

func renderResults(results []monitor.Result) string {
	nameCol := lipgloss.NewStyle().Width(12).Bold(true)
	stateCol := lipgloss.NewStyle().Width(6)
	latencyCol := lipgloss.NewStyle().Width(10)

	var b strings.Builder
	if len(results) > 0 {
		b.WriteString(mutedStyle.Render(results[0].CheckedAt.Format(time.TimeOnly)))
	}
	for _, r := range results {
		state := "up"
		detail := fmt.Sprintf("%d", r.StatusCode)
		if !r.Up {
			state = "down"
			detail = r.Err.Error()
		}
		b.WriteString("\n")
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
			nameCol.Render(r.Target.Name),
			stateCol.Render(statusStyle(state).Render(state)),
			latencyCol.Render(r.Latency.Round(time.Millisecond).String()),
			mutedStyle.Render(detail),
		))
	}
	return b.String()
}
