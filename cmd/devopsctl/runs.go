package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/satish1373/ag-devops/internal/domain"
	"github.com/satish1373/ag-devops/internal/service"
)

var pollInterval = time.Second

func newStatusCmd(c *cli) *cobra.Command {
	var (
		wait    bool
		maxWait time.Duration
	)
	cmd := &cobra.Command{
		Use:   "status <trace-id|issue-key>",
		Short: "Show an automation run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if wait {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, maxWait)
				defer cancel()
			}

			for {
				run, err := c.fetchRun(ctx, args[0])
				if err != nil {
					return err
				}
				if !wait || domain.RunStatus(run.Status).Done() {
					fmt.Fprintln(c.out, renderRun(run))
					return nil
				}

				select {
				case <-ctx.Done():
					fmt.Fprintln(c.out, renderRun(run))
					return fmt.Errorf("run %s still %s after %s", run.TraceID, run.Status, maxWait)
				case <-time.After(pollInterval):
				}
			}
		},
	}
	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "Poll until the run finishes")
	cmd.Flags().DurationVar(&maxWait, "max-wait", 2*time.Minute, "Give up waiting after this long")
	return cmd
}

func newReportCmd(c *cli) *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:   "report <trace-id|issue-key>",
		Short: "Render the Markdown report of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := c.get(cmd.Context(), "/reports/"+url.PathEscape(args[0]))
			if err != nil {
				return err
			}
			if raw {
				fmt.Fprint(c.out, string(body))
				return nil
			}

			renderer, err := glamour.NewTermRenderer(
				glamour.WithAutoStyle(),
				glamour.WithWordWrap(80),
			)
			if err != nil {
				return fmt.Errorf("failed to create markdown renderer: %w", err)
			}
			out, err := renderer.Render(string(body))
			if err != nil {
				return fmt.Errorf("failed to render report: %w", err)
			}
			fmt.Fprint(c.out, out)
			return nil
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "Print the Markdown source")
	return cmd
}

func (c *cli) fetchRun(ctx context.Context, id string) (*service.RunResponse, error) {
	body, err := c.get(ctx, "/status/"+url.PathEscape(id))
	if err != nil {
		return nil, err
	}
	var run service.RunResponse
	if err := json.Unmarshal(body, &run); err != nil {
		return nil, fmt.Errorf("failed to decode run: %w", err)
	}
	return &run, nil
}

// get fetches path and returns the body, turning non-2xx replies into errors
// carrying the server's message.
func (c *cli) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(path), nil)
	if err != nil {
		return nil, err
	}
	client := c.http
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			return nil, fmt.Errorf("%s: %s", resp.Status, apiErr.Error)
		}
		return nil, fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	return body, nil
}

func renderRun(run *service.RunResponse) string {
	rows := []string{
		titleStyle.Render(run.IssueKey + " " + run.Summary),
		field("Trace ID", run.TraceID),
		field("Status", statusStyle(run.Status).Render(run.Status)),
		field("Type", run.IssueType),
		field("Priority", run.Priority),
		field("Received", run.CreatedAt),
	}
	if run.CompletedAt != "" {
		rows = append(rows, field("Completed", run.CompletedAt))
		rows = append(rows, field("Duration", (time.Duration(run.DurationMS)*time.Millisecond).String()))
	}
	if run.TodoID != nil {
		rows = append(rows, field("Todo", fmt.Sprintf("#%d", *run.TodoID)))
	}
	for _, e := range run.Errors {
		rows = append(rows, field("Error", errorStyle.Render(e)))
	}
	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}
