// Command devopsctl drives the automation server from a terminal: it sends
// Jira-shaped webhooks, follows runs and watches service health.
package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// cli holds the flags shared by every subcommand.
type cli struct {
	serverURL string
	secret    string
	timeout   time.Duration

	http *http.Client
	out  io.Writer
}

func (c *cli) url(path string) string {
	return strings.TrimRight(c.serverURL, "/") + path
}

func newRootCmd(out io.Writer) *cobra.Command {
	c := &cli{out: out}

	root := &cobra.Command{
		Use:   "devopsctl",
		Short: "Trigger and inspect Jira automation runs",
		Long: `devopsctl talks to the automation server.

  webhook  send Jira issue webhooks (custom, canned samples, or as curl)
  status   show a run by trace id or issue key
  report   render a run's Markdown report
  monitor  poll service health endpoints`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			c.http = &http.Client{Timeout: c.timeout}
		},
	}
	root.SetOut(out)
	root.SetErr(out)

	root.PersistentFlags().StringVarP(&c.serverURL, "server", "s", envOr("DEVOPS_SERVER_URL", "http://localhost:8080"), "Automation server base URL")
	root.PersistentFlags().StringVar(&c.secret, "secret", os.Getenv("JIRA_WEBHOOK_SECRET"), "Shared secret used to sign webhooks")
	root.PersistentFlags().DurationVar(&c.timeout, "timeout", 30*time.Second, "HTTP request timeout")

	root.AddCommand(newWebhookCmd(c))
	root.AddCommand(newStatusCmd(c))
	root.AddCommand(newReportCmd(c))
	root.AddCommand(newMonitorCmd(c))
	return root
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout).ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, errorStyle.Render(err.Error()))
		os.Exit(1)
	}
}
