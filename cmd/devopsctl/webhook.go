package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/satish1373/ag-devops/internal/jira"
)

func (c *cli) jiraClient() *jira.Client {
	client := jira.NewClient(c.url("/webhook/jira"), c.secret)
	if c.http != nil {
		client.HTTP = c.http
	}
	return client
}

func newWebhookCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "webhook",
		Short: "Send Jira issue webhooks to the server",
	}
	cmd.AddCommand(newWebhookSendCmd(c))
	cmd.AddCommand(newWebhookSamplesCmd(c))
	cmd.AddCommand(newWebhookCurlCmd(c))
	return cmd
}

func newWebhookSendCmd(c *cli) *cobra.Command {
	var (
		key, summary, description string
		issueType, priority       string
		event                     string
	)
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send one issue webhook",
		Example: `  devopsctl webhook send --key DEVOPS-7 --summary "Add dark mode" --priority High
  devopsctl webhook send --key DEVOPS-7 --summary "Add dark mode" --event jira:issue_updated`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(key) == "" {
				return fmt.Errorf("--key is required")
			}
			issue := jira.Issue{
				Key: key,
				Fields: jira.Fields{
					Summary:     summary,
					Description: jira.Text(description),
					IssueType:   jira.Named{Name: issueType},
					Priority:    &jira.Named{Name: priority},
				},
			}
			return c.send(cmd, issue, event)
		},
	}
	cmd.Flags().StringVar(&key, "key", "", "Issue key, e.g. DEVOPS-7")
	cmd.Flags().StringVar(&summary, "summary", "", "Issue summary")
	cmd.Flags().StringVar(&description, "description", "", "Issue description")
	cmd.Flags().StringVar(&issueType, "type", "Story", "Issue type")
	cmd.Flags().StringVar(&priority, "priority", "Medium", "Issue priority")
	cmd.Flags().StringVar(&event, "event", jira.EventIssueCreated, "Webhook event name")
	return cmd
}

func newWebhookSamplesCmd(c *cli) *cobra.Command {
	var (
		send  bool
		delay time.Duration
	)
	cmd := &cobra.Command{
		Use:   "samples",
		Short: "List the canned sample issues, or send them all with --send",
		RunE: func(cmd *cobra.Command, args []string) error {
			samples := jira.SampleTickets()
			if !send {
				fmt.Fprintln(c.out, renderSamples(samples))
				return nil
			}
			for i, issue := range samples {
				if i > 0 && delay > 0 {
					select {
					case <-cmd.Context().Done():
						return cmd.Context().Err()
					case <-time.After(delay):
					}
				}
				if err := c.send(cmd, issue, jira.EventIssueCreated); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&send, "send", false, "Send every sample to the server")
	cmd.Flags().DurationVar(&delay, "delay", 2*time.Second, "Pause between sends")
	return cmd
}

func newWebhookCurlCmd(c *cli) *cobra.Command {
	var sample int
	cmd := &cobra.Command{
		Use:   "curl",
		Short: "Print a curl command that delivers a sample issue",
		RunE: func(cmd *cobra.Command, args []string) error {
			samples := jira.SampleTickets()
			if sample < 1 || sample > len(samples) {
				return fmt.Errorf("--sample must be between 1 and %d", len(samples))
			}
			payload := jira.NewPayload(samples[sample-1], jira.EventIssueCreated, time.Now())
			out, err := c.jiraClient().CurlCommand(payload)
			if err != nil {
				return err
			}
			fmt.Fprintln(c.out, out)
			return nil
		},
	}
	cmd.Flags().IntVar(&sample, "sample", 1, "Sample number, starting at 1")
	return cmd
}

func (c *cli) send(cmd *cobra.Command, issue jira.Issue, event string) error {
	payload := jira.NewPayload(issue, event, time.Now())
	delivery, err := c.jiraClient().Send(cmd.Context(), payload)
	if err != nil {
		return err
	}
	if !delivery.Accepted() {
		msg, _ := delivery.Body["error"].(string)
		if msg == "" {
			msg = strings.TrimSpace(delivery.RawBody)
		}
		return fmt.Errorf("%s rejected with status %d: %s", issue.Key, delivery.StatusCode, msg)
	}

	status, _ := delivery.Body["status"].(string)
	fmt.Fprintln(c.out, lipgloss.JoinHorizontal(lipgloss.Top,
		titleStyle.Render(issue.Key), " ",
		statusStyle(status).Render(status), " ",
		mutedStyle.Render("trace "+delivery.TraceID()),
	))
	return nil
}

func renderSamples(samples []jira.Issue) string {
	keyCol := lipgloss.NewStyle().Width(12).Bold(true)
	typeCol := lipgloss.NewStyle().Width(8)
	prioCol := lipgloss.NewStyle().Width(10)

	rows := []string{titleStyle.Render("Sample issues")}
	for _, issue := range samples {
		prio := ""
		if issue.Fields.Priority != nil {
			prio = issue.Fields.Priority.Name
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top,
			keyCol.Render(issue.Key),
			typeCol.Render(issue.Fields.IssueType.Name),
			prioCol.Render(prio),
			issue.Fields.Summary,
		))
	}
	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}
