package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/satish1373/ag-devops/internal/domain"
)

// RenderReport formats a run as a Markdown automation report.
func RenderReport(run *RunResponse, now time.Time) string {
	var b strings.Builder

	outcome := "IN PROGRESS"
	switch domain.RunStatus(run.Status) {
	case domain.RunCompleted:
		outcome = "SUCCESS"
	case domain.RunFailed:
		outcome = "FAILED"
	case domain.RunSimulated:
		outcome = "SIMULATED"
	}

	issue := run.IssueKey
	if issue == "" {
		issue = "UNKNOWN"
	}

	b.WriteString("# DevOps Automation Report\n\n")
	fmt.Fprintf(&b, "## %s Automation Summary\n\n", outcome)
	fmt.Fprintf(&b, "- **Issue**: %s - %s\n", issue, orDash(run.Summary))
	fmt.Fprintf(&b, "- **Type**: %s\n", orDash(run.IssueType))
	fmt.Fprintf(&b, "- **Priority**: %s\n", orDash(run.Priority))
	fmt.Fprintf(&b, "- **Trace ID**: `%s`\n", run.TraceID)
	fmt.Fprintf(&b, "- **Status**: %s\n", run.Status)
	fmt.Fprintf(&b, "- **Received**: %s\n", run.CreatedAt)
	if run.CompletedAt != "" {
		fmt.Fprintf(&b, "- **Completed**: %s (%dms)\n", run.CompletedAt, run.DurationMS)
	}
	fmt.Fprintf(&b, "- **Generated**: %s\n", now.UTC().Format(time.RFC3339))

	b.WriteString("\n## Result\n\n")
	switch {
	case run.TodoID != nil:
		fmt.Fprintf(&b, "Created todo #%d.\n", *run.TodoID)
	case domain.RunStatus(run.Status) == domain.RunSimulated:
		b.WriteString("No processor is configured; the delivery was recorded only.\n")
	case domain.RunStatus(run.Status).Done():
		b.WriteString("No todo was created.\n")
	default:
		b.WriteString("The run has not finished yet.\n")
	}

	if run.Description != "" {
		b.WriteString("\n## Description\n\n")
		b.WriteString(run.Description)
		b.WriteString("\n")
	}

	b.WriteString("\n## Issues\n\n")
	if len(run.Errors) == 0 {
		b.WriteString("No issues encountered.\n")
	}
	for _, e := range run.Errors {
		fmt.Fprintf(&b, "- %s\n", e)
	}

	b.WriteString("\n---\n*Generated by devops automation*\n")
	return b.String()
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
