// Package jira models the Jira issue webhook and signs deliveries the way the
// intake endpoint verifies them.
package jira

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// Event names Jira sends in webhookEvent.
const (
	EventIssueCreated = "jira:issue_created"
	EventIssueUpdated = "jira:issue_updated"
)

// WebhookPayload is the subset of a Jira issue webhook the intake reads.
type WebhookPayload struct {
	Timestamp          int64      `json:"timestamp,omitempty"`
	WebhookEvent       string     `json:"webhookEvent,omitempty"`
	IssueEventTypeName string     `json:"issue_event_type_name,omitempty"`
	User               *User      `json:"user,omitempty"`
	Issue              Issue      `json:"issue"`
	Changelog          *Changelog `json:"changelog,omitempty"`

	// RawBody holds a body that was not JSON at all.
	RawBody string `json:"raw_body,omitempty"`
}

type Issue struct {
	ID     string `json:"id,omitempty"`
	Key    string `json:"key"`
	Self   string `json:"self,omitempty"`
	Fields Fields `json:"fields"`
}

type Fields struct {
	Summary     string   `json:"summary"`
	Description Text     `json:"description,omitempty"`
	IssueType   Named    `json:"issuetype"`
	Priority    *Named   `json:"priority,omitempty"`
	Status      *Named   `json:"status,omitempty"`
	Project     *Project `json:"project,omitempty"`
	Creator     *User    `json:"creator,omitempty"`
	Assignee    *User    `json:"assignee,omitempty"`
	Labels      []string `json:"labels,omitempty"`
	Created     string   `json:"created,omitempty"`
}

type Named struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

type Project struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

type User struct {
	Self         string `json:"self,omitempty"`
	Name         string `json:"name,omitempty"`
	EmailAddress string `json:"emailAddress,omitempty"`
	DisplayName  string `json:"displayName,omitempty"`
	Active       bool   `json:"active,omitempty"`
}

type Changelog struct {
	ID    string          `json:"id"`
	Items []ChangelogItem `json:"items"`
}

type ChangelogItem struct {
	Field      string  `json:"field"`
	FieldType  string  `json:"fieldtype"`
	From       *string `json:"from"`
	FromString *string `json:"fromString"`
	To         string  `json:"to"`
	ToString   string  `json:"toString"`
}

// Text is an issue description. Jira Cloud sends Atlassian Document Format
// objects where Server sends plain strings; both decode to plain text.
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
		return nil
	}

	var doc adfNode
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	var b strings.Builder
	doc.collect(&b)
	*t = Text(strings.TrimSpace(b.String()))
	return nil
}

type adfNode struct {
	Type    string    `json:"type"`
	Text    string    `json:"text"`
	Content []adfNode `json:"content"`
}

func (n adfNode) collect(b *strings.Builder) {
	if n.Text != "" {
		b.WriteString(n.Text)
	}
	for _, child := range n.Content {
		child.collect(b)
	}
	switch n.Type {
	case "paragraph", "heading", "listItem", "codeBlock":
		b.WriteString("\n")
	}
}

// Parse decodes body into a payload. Bodies that are not JSON objects are
// kept verbatim in RawBody rather than rejected.
func Parse(body []byte) WebhookPayload {
	var p WebhookPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return WebhookPayload{RawBody: string(body)}
	}
	return p
}

// PriorityName returns the Jira priority name, or "" when absent.
func (p WebhookPayload) PriorityName() string {
	if p.Issue.Fields.Priority == nil {
		return ""
	}
	return p.Issue.Fields.Priority.Name
}

// NewPayload wraps an issue in the envelope Jira sends for event.
func NewPayload(issue Issue, event string, now time.Time) WebhookPayload {
	if event == "" {
		event = EventIssueCreated
	}
	typeName := event
	if i := strings.Index(event, ":"); i >= 0 {
		typeName = event[i+1:]
	}

	p := WebhookPayload{
		Timestamp:          now.UnixMilli(),
		WebhookEvent:       event,
		IssueEventTypeName: typeName,
		User:               issue.Fields.Creator,
		Issue:              issue,
	}
	if issue.Fields.Status != nil {
		p.Changelog = &Changelog{
			ID: issue.ID,
			Items: []ChangelogItem{{
				Field:     "status",
				FieldType: "jira",
				To:        issue.Fields.Status.ID,
				ToString:  issue.Fields.Status.Name,
			}},
		}
	}
	return p
}
