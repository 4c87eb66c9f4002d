package jira

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignAndVerify(t *testing.T) {
	body := []byte(`{"issue":{"key":"DEVOPS-1"}}`)
	sig := Sign("s3cret", body)

	assert.True(t, strings.HasPrefix(sig, "sha256="))
	assert.True(t, Verify("s3cret", body, sig))
	assert.False(t, Verify("other", body, sig))
	assert.False(t, Verify("s3cret", []byte(`{}`), sig))
	assert.False(t, Verify("s3cret", body, "sha256=zz"))
	assert.False(t, Verify("s3cret", body, "s3cret"))
}

func TestParse(t *testing.T) {
	t.Run("plain description", func(t *testing.T) {
		p := Parse([]byte(`{
			"webhookEvent": "jira:issue_created",
			"issue": {"key": "DEVOPS-7", "fields": {
				"summary": "Export",
				"description": "CSV please",
				"issuetype": {"name": "Story"},
				"priority": {"name": "High"}
			}}
		}`))
		assert.Equal(t, "DEVOPS-7", p.Issue.Key)
		assert.Equal(t, Text("CSV please"), p.Issue.Fields.Description)
		assert.Equal(t, "Story", p.Issue.Fields.IssueType.Name)
		assert.Equal(t, "High", p.PriorityName())
		assert.Empty(t, p.RawBody)
	})

	t.Run("document description", func(t *testing.T) {
		p := Parse([]byte(`{"issue": {"key": "DEVOPS-8", "fields": {"description": {
			"type": "doc", "version": 1,
			"content": [
				{"type": "paragraph", "content": [{"type": "text", "text": "First line"}]},
				{"type": "paragraph", "content": [{"type": "text", "text": "Second "}, {"type": "text", "text": "line"}]}
			]
		}}}}`))
		assert.Equal(t, Text("First line\nSecond line"), p.Issue.Fields.Description)
		assert.Equal(t, "", p.PriorityName())
	})

	t.Run("not json", func(t *testing.T) {
		p := Parse([]byte("issue=DEVOPS-9"))
		assert.Equal(t, "issue=DEVOPS-9", p.RawBody)
		assert.Empty(t, p.Issue.Key)
	})
}

func TestNewPayload(t *testing.T) {
	issue := SampleTickets()[0]
	now := time.UnixMilli(1_700_000_000_000)

	p := NewPayload(issue, "", now)
	assert.Equal(t, EventIssueCreated, p.WebhookEvent)
	assert.Equal(t, "issue_created", p.IssueEventTypeName)
	assert.EqualValues(t, 1_700_000_000_000, p.Timestamp)
	assert.Equal(t, "product-manager", p.User.Name)
	require.NotNil(t, p.Changelog)
	assert.Equal(t, "To Do", p.Changelog.Items[0].ToString)

	// Round trip through the parser keeps what the intake needs.
	body, err := json.Marshal(p)
	require.NoError(t, err)
	parsed := Parse(body)
	assert.Equal(t, "DEVOPS-101", parsed.Issue.Key)
	assert.Equal(t, issue.Fields.Description, parsed.Issue.Fields.Description)
}

func TestClientSend(t *testing.T) {
	var gotSig, gotDelivery string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSig = r.Header.Get(SignatureHeader)
		gotDelivery = r.Header.Get(DeliveryHeader)
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"status":"accepted","trace_id":"abc-123"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "s3cret")
	d, err := client.Send(context.Background(), NewPayload(SampleTickets()[1], EventIssueCreated, time.Now()))
	require.NoError(t, err)

	assert.True(t, d.Accepted())
	assert.Equal(t, "abc-123", d.TraceID())
	assert.Equal(t, d.ID, gotDelivery)
	assert.True(t, Verify("s3cret", gotBody, gotSig))
}

func TestClientSend_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	defer srv.Close()

	d, err := NewClient(srv.URL, "").Send(context.Background(), WebhookPayload{})
	require.NoError(t, err)
	assert.False(t, d.Accepted())
	assert.Equal(t, "", d.TraceID())
	assert.Contains(t, d.RawBody, "nope")
}

func TestCurlCommand(t *testing.T) {
	issue := ExportTestIssue()
	issue.Fields.Summary = "Don't break quoting"

	cmd, err := NewClient("http://localhost:8080/webhook/jira", "s3cret").CurlCommand(NewPayload(issue, "", time.Now()))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(cmd, "curl -X POST http://localhost:8080/webhook/jira"))
	assert.Contains(t, cmd, SignatureHeader+": sha256=")
	assert.Contains(t, cmd, `Don'\''t break quoting`)
}
