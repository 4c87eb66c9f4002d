package server

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/satish1373/ag-devops/internal/repository"
	"github.com/satish1373/ag-devops/internal/service"
)

const dashboardRuns = 10

var dashboardTemplate = template.Must(template.New("dashboard").Funcs(template.FuncMap{
	"pct": func(f float64) string { return fmt.Sprintf("%.1f%%", f) },
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta http-equiv="refresh" content="30">
<title>DevOps Automation Dashboard</title>
<style>
body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", sans-serif; margin: 0; background: #f4f6f8; color: #222; }
header { background: #1f2937; color: #fff; padding: 16px 24px; }
main { padding: 24px; max-width: 1100px; margin: 0 auto; }
.cards { display: flex; gap: 16px; flex-wrap: wrap; }
.card { background: #fff; border-radius: 8px; padding: 16px; flex: 1; min-width: 160px; box-shadow: 0 1px 3px rgba(0,0,0,.1); }
.value { font-size: 28px; font-weight: 600; }
table { width: 100%; border-collapse: collapse; background: #fff; margin-top: 24px; }
th, td { text-align: left; padding: 8px 12px; border-bottom: 1px solid #e5e7eb; }
.completed { color: #15803d; } .failed { color: #b91c1c; } .queued, .processing { color: #b45309; } .simulated { color: #6b7280; }
</style>
</head>
<body>
<header><h1>DevOps Automation Dashboard</h1></header>
<main>
<div class="cards">
  <div class="card"><div>Total runs</div><div class="value">{{.Automation.TotalRuns}}</div></div>
  <div class="card"><div>Success rate</div><div class="value">{{pct .Automation.SuccessRate}}</div></div>
  <div class="card"><div>Todos created</div><div class="value">{{.Automation.TodosCreated}}</div></div>
  <div class="card"><div>Pending</div><div class="value">{{.Automation.Pending}}</div></div>
  <div class="card"><div>Open todos</div><div class="value">{{.Todos.Pending}} / {{.Todos.Total}}</div></div>
</div>
<table>
<thead><tr><th>Issue</th><th>Summary</th><th>Status</th><th>Todo</th><th>Errors</th><th>Received</th><th>Trace</th></tr></thead>
<tbody>
{{range .Runs}}<tr>
<td>{{.IssueKey}}</td><td>{{.Summary}}</td><td class="{{.Status}}">{{.Status}}</td>
<td>{{if .TodoID}}#{{.TodoID}}{{else}}-{{end}}</td><td>{{.ErrorsCount}}</td><td>{{.CreatedAt}}</td>
<td><a href="/reports/{{.TraceID}}">{{.TraceID}}</a></td>
</tr>{{else}}<tr><td colspan="7">No automation runs yet.</td></tr>{{end}}
</tbody>
</table>
<p>Pipeline {{if .PipelineAvailable}}available{{else}}in simulation mode{{end}}. Last updated {{.Generated}}.</p>
</main>
</body>
</html>
`))

type dashboardData struct {
	Automation        *service.AutomationStats
	Todos             *repository.TodoStats
	Runs              []service.RunResponse
	PipelineAvailable bool
	Generated         string
}

func (s *Server) dashboardHandler(w http.ResponseWriter, r *http.Request) {
	automation, err := s.webhooks.Stats(r.Context())
	if err != nil {
		s.respondWithServiceError(w, r, err, "Failed to compute automation stats")
		return
	}
	runs, err := s.webhooks.Recent(r.Context(), dashboardRuns)
	if err != nil {
		s.respondWithServiceError(w, r, err, "Failed to load recent runs")
		return
	}
	todos, err := s.todos.Stats(r.Context())
	if err != nil {
		s.respondWithServiceError(w, r, err, "Failed to compute todo stats")
		return
	}

	var buf bytes.Buffer
	err = dashboardTemplate.Execute(&buf, dashboardData{
		Automation:        automation,
		Todos:             todos,
		Runs:              runs,
		PipelineAvailable: s.webhooks.Available(),
		Generated:         s.now().UTC().Format(time.RFC1123),
	})
	if err != nil {
		s.respondWithServiceError(w, r, err, "Failed to render dashboard")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
