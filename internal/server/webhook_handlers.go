package server

import (
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/satish1373/ag-devops/internal/domain"
	"github.com/satish1373/ag-devops/internal/jira"
	"github.com/satish1373/ag-devops/internal/service"
)

func (s *Server) jiraWebhookHandler(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var maxBytesError *http.MaxBytesError
		if errors.As(err, &maxBytesError) {
			respondWithError(w, http.StatusRequestEntityTooLarge, "webhook body is too large")
			return
		}
		respondWithError(w, http.StatusBadRequest, "failed to read webhook body")
		return
	}

	res, err := s.webhooks.Receive(r.Context(), service.Delivery{
		Body:       body,
		Signature:  r.Header.Get(jira.SignatureHeader),
		DeliveryID: r.Header.Get(jira.DeliveryHeader),
		SourceIP:   clientIP(r),
	})
	if err != nil {
		if errors.Is(err, service.ErrBadSignature) {
			s.log.Warn("rejected webhook with bad signature", zap.String("source_ip", clientIP(r)))
		}
		s.respondWithServiceError(w, r, err, "Webhook processing failed")
		return
	}

	now := s.now().UTC().Format(time.RFC3339)
	switch {
	case res.Duplicate:
		respondWithJSON(w, http.StatusOK, map[string]string{
			"status":    "duplicate",
			"trace_id":  res.TraceID,
			"issue_key": res.IssueKey,
			"message":   "Delivery already received",
			"timestamp": now,
		})
	case res.Simulated:
		respondWithJSON(w, http.StatusOK, map[string]string{
			"status":    "simulated",
			"trace_id":  res.TraceID,
			"issue_key": res.IssueKey,
			"message":   "Webhook recorded (no processor configured)",
			"timestamp": now,
		})
	default:
		respondWithJSON(w, http.StatusAccepted, map[string]string{
			"status":    "accepted",
			"trace_id":  res.TraceID,
			"issue_key": res.IssueKey,
			"message":   "Webhook received and processing started",
			"timestamp": now,
		})
	}
}

func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	status, err := s.webhooks.Status(r.Context())
	if err != nil {
		s.respondWithServiceError(w, r, err, "Failed to load status")
		return
	}
	if s.hub != nil {
		respondWithJSON(w, http.StatusOK, struct {
			*service.StatusResponse
			WebsocketClients int `json:"websocket_clients"`
		}{status, s.hub.ClientCount()})
		return
	}
	respondWithJSON(w, http.StatusOK, status)
}

// runStatusHandler accepts a trace id or an issue key.
func (s *Server) runStatusHandler(w http.ResponseWriter, r *http.Request) {
	run, err := s.webhooks.Run(r.Context(), chi.URLParam(r, "traceID"))
	if err != nil {
		s.respondWithServiceError(w, r, err, "Failed to load run")
		return
	}
	run.Payload = nil
	respondWithJSON(w, http.StatusOK, run)
}

func (s *Server) resultHandler(w http.ResponseWriter, r *http.Request) {
	run, err := s.webhooks.Run(r.Context(), chi.URLParam(r, "traceID"))
	if err != nil {
		s.respondWithServiceError(w, r, err, "Failed to load run")
		return
	}
	if !domain.RunStatus(run.Status).Done() {
		respondWithJSON(w, http.StatusAccepted, run)
		return
	}
	respondWithJSON(w, http.StatusOK, run)
}

func (s *Server) reportHandler(w http.ResponseWriter, r *http.Request) {
	report, err := s.webhooks.Report(r.Context(), chi.URLParam(r, "traceID"))
	if err != nil {
		s.respondWithServiceError(w, r, err, "Failed to build report")
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, report)
}

// testExportHandler pushes the canned export issue through the pipeline
// synchronously.
func (s *Server) testExportHandler(w http.ResponseWriter, r *http.Request) {
	payload := jira.NewPayload(jira.ExportTestIssue(), jira.EventIssueCreated, s.now())
	run, err := s.webhooks.RunNow(r.Context(), payload)
	if err != nil {
		s.respondWithServiceError(w, r, err, "Test failed")
		return
	}

	message := "Export automation test completed successfully"
	switch domain.RunStatus(run.Status) {
	case domain.RunFailed:
		message = "Export automation test failed"
	case domain.RunSimulated:
		message = "No processor configured; the test delivery was recorded only"
	}
	respondWithJSON(w, http.StatusOK, map[string]any{
		"test_status":       run.Status,
		"automation_result": run,
		"message":           message,
	})
}

func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	automation, err := s.webhooks.Stats(r.Context())
	if err != nil {
		s.respondWithServiceError(w, r, err, "Failed to compute automation stats")
		return
	}
	todos, err := s.todos.Stats(r.Context())
	if err != nil {
		s.respondWithServiceError(w, r, err, "Failed to compute todo stats")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]any{
		"automation": automation,
		"todos":      todos,
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
