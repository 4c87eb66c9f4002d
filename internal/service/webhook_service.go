package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/satish1373/ag-devops/internal/domain"
	"github.com/satish1373/ag-devops/internal/events"
	"github.com/satish1373/ag-devops/internal/jira"
	"github.com/satish1373/ag-devops/internal/repository"
)

const (
	defaultWorkers   = 2
	defaultQueueSize = 64
	recentActivity   = 5
	processTimeout   = 30 * time.Second
)

// Delivery is one inbound webhook request.
type Delivery struct {
	Body       []byte
	Signature  string
	DeliveryID string
	SourceIP   string
}

// ReceiveResult tells the caller what happened to a delivery.
type ReceiveResult struct {
	TraceID   string
	IssueKey  string
	Duplicate bool
	Simulated bool
	Status    domain.RunStatus
}

// ProcessResult is what a Processor did with an issue.
type ProcessResult struct {
	TodoID uint
}

// Processor acts on a parsed Jira delivery.
type Processor interface {
	Process(ctx context.Context, payload jira.WebhookPayload) (*ProcessResult, error)
}

// RunResponse is the public view of an automation run.
type RunResponse struct {
	TraceID     string          `json:"trace_id"`
	IssueKey    string          `json:"issue_key"`
	Summary     string          `json:"summary"`
	IssueType   string          `json:"issue_type"`
	Priority    string          `json:"priority"`
	Description string          `json:"description,omitempty"`
	Event       string          `json:"event"`
	Status      string          `json:"status"`
	TodoID      *uint           `json:"todo_id,omitempty"`
	Errors      []string        `json:"errors"`
	ErrorsCount int             `json:"errors_count"`
	SourceIP    string          `json:"source_ip,omitempty"`
	CreatedAt   string          `json:"created_at"`
	StartedAt   string          `json:"started_at,omitempty"`
	CompletedAt string          `json:"completed_at,omitempty"`
	DurationMS  int64           `json:"duration_ms"`
	Payload     json.RawMessage `json:"payload,omitempty"`
}

// StatusResponse summarizes the pipeline for /status.
type StatusResponse struct {
	SystemStatus      string           `json:"system_status"`
	PipelineAvailable bool             `json:"pipeline_available"`
	WebhooksProcessed int64            `json:"webhooks_processed"`
	ByStatus          map[string]int64 `json:"by_status"`
	QueueDepth        int              `json:"queue_depth"`
	Workers           int              `json:"workers"`
	RecentActivity    []RunResponse    `json:"recent_activity"`
}

// AutomationStats backs /api/stats and the dashboard.
type AutomationStats struct {
	TotalRuns    int64   `json:"total_runs"`
	Completed    int64   `json:"completed"`
	Failed       int64   `json:"failed"`
	Pending      int64   `json:"pending"`
	Simulated    int64   `json:"simulated"`
	SuccessRate  float64 `json:"success_rate"`
	TodosCreated int64   `json:"todos_created"`
}

// WebhookService accepts Jira deliveries and runs them through a Processor on
// a bounded worker pool.
type WebhookService interface {
	Receive(ctx context.Context, d Delivery) (*ReceiveResult, error)
	RunNow(ctx context.Context, payload jira.WebhookPayload) (*RunResponse, error)
	Run(ctx context.Context, id string) (*RunResponse, error)
	Report(ctx context.Context, id string) (string, error)
	Status(ctx context.Context) (*StatusResponse, error)
	Stats(ctx context.Context) (*AutomationStats, error)
	Recent(ctx context.Context, limit int) ([]RunResponse, error)
	// Available reports whether deliveries are processed or only recorded.
	Available() bool

	Start(ctx context.Context) error
	Stop()
}

type WebhookOptions struct {
	Secret    string
	Workers   int
	QueueSize int
	Publisher Publisher
	Logger    *zap.Logger
}

type webhookService struct {
	runs      repository.RunRepository
	processor Processor
	publisher Publisher
	secret    string
	workers   int
	log       *zap.Logger
	now       func() time.Time

	queue    chan string
	stopping chan struct{}
	mu       sync.RWMutex
	closed   bool
	started  bool
	stopOnce sync.Once
	wg       sync.WaitGroup
	feeders  sync.WaitGroup
}

// NewWebhookService creates a WebhookService. A nil processor records every
// delivery as simulated.
func NewWebhookService(runs repository.RunRepository, processor Processor, opts WebhookOptions) WebhookService {
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &webhookService{
		runs:      runs,
		processor: processor,
		publisher: opts.Publisher,
		secret:    opts.Secret,
		workers:   opts.Workers,
		log:       log.Named("webhook"),
		now:       time.Now,
		queue:     make(chan string, opts.QueueSize),
		stopping:  make(chan struct{}),
	}
}

func (s *webhookService) Available() bool {
	return s.processor != nil
}

func (s *webhookService) Receive(ctx context.Context, d Delivery) (*ReceiveResult, error) {
	if s.secret != "" && !jira.Verify(s.secret, d.Body, d.Signature) {
		return nil, ErrBadSignature
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	if d.DeliveryID != "" {
		if res, err := s.duplicate(ctx, d.DeliveryID); res != nil || err != nil {
			return res, err
		}
	}

	payload := jira.Parse(d.Body)
	run, err := s.newRun(payload, d.Body)
	if err != nil {
		return nil, err
	}
	run.SourceIP = d.SourceIP
	if d.DeliveryID != "" {
		id := d.DeliveryID
		run.DeliveryID = &id
	}
	if !s.Available() {
		now := s.now()
		run.Status = domain.RunSimulated
		run.CompletedAt = &now
	}

	if err := s.runs.Create(ctx, run); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) && d.DeliveryID != "" {
			if res, derr := s.duplicate(ctx, d.DeliveryID); res != nil || derr != nil {
				return res, derr
			}
		}
		return nil, fmt.Errorf("failed to record webhook delivery: %w", err)
	}

	s.log.Info("webhook received",
		zap.String("trace_id", run.TraceID),
		zap.String("issue_key", run.IssueKey),
		zap.String("event", run.Event),
		zap.String("source_ip", run.SourceIP),
	)

	result := &ReceiveResult{TraceID: run.TraceID, IssueKey: run.IssueKey, Status: run.Status}
	if run.Status == domain.RunSimulated {
		result.Simulated = true
		s.publish("automation.simulated", run)
		return result, nil
	}

	select {
	case s.queue <- run.TraceID:
	default:
		// Free the delivery id so the sender's retry is accepted.
		run.Status = domain.RunFailed
		run.DeliveryID = nil
		now := s.now()
		run.CompletedAt = &now
		appendRunError(run, ErrQueueFull.Error())
		if err := s.runs.Update(ctx, run); err != nil {
			s.log.Error("failed to mark rejected run", zap.String("trace_id", run.TraceID), zap.Error(err))
		}
		return nil, ErrQueueFull
	}

	s.publish("automation.queued", run)
	return result, nil
}

func (s *webhookService) duplicate(ctx context.Context, deliveryID string) (*ReceiveResult, error) {
	existing, err := s.runs.FindByDeliveryID(ctx, deliveryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up delivery: %w", err)
	}
	s.log.Info("duplicate webhook delivery",
		zap.String("delivery_id", deliveryID),
		zap.String("trace_id", existing.TraceID),
	)
	return &ReceiveResult{
		TraceID:   existing.TraceID,
		IssueKey:  existing.IssueKey,
		Duplicate: true,
		Status:    existing.Status,
	}, nil
}

// RunNow records and processes payload on the calling goroutine.
func (s *webhookService) RunNow(ctx context.Context, payload jira.WebhookPayload) (*RunResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}
	run, err := s.newRun(payload, body)
	if err != nil {
		return nil, err
	}
	run.SourceIP = "local"
	if !s.Available() {
		now := s.now()
		run.Status = domain.RunSimulated
		run.CompletedAt = &now
	}
	if err := s.runs.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to record run: %w", err)
	}
	if run.Status != domain.RunSimulated {
		s.execute(ctx, run)
	}
	return toRunResponse(run, true), nil
}

func (s *webhookService) Run(ctx context.Context, id string) (*RunResponse, error) {
	run, err := s.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	return toRunResponse(run, true), nil
}

func (s *webhookService) Report(ctx context.Context, id string) (string, error) {
	run, err := s.lookup(ctx, id)
	if err != nil {
		return "", err
	}
	return RenderReport(toRunResponse(run, false), s.now()), nil
}

// lookup accepts a trace id or a Jira issue key, newest run first.
func (s *webhookService) lookup(ctx context.Context, id string) (*domain.AutomationRun, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, invalid("trace ID is required")
	}
	run, err := s.runs.FindByTraceID(ctx, id)
	if err == nil {
		return run, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to retrieve run: %w", err)
	}
	run, err = s.runs.LatestByIssueKey(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("trace ID %s not found", id)
		}
		return nil, fmt.Errorf("failed to retrieve run: %w", err)
	}
	return run, nil
}

func (s *webhookService) Status(ctx context.Context) (*StatusResponse, error) {
	total, err := s.runs.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count runs: %w", err)
	}
	counts, err := s.runs.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count runs: %w", err)
	}
	recent, err := s.Recent(ctx, recentActivity)
	if err != nil {
		return nil, err
	}

	byStatus := make(map[string]int64, len(counts))
	for status, n := range counts {
		byStatus[string(status)] = n
	}
	return &StatusResponse{
		SystemStatus:      "operational",
		PipelineAvailable: s.Available(),
		WebhooksProcessed: total,
		ByStatus:          byStatus,
		QueueDepth:        len(s.queue),
		Workers:           s.workers,
		RecentActivity:    recent,
	}, nil
}

func (s *webhookService) Recent(ctx context.Context, limit int) ([]RunResponse, error) {
	runs, err := s.runs.Recent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve recent runs: %w", err)
	}
	out := make([]RunResponse, 0, len(runs))
	for i := range runs {
		out = append(out, *toRunResponse(&runs[i], false))
	}
	return out, nil
}

func (s *webhookService) Stats(ctx context.Context) (*AutomationStats, error) {
	counts, err := s.runs.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count runs: %w", err)
	}
	todos, err := s.runs.CountWithTodo(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count created todos: %w", err)
	}

	stats := &AutomationStats{
		Completed:    counts[domain.RunCompleted],
		Failed:       counts[domain.RunFailed],
		Pending:      counts[domain.RunQueued] + counts[domain.RunProcessing],
		Simulated:    counts[domain.RunSimulated],
		TodosCreated: todos,
	}
	for _, n := range counts {
		stats.TotalRuns += n
	}
	if finished := stats.Completed + stats.Failed; finished > 0 {
		stats.SuccessRate = float64(stats.Completed) / float64(finished) * 100
	}
	return stats, nil
}

// Start launches the workers and requeues runs left unfinished by a previous
// process. Workers stop taking new runs when ctx is cancelled or Stop is
// called.
func (s *webhookService) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.started {
		return nil
	}

	if n, err := s.runs.ResetProcessing(ctx); err != nil {
		return fmt.Errorf("failed to reset interrupted runs: %w", err)
	} else if n > 0 {
		s.log.Info("reset interrupted runs", zap.Int64("count", n))
	}
	pending, err := s.runs.ListByStatus(ctx, domain.RunQueued)
	if err != nil {
		return fmt.Errorf("failed to load pending runs: %w", err)
	}
	s.started = true

	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.worker(ctx, i)
	}
	if len(pending) > 0 {
		s.log.Info("requeueing unfinished runs", zap.Int("count", len(pending)))
		s.feeders.Add(1)
		go s.requeue(ctx, pending)
	}
	s.log.Info("webhook workers started", zap.Int("workers", s.workers), zap.Int("queue_size", cap(s.queue)))
	return nil
}

// Stop refuses new deliveries, lets the workers drain the queue and waits
// for them.
func (s *webhookService) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopping)
		s.feeders.Wait()
		s.mu.Lock()
		s.closed = true
		close(s.queue)
		s.mu.Unlock()
		s.wg.Wait()
		s.log.Info("webhook workers stopped")
	})
}

func (s *webhookService) requeue(ctx context.Context, runs []domain.AutomationRun) {
	defer s.feeders.Done()
	for _, run := range runs {
		select {
		case s.queue <- run.TraceID:
		case <-s.stopping:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *webhookService) worker(ctx context.Context, n int) {
	defer s.wg.Done()
	log := s.log.With(zap.Int("worker", n))
	for {
		select {
		case <-ctx.Done():
			return
		case traceID, ok := <-s.queue:
			if !ok {
				return
			}
			s.process(ctx, log, traceID)
		}
	}
}

func (s *webhookService) process(ctx context.Context, log *zap.Logger, traceID string) {
	// An in-flight run finishes even if the pool is shutting down.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), processTimeout)
	defer cancel()

	run, err := s.runs.FindByTraceID(ctx, traceID)
	if err != nil {
		log.Error("failed to load queued run", zap.String("trace_id", traceID), zap.Error(err))
		return
	}
	if run.Status.Done() {
		return
	}
	s.execute(ctx, run)
}

func (s *webhookService) execute(ctx context.Context, run *domain.AutomationRun) {
	log := s.log.With(zap.String("trace_id", run.TraceID), zap.String("issue_key", run.IssueKey))

	started := s.now()
	claimed, err := s.runs.Claim(ctx, run.TraceID, started)
	if err != nil {
		log.Error("failed to mark run processing", zap.Error(err))
		return
	}
	if !claimed {
		log.Debug("run already claimed")
		return
	}
	run.Status = domain.RunProcessing
	run.StartedAt = &started
	s.publish("automation.processing", run)

	result, err := s.processor.Process(ctx, jira.Parse([]byte(run.Payload)))
	completed := s.now()
	run.CompletedAt = &completed
	if err != nil {
		run.Status = domain.RunFailed
		appendRunError(run, err.Error())
		log.Warn("automation run failed", zap.Error(err))
	} else {
		run.Status = domain.RunCompleted
		if result != nil && result.TodoID != 0 {
			id := result.TodoID
			run.TodoID = &id
		}
		log.Info("automation run completed", zap.Duration("duration", run.Duration()))
	}

	if err := s.runs.Update(ctx, run); err != nil {
		log.Error("failed to save run result", zap.Error(err))
		return
	}
	s.publish("automation."+string(run.Status), run)
}

func (s *webhookService) newRun(payload jira.WebhookPayload, body []byte) (*domain.AutomationRun, error) {
	stored := string(body)
	if payload.RawBody != "" || len(strings.TrimSpace(stored)) == 0 {
		wrapped, err := json.Marshal(map[string]string{"raw_body": payload.RawBody})
		if err != nil {
			return nil, fmt.Errorf("failed to encode raw body: %w", err)
		}
		stored = string(wrapped)
	}

	fields := payload.Issue.Fields
	return &domain.AutomationRun{
		TraceID:     uuid.NewString(),
		Event:       payload.WebhookEvent,
		IssueKey:    payload.Issue.Key,
		Summary:     fields.Summary,
		IssueType:   fields.IssueType.Name,
		Description: string(fields.Description),
		Priority:    payload.PriorityName(),
		Status:      domain.RunQueued,
		Payload:     stored,
		CreatedAt:   s.now(),
	}, nil
}

func (s *webhookService) publish(kind string, run *domain.AutomationRun) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(events.Message{Type: kind, Data: toRunResponse(run, false), Global: true})
}

func appendRunError(run *domain.AutomationRun, msg string) {
	run.Errors = append(run.Errors, msg)
	run.ErrorsCount++
}

func toRunResponse(run *domain.AutomationRun, withPayload bool) *RunResponse {
	resp := &RunResponse{
		TraceID:     run.TraceID,
		IssueKey:    run.IssueKey,
		Summary:     run.Summary,
		IssueType:   run.IssueType,
		Priority:    run.Priority,
		Description: run.Description,
		Event:       run.Event,
		Status:      string(run.Status),
		TodoID:      run.TodoID,
		Errors:      []string{},
		ErrorsCount: run.ErrorsCount,
		SourceIP:    run.SourceIP,
		CreatedAt:   run.CreatedAt.UTC().Format(time.RFC3339),
		DurationMS:  run.Duration().Milliseconds(),
	}
	if len(run.Errors) > 0 {
		resp.Errors = append(resp.Errors, run.Errors...)
	}
	if run.StartedAt != nil {
		resp.StartedAt = run.StartedAt.UTC().Format(time.RFC3339)
	}
	if run.CompletedAt != nil {
		resp.CompletedAt = run.CompletedAt.UTC().Format(time.RFC3339)
	}
	if withPayload {
		resp.Payload = json.RawMessage(run.Payload)
	}
	return resp
}
