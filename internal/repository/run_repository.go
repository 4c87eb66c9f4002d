package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/satish1373/ag-devops/internal/domain"
)

// RunRepository stores automation runs created by webhook deliveries.
type RunRepository interface {
	Create(ctx context.Context, run *domain.AutomationRun) error
	FindByTraceID(ctx context.Context, traceID string) (*domain.AutomationRun, error)
	FindByDeliveryID(ctx context.Context, deliveryID string) (*domain.AutomationRun, error)
	LatestByIssueKey(ctx context.Context, issueKey string) (*domain.AutomationRun, error)
	Update(ctx context.Context, run *domain.AutomationRun) error
	Claim(ctx context.Context, traceID string, startedAt time.Time) (bool, error)
	ResetProcessing(ctx context.Context) (int64, error)
	Recent(ctx context.Context, limit int) ([]domain.AutomationRun, error)
	Count(ctx context.Context) (int64, error)
	CountByStatus(ctx context.Context) (map[domain.RunStatus]int64, error)
	CountWithTodo(ctx context.Context) (int64, error)
	ListByStatus(ctx context.Context, statuses ...domain.RunStatus) ([]domain.AutomationRun, error)
}

type gormRunRepository struct {
	db *gorm.DB
}

func NewGormRunRepository(db *gorm.DB) RunRepository {
	return &gormRunRepository{db: db}
}

func (r *gormRunRepository) Create(ctx context.Context, run *domain.AutomationRun) error {
	return r.db.WithContext(ctx).Create(run).Error
}

func (r *gormRunRepository) FindByTraceID(ctx context.Context, traceID string) (*domain.AutomationRun, error) {
	var run domain.AutomationRun
	if err := r.db.WithContext(ctx).Where("trace_id = ?", traceID).First(&run).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *gormRunRepository) FindByDeliveryID(ctx context.Context, deliveryID string) (*domain.AutomationRun, error) {
	var run domain.AutomationRun
	if err := r.db.WithContext(ctx).Where("delivery_id = ?", deliveryID).First(&run).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

// LatestByIssueKey returns the newest run for a Jira issue.
func (r *gormRunRepository) LatestByIssueKey(ctx context.Context, issueKey string) (*domain.AutomationRun, error) {
	var run domain.AutomationRun
	err := r.db.WithContext(ctx).
		Where("issue_key = ?", issueKey).
		Order("created_at DESC").Order("id DESC").
		First(&run).Error
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *gormRunRepository) Update(ctx context.Context, run *domain.AutomationRun) error {
	return r.db.WithContext(ctx).Save(run).Error
}

// Claim moves a queued run to processing. It reports false when another
// worker got there first or the run is no longer queued.
func (r *gormRunRepository) Claim(ctx context.Context, traceID string, startedAt time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&domain.AutomationRun{}).
		Where("trace_id = ? AND status = ?", traceID, string(domain.RunQueued)).
		Updates(map[string]any{
			"status":     string(domain.RunProcessing),
			"started_at": startedAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ResetProcessing puts runs orphaned mid-processing back in the queue.
func (r *gormRunRepository) ResetProcessing(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).Model(&domain.AutomationRun{}).
		Where("status = ?", string(domain.RunProcessing)).
		Updates(map[string]any{
			"status":     string(domain.RunQueued),
			"started_at": nil,
		})
	return res.RowsAffected, res.Error
}

// Recent returns the newest runs first.
func (r *gormRunRepository) Recent(ctx context.Context, limit int) ([]domain.AutomationRun, error) {
	runs := make([]domain.AutomationRun, 0, limit)
	err := r.db.WithContext(ctx).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).
		Find(&runs).Error
	if err != nil {
		return nil, err
	}
	return runs, nil
}

func (r *gormRunRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.AutomationRun{}).Count(&n).Error
	return n, err
}

func (r *gormRunRepository) CountByStatus(ctx context.Context) (map[domain.RunStatus]int64, error) {
	var rows []groupCount
	err := r.db.WithContext(ctx).Model(&domain.AutomationRun{}).
		Select("status AS name, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[domain.RunStatus]int64, len(rows))
	for _, row := range rows {
		counts[domain.RunStatus(row.Name)] = row.Total
	}
	return counts, nil
}

// CountWithTodo counts runs that produced a todo.
func (r *gormRunRepository) CountWithTodo(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.AutomationRun{}).Where("todo_id IS NOT NULL").Count(&n).Error
	return n, err
}

// ListByStatus returns matching runs oldest first.
func (r *gormRunRepository) ListByStatus(ctx context.Context, statuses ...domain.RunStatus) ([]domain.AutomationRun, error) {
	runs := make([]domain.AutomationRun, 0)
	err := r.db.WithContext(ctx).
		Where("status IN ?", statuses).
		Order("created_at ASC").Order("id ASC").
		Find(&runs).Error
	if err != nil {
		return nil, err
	}
	return runs, nil
}
