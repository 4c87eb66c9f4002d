package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/satish1373/ag-devops/internal/domain"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// TodoFilter narrows a listing. Nil pointers and empty strings match all rows.
type TodoFilter struct {
	UserID    *uint
	Completed *bool
	Priority  string
	Category  string
	Search    string
	Limit     int
	Offset    int
}

// TodoStats aggregates todos for the stats endpoint.
type TodoStats struct {
	Total      int64            `json:"total"`
	Completed  int64            `json:"completed"`
	Pending    int64            `json:"pending"`
	ByPriority map[string]int64 `json:"by_priority"`
	ByCategory map[string]int64 `json:"by_category"`
}

// TodoRepository defines the interface for todo data operations
type TodoRepository interface {
	Create(ctx context.Context, todo *domain.Todo) error
	FindByID(ctx context.Context, id uint) (*domain.Todo, error)
	List(ctx context.Context, filter TodoFilter) ([]domain.Todo, error)
	Update(ctx context.Context, todo *domain.Todo) error
	Delete(ctx context.Context, id uint) error
	Stats(ctx context.Context, userID *uint) (*TodoStats, error)
}

// gormTodoRepository implements TodoRepository using GORM
type gormTodoRepository struct {
	db *gorm.DB
}

// NewGormTodoRepository creates a new GORM todo repository
func NewGormTodoRepository(db *gorm.DB) TodoRepository {
	return &gormTodoRepository{db: db}
}

func (r *gormTodoRepository) Create(ctx context.Context, todo *domain.Todo) error {
	return r.db.WithContext(ctx).Create(todo).Error
}

// FindByID returns gorm.ErrRecordNotFound for missing or soft-deleted rows.
func (r *gormTodoRepository) FindByID(ctx context.Context, id uint) (*domain.Todo, error) {
	var todo domain.Todo
	if err := r.db.WithContext(ctx).First(&todo, id).Error; err != nil {
		return nil, err
	}
	return &todo, nil
}

func (r *gormTodoRepository) List(ctx context.Context, filter TodoFilter) ([]domain.Todo, error) {
	q := r.db.WithContext(ctx).Model(&domain.Todo{})
	if filter.UserID != nil {
		q = q.Where("user_id = ?", *filter.UserID)
	}
	if filter.Completed != nil {
		q = q.Where("completed = ?", *filter.Completed)
	}
	if filter.Priority != "" {
		q = q.Where("priority = ?", filter.Priority)
	}
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		like := "%" + likeEscaper.Replace(strings.ToLower(s)) + "%"
		q = q.Where(`(LOWER(title) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\')`, like, like)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	todos := make([]domain.Todo, 0)
	if err := q.Order("created_at DESC").Order("id DESC").Find(&todos).Error; err != nil {
		return nil, err
	}
	return todos, nil
}

// Update writes every column of todo; UpdatedAt is refreshed by GORM.
func (r *gormTodoRepository) Update(ctx context.Context, todo *domain.Todo) error {
	return r.db.WithContext(ctx).Save(todo).Error
}

// Delete soft-deletes the row and reports gorm.ErrRecordNotFound when nothing
// matched.
func (r *gormTodoRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&domain.Todo{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

type groupCount struct {
	Name  string
	Total int64
}

func (r *gormTodoRepository) Stats(ctx context.Context, userID *uint) (*TodoStats, error) {
	scoped := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&domain.Todo{})
		if userID != nil {
			q = q.Where("user_id = ?", *userID)
		}
		return q
	}

	stats := &TodoStats{
		ByPriority: map[string]int64{},
		ByCategory: map[string]int64{},
	}
	if err := scoped().Count(&stats.Total).Error; err != nil {
		return nil, err
	}
	if err := scoped().Where("completed = ?", true).Count(&stats.Completed).Error; err != nil {
		return nil, err
	}
	stats.Pending = stats.Total - stats.Completed

	var rows []groupCount
	if err := scoped().Select("priority AS name, COUNT(*) AS total").Group("priority").Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		stats.ByPriority[row.Name] = row.Total
	}

	rows = rows[:0]
	if err := scoped().Select("category AS name, COUNT(*) AS total").Group("category").Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		stats.ByCategory[row.Name] = row.Total
	}
	return stats, nil
}
