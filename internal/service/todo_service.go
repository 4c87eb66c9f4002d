package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/satish1373/ag-devops/internal/domain"
	"github.com/satish1373/ag-devops/internal/events"
	"github.com/satish1373/ag-devops/internal/repository"
)

const maxTitleLength = 255

// CreateTodoRequest holds the data needed to create a new todo. Empty
// priority and category fall back to the column defaults.
type CreateTodoRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	Category    string `json:"category"`
	Completed   bool   `json:"completed"`
}

// UpdateTodoRequest holds the data for updating an existing todo.
// Pointers distinguish an omitted field (keep the stored value) from one set
// to its zero value.
type UpdateTodoRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Completed   *bool   `json:"completed"`
	Priority    *string `json:"priority"`
	Category    *string `json:"category"`
}

// TodoResponse is the standard representation of a Todo returned by the service.
type TodoResponse struct {
	ID          uint   `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
	Priority    string `json:"priority"`
	Category    string `json:"category"`
	UserID      uint   `json:"user_id"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// ListTodosRequest carries the optional query filters of a listing.
type ListTodosRequest struct {
	Completed *bool
	Priority  string
	Category  string
	Search    string
	Limit     int
	Offset    int
}

// Publisher receives change notifications. The websocket hub implements it.
type Publisher interface {
	Publish(msg events.Message)
}

// TodoService defines the operations for managing todos. Every method is
// scoped to the user carried by ctx (see WithUserID); requests without one
// work on the shared list.
type TodoService interface {
	CreateTodo(ctx context.Context, req CreateTodoRequest) (*TodoResponse, error)
	GetTodoByID(ctx context.Context, id uint) (*TodoResponse, error)
	GetAllTodos(ctx context.Context, req ListTodosRequest) ([]TodoResponse, error)
	UpdateTodo(ctx context.Context, id uint, req UpdateTodoRequest) (*TodoResponse, error)
	ToggleTodo(ctx context.Context, id uint) (*TodoResponse, error)
	DeleteTodo(ctx context.Context, id uint) error
	Stats(ctx context.Context) (*repository.TodoStats, error)
	ExportTodos(ctx context.Context, req ListTodosRequest, format ExportFormat, w io.Writer) error
}

type todoService struct {
	repo      repository.TodoRepository
	publisher Publisher
}

// NewTodoService creates a TodoService. publisher may be nil.
func NewTodoService(repo repository.TodoRepository, publisher Publisher) TodoService {
	return &todoService{
		repo:      repo,
		publisher: publisher,
	}
}

func (s *todoService) CreateTodo(ctx context.Context, req CreateTodoRequest) (*TodoResponse, error) {
	title := strings.TrimSpace(req.Title)
	if err := validateTitle(title); err != nil {
		return nil, err
	}
	priority := strings.ToLower(strings.TrimSpace(req.Priority))
	if priority == "" {
		priority = domain.PriorityMedium
	}
	if !domain.ValidPriority(priority) {
		return nil, invalid("priority must be one of low, medium, high")
	}
	category := strings.TrimSpace(req.Category)
	if category == "" {
		category = domain.DefaultCategory
	}

	todo := &domain.Todo{
		Title:       title,
		Description: req.Description,
		Completed:   req.Completed,
		Priority:    priority,
		Category:    category,
		UserID:      UserIDFromContext(ctx),
	}
	if err := s.repo.Create(ctx, todo); err != nil {
		return nil, fmt.Errorf("failed to create todo item: %w", err)
	}

	resp := toTodoResponse(todo)
	s.publish("todo.created", todo.UserID, resp)
	return resp, nil
}

func (s *todoService) GetTodoByID(ctx context.Context, id uint) (*TodoResponse, error) {
	todo, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return toTodoResponse(todo), nil
}

func (s *todoService) GetAllTodos(ctx context.Context, req ListTodosRequest) ([]TodoResponse, error) {
	req.Priority = strings.ToLower(strings.TrimSpace(req.Priority))
	if req.Priority != "" && !domain.ValidPriority(req.Priority) {
		return nil, invalid("priority must be one of low, medium, high")
	}
	if req.Limit < 0 || req.Offset < 0 {
		return nil, invalid("limit and offset must not be negative")
	}

	userID := UserIDFromContext(ctx)
	todos, err := s.repo.List(ctx, repository.TodoFilter{
		UserID:    &userID,
		Completed: req.Completed,
		Priority:  req.Priority,
		Category:  req.Category,
		Search:    req.Search,
		Limit:     req.Limit,
		Offset:    req.Offset,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve todo items: %w", err)
	}

	responses := make([]TodoResponse, 0, len(todos))
	for i := range todos {
		responses = append(responses, *toTodoResponse(&todos[i]))
	}
	return responses, nil
}

// UpdateTodo applies only the fields present in req.
func (s *todoService) UpdateTodo(ctx context.Context, id uint, req UpdateTodoRequest) (*TodoResponse, error) {
	todo, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if err := validateTitle(title); err != nil {
			return nil, err
		}
		todo.Title = title
	}
	if req.Description != nil {
		todo.Description = *req.Description
	}
	if req.Completed != nil {
		todo.Completed = *req.Completed
	}
	if req.Priority != nil {
		priority := strings.ToLower(strings.TrimSpace(*req.Priority))
		if !domain.ValidPriority(priority) {
			return nil, invalid("priority must be one of low, medium, high")
		}
		todo.Priority = priority
	}
	if req.Category != nil {
		category := strings.TrimSpace(*req.Category)
		if category == "" {
			category = domain.DefaultCategory
		}
		todo.Category = category
	}

	if err := s.repo.Update(ctx, todo); err != nil {
		return nil, fmt.Errorf("failed to update todo item: %w", err)
	}

	resp := toTodoResponse(todo)
	s.publish("todo.updated", todo.UserID, resp)
	return resp, nil
}

func (s *todoService) ToggleTodo(ctx context.Context, id uint) (*TodoResponse, error) {
	todo, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	completed := !todo.Completed
	return s.UpdateTodo(ctx, id, UpdateTodoRequest{Completed: &completed})
}

func (s *todoService) DeleteTodo(ctx context.Context, id uint) error {
	todo, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound("todo with ID %d not found", id)
		}
		return fmt.Errorf("failed to delete todo item: %w", err)
	}
	s.publish("todo.deleted", todo.UserID, map[string]uint{"id": id})
	return nil
}

func (s *todoService) Stats(ctx context.Context) (*repository.TodoStats, error) {
	userID := UserIDFromContext(ctx)
	stats, err := s.repo.Stats(ctx, &userID)
	if err != nil {
		return nil, fmt.Errorf("failed to compute todo stats: %w", err)
	}
	return stats, nil
}

// find loads a todo visible to the caller. Todos owned by someone else are
// reported as missing.
func (s *todoService) find(ctx context.Context, id uint) (*domain.Todo, error) {
	todo, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("todo with ID %d not found", id)
		}
		return nil, fmt.Errorf("failed to retrieve todo item: %w", err)
	}
	if todo.UserID != UserIDFromContext(ctx) {
		return nil, notFound("todo with ID %d not found", id)
	}
	return todo, nil
}

func (s *todoService) publish(kind string, userID uint, data any) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(events.Message{Type: kind, Data: data, UserID: userID})
}

func validateTitle(title string) error {
	if title == "" {
		return invalid("title cannot be empty")
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return invalid("title must be at most %d characters", maxTitleLength)
	}
	return nil
}

func toTodoResponse(todo *domain.Todo) *TodoResponse {
	return &TodoResponse{
		ID:          todo.ID,
		Title:       todo.Title,
		Description: todo.Description,
		Completed:   todo.Completed,
		Priority:    todo.Priority,
		Category:    todo.Category,
		UserID:      todo.UserID,
		CreatedAt:   todo.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   todo.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
