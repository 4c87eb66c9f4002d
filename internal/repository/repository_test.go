package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/satish1373/ag-devops/internal/database/databasetest"
	"github.com/satish1373/ag-devops/internal/domain"
)

func ptr[T any](v T) *T { return &v }

func TestTodoRepository_SQLite(t *testing.T) {
	exerciseTodoRepository(t, databasetest.NewSQLite(t).GetDB())
}

func TestUserRepository_SQLite(t *testing.T) {
	exerciseUserRepository(t, databasetest.NewSQLite(t).GetDB())
}

func TestRunRepository_SQLite(t *testing.T) {
	exerciseRunRepository(t, databasetest.NewSQLite(t).GetDB())
}

// The exercise* helpers are shared with the Postgres integration tests.

func exerciseTodoRepository(t *testing.T, db *gorm.DB) {
	ctx := context.Background()
	repo := NewGormTodoRepository(db)

	seed := []*domain.Todo{
		{Title: "Write report", Description: "quarterly numbers", Priority: domain.PriorityHigh, Category: "work"},
		{Title: "Buy milk", Priority: domain.PriorityLow, Category: "shopping", Completed: true},
		{Title: "Plan trip", Description: "Book the REPORT venue", Priority: domain.PriorityMedium, Category: "personal", UserID: 7},
	}
	for _, todo := range seed {
		require.NoError(t, repo.Create(ctx, todo))
		require.NotZero(t, todo.ID)
	}

	t.Run("defaults applied", func(t *testing.T) {
		todo := &domain.Todo{Title: "Defaults"}
		require.NoError(t, repo.Create(ctx, todo))
		got, err := repo.FindByID(ctx, todo.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.PriorityMedium, got.Priority)
		assert.Equal(t, domain.DefaultCategory, got.Category)
		assert.False(t, got.Completed)
		require.NoError(t, repo.Delete(ctx, todo.ID))
	})

	t.Run("list newest first", func(t *testing.T) {
		todos, err := repo.List(ctx, TodoFilter{})
		require.NoError(t, err)
		require.Len(t, todos, 3)
		assert.Equal(t, "Plan trip", todos[0].Title)
		assert.Equal(t, "Write report", todos[2].Title)
	})

	t.Run("filters", func(t *testing.T) {
		todos, err := repo.List(ctx, TodoFilter{Completed: ptr(true)})
		require.NoError(t, err)
		require.Len(t, todos, 1)
		assert.Equal(t, "Buy milk", todos[0].Title)

		todos, err = repo.List(ctx, TodoFilter{Search: "report"})
		require.NoError(t, err)
		assert.Len(t, todos, 2)

		todos, err = repo.List(ctx, TodoFilter{Search: "report", UserID: ptr(uint(7))})
		require.NoError(t, err)
		require.Len(t, todos, 1)
		assert.Equal(t, "Plan trip", todos[0].Title)

		todos, err = repo.List(ctx, TodoFilter{Priority: domain.PriorityLow, Category: "shopping"})
		require.NoError(t, err)
		assert.Len(t, todos, 1)

		todos, err = repo.List(ctx, TodoFilter{Limit: 1, Offset: 1})
		require.NoError(t, err)
		require.Len(t, todos, 1)
		assert.Equal(t, "Buy milk", todos[0].Title)
	})

	t.Run("search treats wildcards literally", func(t *testing.T) {
		todo := &domain.Todo{Title: "50% off_sale", Description: `C:\tmp`}
		require.NoError(t, repo.Create(ctx, todo))
		defer func() { require.NoError(t, repo.Delete(ctx, todo.ID)) }()

		for _, search := range []string{"%", "_", "0% o", `:\t`} {
			todos, err := repo.List(ctx, TodoFilter{Search: search})
			require.NoError(t, err, search)
			require.Len(t, todos, 1, search)
			assert.Equal(t, todo.ID, todos[0].ID)
		}

		todos, err := repo.List(ctx, TodoFilter{Search: "5%e"})
		require.NoError(t, err)
		assert.Empty(t, todos)
	})

	t.Run("update persists", func(t *testing.T) {
		todo, err := repo.FindByID(ctx, seed[0].ID)
		require.NoError(t, err)
		todo.Completed = true
		require.NoError(t, repo.Update(ctx, todo))

		got, err := repo.FindByID(ctx, seed[0].ID)
		require.NoError(t, err)
		assert.True(t, got.Completed)
		assert.False(t, got.UpdatedAt.Before(got.CreatedAt))
	})

	t.Run("stats", func(t *testing.T) {
		stats, err := repo.Stats(ctx, nil)
		require.NoError(t, err)
		assert.EqualValues(t, 3, stats.Total)
		assert.EqualValues(t, 2, stats.Completed)
		assert.EqualValues(t, 1, stats.Pending)
		assert.EqualValues(t, 1, stats.ByPriority[domain.PriorityHigh])
		assert.EqualValues(t, 1, stats.ByCategory["shopping"])

		stats, err = repo.Stats(ctx, ptr(uint(7)))
		require.NoError(t, err)
		assert.EqualValues(t, 1, stats.Total)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, seed[1].ID))

		_, err := repo.FindByID(ctx, seed[1].ID)
		assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))

		err = repo.Delete(ctx, seed[1].ID)
		assert.True(t, errors.Is(err, gorm.ErrRecordNotFound), "second delete must report not found")

		err = repo.Delete(ctx, 99999)
		assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
	})
}

func exerciseUserRepository(t *testing.T, db *gorm.DB) {
	ctx := context.Background()
	repo := NewGormUserRepository(db)

	user := &domain.User{Email: "dev@example.com", PasswordHash: "hash"}
	require.NoError(t, repo.Create(ctx, user))

	err := repo.Create(ctx, &domain.User{Email: "dev@example.com", PasswordHash: "other"})
	assert.True(t, errors.Is(err, gorm.ErrDuplicatedKey), "got %v", err)

	got, err := repo.FindByEmail(ctx, "dev@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	got, err = repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "dev@example.com", got.Email)

	_, err = repo.FindByEmail(ctx, "nobody@example.com")
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func exerciseRunRepository(t *testing.T, db *gorm.DB) {
	ctx := context.Background()
	repo := NewGormRunRepository(db)

	runs := []*domain.AutomationRun{
		{TraceID: "t-1", DeliveryID: ptr("d-1"), IssueKey: "DEVOPS-1", Status: domain.RunCompleted, Payload: "{}"},
		{TraceID: "t-2", IssueKey: "DEVOPS-2", Status: domain.RunFailed, Payload: "{}",
			Errors: domain.RunErrors{"first line\nsecond line", "timeout"}, ErrorsCount: 2},
		{TraceID: "t-3", IssueKey: "DEVOPS-3", Status: domain.RunQueued, Payload: "{}"},
		{TraceID: "t-4", IssueKey: "DEVOPS-4", Status: domain.RunQueued, Payload: "{}"},
	}
	for _, run := range runs {
		require.NoError(t, repo.Create(ctx, run))
	}

	err := repo.Create(ctx, &domain.AutomationRun{TraceID: "t-5", DeliveryID: ptr("d-1"), Status: domain.RunQueued, Payload: "{}"})
	assert.True(t, errors.Is(err, gorm.ErrDuplicatedKey), "delivery ids are unique, got %v", err)

	got, err := repo.FindByTraceID(ctx, "t-2")
	require.NoError(t, err)
	assert.Equal(t, "DEVOPS-2", got.IssueKey)
	assert.Equal(t, domain.RunErrors{"first line\nsecond line", "timeout"}, got.Errors)
	assert.Len(t, got.Errors, got.ErrorsCount)

	got, err = repo.FindByTraceID(ctx, "t-3")
	require.NoError(t, err)
	assert.Empty(t, got.Errors)

	got, err = repo.FindByDeliveryID(ctx, "d-1")
	require.NoError(t, err)
	assert.Equal(t, "t-1", got.TraceID)

	_, err = repo.FindByTraceID(ctx, "missing")
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))

	recent, err := repo.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "t-4", recent[0].TraceID)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 4, n)

	counts, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, counts[domain.RunQueued])
	assert.EqualValues(t, 1, counts[domain.RunFailed])

	queued, err := repo.ListByStatus(ctx, domain.RunQueued, domain.RunProcessing)
	require.NoError(t, err)
	require.Len(t, queued, 2)
	assert.Equal(t, "t-3", queued[0].TraceID)

	withTodo, err := repo.CountWithTodo(ctx)
	require.NoError(t, err)
	assert.Zero(t, withTodo)

	got.Status = domain.RunProcessing
	got.TodoID = ptr(uint(42))
	require.NoError(t, repo.Update(ctx, got))
	got, err = repo.FindByTraceID(ctx, "t-1")
	require.NoError(t, err)
	assert.Equal(t, domain.RunProcessing, got.Status)
	withTodo, err = repo.CountWithTodo(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, withTodo)

	retry := &domain.AutomationRun{TraceID: "t-6", IssueKey: "DEVOPS-1", Status: domain.RunQueued, Payload: "{}"}
	require.NoError(t, repo.Create(ctx, retry))
	latest, err := repo.LatestByIssueKey(ctx, "DEVOPS-1")
	require.NoError(t, err)
	assert.Equal(t, "t-6", latest.TraceID)

	_, err = repo.LatestByIssueKey(ctx, "NOPE-1")
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))

	started := time.Now().UTC().Truncate(time.Second)
	claimed, err := repo.Claim(ctx, "t-6", started)
	require.NoError(t, err)
	assert.True(t, claimed)
	claimed, err = repo.Claim(ctx, "t-6", started)
	require.NoError(t, err)
	assert.False(t, claimed, "a run is claimed once")
	claimed, err = repo.Claim(ctx, "t-2", started)
	require.NoError(t, err)
	assert.False(t, claimed, "finished runs are never claimed")

	got, err = repo.FindByTraceID(ctx, "t-6")
	require.NoError(t, err)
	assert.Equal(t, domain.RunProcessing, got.Status)
	require.NotNil(t, got.StartedAt)
	assert.True(t, started.Equal(got.StartedAt.UTC()))

	reset, err := repo.ResetProcessing(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, reset) // t-1 and t-6
	queued, err = repo.ListByStatus(ctx, domain.RunQueued)
	require.NoError(t, err)
	assert.Len(t, queued, 4)
	processing, err := repo.ListByStatus(ctx, domain.RunProcessing)
	require.NoError(t, err)
	assert.Empty(t, processing)
}
