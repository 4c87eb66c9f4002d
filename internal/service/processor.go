package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/satish1373/ag-devops/internal/domain"
	"github.com/satish1373/ag-devops/internal/jira"
)

var errMissingIssueKey = errors.New("payload has no issue key")

// TodoProcessor files every Jira issue as a todo on the shared list.
type TodoProcessor struct {
	todos TodoService
}

func NewTodoProcessor(todos TodoService) *TodoProcessor {
	return &TodoProcessor{todos: todos}
}

func (p *TodoProcessor) Process(ctx context.Context, payload jira.WebhookPayload) (*ProcessResult, error) {
	issue := payload.Issue
	key := strings.TrimSpace(issue.Key)
	if key == "" {
		return nil, errMissingIssueKey
	}

	summary := strings.TrimSpace(issue.Fields.Summary)
	if summary == "" {
		summary = "No summary"
	}
	description := strings.TrimSpace(string(issue.Fields.Description))
	if description == "" {
		description = summary
	}

	todo, err := p.todos.CreateTodo(ctx, CreateTodoRequest{
		Title:       truncate(key+": "+summary, maxTitleLength),
		Description: description,
		Priority:    mapPriority(payload.PriorityName()),
		Category:    strings.ToLower(strings.TrimSpace(issue.Fields.IssueType.Name)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create todo for %s: %w", key, err)
	}
	return &ProcessResult{TodoID: todo.ID}, nil
}

// mapPriority folds Jira's five priority levels onto low, medium and high.
func mapPriority(name string) string {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "highest", "high", "critical", "blocker":
		return domain.PriorityHigh
	case "low", "lowest", "trivial", "minor":
		return domain.PriorityLow
	default:
		return domain.PriorityMedium
	}
}

// truncate keeps at most max runes of s.
func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}
