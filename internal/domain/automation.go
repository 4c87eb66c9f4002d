package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// RunStatus is the lifecycle state of a webhook-triggered automation run.
type RunStatus string

const (
	RunQueued     RunStatus = "queued"
	RunProcessing RunStatus = "processing"
	RunCompleted  RunStatus = "completed"
	RunFailed     RunStatus = "failed"
	// RunSimulated marks deliveries accepted while no processor is configured.
	RunSimulated RunStatus = "simulated"
)

// Done reports whether the run has reached a terminal state.
func (s RunStatus) Done() bool {
	return s == RunCompleted || s == RunFailed || s == RunSimulated
}

// AutomationRun records one Jira webhook delivery and what was done with it.
type AutomationRun struct {
	ID          uint      `gorm:"primarykey"`
	TraceID     string    `gorm:"not null;uniqueIndex;size:64"`
	DeliveryID  *string   `gorm:"uniqueIndex;size:255"`
	Event       string    `gorm:"size:100"`
	IssueKey    string    `gorm:"size:100;index"`
	Summary     string
	IssueType   string    `gorm:"size:100"`
	Description string
	Priority    string    `gorm:"size:50"`
	SourceIP    string    `gorm:"size:100"`
	Status      RunStatus `gorm:"not null;size:32;index"`
	TodoID      *uint
	Errors      RunErrors
	ErrorsCount int    `gorm:"not null;default:0"`
	Payload     string `gorm:"not null"`
	CreatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
}

// Duration is how long processing took, zero until the run is done.
func (r *AutomationRun) Duration() time.Duration {
	if r.StartedAt == nil || r.CompletedAt == nil {
		return 0
	}
	return r.CompletedAt.Sub(*r.StartedAt)
}

// RunErrors is stored as a JSON array so messages may span lines.
type RunErrors []string

func (RunErrors) GormDataType() string { return "text" }

func (e RunErrors) Value() (driver.Value, error) {
	if len(e) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal([]string(e))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (e *RunErrors) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*e = nil
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("cannot scan %T into RunErrors", src)
	}
	if len(raw) == 0 {
		*e = nil
		return nil
	}
	if raw[0] != '[' {
		// Rows written before errors were JSON encoded hold one message per line.
		*e = strings.Split(string(raw), "\n")
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("failed to decode run errors: %w", err)
	}
	*e = out
	return nil
}
