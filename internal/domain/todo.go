package domain

import "gorm.io/gorm"

// Priorities a todo can carry.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"

	DefaultCategory = "general"
)

type Todo struct {
	gorm.Model
	Title       string `gorm:"not null"`
	Description string `gorm:"not null;default:''"`
	Completed   bool   `gorm:"not null;default:false"`
	Priority    string `gorm:"not null;default:'medium';index"`
	Category    string `gorm:"not null;default:'general';index"`
	UserID      uint   `gorm:"index"` // zero for todos created without a signed-in user
}

// ValidPriority reports whether p is one of the known priorities.
func ValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}
