package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Status is the closed set of task states.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in-progress"
	StatusDone       Status = "done"
)

// Statuses lists all task states in display order.
var Statuses = []Status{StatusTodo, StatusInProgress, StatusDone}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	return s == StatusTodo || s == StatusInProgress || s == StatusDone
}

// Priority is the closed set of task priorities.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Priorities lists all task priorities in display order.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// ChecklistItem is a sub-task entry owned by a task. It has no identity or
// lifecycle of its own; the whole checklist is stored as one JSON column.
type ChecklistItem struct {
	Text string `json:"text"`
	Done bool   `json:"done"`
}

// Task represents a tracked unit of work assigned to a set of users.
type Task struct {
	ID          uuid.UUID       `json:"id" gorm:"type:char(36);primaryKey"`
	Title       string          `json:"title" gorm:"size:255;not null"`
	Description string          `json:"description" gorm:"type:text"`
	Priority    Priority        `json:"priority" gorm:"size:20;default:'medium';index"`
	Status      Status          `json:"status" gorm:"size:20;default:'todo';index"`
	DueDate     time.Time       `json:"dueDate" gorm:"index"`
	Assignees   []User          `json:"-" gorm:"many2many:task_assignments"`
	CreatedByID uuid.UUID       `json:"createdBy" gorm:"type:char(36);index"`
	Attachments []string        `json:"attachments" gorm:"serializer:json"`
	Checklist   []ChecklistItem `json:"todoChecklist" gorm:"serializer:json"`
	Progress    int             `json:"progress" gorm:"default:0"`
	Version     int64           `json:"-" gorm:"default:0"` // optimistic concurrency token
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// BeforeCreate sets UUID before creating the record.
func (t *Task) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// CompletedChecklistCount returns how many checklist items are done.
func (t *Task) CompletedChecklistCount() int {
	n := 0
	for _, item := range t.Checklist {
		if item.Done {
			n++
		}
	}
	return n
}

// IsAssignedTo reports whether the given user is in the task's assignment set.
func (t *Task) IsAssignedTo(userID uuid.UUID) bool {
	for _, u := range t.Assignees {
		if u.ID == userID {
			return true
		}
	}
	return false
}
