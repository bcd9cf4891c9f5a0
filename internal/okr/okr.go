package okr

import (
	"errors"
	"time"
)

// Objective statuses.
const (
	ObjectiveStatusDraft     = "draft"
	ObjectiveStatusActive    = "active"
	ObjectiveStatusCompleted = "completed"
	ObjectiveStatusOverdue   = "overdue"
)

// Goal and task statuses share the same lifecycle vocabulary.
const (
	StatusNotStarted = "not_started"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusBlocked    = "blocked"
)

// Task priorities.
const (
	PriorityLow      = "low"
	PriorityMedium   = "medium"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

// Objective is the top of the OKR tree. Created by HR admins and owned by a
// manager; progress is derived from its goals and never set directly.
type Objective struct {
	ID                 int64     `json:"id" gorm:"primaryKey"`
	Title              string    `json:"title" gorm:"not null"`
	Description        string    `json:"description"`
	Status             string    `json:"status" gorm:"not null;default:draft"`
	OwnerID            int64     `json:"owner_id" gorm:"column:owner_id;not null"`
	CreatedBy          int64     `json:"created_by" gorm:"column:created_by;not null"`
	ProgressPercentage float64   `json:"progress_percentage" gorm:"column:progress_percentage;default:0"`
	DueDate            time.Time `json:"due_date" gorm:"column:due_date;type:date"`
	CreatedAt          time.Time `json:"created_at" gorm:"column:created_at;default:CURRENT_TIMESTAMP"`
	UpdatedAt          time.Time `json:"updated_at" gorm:"column:updated_at;default:CURRENT_TIMESTAMP"`
}

func (Objective) TableName() string {
	return "objectives"
}

// ObjectiveDepartment links an objective to a department it applies to.
type ObjectiveDepartment struct {
	ObjectiveID  int64 `json:"objective_id" gorm:"primaryKey;column:objective_id"`
	DepartmentID int64 `json:"department_id" gorm:"primaryKey;column:department_id"`
}

func (ObjectiveDepartment) TableName() string {
	return "objective_departments"
}

// Goal sits under an objective. Progress is recomputed from its tasks on every
// task write, but the assignee may also set it manually.
type Goal struct {
	ID                 int64     `json:"id" gorm:"primaryKey"`
	ObjectiveID        int64     `json:"objective_id" gorm:"column:objective_id;not null"`
	Title              string    `json:"title" gorm:"not null"`
	Description        string    `json:"description"`
	AssignedTo         int64     `json:"assigned_to" gorm:"column:assigned_to;not null"`
	CreatedBy          int64     `json:"created_by" gorm:"column:created_by;not null"`
	Status             string    `json:"status" gorm:"not null;default:not_started"`
	ProgressPercentage float64   `json:"progress_percentage" gorm:"column:progress_percentage;default:0"`
	DueDate            time.Time `json:"due_date" gorm:"column:due_date;type:date"`
	CreatedAt          time.Time `json:"created_at" gorm:"column:created_at;default:CURRENT_TIMESTAMP"`
	UpdatedAt          time.Time `json:"updated_at" gorm:"column:updated_at;default:CURRENT_TIMESTAMP"`
}

func (Goal) TableName() string {
	return "goals"
}

func (g *Goal) IsActive() bool {
	return g.Status == StatusNotStarted || g.Status == StatusInProgress
}

// Task carries the only authoritative progress number in the tree; everything
// above it is derived.
type Task struct {
	ID                 int64     `json:"id" gorm:"primaryKey"`
	GoalID             int64     `json:"goal_id" gorm:"column:goal_id;not null"`
	Title              string    `json:"title" gorm:"not null"`
	Description        string    `json:"description"`
	AssignedTo         int64     `json:"assigned_to" gorm:"column:assigned_to;not null"`
	CreatedBy          int64     `json:"created_by" gorm:"column:created_by;not null"`
	Status             string    `json:"status" gorm:"not null;default:not_started"`
	Priority           string    `json:"priority" gorm:"not null;default:medium"`
	ProgressPercentage float64   `json:"progress_percentage" gorm:"column:progress_percentage;default:0"`
	EvidenceLinks      []string  `json:"evidence_links" gorm:"column:evidence_links;serializer:json"`
	CreatedAt          time.Time `json:"created_at" gorm:"column:created_at;default:CURRENT_TIMESTAMP"`
	UpdatedAt          time.Time `json:"updated_at" gorm:"column:updated_at;default:CURRENT_TIMESTAMP"`
}

func (Task) TableName() string {
	return "individual_tasks"
}

func (t *Task) IsActive() bool {
	return t.Status != StatusCompleted
}

// TaskUpdate is the append-only audit trail of task status/progress changes.
// Rows are never mutated after insert.
type TaskUpdate struct {
	ID               int64     `json:"id" gorm:"primaryKey"`
	TaskID           int64     `json:"task_id" gorm:"column:task_id;not null"`
	PreviousProgress float64   `json:"previous_progress" gorm:"column:previous_progress"`
	NewProgress      float64   `json:"new_progress" gorm:"column:new_progress"`
	PreviousStatus   string    `json:"previous_status" gorm:"column:previous_status"`
	NewStatus        string    `json:"new_status" gorm:"column:new_status"`
	UpdatedBy        int64     `json:"updated_by" gorm:"column:updated_by;not null"`
	Notes            string    `json:"notes"`
	EvidenceAdded    []string  `json:"evidence_added" gorm:"column:evidence_added;serializer:json"`
	CreatedAt        time.Time `json:"created_at" gorm:"column:created_at;default:CURRENT_TIMESTAMP"`
}

func (TaskUpdate) TableName() string {
	return "task_updates"
}

func ValidGoalStatus(status string) bool {
	switch status {
	case StatusNotStarted, StatusInProgress, StatusCompleted, StatusBlocked:
		return true
	}
	return false
}

func ValidObjectiveStatus(status string) bool {
	switch status {
	case ObjectiveStatusDraft, ObjectiveStatusActive, ObjectiveStatusCompleted, ObjectiveStatusOverdue:
		return true
	}
	return false
}

func ValidPriority(priority string) bool {
	switch priority {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

var (
	ErrObjectiveNotFound = errors.New("objective not found")
	ErrGoalNotFound      = errors.New("goal not found")
	ErrTaskNotFound      = errors.New("task not found")
)
