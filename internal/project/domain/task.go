package domain

import "time"

// Priority represents task priority level
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// PriorityRank orders priorities for at-risk sorting (higher sorts first).
func PriorityRank(p Priority) int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// TaskStatus represents the current state of a task
type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusBlocked    TaskStatus = "blocked"
	TaskStatusDone       TaskStatus = "done"
	TaskStatusArchived   TaskStatus = "archived"
)

// IsDone reports whether the status is a done-equivalent terminal state.
func (s TaskStatus) IsDone() bool {
	return s == TaskStatusDone || s == TaskStatusArchived
}

// Task is the read model for a project task
type Task struct {
	ID         string     `json:"id" gorm:"primaryKey"`
	ProjectID  string     `json:"project_id" gorm:"index;not null"`
	Title      string     `json:"title" gorm:"not null"`
	Component  string     `json:"component,omitempty"`
	Status     TaskStatus `json:"status" gorm:"default:todo;index"`
	Priority   Priority   `json:"priority" gorm:"default:medium"`
	DueDate    *time.Time `json:"due_date,omitempty"`
	AssigneeID *string    `json:"assignee_id,omitempty" gorm:"index"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Activity types recorded against a task
const (
	ActivityStatusChange = "status_change"
	ActivityComment      = "comment"
	ActivityAssignment   = "assignment"
)

// TaskActivity is one event in a task's history. Status-change activities
// into a done state are what the snapshot builder counts as completed work.
type TaskActivity struct {
	ID         string     `json:"id" gorm:"primaryKey"`
	TaskID     string     `json:"task_id" gorm:"index;not null"`
	ProjectID  string     `json:"project_id" gorm:"index;not null"`
	ActorID    string     `json:"actor_id"`
	Type       string     `json:"type" gorm:"not null"`
	FromStatus TaskStatus `json:"from_status,omitempty"`
	ToStatus   TaskStatus `json:"to_status,omitempty"`
	CreatedAt  time.Time  `json:"created_at" gorm:"index"`
}
