package types

import "time"

// Priority is the urgency level of a todo item.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Valid reports whether p is one of the three enumerated priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// Todo represents a single todo item owned by a user.
type Todo struct {
	// ID is the unique identifier of the todo, an opaque string
	// generated at creation.
	ID string `json:"id" db:"id"`

	// UserID is the identifier of the owning user. It is nil only for
	// rows that predate account support.
	UserID *string `json:"user_id,omitempty" db:"user_id"`

	// Text is the free-text description of the todo.
	Text string `json:"text" db:"text"`

	// Completed indicates whether the todo has been done.
	Completed bool `json:"completed" db:"completed"`

	// Category is an optional free-text grouping label.
	Category *string `json:"category,omitempty" db:"category"`

	// Tags are free-form labels associated with the todo. Order is
	// preserved across storage round trips.
	Tags []string `json:"tags,omitempty" db:"tags"`

	// Priority is the optional urgency level, one of high, medium or low.
	Priority *Priority `json:"priority,omitempty" db:"priority"`

	// DueDate is the optional point in time the todo is due.
	DueDate *time.Time `json:"due_date,omitempty" db:"due_date"`

	// CreatedAt is the timestamp at which the todo was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the todo.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
