package domain

import "time"

type Task struct {
	TaskID      int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	AssignedTo  int64     `json:"assignedTo"`
	Priority    string    `json:"priority"`
	Deadline    string    `json:"deadline"` // expected format: YYYY-MM-DD
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type TaskInput struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	AssignedTo  int64  `json:"assignedTo"`
	Priority    string `json:"priority"`
	Deadline    string `json:"deadline"` // expected format: YYYY-MM-DD
	Status      string `json:"status"`
}

// TaskUpdate is the partial update for PUT /tasks/{id}; nil fields are left
// unchanged server-side.
type TaskUpdate struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	AssignedTo  *int64  `json:"assignedTo,omitempty"`
	Priority    *string `json:"priority,omitempty"`
	Deadline    *string `json:"deadline,omitempty"`
	Status      *string `json:"status,omitempty"`
}
