package models

import "time"

// Project groups tasks and carries the user's manual sidebar order.
type Project struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	OrderIndex int64     `json:"order_index"`
	CreatedAt  time.Time `json:"created_at"`
}

// Task represents a single card on the kanban board.
type Task struct {
	ID           int64     `json:"id"`
	ProjectID    int64     `json:"project_id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Status       Status    `json:"status"`
	Priority     Priority  `json:"priority"`
	Blocker      string    `json:"blocker"`
	AssignedDate NullTime  `json:"assigned_date"`
	StartDate    NullTime  `json:"start_date"`
	EndDate      NullTime  `json:"end_date"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Blocked reports whether the task carries a blocker note.
func (t Task) Blocked() bool {
	return t.Blocker != ""
}

// TaskFields holds the values of the create form.
type TaskFields struct {
	Title       string
	Description string
	Status      Status
	Priority    Priority
	Blocker     string
}

// TaskUpdate is a partial edit. Nil fields are left unchanged; a pointer to
// an empty string clears an optional text field, and an invalid NullTime
// clears a date.
type TaskUpdate struct {
	Title        *string
	Description  *string
	Status       *Status
	Priority     *Priority
	Blocker      *string
	AssignedDate *NullTime
	StartDate    *NullTime
	EndDate      *NullTime
}

// SearchResult is a task hit from the sidebar search box, carrying enough to
// navigate to the task and render a preview.
type SearchResult struct {
	TaskID      int64    `json:"task_id"`
	ProjectID   int64    `json:"project_id"`
	Title       string   `json:"title"`
	Status      Status   `json:"status"`
	Priority    Priority `json:"priority"`
	ProjectName string   `json:"project_name"`
}

// ProjectTasks pairs a project with all of its tasks.
type ProjectTasks struct {
	Project Project `json:"project"`
	Tasks   []Task  `json:"tasks"`
}
