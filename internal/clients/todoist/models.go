package todoist

import "time"

// Task represents a Todoist task
type Task struct {
	ID          string    `json:"id"`
	ProjectID   string    `json:"project_id,omitempty"`
	Content     string    `json:"content"`
	Description string    `json:"description,omitempty"`
	Priority    int       `json:"priority,omitempty"` // 1 (normal) to 4 (urgent)
	Due         *Due      `json:"due,omitempty"`
	Labels      []string  `json:"labels,omitempty"`
	IsCompleted bool      `json:"is_completed,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
	URL         string    `json:"url,omitempty"`
}

// Due represents due date info
type Due struct {
	String      string `json:"string,omitempty"` // Human readable
	Date        string `json:"date,omitempty"`   // YYYY-MM-DD
	DateTime    string `json:"datetime,omitempty"`
	IsRecurring bool   `json:"is_recurring,omitempty"`
	Timezone    string `json:"timezone,omitempty"`
}

// CreateTaskRequest for creating a new task
type CreateTaskRequest struct {
	Content     string   `json:"content"`
	Description string   `json:"description,omitempty"`
	ProjectID   string   `json:"project_id,omitempty"`
	Priority    int      `json:"priority,omitempty"`
	DueString   string   `json:"due_string,omitempty"`
	DueLang     string   `json:"due_lang,omitempty"`
	Labels      []string `json:"labels,omitempty"`
}

// UpdateTaskRequest for updating a task
type UpdateTaskRequest struct {
	Content     *string  `json:"content,omitempty"`
	Description *string  `json:"description,omitempty"`
	Priority    *int     `json:"priority,omitempty"`
	DueString   *string  `json:"due_string,omitempty"`
	Labels      []string `json:"labels,omitempty"`
}

// Project represents a Todoist project
type Project struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
