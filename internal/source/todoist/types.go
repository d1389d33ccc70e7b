package todoist

// task is an active task from the REST v2 /tasks endpoint.
type task struct {
	ID        string `json:"id"`
	Content   string `json:"content"`
	ProjectID string `json:"project_id"`
	// API priority is inverted from the UI: 4 is urgent (UI p1),
	// 1 is normal (UI p4).
	Priority    int    `json:"priority"`
	URL         string `json:"url"`
	CreatedAt   string `json:"created_at"`
	IsCompleted bool   `json:"is_completed"`
	Due         *due   `json:"due"`
}

// due holds task due-date information; all fields optional.
type due struct {
	Date     string `json:"date"`
	Datetime string `json:"datetime"`
	String   string `json:"string"`
}

// project is a project from the REST v2 /projects endpoint.
type project struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// completedResponse is the envelope from the sync v9 completed/get_all
// endpoint.
type completedResponse struct {
	Items []completedItem `json:"items"`
}

// completedItem is one finished task from the completed activity log.
type completedItem struct {
	ID          string `json:"id"`
	TaskID      string `json:"task_id"`
	Content     string `json:"content"`
	ProjectID   string `json:"project_id"`
	CompletedAt string `json:"completed_at"`
}
