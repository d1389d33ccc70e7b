// Package todoist fetches tasks from the hosted Todoist REST API. Unlike
// the CLI-backed sources, availability means "a token is configured".
package todoist

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"monodash/internal/execx"
	"monodash/internal/model"
)

const apiName = "todoist"

// Adapter implements source.Source for Todoist tasks.
type Adapter struct {
	client *Client
	token  string
	cfg    model.TodoistConfig
}

// New creates a Todoist adapter. baseURL is overridable for tests; pass ""
// for the hosted API.
func New(baseURL, token string, pool *execx.Pool, timeout time.Duration, cfg model.TodoistConfig) *Adapter {
	return &Adapter{
		client: NewClient(baseURL, token, pool, timeout),
		token:  token,
		cfg:    cfg,
	}
}

func (a *Adapter) Kind() model.Kind       { return model.KindTodoistTask }
func (a *Adapter) Section() model.Section { return model.SectionWork }
func (a *Adapter) Name() string           { return apiName }

// IsAvailable reports whether a token is configured. No network call.
func (a *Adapter) IsAvailable() bool {
	return a.token != ""
}

// CheckAuth probes the token with one lightweight projects listing.
func (a *Adapter) CheckAuth(ctx context.Context) bool {
	var projects []project
	return a.client.Get(ctx, "/rest/v2/projects", &projects) == nil
}

// Fetch returns active tasks, plus completed ones when configured, filtered
// by the optional project allow-list.
func (a *Adapter) Fetch(ctx context.Context) ([]model.Item, error) {
	var projects []project
	if err := a.client.Get(ctx, "/rest/v2/projects", &projects); err != nil {
		return nil, err
	}

	projectNames := make(map[string]string, len(projects))
	for _, p := range projects {
		projectNames[p.ID] = p.Name
	}
	allowed := a.allowedProjects(projects)

	var tasks []task
	if err := a.client.Get(ctx, "/rest/v2/tasks", &tasks); err != nil {
		return nil, err
	}

	var items []model.Item
	for _, tk := range tasks {
		if allowed != nil && !allowed[tk.ProjectID] {
			continue
		}
		item := toItem(tk, projectNames[tk.ProjectID])
		if err := item.Validate(); err != nil {
			log.Printf("%s: dropping task: %v", apiName, err)
			continue
		}
		items = append(items, item)
	}

	if a.cfg.ShowCompleted {
		completed, err := a.fetchCompleted(ctx, allowed, projectNames)
		if err != nil {
			// Active tasks already fetched; a completed-log failure
			// should not blank them out.
			log.Printf("%s: completed tasks unavailable: %v", apiName, err)
		} else {
			items = append(items, completed...)
		}
	}

	return items, nil
}

// allowedProjects resolves the configured name allow-list to project IDs.
// Nil means no filtering.
func (a *Adapter) allowedProjects(projects []project) map[string]bool {
	if len(a.cfg.Projects) == 0 {
		return nil
	}
	wanted := make(map[string]bool, len(a.cfg.Projects))
	for _, name := range a.cfg.Projects {
		wanted[strings.ToLower(name)] = true
	}
	allowed := make(map[string]bool)
	for _, p := range projects {
		if wanted[strings.ToLower(p.Name)] {
			allowed[p.ID] = true
		}
	}
	return allowed
}

// fetchCompleted reads the completed activity log, windowed when
// show_completed_for is configured.
func (a *Adapter) fetchCompleted(
	ctx context.Context,
	allowed map[string]bool,
	projectNames map[string]string,
) ([]model.Item, error) {
	path := "/sync/v9/completed/get_all?limit=100"
	if window := a.cfg.CompletedWindow(); window > 0 {
		since := time.Now().UTC().Add(-window).Format("2006-01-02T15:04:05Z")
		path += "&since=" + url.QueryEscape(since)
	}

	var resp completedResponse
	if err := a.client.Get(ctx, path, &resp); err != nil {
		return nil, err
	}

	var items []model.Item
	for _, ci := range resp.Items {
		if allowed != nil && !allowed[ci.ProjectID] {
			continue
		}
		item := completedToItem(ci, projectNames[ci.ProjectID])
		if err := item.Validate(); err != nil {
			log.Printf("%s: dropping completed task: %v", apiName, err)
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

func toItem(tk task, projectName string) model.Item {
	status := model.StatusOpen
	if tk.IsCompleted {
		status = model.StatusDone
	}

	return model.Item{
		Kind:      model.KindTodoistTask,
		Key:       "TD-" + tk.ID,
		Title:     tk.Content,
		Status:    status,
		Priority:  normalizePriority(tk.Priority),
		Context:   projectName,
		URL:       tk.URL,
		CreatedAt: parseTime(tk.CreatedAt),
	}
}

func completedToItem(ci completedItem, projectName string) model.Item {
	taskID := ci.TaskID
	if taskID == "" {
		taskID = ci.ID
	}

	return model.Item{
		Kind:     model.KindTodoistTask,
		Key:      "TD-" + taskID,
		Title:    ci.Content,
		Status:   model.StatusDone,
		Priority: model.PriorityLow,
		Context:  projectName,
		// The completed log carries no URL; reconstruct the task link.
		URL:       fmt.Sprintf("https://todoist.com/showTask?id=%s", taskID),
		CreatedAt: parseTime(ci.CompletedAt),
	}
}

// normalizePriority maps the API's inverted 1-4 scale (4 = urgent) onto
// the shared labels.
func normalizePriority(p int) string {
	switch p {
	case 4:
		return model.PriorityHighest
	case 3:
		return model.PriorityHigh
	case 2:
		return model.PriorityMedium
	case 1:
		return model.PriorityLow
	default:
		return model.PriorityMedium
	}
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
