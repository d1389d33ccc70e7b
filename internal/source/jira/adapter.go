// Package jira fetches work items through the acli CLI.
package jira

import (
	"context"
	"log"
	"os/exec"
	"strings"

	"monodash/internal/execx"
	"monodash/internal/model"
	"monodash/internal/source"
)

const cliName = "acli"

// defaultJQL selects the current user's unfinished work.
const defaultJQL = "assignee = currentUser() AND statusCategory != Done"

// workItem mirrors the fields consumed from acli's JSON output. acli emits
// the REST shape: a key, a fields object, and the API self URL.
type workItem struct {
	Key    string `json:"key"`
	Self   string `json:"self"`
	Fields struct {
		Summary string `json:"summary"`
		Status  struct {
			Name string `json:"name"`
		} `json:"status"`
		Priority struct {
			Name string `json:"name"`
		} `json:"priority"`
		Assignee *struct {
			DisplayName string `json:"displayName"`
		} `json:"assignee"`
	} `json:"fields"`
}

// Adapter implements source.Source for Jira work items.
type Adapter struct {
	runner *execx.Runner
	jql    string
}

// New creates a Jira adapter. An empty JQL falls back to the default
// "assigned to me, not done" query.
func New(runner *execx.Runner, cfg model.JiraConfig) *Adapter {
	jql := cfg.JQL
	if jql == "" {
		jql = defaultJQL
	}
	return &Adapter{runner: runner, jql: jql}
}

func (a *Adapter) Kind() model.Kind       { return model.KindJiraIssue }
func (a *Adapter) Section() model.Section { return model.SectionWork }
func (a *Adapter) Name() string           { return cliName }

// IsAvailable reports whether acli is on PATH.
func (a *Adapter) IsAvailable() bool {
	_, err := exec.LookPath(cliName)
	return err == nil
}

// CheckAuth runs `acli jira auth status`.
func (a *Adapter) CheckAuth(ctx context.Context) bool {
	res, err := a.runner.Run(ctx, cliName, "jira", "auth", "status")
	return source.ClassifyRun(cliName, res, err) == nil
}

// Fetch returns the work items matching the configured JQL.
func (a *Adapter) Fetch(ctx context.Context) ([]model.Item, error) {
	res, err := a.runner.Run(ctx, cliName,
		"jira", "workitem", "search",
		"--jql", a.jql,
		"--json",
	)
	if clsErr := source.ClassifyRun(cliName, res, err); clsErr != nil {
		return nil, clsErr
	}

	records, err := source.DecodeArray[workItem](cliName, res.Stdout)
	if err != nil {
		return nil, err
	}

	items := make([]model.Item, 0, len(records))
	for _, rec := range records {
		item := toItem(rec)
		if err := item.Validate(); err != nil {
			log.Printf("%s: dropping work item: %v", cliName, err)
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

func toItem(rec workItem) model.Item {
	assignee := ""
	if rec.Fields.Assignee != nil {
		assignee = rec.Fields.Assignee.DisplayName
	}

	return model.Item{
		Kind:     model.KindJiraIssue,
		Key:      rec.Key,
		Title:    rec.Fields.Summary,
		Status:   normalizeStatus(rec.Fields.Status.Name),
		Priority: normalizePriority(rec.Fields.Priority.Name),
		Context:  assignee,
		URL:      browseURL(rec.Self, rec.Key),
	}
}

// browseURL rewrites the REST API self URL into the browser URL
// (.../rest/api/2/issue/PROJ-7 becomes .../browse/PROJ-7).
func browseURL(self, key string) string {
	idx := strings.Index(self, "/rest/api/")
	if idx < 0 {
		return ""
	}
	return self[:idx] + "/browse/" + key
}

// normalizeStatus maps Jira status names onto the shared vocabulary.
// Anything not recognizably finished counts as open.
func normalizeStatus(name string) model.Status {
	switch strings.ToLower(name) {
	case "done", "closed", "resolved":
		return model.StatusDone
	default:
		return model.StatusOpen
	}
}

// normalizePriority maps Jira priority names onto the shared labels,
// defaulting unknown vocabularies to medium.
func normalizePriority(name string) string {
	switch strings.ToLower(name) {
	case "highest", "blocker", "critical":
		return model.PriorityHighest
	case "high", "major":
		return model.PriorityHigh
	case "medium", "normal":
		return model.PriorityMedium
	case "low", "lowest", "minor", "trivial":
		return model.PriorityLow
	default:
		return model.PriorityMedium
	}
}
