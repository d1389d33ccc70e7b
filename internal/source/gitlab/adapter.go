// Package gitlab fetches merge requests through the glab CLI.
package gitlab

import (
	"context"
	"fmt"
	"log"
	"os/exec"
	"time"

	"monodash/internal/execx"
	"monodash/internal/model"
	"monodash/internal/source"
)

const cliName = "glab"

// mergeRequest mirrors the fields consumed from glab's JSON output.
type mergeRequest struct {
	IID    int    `json:"iid"`
	Title  string `json:"title"`
	State  string `json:"state"` // "opened", "closed", "merged", "locked"
	Draft  bool   `json:"draft"`
	WebURL string `json:"web_url"`
	Author struct {
		Username string `json:"username"`
		Name     string `json:"name"`
	} `json:"author"`
	CreatedAt string `json:"created_at"`
}

// Adapter implements source.Source for GitLab merge requests.
type Adapter struct {
	runner *execx.Runner
	group  string
}

// New creates a GitLab adapter. The group scopes every MR query.
func New(runner *execx.Runner, cfg model.GitLabConfig) *Adapter {
	return &Adapter{runner: runner, group: cfg.Group}
}

func (a *Adapter) Kind() model.Kind       { return model.KindGitLabMR }
func (a *Adapter) Section() model.Section { return model.SectionReviews }
func (a *Adapter) Name() string           { return cliName }

// IsAvailable reports whether glab is on PATH.
func (a *Adapter) IsAvailable() bool {
	_, err := exec.LookPath(cliName)
	return err == nil
}

// CheckAuth runs `glab auth status`, which exits non-zero and prints an
// auth-shaped message when no host is logged in.
func (a *Adapter) CheckAuth(ctx context.Context) bool {
	res, err := a.runner.Run(ctx, cliName, "auth", "status")
	return source.ClassifyRun(cliName, res, err) == nil
}

// Fetch returns MRs assigned to the current user merged with MRs awaiting
// the user's review, deduplicated by IID.
func (a *Adapter) Fetch(ctx context.Context) ([]model.Item, error) {
	if a.group == "" {
		return nil, &source.TransientError{
			Name: cliName,
			Err:  fmt.Errorf("gitlab.group is not configured"),
		}
	}

	assigned, err := a.list(ctx, "--assignee", "@me")
	if err != nil {
		return nil, err
	}
	reviewing, err := a.list(ctx, "--reviewer", "@me")
	if err != nil {
		return nil, err
	}

	seen := make(map[int]bool, len(assigned))
	var items []model.Item
	for _, mrs := range [][]mergeRequest{assigned, reviewing} {
		for _, mr := range mrs {
			if seen[mr.IID] {
				continue
			}
			seen[mr.IID] = true

			item := toItem(mr)
			if err := item.Validate(); err != nil {
				log.Printf("%s: dropping merge request: %v", cliName, err)
				continue
			}
			items = append(items, item)
		}
	}
	return items, nil
}

// list runs one `glab mr list` invocation with the given role filter.
func (a *Adapter) list(ctx context.Context, filter, value string) ([]mergeRequest, error) {
	res, err := a.runner.Run(ctx, cliName,
		"mr", "list",
		"--all",
		"--group", a.group,
		filter, value,
		"--output", "json",
	)
	if clsErr := source.ClassifyRun(cliName, res, err); clsErr != nil {
		return nil, clsErr
	}
	return source.DecodeArray[mergeRequest](cliName, res.Stdout)
}

func toItem(mr mergeRequest) model.Item {
	status := normalizeState(mr.State, mr.Draft)

	author := mr.Author.Username
	if author == "" {
		author = mr.Author.Name
	}

	return model.Item{
		Kind:      model.KindGitLabMR,
		Key:       fmt.Sprintf("!%d", mr.IID),
		Title:     mr.Title,
		Status:    status,
		Context:   author,
		URL:       mr.WebURL,
		CreatedAt: parseTime(mr.CreatedAt),
	}
}

// normalizeState maps glab MR states onto the shared vocabulary. Unknown
// values are treated as open rather than rejected.
func normalizeState(state string, draft bool) model.Status {
	switch state {
	case "merged":
		return model.StatusMerged
	case "closed", "locked":
		return model.StatusClosed
	case "opened":
		if draft {
			return model.StatusDraft
		}
		return model.StatusOpen
	default:
		return model.StatusOpen
	}
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
