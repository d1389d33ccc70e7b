// Package github fetches pull requests through the gh CLI.
package github

import (
	"context"
	"fmt"
	"log"
	"os/exec"
	"strings"
	"time"

	"monodash/internal/execx"
	"monodash/internal/model"
	"monodash/internal/source"
)

const cliName = "gh"

// prFields is the --json field list shared by both queries.
const prFields = "number,title,state,author,url,createdAt,isDraft"

// pullRequest mirrors the fields consumed from gh's JSON output.
type pullRequest struct {
	Number  int    `json:"number"`
	Title   string `json:"title"`
	State   string `json:"state"` // "OPEN", "CLOSED", "MERGED"
	IsDraft bool   `json:"isDraft"`
	URL     string `json:"url"`
	Author  struct {
		Login string `json:"login"`
	} `json:"author"`
	CreatedAt string `json:"createdAt"`
}

// Adapter implements source.Source for GitHub pull requests.
type Adapter struct {
	runner *execx.Runner
}

// New creates a GitHub adapter.
func New(runner *execx.Runner) *Adapter {
	return &Adapter{runner: runner}
}

func (a *Adapter) Kind() model.Kind       { return model.KindGitHubPR }
func (a *Adapter) Section() model.Section { return model.SectionReviews }
func (a *Adapter) Name() string           { return cliName }

// IsAvailable reports whether gh is on PATH.
func (a *Adapter) IsAvailable() bool {
	_, err := exec.LookPath(cliName)
	return err == nil
}

// CheckAuth runs `gh auth status`.
func (a *Adapter) CheckAuth(ctx context.Context) bool {
	res, err := a.runner.Run(ctx, cliName, "auth", "status")
	return source.ClassifyRun(cliName, res, err) == nil
}

// Fetch returns open PRs assigned to the current user merged with PRs where
// the user's review is requested, deduplicated by number.
func (a *Adapter) Fetch(ctx context.Context) ([]model.Item, error) {
	assigned, err := a.run(ctx,
		"pr", "list",
		"--assignee", "@me",
		"--state", "open",
		"--json", prFields,
	)
	if err != nil {
		return nil, err
	}

	// gh pr list has no review-requested filter; use search instead.
	reviewing, err := a.run(ctx,
		"search", "prs",
		"--review-requested", "@me",
		"--state", "open",
		"--json", prFields,
	)
	if err != nil {
		return nil, err
	}

	seen := make(map[int]bool, len(assigned))
	var items []model.Item
	for _, prs := range [][]pullRequest{assigned, reviewing} {
		for _, pr := range prs {
			if seen[pr.Number] {
				continue
			}
			seen[pr.Number] = true

			item := toItem(pr)
			if err := item.Validate(); err != nil {
				log.Printf("%s: dropping pull request: %v", cliName, err)
				continue
			}
			items = append(items, item)
		}
	}
	return items, nil
}

func (a *Adapter) run(ctx context.Context, args ...string) ([]pullRequest, error) {
	res, err := a.runner.Run(ctx, cliName, args...)
	if clsErr := source.ClassifyRun(cliName, res, err); clsErr != nil {
		return nil, clsErr
	}
	return source.DecodeArray[pullRequest](cliName, res.Stdout)
}

func toItem(pr pullRequest) model.Item {
	return model.Item{
		Kind:      model.KindGitHubPR,
		Key:       fmt.Sprintf("#%d", pr.Number),
		Title:     pr.Title,
		Status:    normalizeState(pr.State, pr.IsDraft),
		Context:   pr.Author.Login,
		URL:       pr.URL,
		CreatedAt: parseTime(pr.CreatedAt),
	}
}

// normalizeState maps gh PR states (upper-cased in JSON output) onto the
// shared vocabulary.
func normalizeState(state string, draft bool) model.Status {
	switch strings.ToLower(state) {
	case "merged":
		return model.StatusMerged
	case "closed":
		return model.StatusClosed
	case "open":
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
