package model

import (
	"fmt"
	"net/url"
	"sort"
	"time"
)

// Kind identifies the origin platform of a normalized item.
type Kind string

const (
	KindGitLabMR    Kind = "gitlab_mr"
	KindGitHubPR    Kind = "github_pr"
	KindJiraIssue   Kind = "jira_issue"
	KindTodoistTask Kind = "todoist_task"
)

// Icon returns the glyph shown next to items of this kind.
func (k Kind) Icon() string {
	switch k {
	case KindGitLabMR:
		return "🦊"
	case KindGitHubPR:
		return "🐙"
	case KindJiraIssue:
		return "🔴"
	case KindTodoistTask:
		return "📝"
	default:
		return "•"
	}
}

// Section identifies one of the two dashboard sections.
type Section string

const (
	SectionReviews Section = "reviews"
	SectionWork    Section = "work"
)

// Sections lists all dashboard sections in display order.
var Sections = []Section{SectionReviews, SectionWork}

// Title returns the human-readable section heading.
func (s Section) Title() string {
	switch s {
	case SectionReviews:
		return "Pull/merge requests"
	case SectionWork:
		return "Work items"
	default:
		return string(s)
	}
}

// Status is the normalized status vocabulary shared by all kinds.
type Status string

const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
	StatusMerged Status = "merged"
	StatusDraft  Status = "draft"
	StatusDone   Status = "done"
)

// Normalized priority labels. Unknown source priorities map to PriorityMedium.
const (
	PriorityHighest = "highest"
	PriorityHigh    = "high"
	PriorityMedium  = "medium"
	PriorityLow     = "low"
)

// Item is the unified representation of a code review request or work item
// from any source. Items are constructed by a source adapter, validated once,
// and never mutated afterwards.
type Item struct {
	// Kind identifies which platform produced this item.
	Kind Kind `json:"kind"`

	// Key is the short human identifier, unique within a kind
	// (e.g. "!42", "#123", "PROJ-7", "TD-99").
	Key string `json:"key"`

	// Title is the full, untruncated summary.
	Title string `json:"title"`

	// Status is the normalized status (use Status* constants).
	Status Status `json:"status"`

	// Priority is the optional normalized priority label.
	Priority string `json:"priority,omitempty"`

	// Context is the secondary display slot: author, assignee, or
	// project name depending on the kind.
	Context string `json:"context,omitempty"`

	// URL is the absolute browser link for the item.
	URL string `json:"url"`

	// CreatedAt is when the item was created in its source system.
	// Zero when the source did not report it.
	CreatedAt time.Time `json:"created_at,omitzero"`
}

// IsOpen reports whether the item still needs attention.
// Draft counts as open; merged, closed, and done do not.
func (i Item) IsOpen() bool {
	return i.Status == StatusOpen || i.Status == StatusDraft
}

// Icon returns the glyph for the item's kind.
func (i Item) Icon() string {
	return i.Kind.Icon()
}

// Validate reports whether the item is displayable. Items without a key,
// title, or resolvable absolute URL are dropped by adapters rather than
// emitted, since "open in browser" must always work.
func (i Item) Validate() error {
	if i.Kind == "" {
		return fmt.Errorf("item missing kind")
	}
	if i.Key == "" {
		return fmt.Errorf("item missing key")
	}
	if i.Title == "" {
		return fmt.Errorf("item %s missing title", i.Key)
	}
	u, err := url.Parse(i.URL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("item %s has no absolute URL (%q)", i.Key, i.URL)
	}
	return nil
}

// SortItems orders items for display: open items first, then stable lexical
// order by key within each group. Key is the only field comparable across
// kinds, so this exact ordering is relied on by the merge step.
func SortItems(items []Item) {
	sort.SliceStable(items, func(a, b int) bool {
		ao, bo := items[a].IsOpen(), items[b].IsOpen()
		if ao != bo {
			return ao
		}
		return items[a].Key < items[b].Key
	})
}
