package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSortItemsOpenFirstThenKey(t *testing.T) {
	items := []Item{
		{Kind: KindGitLabMR, Key: "B", Title: "b", Status: StatusOpen, URL: "https://x/b"},
		{Kind: KindGitHubPR, Key: "A", Title: "a", Status: StatusOpen, URL: "https://x/a"},
		{Kind: KindGitLabMR, Key: "C", Title: "c", Status: StatusMerged, URL: "https://x/c"},
	}

	SortItems(items)

	keys := []string{items[0].Key, items[1].Key, items[2].Key}
	assert.Equal(t, []string{"A", "B", "C"}, keys)
}

func TestSortItemsClosedGroupStaysLexical(t *testing.T) {
	items := []Item{
		{Key: "Z", Status: StatusDone},
		{Key: "M", Status: StatusClosed},
		{Key: "B", Status: StatusDraft},
		{Key: "A", Status: StatusClosed},
	}

	SortItems(items)

	// Draft counts as open and sorts ahead of every settled item.
	assert.Equal(t, "B", items[0].Key)
	assert.Equal(t, "A", items[1].Key)
	assert.Equal(t, "M", items[2].Key)
	assert.Equal(t, "Z", items[3].Key)
}

func TestIsOpen(t *testing.T) {
	assert.True(t, Item{Status: StatusOpen}.IsOpen())
	assert.True(t, Item{Status: StatusDraft}.IsOpen())
	assert.False(t, Item{Status: StatusClosed}.IsOpen())
	assert.False(t, Item{Status: StatusMerged}.IsOpen())
	assert.False(t, Item{Status: StatusDone}.IsOpen())
}

func TestValidate(t *testing.T) {
	valid := Item{
		Kind:   KindJiraIssue,
		Key:    "PROJ-7",
		Title:  "Fix the thing",
		Status: StatusOpen,
		URL:    "https://jira.example.com/browse/PROJ-7",
	}
	require.NoError(t, valid.Validate())

	cases := map[string]Item{
		"missing key":   {Kind: KindJiraIssue, Title: "t", URL: "https://x/y"},
		"missing title": {Kind: KindJiraIssue, Key: "K-1", URL: "https://x/y"},
		"relative url":  {Kind: KindJiraIssue, Key: "K-1", Title: "t", URL: "/browse/K-1"},
		"empty url":     {Kind: KindJiraIssue, Key: "K-1", Title: "t"},
		"missing kind":  {Key: "K-1", Title: "t", URL: "https://x/y"},
	}
	for name, item := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, item.Validate())
		})
	}
}

func TestKindIcons(t *testing.T) {
	for _, k := range []Kind{KindGitLabMR, KindGitHubPR, KindJiraIssue, KindTodoistTask} {
		assert.NotEmpty(t, k.Icon())
	}
}
