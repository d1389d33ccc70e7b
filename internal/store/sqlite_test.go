package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"monodash/internal/model"
	"monodash/internal/store"
	"monodash/tests/testutil"
)

func reviewItem(key string, status model.Status) model.Item {
	return model.Item{
		Kind:      model.KindGitLabMR,
		Key:       key,
		Title:     "item " + key,
		Status:    status,
		Priority:  model.PriorityMedium,
		Context:   "alice",
		URL:       "https://gitlab.example.com/mr/" + key,
		CreatedAt: time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC),
	}
}

func TestReplaceAndGetSection(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	fetchedAt := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	items := []model.Item{
		reviewItem("!2", model.StatusOpen),
		reviewItem("!1", model.StatusMerged),
	}
	require.NoError(t, s.ReplaceSection(ctx, model.SectionReviews, items, fetchedAt))

	got, gotAt, err := s.GetSection(ctx, model.SectionReviews)
	require.NoError(t, err)
	require.Len(t, got, 2)

	// Open before closed regardless of key order.
	assert.Equal(t, "!2", got[0].Key)
	assert.Equal(t, "!1", got[1].Key)
	assert.Equal(t, model.KindGitLabMR, got[0].Kind)
	assert.Equal(t, "alice", got[0].Context)
	assert.True(t, fetchedAt.Equal(gotAt))
}

func TestReplaceSectionSwapsAtomically(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.ReplaceSection(ctx, model.SectionReviews,
		[]model.Item{reviewItem("!1", model.StatusOpen)}, time.Now()))
	require.NoError(t, s.ReplaceSection(ctx, model.SectionReviews,
		[]model.Item{reviewItem("!9", model.StatusOpen)}, time.Now()))

	got, _, err := s.GetSection(ctx, model.SectionReviews)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "!9", got[0].Key)
}

func TestSectionsAreIsolated(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.ReplaceSection(ctx, model.SectionReviews,
		[]model.Item{reviewItem("!1", model.StatusOpen)}, time.Now()))

	got, gotAt, err := s.GetSection(ctx, model.SectionWork)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.True(t, gotAt.IsZero())
}

func TestPrefs(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	val, err := s.GetPref(ctx, store.PrefActiveSection)
	require.NoError(t, err)
	assert.Empty(t, val)

	require.NoError(t, s.SetPref(ctx, store.PrefActiveSection, "work"))
	require.NoError(t, s.SetPref(ctx, store.PrefActiveSection, "reviews"))

	val, err = s.GetPref(ctx, store.PrefActiveSection)
	require.NoError(t, err)
	assert.Equal(t, "reviews", val)
}

func TestFetchErrorLog(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordFetchError(ctx, model.SectionReviews, "glab", "exit status 1"))
	require.NoError(t, s.RecordFetchError(ctx, model.SectionWork, "todoist", "unexpected status 502"))

	errs, err := s.RecentFetchErrors(ctx, 10)
	require.NoError(t, err)
	require.Len(t, errs, 2)

	sources := []string{errs[0].Source, errs[1].Source}
	assert.ElementsMatch(t, []string{"glab", "todoist"}, sources)
	assert.NotEmpty(t, errs[0].ID)
	assert.NotEqual(t, errs[0].ID, errs[1].ID)
}

func TestFresh(t *testing.T) {
	ttl := 5 * time.Minute
	assert.True(t, store.Fresh(time.Now().Add(-time.Minute), ttl))
	assert.False(t, store.Fresh(time.Now().Add(-10*time.Minute), ttl))
	assert.False(t, store.Fresh(time.Time{}, ttl))
	assert.False(t, store.Fresh(time.Now(), 0))
}
