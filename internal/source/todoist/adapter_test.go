package todoist

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"monodash/internal/execx"
	"monodash/internal/model"
	"monodash/internal/source"
)

func newTestAdapter(t *testing.T, handler http.Handler, cfg model.TodoistConfig) *Adapter {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, "test-token", execx.NewPool(3), 5*time.Second, cfg)
}

func apiHandler(t *testing.T, routes map[string]any) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		payload, ok := routes[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		require.NoError(t, json.NewEncoder(w).Encode(payload))
	})
}

func TestAdapterIsAvailable(t *testing.T) {
	withToken := New("", "tok", execx.NewPool(1), time.Second, model.TodoistConfig{})
	assert.True(t, withToken.IsAvailable())

	withoutToken := New("", "", execx.NewPool(1), time.Second, model.TodoistConfig{})
	assert.False(t, withoutToken.IsAvailable())
}

func TestAdapterCheckAuth(t *testing.T) {
	ok := newTestAdapter(t, apiHandler(t, map[string]any{
		"/rest/v2/projects": []project{},
	}), model.TodoistConfig{})
	assert.True(t, ok.CheckAuth(context.Background()))

	denied := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}), model.TodoistConfig{})
	assert.False(t, denied.CheckAuth(context.Background()))
}

func TestAdapterFetchActiveTasks(t *testing.T) {
	adapter := newTestAdapter(t, apiHandler(t, map[string]any{
		"/rest/v2/projects": []project{
			{ID: "p1", Name: "Work"},
		},
		"/rest/v2/tasks": []task{
			{
				ID:        "100",
				Content:   "Write release notes",
				ProjectID: "p1",
				Priority:  4,
				URL:       "https://todoist.com/showTask?id=100",
				CreatedAt: "2026-08-01T09:00:00Z",
			},
			{
				ID:        "101",
				Content:   "Review backlog",
				ProjectID: "p1",
				Priority:  1,
				URL:       "https://todoist.com/showTask?id=101",
				CreatedAt: "2026-08-02T09:00:00Z",
			},
		},
	}), model.TodoistConfig{})

	items, err := adapter.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "TD-100", items[0].Key)
	assert.Equal(t, model.KindTodoistTask, items[0].Kind)
	assert.Equal(t, model.StatusOpen, items[0].Status)
	assert.Equal(t, model.PriorityHighest, items[0].Priority)
	assert.Equal(t, "Work", items[0].Context)

	assert.Equal(t, "TD-101", items[1].Key)
	assert.Equal(t, model.PriorityLow, items[1].Priority)
}

func TestAdapterFetchProjectFilter(t *testing.T) {
	adapter := newTestAdapter(t, apiHandler(t, map[string]any{
		"/rest/v2/projects": []project{
			{ID: "p1", Name: "Work"},
			{ID: "p2", Name: "Personal"},
		},
		"/rest/v2/tasks": []task{
			{
				ID: "1", Content: "keep", ProjectID: "p1",
				URL: "https://todoist.com/showTask?id=1",
			},
			{
				ID: "2", Content: "drop", ProjectID: "p2",
				URL: "https://todoist.com/showTask?id=2",
			},
		},
	}), model.TodoistConfig{Projects: []string{"work"}})

	items, err := adapter.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "TD-1", items[0].Key)
}

func TestAdapterFetchCompleted(t *testing.T) {
	adapter := newTestAdapter(t, apiHandler(t, map[string]any{
		"/rest/v2/projects": []project{
			{ID: "p1", Name: "Work"},
		},
		"/rest/v2/tasks": []task{},
		"/sync/v9/completed/get_all": completedResponse{
			Items: []completedItem{
				{
					ID: "900", TaskID: "42", Content: "Shipped fix",
					ProjectID: "p1", CompletedAt: "2026-08-29T10:00:00Z",
				},
			},
		},
	}), model.TodoistConfig{ShowCompleted: true, ShowCompletedFor: "48h"})

	items, err := adapter.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "TD-42", items[0].Key)
	assert.Equal(t, model.StatusDone, items[0].Status)
	assert.False(t, items[0].IsOpen())
}

func TestAdapterFetchCompletedFailureKeepsActive(t *testing.T) {
	adapter := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/rest/v2/projects":
			json.NewEncoder(w).Encode([]project{{ID: "p1", Name: "Work"}})
		case "/rest/v2/tasks":
			json.NewEncoder(w).Encode([]task{{
				ID: "1", Content: "still here", ProjectID: "p1",
				URL: "https://todoist.com/showTask?id=1",
			}})
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}), model.TodoistConfig{ShowCompleted: true})

	items, err := adapter.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "TD-1", items[0].Key)
}

func TestClientAuthError(t *testing.T) {
	adapter := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}), model.TodoistConfig{})

	_, err := adapter.Fetch(context.Background())
	require.Error(t, err)
	assert.True(t, source.IsAuthError(err))
}

func TestClientParseError(t *testing.T) {
	adapter := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}), model.TodoistConfig{})

	_, err := adapter.Fetch(context.Background())
	require.Error(t, err)
	var parseErr *source.ParseError
	assert.ErrorAs(t, err, &parseErr)
}

func TestNormalizePriority(t *testing.T) {
	assert.Equal(t, model.PriorityHighest, normalizePriority(4))
	assert.Equal(t, model.PriorityHigh, normalizePriority(3))
	assert.Equal(t, model.PriorityMedium, normalizePriority(2))
	assert.Equal(t, model.PriorityLow, normalizePriority(1))
	assert.Equal(t, model.PriorityMedium, normalizePriority(0))
}
