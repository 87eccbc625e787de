package todoist

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c := NewClient("secret")
	c.SetBaseURL(srv.URL + "/")
	return c
}

func TestListTasksFiltersByProject(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "/tasks", r.URL.Path)
		assert.Equal(t, "p1", r.URL.Query().Get("project_id"))
		w.Write([]byte(`[{"id":"t1","content":"💊 Iron","description":"mediremind:r1","due":{"string":"every day at 08:00","is_recurring":true}}]`))
	})
	c.SetProjectID("p1")

	tasks, err := c.ListTasks(context.Background())
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "t1", tasks[0].ID)
	require.NotNil(t, tasks[0].Due)
	assert.True(t, tasks[0].Due.IsRecurring)
}

func TestCreateTaskDefaultsProject(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "p1", body["project_id"])
		assert.Equal(t, "every weekday at 09:30", body["due_string"])
		w.Write([]byte(`{"id":"t9","content":"x"}`))
	})
	c.SetProjectID("p1")

	task, err := c.CreateTask(context.Background(), &CreateTaskRequest{Content: "x", DueString: "every weekday at 09:30"})
	require.NoError(t, err)
	assert.Equal(t, "t9", task.ID)
}

func TestDeleteTaskNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/tasks/t1", r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
	})

	err := c.DeleteTask(context.Background(), "t1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAPIErrorCarriesStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte("Forbidden"))
	})

	content := "y"
	err := c.UpdateTask(context.Background(), "t1", &UpdateTaskRequest{Content: &content})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API error 403: Forbidden")
}

func TestFindProject(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/projects", r.URL.Path)
		w.Write([]byte(`[{"id":"1","name":"Inbox"},{"id":"2","name":"Medication"}]`))
	})
	ctx := context.Background()

	p, err := c.FindProject(ctx, "medication")
	require.NoError(t, err)
	assert.Equal(t, "2", p.ID)

	p, err = c.FindProject(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "Inbox", p.Name)

	_, err = c.FindProject(ctx, "Work")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestIsConfigured(t *testing.T) {
	assert.False(t, NewClient("").IsConfigured())
	assert.True(t, NewClient("x").IsConfigured())
}
