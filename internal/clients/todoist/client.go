package todoist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	BaseURL = "https://api.todoist.com/rest/v2"
)

var ErrNotFound = errors.New("todoist: not found")

// Client is a Todoist REST client scoped to one project
type Client struct {
	token      string
	baseURL    string
	httpClient *http.Client
	projectID  string
}

// NewClient creates a new Todoist client
func NewClient(token string) *Client {
	return &Client{
		token:   token,
		baseURL: BaseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SetBaseURL points the client at another API root.
func (c *Client) SetBaseURL(u string) {
	c.baseURL = strings.TrimRight(u, "/")
}

// IsConfigured returns true if the client has a token
func (c *Client) IsConfigured() bool {
	return c.token != ""
}

// SetProjectID sets the project to sync with
func (c *Client) SetProjectID(id string) {
	c.projectID = id
}

// ProjectID returns the configured project ID
func (c *Client) ProjectID() string {
	return c.projectID
}

// doRequest performs an HTTP request with auth
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("API error %d: %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}

// ListTasks returns the active tasks of the configured project
func (c *Client) ListTasks(ctx context.Context) ([]Task, error) {
	path := "/tasks"
	if c.projectID != "" {
		path += "?project_id=" + url.QueryEscape(c.projectID)
	}

	data, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var tasks []Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		return nil, fmt.Errorf("unmarshal tasks: %w", err)
	}

	return tasks, nil
}

// CreateTask creates a new task in the configured project
func (c *Client) CreateTask(ctx context.Context, req *CreateTaskRequest) (*Task, error) {
	if req.ProjectID == "" && c.projectID != "" {
		req.ProjectID = c.projectID
	}

	data, err := c.doRequest(ctx, http.MethodPost, "/tasks", req)
	if err != nil {
		return nil, err
	}

	var task Task
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, fmt.Errorf("unmarshal task: %w", err)
	}

	return &task, nil
}

// UpdateTask updates an existing task
func (c *Client) UpdateTask(ctx context.Context, id string, req *UpdateTaskRequest) error {
	_, err := c.doRequest(ctx, http.MethodPost, "/tasks/"+url.PathEscape(id), req)
	return err
}

// DeleteTask deletes a task
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	_, err := c.doRequest(ctx, http.MethodDelete, "/tasks/"+url.PathEscape(id), nil)
	return err
}

// GetProjects returns all projects
func (c *Client) GetProjects(ctx context.Context) ([]Project, error) {
	data, err := c.doRequest(ctx, http.MethodGet, "/projects", nil)
	if err != nil {
		return nil, err
	}

	var projects []Project
	if err := json.Unmarshal(data, &projects); err != nil {
		return nil, fmt.Errorf("unmarshal projects: %w", err)
	}

	return projects, nil
}

// FindProject returns the project whose ID or name (case-insensitive) is name.
func (c *Client) FindProject(ctx context.Context, name string) (*Project, error) {
	projects, err := c.GetProjects(ctx)
	if err != nil {
		return nil, err
	}
	for i := range projects {
		if projects[i].ID == name || strings.EqualFold(projects[i].Name, name) {
			return &projects[i], nil
		}
	}
	return nil, fmt.Errorf("%w: project %q", ErrNotFound, name)
}
