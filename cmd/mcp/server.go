package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	serverName    = "mediremind"
	serverVersion = "1.0.0"
)

// MCPServer exposes the MediRemind JSON API as MCP tools.
type MCPServer struct {
	mcpServer   *server.MCPServer
	apiURL      string
	apiUsername string
	apiPassword string
	client      *http.Client
}

func NewMCPServer(apiURL, username, password string) *MCPServer {
	s := &MCPServer{
		apiURL:      strings.TrimRight(apiURL, "/"),
		apiUsername: username,
		apiPassword: password,
		client:      &http.Client{Timeout: 30 * time.Second},
	}
	s.mcpServer = server.NewMCPServer(
		serverName,
		serverVersion,
		server.WithToolCapabilities(false),
	)
	s.registerTools()
	return s
}

func (s *MCPServer) registerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool("list_reminders",
			mcp.WithDescription("List medication reminders with their schedule, active state and next firing time"),
		),
		s.handleListReminders,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("add_reminder",
			mcp.WithDescription("Add a medication reminder"),
			mcp.WithString("time", mcp.Required(), mcp.Description("Time of day, 24h HH:MM")),
			mcp.WithString("label", mcp.Required(), mcp.Description("Medication name and dose")),
			mcp.WithString("frequency", mcp.Description("daily (default), weekly, weekdays or custom"),
				mcp.Enum("daily", "weekly", "weekdays", "custom")),
			mcp.WithArray("custom_days", mcp.Description("Day names for custom frequency, e.g. Monday"), mcp.WithStringItems()),
			mcp.WithString("until", mcp.Description("Optional end date YYYY-MM-DD")),
			mcp.WithString("alarm_type", mcp.Description("notification (default) or alarm"),
				mcp.Enum("notification", "alarm")),
		),
		s.handleAddReminder,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("toggle_reminder",
			mcp.WithDescription("Turn a reminder on or off"),
			mcp.WithString("id", mcp.Required(), mcp.Description("Reminder ID")),
		),
		s.handleToggleReminder,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("delete_reminder",
			mcp.WithDescription("Delete a reminder and cancel its notifications"),
			mcp.WithString("id", mcp.Required(), mcp.Description("Reminder ID")),
		),
		s.handleDeleteReminder,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("notification_status",
			mcp.WithDescription("Notification permission and the number of scheduled triggers"),
		),
		s.handleStatus,
	)
}

func (s *MCPServer) handleListReminders(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.apiRequest(ctx, http.MethodGet, "/api/reminders", nil), nil
}

func (s *MCPServer) handleAddReminder(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	body := map[string]any{
		"time":  req.GetString("time", ""),
		"label": req.GetString("label", ""),
	}
	if body["time"] == "" || body["label"] == "" {
		return mcp.NewToolResultError("time and label are required"), nil
	}
	for _, key := range []string{"frequency", "until", "alarm_type"} {
		if v := req.GetString(key, ""); v != "" {
			body[key] = v
		}
	}
	if days := req.GetStringSlice("custom_days", nil); len(days) > 0 {
		body["custom_days"] = days
	}
	return s.apiRequest(ctx, http.MethodPost, "/api/reminders", body), nil
}

func (s *MCPServer) handleToggleReminder(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	if id == "" {
		return mcp.NewToolResultError("id is required"), nil
	}
	return s.apiRequest(ctx, http.MethodPost, "/api/reminder/"+url.PathEscape(id)+"/toggle", nil), nil
}

func (s *MCPServer) handleDeleteReminder(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	if id == "" {
		return mcp.NewToolResultError("id is required"), nil
	}
	return s.apiRequest(ctx, http.MethodDelete, "/api/reminder/"+url.PathEscape(id), nil), nil
}

func (s *MCPServer) handleStatus(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.apiRequest(ctx, http.MethodGet, "/api/status", nil), nil
}

// apiRequest calls the JSON API and turns the envelope into a tool result.
func (s *MCPServer) apiRequest(ctx context.Context, method, path string, body any) *mcp.CallToolResult {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Error encoding request: %v", err))
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.apiURL+path, reqBody)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error creating request: %v", err))
	}
	req.SetBasicAuth(s.apiUsername, s.apiPassword)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error making request: %v", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error reading response: %v", err))
	}

	var apiResp struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   string          `json:"error"`
	}
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		if resp.StatusCode >= 400 {
			return mcp.NewToolResultError(strings.TrimSpace(string(respBody)))
		}
		return mcp.NewToolResultText(string(respBody))
	}
	if !apiResp.Success {
		return mcp.NewToolResultError(fmt.Sprintf("API Error: %s", apiResp.Error))
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, apiResp.Data, "", "  "); err != nil {
		return mcp.NewToolResultText(string(apiResp.Data))
	}
	return mcp.NewToolResultText(pretty.String())
}
