// Command mcp serves the MediRemind JSON API as MCP tools over stdio.
//
// Environment:
//
//	MEDIREMIND_API_URL       Base URL of the bot's HTTP server (default http://localhost:8080)
//	MEDIREMIND_API_USERNAME  Basic Auth user
//	MEDIREMIND_API_PASSWORD  Basic Auth password
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--help", "-h":
			printHelp()
			return
		}
	}

	_ = godotenv.Load()

	apiURL := os.Getenv("MEDIREMIND_API_URL")
	if apiURL == "" {
		apiURL = "http://localhost:8080"
	}
	s := NewMCPServer(apiURL, os.Getenv("MEDIREMIND_API_USERNAME"), os.Getenv("MEDIREMIND_API_PASSWORD"))

	if err := server.ServeStdio(s.mcpServer); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}

func printHelp() {
	fmt.Println(`MediRemind MCP server - medication reminders over MCP

USAGE:
    mcp          Start MCP server (communicates via stdio)
    mcp --help   Show this help

ENVIRONMENT:
    MEDIREMIND_API_URL       Bot HTTP server (default http://localhost:8080)
    MEDIREMIND_API_USERNAME  Basic Auth user
    MEDIREMIND_API_PASSWORD  Basic Auth password

TOOLS:
    list_reminders       List reminders
    add_reminder         Add a reminder (time, label, frequency, custom_days, until, alarm_type)
    toggle_reminder      Turn a reminder on or off
    delete_reminder      Delete a reminder
    notification_status  Permission and scheduled trigger counts`)
}
