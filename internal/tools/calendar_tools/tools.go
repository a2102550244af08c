package calendar_tools

import (
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/calgateway/internal/server"
)

// DefaultExportLimit caps calendar_export_ics when the caller gives no limit.
const DefaultExportLimit = 500

// Options controls which tools are registered and their defaults.
type Options struct {
	// ReadOnly omits calendar_create_event.
	ReadOnly bool

	// ExportLimit is the default number of events calendar_export_ics renders.
	ExportLimit int

	// CalendarName is written as the exported calendar's display name.
	CalendarName string
}

// RegisterCalendarTools registers all calendar tools with the MCP server
func RegisterCalendarTools(s *mcpserver.MCPServer, sc *server.ServerContext, opts Options) error {
	if opts.ExportLimit <= 0 {
		opts.ExportLimit = DefaultExportLimit
	}

	if err := RegisterEventTools(s, sc, opts.ReadOnly); err != nil {
		return fmt.Errorf("failed to register event tools: %w", err)
	}

	if err := RegisterExportTools(s, sc, opts); err != nil {
		return fmt.Errorf("failed to register export tools: %w", err)
	}

	return nil
}

type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// errorResult reports a failed operation as {"message", "error"} JSON.
func errorResult(message string, err error) *mcp.CallToolResult {
	data, marshalErr := json.Marshal(errorBody{Message: message, Error: err.Error()})
	if marshalErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("%s: %v", message, err))
	}
	return mcp.NewToolResultError(string(data))
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}
