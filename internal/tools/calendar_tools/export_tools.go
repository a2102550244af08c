package calendar_tools

import (
	"bytes"
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/calgateway/internal/calendar"
	"github.com/teemow/calgateway/internal/ics"
	"github.com/teemow/calgateway/internal/server"
	"github.com/teemow/calgateway/internal/tools/common"
)

const msgExportFailed = "Error exporting calendar events"

// RegisterExportTools registers the iCalendar export tool
func RegisterExportTools(s *mcpserver.MCPServer, sc *server.ServerContext, opts Options) error {
	exportTool := mcp.NewTool("calendar_export_ics",
		mcp.WithDescription("Render calendar events as an iCalendar (RFC 5545) document"),
		mcp.WithNumber("limit",
			mcp.Description(fmt.Sprintf("Maximum number of events to export (default: %d)", opts.ExportLimit)),
		),
		mcp.WithString("filter",
			mcp.Description("OData filter expression selecting the events to export"),
		),
		mcp.WithString("orderBy",
			mcp.Description("OData order expression"),
		),
	)

	// An export pages through several list calls, so it carries no single
	// upstream operation.
	s.AddTool(exportTool, common.InstrumentedToolHandler("calendar_export_ics", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleExportICS(ctx, request, sc, opts)
		}))

	return nil
}

func handleExportICS(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext, opts Options) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	limit, err := common.IntArg(args, "limit", opts.ExportLimit)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if limit == 0 {
		limit = opts.ExportLimit
	}

	events, err := calendar.CollectEvents(ctx, sc.Events(), calendar.EventQuery{
		Top:     calendar.DefaultTop,
		Filter:  common.StringArg(args, "filter"),
		OrderBy: common.StringArg(args, "orderBy"),
	}, limit)
	if err != nil {
		return errorResult(msgListFailed, err), nil
	}

	var buf bytes.Buffer
	if err := ics.Export(&buf, events, ics.ExportOptions{Name: opts.CalendarName}); err != nil {
		return errorResult(msgExportFailed, err), nil
	}

	return mcp.NewToolResultText(buf.String()), nil
}
