package calendar_tools

import (
	"context"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/calgateway/internal/calendar"
	"github.com/teemow/calgateway/internal/instrumentation"
	"github.com/teemow/calgateway/internal/server"
	"github.com/teemow/calgateway/internal/tools/common"
)

const (
	msgListFailed   = "Error retrieving calendar events"
	msgGetFailed    = "Error retrieving calendar event"
	msgCreateFailed = "Error creating calendar event"
	msgInvalidEvent = "Invalid event request"
)

// RegisterEventTools registers event-related tools with the MCP server
func RegisterEventTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	listEventsTool := mcp.NewTool("calendar_list_events",
		mcp.WithDescription("List calendar events one page at a time, optionally filtered and ordered"),
		mcp.WithNumber("top",
			mcp.Description(fmt.Sprintf("Maximum number of events to return (default: %d)", calendar.DefaultTop)),
		),
		mcp.WithNumber("skip",
			mcp.Description("Number of events to skip for pagination (default: 0)"),
		),
		mcp.WithString("filter",
			mcp.Description("OData filter expression, e.g. startswith(title,'Meeting')"),
		),
		mcp.WithString("orderBy",
			mcp.Description("OData order expression, e.g. 'startDate desc'"),
		),
	)

	s.AddTool(listEventsTool, common.InstrumentedToolHandlerWithOperation(
		"calendar_list_events", instrumentation.OperationList, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleListEvents(ctx, request, sc)
		}))

	getEventTool := mcp.NewTool("calendar_get_event",
		mcp.WithDescription("Get a single calendar event by its id"),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("The id of the event to retrieve"),
		),
	)

	s.AddTool(getEventTool, common.InstrumentedToolHandlerWithOperation(
		"calendar_get_event", instrumentation.OperationGet, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleGetEvent(ctx, request, sc)
		}))

	if readOnly {
		return nil
	}

	createEventTool := mcp.NewTool("calendar_create_event",
		mcp.WithDescription("Create a calendar event"),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description(fmt.Sprintf("Event title (at most %d characters)", calendar.MaxTitleLength)),
		),
		mcp.WithString("description",
			mcp.Required(),
			mcp.Description("Event description"),
		),
		mcp.WithString("startDate",
			mcp.Required(),
			mcp.Description("Start time in RFC3339 format, e.g. '2025-01-15T09:00:00-05:00'"),
		),
		mcp.WithString("endDate",
			mcp.Required(),
			mcp.Description("End time in RFC3339 format"),
		),
	)

	s.AddTool(createEventTool, common.InstrumentedToolHandlerWithOperation(
		"calendar_create_event", instrumentation.OperationCreate, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleCreateEvent(ctx, request, sc)
		}))

	return nil
}

func handleListEvents(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	top, err := common.IntArg(args, "top", calendar.DefaultTop)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if top == 0 {
		top = calendar.DefaultTop
	}
	skip, err := common.IntArg(args, "skip", 0)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	page, err := sc.Events().ListEvents(ctx, calendar.EventQuery{
		Top:     top,
		Skip:    skip,
		Filter:  common.StringArg(args, "filter"),
		OrderBy: common.StringArg(args, "orderBy"),
	})
	if err != nil {
		return errorResult(msgListFailed, err), nil
	}

	return jsonResult(page)
}

func handleGetEvent(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	id := common.StringArg(request.GetArguments(), "id")
	if id == "" {
		return mcp.NewToolResultError("id is required"), nil
	}

	event, err := sc.Events().GetEvent(ctx, id)
	if calendar.IsNotFound(err) {
		return mcp.NewToolResultText(fmt.Sprintf("Event with ID %s not found", id)), nil
	}
	if err != nil {
		return errorResult(msgGetFailed, err), nil
	}

	return jsonResult(event)
}

func handleCreateEvent(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	req, err := createRequestFromArgs(request.GetArguments())
	if err != nil {
		return errorResult(msgInvalidEvent, err), nil
	}
	if err := req.Validate(); err != nil {
		return errorResult(msgInvalidEvent, err), nil
	}

	event, err := sc.Events().CreateEvent(ctx, req)
	if err != nil {
		return errorResult(msgCreateFailed, err), nil
	}

	return jsonResult(event)
}

// createRequestFromArgs parses the tool arguments. Missing values are left
// zero for Validate to report.
func createRequestFromArgs(args map[string]interface{}) (calendar.CreateEventRequest, error) {
	req := calendar.CreateEventRequest{
		Title:       common.StringArg(args, "title"),
		Description: common.StringArg(args, "description"),
	}

	var err error
	if req.StartDate, err = timeArg(args, "startDate"); err != nil {
		return req, err
	}
	if req.EndDate, err = timeArg(args, "endDate"); err != nil {
		return req, err
	}
	return req, nil
}

func timeArg(args map[string]interface{}, name string) (time.Time, error) {
	v := common.StringArg(args, name)
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s must be an RFC3339 timestamp: %w", name, err)
	}
	return t, nil
}
