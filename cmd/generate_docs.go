package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/calgateway/internal/server"
	"github.com/teemow/calgateway/internal/tools/calendar_tools"
)

func newGenerateDocsCmd() *cobra.Command {
	var outputFile string

	cmd := &cobra.Command{
		Use:   "generate-docs",
		Short: "Generate MCP tool documentation",
		Long: `Generate markdown documentation for all available MCP tools.
This command introspects the registered tools and outputs their documentation
in markdown format, ensuring the documentation is always accurate and in sync
with the actual tool implementations.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerateDocs(cmd.OutOrStdout(), outputFile)
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")

	return cmd
}

func runGenerateDocs(out io.Writer, outputFile string) error {
	// Tool definitions do not depend on a live upstream.
	serverContext, err := server.NewServerContext(context.Background(), nil, nil, "")
	if err != nil {
		return fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() {
		_ = serverContext.Shutdown()
	}()

	mcpSrv := mcpserver.NewMCPServer("calgateway", version,
		mcpserver.WithToolCapabilities(true),
	)

	// Register with writes allowed so every tool is documented
	if err := registerAllTools(mcpSrv, serverContext, calendar_tools.Options{ReadOnly: false}); err != nil {
		return err
	}

	readOnlySrv := mcpserver.NewMCPServer("calgateway", version,
		mcpserver.WithToolCapabilities(true),
	)
	if err := registerAllTools(readOnlySrv, serverContext, calendar_tools.Options{ReadOnly: true}); err != nil {
		return err
	}

	readOnly := make(map[string]bool)
	for _, serverTool := range readOnlySrv.ListTools() {
		readOnly[serverTool.Tool.Name] = true
	}

	serverTools := mcpSrv.ListTools()
	tools := make([]mcp.Tool, 0, len(serverTools))
	writeTools := make(map[string]bool)
	for _, serverTool := range serverTools {
		tools = append(tools, serverTool.Tool)
		if !readOnly[serverTool.Tool.Name] {
			writeTools[serverTool.Tool.Name] = true
		}
	}

	markdown := generateToolsMarkdown(tools, writeTools)

	if outputFile != "" {
		if err := os.WriteFile(outputFile, []byte(markdown), 0644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Documentation written to: %s\n", outputFile)
		return nil
	}

	_, err = io.WriteString(out, markdown)
	return err
}

// generateToolsMarkdown renders tools grouped by category. writeTools
// names the tools that are only registered with --allow-writes.
func generateToolsMarkdown(tools []mcp.Tool, writeTools map[string]bool) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# MCP Tools Reference\n\n")
	sb.WriteString("This document provides a complete reference of all tools available when running calgateway as an MCP server.\n\n")
	sb.WriteString("**Note:** This documentation is automatically generated from the tool definitions.\n\n")

	// Group tools by category
	toolsByCategory := groupToolsByCategory(tools)

	// Table of contents
	sb.WriteString("## Table of Contents\n\n")
	categories := make([]string, 0, len(toolsByCategory))
	for category := range toolsByCategory {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	for _, category := range categories {
		anchor := strings.ToLower(strings.ReplaceAll(category, " ", "-"))
		sb.WriteString(fmt.Sprintf("- [%s](#%s)\n", category, anchor))
	}
	sb.WriteString("\n")

	sb.WriteString("## Write Access\n\n")
	sb.WriteString("The server starts read-only. Tools that create events are only registered when it is started with `--allow-writes`:\n\n")
	writeNames := make([]string, 0, len(writeTools))
	for name := range writeTools {
		writeNames = append(writeNames, name)
	}
	sort.Strings(writeNames)
	for _, name := range writeNames {
		sb.WriteString(fmt.Sprintf("- `%s`\n", name))
	}
	sb.WriteString("\n")

	// Generate documentation for each category
	for _, category := range categories {
		categoryTools := toolsByCategory[category]
		sort.Slice(categoryTools, func(i, j int) bool {
			return categoryTools[i].Name < categoryTools[j].Name
		})

		sb.WriteString(fmt.Sprintf("## %s\n\n", category))

		for _, tool := range categoryTools {
			sb.WriteString(generateToolMarkdown(tool))
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

func groupToolsByCategory(tools []mcp.Tool) map[string][]mcp.Tool {
	categories := make(map[string][]mcp.Tool)

	for _, tool := range tools {
		category := getCategoryFromToolName(tool.Name)
		categories[category] = append(categories[category], tool)
	}

	return categories
}

func getCategoryFromToolName(name string) string {
	parts := strings.Split(name, "_")
	if len(parts) == 0 {
		return "Other"
	}

	switch parts[0] {
	case "calendar":
		return "Calendar Tools"
	default:
		return "Other"
	}
}

// generateToolMarkdown renders one tool with its arguments as a table,
// required arguments first, each group sorted by name.
func generateToolMarkdown(tool mcp.Tool) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("### %s\n\n", tool.Name))
	if tool.Description != "" {
		sb.WriteString(tool.Description + "\n\n")
	}

	names := make([]string, 0, len(tool.InputSchema.Properties))
	for name := range tool.InputSchema.Properties {
		names = append(names, name)
	}
	if len(names) == 0 {
		return sb.String()
	}

	required := tool.InputSchema.Required
	sort.Slice(names, func(i, j int) bool {
		ri, rj := slices.Contains(required, names[i]), slices.Contains(required, names[j])
		if ri != rj {
			return ri
		}
		return names[i] < names[j]
	})

	sb.WriteString("| Argument | Type | Required | Description |\n")
	sb.WriteString("|---|---|---|---|\n")
	for _, name := range names {
		propType, desc := describeProperty(tool.InputSchema.Properties[name])
		req := "no"
		if slices.Contains(required, name) {
			req = "yes"
		}
		sb.WriteString(fmt.Sprintf("| `%s` | %s | %s | %s |\n", name, propType, req, strings.ReplaceAll(desc, "|", "\\|")))
	}
	sb.WriteString("\n")

	return sb.String()
}

func describeProperty(prop interface{}) (propType, desc string) {
	propType = "any"
	m, ok := prop.(map[string]interface{})
	if !ok {
		return propType, ""
	}
	if t, ok := m["type"].(string); ok {
		propType = t
	}
	desc, _ = m["description"].(string)
	return propType, desc
}
