// Package mcp exposes the schemabuilder daemon to Model Context Protocol
// clients over stdio.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/rmax-ai/schemabuilder/pkg/client"
)

const schemasURI = "schemabuilder://schemas"

// Server adapts schemabuilder-d to the Model Context Protocol.
type Server struct {
	mcpServer *server.MCPServer
	apiClient *client.Client
}

// NewServer creates a new MCP server instance.
func NewServer(apiURL string) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer(
			"schemabuilder",
			"1.0.0",
		),
		apiClient: client.NewClient(apiURL),
	}
	s.registerResources()
	s.registerTools()
	s.registerPrompts()
	return s
}

// Serve starts the MCP server on stdio.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(
		schemasURI,
		"Materialized Schemas",
		mcp.WithResourceDescription("First page of stored schemas ordered by title"),
		mcp.WithMIMEType("application/json"),
	), s.handleReadSchemas)
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool(
		"list_schemas",
		mcp.WithDescription("Search stored schemas by title or description."),
		mcp.WithString("search", mcp.Description("Substring to match")),
		mcp.WithString("enabled", mcp.Description("Filter by enabled state: 'true' or 'false'")),
		mcp.WithNumber("page", mcp.Description("Page number, starting at 1")),
	), s.handleListSchemas)

	s.mcpServer.AddTool(mcp.NewTool(
		"get_schema_properties",
		mcp.WithDescription("List the properties of a schema with their allowed and default types."),
		mcp.WithNumber("schema_id", mcp.Required(), mcp.Description("Schema id")),
	), s.handleGetSchemaProperties)

	s.mcpServer.AddTool(mcp.NewTool(
		"set_property_mapping",
		mcp.WithDescription("Map a schema property to one of its allowed types. An empty type clears the mapping."),
		mcp.WithNumber("schema_id", mcp.Required(), mcp.Description("Schema id")),
		mcp.WithString("property", mcp.Required(), mcp.Description("Property name, e.g. 'startDate'")),
		mcp.WithString("type", mcp.Description("Allowed type, e.g. 'schema:Date'")),
	), s.handleSetPropertyMapping)

	s.mcpServer.AddTool(mcp.NewTool(
		"set_schema_enabled",
		mcp.WithDescription("Enable or disable a schema."),
		mcp.WithNumber("schema_id", mcp.Required(), mcp.Description("Schema id")),
		mcp.WithString("enabled", mcp.Required(), mcp.Description("'true' or 'false'")),
	), s.handleSetSchemaEnabled)
}

func (s *Server) registerPrompts() {
	s.mcpServer.AddPrompt(mcp.NewPrompt(
		"schemabuilder-aware",
		mcp.WithPromptDescription("Explains schemas, properties and type mappings"),
	), s.handleGetPrompt)
}

func (s *Server) handleReadSchemas(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	var schemas []client.Schema
	for page := 1; ; page++ {
		list, err := s.apiClient.ListSchemas(ctx, client.ListSchemasOptions{Page: page, PerPage: 100})
		if err != nil {
			return nil, fmt.Errorf("failed to fetch schemas: %w", err)
		}
		schemas = append(schemas, list.Items...)
		if page >= list.TotalPages || len(list.Items) == 0 {
			break
		}
	}

	data, err := json.MarshalIndent(schemas, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schemas: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) handleListSchemas(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	opts := client.ListSchemasOptions{
		Search: mcp.ParseString(request, "search", ""),
		Page:   int(mcp.ParseFloat64(request, "page", 1)),
	}
	if raw := mcp.ParseString(request, "enabled", ""); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid enabled value %q", raw)), nil
		}
		opts.Enabled = &b
	}

	list, err := s.apiClient.ListSchemas(ctx, opts)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("API error: %v", err)), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d schemas (page %d of %d)\n", list.Total, max(opts.Page, 1), list.TotalPages)
	for _, sc := range list.Items {
		state := "enabled"
		if !sc.Enabled {
			state = "disabled"
		}
		fmt.Fprintf(&b, "- [%d] %s (%s, %d properties)\n", sc.ID, sc.Label, state, len(sc.PropertyIDs))
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) handleGetSchemaProperties(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := int64(mcp.ParseFloat64(request, "schema_id", 0))
	if id < 1 {
		return mcp.NewToolResultError("schema_id is required"), nil
	}

	sc, err := s.apiClient.GetSchema(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("API error: %v", err)), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s properties:\n", sc.Title)
	if len(sc.PropertyIDs) > 0 {
		props, err := client.AllProperties(ctx, s.apiClient, sc.PropertyIDs)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("API error: %v", err)), nil
		}
		for _, p := range props {
			fmt.Fprintf(&b, "- %s", p.Name)
			if len(p.AllowedTypes) > 0 {
				fmt.Fprintf(&b, " [%s]", strings.Join(p.AllowedTypes, ", "))
			}
			if p.DefaultType != "" {
				fmt.Fprintf(&b, " default %s", p.DefaultType)
			}
			b.WriteByte('\n')
		}
	}
	if sc.Mapping != "" {
		fmt.Fprintf(&b, "mapping: %s\n", sc.Mapping)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) handleSetPropertyMapping(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := int64(mcp.ParseFloat64(request, "schema_id", 0))
	property := mcp.ParseString(request, "property", "")
	typ := mcp.ParseString(request, "type", "")
	if id < 1 || property == "" {
		return mcp.NewToolResultError("schema_id and property are required"), nil
	}

	sc, err := s.apiClient.SetMapping(ctx, id, property, typ)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("API error: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s mapping: %s", sc.Title, sc.Mapping)), nil
}

func (s *Server) handleSetSchemaEnabled(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := int64(mcp.ParseFloat64(request, "schema_id", 0))
	enabled, err := strconv.ParseBool(mcp.ParseString(request, "enabled", ""))
	if id < 1 || err != nil {
		return mcp.NewToolResultError("schema_id and a boolean enabled are required"), nil
	}

	sc, err := s.apiClient.SetEnabled(ctx, id, enabled)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("API error: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s enabled: %t", sc.Title, sc.Enabled)), nil
}

func (s *Server) handleGetPrompt(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	name := request.Params.Name
	if name != "schemabuilder-aware" {
		return nil, fmt.Errorf("prompt not found: %s", name)
	}

	promptText := `You are working with schemabuilder, which stores the schema.org vocabulary as editable schemas.

Concepts:
- Schema: one schema.org class (e.g. 'Event'), with its properties. Schemas can be enabled or disabled.
- Property: a term shared between schemas (e.g. 'startDate'), with the types its values may take.
- Mapping: the type chosen for each property of a schema, written as 'property-type' pairs.

Use 'list_schemas' to find a schema and 'get_schema_properties' to see its properties before changing a mapping.
Only map a property to one of its allowed types.
`

	return mcp.NewGetPromptResult(
		"schemabuilder-aware",
		[]mcp.PromptMessage{
			mcp.NewPromptMessage(mcp.RoleUser, mcp.NewTextContent(promptText)),
		},
	), nil
}
