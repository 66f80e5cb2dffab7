// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes galaxytab tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/galaxytab/internal/apperr"
	"github.com/starford/galaxytab/internal/dashboard"
	"github.com/starford/galaxytab/internal/models"
	"github.com/starford/galaxytab/internal/settings"
)

const guideURI = "galaxytab://settings-guide"

// Server wraps the MCP server with galaxytab tools.
type Server struct {
	mcp *server.MCPServer
	svc *dashboard.Service
}

// New creates a new MCP server with all galaxytab tools registered.
func New(svc *dashboard.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"galaxytab",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("get_settings",
		mcp.WithDescription("Read the dashboard settings, or one section of them."),
		mcp.WithString("section", mcp.Description("Optional section name (background, search, appearance, layout, gestures, advanced)")),
	), s.getSettings)

	s.mcp.AddTool(mcp.NewTool("update_settings",
		mcp.WithDescription("Merge fields into one settings section. "+
			"Read the settings guide first via the "+guideURI+" resource."),
		mcp.WithString("section", mcp.Required(), mcp.Description("Section name")),
		mcp.WithString("patch", mcp.Required(), mcp.Description(`JSON object of fields to set, e.g. {"theme":"light"}`)),
	), s.updateSettings)

	s.mcp.AddTool(mcp.NewTool("reset_settings",
		mcp.WithDescription("Restore every setting to its default."),
	), s.resetSettings)

	s.mcp.AddTool(mcp.NewTool("list_links",
		mcp.WithDescription("List the dashboard links."),
		mcp.WithString("sort", mcp.Description("Ordering: custom, alphabetical or most-used. Defaults to the layout setting."),
			mcp.Enum(settings.SortCustom, settings.SortAlphabetical, settings.SortMostUsed)),
	), s.listLinks)

	s.mcp.AddTool(mcp.NewTool("add_link",
		mcp.WithDescription("Add a link to the end of the dashboard."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Display title")),
		mcp.WithString("url", mcp.Required(), mcp.Description("Address; https:// is added when there is no scheme")),
		mcp.WithString("icon", mcp.Description("Icon, usually a single emoji")),
		mcp.WithString("category", mcp.Description("Category name")),
	), s.addLink)

	s.mcp.AddTool(mcp.NewTool("edit_link",
		mcp.WithDescription("Change fields of an existing link. Fields not given are left alone."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Link id")),
		mcp.WithString("title", mcp.Description("New title")),
		mcp.WithString("url", mcp.Description("New address")),
		mcp.WithString("icon", mcp.Description("New icon")),
		mcp.WithString("category", mcp.Description("New category")),
	), s.editLink)

	s.mcp.AddTool(mcp.NewTool("remove_link",
		mcp.WithDescription("Remove a link. Removing an unknown id is not an error."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Link id")),
	), s.removeLink)

	s.mcp.AddTool(mcp.NewTool("search_url",
		mcp.WithDescription("Resolve a search box entry to the URL it would open, using the configured engine. "+
			"Does not record the query in the search history."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query or URL")),
	), s.searchURL)

	// Resource: settings guide.
	s.mcp.AddResource(
		mcp.NewResource(guideURI, "Settings Guide",
			mcp.WithResourceDescription("Settings sections, defaults and link fields."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readSettingsGuide,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getSettings(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	v := s.svc.Settings(ctx)
	section := req.GetString("section", "")
	if section == "" {
		return jsonResult(v.Settings)
	}
	sec, ok := v.Settings[section]
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("unknown section: %s", section)), nil
	}
	return jsonResult(sec)
}

func (s *Server) updateSettings(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	section, err := req.RequireString("section")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	raw, err := req.RequireString("patch")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var patch settings.Section
	if err := json.Unmarshal([]byte(raw), &patch); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("patch is not a JSON object: %v", err)), nil
	}
	v, err := s.svc.UpdateSection(ctx, section, patch, "")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(v.Settings[section])
}

func (s *Server) resetSettings(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.svc.ResetSettings(ctx)
	return mcp.NewToolResultText("settings reset to defaults"), nil
}

func (s *Server) listLinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sortBy := req.GetString("sort", "")
	if sortBy == "" {
		sortBy = s.svc.Settings(ctx).Settings.Layout().SortBy
	}
	items, err := dashboard.SortLinks(s.svc.AllLinks(ctx), sortBy)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(items)
}

func (s *Server) addLink(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	url, err := req.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	link, err := s.svc.AddLink(ctx, models.LinkDraft{
		Title:    title,
		URL:      url,
		Icon:     req.GetString("icon", ""),
		Category: req.GetString("category", ""),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(link)
}

func (s *Server) editLink(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	args := req.GetArguments()
	field := func(name string) *string {
		v, ok := args[name].(string)
		if !ok {
			return nil
		}
		return &v
	}
	patch := models.LinkPatch{
		Title:    field("title"),
		URL:      field("url"),
		Icon:     field("icon"),
		Category: field("category"),
	}
	if patch.Empty() {
		return mcp.NewToolResultError("nothing to change: give at least one of title, url, icon, category"), nil
	}
	link, err := s.svc.EditLink(ctx, id, patch)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(link)
}

func (s *Server) removeLink(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	s.svc.RemoveLink(ctx, id)
	return mcp.NewToolResultText(fmt.Sprintf("removed: %s", id)), nil
}

func (s *Server) searchURL(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.PreviewSearch(ctx, query)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(res.URL), nil
}

func (s *Server) readSettingsGuide(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      guideURI,
			MIMEType: "text/markdown",
			Text:     SettingsGuide,
		},
	}, nil
}
