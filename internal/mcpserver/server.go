// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes the wallpaper catalog as tools via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/sowilo/internal/apperr"
	"github.com/starford/sowilo/internal/catalog"
)

// Server wraps the MCP server with catalog tools.
type Server struct {
	mcp   *server.MCPServer
	store *catalog.Store
}

// New creates a new MCP server with all catalog tools registered.
func New(store *catalog.Store) *Server {
	s := &Server{store: store}

	s.mcp = server.NewMCPServer(
		"Sowilo",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_wallpapers",
		mcp.WithDescription("Search wallpapers by name or tag (case-insensitive substring match)."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchWallpapers)

	s.mcp.AddTool(mcp.NewTool("get_wallpaper",
		mcp.WithDescription("Fetch a single wallpaper record by its content id."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Content id (hex digest) of the wallpaper")),
	), s.getWallpaper)

	s.mcp.AddTool(mcp.NewTool("random_wallpapers",
		mcp.WithDescription("Return up to 10 wallpapers sampled uniformly at random."),
		mcp.WithNumber("count", mcp.Description("How many wallpapers to sample (default 1, max 10)")),
	), s.randomWallpapers)

	s.mcp.AddTool(mcp.NewTool("top_wallpapers",
		mcp.WithDescription("List the most downloaded wallpapers."),
		mcp.WithNumber("limit", mcp.Description("How many wallpapers to return (default 10)")),
	), s.topWallpapers)

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

func (s *Server) searchWallpapers(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, pg := s.store.Search(query, 1, 20)
	return jsonResult(map[string]any{"data": data, "pagination": pg})
}

func (s *Server) getWallpaper(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rec, err := s.store.Get(id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("wallpaper %s not found", id)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(rec)
}

func (s *Server) randomWallpapers(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	count := req.GetInt("count", 1)
	return jsonResult(map[string]any{"data": s.store.Random(count)})
}

func (s *Server) topWallpapers(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := req.GetInt("limit", 10)
	data, pg := s.store.Popular(1, limit)
	return jsonResult(map[string]any{"data": data, "pagination": pg})
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	payload, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(payload)), nil
}
