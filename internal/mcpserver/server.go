// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Noteku tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/noteku/internal/apperr"
	"github.com/starford/noteku/internal/models"
	"github.com/starford/noteku/internal/noteservice"
	"github.com/starford/noteku/internal/query"
)

// Server wraps the MCP server with Noteku tools.
type Server struct {
	mcp *server.MCPServer
	svc *noteservice.Service
	// fetch downloads remote images for attach_image.
	fetch func(ctx context.Context, rawURL string) ([]byte, error)
}

// New creates a new MCP server with all Noteku tools registered.
func New(svc *noteservice.Service, version string) *Server {
	s := &Server{svc: svc, fetch: fetchHTTP}

	s.mcp = server.NewMCPServer(
		"Noteku",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	categoryEnum := mcp.Enum("Work", "Ideas", "Personal", "To-Do")

	s.mcp.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Case-insensitive substring search over note titles and content, newest first."),
		mcp.WithString("query", mcp.Description("Search text; empty lists every note")),
		mcp.WithString("category", mcp.Description("Category filter"), mcp.Enum("All", "Work", "Ideas", "Personal", "To-Do")),
	), s.searchNotes)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read a note with its revision, plain-text preview and (for To-Do notes) decoded checklist."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("create_note",
		mcp.WithDescription("Create a note. Content MUST follow the note format contract; read it via "+
			"get_note_contract or the "+NoteFormatURI+" resource first. Use set_checklist for To-Do items."),
		mcp.WithString("title", mcp.Description("Note title")),
		mcp.WithString("content", mcp.Description("Rich-text markup")),
		mcp.WithString("category", mcp.Description("Category, defaults to Personal"), categoryEnum),
	), s.createNote)

	s.mcp.AddTool(mcp.NewTool("update_note",
		mcp.WithDescription("Update a note. Omitted fields keep their current value."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
		mcp.WithString("title", mcp.Description("New title")),
		mcp.WithString("content", mcp.Description("New rich-text markup")),
		mcp.WithString("category", mcp.Description("New category"), categoryEnum),
		mcp.WithString("revision", mcp.Description("Revision from read_note; the update fails if the note changed since")),
	), s.updateNote)

	s.mcp.AddTool(mcp.NewTool("delete_note",
		mcp.WithDescription("Delete a note. Deleting an unknown id succeeds."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
	), s.deleteNote)

	s.mcp.AddTool(mcp.NewTool("list_categories",
		mcp.WithDescription("List the category filters in display order."),
	), s.listCategories)

	s.mcp.AddTool(mcp.NewTool("get_checklist",
		mcp.WithDescription("Decode a note's content into checklist items."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
	), s.getChecklist)

	s.mcp.AddTool(mcp.NewTool("set_checklist",
		mcp.WithDescription("Replace a note's content with the given checklist items."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
		mcp.WithArray("items", mcp.Required(), mcp.Description("Checklist items in order"),
			mcp.Items(map[string]any{
				"type": "object",
				"properties": map[string]any{
					"text":    map[string]any{"type": "string"},
					"checked": map[string]any{"type": "boolean"},
				},
				"required": []string{"text"},
			})),
		mcp.WithString("revision", mcp.Description("Revision from read_note")),
	), s.setChecklist)

	s.mcp.AddTool(mcp.NewTool("attach_image",
		mcp.WithDescription("Append an image to a note. Accepts a base64 data URI or an http(s) URL, "+
			"which is downloaded and embedded."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
		mcp.WithString("url", mcp.Required(), mcp.Description("data:image/...;base64,... or http(s) URL")),
	), s.attachImage)

	s.mcp.AddTool(mcp.NewTool("get_note_contract",
		mcp.WithDescription("Returns the Noteku note format contract. "+
			"Call this before creating or updating notes to ensure correct structure."),
	), s.getNoteContract)

	s.mcp.AddResource(
		mcp.NewResource(NoteFormatURI, "Note Format Contract",
			mcp.WithResourceDescription("Markup and checklist format that note content must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readNoteFormatResource,
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

// errorResult turns a domain error into a tool error message.
func errorResult(id string, err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id))
	case errors.Is(err, apperr.ErrConflict):
		return mcp.NewToolResultError(fmt.Sprintf("note %s changed since it was read; read it again and retry", id))
	default:
		return mcp.NewToolResultError(err.Error())
	}
}

func (s *Server) searchNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := s.svc.ListNotes(ctx, req.GetString("query", ""), models.Category(req.GetString("category", "")))
	if err != nil {
		return errorResult("", err), nil
	}
	if res.Warning != "" {
		return mcp.NewToolResultError(res.Warning), nil
	}
	return jsonResult(res)
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, err := s.svc.GetNote(ctx, id)
	if err != nil {
		return errorResult(id, err), nil
	}
	return jsonResult(note)
}

func (s *Server) createNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	note, err := s.svc.CreateNote(ctx, noteservice.NoteInput{
		Title:    req.GetString("title", ""),
		Content:  req.GetString("content", ""),
		Category: models.Category(req.GetString("category", "")),
	})
	if err != nil {
		return errorResult("", err), nil
	}
	return jsonResult(note)
}

func (s *Server) updateNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	current, err := s.svc.GetNote(ctx, id)
	if err != nil {
		return errorResult(id, err), nil
	}
	note, err := s.svc.UpdateNote(ctx, id, noteservice.NoteInput{
		Title:    req.GetString("title", current.Title),
		Content:  req.GetString("content", current.Content),
		Category: models.Category(req.GetString("category", string(current.Category))),
	}, req.GetString("revision", ""))
	if err != nil {
		return errorResult(id, err), nil
	}
	return jsonResult(note)
}

func (s *Server) deleteNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.DeleteNote(ctx, id); err != nil {
		return errorResult(id, err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted: %s", id)), nil
}

func (s *Server) listCategories(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(query.Categories())
}

func (s *Server) getChecklist(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	items, err := s.svc.Checklist(ctx, id)
	if err != nil {
		return errorResult(id, err), nil
	}
	return jsonResult(items)
}

func (s *Server) setChecklist(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	raw, ok := req.GetArguments()["items"]
	if !ok {
		return mcp.NewToolResultError(`required argument "items" not found`), nil
	}
	// Arguments arrive as generic JSON values; round-trip them into items.
	buf, err := json.Marshal(raw)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var items []models.ChecklistItem
	if err := json.Unmarshal(buf, &items); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("items must be a list of {text, checked}: %v", err)), nil
	}
	note, err := s.svc.SetChecklist(ctx, id, items, req.GetString("revision", ""))
	if err != nil {
		return errorResult(id, err), nil
	}
	return jsonResult(note)
}

func (s *Server) getNoteContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(NoteFormatContract), nil
}

func (s *Server) readNoteFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      NoteFormatURI,
			MIMEType: "text/markdown",
			Text:     NoteFormatContract,
		},
	}, nil
}
