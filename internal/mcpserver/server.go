// Package mcpserver exposes the signed-in user's notes as MCP tools over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/jwulff/meetingnote/internal/enrich"
	"github.com/jwulff/meetingnote/internal/errs"
	"github.com/jwulff/meetingnote/internal/notes"
	"github.com/jwulff/meetingnote/internal/notify"
)

// Summary is the list_notes entry for one note.
type Summary struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Date      string `json:"date"`
	Attendees string `json:"attendees,omitempty"`
}

// Server answers tool calls for one user.
type Server struct {
	reader notes.Reader
	userID string
	log    *slog.Logger

	mu     sync.Mutex // serializes enrichment; the controller is single-threaded
	enrich *enrich.Controller
}

// New creates a Server. A nil svc leaves the enrichment tools answering with
// an error.
func New(ctx context.Context, reader notes.Reader, userID string, svc enrich.Service, opts enrich.Options) *Server {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "mcp")
	opts.Logger = log
	return &Server{
		reader: reader,
		userID: userID,
		log:    log,
		enrich: enrich.NewController(ctx, svc, nil, logSink{log}, opts),
	}
}

// MCP builds the protocol server with every tool registered.
func (s *Server) MCP(version string) *server.MCPServer {
	srv := server.NewMCPServer("meetingnote", version, server.WithToolCapabilities(false))

	srv.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List the user's meeting notes, newest first. Optionally fuzzy-filter by title."),
		mcp.WithString("query", mcp.Description("Fuzzy title filter")),
	), s.handleList)

	srv.AddTool(mcp.NewTool("get_note",
		mcp.WithDescription("Get one meeting note with its full transcript."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
	), s.handleGet)

	srv.AddTool(mcp.NewTool("summarize_note",
		mcp.WithDescription("Summarize a meeting note's transcript."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
	), s.enrichHandler(enrich.KindSummary))

	srv.AddTool(mcp.NewTool("extract_action_items",
		mcp.WithDescription("Extract action items from a meeting note's transcript."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
	), s.enrichHandler(enrich.KindActionItems))

	return srv
}

// ServeStdio runs the server on stdin/stdout until EOF.
func (s *Server) ServeStdio(version string) error {
	return server.ServeStdio(s.MCP(version))
}

func (s *Server) handleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	list, err := s.reader.List(ctx, s.userID)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("list notes", err), nil
	}
	list = notes.Filter(list, req.GetString("query", ""))

	out := make([]Summary, 0, len(list))
	for _, n := range list {
		out = append(out, Summary{ID: n.ID, Title: n.Title, Date: n.Date, Attendees: n.Attendees})
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal notes: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) handleGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	n, res := s.lookup(ctx, req)
	if res != nil {
		return res, nil
	}
	return mcp.NewToolResultText(Markdown(n)), nil
}

func (s *Server) enrichHandler(kind enrich.Kind) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		n, res := s.lookup(ctx, req)
		if res != nil {
			return res, nil
		}

		s.mu.Lock()
		out, err := s.enrich.Run(n.Transcript, kind)
		s.mu.Unlock()
		if err != nil {
			return mcp.NewToolResultError(errs.Message(err)), nil
		}
		return mcp.NewToolResultText(out.Content), nil
	}
}

// lookup fetches the note named by the id argument. Notes owned by other
// users are reported as missing.
func (s *Server) lookup(ctx context.Context, req mcp.CallToolRequest) (notes.Note, *mcp.CallToolResult) {
	id, err := req.RequireString("id")
	if err != nil {
		return notes.Note{}, mcp.NewToolResultError(err.Error())
	}
	n, err := s.reader.Get(ctx, id)
	if errors.Is(err, notes.ErrNotFound) || (err == nil && n.UserID != s.userID) {
		return notes.Note{}, mcp.NewToolResultError(fmt.Sprintf("note %q not found", id))
	}
	if err != nil {
		return notes.Note{}, mcp.NewToolResultErrorFromErr("get note", err)
	}
	return n, nil
}

// Markdown renders a note as a markdown document.
func Markdown(n notes.Note) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", n.Title)
	fmt.Fprintf(&b, "- Date: %s\n", n.Date)
	if n.Attendees != "" {
		fmt.Fprintf(&b, "- Attendees: %s\n", n.Attendees)
	}
	b.WriteString("\n## Transcript\n\n")
	b.WriteString(n.Transcript)
	b.WriteString("\n")
	return b.String()
}

// logSink routes controller notices to the log; stdio carries only protocol.
type logSink struct{ log *slog.Logger }

func (l logSink) Notify(n notify.Notice) {
	l.log.Info("notice", "title", n.Title, "message", n.Message)
}
