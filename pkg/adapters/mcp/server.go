package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/aretw0/actscript"
	"github.com/aretw0/actscript/internal/logging"
	"github.com/aretw0/actscript/pkg/domain"
	"github.com/aretw0/actscript/pkg/runner"
	"github.com/aretw0/actscript/pkg/session"
)

// ScriptsURI is the resource listing the script library.
const ScriptsURI = "actscript://scripts"

// SessionResult aligns with the HTTP session response.
type SessionResult struct {
	SessionID string              `json:"session_id" jsonschema_description:"The session identifier"`
	Messages  []map[string]string `json:"messages" jsonschema_description:"Messages produced or recorded by the call"`
	Status    *actscript.Status   `json:"status,omitempty" jsonschema_description:"Where the session stands"`
}

// Engine defines the interface required by the MCP server.
type Engine interface {
	Scripts() ([]string, error)
	Script(id string) (*domain.Script, error)
	Compile(text string) *domain.ScenarioData
	CompileScript(script *domain.Script) (*domain.ScenarioData, error)
	StartScript(ctx context.Context, script *domain.Script) (*domain.State, error)
	Next(ctx context.Context, state *domain.State, actCtx domain.Context) (*domain.State, []domain.Message, error)
	Answer(ctx context.Context, state *domain.State, msgs ...domain.Message) (*domain.State, error)
	End(ctx context.Context, state *domain.State) (*domain.State, []domain.Message, error)
	History(ctx context.Context, state *domain.State, skipRoles ...string) (string, error)
	Inspect(ctx context.Context, state *domain.State) (*actscript.Status, error)
	Keys(state *domain.State) domain.MessageKeys
}

// Server exposes scripts and sessions as MCP tools.
type Server struct {
	engine    Engine
	sessions  *session.Manager
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// NewServer creates a new MCP Server instance.
func NewServer(engine Engine, sessions *session.Manager, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{
		engine:    engine,
		sessions:  sessions,
		logger:    logger,
		mcpServer: server.NewMCPServer("actscript-mcp", strings.TrimSpace(actscript.Version)),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying protocol server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves the SSE transport on addr until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// CompileResult is the compiled scenario of a script.
type CompileResult struct {
	Scenario *domain.ScenarioData `json:"scenario" jsonschema_description:"Compiled acts, order and parser settings"`
}

// HistoryResult is the rendered history of a session.
type HistoryResult struct {
	SessionID string `json:"session_id"`
	History   string `json:"history" jsonschema_description:"History rendered as role: content blocks"`
}

// SessionsResult lists stored sessions.
type SessionsResult struct {
	Sessions []string `json:"sessions"`
}

func (s *Server) registerTools() {
	// TOOL: compile_script
	s.mcpServer.AddTool(mcp.NewTool("compile_script",
		mcp.WithDescription("Compile script text (or a library script) into its scenario data."),
		mcp.WithString("text", mcp.Description("Script source")),
		mcp.WithString("script_id", mcp.Description("ID of a library script, used when text is empty")),
		mcp.WithOutputSchema[CompileResult](),
	), mcp.NewStructuredToolHandler(s.handleCompile))

	// TOOL: start_session
	s.mcpServer.AddTool(mcp.NewTool("start_session",
		mcp.WithDescription("Start a session on a library script or on inline script text."),
		mcp.WithString("script_id", mcp.Description("ID of a library script")),
		mcp.WithString("text", mcp.Description("Inline script source, used when script_id is empty")),
		mcp.WithString("session_id", mcp.Description("Session ID to use (generated when omitted)")),
		mcp.WithString("context", mcp.Description("JSON object of initial placeholder values")),
		mcp.WithOutputSchema[SessionResult](),
	), mcp.NewStructuredToolHandler(s.handleStart))

	// TOOL: next_act
	s.mcpServer.AddTool(mcp.NewTool("next_act",
		mcp.WithDescription("Play the next act of a session and return its messages."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID")),
		mcp.WithString("context", mcp.Description("JSON object merged into the session context")),
		mcp.WithOutputSchema[SessionResult](),
	), mcp.NewStructuredToolHandler(s.handleNext))

	// TOOL: answer
	s.mcpServer.AddTool(mcp.NewTool("answer",
		mcp.WithDescription("Record a reply (typically the model answer) in the session history."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Message content")),
		mcp.WithString("role", mcp.Description("Message role (default: assistant)")),
		mcp.WithOutputSchema[SessionResult](),
	), mcp.NewStructuredToolHandler(s.handleAnswer))

	// TOOL: end_session
	s.mcpServer.AddTool(mcp.NewTool("end_session",
		mcp.WithDescription("Stop a session and return its final history."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID")),
		mcp.WithOutputSchema[SessionResult](),
	), mcp.NewStructuredToolHandler(s.handleEnd))

	// TOOL: get_history
	s.mcpServer.AddTool(mcp.NewTool("get_history",
		mcp.WithDescription("Render the session history as text."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID")),
		mcp.WithString("skip", mcp.Description("Comma separated roles to leave out")),
		mcp.WithOutputSchema[HistoryResult](),
	), mcp.NewStructuredToolHandler(s.handleHistory))

	// TOOL: list_sessions
	s.mcpServer.AddTool(mcp.NewTool("list_sessions",
		mcp.WithDescription("List stored session IDs."),
		mcp.WithOutputSchema[SessionsResult](),
	), mcp.NewStructuredToolHandler(func(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (SessionsResult, error) {
		ids, err := s.sessions.List(ctx)
		if err != nil {
			return SessionsResult{}, fmt.Errorf("list failed: %w", err)
		}
		if ids == nil {
			ids = []string{}
		}
		return SessionsResult{Sessions: ids}, nil
	}))
}

func stringArg(args map[string]interface{}, name string) string {
	v, _ := args[name].(string)
	return v
}

// contextArg accepts the context either as a JSON string or as an object.
func contextArg(args map[string]interface{}) (domain.Context, error) {
	switch v := args["context"].(type) {
	case nil:
		return nil, nil
	case string:
		if strings.TrimSpace(v) == "" {
			return nil, nil
		}
		var out domain.Context
		if err := json.Unmarshal([]byte(v), &out); err != nil {
			return nil, fmt.Errorf("invalid context: %w", err)
		}
		return out, nil
	case map[string]interface{}:
		return domain.Context(v), nil
	default:
		return nil, fmt.Errorf("invalid context: unexpected %T", v)
	}
}

func (s *Server) result(ctx context.Context, state *domain.State, msgs []domain.Message) (SessionResult, error) {
	status, err := s.engine.Inspect(ctx, state)
	if err != nil {
		return SessionResult{}, err
	}
	keys := s.engine.Keys(state)
	rendered := make([]map[string]string, 0, len(msgs))
	for _, m := range msgs {
		rendered = append(rendered, m.Fields(keys))
	}
	return SessionResult{SessionID: state.SessionID, Messages: rendered, Status: status}, nil
}

// update applies op to a stored session under its lock.
func (s *Server) update(ctx context.Context, sessionID string, op func(ctx context.Context, state *domain.State) (*domain.State, error)) (*domain.State, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: session_id is required", domain.ErrInvalidSessionID)
	}
	return s.sessions.Update(ctx, sessionID, func(ctx context.Context, state *domain.State) error {
		next, err := op(ctx, state)
		if err != nil {
			return err
		}
		*state = *next
		return nil
	})
}

func (s *Server) handleCompile(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (CompileResult, error) {
	text := stringArg(args, "text")
	scriptID := stringArg(args, "script_id")

	switch {
	case text != "":
		return CompileResult{Scenario: s.engine.Compile(text)}, nil
	case scriptID != "":
		script, err := s.engine.Script(scriptID)
		if err != nil {
			return CompileResult{}, err
		}
		data, err := s.engine.CompileScript(script)
		if err != nil {
			return CompileResult{}, err
		}
		return CompileResult{Scenario: data}, nil
	default:
		return CompileResult{}, errors.New("text or script_id is required")
	}
}

func (s *Server) handleStart(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (SessionResult, error) {
	initial, err := contextArg(args)
	if err != nil {
		return SessionResult{}, err
	}

	var script *domain.Script
	switch {
	case stringArg(args, "script_id") != "":
		if script, err = s.engine.Script(stringArg(args, "script_id")); err != nil {
			return SessionResult{}, err
		}
	case stringArg(args, "text") != "":
		script = &domain.Script{Text: stringArg(args, "text")}
	default:
		return SessionResult{}, errors.New("script_id or text is required")
	}

	sessionID := stringArg(args, "session_id")
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	state, err := s.sessions.LoadOrStart(ctx, sessionID, func(ctx context.Context) (*domain.State, error) {
		state, err := s.engine.StartScript(ctx, script)
		if err != nil {
			return nil, err
		}
		if len(initial) > 0 {
			state.Context = domain.MergeContexts(state.Context, initial)
		}
		return state, nil
	})
	if err != nil {
		return SessionResult{}, err
	}
	s.logger.Info("MCP session started", "session_id", sessionID, "script", script.ID)
	return s.result(ctx, state, nil)
}

func (s *Server) handleNext(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (SessionResult, error) {
	actCtx, err := contextArg(args)
	if err != nil {
		return SessionResult{}, err
	}
	var msgs []domain.Message
	state, err := s.update(ctx, stringArg(args, "session_id"), func(ctx context.Context, state *domain.State) (*domain.State, error) {
		next, out, err := s.engine.Next(ctx, state, actCtx)
		msgs = out
		return next, err
	})
	if err != nil {
		return SessionResult{}, err
	}
	return s.result(ctx, state, msgs)
}

func (s *Server) handleAnswer(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (SessionResult, error) {
	raw := stringArg(args, "content")
	content, err := runner.SanitizeInput(raw)
	if err != nil {
		s.logger.Warn("MCP answer rejected", "err", err, "size", len(raw))
		return SessionResult{}, fmt.Errorf("input rejected: %w", err)
	}
	role := stringArg(args, "role")
	if role == "" {
		role = "assistant"
	}
	msg := domain.Message{Role: role, Content: content}
	state, err := s.update(ctx, stringArg(args, "session_id"), func(ctx context.Context, state *domain.State) (*domain.State, error) {
		return s.engine.Answer(ctx, state, msg)
	})
	if err != nil {
		return SessionResult{}, err
	}
	return s.result(ctx, state, []domain.Message{msg})
}

func (s *Server) handleEnd(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (SessionResult, error) {
	var history []domain.Message
	state, err := s.update(ctx, stringArg(args, "session_id"), func(ctx context.Context, state *domain.State) (*domain.State, error) {
		next, out, err := s.engine.End(ctx, state)
		history = out
		return next, err
	})
	if err != nil {
		return SessionResult{}, err
	}
	return s.result(ctx, state, history)
}

func (s *Server) handleHistory(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (HistoryResult, error) {
	sessionID := stringArg(args, "session_id")
	if sessionID == "" {
		return HistoryResult{}, fmt.Errorf("%w: session_id is required", domain.ErrInvalidSessionID)
	}
	state, err := s.sessions.Load(ctx, sessionID)
	if err != nil {
		return HistoryResult{}, err
	}
	var skip []string
	if v := stringArg(args, "skip"); v != "" {
		for _, role := range strings.Split(v, ",") {
			skip = append(skip, strings.TrimSpace(role))
		}
	}
	text, err := s.engine.History(ctx, state, skip...)
	if err != nil {
		return HistoryResult{}, err
	}
	return HistoryResult{SessionID: sessionID, History: text}, nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(ScriptsURI, "Script Library",
		mcp.WithResourceDescription("IDs of the scripts sessions can be started from"),
		mcp.WithMIMEType("application/json"),
	), s.readScripts)
}

func (s *Server) readScripts(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	ids, err := s.engine.Scripts()
	if err != nil {
		return nil, fmt.Errorf("failed to list scripts: %w", err)
	}
	jsonBytes, _ := json.Marshal(ids)

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      ScriptsURI,
			MIMEType: "application/json",
			Text:     string(jsonBytes),
		},
	}, nil
}
