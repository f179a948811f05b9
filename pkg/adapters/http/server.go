package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/aretw0/actscript"
	"github.com/aretw0/actscript/internal/logging"
	"github.com/aretw0/actscript/pkg/domain"
	"github.com/aretw0/actscript/pkg/observability"
	"github.com/aretw0/actscript/pkg/runner"
	"github.com/aretw0/actscript/pkg/session"
)

// Engine is the part of actscript.Engine the HTTP host needs.
type Engine interface {
	Scripts() ([]string, error)
	Script(id string) (*domain.Script, error)
	Compile(text string) *domain.ScenarioData
	CompileScript(script *domain.Script) (*domain.ScenarioData, error)
	StartScript(ctx context.Context, script *domain.Script) (*domain.State, error)
	Next(ctx context.Context, state *domain.State, actCtx domain.Context) (*domain.State, []domain.Message, error)
	Execute(ctx context.Context, state *domain.State, act string, actCtx domain.Context) (*domain.State, []domain.Message, error)
	Answer(ctx context.Context, state *domain.State, msgs ...domain.Message) (*domain.State, error)
	AddCost(ctx context.Context, state *domain.State, item domain.CostItem) (*domain.State, *domain.CostItem, error)
	End(ctx context.Context, state *domain.State) (*domain.State, []domain.Message, error)
	Messages(ctx context.Context, state *domain.State) ([]domain.Message, error)
	History(ctx context.Context, state *domain.State, skipRoles ...string) (string, error)
	Inspect(ctx context.Context, state *domain.State) (*actscript.Status, error)
	Keys(state *domain.State) domain.MessageKeys
}

var _ Engine = (*actscript.Engine)(nil)

var (
	errBadRequest    = errors.New("bad request")
	errSessionExists = errors.New("session already exists")
	errCostDisabled  = errors.New("cost tracking is disabled")
)

// Server serves scripts and sessions. Sessions are stateless per request:
// the snapshot is loaded, the operation runs under the session lock and the
// result is saved.
type Server struct {
	engine   Engine
	sessions *session.Manager
	metrics  *observability.Metrics
	streams  *StreamManager
	upgrader websocket.Upgrader
	spec     *openapi3.T
	newID    func() string
	logger   *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithMetrics exposes /metrics and times every route.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithIDGenerator replaces the session ID generator (uuid v4 by default).
func WithIDGenerator(fn func() string) Option {
	return func(s *Server) {
		s.newID = fn
	}
}

// NewServer creates the server. It fails when the embedded API document is invalid.
func NewServer(engine Engine, sessions *session.Manager, opts ...Option) (*Server, error) {
	spec, err := Spec()
	if err != nil {
		return nil, err
	}
	s := &Server{
		engine:   engine,
		sessions: sessions,
		spec:     spec,
		newID:    uuid.NewString,
		logger:   logging.NewNop(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.streams = NewStreamManager(s.logger)
	return s, nil
}

// NewHandler creates a new HTTP handler for the engine.
func NewHandler(engine Engine, sessions *session.Manager, opts ...Option) (http.Handler, error) {
	s, err := NewServer(engine, sessions, opts...)
	if err != nil {
		return nil, err
	}
	return s.Routes(), nil
}

// Streams returns the diff broadcaster.
func (s *Server) Streams() *StreamManager {
	return s.streams
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(enableCORS)
	if s.metrics != nil {
		r.Use(s.observe)
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Get("/health", s.getHealth)
	r.Get("/info", s.getInfo)
	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		_, _ = w.Write(rawSpec)
	})

	r.Post("/compile", s.compile)
	r.Get("/scripts", s.listScripts)
	r.Get("/scripts/{id}", s.getScript)

	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", s.listSessions)
		r.Post("/", s.createSession)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.getSession)
			r.Delete("/", s.deleteSession)
			r.Post("/next", s.nextAct)
			r.Post("/execute", s.executeAct)
			r.Post("/answer", s.answer)
			r.Post("/cost", s.addCost)
			r.Post("/end", s.endSession)
			r.Get("/history", s.getHistory)
			r.Get("/ws", s.streamSession)
		})
	})
	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Custom-Header")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// observe records the duration of each request under its route pattern.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		s.metrics.ObserveOperation(r.Method+" "+route, time.Since(start).Seconds())
	})
}

// -- Responses --

type sessionResponse struct {
	SessionID string              `json:"session_id"`
	Messages  []map[string]string `json:"messages"`
	Status    *actscript.Status   `json:"status,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response encode failed", "err", err)
	}
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrScriptNotFound),
		errors.Is(err, domain.ErrActNotFound):
		status = http.StatusNotFound
	case errors.Is(err, errBadRequest),
		errors.Is(err, domain.ErrInvalidSessionID),
		errors.Is(err, domain.ErrNotInitialized),
		errors.Is(err, domain.ErrInvalidContext),
		errors.Is(err, runner.ErrInputTooLarge),
		errors.Is(err, runner.ErrInvalidUTF8):
		status = http.StatusBadRequest
	case errors.Is(err, errSessionExists), errors.Is(err, errCostDisabled):
		status = http.StatusConflict
	}
	if status >= 500 {
		s.logger.Error("request failed", "err", err)
	} else {
		s.logger.Warn("request rejected", "status", status, "err", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// decode reads an optional JSON body into v.
func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: invalid request body: %v", errBadRequest, err)
	}
	return nil
}

func (s *Server) render(state *domain.State, msgs []domain.Message) []map[string]string {
	keys := s.engine.Keys(state)
	out := make([]map[string]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Fields(keys))
	}
	return out
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request, status int, state *domain.State, msgs []domain.Message) {
	st, err := s.engine.Inspect(r.Context(), state)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, status, sessionResponse{
		SessionID: state.SessionID,
		Messages:  s.render(state, msgs),
		Status:    st,
	})
}

// update runs op on the stored session and broadcasts the resulting diff.
func (s *Server) update(ctx context.Context, sessionID string, op func(ctx context.Context, state *domain.State) (*domain.State, error)) (*domain.State, error) {
	var before *domain.State
	after, err := s.sessions.Update(ctx, sessionID, func(ctx context.Context, state *domain.State) error {
		before = state.Snapshot()
		next, err := op(ctx, state)
		if err != nil {
			return err
		}
		*state = *next
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(sessionID, before, after)
	return after, nil
}

// -- Handlers --

func (s *Server) getHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) getInfo(w http.ResponseWriter, r *http.Request) {
	apiVersion := "unknown"
	if s.spec.Info != nil {
		apiVersion = s.spec.Info.Version
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"app":         "actscript-http",
		"version":     strings.TrimSpace(actscript.Version),
		"api_version": apiVersion,
	})
}

type compileRequest struct {
	Text     string `json:"text"`
	ScriptID string `json:"script_id"`
}

func (s *Server) compile(w http.ResponseWriter, r *http.Request) {
	var body compileRequest
	if err := decode(r, &body); err != nil {
		s.fail(w, err)
		return
	}
	switch {
	case body.ScriptID != "":
		script, err := s.engine.Script(body.ScriptID)
		if err != nil {
			s.fail(w, err)
			return
		}
		data, err := s.engine.CompileScript(script)
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, data)
	case body.Text != "":
		writeJSON(w, http.StatusOK, s.engine.Compile(body.Text))
	default:
		s.fail(w, fmt.Errorf("%w: text or script_id is required", errBadRequest))
	}
}

func (s *Server) listScripts(w http.ResponseWriter, r *http.Request) {
	ids, err := s.engine.Scripts()
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ids)
}

func (s *Server) getScript(w http.ResponseWriter, r *http.Request) {
	script, err := s.engine.Script(chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, script)
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	ids, err := s.sessions.List(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ids)
}

type createSessionRequest struct {
	SessionID string         `json:"session_id"`
	ScriptID  string         `json:"script_id"`
	Text      string         `json:"text"`
	Context   domain.Context `json:"context"`
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var body createSessionRequest
	if err := decode(r, &body); err != nil {
		s.fail(w, err)
		return
	}

	var script *domain.Script
	switch {
	case body.ScriptID != "":
		var err error
		if script, err = s.engine.Script(body.ScriptID); err != nil {
			s.fail(w, err)
			return
		}
	case body.Text != "":
		script = &domain.Script{Text: body.Text}
	default:
		s.fail(w, fmt.Errorf("%w: script_id or text is required", errBadRequest))
		return
	}

	sessionID := body.SessionID
	if sessionID == "" {
		sessionID = s.newID()
	}

	created := false
	state, err := s.sessions.LoadOrStart(r.Context(), sessionID, func(ctx context.Context) (*domain.State, error) {
		created = true
		state, err := s.engine.StartScript(ctx, script)
		if err != nil {
			return nil, err
		}
		if len(body.Context) > 0 {
			state.Context = domain.MergeContexts(state.Context, body.Context)
		}
		return state, nil
	})
	if err != nil {
		s.fail(w, err)
		return
	}
	if !created {
		s.fail(w, fmt.Errorf("%w: %s", errSessionExists, sessionID))
		return
	}
	s.logger.Info("session created", "session_id", sessionID, "script", script.ID)
	s.respond(w, r, http.StatusCreated, state, nil)
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	state, err := s.sessions.Load(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type actRequest struct {
	Act     string         `json:"act"`
	Context domain.Context `json:"context"`
}

func (s *Server) nextAct(w http.ResponseWriter, r *http.Request) {
	var body actRequest
	if err := decode(r, &body); err != nil {
		s.fail(w, err)
		return
	}
	var msgs []domain.Message
	state, err := s.update(r.Context(), chi.URLParam(r, "id"), func(ctx context.Context, state *domain.State) (*domain.State, error) {
		next, out, err := s.engine.Next(ctx, state, body.Context)
		msgs = out
		return next, err
	})
	if err != nil {
		s.fail(w, err)
		return
	}
	s.respond(w, r, http.StatusOK, state, msgs)
}

func (s *Server) executeAct(w http.ResponseWriter, r *http.Request) {
	var body actRequest
	if err := decode(r, &body); err != nil {
		s.fail(w, err)
		return
	}
	var msgs []domain.Message
	state, err := s.update(r.Context(), chi.URLParam(r, "id"), func(ctx context.Context, state *domain.State) (*domain.State, error) {
		next, out, err := s.engine.Execute(ctx, state, body.Act, body.Context)
		msgs = out
		return next, err
	})
	if err != nil {
		s.fail(w, err)
		return
	}
	s.respond(w, r, http.StatusOK, state, msgs)
}

type answerRequest struct {
	Messages []map[string]string `json:"messages"`
}

func (s *Server) answer(w http.ResponseWriter, r *http.Request) {
	var body answerRequest
	if err := decode(r, &body); err != nil {
		s.fail(w, err)
		return
	}
	if len(body.Messages) == 0 {
		s.fail(w, fmt.Errorf("%w: messages are required", errBadRequest))
		return
	}

	var msgs []domain.Message
	state, err := s.update(r.Context(), chi.URLParam(r, "id"), func(ctx context.Context, state *domain.State) (*domain.State, error) {
		keys := s.engine.Keys(state)
		msgs = make([]domain.Message, 0, len(body.Messages))
		for _, fields := range body.Messages {
			msg := domain.MessageFromFields(fields, keys)
			clean, err := runner.SanitizeInput(msg.Content)
			if err != nil {
				return nil, err
			}
			msg.Content = clean
			msgs = append(msgs, msg)
		}
		return s.engine.Answer(ctx, state, msgs...)
	})
	if err != nil {
		s.fail(w, err)
		return
	}
	s.respond(w, r, http.StatusOK, state, msgs)
}

func (s *Server) addCost(w http.ResponseWriter, r *http.Request) {
	var item domain.CostItem
	if err := decode(r, &item); err != nil {
		s.fail(w, err)
		return
	}
	var total *domain.CostItem
	_, err := s.update(r.Context(), chi.URLParam(r, "id"), func(ctx context.Context, state *domain.State) (*domain.State, error) {
		next, sum, err := s.engine.AddCost(ctx, state, item)
		if err != nil {
			return nil, err
		}
		if sum == nil {
			return nil, errCostDisabled
		}
		total = sum
		return next, nil
	})
	if err != nil {
		s.fail(w, err)
		return
	}
	if s.metrics != nil {
		s.metrics.ObserveCost(item)
	}
	writeJSON(w, http.StatusOK, total)
}

func (s *Server) endSession(w http.ResponseWriter, r *http.Request) {
	var history []domain.Message
	state, err := s.update(r.Context(), chi.URLParam(r, "id"), func(ctx context.Context, state *domain.State) (*domain.State, error) {
		next, out, err := s.engine.End(ctx, state)
		history = out
		return next, err
	})
	if err != nil {
		s.fail(w, err)
		return
	}
	s.respond(w, r, http.StatusOK, state, history)
}

func (s *Server) getHistory(w http.ResponseWriter, r *http.Request) {
	state, err := s.sessions.Load(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, err)
		return
	}
	var skip []string
	if v := r.URL.Query().Get("skip"); v != "" {
		skip = strings.Split(v, ",")
	}

	if r.URL.Query().Get("format") == "text" {
		text, err := s.engine.History(r.Context(), state, skip...)
		if err != nil {
			s.fail(w, err)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, text)
		return
	}

	msgs, err := s.engine.Messages(r.Context(), state)
	if err != nil {
		s.fail(w, err)
		return
	}
	msgs = slices.DeleteFunc(slices.Clone(msgs), func(m domain.Message) bool {
		return slices.Contains(skip, m.Role)
	})
	writeJSON(w, http.StatusOK, s.render(state, msgs))
}
