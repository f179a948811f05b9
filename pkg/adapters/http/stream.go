package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/aretw0/actscript/pkg/domain"
)

const (
	writeWait    = 5 * time.Second
	pingInterval = 30 * time.Second
)

// StreamManager fans state diffs out to the subscribers of each session.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- []byte]struct{} // SessionID -> Set of Channels
	logger      *slog.Logger
}

func NewStreamManager(logger *slog.Logger) *StreamManager {
	return &StreamManager{
		subscribers: make(map[string]map[chan<- []byte]struct{}),
		logger:      logger,
	}
}

// Subscribe registers a buffered channel for sessionID. The returned func
// unregisters and closes it.
func (sm *StreamManager) Subscribe(sessionID string) (<-chan []byte, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan []byte, 10)
	if _, ok := sm.subscribers[sessionID]; !ok {
		sm.subscribers[sessionID] = make(map[chan<- []byte]struct{})
	}
	sm.subscribers[sessionID][ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			sm.mu.Lock()
			defer sm.mu.Unlock()
			if subs, ok := sm.subscribers[sessionID]; ok {
				delete(subs, ch)
				if len(subs) == 0 {
					delete(sm.subscribers, sessionID)
				}
			}
			close(ch)
		})
	}
}

// Subscribers counts the live subscriptions of sessionID.
func (sm *StreamManager) Subscribers(sessionID string) int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.subscribers[sessionID])
}

// Broadcast never blocks; slow subscribers miss messages.
func (sm *StreamManager) Broadcast(sessionID string, msg []byte) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers[sessionID] {
		select {
		case ch <- msg:
		default:
			sm.logger.Warn("stream buffer full, dropping diff", "session_id", sessionID)
		}
	}
}

// publish sends the diff between two snapshots of a session.
func (s *Server) publish(sessionID string, before, after *domain.State) {
	diff := domain.Diff(before, after)
	if diff == nil {
		return
	}
	data, err := json.Marshal(diff)
	if err != nil {
		s.logger.Error("diff encode failed", "session_id", sessionID, "err", err)
		return
	}
	s.streams.Broadcast(sessionID, data)
}

// watches reports whether diff touches one of the watched fields. An empty
// list watches everything.
func watches(diff *domain.StateDiff, fields []string) bool {
	if len(fields) == 0 {
		return true
	}
	for _, field := range fields {
		switch strings.TrimSpace(field) {
		case "act":
			if diff.Act != nil {
				return true
			}
		case "queue":
			if diff.Queue != nil {
				return true
			}
		case "context":
			if len(diff.Context) > 0 {
				return true
			}
		case "history":
			if diff.History != nil {
				return true
			}
		case "cost":
			if diff.Cost != nil {
				return true
			}
		}
	}
	return false
}

// streamSession handles GET /sessions/{id}/ws. The first frame is the whole
// session as a diff from nothing; later frames are the diffs of each update.
func (s *Server) streamSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	state, err := s.sessions.Load(r.Context(), sessionID)
	if err != nil {
		s.fail(w, err)
		return
	}

	var watchList []string
	if watch := r.URL.Query().Get("watch"); watch != "" {
		watchList = strings.Split(watch, ",")
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "session_id", sessionID, "err", err)
		return
	}
	defer conn.Close()

	ch, cancel := s.streams.Subscribe(sessionID)
	defer cancel()
	s.logger.Info("stream subscribed", "session_id", sessionID)

	// Reads only detect the client going away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	write := func(data []byte) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteMessage(websocket.TextMessage, data) == nil
	}

	if initial, err := json.Marshal(domain.Diff(nil, state)); err == nil && !write(initial) {
		return
	}

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			s.logger.Info("stream closed", "session_id", sessionID)
			return
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(writeWait)); err != nil {
				return
			}
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if len(watchList) > 0 {
				var diff domain.StateDiff
				if err := json.Unmarshal(msg, &diff); err == nil && !watches(&diff, watchList) {
					continue
				}
			}
			if !write(msg) {
				return
			}
		}
	}
}
