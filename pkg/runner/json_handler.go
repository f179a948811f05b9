package runner

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/aretw0/actscript/pkg/domain"
)

// Event is one JSON line written by JSONHandler.
type Event struct {
	Type     string           `json:"type"`
	Messages []domain.Message `json:"messages,omitempty"`
	Prompt   string           `json:"prompt,omitempty"`
	Message  string           `json:"message,omitempty"`
}

// Event types.
const (
	EventMessages = "messages"
	EventInput    = "input"
	EventSystem   = "system"
)

// JSONHandler implements the IOHandler interface for structured JSON-Lines communication.
type JSONHandler struct {
	Reader  *bufio.Reader
	Writer  io.Writer
	Encoder *json.Encoder
}

// NewJSONHandler creates a handler for JSON IO.
func NewJSONHandler(r io.Reader, w io.Writer) *JSONHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	return &JSONHandler{
		Reader:  bufio.NewReader(r),
		Writer:  w,
		Encoder: json.NewEncoder(w),
	}
}

func (h *JSONHandler) Output(ctx context.Context, messages []domain.Message) error {
	if len(messages) == 0 {
		return nil
	}
	return h.Encoder.Encode(Event{Type: EventMessages, Messages: messages})
}

// Input emits an input event and reads one line. A JSON string is
// unquoted, anything else is taken verbatim.
func (h *JSONHandler) Input(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := h.Encoder.Encode(Event{Type: EventInput, Prompt: prompt}); err != nil {
		return "", err
	}

	text, err := h.Reader.ReadString('\n')
	if err != nil && (err != io.EOF || text == "") {
		return "", err
	}
	text = strings.TrimSpace(text)

	var val string
	if err := json.Unmarshal([]byte(text), &val); err == nil {
		text = val
	}
	clean, err := SanitizeInput(text)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(clean), nil
}

func (h *JSONHandler) SystemOutput(ctx context.Context, msg string) error {
	return h.Encoder.Encode(Event{Type: EventSystem, Message: msg})
}
