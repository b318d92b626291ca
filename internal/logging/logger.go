// Package logging builds the process slog logger and carries request ids
// through contexts so that every record logged with a request's context is
// tagged with it.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/rs/xid"
)

// Output formats accepted by New.
const (
	FormatAuto = "auto"
	FormatText = "text"
	FormatJSON = "json"
)

// MaxRequestIDLength bounds ids accepted from clients.
const MaxRequestIDLength = 128

// New returns a logger writing to w at level. FormatAuto writes text when
// w is a terminal and JSON otherwise.
func New(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var h slog.Handler
	if useText(w, format) {
		h = slog.NewTextHandler(w, opts)
	} else {
		h = slog.NewJSONHandler(w, opts)
	}
	return slog.New(&requestHandler{Handler: h})
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func useText(w io.Writer, format string) bool {
	switch strings.ToLower(format) {
	case FormatText:
		return true
	case FormatJSON:
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// ParseLevel maps debug, info, warn and error to slog levels. Anything
// else is info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type requestIDKey struct{}

// NewRequestID returns a fresh, sortable request id.
func NewRequestID() string {
	return xid.New().String()
}

// WithRequestID stores id on ctx. Empty or oversized ids and ids with
// non-printable characters are replaced by a fresh one.
func WithRequestID(ctx context.Context, id string) (context.Context, string) {
	id, ok := normalizeRequestID(id)
	if !ok {
		id = NewRequestID()
	}
	return context.WithValue(ctx, requestIDKey{}, id), id
}

// RequestID returns the id stored on ctx, or "".
func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func normalizeRequestID(id string) (string, bool) {
	id = strings.TrimSpace(id)
	if id == "" || len(id) > MaxRequestIDLength {
		return "", false
	}
	for _, r := range id {
		if r < 0x20 || r > 0x7e {
			return "", false
		}
	}
	return id, true
}

// requestHandler adds request_id to records logged with a context that
// carries one.
type requestHandler struct {
	slog.Handler
}

func (h *requestHandler) Handle(ctx context.Context, r slog.Record) error {
	if id := RequestID(ctx); id != "" {
		r.AddAttrs(slog.String("request_id", id))
	}
	return h.Handler.Handle(ctx, r)
}

func (h *requestHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &requestHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *requestHandler) WithGroup(name string) slog.Handler {
	return &requestHandler{Handler: h.Handler.WithGroup(name)}
}
