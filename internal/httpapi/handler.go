// Package httpapi exposes the coordination services over HTTP/JSON and
// streams visibility-scoped snapshots as server-sent events.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/alexanderramin/commitguard/internal/contract"
	"github.com/alexanderramin/commitguard/internal/domain"
	"github.com/alexanderramin/commitguard/internal/event"
	"github.com/alexanderramin/commitguard/internal/logging"
	"github.com/alexanderramin/commitguard/internal/service"
)

const (
	// DefaultIdentityHeader names the trusted header carrying the caller's
	// user id.
	DefaultIdentityHeader = "X-CommitGuard-User"
	headerRequestID       = "X-Request-ID"
	maxBodyBytes          = 1 << 20
)

// Services are the use cases served over HTTP.
type Services struct {
	Registry service.NodeRegistry
	Locks    service.LockManager
	Done     service.DoneStateTracker
	Audit    service.AuditLog
	Reset    service.ResetCoordinator
	View     service.AccessView
	Users    service.UserService
	Stats    service.StatsService
}

// Handler routes requests to the services. Build it with New.
type Handler struct {
	svc            Services
	bus            *event.Bus
	identityHeader string
	logger         *slog.Logger
	now            func() time.Time
	keepAlive      time.Duration
}

type Option func(*Handler)

// WithIdentityHeader overrides the header the caller id is read from.
func WithIdentityHeader(name string) Option {
	return func(h *Handler) {
		if name != "" {
			h.identityHeader = name
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithClock sets the clock used for stats day boundaries.
func WithClock(now func() time.Time) Option {
	return func(h *Handler) { h.now = now }
}

// WithKeepAlive sets how often idle event streams receive a comment line.
func WithKeepAlive(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.keepAlive = d
		}
	}
}

func New(svc Services, bus *event.Bus, opts ...Option) *Handler {
	h := &Handler{
		svc:            svc,
		bus:            bus,
		identityHeader: DefaultIdentityHeader,
		logger:         logging.Discard(),
		now:            time.Now,
		keepAlive:      15 * time.Second,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register installs every route on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.Handle("GET /v1/me", h.wrap("me", h.handleMe))
	mux.Handle("GET /v1/users", h.wrap("users.list", h.handleListUsers))
	mux.Handle("POST /v1/users", h.wrap("users.provision", h.handleProvisionUser))

	mux.Handle("GET /v1/nodes", h.wrap("nodes.list", h.handleListNodes))
	mux.Handle("POST /v1/nodes", h.wrap("nodes.create", h.handleCreateNode))
	mux.Handle("GET /v1/nodes/{id}", h.wrap("nodes.get", h.handleGetNode))
	mux.Handle("PATCH /v1/nodes/{id}", h.wrap("nodes.update", h.handleUpdateNode))
	mux.Handle("DELETE /v1/nodes/{id}", h.wrap("nodes.delete", h.handleDeleteNode))
	mux.Handle("POST /v1/nodes/{id}/done", h.wrap("nodes.done", h.handleToggleDone))
	mux.Handle("POST /v1/nodes/{id}/reset", h.wrap("nodes.reset", h.handleReset))
	mux.Handle("GET /v1/nodes/{id}/matrix", h.wrap("nodes.matrix", h.handleMatrix))

	mux.Handle("GET /v1/locks", h.wrap("locks.list", h.handleListLocks))
	mux.Handle("POST /v1/locks", h.wrap("locks.engage", h.handleEngage))
	mux.Handle("POST /v1/locks/{subNodeId}/abort", h.wrap("locks.abort", h.handleAbort))
	mux.Handle("POST /v1/locks/{subNodeId}/finalize", h.wrap("locks.finalize", h.handleFinalize))

	mux.Handle("GET /v1/audit", h.wrap("audit.query", h.handleAudit))
	mux.Handle("GET /v1/stats", h.wrap("stats", h.handleStats))
	mux.Handle("GET /v1/snapshot", h.wrap("snapshot", h.handleSnapshot))
	mux.Handle("GET /v1/events", h.wrap("events", h.handleEvents))
}

// Routes returns the instrumented HTTP handler for every route.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	h.Register(mux)
	return otelhttp.NewHandler(h.requestLog(mux), "commitguard.http")
}

type handlerFunc func(w http.ResponseWriter, r *http.Request, caller domain.User) error

// wrap resolves the caller from the identity header, runs fn and maps its
// error to a JSON body.
func (h *Handler) wrap(operation string, fn handlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		caller, err := h.identify(r)
		if err == nil {
			err = fn(w, r, caller)
		}
		if err != nil {
			h.writeError(w, r, operation, err)
			return
		}
		h.logger.DebugContext(ctx, "http.request.ok", "operation", operation, "user_id", caller.ID)
	})
}

func (h *Handler) identify(r *http.Request) (domain.User, error) {
	id := strings.TrimSpace(r.Header.Get(h.identityHeader))
	if id == "" {
		return domain.User{}, httpError{
			Status: http.StatusUnauthorized,
			Code:   "IDENTITY_REQUIRED",
			Detail: fmt.Sprintf("missing %s header", h.identityHeader),
		}
	}
	u, err := h.svc.Users.Resolve(r.Context(), id)
	if errors.Is(err, domain.ErrUserNotFound) {
		return domain.User{}, httpError{Status: http.StatusUnauthorized, Code: string(domain.CodeUserNotFound), Detail: err.Error()}
	}
	if err != nil {
		return domain.User{}, err
	}
	return *u, nil
}

// httpError is a transport-level failure with no domain equivalent.
type httpError struct {
	Status int
	Code   string
	Detail string
}

func (e httpError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Detail)
	}
	return e.Code
}

// StatusFor maps a failure code to an HTTP status.
func StatusFor(code domain.ErrorCode) int {
	switch code {
	case domain.CodeDuplicateName, domain.CodeDuplicateSubNodeName,
		domain.CodeUserAlreadyEngaged, domain.CodeUserMarkedDone,
		domain.CodeSubNodeLocked, domain.CodeRootAlreadyProvisioned:
		return http.StatusConflict
	case domain.CodeUnauthorized, domain.CodeUnauthorizedAbort, domain.CodeUnauthorizedReset:
		return http.StatusForbidden
	case domain.CodeNodeNotFound, domain.CodeSubNodeNotFound, domain.CodeUserNotFound:
		return http.StatusNotFound
	case domain.CodeInvalidInput:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, operation string, err error) {
	ctx := r.Context()
	var he httpError
	if errors.As(err, &he) {
		h.logger.DebugContext(ctx, "http.request.failure", "operation", operation, "status", he.Status, "code", he.Code)
		writeJSON(w, he.Status, contract.ErrorResponse{Code: he.Code, Detail: he.Detail})
		return
	}
	body := contract.ErrorFrom(err)
	status := http.StatusInternalServerError
	if code, ok := domain.CodeOf(err); ok {
		status = StatusFor(code)
		h.logger.DebugContext(ctx, "http.request.failure", "operation", operation, "status", status, "code", code)
	} else {
		h.logger.ErrorContext(ctx, "http.request.error", "operation", operation, "error", err)
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON reads a bounded body into dst, rejecting unknown fields and
// trailing data.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return domain.Fail(domain.CodeInvalidInput, "invalid request body: %v", err)
	}
	if dec.More() {
		return domain.Fail(domain.CodeInvalidInput, "invalid request body: trailing data")
	}
	return nil
}

// requestLog assigns a request id, echoes it in X-Request-ID and logs one
// line per request.
func (h *Handler) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx, id := logging.WithRequestID(r.Context(), r.Header.Get(headerRequestID))
		w.Header().Set(headerRequestID, id)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(ctx))

		h.logger.InfoContext(ctx, "http.request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}
