package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"gmailbridge/internal/gmail"
	"gmailbridge/internal/instrumentation"
	"gmailbridge/internal/logging"
	"gmailbridge/internal/vault"
)

// DefaultAPIAddr is the default listen address for the REST API.
const DefaultAPIAddr = ":8000"

// APIServer serves the REST surface over the session's Gmail client.
type APIServer struct {
	sc         *ServerContext
	logger     *slog.Logger
	metrics    *instrumentation.Metrics
	health     *HealthChecker
	httpServer *http.Server
	addr       string
}

// NewAPIServer creates the REST API server bound to addr.
func NewAPIServer(sc *ServerContext, addr string) *APIServer {
	if addr == "" {
		addr = DefaultAPIAddr
	}
	return &APIServer{
		sc:      sc,
		logger:  sc.Logger(),
		metrics: sc.Metrics(),
		health:  NewHealthChecker(sc),
		addr:    addr,
	}
}

// Addr returns the configured listen address.
func (s *APIServer) Addr() string {
	return s.addr
}

// Handler builds the route table. Exposed for tests.
func (s *APIServer) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET /health", s.wrap("/health", s.handleHealth))
	s.health.RegisterHealthEndpoints(mux)

	mux.Handle("GET /api/emails", s.wrap("/api/emails", s.handleListEmails))
	mux.Handle("POST /api/emails/read", s.wrap("/api/emails/read", s.handleReadEmails))
	mux.Handle("POST /api/emails/send", s.wrap("/api/emails/send", s.handleSendEmail))

	mux.Handle("POST /api/emails/{id}/mark-read", s.wrap("/api/emails/{id}/mark-read",
		s.handleAction("marked as read", func(ctx context.Context, c *gmail.Client, id string) error {
			return c.MarkAsRead(ctx, id)
		})))
	mux.Handle("POST /api/emails/{id}/mark-unread", s.wrap("/api/emails/{id}/mark-unread",
		s.handleAction("marked as unread", func(ctx context.Context, c *gmail.Client, id string) error {
			return c.MarkAsUnread(ctx, id)
		})))
	mux.Handle("POST /api/emails/{id}/mark-spam", s.wrap("/api/emails/{id}/mark-spam",
		s.handleAction("marked as spam", func(ctx context.Context, c *gmail.Client, id string) error {
			return c.MarkAsSpam(ctx, id)
		})))
	mux.Handle("POST /api/emails/{id}/trash", s.wrap("/api/emails/{id}/trash",
		s.handleAction("moved to trash", func(ctx context.Context, c *gmail.Client, id string) error {
			return c.MoveToTrash(ctx, id)
		})))
	mux.Handle("POST /api/emails/{id}/star", s.wrap("/api/emails/{id}/star",
		s.handleAction("starred", func(ctx context.Context, c *gmail.Client, id string) error {
			return c.AddStar(ctx, id)
		})))
	mux.Handle("POST /api/emails/{id}/labels", s.wrap("/api/emails/{id}/labels", s.handleModifyLabels))

	mux.Handle("POST /api/emails/bulk/mark-read", s.wrap("/api/emails/bulk/mark-read",
		s.handleBulk("marked as read", func(ctx context.Context, c *gmail.Client, id string) error {
			return c.MarkAsRead(ctx, id)
		})))
	mux.Handle("POST /api/emails/bulk/mark-unread", s.wrap("/api/emails/bulk/mark-unread",
		s.handleBulk("marked as unread", func(ctx context.Context, c *gmail.Client, id string) error {
			return c.MarkAsUnread(ctx, id)
		})))
	mux.Handle("POST /api/emails/bulk/mark-spam", s.wrap("/api/emails/bulk/mark-spam",
		s.handleBulk("marked as spam", func(ctx context.Context, c *gmail.Client, id string) error {
			return c.MarkAsSpam(ctx, id)
		})))
	mux.Handle("POST /api/emails/bulk/trash", s.wrap("/api/emails/bulk/trash",
		s.handleBulk("moved to trash", func(ctx context.Context, c *gmail.Client, id string) error {
			return c.MoveToTrash(ctx, id)
		})))
	mux.Handle("POST /api/emails/bulk/star", s.wrap("/api/emails/bulk/star",
		s.handleBulk("starred", func(ctx context.Context, c *gmail.Client, id string) error {
			return c.AddStar(ctx, id)
		})))
	mux.Handle("POST /api/emails/bulk/labels", s.wrap("/api/emails/bulk/labels", s.handleBulkModifyLabels))

	mux.Handle("GET /api/labels", s.wrap("/api/labels", s.handleListLabels))

	return mux
}

// Start runs the REST server. Blocking; run in a goroutine for non-blocking
// operation.
func (s *APIServer) Start() error {
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	s.logger.Info("starting REST API server", "addr", s.addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the REST server.
func (s *APIServer) Shutdown(ctx context.Context) error {
	s.health.SetReady(false)
	if s.httpServer != nil {
		s.logger.Info("shutting down REST API server")
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// statusRecorder captures the response status for logging and metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// wrap composes the request middleware: correlation id, duration logging,
// and HTTP metrics keyed by the route pattern rather than the raw path.
func (s *APIServer) wrap(pattern string, h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		correlationID := uuid.NewString()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(rec, r)

		duration := time.Since(start)
		s.metrics.RecordHTTPRequest(r.Context(), r.Method, pattern, rec.status, duration)
		s.logger.Info("http request",
			slog.String("method", r.Method),
			slog.String(logging.KeyPath, pattern),
			slog.Int("status", rec.status),
			slog.Duration(logging.KeyDuration, duration),
			logging.CorrelationID(correlationID),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps errors to HTTP statuses: authentication failures are 401,
// everything else 500 unless the caller picked a status.
func (s *APIServer) writeError(w http.ResponseWriter, status int, err error) {
	if status == 0 {
		status = http.StatusInternalServerError
		if errors.Is(err, vault.ErrAuthentication) {
			status = http.StatusUnauthorized
		}
	}
	writeJSON(w, status, map[string]any{
		"success": false,
		"error":   err.Error(),
	})
}

func (s *APIServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":          "healthy",
		"has_credentials": s.sc.Vault().HasCredentials(),
	})
}

type readEmailsRequest struct {
	Query      string `json:"query"`
	MaxResults int64  `json:"max_results"`
}

func (s *APIServer) listEmails(w http.ResponseWriter, r *http.Request, query string, maxResults int64) {
	var emails []*gmail.MessageInfo
	err := s.sc.WithClient(r.Context(), func(c *gmail.Client) error {
		var lerr error
		emails, lerr = c.ListMessages(r.Context(), query, maxResults)
		return lerr
	})
	if err != nil {
		s.writeError(w, 0, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"emails":  emails,
		"count":   len(emails),
	})
}

func (s *APIServer) handleListEmails(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	maxResults := int64(10)
	if v := r.URL.Query().Get("max_results"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid max_results: %q", v))
			return
		}
		maxResults = n
	}
	s.listEmails(w, r, query, maxResults)
}

func (s *APIServer) handleReadEmails(w http.ResponseWriter, r *http.Request) {
	var req readEmailsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if req.MaxResults <= 0 {
		req.MaxResults = 10
	}
	s.listEmails(w, r, req.Query, req.MaxResults)
}

type sendEmailRequest struct {
	To       []string `json:"to"`
	Cc       []string `json:"cc"`
	Bcc      []string `json:"bcc"`
	Subject  string   `json:"subject"`
	Body     string   `json:"body"`
	HTMLBody string   `json:"html_body"`
}

func (s *APIServer) handleSendEmail(w http.ResponseWriter, r *http.Request) {
	var req sendEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	msg := &gmail.EmailMessage{
		To:       req.To,
		Cc:       req.Cc,
		Bcc:      req.Bcc,
		Subject:  req.Subject,
		Body:     req.Body,
		HTMLBody: req.HTMLBody,
	}

	var id string
	err := s.sc.WithClient(r.Context(), func(c *gmail.Client) error {
		var serr error
		id, serr = c.SendEmail(r.Context(), msg)
		return serr
	})
	if err != nil {
		s.writeError(w, 0, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"message":    "email sent",
		"message_id": id,
	})
}

// handleAction builds a handler for a single-message state change.
func (s *APIServer) handleAction(done string, fn func(context.Context, *gmail.Client, string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if id == "" {
			s.writeError(w, http.StatusBadRequest, fmt.Errorf("message id is required"))
			return
		}

		err := s.sc.WithClient(r.Context(), func(c *gmail.Client) error {
			return fn(r.Context(), c, id)
		})
		if err != nil {
			s.writeError(w, 0, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"message": fmt.Sprintf("message %s %s", id, done),
		})
	}
}

type bulkRequest struct {
	MessageIDs []string `json:"message_ids"`
}

// handleBulk builds a handler for a bulk state change. Partial failure still
// reports the number of messages processed.
func (s *APIServer) handleBulk(done string, fn func(context.Context, *gmail.Client, string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req bulkRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
			return
		}
		if len(req.MessageIDs) == 0 {
			s.writeError(w, http.StatusBadRequest, fmt.Errorf("message_ids is required"))
			return
		}

		var count int
		err := s.sc.WithClient(r.Context(), func(c *gmail.Client) error {
			var berr error
			count, berr = c.ForEach(r.Context(), req.MessageIDs, func(ctx context.Context, id string) error {
				return fn(ctx, c, id)
			})
			return berr
		})
		if err != nil && count == 0 {
			s.writeError(w, 0, err)
			return
		}

		resp := map[string]any{
			"success": err == nil,
			"message": fmt.Sprintf("%d of %d messages %s", count, len(req.MessageIDs), done),
			"count":   count,
		}
		if err != nil {
			resp["error"] = err.Error()
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

type modifyLabelsRequest struct {
	MessageIDs   []string `json:"message_ids"`
	AddLabels    []string `json:"add_labels"`
	RemoveLabels []string `json:"remove_labels"`
}

func (s *APIServer) handleModifyLabels(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req modifyLabelsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if len(req.AddLabels) == 0 && len(req.RemoveLabels) == 0 {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("add_labels or remove_labels is required"))
		return
	}

	err := s.sc.WithClient(r.Context(), func(c *gmail.Client) error {
		return c.ModifyLabels(r.Context(), id, req.AddLabels, req.RemoveLabels)
	})
	if err != nil {
		s.writeError(w, 0, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": fmt.Sprintf("labels updated on message %s", id),
	})
}

func (s *APIServer) handleBulkModifyLabels(w http.ResponseWriter, r *http.Request) {
	var req modifyLabelsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if len(req.MessageIDs) == 0 {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("message_ids is required"))
		return
	}
	if len(req.AddLabels) == 0 && len(req.RemoveLabels) == 0 {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("add_labels or remove_labels is required"))
		return
	}

	var count int
	err := s.sc.WithClient(r.Context(), func(c *gmail.Client) error {
		var berr error
		count, berr = c.ForEach(r.Context(), req.MessageIDs, func(ctx context.Context, id string) error {
			return c.ModifyLabels(ctx, id, req.AddLabels, req.RemoveLabels)
		})
		return berr
	})
	if err != nil && count == 0 {
		s.writeError(w, 0, err)
		return
	}

	resp := map[string]any{
		"success": err == nil,
		"message": fmt.Sprintf("labels updated on %d of %d messages", count, len(req.MessageIDs)),
		"count":   count,
	}
	if err != nil {
		resp["error"] = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *APIServer) handleListLabels(w http.ResponseWriter, r *http.Request) {
	var labels []*gmail.LabelInfo
	err := s.sc.WithClient(r.Context(), func(c *gmail.Client) error {
		var lerr error
		labels, lerr = c.ListLabels(r.Context())
		return lerr
	})
	if err != nil {
		s.writeError(w, 0, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"labels":  labels,
		"count":   len(labels),
	})
}
