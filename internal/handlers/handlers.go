package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/AdamOzgary/blog/internal/apperr"
	"github.com/AdamOzgary/blog/internal/auth"
	"github.com/AdamOzgary/blog/internal/content"
	"github.com/AdamOzgary/blog/internal/identity"
	"github.com/AdamOzgary/blog/internal/ledger"
	"github.com/AdamOzgary/blog/internal/taxonomy"
)

const maxBodyBytes = 1 << 20

// MetricsInterface is the slice of metrics.Metrics the shell records to.
type MetricsInterface interface {
	RecordHTTPRequest(ctx context.Context, method, path string, status int, duration time.Duration)
	RecordPostView(ctx context.Context)
	RecordReaction(ctx context.Context, target, reaction string)
	RecordComment(ctx context.Context, reply bool)
}

type Services struct {
	Identity *identity.Service
	Sessions *auth.Manager
	Taxonomy *taxonomy.Service
	Content  *content.Service
	Ledger   *ledger.Service
}

type Handler struct {
	identity *identity.Service
	sessions *auth.Manager
	taxonomy *taxonomy.Service
	content  *content.Service
	ledger   *ledger.Service
	logger   *zap.SugaredLogger
	metrics  MetricsInterface
}

func New(svc Services, logger *zap.SugaredLogger, metrics MetricsInterface) *Handler {
	return &Handler{
		identity: svc.Identity,
		sessions: svc.Sessions,
		taxonomy: svc.Taxonomy,
		content:  svc.Content,
		ledger:   svc.Ledger,
		logger:   logger,
		metrics:  metrics,
	}
}

type errorBody struct {
	Error errorResponse `json:"error"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func statusOf(k apperr.Kind) int {
	switch k {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps err to its status and body. Internal causes are logged and
// never sent to the client.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	writeAppError(w, r, h.logger, err)
}

func writeAppError(w http.ResponseWriter, r *http.Request, logger *zap.SugaredLogger, err error) {
	e := apperr.As(err)
	status := statusOf(e.Kind)
	if status == http.StatusInternalServerError {
		logger.Errorw("request failed",
			"request_id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		e = apperr.Internal(err)
	}
	writeJSON(w, status, errorBody{Error: errorResponse{Code: e.Code, Message: e.Message}})
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Validation("request body is empty")
		}
		return apperr.Validation("malformed JSON body")
	}
	return nil
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validation(name + " must be a positive integer")
	}
	return id, nil
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

type statsResponse struct {
	Users int `json:"users"`
	Posts int `json:"posts"`
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	users, err := h.identity.CountUsers(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	posts, err := h.content.CountPosts(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{Users: users, Posts: posts})
}
