package httptransport

//go:generate mockgen -source=handlers.go -destination=mocks/mocks.go -package=mocks OracleService

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"verivote/internal/oracle/service"
	"verivote/internal/oracle/stats"
	dErrors "verivote/pkg/domain-errors"
	"verivote/pkg/requestcontext"
)

// OracleService defines the interface for verification operations.
type OracleService interface {
	Submit(ctx context.Context, in service.SubmitInput) (service.SubmitResult, error)
	GetStatus(ctx context.Context, requestID string) (service.Projection, error)
	GetHistory(ctx context.Context, wallet string, f service.HistoryFilters, page, pageSize int) (service.HistoryPage, error)
	ManualOverride(ctx context.Context, requestID string, isVerified bool, reason, operatorID string) error
	HandleExternalSignal(ctx context.Context, requestID string, isVerified bool, metadata map[string]string) error
	GetStats(ctx context.Context) (stats.Summary, error)
	GetHealth(ctx context.Context) stats.Health
}

// Handler handles verification endpoints.
type Handler struct {
	oracle OracleService
	logger *slog.Logger
}

// NewHandler creates the HTTP handler set.
func NewHandler(oracle OracleService, logger *slog.Logger) *Handler {
	return &Handler{oracle: oracle, logger: logger}
}

type submitRequest struct {
	NIK        string            `json:"nik"`
	Name       string            `json:"name"`
	Wallet     string            `json:"wallet"`
	ElectionID string            `json:"election_id,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	result, err := h.oracle.Submit(ctx, service.SubmitInput{
		SubjectID:  req.NIK,
		Name:       req.Name,
		Wallet:     req.Wallet,
		ElectionID: req.ElectionID,
		Metadata:   req.Metadata,
	})
	if err != nil {
		h.logRejection(ctx, "submission rejected", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, result)
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	projection, err := h.oracle.GetStatus(r.Context(), chi.URLParam(r, "requestID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, projection)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	pageSize, _ := strconv.Atoi(q.Get("page_size"))

	history, err := h.oracle.GetHistory(r.Context(), chi.URLParam(r, "wallet"), service.HistoryFilters{
		Status:     q.Get("status"),
		ElectionID: q.Get("election_id"),
	}, page, pageSize)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

type overrideRequest struct {
	IsVerified bool   `json:"is_verified"`
	Reason     string `json:"reason,omitempty"`
	OperatorID string `json:"operator_id"`
}

func (h *Handler) handleOverride(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req overrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	requestID := chi.URLParam(r, "requestID")
	if err := h.oracle.ManualOverride(ctx, requestID, req.IsVerified, req.Reason, req.OperatorID); err != nil {
		h.logRejection(ctx, "manual override rejected", err)
		writeError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "manual override applied",
		"request_id", requestcontext.RequestID(ctx),
		"verification_id", requestID,
		"operator_id", req.OperatorID,
	)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleExternalSignal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	claims := signalClaims(ctx)
	if claims == nil {
		// Unreachable when signalAuth is configured; kept as a hard stop.
		writeError(w, dErrors.New(dErrors.CodeInternal, "signal authentication context error"))
		return
	}

	var body struct {
		Metadata map[string]string `json:"metadata,omitempty"`
	}
	// Body is optional for signals; the verdict is carried by the token.
	_ = json.NewDecoder(r.Body).Decode(&body)

	if err := h.oracle.HandleExternalSignal(ctx, claims.RequestID, claims.IsVerified, body.Metadata); err != nil {
		h.logRejection(ctx, "external signal rejected", err)
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	summary, err := h.oracle.GetStats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := h.oracle.GetHealth(r.Context())
	status := http.StatusOK
	if health.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, health)
}

func (h *Handler) logRejection(ctx context.Context, msg string, err error) {
	code := dErrors.GetCode(err)
	if code == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg,
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		return
	}
	h.logger.WarnContext(ctx, msg,
		"request_id", requestcontext.RequestID(ctx),
		"code", string(code),
		"error", err.Error(),
	)
}
