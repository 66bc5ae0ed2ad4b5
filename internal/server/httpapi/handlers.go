// Package httpapi serves the record collection over HTTP+JSON:
//
//	GET    /codigos       list codes, oldest first
//	POST   /codigos       create a code; replaying a client_id returns the first one
//	DELETE /codigos/{id}  delete a code
//	GET    /health        liveness
//	GET    /metrics       Prometheus metrics
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/scankeeper/internal/common"
	"github.com/dmitrijs2005/scankeeper/internal/logging"
	"github.com/dmitrijs2005/scankeeper/internal/server/models"
	"github.com/gorilla/mux"
)

const maxBodyBytes = 64 << 10

// CodeService is the use-case surface the handlers need.
type CodeService interface {
	List(ctx context.Context) ([]models.Code, error)
	Create(ctx context.Context, data, typ, clientID string) (*models.Code, bool, error)
	Delete(ctx context.Context, id string) error
}

type createRequest struct {
	Data     string `json:"data"`
	Type     string `json:"type"`
	ClientID string `json:"client_id"`
}

type errorResponse struct {
	Message string `json:"message"`
}

type Handler struct {
	codes  CodeService
	logger logging.Logger

	// OnStored, when set, is called after every successful create.
	OnStored func(created bool)
}

func NewHandler(codes CodeService, logger logging.Logger) *Handler {
	return &Handler{codes: codes, logger: logger.With("module", "httpapi")}
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (h *Handler) listCodes(w http.ResponseWriter, r *http.Request) {
	codes, err := h.codes.List(r.Context())
	if err != nil {
		h.internalError(w, r, "list codes", err)
		return
	}
	writeJSON(w, http.StatusOK, codes)
}

func (h *Handler) createCode(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.ClientID == "" {
		req.ClientID = r.Header.Get(common.IdempotencyKeyHeader)
	}

	code, created, err := h.codes.Create(r.Context(), req.Data, req.Type, req.ClientID)
	if errors.Is(err, common.ErrInvalidInput) {
		writeError(w, http.StatusBadRequest, "data is required")
		return
	}
	if err != nil {
		h.internalError(w, r, "create code", err)
		return
	}

	if h.OnStored != nil {
		h.OnStored(created)
	}
	status := http.StatusCreated
	if !created {
		status = http.StatusOK
		h.logger.Info(r.Context(), "replayed create", "id", code.ID, "client_id", code.ClientID)
	}
	writeJSON(w, status, code)
}

func (h *Handler) deleteCode(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	err := h.codes.Delete(r.Context(), id)
	if errors.Is(err, common.ErrNotFound) {
		writeError(w, http.StatusNotFound, "code not found")
		return
	}
	if err != nil {
		h.internalError(w, r, "delete code", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.logger.Error(r.Context(), op+" failed", "error", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Message: msg})
}
