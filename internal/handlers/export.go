package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/kompvlz/zakupki/internal/gesture"
	"github.com/kompvlz/zakupki/internal/httpx"
	"github.com/kompvlz/zakupki/internal/store"
)

// ExportHandler drives the export triggers. The export control is
// gesture-dispatched: a short tap exports one purchase and marks it
// imported, a long hold exports everything. Resetting the import flag is
// gated behind a long hold plus explicit confirmation.
type ExportHandler struct {
	Store *store.Store
	Log   *logrus.Logger
}

func NewExportHandler(s *store.Store, log *logrus.Logger) *ExportHandler {
	return &ExportHandler{Store: s, Log: log}
}

type gestureReq struct {
	HoldMs  int64 `json:"holdMs"`
	Confirm bool  `json:"confirm"`
}

func decodeGesture(r *http.Request) gestureReq {
	var req gestureReq
	if r.Body != nil {
		// A missing or malformed body counts as a plain short tap.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	return req
}

func (g gestureReq) action() gesture.Action {
	return gesture.Classify(time.Duration(g.HoldMs) * time.Millisecond)
}

// Export: POST /api/purchases/{id}/export
func (h *ExportHandler) Export(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	req := decodeGesture(r)

	if req.action() == gesture.ActionLong {
		file, name := h.Store.ExportAll(false)
		httpx.JSON(w, http.StatusOK, map[string]any{"filename": name, "export": file})
		return
	}

	file, name, err := h.Store.ExportOne(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
			return
		}
		h.Log.WithError(err).Error("export purchase")
		httpx.JSONError(w, http.StatusInternalServerError, "storage_error", nil)
		return
	}
	if err := h.Store.MarkImported(id); err != nil {
		h.Log.WithError(err).Error("mark imported")
		httpx.JSONError(w, http.StatusInternalServerError, "storage_error", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"filename": name, "export": file})
}

// ResetImport: POST /api/purchases/{id}/reset-import — privileged reversal.
func (h *ExportHandler) ResetImport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	req := decodeGesture(r)

	if req.action() != gesture.ActionLong {
		httpx.JSONError(w, http.StatusBadRequest, "long_press_required", nil)
		return
	}
	if !req.Confirm {
		httpx.JSONError(w, http.StatusBadRequest, "confirmation_required", nil)
		return
	}
	if err := h.Store.ResetImported(id); err != nil {
		h.Log.WithError(err).Error("reset import")
		httpx.JSONError(w, http.StatusInternalServerError, "storage_error", nil)
		return
	}
	p, err := h.Store.Get(id)
	if err != nil {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

// ExportAll: GET /api/export?includeArchived=true — bulk export with the
// flattened lines view.
func (h *ExportHandler) ExportAll(w http.ResponseWriter, r *http.Request) {
	include := r.URL.Query().Get("includeArchived") == "true"
	file, name := h.Store.ExportAll(include)
	httpx.JSON(w, http.StatusOK, map[string]any{"filename": name, "export": file})
}
