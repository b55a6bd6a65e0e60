package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/kompvlz/zakupki/internal/httpx"
	"github.com/kompvlz/zakupki/internal/models"
	"github.com/kompvlz/zakupki/internal/store"
)

// PurchaseHandler exposes the document store to the UI.
type PurchaseHandler struct {
	Store *store.Store
	Log   *logrus.Logger
}

func NewPurchaseHandler(s *store.Store, log *logrus.Logger) *PurchaseHandler {
	return &PurchaseHandler{Store: s, Log: log}
}

// flexible accepts both JSON strings and bare numbers, since the UI form
// fields arrive as strings but API clients tend to send numbers.
type flexible string

func (f *flexible) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexible(s)
		return nil
	}
	*f = flexible(strings.Trim(string(b), `"`))
	return nil
}

// Create: POST /api/purchases
func (h *PurchaseHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, err := h.Store.Create()
	if err != nil {
		h.fail(w, "create purchase", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, p)
}

// List: GET /api/purchases?filter=todo|imported|archived
func (h *PurchaseHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := models.FilterCategory(r.URL.Query().Get("filter"))
	switch filter {
	case models.FilterTodo, models.FilterImported, models.FilterArchived:
	case "":
		filter = models.FilterTodo
	default:
		httpx.JSONError(w, http.StatusBadRequest, "unknown_filter", map[string]string{"filter": string(filter)})
		return
	}
	items := h.Store.List(filter)
	if items == nil {
		items = []models.Purchase{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items, "total": len(items)})
}

// Get: GET /api/purchases/{id} — the open-for-edit path, so a missing id is
// an explicit 404 rather than a silent no-op.
func (h *PurchaseHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.Store.Get(chi.URLParam(r, "id"))
	if err != nil {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

// Update: PATCH /api/purchases/{id} — supplier and/or date. Imported
// purchases swallow the edit silently; the response carries the current
// state either way.
func (h *PurchaseHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req struct {
		Supplier *string `json:"supplier"`
		Date     *string `json:"date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if req.Supplier != nil {
		if err := h.Store.SetSupplier(id, *req.Supplier); err != nil {
			h.fail(w, "set supplier", err)
			return
		}
	}
	if req.Date != nil {
		if err := h.Store.SetDate(id, *req.Date); err != nil {
			h.fail(w, "set date", err)
			return
		}
	}
	h.respondWith(w, id)
}

// AddItem: POST /api/purchases/{id}/items
func (h *PurchaseHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Store.AddItem(id); err != nil {
		h.fail(w, "add item", err)
		return
	}
	h.respondWith(w, id)
}

// UpdateItem: PUT /api/purchases/{id}/items/{index}. This is the form-commit
// point, so required-field validation rejects here, naming the offending
// field; coercion to the documented defaults happens only after it passes.
func (h *PurchaseHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_index", nil)
		return
	}
	var req struct {
		Name  string   `json:"name"`
		Qty   flexible `json:"qty"`
		Price flexible `json:"price"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		httpx.JSONError(w, http.StatusUnprocessableEntity, "validation_failed", map[string]string{"name": "required"})
		return
	}
	if store.ParseNumber(string(req.Qty)) <= 0 {
		httpx.JSONError(w, http.StatusUnprocessableEntity, "validation_failed", map[string]string{"qty": "must be positive"})
		return
	}
	if err := h.Store.UpdateItem(id, index, req.Name, string(req.Qty), string(req.Price)); err != nil {
		h.fail(w, "update item", err)
		return
	}
	h.respondWith(w, id)
}

// RemoveItem: DELETE /api/purchases/{id}/items/{index}
func (h *PurchaseHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_index", nil)
		return
	}
	if err := h.Store.RemoveItem(id, index); err != nil {
		h.fail(w, "remove item", err)
		return
	}
	h.respondWith(w, id)
}

// Archive: POST /api/purchases/{id}/archive
func (h *PurchaseHandler) Archive(w http.ResponseWriter, r *http.Request) {
	h.setArchived(w, r, true)
}

// Unarchive: POST /api/purchases/{id}/unarchive
func (h *PurchaseHandler) Unarchive(w http.ResponseWriter, r *http.Request) {
	h.setArchived(w, r, false)
}

func (h *PurchaseHandler) setArchived(w http.ResponseWriter, r *http.Request, archived bool) {
	id := chi.URLParam(r, "id")
	if err := h.Store.SetArchived(id, archived); err != nil {
		h.fail(w, "set archived", err)
		return
	}
	h.respondWith(w, id)
}

// Delete: DELETE /api/purchases/{id}?confirm=true — destructive, so the
// explicit confirmation has to travel with the request.
func (h *PurchaseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("confirm") != "true" {
		httpx.JSONError(w, http.StatusBadRequest, "confirmation_required", nil)
		return
	}
	if err := h.Store.Delete(chi.URLParam(r, "id")); err != nil {
		h.fail(w, "delete purchase", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// respondWith returns the purchase's current state, or 404 when it is gone.
func (h *PurchaseHandler) respondWith(w http.ResponseWriter, id string) {
	p, err := h.Store.Get(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
			return
		}
		h.fail(w, "get purchase", err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *PurchaseHandler) fail(w http.ResponseWriter, op string, err error) {
	h.Log.WithError(err).Error(op)
	httpx.JSONError(w, http.StatusInternalServerError, "storage_error", nil)
}
