package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/kompvlz/zakupki/internal/blob"
	"github.com/kompvlz/zakupki/internal/models"
	"github.com/kompvlz/zakupki/internal/store"
)

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	s := store.NewStore(blob.NewMemoryStore())
	if err := s.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}
	log := logrus.New()
	log.SetOutput(io.Discard)
	return New(s, nil, log)
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	r := httptest.NewRequest(method, path, rd)
	if body != "" {
		r.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func decodePurchase(t *testing.T, w *httptest.ResponseRecorder) models.Purchase {
	t.Helper()
	var p models.Purchase
	if err := json.Unmarshal(w.Body.Bytes(), &p); err != nil {
		t.Fatalf("decode purchase: %v (%s)", err, w.Body.String())
	}
	return p
}

func TestHealthz(t *testing.T) {
	h := newTestHandler(t)
	w := do(t, h, http.MethodGet, "/healthz", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", w.Code)
	}
}

func TestPurchaseLifecycleOverHTTP(t *testing.T) {
	h := newTestHandler(t)

	// Create
	w := do(t, h, http.MethodPost, "/api/purchases", "")
	if w.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", w.Code, w.Body.String())
	}
	p := decodePurchase(t, w)

	// Edit header fields
	w = do(t, h, http.MethodPatch, "/api/purchases/"+p.ID,
		`{"supplier":"OOO Sever","date":"10.02.2026"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("patch: %d %s", w.Code, w.Body.String())
	}
	got := decodePurchase(t, w)
	if got.Supplier != "OOO Sever" || got.Date != "2026-02-10" {
		t.Fatalf("patch result %+v", got)
	}

	// Commit an item with messy numeric input
	w = do(t, h, http.MethodPut, fmt.Sprintf("/api/purchases/%s/items/0", p.ID),
		`{"name":"Milk","qty":"2","price":"75,50"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("put item: %d %s", w.Code, w.Body.String())
	}
	got = decodePurchase(t, w)
	if got.Items[0].Qty != 2 || got.Items[0].Price != 75 {
		t.Fatalf("coercion wrong: %+v", got.Items[0])
	}

	// Short tap exports and marks imported
	w = do(t, h, http.MethodPost, "/api/purchases/"+p.ID+"/export", `{"holdMs":120}`)
	if w.Code != http.StatusOK {
		t.Fatalf("export: %d %s", w.Code, w.Body.String())
	}
	var exp struct {
		Filename string           `json:"filename"`
		Export   store.ExportFile `json:"export"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &exp); err != nil {
		t.Fatalf("decode export: %v", err)
	}
	if !strings.HasPrefix(exp.Filename, "zakup_import_2026-02-10_") {
		t.Fatalf("filename %q", exp.Filename)
	}
	if exp.Export.Purchase == nil || exp.Export.Purchase.Total != 150 {
		t.Fatalf("export payload %+v", exp.Export)
	}

	// Now read-only: the edit is swallowed silently
	w = do(t, h, http.MethodPatch, "/api/purchases/"+p.ID, `{"supplier":"changed"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("patch imported: %d", w.Code)
	}
	if got = decodePurchase(t, w); got.Supplier != "OOO Sever" {
		t.Fatalf("imported purchase was edited: %q", got.Supplier)
	}

	// Reset requires long hold and confirm
	w = do(t, h, http.MethodPost, "/api/purchases/"+p.ID+"/reset-import", `{"holdMs":120,"confirm":true}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("short-tap reset should be rejected: %d", w.Code)
	}
	w = do(t, h, http.MethodPost, "/api/purchases/"+p.ID+"/reset-import", `{"holdMs":800}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("unconfirmed reset should be rejected: %d", w.Code)
	}
	w = do(t, h, http.MethodPost, "/api/purchases/"+p.ID+"/reset-import", `{"holdMs":800,"confirm":true}`)
	if w.Code != http.StatusOK {
		t.Fatalf("reset: %d %s", w.Code, w.Body.String())
	}
	if got = decodePurchase(t, w); got.Imported || got.ImportedAt != nil {
		t.Fatalf("reset did not clear import: %+v", got)
	}

	// Delete requires confirmation
	w = do(t, h, http.MethodDelete, "/api/purchases/"+p.ID, "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("unconfirmed delete: %d", w.Code)
	}
	w = do(t, h, http.MethodDelete, "/api/purchases/"+p.ID+"?confirm=true", "")
	if w.Code != http.StatusOK {
		t.Fatalf("delete: %d", w.Code)
	}
	w = do(t, h, http.MethodGet, "/api/purchases/"+p.ID, "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete got %d", w.Code)
	}
}

func TestItemValidationNamesField(t *testing.T) {
	h := newTestHandler(t)
	p := decodePurchase(t, do(t, h, http.MethodPost, "/api/purchases", ""))

	w := do(t, h, http.MethodPut, "/api/purchases/"+p.ID+"/items/0",
		`{"name":"","qty":"2","price":"10"}`)
	if w.Code != http.StatusUnprocessableEntity || !strings.Contains(w.Body.String(), `"name"`) {
		t.Fatalf("empty name: %d %s", w.Code, w.Body.String())
	}
	w = do(t, h, http.MethodPut, "/api/purchases/"+p.ID+"/items/0",
		`{"name":"Milk","qty":"0","price":"10"}`)
	if w.Code != http.StatusUnprocessableEntity || !strings.Contains(w.Body.String(), `"qty"`) {
		t.Fatalf("zero qty: %d %s", w.Code, w.Body.String())
	}
	// The rejected edits were not committed
	got := decodePurchase(t, do(t, h, http.MethodGet, "/api/purchases/"+p.ID, ""))
	if got.Items[0].Name != "" || got.Items[0].Qty != 1 {
		t.Fatalf("rejected edit committed: %+v", got.Items[0])
	}
}

func TestListFilters(t *testing.T) {
	h := newTestHandler(t)
	a := decodePurchase(t, do(t, h, http.MethodPost, "/api/purchases", ""))
	b := decodePurchase(t, do(t, h, http.MethodPost, "/api/purchases", ""))
	do(t, h, http.MethodPost, "/api/purchases/"+b.ID+"/export", `{"holdMs":1}`)

	var list struct {
		Items []models.Purchase `json:"items"`
		Total int               `json:"total"`
	}
	w := do(t, h, http.MethodGet, "/api/purchases?filter=todo", "")
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if list.Total != 1 || list.Items[0].ID != a.ID {
		t.Fatalf("todo list %+v", list)
	}
	w = do(t, h, http.MethodGet, "/api/purchases?filter=imported", "")
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if list.Total != 1 || list.Items[0].ID != b.ID {
		t.Fatalf("imported list %+v", list)
	}
	if w = do(t, h, http.MethodGet, "/api/purchases?filter=bogus", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("bogus filter: %d", w.Code)
	}
}

func TestBulkExportEndpoint(t *testing.T) {
	h := newTestHandler(t)
	p := decodePurchase(t, do(t, h, http.MethodPost, "/api/purchases", ""))
	do(t, h, http.MethodPut, "/api/purchases/"+p.ID+"/items/0", `{"name":"Tea","qty":"3","price":"100"}`)

	w := do(t, h, http.MethodGet, "/api/export", "")
	if w.Code != http.StatusOK {
		t.Fatalf("bulk export: %d", w.Code)
	}
	var exp struct {
		Filename string           `json:"filename"`
		Export   store.ExportFile `json:"export"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &exp); err != nil {
		t.Fatal(err)
	}
	if len(exp.Export.Purchases) != 1 || len(exp.Export.Lines) != 1 {
		t.Fatalf("bulk payload %+v", exp.Export)
	}
	if exp.Export.Lines[0].PurchaseID != p.ID || exp.Export.Lines[0].Currency != "RUB" {
		t.Fatalf("line %+v", exp.Export.Lines[0])
	}
}

func TestLongHoldOnExportControlExportsAll(t *testing.T) {
	h := newTestHandler(t)
	a := decodePurchase(t, do(t, h, http.MethodPost, "/api/purchases", ""))
	decodePurchase(t, do(t, h, http.MethodPost, "/api/purchases", ""))

	w := do(t, h, http.MethodPost, "/api/purchases/"+a.ID+"/export", `{"holdMs":800}`)
	if w.Code != http.StatusOK {
		t.Fatalf("long export: %d", w.Code)
	}
	var exp struct {
		Export store.ExportFile `json:"export"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &exp); err != nil {
		t.Fatal(err)
	}
	if exp.Export.Purchase != nil || len(exp.Export.Purchases) != 2 {
		t.Fatalf("long hold should export everything: %+v", exp.Export)
	}
	// And must not have marked anything imported
	got := decodePurchase(t, do(t, h, http.MethodGet, "/api/purchases/"+a.ID, ""))
	if got.Imported {
		t.Fatalf("long hold marked purchase imported")
	}
}
