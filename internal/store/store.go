// Package store owns the purchase collection: load with schema migration,
// synchronous persistence on every mutation, filtered views and export.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kompvlz/zakupki/internal/blob"
	"github.com/kompvlz/zakupki/internal/metrics"
	"github.com/kompvlz/zakupki/internal/models"
)

// StorageKey is the single blob key holding the whole collection.
const StorageKey = "kvz_zakup_v1"

// ErrNotFound is returned by the operations that treat a missing purchase as
// an explicit error (Get for open-for-edit, ExportOne). Mutating operations
// treat a missing id as a silent no-op instead.
var ErrNotFound = errors.New("store: purchase not found")

// Store holds the in-memory collection and writes it through to blob storage
// before any mutating call returns. Callers are serialized by the internal
// mutex, which is the Go rendition of the original's single event loop.
type Store struct {
	mu        sync.Mutex
	blobs     blob.Store
	purchases []*models.Purchase
	now       func() time.Time
}

func NewStore(blobs blob.Store) *Store {
	return &Store{blobs: blobs, now: time.Now}
}

// persisted wire shapes. Archived is a pointer so records written before the
// field existed can be told apart from explicit false and migrated.
type document struct {
	Purchases []persistedPurchase `json:"purchases"`
}

type persistedPurchase struct {
	ID         string          `json:"id"`
	Date       string          `json:"date"`
	Supplier   string          `json:"supplier"`
	Imported   bool            `json:"imported"`
	ImportedAt *time.Time      `json:"importedAt"`
	Archived   *bool           `json:"archived"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
	Items      []persistedItem `json:"items"`
}

type persistedItem struct {
	Name  string  `json:"name"`
	Qty   float64 `json:"qty"`
	Price float64 `json:"price"`
}

// Load reads the persisted blob. A missing or unparseable blob yields an
// empty collection, never an error: corrupted storage is "no data yet".
// Records missing the archived field are migrated to archived=false and the
// collection is re-persisted once; only that write can fail.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	metrics.StoreOps.WithLabelValues("load").Inc()

	s.purchases = nil
	raw, err := s.blobs.Get(StorageKey)
	if err != nil {
		return nil
	}
	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil
	}

	migrated := false
	for _, pp := range doc.Purchases {
		p := &models.Purchase{
			ID:         pp.ID,
			Date:       pp.Date,
			Supplier:   pp.Supplier,
			Imported:   pp.Imported,
			ImportedAt: pp.ImportedAt,
			CreatedAt:  pp.CreatedAt,
			UpdatedAt:  pp.UpdatedAt,
		}
		if pp.Archived == nil {
			migrated = true
		} else {
			p.Archived = *pp.Archived
		}
		for _, it := range pp.Items {
			qty := int(it.Qty)
			if qty < 1 {
				qty = 1
			}
			price := it.Price
			if price < 0 {
				price = 0
			}
			p.Items = append(p.Items, models.LineItem{Name: it.Name, Qty: qty, Price: price})
		}
		if len(p.Items) == 0 {
			p.Items = []models.LineItem{models.BlankItem()}
		}
		s.purchases = append(s.purchases, p)
	}

	if migrated {
		if err := s.persist(); err != nil {
			return fmt.Errorf("re-persist after migration: %w", err)
		}
	}
	return nil
}

// Create appends a fresh purchase with one blank item and today's date.
func (s *Store) Create() (models.Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	metrics.StoreOps.WithLabelValues("create").Inc()

	now := s.now()
	p := &models.Purchase{
		ID:        newID(now),
		Date:      todayISO(now),
		CreatedAt: now,
		UpdatedAt: now,
		Items:     []models.LineItem{models.BlankItem()},
	}
	s.purchases = append(s.purchases, p)
	if err := s.persist(); err != nil {
		return models.Purchase{}, err
	}
	return clone(p), nil
}

// Get returns a copy of the purchase, or ErrNotFound.
func (s *Store) Get(id string) (models.Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.find(id)
	if p == nil {
		return models.Purchase{}, ErrNotFound
	}
	return clone(p), nil
}

// Mutate applies fn when the purchase exists and is not imported, then bumps
// UpdatedAt and persists. Unknown ids and imported purchases are silent
// no-ops: the contract is enforced by disabling the capability, not by
// rejecting the call.
func (s *Store) Mutate(id string, fn func(*models.Purchase)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mutateLocked(id, fn)
}

func (s *Store) mutateLocked(id string, fn func(*models.Purchase)) error {
	p := s.find(id)
	if p == nil || p.Imported {
		return nil
	}
	fn(p)
	p.UpdatedAt = s.now()
	return s.persist()
}

// SetSupplier replaces the supplier name.
func (s *Store) SetSupplier(id, supplier string) error {
	metrics.StoreOps.WithLabelValues("set_supplier").Inc()
	return s.Mutate(id, func(p *models.Purchase) {
		p.Supplier = supplier
	})
}

// SetDate replaces the date, clamping input to ISO form and defaulting to
// today when empty or unrecognizable.
func (s *Store) SetDate(id, raw string) error {
	metrics.StoreOps.WithLabelValues("set_date").Inc()
	return s.Mutate(id, func(p *models.Purchase) {
		d := ClampDateISO(raw)
		if !isoDateRe.MatchString(d) {
			d = todayISO(s.now())
		}
		p.Date = d
	})
}

// AddItem appends a blank line item.
func (s *Store) AddItem(id string) error {
	metrics.StoreOps.WithLabelValues("add_item").Inc()
	return s.Mutate(id, func(p *models.Purchase) {
		p.Items = append(p.Items, models.BlankItem())
	})
}

// UpdateItem replaces the item at index with coerced input. Out-of-range
// indexes are no-ops.
func (s *Store) UpdateItem(id string, index int, name, qty, price string) error {
	metrics.StoreOps.WithLabelValues("update_item").Inc()
	return s.Mutate(id, func(p *models.Purchase) {
		if index < 0 || index >= len(p.Items) {
			return
		}
		p.Items[index] = models.LineItem{
			Name:  strings.TrimSpace(name),
			Qty:   ParseQty(qty),
			Price: ParsePrice(price),
		}
	})
}

// RemoveItem deletes the item at index. Removing the last item leaves one
// blank item instead of an empty list.
func (s *Store) RemoveItem(id string, index int) error {
	metrics.StoreOps.WithLabelValues("remove_item").Inc()
	return s.Mutate(id, func(p *models.Purchase) {
		if index < 0 || index >= len(p.Items) {
			return
		}
		p.Items = append(p.Items[:index], p.Items[index+1:]...)
		if len(p.Items) == 0 {
			p.Items = []models.LineItem{models.BlankItem()}
		}
	})
}

// MarkImported flags the purchase as consumed by the downstream system,
// making it read-only. Idempotent: a second call leaves ImportedAt untouched.
func (s *Store) MarkImported(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	metrics.StoreOps.WithLabelValues("mark_imported").Inc()

	p := s.find(id)
	if p == nil || p.Imported {
		return nil
	}
	now := s.now()
	p.Imported = true
	p.ImportedAt = &now
	p.UpdatedAt = now
	return s.persist()
}

// ResetImported is the privileged reversal of MarkImported. The confirmation
// gating (long hold + explicit confirm) lives at the HTTP layer.
func (s *Store) ResetImported(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	metrics.StoreOps.WithLabelValues("reset_imported").Inc()

	p := s.find(id)
	if p == nil || !p.Imported {
		return nil
	}
	p.Imported = false
	p.ImportedAt = nil
	p.UpdatedAt = s.now()
	return s.persist()
}

// SetArchived hides or unhides the purchase. Archiving is independent of the
// import flag and therefore allowed on imported purchases.
func (s *Store) SetArchived(id string, archived bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	metrics.StoreOps.WithLabelValues("set_archived").Inc()

	p := s.find(id)
	if p == nil || p.Archived == archived {
		return nil
	}
	p.Archived = archived
	p.UpdatedAt = s.now()
	return s.persist()
}

// Delete hard-removes the purchase. Unknown ids are no-ops.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	metrics.StoreOps.WithLabelValues("delete").Inc()

	kept := s.purchases[:0]
	found := false
	for _, p := range s.purchases {
		if p.ID == id {
			found = true
			continue
		}
		kept = append(kept, p)
	}
	s.purchases = kept
	if !found {
		return nil
	}
	return s.persist()
}

// List returns copies of the purchases in the given category, newest date
// first, ties broken by creation time descending.
func (s *Store) List(filter models.FilterCategory) []models.Purchase {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Purchase
	for _, p := range s.purchases {
		if p.Matches(filter) {
			out = append(out, clone(p))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date > out[j].Date
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Len reports the collection size across all categories.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.purchases)
}

// persist writes the whole collection under StorageKey. Callers hold s.mu.
func (s *Store) persist() error {
	doc := document{Purchases: make([]persistedPurchase, 0, len(s.purchases))}
	for _, p := range s.purchases {
		archived := p.Archived
		pp := persistedPurchase{
			ID:         p.ID,
			Date:       p.Date,
			Supplier:   p.Supplier,
			Imported:   p.Imported,
			ImportedAt: p.ImportedAt,
			Archived:   &archived,
			CreatedAt:  p.CreatedAt,
			UpdatedAt:  p.UpdatedAt,
		}
		for _, it := range p.Items {
			pp.Items = append(pp.Items, persistedItem{Name: it.Name, Qty: float64(it.Qty), Price: it.Price})
		}
		doc.Purchases = append(doc.Purchases, pp)
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode purchases: %w", err)
	}
	if err := s.blobs.Put(StorageKey, raw); err != nil {
		metrics.PersistErrors.Inc()
		return fmt.Errorf("persist purchases: %w", err)
	}
	return nil
}

func (s *Store) find(id string) *models.Purchase {
	for _, p := range s.purchases {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func clone(p *models.Purchase) models.Purchase {
	cp := *p
	cp.Items = append([]models.LineItem(nil), p.Items...)
	if p.ImportedAt != nil {
		t := *p.ImportedAt
		cp.ImportedAt = &t
	}
	return cp
}
