package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/kompvlz/zakupki/internal/metrics"
	"github.com/kompvlz/zakupki/internal/models"
)

const (
	// AppName tags export files for the downstream inventory importer.
	AppName = "kompvlz-zakupki"
	// FormatVersion of the export payload.
	FormatVersion = 1
	// Currency tag stamped on every exported item and line.
	Currency = "RUB"
)

// ExportItem is a normalized line item: trimmed name, qty floored to 1,
// price floored to 0, currency tag added.
type ExportItem struct {
	Name     string  `json:"name"`
	Qty      int     `json:"qty"`
	Price    float64 `json:"price"`
	Currency string  `json:"currency"`
}

// ExportPurchase is the purchase-shaped record inside an export file.
type ExportPurchase struct {
	ID       string       `json:"id"`
	Date     string       `json:"date"`
	Supplier string       `json:"supplier"`
	Items    []ExportItem `json:"items"`
	Total    float64      `json:"total"`
}

// ExportLine is the flattened per-item view in bulk exports, for importers
// that cannot parse nesting.
type ExportLine struct {
	PurchaseID string  `json:"purchaseId"`
	Date       string  `json:"date"`
	Supplier   string  `json:"supplier"`
	Name       string  `json:"name"`
	Qty        int     `json:"qty"`
	Price      float64 `json:"price"`
	Currency   string  `json:"currency"`
}

// ExportFile is the on-disk export format, shared by the single-purchase and
// bulk variants.
type ExportFile struct {
	App           string           `json:"app"`
	FormatVersion int              `json:"formatVersion"`
	ExportedAt    time.Time        `json:"exportedAt"`
	Purchase      *ExportPurchase  `json:"purchase,omitempty"`
	Purchases     []ExportPurchase `json:"purchases,omitempty"`
	Lines         []ExportLine     `json:"lines,omitempty"`
}

// ExportOne builds the normalized export of a single purchase and its
// deterministic filename. It does not mutate state; marking the purchase
// imported is a separate call. A missing id is an explicit error here.
func (s *Store) ExportOne(id string) (*ExportFile, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	metrics.StoreOps.WithLabelValues("export_one").Inc()

	p := s.find(id)
	if p == nil {
		return nil, "", ErrNotFound
	}
	now := s.now()
	ep := exportPurchase(p)
	file := &ExportFile{
		App:           AppName,
		FormatVersion: FormatVersion,
		ExportedAt:    now,
		Purchase:      &ep,
	}
	suffix := p.ID
	if len(suffix) > 6 {
		suffix = suffix[len(suffix)-6:]
	}
	name := fmt.Sprintf("zakup_import_%s_%s.json", safeDate(p.Date), suffix)
	return file, name, nil
}

// ExportAll builds the bulk export over every purchase in the todo and
// imported views, plus the archived ones when includeArchived is set, with
// the flattened lines view appended.
func (s *Store) ExportAll(includeArchived bool) (*ExportFile, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	metrics.StoreOps.WithLabelValues("export_all").Inc()

	now := s.now()
	file := &ExportFile{
		App:           AppName,
		FormatVersion: FormatVersion,
		ExportedAt:    now,
		Purchases:     []ExportPurchase{},
		Lines:         []ExportLine{},
	}
	for _, p := range s.purchases {
		if p.Archived && !includeArchived {
			continue
		}
		ep := exportPurchase(p)
		file.Purchases = append(file.Purchases, ep)
		for _, it := range ep.Items {
			file.Lines = append(file.Lines, ExportLine{
				PurchaseID: ep.ID,
				Date:       ep.Date,
				Supplier:   ep.Supplier,
				Name:       it.Name,
				Qty:        it.Qty,
				Price:      it.Price,
				Currency:   it.Currency,
			})
		}
	}
	name := fmt.Sprintf("zakup_export_%s.json", todayISO(now))
	return file, name
}

func exportPurchase(p *models.Purchase) ExportPurchase {
	ep := ExportPurchase{
		ID:       p.ID,
		Date:     p.Date,
		Supplier: strings.TrimSpace(p.Supplier),
		Items:    make([]ExportItem, 0, len(p.Items)),
	}
	for _, it := range p.Items {
		qty := it.Qty
		if qty < 1 {
			qty = 1
		}
		price := it.Price
		if price < 0 {
			price = 0
		}
		ep.Items = append(ep.Items, ExportItem{
			Name:     strings.TrimSpace(it.Name),
			Qty:      qty,
			Price:    price,
			Currency: Currency,
		})
		ep.Total += float64(qty) * price
	}
	return ep
}

func safeDate(d string) string {
	d = strings.ReplaceAll(d, ":", "-")
	return strings.ReplaceAll(d, "/", "-")
}
