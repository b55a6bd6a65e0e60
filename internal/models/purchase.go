package models

import "time"

// Purchase represents one purchase event: a supplier, a date and an ordered
// list of line items. Once Imported is set the purchase is read-only through
// normal edit operations.
type Purchase struct {
	ID         string     `json:"id"`
	Date       string     `json:"date"` // YYYY-MM-DD
	Supplier   string     `json:"supplier"`
	Imported   bool       `json:"imported"`
	ImportedAt *time.Time `json:"importedAt"`
	Archived   bool       `json:"archived"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
	Items      []LineItem `json:"items"`
}

// LineItem is one product entry within a purchase. Items are owned exclusively
// by their purchase and addressed by position.
type LineItem struct {
	Name  string  `json:"name"`
	Qty   int     `json:"qty"`
	Price float64 `json:"price"`
}

// Total is always recomputed from the items; it is never stored.
func (p *Purchase) Total() float64 {
	var total float64
	for _, it := range p.Items {
		total += float64(it.Qty) * it.Price
	}
	return total
}

// CanEdit returns true while the purchase has not been imported.
func (p *Purchase) CanEdit() bool {
	return !p.Imported
}

// BlankItem is the item inserted whenever a purchase would otherwise have an
// empty list.
func BlankItem() LineItem {
	return LineItem{Name: "", Qty: 1, Price: 0}
}

// FilterCategory selects one of the three mutually exclusive history views.
type FilterCategory string

const (
	FilterTodo     FilterCategory = "todo"
	FilterImported FilterCategory = "imported"
	FilterArchived FilterCategory = "archived"
)

// Matches reports whether the purchase belongs to the given category.
// Archived purchases appear only in the archived view, regardless of their
// import status.
func (p *Purchase) Matches(f FilterCategory) bool {
	switch f {
	case FilterTodo:
		return !p.Imported && !p.Archived
	case FilterImported:
		return p.Imported && !p.Archived
	case FilterArchived:
		return p.Archived
	}
	return false
}
