package models

import (
	"testing"
)

func TestPurchase_Total(t *testing.T) {
	p := &Purchase{
		Items: []LineItem{
			{Name: "Tea", Qty: 3, Price: 100},  // 300
			{Name: "Sugar", Qty: 1, Price: 60}, // 60
			{Name: "", Qty: 1, Price: 0},       // blank item contributes 0
		},
	}
	if got := p.Total(); got != 360 {
		t.Errorf("Total() = %f, want 360", got)
	}
	if got := (&Purchase{}).Total(); got != 0 {
		t.Errorf("empty Total() = %f, want 0", got)
	}
}

func TestPurchase_CanEdit(t *testing.T) {
	p := &Purchase{}
	if !p.CanEdit() {
		t.Errorf("fresh purchase should be editable")
	}
	p.Imported = true
	if p.CanEdit() {
		t.Errorf("imported purchase should not be editable")
	}
}

func TestPurchase_Matches(t *testing.T) {
	tests := []struct {
		name     string
		imported bool
		archived bool
		todo     bool
		imp      bool
		arch     bool
	}{
		{"fresh", false, false, true, false, false},
		{"imported", true, false, false, true, false},
		{"archived", false, true, false, false, true},
		{"archived imported", true, true, false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Purchase{Imported: tt.imported, Archived: tt.archived}
			if got := p.Matches(FilterTodo); got != tt.todo {
				t.Errorf("Matches(todo) = %v, want %v", got, tt.todo)
			}
			if got := p.Matches(FilterImported); got != tt.imp {
				t.Errorf("Matches(imported) = %v, want %v", got, tt.imp)
			}
			if got := p.Matches(FilterArchived); got != tt.arch {
				t.Errorf("Matches(archived) = %v, want %v", got, tt.arch)
			}
		})
	}
}

func TestBlankItem(t *testing.T) {
	it := BlankItem()
	if it.Name != "" || it.Qty != 1 || it.Price != 0 {
		t.Errorf("BlankItem() = %+v", it)
	}
}
