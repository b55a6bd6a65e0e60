package blob

import (
	"errors"
	"fmt"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *GormStore {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&Blob{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewGormStore(db)
}

func TestGormStorePutGetReplace(t *testing.T) {
	s := setupTestDB(t)
	if err := s.Put("k", []byte("v1")); err != nil {
		t.Fatalf("put: %v", err)
	}
	v, err := s.Get("k")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(v) != "v1" {
		t.Fatalf("expected v1 got %q", v)
	}
	// Replace wholesale
	if err := s.Put("k", []byte("v2")); err != nil {
		t.Fatalf("put replace: %v", err)
	}
	v, err = s.Get("k")
	if err != nil {
		t.Fatalf("get after replace: %v", err)
	}
	if string(v) != "v2" {
		t.Fatalf("expected v2 got %q", v)
	}
}

func TestGormStoreGetMissing(t *testing.T) {
	s := setupTestDB(t)
	if _, err := s.Get("absent"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound got %v", err)
	}
}

func TestGormStoreKeysAndDelete(t *testing.T) {
	s := setupTestDB(t)
	for _, k := range []string{"asset:v1:/a", "asset:v1:/b", "asset:v2:/a", "doc"} {
		if err := s.Put(k, []byte("x")); err != nil {
			t.Fatalf("put %s: %v", k, err)
		}
	}
	keys, err := s.Keys("asset:v1:")
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("expected 2 keys got %d: %v", len(keys), keys)
	}
	if err := s.Delete("asset:v1:/a"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Get("asset:v1:/a"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete got %v", err)
	}
	// Delete of a missing key is not an error
	if err := s.Delete("asset:v1:/a"); err != nil {
		t.Fatalf("second delete: %v", err)
	}
}
