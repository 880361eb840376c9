package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestReadSeedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	content := `
items:
  - name: Classic
    description: Beef and cheddar
    price: "5.00"
  - name: Cheese
    price: "3"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	items, err := readSeedFile(path)
	if err != nil {
		t.Fatalf("readSeedFile failed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].Name != "Classic" || items[0].Price != "5.00" || items[1].Description != "" {
		t.Errorf("unexpected items: %+v", items)
	}
}

func TestReadSeedFile_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := os.WriteFile(path, []byte("items: [oops"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := readSeedFile(path); err == nil {
		t.Fatal("expected parse error")
	}
	if _, err := readSeedFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
