package yure_test

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sasakulab/yure"
)

func TestGenerateID(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id, err := yure.GenerateID()
		if err != nil {
			t.Fatal(err)
		}
		if len(id) != 11 {
			t.Fatalf("expected 11 characters, but got %q", id)
		}
		if strings.Trim(id, "YUREyure") != "" {
			t.Fatalf("unexpected characters in %q", id)
		}
		seen[id] = true
	}
	if len(seen) < 90 {
		t.Fatalf("identifiers repeat too often: %d distinct", len(seen))
	}
}

func TestIsValidID(t *testing.T) {
	tests := map[string]bool{
		"YUREyureYUR":  true,
		"yyyyyyyyyyy":  true,
		"YUREyureYU":   false,
		"YUREyureYURE": false,
		"YUREyureYUx":  false,
		"":             false,
	}
	for id, expected := range tests {
		if got := yure.IsValidID(id); got != expected {
			t.Fatalf("%q: expected %v, but got %v", id, expected, got)
		}
	}
}

func TestLoadOrCreateID(t *testing.T) {
	dir, err := ioutil.TempDir("", "yure-id")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "nested", "id")
	id, err := yure.LoadOrCreateID(path)
	if err != nil {
		t.Fatal(err)
	}
	if !yure.IsValidID(id) {
		t.Fatalf("invalid id %q", id)
	}

	again, err := yure.LoadOrCreateID(path)
	if err != nil {
		t.Fatal(err)
	}
	if again != id {
		t.Fatalf("expected stored id %s, but got %s", id, again)
	}
}

func TestLoadOrCreateID_ReplacesCorrupt(t *testing.T) {
	dir, err := ioutil.TempDir("", "yure-id")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "id")
	if err := ioutil.WriteFile(path, []byte("not an id"), 0600); err != nil {
		t.Fatal(err)
	}

	id, err := yure.LoadOrCreateID(path)
	if err != nil {
		t.Fatal(err)
	}
	if !yure.IsValidID(id) {
		t.Fatalf("invalid id %q", id)
	}
	data, _ := ioutil.ReadFile(path)
	if strings.TrimSpace(string(data)) != id {
		t.Fatalf("expected %s to be stored, but got %q", id, data)
	}
}
