package session

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestFileStore_MissingFile(t *testing.T) {
	store := NewFileStore(t.TempDir())

	token, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if token != "" {
		t.Errorf("Load() = %q; want empty for missing file", token)
	}
}

func TestFileStore_RoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "chemviz")
	store := NewFileStore(dir)

	if err := store.Save("tok-123"); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	token, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if token != "tok-123" {
		t.Errorf("Load() = %q; want %q", token, "tok-123")
	}

	if runtime.GOOS != "windows" {
		info, err := os.Stat(filepath.Join(dir, "token"))
		if err != nil {
			t.Fatal(err)
		}
		if mode := info.Mode().Perm(); mode != 0o600 {
			t.Errorf("token file mode = %o; want 600", mode)
		}
	}
}

func TestFileStore_TrimsWhitespace(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "token"), []byte("tok-123\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	store := NewFileStore(dir)

	token, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if token != "tok-123" {
		t.Errorf("Load() = %q; want trimmed token", token)
	}
}

func TestFileStore_Clear(t *testing.T) {
	store := NewFileStore(t.TempDir())
	if err := store.Save("tok-123"); err != nil {
		t.Fatal(err)
	}

	if err := store.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	token, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if token != "" {
		t.Errorf("Load() = %q after Clear; want empty", token)
	}

	// Clearing an absent token is not an error.
	if err := store.Clear(); err != nil {
		t.Errorf("second Clear() error = %v", err)
	}
}
