package messaging

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "credentials")
	store := NewFileStore(path)

	if _, err := store.Load(); !errors.Is(err, ErrNoCredentials) {
		t.Fatalf("Load on empty store: err = %v, want ErrNoCredentials", err)
	}

	if err := store.Save([]byte("device-jid")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	blob, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if string(blob) != "device-jid" {
		t.Fatalf("blob = %q", blob)
	}

	if err := store.Save([]byte("rotated")); err != nil {
		t.Fatalf("Save overwrite: %v", err)
	}
	blob, err = store.Load()
	if err != nil {
		t.Fatalf("Load after overwrite: %v", err)
	}
	if string(blob) != "rotated" {
		t.Fatalf("blob after overwrite = %q", blob)
	}
}

func TestFileStoreClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials")
	store := NewFileStore(path)

	if err := store.Clear(); err != nil {
		t.Fatalf("Clear on missing file: %v", err)
	}
	if err := store.Save([]byte("device-jid")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, err := store.Load(); !errors.Is(err, ErrNoCredentials) {
		t.Fatalf("Load after clear: err = %v, want ErrNoCredentials", err)
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("file still exists after clear: %v", err)
	}
}

func TestFileStoreEmptyBlobTreatedAsMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials")
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	store := NewFileStore(path)
	if _, err := store.Load(); !errors.Is(err, ErrNoCredentials) {
		t.Fatalf("Load on empty file: err = %v, want ErrNoCredentials", err)
	}
}
