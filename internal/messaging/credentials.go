package messaging

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// ErrNoCredentials is returned by a CredentialStore when no blob has been
// saved yet. The Manager treats it as a request for a fresh QR login.
var ErrNoCredentials = errors.New("messaging: no stored credentials")

// CredentialStore persists the opaque credential blob between restarts.
type CredentialStore interface {
	Load() ([]byte, error)
	Save(blob []byte) error
	Clear() error
}

// FileStore keeps the credential blob in a single file. Writes go through a
// temp file and rename so a crash mid-write never leaves a truncated blob.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Load() ([]byte, error) {
	blob, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNoCredentials
	}
	if err != nil {
		return nil, err
	}
	if len(blob) == 0 {
		return nil, ErrNoCredentials
	}
	return blob, nil
}

func (s *FileStore) Save(blob []byte) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".credentials-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(blob); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

func (s *FileStore) Clear() error {
	err := os.Remove(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
