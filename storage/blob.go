package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LocalBlobStore keeps payloads as files under a single directory. Names are
// server-generated (UUID + extension), so no path handling beyond a join is
// needed.
type LocalBlobStore struct {
	Directory string
}

func NewLocalBlobStore(directory string) (*LocalBlobStore, error) {
	if err := os.MkdirAll(directory, 0o755); err != nil {
		return nil, fmt.Errorf("creating upload directory %s: %w", directory, err)
	}
	return &LocalBlobStore{Directory: directory}, nil
}

func (s *LocalBlobStore) Save(name string, r io.Reader, _ int64, _ string) error {
	f, err := os.Create(filepath.Join(s.Directory, name))
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(f.Name())
		return err
	}
	return nil
}

func (s *LocalBlobStore) Open(name string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(s.Directory, name))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	return f, err
}

func (s *LocalBlobStore) Delete(name string) error {
	err := os.Remove(filepath.Join(s.Directory, name))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
