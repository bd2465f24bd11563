package meshconfig

import (
	"os"
	"path/filepath"
	"sync"
)

// FileDataSource is a thin reference DataSource backed by a single file
// on disk, grounded on the teacher's device/controller state stores
// (mutex-guarded path, MkdirAll before write, os.IsNotExist treated as
// "nothing saved yet"). It is not itself part of the core; a host
// application may use it, replace it with its own DataSource (a remote
// config service, a database row), or keep the document in memory only.
type FileDataSource struct {
	mu   sync.Mutex
	path string
}

// NewFileDataSource creates a FileDataSource writing to path.
func NewFileDataSource(path string) *FileDataSource {
	return &FileDataSource{path: path}
}

// Load reads the document bytes from disk, returning (nil, nil) if the
// file does not exist yet.
func (f *FileDataSource) Load() ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Save writes the document bytes to disk, creating the parent directory
// if needed.
func (f *FileDataSource) Save(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	return os.WriteFile(f.path, data, 0600)
}
