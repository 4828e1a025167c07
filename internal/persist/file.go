package persist

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	serrors "github.com/turtacn/Strata/pkg/errors"
	"github.com/turtacn/Strata/pkg/state"
)

// FileStore writes one JSON file per name under a directory.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, serrors.New(serrors.ErrCodePersistFailed, "NewFileStore", "create state directory", err)
	}
	return &FileStore{dir: dir}, nil
}

func (f *FileStore) path(name string) string {
	return filepath.Join(f.dir, url.PathEscape(name)+".json")
}

// Save replaces the file atomically: write a temp file, then rename it.
func (f *FileStore) Save(_ context.Context, name string, p state.Persisted) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return serrors.New(serrors.ErrCodePersistFailed, "FileStore.Save", "marshal "+name, err)
	}

	target := f.path(name)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return serrors.New(serrors.ErrCodePersistFailed, "FileStore.Save", "write "+tmp, err)
	}
	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return serrors.New(serrors.ErrCodePersistFailed, "FileStore.Save", "rename "+tmp, err)
	}
	return nil
}

func (f *FileStore) Load(_ context.Context, name string) (state.Persisted, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return state.Persisted{}, false, nil
		}
		return state.Persisted{}, false, serrors.New(serrors.ErrCodePersistFailed, "FileStore.Load", "read "+name, err)
	}

	var p state.Persisted
	if err := json.Unmarshal(data, &p); err != nil {
		return state.Persisted{}, false, serrors.New(serrors.ErrCodePersistFailed, "FileStore.Load",
			fmt.Sprintf("corrupt state file for %s", name), err)
	}
	return p, true, nil
}

func (f *FileStore) Close() error { return nil }

// Personal.AI order the ending
