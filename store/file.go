package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/brettbedarf/memfs/internal/util"
)

// DefaultStatePath is the state file used when no path is configured.
const DefaultStatePath = ".memfs_state"

type FileConfig struct {
	Path string `mapstructure:"path"`
}

// FileStore keeps the blob in a local file.
type FileStore struct {
	path string
}

func NewFileStore(cfg FileConfig) (*FileStore, error) {
	path := cfg.Path
	if path == "" {
		path = DefaultStatePath
	}
	return &FileStore{path: path}, nil
}

func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Load(ctx context.Context) ([]byte, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state file %s: %w", s.path, err)
	}
	return data, nil
}

func (s *FileStore) Save(ctx context.Context, blob []byte) error {
	logger := util.GetLogger("FileStore.Save")

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create state dir %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(s.path, blob, 0o600); err != nil {
		return fmt.Errorf("write state file %s: %w", s.path, err)
	}
	logger.Trace().Str("path", s.path).Int("bytes", len(blob)).Msg("Saved state")
	return nil
}

func (s *FileStore) Close() error {
	return nil
}
