package store

import (
	"context"
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/brettbedarf/memfs/internal/util"
)

// DefaultBadgerKey is the key the snapshot is stored under.
const DefaultBadgerKey = "memfs/state"

type BadgerConfig struct {
	Path string `mapstructure:"path"`
	Key  string `mapstructure:"key"`
	// InMemory runs badger without touching disk; Path is ignored
	InMemory bool `mapstructure:"in_memory"`
}

// BadgerStore keeps the blob under one key of a BadgerDB database.
type BadgerStore struct {
	db  *badger.DB
	key []byte
}

func NewBadgerStore(cfg BadgerConfig) (*BadgerStore, error) {
	logger := util.GetLogger("BadgerStore")

	if cfg.Path == "" && !cfg.InMemory {
		return nil, fmt.Errorf("badger store: path is required")
	}
	key := cfg.Key
	if key == "" {
		key = DefaultBadgerKey
	}

	opts := badger.DefaultOptions(cfg.Path)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts = opts.WithLogger(util.NewFormatLogger("badger")).WithLoggingLevel(badger.WARNING) // Reduce log noise

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}
	logger.Debug().Str("path", cfg.Path).Str("key", key).Msg("Opened badger store")
	return &BadgerStore{db: db, key: []byte(key)}, nil
}

func (s *BadgerStore) Load(ctx context.Context) ([]byte, error) {
	var blob []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(s.key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		blob, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("badger load: %w", err)
	}
	return blob, nil
}

func (s *BadgerStore) Save(ctx context.Context, blob []byte) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(s.key, blob)
	})
	if err != nil {
		return fmt.Errorf("badger save: %w", err)
	}
	return nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}
