// Package store persists snapshot blobs between process runs.
//
// A Store holds exactly one blob. Load returns (nil, nil) when nothing has
// been saved yet. Writes are not atomic and carry no crash guarantees.
package store

import (
	"context"
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Store loads and saves one snapshot blob.
type Store interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, blob []byte) error
	Close() error
}

// Factory opens a store from its backend specific options.
type Factory func(ctx context.Context, options map[string]any) (Store, error)

var defaultRegistry = NewRegistry()

func init() {
	RegisterBuiltins(defaultRegistry)
}

// Register adds a backend to the default registry.
func Register(storeType string, factory Factory) {
	defaultRegistry.Register(storeType, factory)
}

// New creates a store of the given type from the default registry. options
// holds the type-specific settings, decoded with mapstructure:
//
//	file:   path
//	badger: path, key, in_memory
//	s3:     bucket, key, region, endpoint, access_key_id, secret_access_key
//	memory: (none)
//
// An empty type selects the file store.
func New(ctx context.Context, storeType string, options map[string]any) (Store, error) {
	if storeType == "" {
		storeType = TypeFile
	}
	return defaultRegistry.New(ctx, storeType, options)
}

// decoded adapts a typed constructor into a Factory.
func decoded[T any](open func(ctx context.Context, cfg T) (Store, error)) Factory {
	return func(ctx context.Context, options map[string]any) (Store, error) {
		var cfg T
		if err := mapstructure.Decode(options, &cfg); err != nil {
			return nil, fmt.Errorf("failed to decode store options: %w", err)
		}
		return open(ctx, cfg)
	}
}
