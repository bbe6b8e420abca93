package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Built-in store types.
const (
	TypeFile   = "file"
	TypeBadger = "badger"
	TypeS3     = "s3"
	TypeMemory = "memory"
)

// Registry maps store types to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register ties a factory to a store type. The first registration of a type
// wins; later ones are ignored.
func (r *Registry) Register(storeType string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.factories[storeType]; ok {
		return
	}
	r.factories[storeType] = factory
}

// Factory returns the factory registered for storeType.
func (r *Registry) Factory(storeType string) (Factory, error) {
	r.mu.RLock()
	f, ok := r.factories[storeType]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown store type %q", storeType)
	}
	return f, nil
}

// Types lists registered store types in order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.factories))
	for t := range r.factories {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// New opens a store of storeType.
func (r *Registry) New(ctx context.Context, storeType string, options map[string]any) (Store, error) {
	f, err := r.Factory(storeType)
	if err != nil {
		return nil, err
	}
	return f(ctx, options)
}

// RegisterBuiltins registers all built-in stores on r,
// or only the specific ones if types are provided.
func RegisterBuiltins(r *Registry, types ...string) {
	if len(types) == 0 {
		types = []string{TypeFile, TypeBadger, TypeS3, TypeMemory}
	}

	for _, t := range types {
		switch t {
		case TypeFile:
			r.Register(TypeFile, decoded(func(_ context.Context, cfg FileConfig) (Store, error) {
				return nonNil(NewFileStore(cfg))
			}))
		case TypeBadger:
			r.Register(TypeBadger, decoded(func(_ context.Context, cfg BadgerConfig) (Store, error) {
				return nonNil(NewBadgerStore(cfg))
			}))
		case TypeS3:
			r.Register(TypeS3, decoded(func(ctx context.Context, cfg S3Config) (Store, error) {
				return nonNil(NewS3Store(ctx, cfg))
			}))
		case TypeMemory:
			r.Register(TypeMemory, func(context.Context, map[string]any) (Store, error) {
				return NewMemoryStore(), nil
			})
		}
	}
}

// nonNil keeps a failed constructor from yielding a typed nil Store.
func nonNil[S Store](s S, err error) (Store, error) {
	if err != nil {
		return nil, err
	}
	return s, nil
}
