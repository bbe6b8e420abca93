package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
)

// MockStore implements store.Store for testing across packages
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Load(ctx context.Context) ([]byte, error) {
	args := m.Called(ctx)

	// Handle function return types (for tests that inspect saved state)
	if fn, ok := args.Get(0).(func(context.Context) []byte); ok {
		return fn(ctx), args.Error(1)
	}

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockStore) Save(ctx context.Context, blob []byte) error {
	args := m.Called(ctx, blob)
	return args.Error(0)
}

func (m *MockStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockRecorder implements metrics.Recorder for testing across packages
type MockRecorder struct {
	mock.Mock
}

func (m *MockRecorder) ObserveOp(op string, err error, d time.Duration) {
	m.Called(op, err, d)
}
