package store

import (
	"context"

	"github.com/huangsam/peakbase/internal/contract"
	"github.com/huangsam/peakbase/schema"
	"github.com/stretchr/testify/mock"
)

// MockStoreManager is a mock implementation of StoreManager for testing.
type MockStoreManager struct {
	mock.Mock
}

var _ contract.StoreManager = &MockStoreManager{} // Compile-time check

// GetChannelStore implements the StoreManager interface.
func (m *MockStoreManager) GetChannelStore() contract.ChannelStore {
	ret := m.Called()
	s, _ := ret.Get(0).(contract.ChannelStore)
	return s
}

// MockChannelStore is a mock implementation of ChannelStore for testing.
type MockChannelStore struct {
	mock.Mock
}

var _ contract.ChannelStore = &MockChannelStore{} // Compile-time check

// GetChannel implements the ChannelStore interface.
func (m *MockChannelStore) GetChannel(ctx context.Context, id string) (schema.Channel, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(schema.Channel), args.Error(1)
}

// CommitChannel implements the ChannelStore interface. When the expectation
// returns a nil error and a channel, compute is run against that channel and
// its commit is applied, so tests exercise the caller's compute function.
func (m *MockChannelStore) CommitChannel(ctx context.Context, id string, compute contract.CommitFunc) (schema.Channel, error) {
	args := m.Called(ctx, id, compute)
	current := args.Get(0).(schema.Channel)
	if err := args.Error(1); err != nil {
		return schema.Channel{}, err
	}
	commit, err := compute(current)
	if err != nil {
		return schema.Channel{}, err
	}
	return commit.Apply(current), nil
}

// CreateExperiment implements the ChannelStore interface.
func (m *MockChannelStore) CreateExperiment(ctx context.Context, exp schema.Experiment) error {
	args := m.Called(ctx, exp)
	return args.Error(0)
}

// GetExperiment implements the ChannelStore interface.
func (m *MockChannelStore) GetExperiment(ctx context.Context, id string) (schema.Experiment, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(schema.Experiment), args.Error(1)
}

// ListExperiments implements the ChannelStore interface.
func (m *MockChannelStore) ListExperiments(ctx context.Context) ([]schema.ExperimentSummary, error) {
	args := m.Called(ctx)
	rows, _ := args.Get(0).([]schema.ExperimentSummary)
	return rows, args.Error(1)
}

// DeleteExperiment implements the ChannelStore interface.
func (m *MockChannelStore) DeleteExperiment(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// GetStatus implements the ChannelStore interface.
func (m *MockChannelStore) GetStatus(ctx context.Context) (schema.StoreStatus, error) {
	args := m.Called(ctx)
	return args.Get(0).(schema.StoreStatus), args.Error(1)
}

// Clear implements the ChannelStore interface.
func (m *MockChannelStore) Clear(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Close implements the ChannelStore interface.
func (m *MockChannelStore) Close() error {
	args := m.Called()
	return args.Error(0)
}
