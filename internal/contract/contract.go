// Package contract provides interfaces and shared utilities for peakbase's internal architecture.
package contract

import (
	"context"
	"io"

	"github.com/huangsam/peakbase/schema"
)

// CommitFunc computes the write for one channel from the record as it is
// currently stored. It runs inside the store's transaction for that channel,
// so it must be pure and must not call back into the store.
type CommitFunc func(current schema.Channel) (schema.ChannelCommit, error)

// ChannelStore defines the persistence operations for experiments and channels.
// This allows the orchestration logic to be tested without a real database.
type ChannelStore interface {
	// --- Channels ---

	// GetChannel returns the channel or an error wrapping schema.ErrNotFound.
	GetChannel(ctx context.Context, id string) (schema.Channel, error)

	// CommitChannel reads the channel, calls compute and writes the returned
	// commit as one serialized unit scoped to the channel id. When compute or
	// the write fails, or ctx is cancelled before commit, nothing is persisted.
	CommitChannel(ctx context.Context, id string, compute CommitFunc) (schema.Channel, error)

	// --- Experiments ---

	// CreateExperiment inserts the experiment and its channels atomically.
	CreateExperiment(ctx context.Context, exp schema.Experiment) error

	// GetExperiment returns the experiment with all of its channels.
	GetExperiment(ctx context.Context, id string) (schema.Experiment, error)

	// ListExperiments returns one summary row per experiment, newest first.
	ListExperiments(ctx context.Context) ([]schema.ExperimentSummary, error)

	// DeleteExperiment removes the experiment and every channel it owns.
	DeleteExperiment(ctx context.Context, id string) error

	// --- Administration ---

	// GetStatus returns status information about the store.
	GetStatus(ctx context.Context) (schema.StoreStatus, error)

	// Clear removes every experiment and channel.
	Clear(ctx context.Context) error

	// Close closes the underlying connection.
	Close() error
}

// StoreManager defines the interface for reaching the active channel store.
// This allows the store layer to be mocked for testing.
type StoreManager interface {
	GetChannelStore() ChannelStore
}

// BlobUploader writes an output artifact to remote object storage.
type BlobUploader interface {
	Upload(ctx context.Context, target string, body io.Reader) error
}
