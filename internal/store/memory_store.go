package store

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/huangsam/peakbase/internal/contract"
	"github.com/huangsam/peakbase/schema"
)

// memChannel guards one channel record. Commits on different channels never contend.
type memChannel struct {
	mu      sync.Mutex
	ch      schema.Channel
	deleted atomic.Bool
}

// memExperiment is the stored experiment header plus its channel ids in import order.
type memExperiment struct {
	exp        schema.Experiment
	channelIDs []string
}

// MemoryStore is a process-local ChannelStore. Reads and writes deep-copy
// records so callers never share slices with the store.
type MemoryStore struct {
	mu          sync.RWMutex
	experiments map[string]*memExperiment
	channels    map[string]*memChannel
	now         func() time.Time
}

var _ contract.ChannelStore = &MemoryStore{} // Compile-time check

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		experiments: make(map[string]*memExperiment),
		channels:    make(map[string]*memChannel),
		now:         time.Now,
	}
}

func (s *MemoryStore) channel(id string) (*memChannel, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.channels[id]
	return entry, ok
}

// GetChannel returns a copy of the stored channel.
func (s *MemoryStore) GetChannel(ctx context.Context, id string) (schema.Channel, error) {
	if err := ctx.Err(); err != nil {
		return schema.Channel{}, err
	}
	entry, ok := s.channel(id)
	if !ok {
		return schema.Channel{}, &schema.NotFoundError{Entity: "channel", ID: id}
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.deleted.Load() {
		return schema.Channel{}, &schema.NotFoundError{Entity: "channel", ID: id}
	}
	return entry.ch.Clone(), nil
}

// CommitChannel holds the channel's lock across read, compute and write.
func (s *MemoryStore) CommitChannel(ctx context.Context, id string, compute contract.CommitFunc) (schema.Channel, error) {
	entry, ok := s.channel(id)
	if !ok {
		return schema.Channel{}, &schema.NotFoundError{Entity: "channel", ID: id}
	}

	entry.mu.Lock()
	if entry.deleted.Load() {
		entry.mu.Unlock()
		return schema.Channel{}, &schema.NotFoundError{Entity: "channel", ID: id}
	}
	if err := ctx.Err(); err != nil {
		entry.mu.Unlock()
		return schema.Channel{}, err
	}
	commit, err := compute(entry.ch.Clone())
	if err != nil {
		entry.mu.Unlock()
		return schema.Channel{}, err
	}
	// Cancellation before the write leaves the record untouched.
	if err := ctx.Err(); err != nil {
		entry.mu.Unlock()
		return schema.Channel{}, err
	}
	if commit.Empty() {
		out := entry.ch.Clone()
		entry.mu.Unlock()
		return out, nil
	}
	updated := commit.Apply(entry.ch)
	updated.LastUpdated = s.now().UTC()
	entry.ch = updated
	out := updated.Clone()
	entry.mu.Unlock()

	s.mu.Lock()
	if exp, ok := s.experiments[out.ExperimentID]; ok && out.LastUpdated.After(exp.exp.LastUpdated) {
		exp.exp.LastUpdated = out.LastUpdated
	}
	s.mu.Unlock()
	return out, nil
}

// CreateExperiment stores the experiment and its channels.
func (s *MemoryStore) CreateExperiment(ctx context.Context, exp schema.Experiment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if exp.ID == "" {
		return errors.New("experiment id cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.experiments[exp.ID]; ok {
		return fmt.Errorf("experiment %s: %w", exp.ID, schema.ErrAlreadyExists)
	}
	seen := make(map[string]struct{}, len(exp.Channels))
	for _, ch := range exp.Channels {
		if _, ok := s.channels[ch.ID]; ok {
			return fmt.Errorf("channel %s: %w", ch.ID, schema.ErrAlreadyExists)
		}
		if _, ok := seen[ch.ID]; ok {
			return fmt.Errorf("channel %s: %w", ch.ID, schema.ErrAlreadyExists)
		}
		seen[ch.ID] = struct{}{}
	}

	ts := exp.LastUpdated
	if ts.IsZero() {
		ts = s.now().UTC()
	}
	header := exp
	header.Channels = nil
	header.LastUpdated = ts
	stored := &memExperiment{exp: header, channelIDs: make([]string, 0, len(exp.Channels))}
	for _, ch := range exp.Channels {
		c := ch.Clone()
		c.ExperimentID = exp.ID
		c.TimeValues = nonNil(c.TimeValues)
		c.RawValues = nonNil(c.RawValues)
		c.LastUpdated = ts
		s.channels[c.ID] = &memChannel{ch: c}
		stored.channelIDs = append(stored.channelIDs, c.ID)
	}
	s.experiments[exp.ID] = stored
	return nil
}

// GetExperiment returns a copy of the experiment with its channels.
func (s *MemoryStore) GetExperiment(ctx context.Context, id string) (schema.Experiment, error) {
	if err := ctx.Err(); err != nil {
		return schema.Experiment{}, err
	}
	s.mu.RLock()
	stored, ok := s.experiments[id]
	if !ok {
		s.mu.RUnlock()
		return schema.Experiment{}, &schema.NotFoundError{Entity: "experiment", ID: id}
	}
	exp := stored.exp
	entries := make([]*memChannel, 0, len(stored.channelIDs))
	for _, cid := range stored.channelIDs {
		entries = append(entries, s.channels[cid])
	}
	s.mu.RUnlock()

	exp.Channels = make([]schema.Channel, 0, len(entries))
	for _, entry := range entries {
		entry.mu.Lock()
		exp.Channels = append(exp.Channels, entry.ch.Clone())
		entry.mu.Unlock()
	}
	return exp, nil
}

// ListExperiments returns summary rows, most recently updated first.
func (s *MemoryStore) ListExperiments(ctx context.Context) ([]schema.ExperimentSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	ids := make([]string, 0, len(s.experiments))
	for id := range s.experiments {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	results := make([]schema.ExperimentSummary, 0, len(ids))
	for _, id := range ids {
		exp, err := s.GetExperiment(ctx, id)
		if errors.Is(err, schema.ErrNotFound) {
			continue // deleted concurrently
		}
		if err != nil {
			return nil, err
		}
		results = append(results, schema.ExperimentSummary{
			ID:               exp.ID,
			Name:             exp.Name,
			Date:             exp.Date,
			InstrumentModel:  exp.InstrumentModel,
			ChannelQty:       len(exp.Channels),
			ChannelQtyFilled: exp.ChannelQtyFilled(),
			LastUpdated:      exp.LastUpdated,
		})
	}
	slices.SortFunc(results, func(a, b schema.ExperimentSummary) int {
		if c := b.LastUpdated.Compare(a.LastUpdated); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return results, nil
}

// DeleteExperiment removes an experiment and its channels.
func (s *MemoryStore) DeleteExperiment(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.experiments[id]
	if !ok {
		return &schema.NotFoundError{Entity: "experiment", ID: id}
	}
	for _, cid := range stored.channelIDs {
		if entry, ok := s.channels[cid]; ok {
			entry.deleted.Store(true)
			delete(s.channels, cid)
		}
	}
	delete(s.experiments, id)
	return nil
}

// Clear removes every experiment and channel.
func (s *MemoryStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, entry := range s.channels {
		entry.deleted.Store(true)
	}
	s.experiments = make(map[string]*memExperiment)
	s.channels = make(map[string]*memChannel)
	return nil
}

// GetStatus returns counts over the stored records.
func (s *MemoryStore) GetStatus(ctx context.Context) (schema.StoreStatus, error) {
	status := schema.StoreStatus{Backend: string(schema.MemoryBackend), Connected: true}
	summaries, err := s.ListExperiments(ctx)
	if err != nil {
		return status, err
	}
	status.Experiments = len(summaries)
	for _, row := range summaries {
		status.Channels += row.ChannelQty
		status.FilledChannels += row.ChannelQtyFilled
		if row.LastUpdated.After(status.LastUpdated) {
			status.LastUpdated = row.LastUpdated
		}
	}
	return status, nil
}

// Close is a no-op for the memory store.
func (s *MemoryStore) Close() error { return nil }
