// Package store persists experiments and channels behind contract.ChannelStore.
package store

import (
	"fmt"
	"sync"

	"github.com/huangsam/peakbase/internal/contract"
	"github.com/huangsam/peakbase/schema"
)

// ChannelStoreManager holds the process's active ChannelStore.
type ChannelStoreManager struct {
	sync.RWMutex // Protects the store pointer during initialization
	channels     contract.ChannelStore
}

var _ contract.StoreManager = &ChannelStoreManager{} // Compile-time check

// GetChannelStore returns the active ChannelStore.
func (mgr *ChannelStoreManager) GetChannelStore() contract.ChannelStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.channels
}

// Global Manager instance for main logic.
var (
	Manager   = &ChannelStoreManager{}
	initOnce  sync.Once
	closeOnce sync.Once
)

// NewChannelStore opens the ChannelStore for backend.
func NewChannelStore(backend schema.DatabaseBackend, connStr string) (contract.ChannelStore, error) {
	switch backend {
	case schema.MemoryBackend:
		return NewMemoryStore(), nil
	case schema.SQLiteBackend, schema.MySQLBackend, schema.PostgreSQLBackend:
		return NewSQLStore(backend, connStr)
	default:
		return nil, fmt.Errorf("unsupported store backend: %s. Must be sqlite, mysql, postgresql, or memory", backend)
	}
}

// InitStores initializes the global manager. Later calls are no-ops.
func InitStores(backend schema.DatabaseBackend, connStr string) error {
	var initErr error
	initOnce.Do(func() {
		s, err := NewChannelStore(backend, connStr)
		if err != nil {
			initErr = fmt.Errorf("failed to initialize channel store: %w", err)
			return
		}
		Manager.Lock()
		Manager.channels = s
		Manager.Unlock()
	})
	return initErr
}

// CloseStores should be called on application shutdown.
func CloseStores() { // called in main defer
	closeOnce.Do(func() {
		Manager.Lock()
		defer Manager.Unlock()
		if Manager.channels != nil {
			_ = Manager.channels.Close()
		}
	})
}
