package schema

import "time"

// StoreStatus represents the status of the channel store.
type StoreStatus struct {
	Backend        string    `json:"backend"`
	Connected      bool      `json:"connected"`
	SchemaVersion  uint      `json:"schema_version"`
	Dirty          bool      `json:"dirty"`
	Experiments    int       `json:"experiments"`
	Channels       int       `json:"channels"`
	FilledChannels int       `json:"filled_channels"`
	LastUpdated    time.Time `json:"last_updated"`
}
