package storage

import "streamwatch/internal/models"

const SnapshotVersion = 1

// Snapshot is the on-disk envelope of a MemoryStore.
type Snapshot struct {
	Version  int              `json:"version"`
	Groups   []models.Group   `json:"groups"`
	Channels []models.Channel `json:"channels"`
	Samples  []models.Sample  `json:"samples"`
}
