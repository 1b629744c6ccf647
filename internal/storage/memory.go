package storage

import (
	"context"
	"fmt"
	"slices"
	"streamwatch/internal/models"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps groups, channels and the append-only sample log in
// process memory. Samples are never updated or deleted.
type MemoryStore struct {
	mu       sync.RWMutex
	groups   map[string]models.Group
	channels map[string]models.Channel
	samples  []models.Sample
	now      func() time.Time
	last     time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		groups:   make(map[string]models.Group),
		channels: make(map[string]models.Channel),
		now:      time.Now,
	}
}

func (m *MemoryStore) Insert(_ context.Context, sample models.Sample) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.samples = append(m.samples, sample)
	return nil
}

func (m *MemoryStore) Query(_ context.Context, q SampleQuery) ([]models.Sample, error) {
	ids := idSet(q.ChannelIDs)

	m.mu.RLock()
	result := make([]models.Sample, 0)
	for _, s := range m.samples {
		if q.matches(s, ids) {
			result = append(result, s)
		}
	}
	m.mu.RUnlock()

	slices.SortStableFunc(result, func(a, b models.Sample) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	return result, nil
}

func (m *MemoryStore) CreateGroup(_ context.Context, name string) (models.Group, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Group{}, ErrInvalidName
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	g := models.Group{ID: uuid.NewString(), Name: name, CreatedAt: m.stamp()}
	m.groups[g.ID] = g
	return g, nil
}

func (m *MemoryStore) RenameGroup(_ context.Context, id, name string) (models.Group, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Group{}, ErrInvalidName
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.groups[id]
	if !ok {
		return models.Group{}, fmt.Errorf("group %s: %w", id, ErrNotFound)
	}
	g.Name = name
	m.groups[id] = g
	return g, nil
}

// DeleteGroup removes the group and its member channels. Their samples stay.
func (m *MemoryStore) DeleteGroup(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.groups[id]; !ok {
		return fmt.Errorf("group %s: %w", id, ErrNotFound)
	}
	delete(m.groups, id)
	for chID, ch := range m.channels {
		if ch.GroupID == id {
			delete(m.channels, chID)
		}
	}
	return nil
}

func (m *MemoryStore) GetGroup(_ context.Context, id string) (models.Group, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.groups[id]
	if !ok {
		return models.Group{}, fmt.Errorf("group %s: %w", id, ErrNotFound)
	}
	return g, nil
}

func (m *MemoryStore) ListGroups(_ context.Context) ([]models.Group, error) {
	m.mu.RLock()
	result := make([]models.Group, 0, len(m.groups))
	for _, g := range m.groups {
		result = append(result, g)
	}
	m.mu.RUnlock()

	slices.SortFunc(result, func(a, b models.Group) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return result, nil
}

func (m *MemoryStore) CreateChannel(_ context.Context, ch models.Channel) (models.Channel, error) {
	if _, ok := models.ParsePlatform(string(ch.Platform)); !ok {
		return models.Channel{}, fmt.Errorf("%w: %q", ErrInvalidPlatform, ch.Platform)
	}
	ch.DisplayName = strings.TrimSpace(ch.DisplayName)
	if ch.DisplayName == "" {
		return models.Channel{}, ErrInvalidName
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.groups[ch.GroupID]; !ok {
		return models.Channel{}, fmt.Errorf("group %s: %w", ch.GroupID, ErrNotFound)
	}
	ch.ID = uuid.NewString()
	ch.PeakViewersCount = 0
	ch.PeakViewersTimestamp = nil
	ch.CreatedAt = m.stamp()
	m.channels[ch.ID] = ch
	return ch, nil
}

func (m *MemoryStore) GetChannel(_ context.Context, id string) (models.Channel, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ch, ok := m.channels[id]
	if !ok {
		return models.Channel{}, fmt.Errorf("channel %s: %w", id, ErrNotFound)
	}
	return ch, nil
}

func (m *MemoryStore) ListChannels(_ context.Context, filter ChannelFilter) ([]models.Channel, error) {
	m.mu.RLock()
	result := make([]models.Channel, 0)
	for _, ch := range m.channels {
		if filter.GroupID != "" && ch.GroupID != filter.GroupID {
			continue
		}
		if filter.Platform != "" && ch.Platform != filter.Platform {
			continue
		}
		result = append(result, ch)
	}
	m.mu.RUnlock()

	slices.SortFunc(result, func(a, b models.Channel) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return result, nil
}

func (m *MemoryStore) DeleteChannel(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.channels[id]; !ok {
		return fmt.Errorf("channel %s: %w", id, ErrNotFound)
	}
	delete(m.channels, id)
	return nil
}

func (m *MemoryStore) UpdateChannelPeak(_ context.Context, channelID string, viewers int, ts time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, ok := m.channels[channelID]
	if !ok {
		return false, fmt.Errorf("channel %s: %w", channelID, ErrNotFound)
	}
	if viewers <= ch.PeakViewersCount {
		return false, nil
	}
	at := ts
	ch.PeakViewersCount = viewers
	ch.PeakViewersTimestamp = &at
	m.channels[channelID] = ch
	return true, nil
}

// stamp returns a creation time strictly after the previous one so listings
// keep creation order. Callers hold m.mu.
func (m *MemoryStore) stamp() time.Time {
	t := m.now().UTC()
	if !t.After(m.last) {
		t = m.last.Add(time.Microsecond)
	}
	m.last = t
	return t
}

func (m *MemoryStore) Close() error {
	return nil
}

func (m *MemoryStore) Snapshot() *Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := &Snapshot{
		Version:  SnapshotVersion,
		Groups:   make([]models.Group, 0, len(m.groups)),
		Channels: make([]models.Channel, 0, len(m.channels)),
		Samples:  slices.Clone(m.samples),
	}
	for _, g := range m.groups {
		snap.Groups = append(snap.Groups, g)
	}
	for _, ch := range m.channels {
		snap.Channels = append(snap.Channels, ch)
	}
	if snap.Samples == nil {
		snap.Samples = []models.Sample{}
	}
	return snap
}

func (m *MemoryStore) LoadSnapshot(s *Snapshot) error {
	if s == nil {
		return nil
	}
	if s.Version > SnapshotVersion {
		return fmt.Errorf("unsupported snapshot version %d", s.Version)
	}

	var last time.Time
	groups := make(map[string]models.Group, len(s.Groups))
	for _, g := range s.Groups {
		groups[g.ID] = g
		if g.CreatedAt.After(last) {
			last = g.CreatedAt
		}
	}
	channels := make(map[string]models.Channel, len(s.Channels))
	for _, ch := range s.Channels {
		channels[ch.ID] = ch
		if ch.CreatedAt.After(last) {
			last = ch.CreatedAt
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.groups = groups
	m.channels = channels
	m.samples = slices.Clone(s.Samples)
	// creation stamps keep increasing even when the clock is behind the snapshot
	if last.After(m.last) {
		m.last = last
	}
	return nil
}
