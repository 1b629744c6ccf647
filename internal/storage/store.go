package storage

import (
	"context"
	"errors"
	"streamwatch/internal/models"
	"time"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidPlatform = errors.New("invalid platform")
	ErrInvalidName     = errors.New("name must not be empty")
)

// SampleQuery selects samples. A nil ChannelIDs selects every channel while
// an empty non-nil slice selects none. From and To are inclusive and optional.
type SampleQuery struct {
	ChannelIDs []string
	From       *time.Time
	To         *time.Time
}

func (q SampleQuery) matches(s models.Sample, ids map[string]struct{}) bool {
	if ids != nil {
		if _, ok := ids[s.ChannelID]; !ok {
			return false
		}
	}
	if q.From != nil && s.Timestamp.Before(*q.From) {
		return false
	}
	if q.To != nil && s.Timestamp.After(*q.To) {
		return false
	}
	return true
}

type ChannelFilter struct {
	GroupID  string
	Platform models.Platform
}

type SampleStore interface {
	Insert(ctx context.Context, sample models.Sample) error
	// Query returns samples ordered by timestamp ascending; samples sharing a
	// timestamp keep their insertion order.
	Query(ctx context.Context, q SampleQuery) ([]models.Sample, error)
}

type ChannelStore interface {
	CreateGroup(ctx context.Context, name string) (models.Group, error)
	RenameGroup(ctx context.Context, id, name string) (models.Group, error)
	DeleteGroup(ctx context.Context, id string) error
	GetGroup(ctx context.Context, id string) (models.Group, error)
	ListGroups(ctx context.Context) ([]models.Group, error)

	CreateChannel(ctx context.Context, ch models.Channel) (models.Channel, error)
	GetChannel(ctx context.Context, id string) (models.Channel, error)
	ListChannels(ctx context.Context, filter ChannelFilter) ([]models.Channel, error)
	DeleteChannel(ctx context.Context, id string) error

	// UpdateChannelPeak atomically raises the stored peak when viewers is
	// strictly greater than it. applied reports whether the write happened.
	UpdateChannelPeak(ctx context.Context, channelID string, viewers int, ts time.Time) (applied bool, err error)
}

type Store interface {
	SampleStore
	ChannelStore
	Close() error
}

// Snapshotter is implemented by stores that keep their state in memory and
// rely on the scheduler to persist it.
type Snapshotter interface {
	Snapshot() *Snapshot
	LoadSnapshot(s *Snapshot) error
}

func idSet(ids []string) map[string]struct{} {
	if ids == nil {
		return nil
	}
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
