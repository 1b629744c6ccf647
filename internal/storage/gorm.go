package storage

import (
	"context"
	"errors"
	"fmt"
	"streamwatch/internal/models"
	"streamwatch/internal/providers"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type groupRecord struct {
	ID        string    `gorm:"primaryKey;size:36"`
	Name      string    `gorm:"size:255;not null"`
	CreatedAt time.Time `gorm:"not null"`
}

func (groupRecord) TableName() string { return "channel_groups" }

type channelRecord struct {
	ID                   string `gorm:"primaryKey;size:36"`
	GroupID              string `gorm:"size:36;index;not null"`
	Platform             string `gorm:"size:16;index;not null"`
	PlatformChannelID    string `gorm:"size:255"`
	DisplayName          string `gorm:"size:255;not null"`
	PeakViewersCount     int    `gorm:"not null;default:0"`
	PeakViewersTimestamp *time.Time
	CreatedAt            time.Time `gorm:"not null"`
}

func (channelRecord) TableName() string { return "channels" }

// sampleRecord keeps an autoincrement key so samples sharing a timestamp can
// be returned in insertion order.
type sampleRecord struct {
	ID           uint64    `gorm:"primaryKey;autoIncrement"`
	ChannelID    string    `gorm:"size:36;not null;index:idx_samples_channel_ts,priority:1"`
	ViewersCount int       `gorm:"not null"`
	IsLive       bool      `gorm:"not null"`
	Timestamp    time.Time `gorm:"column:observed_at;not null;index;index:idx_samples_channel_ts,priority:2"`
}

func (sampleRecord) TableName() string { return "viewer_samples" }

func toGroup(r groupRecord) models.Group {
	return models.Group{ID: r.ID, Name: r.Name, CreatedAt: r.CreatedAt.UTC()}
}

func toChannel(r channelRecord) models.Channel {
	ch := models.Channel{
		ID:                r.ID,
		GroupID:           r.GroupID,
		Platform:          models.Platform(r.Platform),
		PlatformChannelID: r.PlatformChannelID,
		DisplayName:       r.DisplayName,
		PeakViewersCount:  r.PeakViewersCount,
		CreatedAt:         r.CreatedAt.UTC(),
	}
	if r.PeakViewersTimestamp != nil {
		ts := r.PeakViewersTimestamp.UTC()
		ch.PeakViewersTimestamp = &ts
	}
	return ch
}

// GormStore persists everything through gorm. It is used for the postgres
// and sqlite drivers.
type GormStore struct {
	db      *gorm.DB
	timeout time.Duration
	now     func() time.Time

	stampMu sync.Mutex
	last    time.Time
}

type gormLogWriter struct {
	logger providers.Logger
}

func (w gormLogWriter) Printf(format string, args ...interface{}) {
	w.logger.Debugf(providers.TypeApp, format, args...)
}

func NewGormStore(dialector gorm.Dialector, timeout time.Duration, logger providers.Logger) (*GormStore, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.New(gormLogWriter{logger: logger}, gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if dialector.Name() == "sqlite" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := db.AutoMigrate(&groupRecord{}, &channelRecord{}, &sampleRecord{}); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	return &GormStore{db: db, timeout: timeout, now: time.Now}, nil
}

// stamp returns creation times that strictly increase within this process,
// at the microsecond precision PostgreSQL keeps.
func (s *GormStore) stamp() time.Time {
	s.stampMu.Lock()
	defer s.stampMu.Unlock()
	t := s.now().UTC().Truncate(time.Microsecond)
	if !t.After(s.last) {
		t = s.last.Add(time.Microsecond)
	}
	s.last = t
	return t
}

func (s *GormStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *GormStore) Insert(ctx context.Context, sample models.Sample) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rec := sampleRecord{
		ChannelID:    sample.ChannelID,
		ViewersCount: sample.ViewersCount,
		IsLive:       sample.IsLive,
		Timestamp:    sample.Timestamp.UTC(),
	}
	return s.db.WithContext(ctx).Create(&rec).Error
}

func (s *GormStore) Query(ctx context.Context, q SampleQuery) ([]models.Sample, error) {
	if q.ChannelIDs != nil && len(q.ChannelIDs) == 0 {
		return []models.Sample{}, nil
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	tx := s.db.WithContext(ctx).Model(&sampleRecord{})
	if q.ChannelIDs != nil {
		tx = tx.Where("channel_id IN ?", q.ChannelIDs)
	}
	if q.From != nil {
		tx = tx.Where("observed_at >= ?", q.From.UTC())
	}
	if q.To != nil {
		tx = tx.Where("observed_at <= ?", q.To.UTC())
	}

	var records []sampleRecord
	if err := tx.Order("observed_at asc").Order("id asc").Find(&records).Error; err != nil {
		return nil, err
	}

	result := make([]models.Sample, 0, len(records))
	for _, r := range records {
		result = append(result, models.Sample{
			ChannelID:    r.ChannelID,
			ViewersCount: r.ViewersCount,
			IsLive:       r.IsLive,
			Timestamp:    r.Timestamp.UTC(),
		})
	}
	return result, nil
}

func (s *GormStore) CreateGroup(ctx context.Context, name string) (models.Group, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Group{}, ErrInvalidName
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rec := groupRecord{ID: uuid.NewString(), Name: name, CreatedAt: s.stamp()}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return models.Group{}, err
	}
	return toGroup(rec), nil
}

func (s *GormStore) RenameGroup(ctx context.Context, id, name string) (models.Group, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Group{}, ErrInvalidName
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	res := s.db.WithContext(ctx).Model(&groupRecord{}).Where("id = ?", id).Update("name", name)
	if res.Error != nil {
		return models.Group{}, res.Error
	}
	if res.RowsAffected == 0 {
		return models.Group{}, fmt.Errorf("group %s: %w", id, ErrNotFound)
	}
	return s.GetGroup(ctx, id)
}

// DeleteGroup removes the group and its member channels. Their samples stay.
func (s *GormStore) DeleteGroup(ctx context.Context, id string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ?", id).Delete(&groupRecord{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("group %s: %w", id, ErrNotFound)
		}
		return tx.Where("group_id = ?", id).Delete(&channelRecord{}).Error
	})
}

func (s *GormStore) GetGroup(ctx context.Context, id string) (models.Group, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var rec groupRecord
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Group{}, fmt.Errorf("group %s: %w", id, ErrNotFound)
		}
		return models.Group{}, err
	}
	return toGroup(rec), nil
}

func (s *GormStore) ListGroups(ctx context.Context) ([]models.Group, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var records []groupRecord
	if err := s.db.WithContext(ctx).Order("created_at asc").Order("id asc").Find(&records).Error; err != nil {
		return nil, err
	}
	result := make([]models.Group, 0, len(records))
	for _, r := range records {
		result = append(result, toGroup(r))
	}
	return result, nil
}

func (s *GormStore) CreateChannel(ctx context.Context, ch models.Channel) (models.Channel, error) {
	if _, ok := models.ParsePlatform(string(ch.Platform)); !ok {
		return models.Channel{}, fmt.Errorf("%w: %q", ErrInvalidPlatform, ch.Platform)
	}
	ch.DisplayName = strings.TrimSpace(ch.DisplayName)
	if ch.DisplayName == "" {
		return models.Channel{}, ErrInvalidName
	}
	if _, err := s.GetGroup(ctx, ch.GroupID); err != nil {
		return models.Channel{}, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rec := channelRecord{
		ID:                uuid.NewString(),
		GroupID:           ch.GroupID,
		Platform:          string(ch.Platform),
		PlatformChannelID: ch.PlatformChannelID,
		DisplayName:       ch.DisplayName,
		CreatedAt:         s.stamp(),
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return models.Channel{}, err
	}
	return toChannel(rec), nil
}

func (s *GormStore) GetChannel(ctx context.Context, id string) (models.Channel, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var rec channelRecord
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Channel{}, fmt.Errorf("channel %s: %w", id, ErrNotFound)
		}
		return models.Channel{}, err
	}
	return toChannel(rec), nil
}

func (s *GormStore) ListChannels(ctx context.Context, filter ChannelFilter) ([]models.Channel, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	tx := s.db.WithContext(ctx).Model(&channelRecord{})
	if filter.GroupID != "" {
		tx = tx.Where("group_id = ?", filter.GroupID)
	}
	if filter.Platform != "" {
		tx = tx.Where("platform = ?", string(filter.Platform))
	}

	var records []channelRecord
	if err := tx.Order("created_at asc").Order("id asc").Find(&records).Error; err != nil {
		return nil, err
	}
	result := make([]models.Channel, 0, len(records))
	for _, r := range records {
		result = append(result, toChannel(r))
	}
	return result, nil
}

func (s *GormStore) DeleteChannel(ctx context.Context, id string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&channelRecord{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("channel %s: %w", id, ErrNotFound)
	}
	return nil
}

// UpdateChannelPeak relies on the conditional UPDATE so concurrent writers in
// other processes cannot lower a peak.
func (s *GormStore) UpdateChannelPeak(ctx context.Context, channelID string, viewers int, ts time.Time) (bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	res := s.db.WithContext(ctx).Model(&channelRecord{}).
		Where("id = ? AND peak_viewers_count < ?", channelID, viewers).
		Updates(map[string]interface{}{
			"peak_viewers_count":     viewers,
			"peak_viewers_timestamp": ts.UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		return true, nil
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&channelRecord{}).Where("id = ?", channelID).Count(&count).Error; err != nil {
		return false, err
	}
	if count == 0 {
		return false, fmt.Errorf("channel %s: %w", channelID, ErrNotFound)
	}
	return false, nil
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
