package storage

import (
	"context"
	"testing"
	"time"

	"streamwatch/internal/models"
	"streamwatch/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
)

func newSqliteStore(t *testing.T) *GormStore {
	t.Helper()
	s, err := NewGormStore(sqlite.Open(":memory:"), 0, &testutil.MockLogger{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestGormStore_Contract(t *testing.T) {
	runStoreContract(t, func(t *testing.T) Store {
		return newSqliteStore(t)
	})
}

func TestGormStore_TimestampsComeBackInUTC(t *testing.T) {
	ctx := context.Background()
	s := newSqliteStore(t)

	loc := time.FixedZone("UTC+3", 3*3600)
	require.NoError(t, s.Insert(ctx, models.Sample{ChannelID: "a", ViewersCount: 1, Timestamp: t0.In(loc)}))

	got, err := s.Query(ctx, SampleQuery{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, time.UTC, got[0].Timestamp.Location())
	assert.True(t, got[0].Timestamp.Equal(t0))
}

func TestNewStore_SelectsDriver(t *testing.T) {
	conf := testutil.NewTestConfig()
	logger := &testutil.MockLogger{}

	conf.Storage.Driver = "memory"
	s, err := NewStore(conf, logger)
	require.NoError(t, err)
	_, ok := s.(*MemoryStore)
	assert.True(t, ok)

	conf.Storage.Driver = "sqlite"
	conf.Storage.Dsn = ":memory:"
	s, err = NewStore(conf, logger)
	require.NoError(t, err)
	_, ok = s.(*GormStore)
	assert.True(t, ok)
	require.NoError(t, s.Close())

	conf.Storage.Driver = "oracle"
	_, err = NewStore(conf, logger)
	assert.Error(t, err)
}
