package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"streamwatch/internal/models"
	"streamwatch/internal/storage"
	"streamwatch/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTrackedChannel(t *testing.T, store *storage.MemoryStore) models.Channel {
	t.Helper()
	ctx := context.Background()
	g, err := store.CreateGroup(ctx, "g")
	require.NoError(t, err)
	ch, err := store.CreateChannel(ctx, models.Channel{GroupID: g.ID, Platform: models.PlatformTwitch, DisplayName: "c"})
	require.NoError(t, err)
	return ch
}

func TestPeakTracker_RaisesOnlyOnStrictlyGreater(t *testing.T) {
	store := storage.NewMemoryStore()
	ch := newTrackedChannel(t, store)
	metrics := &testutil.MockMetrics{}
	pt := NewPeakTracker(store, &testutil.MockLogger{}, metrics)
	ctx := context.Background()

	changed, err := pt.Track(ctx, models.Sample{ChannelID: ch.ID, ViewersCount: 100, IsLive: true, Timestamp: now})
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = pt.Track(ctx, models.Sample{ChannelID: ch.ID, ViewersCount: 100, IsLive: true, Timestamp: now.Add(time.Minute)})
	require.NoError(t, err)
	assert.False(t, changed)

	got, _ := store.GetChannel(ctx, ch.ID)
	assert.Equal(t, 100, got.PeakViewersCount)
	assert.True(t, got.PeakViewersTimestamp.Equal(now))
	assert.Equal(t, 1, metrics.PeakUpdates)
}

func TestPeakTracker_UnknownChannelIgnored(t *testing.T) {
	pt := NewPeakTracker(storage.NewMemoryStore(), &testutil.MockLogger{}, &testutil.MockMetrics{})
	changed, err := pt.Track(context.Background(), models.Sample{ChannelID: "ghost", ViewersCount: 5, Timestamp: now})
	assert.NoError(t, err)
	assert.False(t, changed)
}

func TestPeakTracker_ConcurrentTrackKeepsMaximum(t *testing.T) {
	store := storage.NewMemoryStore()
	ch := newTrackedChannel(t, store)
	pt := NewPeakTracker(store, &testutil.MockLogger{}, &testutil.MockMetrics{})

	var wg sync.WaitGroup
	for i := 1; i <= 100; i++ {
		wg.Add(1)
		go func(v int) {
			defer wg.Done()
			_, _ = pt.Track(context.Background(), models.Sample{ChannelID: ch.ID, ViewersCount: v, IsLive: true, Timestamp: now.Add(time.Duration(v) * time.Second)})
		}(i)
	}
	wg.Wait()

	got, _ := store.GetChannel(context.Background(), ch.ID)
	assert.Equal(t, 100, got.PeakViewersCount)
	assert.True(t, got.PeakViewersTimestamp.Equal(now.Add(100*time.Second)))
	assert.Zero(t, pt.locks.size())
}

// racingStore lets another writer slip a higher peak in right before the
// tracker's conditional update.
type racingStore struct {
	*storage.MemoryStore
	rival   int
	updates int
}

func (r *racingStore) UpdateChannelPeak(ctx context.Context, id string, viewers int, ts time.Time) (bool, error) {
	r.updates++
	if r.rival > 0 {
		_, _ = r.MemoryStore.UpdateChannelPeak(ctx, id, r.rival, ts)
		r.rival = 0
	}
	return r.MemoryStore.UpdateChannelPeak(ctx, id, viewers, ts)
}

func TestPeakTracker_ReevaluatesAfterLosingRace(t *testing.T) {
	mem := storage.NewMemoryStore()
	ch := newTrackedChannel(t, mem)

	lost := &racingStore{MemoryStore: mem, rival: 500}
	pt := NewPeakTracker(lost, &testutil.MockLogger{}, &testutil.MockMetrics{})
	changed, err := pt.Track(context.Background(), models.Sample{ChannelID: ch.ID, ViewersCount: 300, Timestamp: now})
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, 1, lost.updates)

	won := &racingStore{MemoryStore: mem, rival: 600}
	pt = NewPeakTracker(won, &testutil.MockLogger{}, &testutil.MockMetrics{})
	changed, err = pt.Track(context.Background(), models.Sample{ChannelID: ch.ID, ViewersCount: 700, Timestamp: now})
	require.NoError(t, err)
	assert.True(t, changed)

	got, _ := mem.GetChannel(context.Background(), ch.ID)
	assert.Equal(t, 700, got.PeakViewersCount)
}

func TestKeyedMutex_SerializesSameKey(t *testing.T) {
	km := newKeyedMutex()
	unlock := km.Lock("a")

	acquired := make(chan struct{})
	go func() {
		u := km.Lock("a")
		close(acquired)
		u()
	}()

	select {
	case <-acquired:
		t.Fatal("second lock acquired while first is held")
	case <-time.After(20 * time.Millisecond):
	}

	other := km.Lock("b")
	other()

	unlock()
	<-acquired
	assert.Eventually(t, func() bool { return km.size() == 0 }, time.Second, time.Millisecond)
}
