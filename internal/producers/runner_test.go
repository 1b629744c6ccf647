package producers

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"streamwatch/internal/models"
	"streamwatch/internal/storage"
	"streamwatch/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProducer struct {
	platform models.Platform
	viewers  int
	mu       sync.Mutex
	seen     []string
}

func (p *stubProducer) Platform() models.Platform { return p.platform }

func (p *stubProducer) Poll(_ context.Context, channels []models.Channel) []models.Sample {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.Sample, 0, len(channels))
	for _, ch := range channels {
		p.seen = append(p.seen, ch.ID)
		out = append(out, models.Sample{ChannelID: ch.ID, ViewersCount: p.viewers, IsLive: p.viewers > 0, Timestamp: fixedNow})
	}
	return out
}

type recorderFunc func(ctx context.Context, s models.Sample) error

func (f recorderFunc) RecordSample(ctx context.Context, s models.Sample) error { return f(ctx, s) }

func TestRunner_RunOnceRecordsEverySample(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	g, err := store.CreateGroup(ctx, "g")
	require.NoError(t, err)
	for _, ch := range []models.Channel{
		{GroupID: g.ID, Platform: models.PlatformTwitch, DisplayName: "t1"},
		{GroupID: g.ID, Platform: models.PlatformTwitch, DisplayName: "t2"},
		{GroupID: g.ID, Platform: models.PlatformTiktok, DisplayName: "k1"},
	} {
		_, err := store.CreateChannel(ctx, ch)
		require.NoError(t, err)
	}

	tw := &stubProducer{platform: models.PlatformTwitch, viewers: 5}
	tk := &stubProducer{platform: models.PlatformTiktok}
	yt := &stubProducer{platform: models.PlatformYoutube}

	var mu sync.Mutex
	var recorded []models.Sample
	metrics := &testutil.MockMetrics{}
	r := NewRunner([]Producer{tw, tk, yt}, store, recorderFunc(func(_ context.Context, s models.Sample) error {
		mu.Lock()
		defer mu.Unlock()
		recorded = append(recorded, s)
		return nil
	}), &testutil.MockLogger{}, metrics)

	require.True(t, r.Enabled())
	require.NoError(t, r.RunOnce(ctx))

	assert.Len(t, recorded, 3)
	assert.Len(t, tw.seen, 2)
	assert.Len(t, tk.seen, 1)
	assert.Empty(t, yt.seen)
	assert.Equal(t, 1, metrics.Polls["twitch"])
	assert.Zero(t, metrics.Polls["youtube"])
}

func TestRunner_RecorderErrorsAreLogged(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	g, _ := store.CreateGroup(ctx, "g")
	_, err := store.CreateChannel(ctx, models.Channel{GroupID: g.ID, Platform: models.PlatformTwitch, DisplayName: "t"})
	require.NoError(t, err)

	logger := &testutil.MockLogger{}
	r := NewRunner([]Producer{&stubProducer{platform: models.PlatformTwitch}}, store, recorderFunc(func(context.Context, models.Sample) error {
		return errors.New("disk full")
	}), logger, &testutil.MockMetrics{})

	assert.NoError(t, r.RunOnce(ctx))
	assert.Equal(t, 1, logger.Count("error"))
}

func TestNewProducers_OnlyEnabled(t *testing.T) {
	conf := testutil.NewTestConfig()
	conf.Producers.Youtube.Enabled = true
	conf.Producers.Tiktok.Enabled = true
	conf.Producers.Tiktok.Timeout = time.Second

	list := NewProducers(conf, testutil.NewMockCache(), &testutil.MockLogger{}, &testutil.MockMetrics{})
	require.Len(t, list, 2)
	assert.Equal(t, models.PlatformYoutube, list[0].Platform())
	assert.Equal(t, models.PlatformTiktok, list[1].Platform())
	assert.Nil(t, NewTwitchResolver(list))

	conf.Producers.Twitch.Enabled = true
	list = NewProducers(conf, testutil.NewMockCache(), &testutil.MockLogger{}, &testutil.MockMetrics{})
	assert.NotNil(t, NewTwitchResolver(list))
}
