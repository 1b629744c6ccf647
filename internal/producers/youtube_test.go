package producers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"
	"time"

	"streamwatch/internal/models"
	"streamwatch/internal/testutil"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

type youtubeFake struct {
	searchChannelCalls atomic.Int32
	liveSearchCalls    atomic.Int32
	handles            map[string]string
	lives              map[string][]string
	viewers            map[string]string
}

func (f *youtubeFake) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "key", q.Get("key"))
		items := make([]map[string]interface{}, 0)
		switch {
		case q.Get("type") == "channel":
			f.searchChannelCalls.Add(1)
			if id, ok := f.handles[q.Get("q")]; ok {
				items = append(items, map[string]interface{}{"id": map[string]string{"channelId": id}})
			}
		case q.Get("eventType") == "live":
			f.liveSearchCalls.Add(1)
			for _, v := range f.lives[q.Get("channelId")] {
				items = append(items, map[string]interface{}{"id": map[string]string{"videoId": v}})
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"items": items})
	})
	mux.HandleFunc("/videos", func(w http.ResponseWriter, r *http.Request) {
		items := make([]map[string]interface{}, 0)
		for id, v := range f.viewers {
			if slices.Contains(strings.Split(r.URL.Query().Get("id"), ","), id) {
				items = append(items, map[string]interface{}{
					"id":                   id,
					"liveStreamingDetails": map[string]string{"concurrentViewers": v},
				})
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"items": items})
	})
	return mux
}

func newTestYoutube(t *testing.T, fake *youtubeFake) (*Youtube, *testutil.MockMetrics) {
	srv := httptest.NewServer(fake.handler(t))
	t.Cleanup(srv.Close)

	conf := testutil.NewTestConfig()
	conf.Producers.Youtube.Enabled = true
	conf.Producers.Youtube.ApiKey = "key"
	conf.Producers.Youtube.ApiBase = srv.URL
	metrics := &testutil.MockMetrics{}
	y := NewYoutube(conf, testutil.NewMockCache(), &testutil.MockLogger{}, metrics)
	y.now = func() time.Time { return fixedNow }
	return y, metrics
}

func TestYoutube_SumsConcurrentLives(t *testing.T) {
	fake := &youtubeFake{
		lives:   map[string][]string{"UC1": {"v1", "v2"}},
		viewers: map[string]string{"v1": "1200", "v2": "300"},
	}
	y, _ := newTestYoutube(t, fake)

	samples := y.Poll(context.Background(), []models.Channel{{ID: "a", PlatformChannelID: "UC1", DisplayName: "one"}})
	require.Len(t, samples, 1)
	assert.Equal(t, models.Sample{ChannelID: "a", ViewersCount: 1500, IsLive: true, Timestamp: fixedNow}, samples[0])
}

func TestYoutube_OfflineWhenNoLiveVideos(t *testing.T) {
	y, _ := newTestYoutube(t, &youtubeFake{})

	samples := y.Poll(context.Background(), []models.Channel{{ID: "a", PlatformChannelID: "UC9", DisplayName: "nine"}})
	require.Len(t, samples, 1)
	assert.False(t, samples[0].IsLive)
	assert.Zero(t, samples[0].ViewersCount)
}

func TestYoutube_ResolvesHandleOnce(t *testing.T) {
	fake := &youtubeFake{
		handles: map[string]string{"@mrbeast": "UCX"},
		lives:   map[string][]string{"UCX": {"v1"}},
		viewers: map[string]string{"v1": "42"},
	}
	y, _ := newTestYoutube(t, fake)
	channels := []models.Channel{{ID: "a", PlatformChannelID: "@mrbeast", DisplayName: "MrBeast"}}

	first := y.Poll(context.Background(), channels)
	second := y.Poll(context.Background(), channels)

	assert.Equal(t, 42, first[0].ViewersCount)
	assert.Equal(t, 42, second[0].ViewersCount)
	assert.Equal(t, int32(1), fake.searchChannelCalls.Load())
	assert.Equal(t, int32(1), fake.liveSearchCalls.Load())
}

func TestYoutube_UnknownHandleIsOfflineFailure(t *testing.T) {
	y, metrics := newTestYoutube(t, &youtubeFake{})

	samples := y.Poll(context.Background(), []models.Channel{{ID: "a", PlatformChannelID: "@ghost", DisplayName: "ghost"}})
	require.Len(t, samples, 1)
	assert.False(t, samples[0].IsLive)
	assert.Equal(t, 1, metrics.FailuresFor("youtube"))
}

func TestYoutube_PreservesChannelOrder(t *testing.T) {
	fake := &youtubeFake{
		lives:   map[string][]string{"UC2": {"v2"}},
		viewers: map[string]string{"v2": "7"},
	}
	y, _ := newTestYoutube(t, fake)

	samples := y.Poll(context.Background(), []models.Channel{
		{ID: "a", PlatformChannelID: "UC1"},
		{ID: "b", PlatformChannelID: "UC2"},
		{ID: "c", PlatformChannelID: "UC3"},
	})
	require.Len(t, samples, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{samples[0].ChannelID, samples[1].ChannelID, samples[2].ChannelID})
	assert.Equal(t, 7, samples[1].ViewersCount)
}
