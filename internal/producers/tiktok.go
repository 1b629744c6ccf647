package producers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"streamwatch/internal/models"
	"streamwatch/internal/providers"
	"streamwatch/internal/structures"
	"strings"
	"time"

	"github.com/spf13/cast"
	"golang.org/x/sync/errgroup"
)

const (
	tiktokConcurrency    = 4
	tiktokStatusLive     = 2
	tiktokDefaultTimeout = 10 * time.Second
)

type tiktokRoom struct {
	StatusCode int `json:"statusCode"`
	Data       struct {
		User struct {
			RoomID string `json:"roomId"`
			Status int    `json:"status"`
		} `json:"user"`
		LiveRoom struct {
			LiveRoomStats struct {
				UserCount interface{} `json:"userCount"`
			} `json:"liveRoomStats"`
		} `json:"liveRoom"`
	} `json:"data"`
}

type Tiktok struct {
	conf    structures.TiktokConfig
	client  *http.Client
	cache   TTLCache
	liveTTL time.Duration
	timeout time.Duration
	logger  providers.Logger
	metrics providers.MetricsProviderInterface
	now     func() time.Time
}

func NewTiktok(conf *structures.Config, cache TTLCache, logger providers.Logger, metrics providers.MetricsProviderInterface) *Tiktok {
	timeout := conf.Producers.Tiktok.Timeout
	if timeout <= 0 {
		timeout = tiktokDefaultTimeout
	}
	return &Tiktok{
		conf:    conf.Producers.Tiktok,
		client:  &http.Client{},
		cache:   cache,
		liveTTL: conf.Producers.LiveTTL,
		timeout: timeout,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}
}

func (t *Tiktok) Platform() models.Platform {
	return models.PlatformTiktok
}

func (t *Tiktok) status(ctx context.Context, uniqueID string) (liveStatus, error) {
	key := "tiktok:live:" + uniqueID
	var st liveStatus
	if cacheGet(t.cache, key, &st) {
		return st, nil
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	q := url.Values{}
	q.Set("aid", "1988")
	q.Set("sourceType", "54")
	q.Set("uniqueId", uniqueID)
	var room tiktokRoom
	u := strings.TrimRight(t.conf.BaseUrl, "/") + "/api-live/user/room/?" + q.Encode()
	if err := getJSON(ctx, t.client, u, nil, &room); err != nil {
		return liveStatus{}, fmt.Errorf("tiktok room: %w", err)
	}
	if room.StatusCode != 0 {
		return liveStatus{}, fmt.Errorf("tiktok user %q: %w", uniqueID, ErrChannelNotFound)
	}

	if room.Data.User.Status == tiktokStatusLive {
		st = liveStatus{IsLive: true, Viewers: cast.ToInt(room.Data.LiveRoom.LiveRoomStats.UserCount)}
	}
	cacheSet(t.cache, key, st, statusTTL(st, t.liveTTL))
	return st, nil
}

func (t *Tiktok) Poll(ctx context.Context, channels []models.Channel) []models.Sample {
	samples := make([]models.Sample, len(channels))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(tiktokConcurrency)
	for i, ch := range channels {
		g.Go(func() error {
			ref := ch.PlatformChannelID
			if ref == "" {
				ref = ch.DisplayName
			}
			st, err := t.status(gctx, strings.TrimPrefix(strings.TrimSpace(ref), "@"))
			if err != nil {
				t.metrics.IncProducerFailures(string(models.PlatformTiktok))
				t.logger.Warnf(providers.TypeProducer, "tiktok lookup failed for %s: %s", ch.DisplayName, err)
			}
			samples[i] = st.sample(ch.ID, t.now().UTC())
			return nil
		})
	}
	_ = g.Wait()
	return samples
}
