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

const youtubeConcurrency = 4

type youtubeSearch struct {
	Items []struct {
		ID struct {
			ChannelID string `json:"channelId"`
			VideoID   string `json:"videoId"`
		} `json:"id"`
	} `json:"items"`
}

type youtubeVideos struct {
	Items []struct {
		ID                   string `json:"id"`
		LiveStreamingDetails struct {
			ConcurrentViewers interface{} `json:"concurrentViewers"`
		} `json:"liveStreamingDetails"`
	} `json:"items"`
}

type Youtube struct {
	conf       structures.YoutubeConfig
	client     *http.Client
	cache      TTLCache
	liveTTL    time.Duration
	resolveTTL time.Duration
	logger     providers.Logger
	metrics    providers.MetricsProviderInterface
	now        func() time.Time
}

func NewYoutube(conf *structures.Config, cache TTLCache, logger providers.Logger, metrics providers.MetricsProviderInterface) *Youtube {
	return &Youtube{
		conf:       conf.Producers.Youtube,
		client:     &http.Client{Timeout: 15 * time.Second},
		cache:      cache,
		liveTTL:    conf.Producers.LiveTTL,
		resolveTTL: conf.Producers.ResolveTTL,
		logger:     logger,
		metrics:    metrics,
		now:        time.Now,
	}
}

func (y *Youtube) Platform() models.Platform {
	return models.PlatformYoutube
}

func (y *Youtube) endpoint(path string, q url.Values) string {
	q.Set("key", y.conf.ApiKey)
	return strings.TrimRight(y.conf.ApiBase, "/") + "/" + path + "?" + q.Encode()
}

// channelID turns an @handle into a channel id. Anything else is taken as an
// id already.
func (y *Youtube) channelID(ctx context.Context, handle string) (string, error) {
	handle = strings.TrimSpace(handle)
	if !strings.HasPrefix(handle, "@") {
		return handle, nil
	}

	key := "youtube:channel:" + strings.ToLower(handle)
	var id string
	if cacheGet(y.cache, key, &id) {
		return id, nil
	}

	q := url.Values{}
	q.Set("part", "snippet")
	q.Set("type", "channel")
	q.Set("q", handle)
	var resp youtubeSearch
	if err := getJSON(ctx, y.client, y.endpoint("search", q), nil, &resp); err != nil {
		return "", fmt.Errorf("youtube channel search: %w", err)
	}
	if len(resp.Items) == 0 || resp.Items[0].ID.ChannelID == "" {
		return "", fmt.Errorf("youtube handle %q: %w", handle, ErrChannelNotFound)
	}

	id = resp.Items[0].ID.ChannelID
	cacheSet(y.cache, key, id, y.resolveTTL)
	return id, nil
}

// status sums concurrent viewers over every live video of the channel.
func (y *Youtube) status(ctx context.Context, channelID string) (liveStatus, error) {
	key := "youtube:live:" + channelID
	var st liveStatus
	if cacheGet(y.cache, key, &st) {
		return st, nil
	}

	q := url.Values{}
	q.Set("part", "id")
	q.Set("channelId", channelID)
	q.Set("eventType", "live")
	q.Set("type", "video")
	q.Set("maxResults", "50")
	var search youtubeSearch
	if err := getJSON(ctx, y.client, y.endpoint("search", q), nil, &search); err != nil {
		return liveStatus{}, fmt.Errorf("youtube live search: %w", err)
	}

	videoIDs := make([]string, 0, len(search.Items))
	for _, item := range search.Items {
		if item.ID.VideoID != "" {
			videoIDs = append(videoIDs, item.ID.VideoID)
		}
	}
	if len(videoIDs) == 0 {
		cacheSet(y.cache, key, st, statusTTL(st, y.liveTTL))
		return st, nil
	}

	q = url.Values{}
	q.Set("part", "liveStreamingDetails")
	q.Set("id", strings.Join(videoIDs, ","))
	var videos youtubeVideos
	if err := getJSON(ctx, y.client, y.endpoint("videos", q), nil, &videos); err != nil {
		return liveStatus{}, fmt.Errorf("youtube videos: %w", err)
	}
	if len(videos.Items) == 0 {
		return liveStatus{}, nil
	}

	st.IsLive = true
	for _, v := range videos.Items {
		st.Viewers += cast.ToInt(v.LiveStreamingDetails.ConcurrentViewers)
	}
	cacheSet(y.cache, key, st, statusTTL(st, y.liveTTL))
	return st, nil
}

func (y *Youtube) Poll(ctx context.Context, channels []models.Channel) []models.Sample {
	samples := make([]models.Sample, len(channels))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(youtubeConcurrency)
	for i, ch := range channels {
		g.Go(func() error {
			samples[i] = y.pollOne(gctx, ch)
			return nil
		})
	}
	_ = g.Wait()
	return samples
}

func (y *Youtube) pollOne(ctx context.Context, ch models.Channel) models.Sample {
	ref := ch.PlatformChannelID
	if ref == "" {
		ref = ch.DisplayName
	}

	id, err := y.channelID(ctx, ref)
	if err != nil {
		y.fail(ch.DisplayName, err)
		return models.OfflineSample(ch.ID, y.now().UTC())
	}
	st, err := y.status(ctx, id)
	if err != nil {
		y.fail(ch.DisplayName, err)
	}
	return st.sample(ch.ID, y.now().UTC())
}

func (y *Youtube) fail(what string, err error) {
	y.metrics.IncProducerFailures(string(models.PlatformYoutube))
	y.logger.Warnf(providers.TypeProducer, "youtube lookup failed for %s: %s", what, err)
}
