package producers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"streamwatch/internal/models"
	"time"

	json "github.com/goccy/go-json"
)

var ErrChannelNotFound = errors.New("channel not found on platform")

// Producer checks the current live state of a set of channels on one
// platform. Poll returns exactly one sample per channel, stamped at
// observation time. A failed lookup is reported as an offline sample.
type Producer interface {
	Platform() models.Platform
	Poll(ctx context.Context, channels []models.Channel) []models.Sample
}

// TTLCache is the expiring key/value cache shared by producers.
type TTLCache interface {
	Get(key string) ([]byte, bool)
	SetWithTTL(key string, value []byte, ttl time.Duration)
}

type liveStatus struct {
	IsLive  bool `json:"is_live"`
	Viewers int  `json:"viewers"`
}

func (s liveStatus) sample(channelID string, at time.Time) models.Sample {
	if !s.IsLive {
		return models.OfflineSample(channelID, at)
	}
	return models.Sample{ChannelID: channelID, ViewersCount: s.Viewers, IsLive: true, Timestamp: at}
}

// statusTTL keeps offline results twice as long as live ones.
func statusTTL(s liveStatus, liveTTL time.Duration) time.Duration {
	if s.IsLive {
		return liveTTL
	}
	return 2 * liveTTL
}

func cacheGet(cache TTLCache, key string, v interface{}) bool {
	raw, ok := cache.Get(key)
	if !ok {
		return false
	}
	return json.Unmarshal(raw, v) == nil
}

func cacheSet(cache TTLCache, key string, v interface{}, ttl time.Duration) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	cache.SetWithTTL(key, raw, ttl)
}

type statusError struct {
	url  string
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d: %s", e.url, e.code, e.body)
}

func doJSON(client *http.Client, req *http.Request, out interface{}) error {
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &statusError{url: req.URL.Path, code: resp.StatusCode, body: string(body)}
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func getJSON(ctx context.Context, client *http.Client, url string, header http.Header, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	for k, v := range header {
		req.Header[k] = v
	}
	return doJSON(client, req, out)
}
