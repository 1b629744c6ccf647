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
)

const (
	twitchBatchSize = 100
	twitchTokenKey  = "twitch:token"
)

type twitchToken struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

type twitchStreams struct {
	Data []struct {
		UserID      string `json:"user_id"`
		UserLogin   string `json:"user_login"`
		Type        string `json:"type"`
		ViewerCount int    `json:"viewer_count"`
	} `json:"data"`
}

type twitchUsers struct {
	Data []struct {
		ID          string `json:"id"`
		Login       string `json:"login"`
		DisplayName string `json:"display_name"`
	} `json:"data"`
}

// TwitchUser is the result of a login lookup.
type TwitchUser struct {
	ID          string `json:"id"`
	Login       string `json:"login"`
	DisplayName string `json:"display_name"`
}

type Twitch struct {
	conf       structures.TwitchConfig
	client     *http.Client
	cache      TTLCache
	liveTTL    time.Duration
	resolveTTL time.Duration
	logger     providers.Logger
	metrics    providers.MetricsProviderInterface
	now        func() time.Time
}

func NewTwitch(conf *structures.Config, cache TTLCache, logger providers.Logger, metrics providers.MetricsProviderInterface) *Twitch {
	return &Twitch{
		conf:       conf.Producers.Twitch,
		client:     &http.Client{Timeout: 15 * time.Second},
		cache:      cache,
		liveTTL:    conf.Producers.LiveTTL,
		resolveTTL: conf.Producers.ResolveTTL,
		logger:     logger,
		metrics:    metrics,
		now:        time.Now,
	}
}

func (t *Twitch) Platform() models.Platform {
	return models.PlatformTwitch
}

func (t *Twitch) token(ctx context.Context) (string, error) {
	var cached twitchToken
	if cacheGet(t.cache, twitchTokenKey, &cached) && cached.AccessToken != "" {
		return cached.AccessToken, nil
	}

	q := url.Values{}
	q.Set("client_id", t.conf.ClientId)
	q.Set("client_secret", t.conf.ClientSecret)
	q.Set("grant_type", "client_credentials")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(t.conf.AuthBase, "/")+"/oauth2/token?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}

	var tok twitchToken
	if err := doJSON(t.client, req, &tok); err != nil {
		return "", fmt.Errorf("twitch token: %w", err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("twitch token: empty access token")
	}

	ttl := time.Duration(tok.ExpiresIn)*time.Second - time.Minute
	if ttl < time.Second {
		ttl = time.Second
	}
	cacheSet(t.cache, twitchTokenKey, tok, ttl)
	return tok.AccessToken, nil
}

func (t *Twitch) headers(ctx context.Context) (http.Header, error) {
	tok, err := t.token(ctx)
	if err != nil {
		return nil, err
	}
	h := http.Header{}
	h.Set("Client-ID", t.conf.ClientId)
	h.Set("Authorization", "Bearer "+tok)
	return h, nil
}

// ResolveLogin looks a login name up through helix/users.
func (t *Twitch) ResolveLogin(ctx context.Context, login string) (TwitchUser, error) {
	login = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(login), "@"))
	key := "twitch:user:" + login

	var user TwitchUser
	if cacheGet(t.cache, key, &user) {
		return user, nil
	}

	h, err := t.headers(ctx)
	if err != nil {
		return TwitchUser{}, err
	}
	var resp twitchUsers
	u := strings.TrimRight(t.conf.ApiBase, "/") + "/helix/users?login=" + url.QueryEscape(login)
	if err := getJSON(ctx, t.client, u, h, &resp); err != nil {
		return TwitchUser{}, fmt.Errorf("twitch users: %w", err)
	}
	if len(resp.Data) == 0 {
		return TwitchUser{}, fmt.Errorf("twitch login %q: %w", login, ErrChannelNotFound)
	}

	user = TwitchUser{ID: resp.Data[0].ID, Login: resp.Data[0].Login, DisplayName: resp.Data[0].DisplayName}
	cacheSet(t.cache, key, user, t.resolveTTL)
	return user, nil
}

func (t *Twitch) userID(ctx context.Context, ch models.Channel) (string, error) {
	if ch.PlatformChannelID != "" {
		return ch.PlatformChannelID, nil
	}
	user, err := t.ResolveLogin(ctx, ch.DisplayName)
	if err != nil {
		return "", err
	}
	return user.ID, nil
}

func (t *Twitch) Poll(ctx context.Context, channels []models.Channel) []models.Sample {
	statuses := make(map[string]liveStatus, len(channels))
	ids := make([]string, len(channels))
	pending := make([]string, 0, len(channels))

	for i, ch := range channels {
		id, err := t.userID(ctx, ch)
		if err != nil {
			t.fail(ch.DisplayName, err)
			continue
		}
		ids[i] = id
		var st liveStatus
		if cacheGet(t.cache, "twitch:live:"+id, &st) {
			statuses[id] = st
			continue
		}
		pending = append(pending, id)
	}

	for start := 0; start < len(pending); start += twitchBatchSize {
		end := min(start+twitchBatchSize, len(pending))
		batch := pending[start:end]
		live, err := t.streams(ctx, batch)
		if err != nil {
			t.fail(fmt.Sprintf("batch of %d", len(batch)), err)
			continue
		}
		for _, id := range batch {
			st := live[id]
			statuses[id] = st
			cacheSet(t.cache, "twitch:live:"+id, st, statusTTL(st, t.liveTTL))
		}
	}

	at := t.now().UTC()
	samples := make([]models.Sample, 0, len(channels))
	for i, ch := range channels {
		samples = append(samples, statuses[ids[i]].sample(ch.ID, at))
	}
	return samples
}

func (t *Twitch) streams(ctx context.Context, userIDs []string) (map[string]liveStatus, error) {
	h, err := t.headers(ctx)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	for _, id := range userIDs {
		q.Add("user_id", id)
	}
	q.Set("first", fmt.Sprint(twitchBatchSize))

	var resp twitchStreams
	u := strings.TrimRight(t.conf.ApiBase, "/") + "/helix/streams?" + q.Encode()
	if err := getJSON(ctx, t.client, u, h, &resp); err != nil {
		return nil, fmt.Errorf("twitch streams: %w", err)
	}

	live := make(map[string]liveStatus, len(resp.Data))
	for _, s := range resp.Data {
		if s.Type != "" && s.Type != "live" {
			continue
		}
		live[s.UserID] = liveStatus{IsLive: true, Viewers: s.ViewerCount}
	}
	return live, nil
}

func (t *Twitch) fail(what string, err error) {
	t.metrics.IncProducerFailures(string(models.PlatformTwitch))
	t.logger.Warnf(providers.TypeProducer, "twitch lookup failed for %s: %s", what, err)
}
