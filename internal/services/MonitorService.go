package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"streamwatch/internal/aggregation"
	"streamwatch/internal/models"
	"streamwatch/internal/producers"
	"streamwatch/internal/providers"
	"streamwatch/internal/storage"
	"streamwatch/internal/structures"
	"strings"
	"time"
)

const UnknownChannelName = "Unknown"

var ErrInvalidSample = errors.New("invalid sample")

type MonitorServiceInterface interface {
	CreateGroup(ctx context.Context, name string) (models.Group, error)
	RenameGroup(ctx context.Context, id, name string) (models.Group, error)
	DeleteGroup(ctx context.Context, id string) error
	ListGroups(ctx context.Context) ([]models.Group, error)

	CreateChannel(ctx context.Context, ch models.Channel) (models.Channel, error)
	DeleteChannel(ctx context.Context, id string) error
	ListChannels(ctx context.Context, groupID string) ([]models.Channel, error)

	RecordSample(ctx context.Context, sample models.Sample) error
	IngestSample(ctx context.Context, sample models.Sample) (models.Sample, error)

	Dashboard(ctx context.Context) (Dashboard, error)
	GroupDetails(ctx context.Context, groupID string, windowHours float64) (GroupDetails, error)
	History(ctx context.Context, q HistoryQuery) (History, error)
	Export(ctx context.Context, q HistoryQuery) ([]ExportRow, error)
	LiveStats(ctx context.Context) (aggregation.Stats, error)
	ChannelCount(ctx context.Context) (int, error)
}

type GroupCard struct {
	Group         models.Group `json:"group"`
	TotalChannels int          `json:"total_channels"`
	aggregation.Stats
}

type Dashboard struct {
	TotalChannels int `json:"total_channels"`
	aggregation.Stats
	Groups []GroupCard `json:"groups"`
}

type ChannelState struct {
	models.Channel
	Latest *models.Sample `json:"latest"`
}

type GroupDetails struct {
	Group models.Group `json:"group"`
	aggregation.Stats
	Channels    []ChannelState    `json:"channels"`
	WindowHours float64           `json:"window_hours"`
	Chart       aggregation.Chart `json:"chart"`
	WindowPeak  int               `json:"window_peak"`
}

// HistoryQuery selects a range either as a preset ending at At or as a custom
// clock interval on Date.
type HistoryQuery struct {
	GroupID string
	Range   aggregation.RangeKind
	At      time.Time
	Date    time.Time
	Start   string
	End     string
}

type History struct {
	Range    aggregation.TimeRange `json:"range"`
	Channels []string              `json:"channels"`
	Chart    aggregation.Chart     `json:"chart"`
}

type ExportRow struct {
	ChannelName string    `json:"channel_name"`
	Timestamp   time.Time `json:"timestamp"`
	Viewers     int       `json:"viewers"`
	Peak        int       `json:"peak"`
	IsLive      bool      `json:"is_live"`
}

type MonitorService struct {
	store    storage.Store
	tracker  PeakTrackerInterface
	resolver producers.LoginResolver
	logger   providers.Logger
	metrics  providers.MetricsProviderInterface
	loc      *time.Location
	window   float64
	now      func() time.Time
}

func NewMonitorService(conf *structures.Config, store storage.Store, tracker PeakTrackerInterface, resolver producers.LoginResolver, logger providers.Logger, metrics providers.MetricsProviderInterface) *MonitorService {
	loc, err := time.LoadLocation(conf.Dashboard.Timezone)
	if err != nil {
		loc = time.UTC
	}
	window := conf.Dashboard.DefaultWindowHours
	if window <= 0 {
		window = 1
	}
	return &MonitorService{
		store:    store,
		tracker:  tracker,
		resolver: resolver,
		logger:   logger,
		metrics:  metrics,
		loc:      loc,
		window:   window,
		now:      time.Now,
	}
}

func (ms *MonitorService) CreateGroup(ctx context.Context, name string) (models.Group, error) {
	return ms.store.CreateGroup(ctx, name)
}

func (ms *MonitorService) RenameGroup(ctx context.Context, id, name string) (models.Group, error) {
	return ms.store.RenameGroup(ctx, id, name)
}

func (ms *MonitorService) DeleteGroup(ctx context.Context, id string) error {
	return ms.store.DeleteGroup(ctx, id)
}

func (ms *MonitorService) ListGroups(ctx context.Context) ([]models.Group, error) {
	return ms.store.ListGroups(ctx)
}

// CreateChannel registers a channel. Twitch channels given only by login are
// resolved to their user id when a resolver is configured.
func (ms *MonitorService) CreateChannel(ctx context.Context, ch models.Channel) (models.Channel, error) {
	platform, ok := models.ParsePlatform(string(ch.Platform))
	if !ok {
		return models.Channel{}, fmt.Errorf("%w: %q", storage.ErrInvalidPlatform, ch.Platform)
	}
	ch.Platform = platform
	ch.PlatformChannelID = strings.TrimSpace(ch.PlatformChannelID)

	if platform == models.PlatformTwitch && ch.PlatformChannelID == "" && ms.resolver != nil {
		user, err := ms.resolver.ResolveLogin(ctx, ch.DisplayName)
		if err != nil {
			return models.Channel{}, fmt.Errorf("resolve twitch login %q: %w", ch.DisplayName, err)
		}
		ch.PlatformChannelID = user.ID
	}

	created, err := ms.store.CreateChannel(ctx, ch)
	if err != nil {
		return models.Channel{}, err
	}
	ms.logger.Infof(providers.TypeApp, "Channel %s (%s) registered in group %s", created.DisplayName, created.Platform, created.GroupID)
	return created, nil
}

func (ms *MonitorService) DeleteChannel(ctx context.Context, id string) error {
	return ms.store.DeleteChannel(ctx, id)
}

func (ms *MonitorService) ListChannels(ctx context.Context, groupID string) ([]models.Channel, error) {
	return ms.store.ListChannels(ctx, storage.ChannelFilter{GroupID: groupID})
}

// RecordSample appends a sample and folds it into the channel's peak. Peak
// tracking failures are logged and never fail the write.
func (ms *MonitorService) RecordSample(ctx context.Context, sample models.Sample) error {
	if err := ms.store.Insert(ctx, sample); err != nil {
		return fmt.Errorf("insert sample: %w", err)
	}

	platform := "unknown"
	if ch, err := ms.store.GetChannel(ctx, sample.ChannelID); err == nil {
		platform = string(ch.Platform)
	}
	ms.metrics.IncSamplesIngested(platform, sample.IsLive)

	if _, err := ms.tracker.Track(ctx, sample); err != nil {
		ms.logger.Errorf(providers.TypeApp, "Unable to track peak for channel %s: %s", sample.ChannelID, err)
	}
	return nil
}

// IngestSample validates an externally submitted sample before recording it.
// A missing timestamp is set to the time of receipt.
func (ms *MonitorService) IngestSample(ctx context.Context, sample models.Sample) (models.Sample, error) {
	if sample.ChannelID == "" {
		return models.Sample{}, fmt.Errorf("%w: channel_id is required", ErrInvalidSample)
	}
	if sample.ViewersCount < 0 {
		return models.Sample{}, fmt.Errorf("%w: viewers_count must not be negative", ErrInvalidSample)
	}
	if _, err := ms.store.GetChannel(ctx, sample.ChannelID); err != nil {
		return models.Sample{}, err
	}
	if sample.Timestamp.IsZero() {
		sample.Timestamp = ms.now().UTC()
	}
	return sample, ms.RecordSample(ctx, sample)
}

func (ms *MonitorService) latest(ctx context.Context, channelIDs []string) (map[string]models.Sample, error) {
	samples, err := ms.store.Query(ctx, storage.SampleQuery{ChannelIDs: channelIDs})
	if err != nil {
		return nil, err
	}
	return aggregation.Resolve(samples), nil
}

func (ms *MonitorService) Dashboard(ctx context.Context) (Dashboard, error) {
	groups, err := ms.store.ListGroups(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	channels, err := ms.store.ListChannels(ctx, storage.ChannelFilter{})
	if err != nil {
		return Dashboard{}, err
	}
	latest, err := ms.latest(ctx, nil)
	if err != nil {
		return Dashboard{}, err
	}

	byGroup := make(map[string][]string, len(groups))
	for _, ch := range channels {
		byGroup[ch.GroupID] = append(byGroup[ch.GroupID], ch.ID)
	}

	cards := make([]GroupCard, 0, len(groups))
	for _, g := range groups {
		ids := byGroup[g.ID]
		cards = append(cards, GroupCard{
			Group:         g,
			TotalChannels: len(ids),
			Stats:         aggregation.Aggregate(latest, aggregation.NewScope(ids...)),
		})
	}

	return Dashboard{
		TotalChannels: len(channels),
		Stats:         aggregation.Aggregate(latest, nil),
		Groups:        cards,
	}, nil
}

func (ms *MonitorService) GroupDetails(ctx context.Context, groupID string, windowHours float64) (GroupDetails, error) {
	if windowHours <= 0 {
		windowHours = ms.window
	}
	group, err := ms.store.GetGroup(ctx, groupID)
	if err != nil {
		return GroupDetails{}, err
	}
	channels, err := ms.store.ListChannels(ctx, storage.ChannelFilter{GroupID: groupID})
	if err != nil {
		return GroupDetails{}, err
	}

	ids := channelIDs(channels)
	samples, err := ms.store.Query(ctx, storage.SampleQuery{ChannelIDs: ids})
	if err != nil {
		return GroupDetails{}, err
	}
	latest := aggregation.Resolve(samples)

	states := make([]ChannelState, 0, len(channels))
	for _, ch := range channels {
		st := ChannelState{Channel: ch}
		if s, ok := latest[ch.ID]; ok {
			st.Latest = &s
		}
		states = append(states, st)
	}

	now := ms.now()
	chartSamples := labelSamples(samples, channels)
	chart := aggregation.BuildChart(chartSamples, windowHours, now)
	chart.Points = aggregation.Densify(chart.Points, channelNames(channels))

	return GroupDetails{
		Group:       group,
		Stats:       aggregation.Aggregate(latest, aggregation.NewScope(ids...)),
		Channels:    states,
		WindowHours: windowHours,
		Chart:       chart,
		WindowPeak:  aggregation.WindowPeak(chartSamples, windowHours, now),
	}, nil
}

func (ms *MonitorService) timeRange(q HistoryQuery) (aggregation.TimeRange, error) {
	kind := q.Range
	if kind == "" {
		kind = aggregation.Range1Hour
	}
	if kind == aggregation.RangeCustom {
		date := q.Date
		if date.IsZero() {
			date = ms.now().In(ms.loc)
		}
		start, end := q.Start, q.End
		if start == "" {
			start = "00:00"
		}
		if end == "" {
			end = "23:59"
		}
		return aggregation.CustomRange(date, start, end, ms.loc)
	}
	at := q.At
	if at.IsZero() {
		at = ms.now()
	}
	return aggregation.PresetRange(kind, at)
}

// rangeSamples returns the samples of the queried range together with the
// channels they may belong to. Without a group every sample is returned.
func (ms *MonitorService) rangeSamples(ctx context.Context, q HistoryQuery) (aggregation.TimeRange, []models.Sample, []models.Channel, error) {
	tr, err := ms.timeRange(q)
	if err != nil {
		return tr, nil, nil, err
	}

	var ids []string
	if q.GroupID != "" {
		if _, err := ms.store.GetGroup(ctx, q.GroupID); err != nil {
			return tr, nil, nil, err
		}
	}
	channels, err := ms.store.ListChannels(ctx, storage.ChannelFilter{GroupID: q.GroupID})
	if err != nil {
		return tr, nil, nil, err
	}
	if q.GroupID != "" {
		ids = channelIDs(channels)
	}

	from, to := tr.From, tr.To
	samples, err := ms.store.Query(ctx, storage.SampleQuery{ChannelIDs: ids, From: &from, To: &to})
	if err != nil {
		return tr, nil, nil, err
	}
	return tr, samples, channels, nil
}

func (ms *MonitorService) History(ctx context.Context, q HistoryQuery) (History, error) {
	tr, samples, channels, err := ms.rangeSamples(ctx, q)
	if err != nil {
		return History{}, err
	}

	chartSamples := labelSamples(samples, channels)
	names := channelNames(channels)
	for _, s := range chartSamples {
		if s.ChannelName == UnknownChannelName && !slices.Contains(names, UnknownChannelName) {
			names = append(names, UnknownChannelName)
		}
	}

	chart := aggregation.BuildRangeChart(chartSamples)
	chart.Points = aggregation.Densify(chart.Points, names)
	return History{Range: tr, Channels: names, Chart: chart}, nil
}

// Export flattens the range into one row per raw sample, carrying the
// channel's stored peak.
func (ms *MonitorService) Export(ctx context.Context, q HistoryQuery) ([]ExportRow, error) {
	_, samples, channels, err := ms.rangeSamples(ctx, q)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]models.Channel, len(channels))
	for _, ch := range channels {
		byID[ch.ID] = ch
	}

	rows := make([]ExportRow, 0, len(samples))
	for _, s := range samples {
		row := ExportRow{
			ChannelName: UnknownChannelName,
			Timestamp:   s.Timestamp.In(ms.loc),
			Viewers:     s.ViewersCount,
			IsLive:      s.IsLive,
		}
		if ch, ok := byID[s.ChannelID]; ok {
			row.ChannelName = ch.DisplayName
			row.Peak = ch.PeakViewersCount
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// LiveStats is the global aggregate used to refresh gauges.
func (ms *MonitorService) LiveStats(ctx context.Context) (aggregation.Stats, error) {
	latest, err := ms.latest(ctx, nil)
	if err != nil {
		return aggregation.Stats{}, err
	}
	return aggregation.Aggregate(latest, nil), nil
}

func (ms *MonitorService) ChannelCount(ctx context.Context) (int, error) {
	channels, err := ms.store.ListChannels(ctx, storage.ChannelFilter{})
	if err != nil {
		return 0, err
	}
	return len(channels), nil
}

func channelIDs(channels []models.Channel) []string {
	ids := make([]string, 0, len(channels))
	for _, ch := range channels {
		ids = append(ids, ch.ID)
	}
	return ids
}

func channelNames(channels []models.Channel) []string {
	names := make([]string, 0, len(channels))
	for _, ch := range channels {
		if !slices.Contains(names, ch.DisplayName) {
			names = append(names, ch.DisplayName)
		}
	}
	return names
}

func labelSamples(samples []models.Sample, channels []models.Channel) []aggregation.ChartSample {
	names := make(map[string]string, len(channels))
	for _, ch := range channels {
		names[ch.ID] = ch.DisplayName
	}
	out := make([]aggregation.ChartSample, 0, len(samples))
	for _, s := range samples {
		name, ok := names[s.ChannelID]
		if !ok {
			name = UnknownChannelName
		}
		out = append(out, aggregation.ChartSample{ChannelName: name, Viewers: s.ViewersCount, Timestamp: s.Timestamp})
	}
	return out
}
