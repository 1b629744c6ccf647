package producers

import (
	"context"
	"streamwatch/internal/models"
	"streamwatch/internal/providers"
	"streamwatch/internal/storage"
	"streamwatch/internal/structures"
	"time"

	"golang.org/x/sync/errgroup"
)

type ChannelLister interface {
	ListChannels(ctx context.Context, filter storage.ChannelFilter) ([]models.Channel, error)
}

type SampleRecorder interface {
	RecordSample(ctx context.Context, sample models.Sample) error
}

type RunnerInterface interface {
	RunOnce(ctx context.Context) error
	Enabled() bool
}

// Runner polls every enabled producer concurrently and records what they
// return.
type Runner struct {
	producers []Producer
	channels  ChannelLister
	recorder  SampleRecorder
	logger    providers.Logger
	metrics   providers.MetricsProviderInterface
}

func NewRunner(producers []Producer, channels ChannelLister, recorder SampleRecorder, logger providers.Logger, metrics providers.MetricsProviderInterface) *Runner {
	return &Runner{
		producers: producers,
		channels:  channels,
		recorder:  recorder,
		logger:    logger,
		metrics:   metrics,
	}
}

func (r *Runner) Enabled() bool {
	return len(r.producers) > 0
}

func (r *Runner) RunOnce(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, p := range r.producers {
		g.Go(func() error {
			return r.runProducer(gctx, p)
		})
	}
	return g.Wait()
}

func (r *Runner) runProducer(ctx context.Context, p Producer) error {
	platform := string(p.Platform())
	channels, err := r.channels.ListChannels(ctx, storage.ChannelFilter{Platform: p.Platform()})
	if err != nil {
		r.logger.Errorf(providers.TypeProducer, "Unable to list %s channels: %s", platform, err)
		return nil
	}
	if len(channels) == 0 {
		return nil
	}

	start := time.Now()
	samples := p.Poll(ctx, channels)
	r.metrics.ObservePollDuration(platform, time.Since(start))

	recorded := 0
	for _, s := range samples {
		if err := r.recorder.RecordSample(ctx, s); err != nil {
			r.logger.Errorf(providers.TypeProducer, "Unable to record %s sample for channel %s: %s", platform, s.ChannelID, err)
			continue
		}
		recorded++
	}
	r.logger.Debugf(providers.TypeProducer, "Polled %d %s channels, recorded %d samples", len(channels), platform, recorded)
	return nil
}

// NewProducers builds the producers switched on in config.
func NewProducers(conf *structures.Config, cache TTLCache, logger providers.Logger, metrics providers.MetricsProviderInterface) []Producer {
	var list []Producer
	if conf.Producers.Twitch.Enabled {
		list = append(list, NewTwitch(conf, cache, logger, metrics))
	}
	if conf.Producers.Youtube.Enabled {
		list = append(list, NewYoutube(conf, cache, logger, metrics))
	}
	if conf.Producers.Tiktok.Enabled {
		list = append(list, NewTiktok(conf, cache, logger, metrics))
	}
	for _, p := range list {
		logger.Infof(providers.TypeProducer, "Producer enabled: %s", p.Platform())
	}
	return list
}

// LoginResolver maps a Twitch login to its user id.
type LoginResolver interface {
	ResolveLogin(ctx context.Context, login string) (TwitchUser, error)
}

// NewTwitchResolver returns the Twitch producer as a login resolver when
// Twitch is configured, nil otherwise.
func NewTwitchResolver(producers []Producer) LoginResolver {
	for _, p := range producers {
		if tw, ok := p.(*Twitch); ok {
			return tw
		}
	}
	return nil
}
