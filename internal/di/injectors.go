//go:build wireinject
// +build wireinject

package di

import (
	wire "github.com/google/wire"
	"streamwatch/internal"
	"streamwatch/internal/controllers"
	"streamwatch/internal/producers"
	"streamwatch/internal/providers"
	"streamwatch/internal/services"
	"streamwatch/internal/statistic"
	"streamwatch/internal/statistic/interfaces"
	"streamwatch/internal/storage"
	"streamwatch/internal/structures"
)

func InitApp(cfg *structures.CliFlags) (*internal.App, error) {

	wire.Build(
		providers.NewConfigProvider,
		providers.NewLogProvider,
		providers.NewMetricsProvider,
		providers.NewInstrumentedCacheProvider,
		providers.NewTTLCacheProvider,
		wire.Bind(new(producers.TTLCache), new(providers.TTLCacheProviderInterface)),

		storage.NewStore,
		wire.Bind(new(producers.ChannelLister), new(storage.Store)),

		services.NewPeakTracker,
		wire.Bind(new(services.PeakTrackerInterface), new(*services.PeakTracker)),

		producers.NewProducers,
		producers.NewTwitchResolver,

		services.NewMonitorService,
		wire.Bind(new(services.MonitorServiceInterface), new(*services.MonitorService)),
		wire.Bind(new(producers.SampleRecorder), new(*services.MonitorService)),
		wire.Bind(new(statistic.StatsSource), new(*services.MonitorService)),
		wire.Bind(new(controllers.ChannelCounter), new(*services.MonitorService)),

		producers.NewRunner,
		wire.Bind(new(producers.RunnerInterface), new(*producers.Runner)),

		statistic.NewZstdCompressor,
		statistic.NewScheduler,
		wire.Bind(new(controllers.Poller), new(interfaces.SchedulerInterface)),
		controllers.NewApiController,
		controllers.NewPollController,
		controllers.NewHealthController,
		internal.InitRoutes,
		internal.NewApp,
	)

	return nil, nil
}
