package statistic

import (
	"context"
	"errors"
	"streamwatch/internal/aggregation"
	"streamwatch/internal/producers"
	"streamwatch/internal/providers"
	"streamwatch/internal/statistic/interfaces"
	"streamwatch/internal/storage"
	"streamwatch/internal/structures"
	"sync"
	"time"

	"github.com/roylee0704/gron"
	"go.uber.org/atomic"
)

var ErrPollInProgress = errors.New("poll round already in progress")

type StatsSource interface {
	LiveStats(ctx context.Context) (aggregation.Stats, error)
}

// Scheduler drives the background work: polling producers, refreshing the
// live gauges and, for in-memory storage, persisting snapshots.
type Scheduler struct {
	config      *structures.Config
	logger      providers.Logger
	runner      producers.RunnerInterface
	stats       StatsSource
	fileManager *FileManager
	metrics     providers.MetricsProviderInterface
	cron        *gron.Cron
	opsMu       sync.Mutex
	jobsMu      sync.Mutex
	stopped     bool
	polling     atomic.Bool
	cancel      context.CancelFunc
	wg          sync.WaitGroup
}

func (s *Scheduler) Init() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.cron = gron.New()
	s.jobsMu.Lock()
	s.stopped = false
	s.jobsMu.Unlock()

	if s.fileManager != nil && s.config.Persistence.SaveInterval > 0 {
		s.cron.AddFunc(gron.Every(s.config.Persistence.SaveInterval), s.track(func() {
			if err := s.Persist(); err == nil {
				s.logger.Infof(providers.TypeApp, "Persisted data to file %s", s.config.Persistence.FilePath)
			}
		}))
	}

	if s.runner.Enabled() && s.config.Producers.Interval > 0 {
		pollJob := s.track(func() {
			err := s.poll(ctx)
			switch {
			case errors.Is(err, ErrPollInProgress):
				s.logger.Warnf(providers.TypeProducer, "Skipping poll round: %s", err)
			case err != nil:
				s.logger.Errorf(providers.TypeProducer, "Poll round failed: %s", err)
			}
		})
		s.cron.AddFunc(gron.Every(s.config.Producers.Interval), pollJob)
		// first round without waiting a full interval
		go pollJob()
	}

	s.cron.Start()
}

// track registers every run of job with the wait group so Stop can wait for
// rounds already started. Runs fired after Stop are dropped.
func (s *Scheduler) track(job func()) func() {
	return func() {
		s.jobsMu.Lock()
		if s.stopped {
			s.jobsMu.Unlock()
			return
		}
		s.wg.Add(1)
		s.jobsMu.Unlock()
		defer s.wg.Done()
		job()
	}
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
	s.jobsMu.Lock()
	s.stopped = true
	s.jobsMu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Scheduler) Restore() error {
	if s.fileManager == nil {
		return nil
	}
	err := s.fileManager.LoadFromFile(s.config.Persistence.FilePath)
	if err != nil {
		return err
	}
	return nil
}

func (s *Scheduler) Persist() error {
	if s.fileManager == nil {
		return nil
	}
	s.opsMu.Lock()
	defer s.opsMu.Unlock()

	start := time.Now()
	err := s.fileManager.SaveToFile(s.config.Persistence.FilePath)
	s.metrics.ObservePersistenceDuration(time.Since(start))
	if err != nil {
		s.logger.Errorf(providers.TypeApp, "Error while persisting data: %s", err)
		return err
	}
	return nil
}

// Close releases the snapshot compressor. Call it after the final Persist.
func (s *Scheduler) Close() {
	if s.fileManager != nil {
		s.fileManager.Close()
	}
}

// PollNow runs one producer round outside the schedule. It returns
// ErrPollInProgress when a round is already running.
func (s *Scheduler) PollNow(ctx context.Context) error {
	return s.poll(ctx)
}

func (s *Scheduler) poll(ctx context.Context) error {
	if !s.polling.CompareAndSwap(false, true) {
		return ErrPollInProgress
	}
	defer s.polling.Store(false)

	timeout := s.config.Producers.Interval
	if timeout <= 0 {
		timeout = time.Minute
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := s.runner.RunOnce(ctx); err != nil {
		return err
	}
	s.refreshGauges(ctx)
	return nil
}

func (s *Scheduler) refreshGauges(ctx context.Context) {
	st, err := s.stats.LiveStats(ctx)
	if err != nil {
		s.logger.Warnf(providers.TypeApp, "Unable to refresh live gauges: %s", err)
		return
	}
	s.metrics.SetLiveChannels(st.LiveChannelCount)
	s.metrics.SetTotalViewers(st.TotalViewers)
}

// NewScheduler wires snapshot persistence only when the store keeps its state
// in memory.
func NewScheduler(config *structures.Config, logger providers.Logger, store storage.Store, compressor interfaces.CompressorInterface, runner producers.RunnerInterface, stats StatsSource, metrics providers.MetricsProviderInterface) interfaces.SchedulerInterface {
	s := &Scheduler{
		config:  config,
		logger:  logger,
		runner:  runner,
		stats:   stats,
		metrics: metrics,
	}
	if snap, ok := store.(storage.Snapshotter); ok {
		s.fileManager = NewFileManager(compressor, snap, logger)
	}
	return s
}
