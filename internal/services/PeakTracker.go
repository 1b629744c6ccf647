package services

import (
	"context"
	"errors"
	"streamwatch/internal/aggregation"
	"streamwatch/internal/models"
	"streamwatch/internal/providers"
	"streamwatch/internal/storage"
)

const peakRetries = 3

type PeakTrackerInterface interface {
	Track(ctx context.Context, sample models.Sample) (bool, error)
}

// PeakTracker raises a channel's stored peak when a sample beats it.
// Writers in this process are serialized per channel; the store's
// conditional update guards against writers elsewhere.
type PeakTracker struct {
	store   storage.ChannelStore
	locks   *keyedMutex
	logger  providers.Logger
	metrics providers.MetricsProviderInterface
}

func NewPeakTracker(store storage.Store, logger providers.Logger, metrics providers.MetricsProviderInterface) *PeakTracker {
	return &PeakTracker{
		store:   store,
		locks:   newKeyedMutex(),
		logger:  logger,
		metrics: metrics,
	}
}

// Track reports whether the sample raised the stored peak. Samples of
// unknown channels are ignored.
func (pt *PeakTracker) Track(ctx context.Context, sample models.Sample) (bool, error) {
	unlock := pt.locks.Lock(sample.ChannelID)
	defer unlock()

	for attempt := 0; attempt <= peakRetries; attempt++ {
		ch, err := pt.store.GetChannel(ctx, sample.ChannelID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return false, nil
			}
			return false, err
		}

		updated, changed := aggregation.Observe(ch, sample)
		if !changed {
			return false, nil
		}

		applied, err := pt.store.UpdateChannelPeak(ctx, ch.ID, updated.PeakViewersCount, *updated.PeakViewersTimestamp)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return false, nil
			}
			return false, err
		}
		if applied {
			pt.metrics.IncPeakUpdates()
			pt.logger.Debugf(providers.TypeApp, "New peak for channel %s: %d viewers", ch.ID, updated.PeakViewersCount)
			return true, nil
		}
	}

	pt.logger.Warnf(providers.TypeApp, "Peak update for channel %s kept losing to concurrent writers", sample.ChannelID)
	return false, nil
}
