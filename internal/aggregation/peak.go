package aggregation

import (
	"streamwatch/internal/models"
	"time"
)

// UpdatePeak applies one candidate observation to a peak. The timestamp moves
// only when the candidate is strictly greater, so re-applying the same
// observation is a no-op.
func UpdatePeak(current models.Peak, viewers int, ts time.Time) (models.Peak, bool) {
	if viewers <= current.Viewers {
		return current, false
	}
	at := ts
	return models.Peak{Viewers: viewers, Timestamp: &at}, true
}

// Observe folds a sample into the channel's stored peak.
func Observe(channel models.Channel, sample models.Sample) (models.Channel, bool) {
	next, changed := UpdatePeak(channel.Peak(), sample.ViewersCount, sample.Timestamp)
	if !changed {
		return channel, false
	}
	return channel.WithPeak(next), true
}
