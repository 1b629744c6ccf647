package aggregation

import "streamwatch/internal/models"

// Resolve reduces samples to the most recent one per channel.
//
// Input order does not matter except for ties: when two samples of the same
// channel carry the same timestamp, the one encountered last wins. Channels
// that never reported have no entry, which callers must keep distinct from a
// channel that reported offline.
func Resolve(samples []models.Sample) map[string]models.Sample {
	latest := make(map[string]models.Sample)
	for _, s := range samples {
		cur, ok := latest[s.ChannelID]
		if !ok || !s.Timestamp.Before(cur.Timestamp) {
			latest[s.ChannelID] = s
		}
	}
	return latest
}
