package aggregation

import "streamwatch/internal/models"

// Scope restricts an aggregation to a set of channel ids. A nil Scope means
// every channel; an empty non-nil Scope matches nothing.
type Scope map[string]struct{}

func NewScope(channelIDs ...string) Scope {
	s := make(Scope, len(channelIDs))
	for _, id := range channelIDs {
		s[id] = struct{}{}
	}
	return s
}

func (s Scope) Contains(channelID string) bool {
	if s == nil {
		return true
	}
	_, ok := s[channelID]
	return ok
}

type Stats struct {
	TotalViewers     int `json:"total_viewers"`
	LiveChannelCount int `json:"live_channel_count"`
}

// Aggregate counts live channels and sums their viewers. Offline channels
// never contribute viewers, even when their last sample carries a stale
// nonzero count.
func Aggregate(latest map[string]models.Sample, scope Scope) Stats {
	var st Stats
	for id, s := range latest {
		if !scope.Contains(id) || !s.IsLive {
			continue
		}
		st.LiveChannelCount++
		st.TotalViewers += s.ViewersCount
	}
	return st
}
