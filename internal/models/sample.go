package models

import "time"

// Sample is one immutable observation of a channel. Producers conventionally
// report zero viewers when offline, but nothing downstream relies on it.
type Sample struct {
	ChannelID    string    `json:"channel_id"`
	ViewersCount int       `json:"viewers_count"`
	IsLive       bool      `json:"is_live"`
	Timestamp    time.Time `json:"timestamp"`
}

func OfflineSample(channelID string, at time.Time) Sample {
	return Sample{ChannelID: channelID, Timestamp: at}
}
