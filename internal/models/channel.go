package models

import "time"

// Group is a named collection of channels.
type Group struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Channel is one monitored stream. PeakViewersCount and PeakViewersTimestamp
// only ever move forward.
type Channel struct {
	ID                   string     `json:"id"`
	GroupID              string     `json:"group_id"`
	Platform             Platform   `json:"platform"`
	PlatformChannelID    string     `json:"platform_channel_id"`
	DisplayName          string     `json:"display_name"`
	PeakViewersCount     int        `json:"peak_viewers_count"`
	PeakViewersTimestamp *time.Time `json:"peak_viewers_timestamp"`
	CreatedAt            time.Time  `json:"created_at"`
}

type Peak struct {
	Viewers   int
	Timestamp *time.Time
}

func (c Channel) Peak() Peak {
	return Peak{Viewers: c.PeakViewersCount, Timestamp: c.PeakViewersTimestamp}
}

func (c Channel) WithPeak(p Peak) Channel {
	c.PeakViewersCount = p.Viewers
	c.PeakViewersTimestamp = p.Timestamp
	return c
}
