package aggregation

import (
	"slices"
	"time"
)

// ChartSample is a sample already labelled with its channel's display name.
type ChartSample struct {
	ChannelName string
	Viewers     int
	Timestamp   time.Time
}

type ChartPoint struct {
	BucketStart  time.Time      `json:"bucket_start"`
	TotalViewers int            `json:"total_viewers"`
	PerChannel   map[string]int `json:"per_channel"`
}

type Chart struct {
	Points    []ChartPoint `json:"points"`
	PeakTotal int          `json:"peak_total"`
}

// WindowDuration converts a window expressed in (possibly fractional) hours.
func WindowDuration(windowHours float64) time.Duration {
	return time.Duration(windowHours * float64(time.Hour))
}

// FilterWindow keeps samples strictly newer than now minus the window. A
// sample sitting exactly on the boundary is dropped.
func FilterWindow(samples []ChartSample, windowHours float64, now time.Time) []ChartSample {
	cutoff := now.Add(-WindowDuration(windowHours))
	out := make([]ChartSample, 0, len(samples))
	for _, s := range samples {
		if s.Timestamp.After(cutoff) {
			out = append(out, s)
		}
	}
	return out
}

// Bucketize groups samples into whole-minute buckets. Within a bucket the
// last sample processed for a channel replaces earlier ones; totals are the
// sum of the per-channel values. Minutes without samples are not emitted.
func Bucketize(samples []ChartSample) []ChartPoint {
	buckets := make(map[int64]*ChartPoint)
	for _, s := range samples {
		key := s.Timestamp.Truncate(time.Minute).Unix()
		p, ok := buckets[key]
		if !ok {
			p = &ChartPoint{
				BucketStart: time.Unix(key, 0).UTC(),
				PerChannel:  make(map[string]int),
			}
			buckets[key] = p
		}
		p.PerChannel[s.ChannelName] = s.Viewers
	}

	points := make([]ChartPoint, 0, len(buckets))
	for _, p := range buckets {
		p.TotalViewers = sumValues(p.PerChannel)
		points = append(points, *p)
	}
	slices.SortFunc(points, func(a, b ChartPoint) int {
		return a.BucketStart.Compare(b.BucketStart)
	})
	return points
}

// BuildChart filters samples to the rolling window and buckets them.
func BuildChart(samples []ChartSample, windowHours float64, now time.Time) Chart {
	points := Bucketize(FilterWindow(samples, windowHours, now))
	return Chart{Points: points, PeakTotal: PeakTotal(points)}
}

// BuildRangeChart buckets samples that were already bounded by the caller.
func BuildRangeChart(samples []ChartSample) Chart {
	points := Bucketize(samples)
	return Chart{Points: points, PeakTotal: PeakTotal(points)}
}

func PeakTotal(points []ChartPoint) int {
	peak := 0
	for i, p := range points {
		if i == 0 || p.TotalViewers > peak {
			peak = p.TotalViewers
		}
	}
	return peak
}

// Densify returns a copy of points where every bucket carries every name in
// channelNames, missing ones set to zero. Buckets are never added.
func Densify(points []ChartPoint, channelNames []string) []ChartPoint {
	out := make([]ChartPoint, len(points))
	for i, p := range points {
		per := make(map[string]int, len(channelNames)+len(p.PerChannel))
		for _, name := range channelNames {
			per[name] = 0
		}
		for name, v := range p.PerChannel {
			per[name] = v
		}
		out[i] = ChartPoint{BucketStart: p.BucketStart, TotalViewers: p.TotalViewers, PerChannel: per}
	}
	return out
}

// WindowPeak is the highest single-sample viewer count inside the window,
// zero when the window is empty.
func WindowPeak(samples []ChartSample, windowHours float64, now time.Time) int {
	peak := 0
	for i, s := range FilterWindow(samples, windowHours, now) {
		if i == 0 || s.Viewers > peak {
			peak = s.Viewers
		}
	}
	return peak
}

func sumValues(m map[string]int) int {
	total := 0
	for _, v := range m {
		total += v
	}
	return total
}
