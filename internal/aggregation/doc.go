// Package aggregation derives dashboard state from a snapshot of viewer
// samples: the latest sample per channel, live/viewer rollups, peak tracking
// and minute-bucketed chart series.
//
// Every function here is pure and total. Empty input yields empty output,
// and samples are taken at face value (negative or inconsistent counts are
// neither rejected nor corrected).
package aggregation
