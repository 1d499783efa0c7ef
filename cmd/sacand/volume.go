package main

import (
	"fmt"
	"math"
	"strconv"
)

// ============================================================================
// Volume Mapping - raw mixer units <-> perceptual percent
// ============================================================================
// ALSA reports volume in device-native integer units. Loudness perception is
// closer to a power law than to those units, so the daemon shows and adjusts
// a cube-root-scaled percentage instead:
//
//   percent = (raw / max) ^ (1/3) * 100      (rounded to 2 decimals)
//   raw     = (percent / 100) ^ 3 * max      (truncated toward zero)
//
// Neither direction clamps. The mixer device owns range enforcement.
// ============================================================================

// DomainError reports an input for which a mapping is undefined
// (non-positive range maximum, zero channels).
type DomainError struct {
	Op     string
	Reason string
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

// RawToPercent converts a raw level into a perceptual percentage rounded to
// two decimal places.
func RawToPercent(raw, max int64) (float64, error) {
	if max <= 0 {
		return 0, &DomainError{Op: "raw to percent", Reason: fmt.Sprintf("range maximum must be > 0, got %d", max)}
	}
	pct := math.Cbrt(float64(raw)/float64(max)) * 100
	return roundPercent(pct), nil
}

// PercentToRaw converts a perceptual percentage back into raw units.
// Negative percentages produce negative raw values.
func PercentToRaw(percent float64, max int64) (int64, error) {
	if max <= 0 {
		return 0, &DomainError{Op: "percent to raw", Reason: fmt.Sprintf("range maximum must be > 0, got %d", max)}
	}
	frac := percent / 100
	return int64(frac * frac * frac * float64(max)), nil
}

// AverageVolume reduces per-channel raw levels to their integer mean.
func AverageVolume(levels []int64) (int64, error) {
	if len(levels) == 0 {
		return 0, &DomainError{Op: "average volume", Reason: "control has no active channels"}
	}
	var sum int64
	for _, v := range levels {
		sum += v
	}
	return sum / int64(len(levels)), nil
}

// roundPercent rounds to 2 decimal places. Dividing the rounded integer by
// 100 yields the float closest to the decimal value, so it formats cleanly.
func roundPercent(p float64) float64 {
	return math.Round(p*100) / 100
}

// clampPercent limits a target percentage to the displayable range.
func clampPercent(p float64) float64 {
	return math.Max(0, math.Min(100, p))
}

// formatPercent renders a percentage the way notifications show it: "84.37%".
func formatPercent(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64) + "%"
}
