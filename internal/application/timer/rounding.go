package timer

import "github.com/GwydionBr/life-manager-sub000/internal/domain"

// RoundDuration converts raw tracked seconds into the billed duration for
// the given settings. Pure and deterministic.
//
// In fragment mode every fragment the clock has entered counts as a whole
// fragment: a block is billed once any part of it was used. Otherwise the
// value is rounded to the nearest multiple of the rounding interval per the
// configured direction (nearest rounds half up). An interval <= 0 returns
// the input unchanged.
func RoundDuration(activeSeconds int64, s domain.RoundingSettings) int64 {
	if activeSeconds <= 0 {
		return 0
	}
	if s.InFragments {
		interval := int64(s.FragmentInterval) * 60
		if interval <= 0 {
			return activeSeconds
		}
		fragments := activeSeconds / interval
		if activeSeconds%interval != 0 {
			fragments++
		}
		return fragments * interval
	}
	interval := int64(s.Interval) * 60
	if interval <= 0 {
		return activeSeconds
	}
	switch s.Direction {
	case domain.RoundDown:
		return activeSeconds / interval * interval
	case domain.RoundNearest:
		return (activeSeconds + interval/2) / interval * interval
	default:
		if rem := activeSeconds % interval; rem != 0 {
			return activeSeconds + interval - rem
		}
		return activeSeconds
	}
}
