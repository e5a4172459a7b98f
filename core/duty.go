package core

import "math"

// Polarity describes how the compare value maps to output high time
type Polarity uint8

const (
	// Normal: high time grows with the compare value
	Normal Polarity = iota
	// Inverted: high time shrinks as the compare value grows
	Inverted
)

func (p Polarity) String() string {
	if p == Inverted {
		return "inverted"
	}
	return "normal"
}

// dutyScale is the fixed-point resolution: thousandths of a percent
const dutyScale = 100 * 1000

// ClampPercent limits percent to [0,100]. NaN is treated as 0.
func ClampPercent(percent float64) float64 {
	switch {
	case math.IsNaN(percent), percent <= 0:
		return 0
	case percent >= 100:
		return 100
	}
	return percent
}

// milliPercent converts a clamped percent to the fixed-point scale
func milliPercent(percent float64) uint64 {
	return uint64(math.Round(ClampPercent(percent) * 1000))
}

// DutyTicks converts a duty percentage into a compare register value.
// 0% is always fully off and 100% always fully on, for either polarity.
func DutyTicks(percent float64, period uint32, pol Polarity) uint32 {
	return dutyTicksMilli(milliPercent(percent), period, pol)
}

func dutyTicksMilli(milli uint64, period uint32, pol Polarity) uint32 {
	if milli > dutyScale {
		milli = dutyScale
	}
	high := uint32(uint64(period) * milli / dutyScale)
	if pol == Inverted {
		return period - high
	}
	return high
}

// Percent converts a compare value back into a duty percentage
func Percent(ticks, period uint32, pol Polarity) float64 {
	if period == 0 {
		return 0
	}
	if ticks > period {
		ticks = period
	}
	if pol == Inverted {
		ticks = period - ticks
	}
	return float64(ticks) * 100 / float64(period)
}
