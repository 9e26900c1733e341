package gpm

const (
	// A polarity corrected sample at or beyond this magnitude is saturated.
	SaturationLevel = 127
	// Only channels above this number can reject a record.
	SaturationChannelThreshold = 5
)

// IsSaturated reports whether the buffer rejects the whole record: some valid
// sample, multiplied by the polarity, reaches ±SaturationLevel and the
// channel number is above SaturationChannelThreshold.
func IsSaturated(samples []int8, polarity int, channel uint8) bool {
	if channel <= SaturationChannelThreshold {
		return false
	}
	for _, sample := range samples {
		val := polarity * int(sample)
		if val >= SaturationLevel || val <= -SaturationLevel {
			return true
		}
	}
	return false
}

func (w *Waveform) Saturated() bool {
	return IsSaturated(w.Samples(), w.Polarity, w.Channel)
}
