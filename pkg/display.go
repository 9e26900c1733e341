package gpm

import (
	"fmt"
	"math"
)

// Display receives the buffers of every accepted record when the run has
// Draw enabled. It must not keep the waveforms after returning.
type Display interface {
	Draw(eventNumber int, waveforms []*Waveform)
}

// TextDisplay logs a one line summary per channel in volts.
type TextDisplay struct{}

func (TextDisplay) Draw(eventNumber int, waveforms []*Waveform) {
	for _, w := range waveforms {
		samples := w.Samples()
		if len(samples) == 0 {
			continue
		}
		lo, hi := math.MaxInt, math.MinInt
		for _, s := range samples {
			val := w.Polarity * int(s)
			lo = min(lo, val)
			hi = max(hi, val)
		}
		duration := w.XIncrement * float64(w.ActualPoints)
		message := fmt.Sprintf("Event %d %s (%d): %d points, %.3g s, min %.4g V, max %.4g V",
			eventNumber, w.Nickname, w.Channel, len(samples), duration,
			float64(lo)*w.ScaleFactor+w.ScaleOffset, float64(hi)*w.ScaleFactor+w.ScaleOffset)
		logger.Info(message, "display")
	}
}
