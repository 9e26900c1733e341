package gpm

import (
	"strings"
	"testing"
)

type captureLogger struct {
	lines []string
}

func (c *captureLogger) Info(message string, module string) {
	c.lines = append(c.lines, module+": "+message)
}

func (c *captureLogger) Warn(message string, module string) {
	c.lines = append(c.lines, module+": "+message)
}

func (c *captureLogger) Error(message string) {
	c.lines = append(c.lines, message)
}

func TestTextDisplay(t *testing.T) {
	capture := &captureLogger{}
	SetLogger(capture)
	t.Cleanup(func() { SetLogger(nil) })

	w := &Waveform{
		WaveformInfo: WaveformInfo{ActualPoints: 3, FirstValidPoint: 1, XIncrement: 1e-9, ScaleFactor: 0.5},
		Channel:      6,
		Nickname:     "PMT",
		Polarity:     -1,
		Data:         []int8{100, 2, -4, 6, 100},
	}
	TextDisplay{}.Draw(3, []*Waveform{w, {Channel: 7}})

	if len(capture.lines) != 1 {
		t.Fatalf("expected one line, got %v", capture.lines)
	}
	line := capture.lines[0]
	if !strings.HasPrefix(line, "display: Event 3 PMT (6): 3 points") {
		t.Fatalf("unexpected line %q", line)
	}
	if !strings.Contains(line, "min -3 V") || !strings.Contains(line, "max 2 V") {
		t.Fatalf("unexpected voltages in %q", line)
	}
}
