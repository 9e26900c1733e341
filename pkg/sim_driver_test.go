package gpm

import (
	"context"
	"testing"
)

func TestParseDriverOptions(t *testing.T) {
	options := ParseDriverOptions("Simulate=true, DriverSetup= Model=U5303A, bogus")
	if options["simulate"] != "true" {
		t.Fatalf("expected simulate=true, got %q", options["simulate"])
	}
	if options["driversetup"] != "Model=U5303A" {
		t.Fatalf("unexpected driver setup %q", options["driversetup"])
	}
	if _, ok := options["bogus"]; ok {
		t.Fatalf("items without value must be skipped")
	}
	if !SimulationRequested("simulate=TRUE") || SimulationRequested("Simulate=false") || SimulationRequested("") {
		t.Fatalf("unexpected simulation detection")
	}
}

func TestOpenSimulatedRejectsBadOptions(t *testing.T) {
	if _, err := OpenSimulated("PXI0", "SimSeed=abc"); err == nil {
		t.Fatalf("expected error for invalid seed")
	}
}

func TestSimSessionAcquire(t *testing.T) {
	s, err := OpenSimulated("PXI0", "Simulate=true, SimSeed=1, SimPulse=1, SimSaturation=1")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.ConfigureChannel("Channel9", 1, 0, CouplingDC, true); err == nil {
		t.Fatalf("expected error for unknown channel")
	}
	if err := s.ConfigureChannel("Channel6", 1, 0, CouplingDC, true); err != nil {
		t.Fatalf("configure: %v", err)
	}
	if err := s.SetAttributeInt64("", AttrRecordSize, 100); err != nil {
		t.Fatalf("record size: %v", err)
	}
	if err := s.SetAttributeReal64("", AttrSampleRate, 1e9); err != nil {
		t.Fatalf("sample rate: %v", err)
	}

	data := make([]int8, 200)
	if _, err := s.FetchWaveformInt8("Channel6", data); err == nil {
		t.Fatalf("fetch before an acquisition must fail")
	}
	if err := s.InitiateAcquisition(); err != nil {
		t.Fatalf("initiate: %v", err)
	}
	if err := s.WaitForAcquisitionComplete(0); err != nil {
		t.Fatalf("wait: %v", err)
	}
	memsize, err := s.QueryMinWaveformMemory(8, 1, 0, 100)
	if err != nil || memsize < 100 {
		t.Fatalf("unexpected memory size %d (%v)", memsize, err)
	}
	if _, err := s.FetchWaveformInt8("Channel5", data); err == nil {
		t.Fatalf("expected error for disabled channel")
	}

	data = make([]int8, memsize)
	info, err := s.FetchWaveformInt8("Channel6", data)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if info.ActualPoints != 100 || info.XIncrement != 1e-9 {
		t.Fatalf("unexpected waveform info %+v", info)
	}
	w := &Waveform{WaveformInfo: info, Channel: 6, Polarity: -1, Data: data}
	if !w.Saturated() {
		t.Fatalf("expected a saturating pulse")
	}

	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := s.Close(); err == nil {
		t.Fatalf("second close must fail")
	}
	if err := s.InitiateAcquisition(); err == nil {
		t.Fatalf("closed session must refuse calls")
	}
}

func TestAcquisitionWithSimulatedDriver(t *testing.T) {
	store := testParams(t, 5, "global DriverOptions Simulate=true, SimSeed=3, SimSaturation=0\n")
	acq := NewAcquisition(store, OpenSimulated, testOptions(t.TempDir()))

	summary, err := acq.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.Accepted != 5 || summary.Blocks != 10 {
		t.Fatalf("unexpected summary %+v", summary)
	}
}
