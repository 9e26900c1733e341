package gpm

import (
	"time"
)

// Attribute names a scalar driver attribute. Hardware bindings map them to
// their native identifiers.
type Attribute string

const (
	AttrSpecificDriverPrefix      Attribute = "SPECIFIC_DRIVER_PREFIX"
	AttrSpecificDriverRevision    Attribute = "SPECIFIC_DRIVER_REVISION"
	AttrSpecificDriverVendor      Attribute = "SPECIFIC_DRIVER_VENDOR"
	AttrSpecificDriverDescription Attribute = "SPECIFIC_DRIVER_DESCRIPTION"
	AttrInstrumentModel           Attribute = "INSTRUMENT_MODEL"
	AttrFirmwareRevision          Attribute = "INSTRUMENT_FIRMWARE_REVISION"
	AttrSerialNumber              Attribute = "INSTRUMENT_INFO_SERIAL_NUMBER_STRING"
	AttrInstrumentOptions         Attribute = "INSTRUMENT_INFO_OPTIONS"
	AttrChannelCount              Attribute = "CHANNEL_COUNT"
	AttrADCBits                   Attribute = "INSTRUMENT_INFO_NBR_ADC_BITS"
	AttrNumRecordsToAcquire       Attribute = "NUM_RECORDS_TO_ACQUIRE"
	AttrRecordSize                Attribute = "RECORD_SIZE"
	AttrSampleRate                Attribute = "SAMPLE_RATE"
	AttrTriggerType               Attribute = "TRIGGER_TYPE"
	AttrTriggerCoupling           Attribute = "TRIGGER_COUPLING"
	AttrActiveTriggerSource       Attribute = "ACTIVE_TRIGGER_SOURCE"
	AttrTriggerDelay              Attribute = "TRIGGER_DELAY"
)

type Coupling int32

const (
	CouplingAC Coupling = 0
	CouplingDC Coupling = 1
)

func (c Coupling) String() string {
	if c == CouplingDC {
		return "DC"
	}
	return "AC"
}

const (
	TriggerTypeEdge     int32 = 1
	TriggerCouplingDC   int32 = 1
	waveformDataWidth   int32 = 8
	recordsPerIteration int64 = 1
)

// Session is an open digitizer session. Every call returns nil, a
// *DriverStatus, or another error which is treated as fatal.
// A warning status means the call took effect.
type Session interface {
	Close() error

	GetAttributeString(channel string, attr Attribute) (string, error)
	GetAttributeInt32(channel string, attr Attribute) (int32, error)
	SetAttributeString(channel string, attr Attribute, value string) error
	SetAttributeInt32(channel string, attr Attribute, value int32) error
	SetAttributeInt64(channel string, attr Attribute, value int64) error
	SetAttributeReal64(channel string, attr Attribute, value float64) error

	ConfigureChannel(channel string, rng float64, offset float64, coupling Coupling, enabled bool) error
	ConfigureEdgeTriggerSource(source string, level float64, slope TriggerSlope) error
	SelfCalibrate() error

	InitiateAcquisition() error
	// WaitForAcquisitionComplete blocks for at most timeout. Running out of
	// time is reported as a fatal status wrapping ErrAcquisitionTimeout.
	WaitForAcquisitionComplete(timeout time.Duration) error

	QueryMinWaveformMemory(dataWidth int32, numRecords int64, offsetWithinRecord int64, numPointsPerRecord int64) (int64, error)
	// FetchWaveformInt8 fills data in place and returns the waveform
	// metadata describing it.
	FetchWaveformInt8(channel string, data []int8) (WaveformInfo, error)
}

// OpenFunc opens a session on the resource with the given option string.
type OpenFunc func(resource string, options string) (Session, error)

// WaveformInfo is the metadata the driver returns with each fetch.
type WaveformInfo struct {
	ActualPoints         int64
	FirstValidPoint      int64
	InitialXOffset       float64
	InitialXTimeSeconds  float64
	InitialXTimeFraction float64
	XIncrement           float64
	ScaleFactor          float64
	ScaleOffset          float64
}

// Waveform is one fetched channel buffer. It belongs to a single loop
// iteration and is dropped at its end.
type Waveform struct {
	WaveformInfo
	Channel  uint8
	Nickname string
	Polarity int
	MemSize  int64
	Data     []int8
}

// Samples returns the valid points of the buffer.
func (w *Waveform) Samples() []int8 {
	first := w.FirstValidPoint
	last := first + w.ActualPoints
	if first < 0 {
		first = 0
	}
	if last > int64(len(w.Data)) {
		last = int64(len(w.Data))
	}
	if first >= last {
		return nil
	}
	return w.Data[first:last]
}

// Volts converts a raw sample into volts with the fetch scale.
func (w *Waveform) Volts(sample int8) float64 {
	return float64(sample)*w.ScaleFactor + w.ScaleOffset
}
