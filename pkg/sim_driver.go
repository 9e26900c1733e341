package gpm

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"strings"
	"time"
)

// ParseDriverOptions splits an IVI style option string
// ("Simulate=true, DriverSetup= Model=U5303A") into key/value pairs.
func ParseDriverOptions(options string) map[string]string {
	parsed := make(map[string]string)
	for _, item := range strings.Split(options, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(item), "=")
		if !found || key == "" {
			continue
		}
		parsed[strings.ToLower(strings.TrimSpace(key))] = strings.TrimSpace(value)
	}
	return parsed
}

func SimulationRequested(options string) bool {
	value, ok := ParseDriverOptions(options)["simulate"]
	return ok && strings.EqualFold(value, "true")
}

const (
	simFirstValidPoint = 8
	simMemoryPadding   = 32
)

// SimSession is an in-process digitizer producing noisy waveforms with
// occasional pulses. Some pulses are large enough to saturate the ADC.
type SimSession struct {
	resource       string
	rng            *rand.Rand
	opened         time.Time
	channels       map[string]simChannel
	recordSize     int64
	sampleRate     float64
	triggerDelay   float64
	triggerSource  string
	pulseProb      float64
	saturationProb float64
	noise          float64
	armed          bool
	ready          bool
	closed         bool
}

type simChannel struct {
	rng    float64
	offset float64
}

// OpenSimulated opens a simulated session. Besides Simulate=true the option
// string accepts SimSeed, SimPulse, SimSaturation and SimNoise.
func OpenSimulated(resource string, options string) (Session, error) {
	parsed := ParseDriverOptions(options)
	s := &SimSession{
		resource:       resource,
		opened:         time.Now(),
		channels:       make(map[string]simChannel),
		pulseProb:      0.5,
		saturationProb: 0.01,
		noise:          2,
	}
	seed := time.Now().UnixNano()
	var err error
	if v, ok := parsed["simseed"]; ok {
		if seed, err = strconv.ParseInt(v, 10, 64); err != nil {
			return nil, DriverError("InitWithOptions", -1, fmt.Sprintf("invalid SimSeed %q", v))
		}
	}
	if v, ok := parsed["simpulse"]; ok {
		if s.pulseProb, err = strconv.ParseFloat(v, 64); err != nil {
			return nil, DriverError("InitWithOptions", -1, fmt.Sprintf("invalid SimPulse %q", v))
		}
	}
	if v, ok := parsed["simsaturation"]; ok {
		if s.saturationProb, err = strconv.ParseFloat(v, 64); err != nil {
			return nil, DriverError("InitWithOptions", -1, fmt.Sprintf("invalid SimSaturation %q", v))
		}
	}
	if v, ok := parsed["simnoise"]; ok {
		if s.noise, err = strconv.ParseFloat(v, 64); err != nil {
			return nil, DriverError("InitWithOptions", -1, fmt.Sprintf("invalid SimNoise %q", v))
		}
	}
	s.rng = rand.New(rand.NewSource(seed))
	return s, nil
}

func (s *SimSession) alive(op string) error {
	if s.closed {
		return DriverError(op, -1, "session closed")
	}
	return nil
}

func (s *SimSession) Close() error {
	if s.closed {
		return errors.New("simulated session already closed")
	}
	s.closed = true
	return nil
}

func (s *SimSession) GetAttributeString(channel string, attr Attribute) (string, error) {
	if err := s.alive("GetAttributeViString"); err != nil {
		return "", err
	}
	switch attr {
	case AttrSpecificDriverPrefix:
		return "AgMD2", nil
	case AttrSpecificDriverRevision:
		return "simulated", nil
	case AttrSpecificDriverVendor:
		return "next-exp", nil
	case AttrSpecificDriverDescription:
		return "Simulated 8 channel digitizer", nil
	case AttrInstrumentModel:
		return "SIM8", nil
	case AttrFirmwareRevision:
		return "0.0", nil
	case AttrSerialNumber:
		return "SIM-" + s.resource, nil
	case AttrInstrumentOptions:
		return "", nil
	case AttrActiveTriggerSource:
		return s.triggerSource, nil
	}
	return "", DriverError("GetAttributeViString", -2, fmt.Sprintf("unknown attribute %s", attr))
}

func (s *SimSession) GetAttributeInt32(channel string, attr Attribute) (int32, error) {
	if err := s.alive("GetAttributeViInt32"); err != nil {
		return 0, err
	}
	switch attr {
	case AttrChannelCount:
		return NumChannels, nil
	case AttrADCBits:
		return 8, nil
	}
	return 0, DriverError("GetAttributeViInt32", -2, fmt.Sprintf("unknown attribute %s", attr))
}

func (s *SimSession) SetAttributeString(channel string, attr Attribute, value string) error {
	if err := s.alive("SetAttributeViString"); err != nil {
		return err
	}
	if attr == AttrActiveTriggerSource {
		s.triggerSource = value
	}
	return nil
}

func (s *SimSession) SetAttributeInt32(channel string, attr Attribute, value int32) error {
	return s.alive("SetAttributeViInt32")
}

func (s *SimSession) SetAttributeInt64(channel string, attr Attribute, value int64) error {
	if err := s.alive("SetAttributeViInt64"); err != nil {
		return err
	}
	if attr == AttrRecordSize {
		if value <= 0 {
			return DriverError("SetAttributeViInt64", -3, fmt.Sprintf("invalid record size %d", value))
		}
		s.recordSize = value
	}
	return nil
}

func (s *SimSession) SetAttributeReal64(channel string, attr Attribute, value float64) error {
	if err := s.alive("SetAttributeViReal64"); err != nil {
		return err
	}
	switch attr {
	case AttrSampleRate:
		if value <= 0 {
			return DriverError("SetAttributeViReal64", -3, fmt.Sprintf("invalid sample rate %g", value))
		}
		s.sampleRate = value
	case AttrTriggerDelay:
		s.triggerDelay = value
	}
	return nil
}

func (s *SimSession) ConfigureChannel(channel string, rng float64, offset float64, coupling Coupling, enabled bool) error {
	if err := s.alive("ConfigureChannel"); err != nil {
		return err
	}
	if !simValidChannel(channel) {
		return DriverError("ConfigureChannel", -4, fmt.Sprintf("unknown channel %q", channel))
	}
	if rng <= 0 {
		return DriverError("ConfigureChannel", -3, fmt.Sprintf("invalid range %g", rng))
	}
	if enabled {
		s.channels[channel] = simChannel{rng: rng, offset: offset}
	} else {
		delete(s.channels, channel)
	}
	return nil
}

func (s *SimSession) ConfigureEdgeTriggerSource(source string, level float64, slope TriggerSlope) error {
	if err := s.alive("ConfigureEdgeTriggerSource"); err != nil {
		return err
	}
	if !slope.Valid() {
		return DriverError("ConfigureEdgeTriggerSource", -3, fmt.Sprintf("invalid slope %d", slope))
	}
	return nil
}

func (s *SimSession) SelfCalibrate() error {
	return s.alive("SelfCalibrate")
}

func (s *SimSession) InitiateAcquisition() error {
	if err := s.alive("InitiateAcquisition"); err != nil {
		return err
	}
	s.armed = true
	s.ready = false
	return nil
}

func (s *SimSession) WaitForAcquisitionComplete(timeout time.Duration) error {
	if err := s.alive("WaitForAcquisitionComplete"); err != nil {
		return err
	}
	if !s.armed {
		return DriverError("WaitForAcquisitionComplete", -5, "no acquisition in progress")
	}
	s.armed = false
	s.ready = true
	return nil
}

func (s *SimSession) QueryMinWaveformMemory(dataWidth int32, numRecords int64, offsetWithinRecord int64, numPointsPerRecord int64) (int64, error) {
	if err := s.alive("QueryMinWaveformMemory"); err != nil {
		return 0, err
	}
	if dataWidth != 8 {
		return 0, DriverError("QueryMinWaveformMemory", -3, fmt.Sprintf("unsupported data width %d", dataWidth))
	}
	return numRecords * (numPointsPerRecord + simMemoryPadding), nil
}

func (s *SimSession) FetchWaveformInt8(channel string, data []int8) (WaveformInfo, error) {
	if err := s.alive("FetchWaveformInt8"); err != nil {
		return WaveformInfo{}, err
	}
	if !s.ready {
		return WaveformInfo{}, DriverError("FetchWaveformInt8", -5, "no completed acquisition")
	}
	ch, ok := s.channels[channel]
	if !ok {
		return WaveformInfo{}, DriverError("FetchWaveformInt8", -4, fmt.Sprintf("channel %q not enabled", channel))
	}
	points := s.recordSize
	if avail := int64(len(data)) - simFirstValidPoint; points > avail {
		points = avail
	}
	if points <= 0 {
		return WaveformInfo{}, DriverError("FetchWaveformInt8", -6, fmt.Sprintf("buffer of %d bytes too small", len(data)))
	}

	for i := range data {
		data[i] = clampInt8(s.rng.NormFloat64() * s.noise)
	}
	if s.rng.Float64() < s.pulseProb {
		amplitude := 20 + s.rng.Float64()*80
		if s.rng.Float64() < s.saturationProb {
			amplitude = 200
		}
		start := simFirstValidPoint + points/4
		width := max(points/20, 1)
		for i := int64(0); i < points-points/4; i++ {
			// fast rise, exponential tail
			shape := math.Exp(-float64(i) / float64(width))
			idx := start + i
			if idx >= int64(len(data)) {
				break
			}
			data[idx] = clampInt8(float64(data[idx]) - amplitude*shape)
		}
	}

	elapsed := time.Since(s.opened)
	seconds := math.Floor(elapsed.Seconds())
	xinc := 1.0
	if s.sampleRate > 0 {
		xinc = 1 / s.sampleRate
	}
	return WaveformInfo{
		ActualPoints:         points,
		FirstValidPoint:      simFirstValidPoint,
		InitialXOffset:       -s.triggerDelay,
		InitialXTimeSeconds:  seconds,
		InitialXTimeFraction: elapsed.Seconds() - seconds,
		XIncrement:           xinc,
		ScaleFactor:          ch.rng / 256,
		ScaleOffset:          ch.offset,
	}, nil
}

func simValidChannel(channel string) bool {
	number, ok := strings.CutPrefix(channel, "Channel")
	if !ok {
		return false
	}
	n, err := strconv.Atoi(number)
	return err == nil && n >= 1 && n <= NumChannels
}

func clampInt8(v float64) int8 {
	v = math.Round(v)
	if v > math.MaxInt8 {
		return math.MaxInt8
	}
	if v < math.MinInt8 {
		return math.MinInt8
	}
	return int8(v)
}
