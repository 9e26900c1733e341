package gpm

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

const globalScope = "global"

// ConfigStore owns the run parameters and the eight channel slots read from
// a params file. It is not modified once the acquisition starts.
type ConfigStore struct {
	Run      RunConfig
	channels [NumChannels]ChannelConfig
}

func NewConfigStore() *ConfigStore {
	return &ConfigStore{Run: NewRunConfig()}
}

func LoadParametersFile(filename string) (*ConfigStore, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, &ErrOpenFile{Filename: filename, Err: err}
	}
	defer file.Close()
	return LoadParameters(file)
}

// LoadParameters reads "<scope> <key> <value>" lines. Unknown scopes and
// keys are ignored; malformed values of known keys are an error.
func LoadParameters(r io.Reader) (*ConfigStore, error) {
	store := NewConfigStore()
	scanner := bufio.NewScanner(r)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		text := scanner.Text()
		fields := strings.Fields(text)
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		if len(fields) < 3 {
			if configuration.Verbosity > 1 {
				message := fmt.Sprintf("Ignoring params line %d: %q", lineNumber, text)
				logger.Info(message, "params")
			}
			continue
		}
		scope, key := fields[0], fields[1]
		value := strings.Join(fields[2:], " ")

		var err error
		if scope == globalScope {
			err = store.setGlobal(key, value)
		} else {
			err = store.setChannel(scope, key, value)
		}
		if err != nil {
			return nil, &ErrParseParams{Line: lineNumber, Text: text, Err: err}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading params: %w", err)
	}
	return store, nil
}

func (s *ConfigStore) setGlobal(key string, value string) error {
	var err error
	r := &s.Run
	switch key {
	case "Draw":
		setBool(&r.Draw, value)
	case "ResourceName":
		r.ResourceName = value
	case "DriverOptions":
		r.DriverOptions = value
	case "NumRecords":
		r.NumRecords, err = strconv.ParseInt(value, 10, 64)
	case "RecordSize":
		r.RecordSize, err = strconv.ParseInt(value, 10, 64)
	case "SampleRate":
		r.SampleRate, err = strconv.ParseFloat(value, 64)
	case "TimeoutInMS":
		var v int64
		v, err = strconv.ParseInt(value, 10, 32)
		r.TimeoutInMS = int32(v)
	case "TriggerDelay":
		r.TriggerDelay, err = strconv.ParseFloat(value, 64)
	case "EdgeDetectThreshold":
		r.EdgeDetectThreshold, err = strconv.ParseInt(value, 10, 64)
	case "BaselineCalcFraction":
		r.BaselineCalcFraction, err = strconv.ParseFloat(value, 64)
	case "TriggerSigmaThreshold":
		r.TriggerSigmaThreshold, err = strconv.ParseFloat(value, 64)
	}
	return err
}

func (s *ConfigStore) setChannel(scope string, key string, value string) error {
	number, err := strconv.Atoi(scope)
	if err != nil || number < 1 || number > NumChannels {
		if configuration.Verbosity > 1 {
			message := fmt.Sprintf("Ignoring unknown scope %q", scope)
			logger.Info(message, "params")
		}
		return nil
	}
	cp := s.slot(uint8(number))

	switch key {
	case "UseChannel":
		setBool(&cp.UseChannel, value)
	case "ChannelNickname":
		cp.Nickname = value
	case "ChannelPolarity":
		v, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cp.UpdatePolarity(v)
	case "ChannelRange":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		cp.UpdateRange(v)
	case "ChannelOffset":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		cp.UpdateOffset(v)
	case "TriggerLevel":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		cp.UpdateTriggerLevel(v)
	case "TriggerSlope":
		v, err := strconv.ParseInt(value, 10, 32)
		if err != nil {
			return err
		}
		cp.UpdateTriggerSlope(TriggerSlope(v))
	case "TriggerSource":
		cp.TriggerSource = value
	case "ActiveTrigger":
		setBool(&cp.ActiveTrigger, value)
	}
	return nil
}

// Only the literal words change a flag, anything else leaves it untouched.
func setBool(dst *bool, value string) {
	switch value {
	case "true":
		*dst = true
	case "false":
		*dst = false
	}
}

// slot returns the channel, creating it on first reference.
func (s *ConfigStore) slot(number uint8) *ChannelConfig {
	cp := &s.channels[number-1]
	if !cp.Present {
		*cp = newChannelConfig(number)
	}
	return cp
}

func (s *ConfigStore) Channel(number int) (ChannelConfig, bool) {
	if number < 1 || number > NumChannels {
		return ChannelConfig{}, false
	}
	cp := s.channels[number-1]
	return cp, cp.Present
}

// SetChannel stores a channel in its slot, marking it present.
func (s *ConfigStore) SetChannel(cp ChannelConfig) error {
	if cp.Number < 1 || cp.Number > NumChannels {
		return fmt.Errorf("channel number %d out of range 1-%d", cp.Number, NumChannels)
	}
	cp.Present = true
	s.channels[cp.Number-1] = cp
	return nil
}

// Channels returns the present channels in ascending channel number.
func (s *ConfigStore) Channels() []ChannelConfig {
	channels := make([]ChannelConfig, 0, NumChannels)
	for _, cp := range s.channels {
		if cp.Present {
			channels = append(channels, cp)
		}
	}
	return channels
}

func (s *ConfigStore) UsedChannels() []ChannelConfig {
	channels := make([]ChannelConfig, 0, NumChannels)
	for _, cp := range s.channels {
		if cp.Present && cp.UseChannel {
			channels = append(channels, cp)
		}
	}
	return channels
}

func (s *ConfigStore) TriggerChannels() []ChannelConfig {
	channels := make([]ChannelConfig, 0, NumChannels)
	for _, cp := range s.channels {
		if cp.Present && cp.ActiveTrigger {
			channels = append(channels, cp)
		}
	}
	return channels
}

// Missing enumerates every missing or invalid field of the run and of the
// used and trigger channels.
func (s *ConfigStore) Missing() []string {
	var missing []string
	for _, field := range s.Run.Missing() {
		missing = append(missing, fmt.Sprintf("global %s", field))
	}
	for _, cp := range s.channels {
		if !cp.Present {
			continue
		}
		if cp.UseChannel {
			for _, field := range cp.Missing() {
				missing = append(missing, fmt.Sprintf("%d %s", cp.Number, field))
			}
		}
		if cp.ActiveTrigger {
			for _, field := range cp.MissingTrigger() {
				missing = append(missing, fmt.Sprintf("%d %s", cp.Number, field))
			}
		}
	}
	return missing
}

func (s *ConfigStore) Validate() error {
	missing := s.Missing()
	if len(missing) > 0 {
		return &ErrConfigIncomplete{Missing: missing}
	}
	return nil
}

func (s *ConfigStore) Print() {
	s.Run.Print()
	for _, cp := range s.channels {
		if cp.Present {
			cp.Print()
		}
	}
}
