package gpm

import (
	"fmt"
)

const NumChannels = 8

// Channels at or above this number are written to the output file.
// Lower channels are only fetched for the live display.
const PersistChannelMin = 5

type TriggerSlope int32

const (
	TriggerSlopeNegative TriggerSlope = 0
	TriggerSlopePositive TriggerSlope = 1
)

func (s TriggerSlope) Valid() bool {
	return s == TriggerSlopeNegative || s == TriggerSlopePositive
}

func (s TriggerSlope) String() string {
	switch s {
	case TriggerSlopeNegative:
		return "negative"
	case TriggerSlopePositive:
		return "positive"
	default:
		return fmt.Sprintf("invalid(%d)", int32(s))
	}
}

type channelField uint8

const (
	fieldRange channelField = 1 << iota
	fieldOffset
	fieldPolarity
	fieldTriggerLevel
	fieldTriggerSlope
)

// ChannelConfig is the configuration of one physical digitizer channel.
// A slot is Present once any params line referenced its channel number.
type ChannelConfig struct {
	Number        uint8
	Present       bool
	UseChannel    bool
	Nickname      string
	Polarity      int
	Range         float64
	Offset        float64
	ActiveTrigger bool
	TriggerLevel  float64
	TriggerSlope  TriggerSlope
	TriggerSource string

	set channelField
}

func newChannelConfig(number uint8) ChannelConfig {
	return ChannelConfig{
		Number:   number,
		Present:  true,
		Nickname: ChannelName(number),
	}
}

func ChannelName(number uint8) string {
	return fmt.Sprintf("Channel%d", number)
}

func (c *ChannelConfig) Name() string {
	return ChannelName(c.Number)
}

// Source returns the trigger source name, the channel itself unless the
// params file names another one.
func (c *ChannelConfig) Source() string {
	if c.TriggerSource != "" {
		return c.TriggerSource
	}
	return c.Name()
}

func (c *ChannelConfig) Persisted() bool {
	return c.Number >= PersistChannelMin
}

func (c *ChannelConfig) UpdateRange(v float64) {
	c.Range = v
	c.set |= fieldRange
}

func (c *ChannelConfig) UpdateOffset(v float64) {
	c.Offset = v
	c.set |= fieldOffset
}

func (c *ChannelConfig) UpdatePolarity(v int) {
	c.Polarity = v
	c.set |= fieldPolarity
}

func (c *ChannelConfig) UpdateTriggerLevel(v float64) {
	c.TriggerLevel = v
	c.set |= fieldTriggerLevel
}

func (c *ChannelConfig) UpdateTriggerSlope(v TriggerSlope) {
	c.TriggerSlope = v
	c.set |= fieldTriggerSlope
}

// Missing lists the acquisition fields a used channel still lacks.
func (c *ChannelConfig) Missing() []string {
	var missing []string
	if c.set&fieldRange == 0 {
		missing = append(missing, "ChannelRange")
	} else if c.Range <= 0 {
		missing = append(missing, "ChannelRange (must be positive)")
	}
	if c.set&fieldOffset == 0 {
		missing = append(missing, "ChannelOffset")
	}
	if c.set&fieldPolarity == 0 {
		missing = append(missing, "ChannelPolarity")
	} else if c.Polarity != 1 && c.Polarity != -1 {
		missing = append(missing, "ChannelPolarity (must be +1 or -1)")
	}
	return missing
}

// MissingTrigger lists the trigger fields an active trigger channel lacks.
func (c *ChannelConfig) MissingTrigger() []string {
	var missing []string
	if c.set&fieldTriggerLevel == 0 {
		missing = append(missing, "TriggerLevel")
	}
	if c.set&fieldTriggerSlope == 0 {
		missing = append(missing, "TriggerSlope")
	} else if !c.TriggerSlope.Valid() {
		missing = append(missing, "TriggerSlope (must be 0 or 1)")
	}
	return missing
}

func (c *ChannelConfig) Complete() bool {
	if c.UseChannel && len(c.Missing()) > 0 {
		return false
	}
	if c.ActiveTrigger && len(c.MissingTrigger()) > 0 {
		return false
	}
	return true
}

func (c *ChannelConfig) Print() {
	module := "config"
	logger.Info(fmt.Sprintf("%s:", c.Name()), module)
	logger.Info(fmt.Sprintf("Use channel: %t", c.UseChannel), module)
	logger.Info(fmt.Sprintf("Nickname: %s", c.Nickname), module)
	logger.Info(fmt.Sprintf("Polarity: %d", c.Polarity), module)
	logger.Info(fmt.Sprintf("Range: %g", c.Range), module)
	logger.Info(fmt.Sprintf("Offset: %g", c.Offset), module)
	logger.Info(fmt.Sprintf("Active trigger: %t", c.ActiveTrigger), module)
	if c.ActiveTrigger {
		logger.Info(fmt.Sprintf("Trigger source: %s", c.Source()), module)
		logger.Info(fmt.Sprintf("Trigger level: %g", c.TriggerLevel), module)
		logger.Info(fmt.Sprintf("Trigger slope: %v", c.TriggerSlope), module)
	}
}
