package gpm

import (
	"fmt"
)

// configure opens the session and applies the parameters to the digitizer.
// Any fatal status here ends the run before the first acquisition.
func (a *Acquisition) configure() error {
	if err := a.initializeDriver(); err != nil {
		return err
	}
	if err := a.configureChannels(); err != nil {
		return err
	}
	if err := a.configureAcquisition(); err != nil {
		return err
	}
	if err := a.configureTriggers(); err != nil {
		return err
	}
	return a.calibrate()
}

func (a *Acquisition) initializeDriver() error {
	run := a.params.Run
	logger.Info(fmt.Sprintf("Resource %s", run.ResourceName), "driver")
	logger.Info(fmt.Sprintf("Option string %s", run.DriverOptions), "driver")

	session, err := a.open(run.ResourceName, run.DriverOptions)
	if session != nil {
		a.session = session
	}
	if err := a.check(err, "InitWithOptions"); err != nil {
		return err
	}
	if a.session == nil {
		return DriverError("InitWithOptions", 0, "driver returned no session")
	}
	logger.Info("Driver initialized", "driver")

	identity := []struct {
		label string
		attr  Attribute
	}{
		{"Driver prefix", AttrSpecificDriverPrefix},
		{"Driver revision", AttrSpecificDriverRevision},
		{"Driver vendor", AttrSpecificDriverVendor},
		{"Driver description", AttrSpecificDriverDescription},
		{"Instrument model", AttrInstrumentModel},
		{"Firmware revision", AttrFirmwareRevision},
		{"Serial number", AttrSerialNumber},
		{"Instrument options", AttrInstrumentOptions},
	}
	for _, id := range identity {
		value, err := a.session.GetAttributeString("", id.attr)
		if err := a.check(err, fmt.Sprintf("GetAttributeViString(%s)", id.attr)); err != nil {
			return err
		}
		logger.Info(fmt.Sprintf("%s: %s", id.label, value), "driver")
	}

	channelCount, err := a.session.GetAttributeInt32("", AttrChannelCount)
	if err := a.check(err, "GetAttributeViInt32(CHANNEL_COUNT)"); err != nil {
		return err
	}
	logger.Info(fmt.Sprintf("Channel count: %d", channelCount), "driver")

	bits, err := a.session.GetAttributeInt32("", AttrADCBits)
	if err := a.check(err, "GetAttributeViInt32(INSTRUMENT_INFO_NBR_ADC_BITS)"); err != nil {
		return err
	}
	logger.Info(fmt.Sprintf("ADC bits: %d", bits), "driver")
	return nil
}

func (a *Acquisition) configureChannels() error {
	coupling := CouplingDC
	for _, cp := range a.params.UsedChannels() {
		if configuration.Verbosity > 0 {
			message := fmt.Sprintf("Configuring acquisition -- %s: range %g, offset %g, coupling %v",
				cp.Name(), cp.Range, cp.Offset, coupling)
			logger.Info(message, "driver")
		}
		err := a.session.ConfigureChannel(cp.Name(), cp.Range, cp.Offset, coupling, cp.UseChannel)
		if err := a.check(err, "ConfigureChannel"); err != nil {
			return err
		}
	}
	return nil
}

func (a *Acquisition) configureAcquisition() error {
	run := a.params.Run
	if configuration.Verbosity > 0 {
		logger.Info(fmt.Sprintf("Number of records: %d", run.NumRecords), "driver")
		logger.Info(fmt.Sprintf("Record size: %d", run.RecordSize), "driver")
		logger.Info(fmt.Sprintf("Sample rate: %g", run.SampleRate), "driver")
	}
	// One record per acquisition, the loop decides how many to keep.
	err := a.session.SetAttributeInt64("", AttrNumRecordsToAcquire, recordsPerIteration)
	if err := a.check(err, "SetAttributeViInt64(NUM_RECORDS_TO_ACQUIRE)"); err != nil {
		return err
	}
	err = a.session.SetAttributeInt64("", AttrRecordSize, run.RecordSize)
	if err := a.check(err, "SetAttributeViInt64(RECORD_SIZE)"); err != nil {
		return err
	}
	err = a.session.SetAttributeReal64("", AttrSampleRate, run.SampleRate)
	return a.check(err, "SetAttributeViReal64(SAMPLE_RATE)")
}

func (a *Acquisition) configureTriggers() error {
	run := a.params.Run
	delay := run.TriggerDelaySeconds()

	for _, cp := range a.params.TriggerChannels() {
		source := cp.Source()
		if configuration.Verbosity > 0 {
			message := fmt.Sprintf("Configuring trigger %d -- %s: source %s, level %g, slope %v, delay %g",
				cp.Number, cp.Name(), source, cp.TriggerLevel, cp.TriggerSlope, delay)
			logger.Info(message, "driver")
		}
		err := a.session.ConfigureEdgeTriggerSource(source, cp.TriggerLevel, cp.TriggerSlope)
		if err := a.check(err, "ConfigureEdgeTriggerSource"); err != nil {
			return err
		}
		err = a.session.SetAttributeInt32(source, AttrTriggerType, TriggerTypeEdge)
		if err := a.check(err, "SetAttributeViInt32(TRIGGER_TYPE)"); err != nil {
			return err
		}
		err = a.session.SetAttributeInt32(source, AttrTriggerCoupling, TriggerCouplingDC)
		if err := a.check(err, "SetAttributeViInt32(TRIGGER_COUPLING)"); err != nil {
			return err
		}
		err = a.session.SetAttributeString("", AttrActiveTriggerSource, source)
		if err := a.check(err, "SetAttributeViString(ACTIVE_TRIGGER_SOURCE)"); err != nil {
			return err
		}
	}

	err := a.session.SetAttributeReal64("", AttrTriggerDelay, delay)
	return a.check(err, "SetAttributeViReal64(TRIGGER_DELAY)")
}

func (a *Acquisition) calibrate() error {
	logger.Info("Performing self-calibration", "driver")
	return a.check(a.session.SelfCalibrate(), "SelfCalibrate")
}
