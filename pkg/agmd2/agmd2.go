//go:build agmd2

// Package agmd2 binds the digitizer session to the Keysight AgMD2 IVI-C
// driver. Build with -tags agmd2 and CGO_CFLAGS/CGO_LDFLAGS pointing at the
// driver installation.
package agmd2

/*
#cgo LDFLAGS: -lAgMD2
#include <stdlib.h>
#include <AgMD2.h>
*/
import "C"

import (
	"fmt"
	"time"
	"unsafe"

	gpm "github.com/next-exp/gpm_go/pkg"
)

const errorBufferSize = 256
const stringBufferSize = 128

// IviScope class error returned when WaitForAcquisitionComplete runs out of time.
const maxTimeExceeded int32 = -1074126845 // 0xBFFA2003

var attributes = map[gpm.Attribute]C.ViAttr{
	gpm.AttrSpecificDriverPrefix:      C.AGMD2_ATTR_SPECIFIC_DRIVER_PREFIX,
	gpm.AttrSpecificDriverRevision:    C.AGMD2_ATTR_SPECIFIC_DRIVER_REVISION,
	gpm.AttrSpecificDriverVendor:      C.AGMD2_ATTR_SPECIFIC_DRIVER_VENDOR,
	gpm.AttrSpecificDriverDescription: C.AGMD2_ATTR_SPECIFIC_DRIVER_DESCRIPTION,
	gpm.AttrInstrumentModel:           C.AGMD2_ATTR_INSTRUMENT_MODEL,
	gpm.AttrFirmwareRevision:          C.AGMD2_ATTR_INSTRUMENT_FIRMWARE_REVISION,
	gpm.AttrSerialNumber:              C.AGMD2_ATTR_INSTRUMENT_INFO_SERIAL_NUMBER_STRING,
	gpm.AttrInstrumentOptions:         C.AGMD2_ATTR_INSTRUMENT_INFO_OPTIONS,
	gpm.AttrChannelCount:              C.AGMD2_ATTR_CHANNEL_COUNT,
	gpm.AttrADCBits:                   C.AGMD2_ATTR_INSTRUMENT_INFO_NBR_ADC_BITS,
	gpm.AttrNumRecordsToAcquire:       C.AGMD2_ATTR_NUM_RECORDS_TO_ACQUIRE,
	gpm.AttrRecordSize:                C.AGMD2_ATTR_RECORD_SIZE,
	gpm.AttrSampleRate:                C.AGMD2_ATTR_SAMPLE_RATE,
	gpm.AttrTriggerType:               C.AGMD2_ATTR_TRIGGER_TYPE,
	gpm.AttrTriggerCoupling:           C.AGMD2_ATTR_TRIGGER_COUPLING,
	gpm.AttrActiveTriggerSource:       C.AGMD2_ATTR_ACTIVE_TRIGGER_SOURCE,
	gpm.AttrTriggerDelay:              C.AGMD2_ATTR_TRIGGER_DELAY,
}

type Session struct {
	vi C.ViSession
}

func cString(s string) (*C.ViChar, func()) {
	cs := C.CString(s)
	return (*C.ViChar)(unsafe.Pointer(cs)), func() { C.free(unsafe.Pointer(cs)) }
}

func attribute(attr gpm.Attribute, op string) (C.ViAttr, error) {
	id, ok := attributes[attr]
	if !ok {
		return 0, gpm.DriverError(op, -1, fmt.Sprintf("attribute %s not mapped", attr))
	}
	return id, nil
}

// Open initializes the driver with id query and instrument reset.
func Open(resource string, options string) (gpm.Session, error) {
	rsrc, freeRsrc := cString(resource)
	defer freeRsrc()
	opts, freeOpts := cString(options)
	defer freeOpts()

	var vi C.ViSession
	status := C.AgMD2_InitWithOptions(rsrc, C.ViBoolean(1), C.ViBoolean(1), opts, &vi)
	s := &Session{vi: vi}
	if err := s.status(status, "AgMD2_InitWithOptions"); err != nil {
		if status < 0 {
			if vi != 0 {
				C.AgMD2_close(vi)
			}
			return nil, err
		}
		return s, err
	}
	return s, nil
}

func (s *Session) status(status C.ViStatus, op string) error {
	if status == 0 {
		return nil
	}
	var code C.ViStatus
	buf := (*C.char)(C.malloc(errorBufferSize))
	defer C.free(unsafe.Pointer(buf))
	C.AgMD2_GetError(s.vi, &code, errorBufferSize, (*C.ViChar)(unsafe.Pointer(buf)))
	message := C.GoString(buf)
	if status > 0 {
		return gpm.DriverWarning(op, int32(code), message)
	}
	err := gpm.DriverError(op, int32(code), message)
	if int32(status) == maxTimeExceeded || int32(code) == maxTimeExceeded {
		err.Err = gpm.ErrAcquisitionTimeout
	}
	return err
}

func (s *Session) Close() error {
	return s.status(C.AgMD2_close(s.vi), "AgMD2_close")
}

func (s *Session) GetAttributeString(channel string, attr gpm.Attribute) (string, error) {
	op := fmt.Sprintf("AgMD2_GetAttributeViString(%s)", attr)
	id, err := attribute(attr, op)
	if err != nil {
		return "", err
	}
	ch, free := cString(channel)
	defer free()
	buf := (*C.char)(C.malloc(stringBufferSize))
	defer C.free(unsafe.Pointer(buf))
	status := C.AgMD2_GetAttributeViString(s.vi, ch, id, stringBufferSize, (*C.ViChar)(unsafe.Pointer(buf)))
	return C.GoString(buf), s.status(status, op)
}

func (s *Session) GetAttributeInt32(channel string, attr gpm.Attribute) (int32, error) {
	op := fmt.Sprintf("AgMD2_GetAttributeViInt32(%s)", attr)
	id, err := attribute(attr, op)
	if err != nil {
		return 0, err
	}
	ch, free := cString(channel)
	defer free()
	var value C.ViInt32
	status := C.AgMD2_GetAttributeViInt32(s.vi, ch, id, &value)
	return int32(value), s.status(status, op)
}

func (s *Session) SetAttributeString(channel string, attr gpm.Attribute, value string) error {
	op := fmt.Sprintf("AgMD2_SetAttributeViString(%s)", attr)
	id, err := attribute(attr, op)
	if err != nil {
		return err
	}
	ch, freeCh := cString(channel)
	defer freeCh()
	v, freeV := cString(value)
	defer freeV()
	return s.status(C.AgMD2_SetAttributeViString(s.vi, ch, id, v), op)
}

func (s *Session) SetAttributeInt32(channel string, attr gpm.Attribute, value int32) error {
	op := fmt.Sprintf("AgMD2_SetAttributeViInt32(%s)", attr)
	id, err := attribute(attr, op)
	if err != nil {
		return err
	}
	ch, free := cString(channel)
	defer free()
	return s.status(C.AgMD2_SetAttributeViInt32(s.vi, ch, id, C.ViInt32(value)), op)
}

func (s *Session) SetAttributeInt64(channel string, attr gpm.Attribute, value int64) error {
	op := fmt.Sprintf("AgMD2_SetAttributeViInt64(%s)", attr)
	id, err := attribute(attr, op)
	if err != nil {
		return err
	}
	ch, free := cString(channel)
	defer free()
	return s.status(C.AgMD2_SetAttributeViInt64(s.vi, ch, id, C.ViInt64(value)), op)
}

func (s *Session) SetAttributeReal64(channel string, attr gpm.Attribute, value float64) error {
	op := fmt.Sprintf("AgMD2_SetAttributeViReal64(%s)", attr)
	id, err := attribute(attr, op)
	if err != nil {
		return err
	}
	ch, free := cString(channel)
	defer free()
	return s.status(C.AgMD2_SetAttributeViReal64(s.vi, ch, id, C.ViReal64(value)), op)
}

func (s *Session) ConfigureChannel(channel string, rng float64, offset float64, coupling gpm.Coupling, enabled bool) error {
	ch, free := cString(channel)
	defer free()
	var en C.ViBoolean
	if enabled {
		en = 1
	}
	status := C.AgMD2_ConfigureChannel(s.vi, ch, C.ViReal64(rng), C.ViReal64(offset), C.ViInt32(coupling), en)
	return s.status(status, "AgMD2_ConfigureChannel")
}

func (s *Session) ConfigureEdgeTriggerSource(source string, level float64, slope gpm.TriggerSlope) error {
	src, free := cString(source)
	defer free()
	status := C.AgMD2_ConfigureEdgeTriggerSource(s.vi, src, C.ViReal64(level), C.ViInt32(slope))
	return s.status(status, "AgMD2_ConfigureEdgeTriggerSource")
}

func (s *Session) SelfCalibrate() error {
	return s.status(C.AgMD2_SelfCalibrate(s.vi), "AgMD2_SelfCalibrate")
}

func (s *Session) InitiateAcquisition() error {
	return s.status(C.AgMD2_InitiateAcquisition(s.vi), "AgMD2_InitiateAcquisition")
}

func (s *Session) WaitForAcquisitionComplete(timeout time.Duration) error {
	status := C.AgMD2_WaitForAcquisitionComplete(s.vi, C.ViInt32(timeout.Milliseconds()))
	return s.status(status, "AgMD2_WaitForAcquisitionComplete")
}

func (s *Session) QueryMinWaveformMemory(dataWidth int32, numRecords int64, offsetWithinRecord int64, numPointsPerRecord int64) (int64, error) {
	var size C.ViInt64
	status := C.AgMD2_QueryMinWaveformMemory(s.vi, C.ViInt32(dataWidth), C.ViInt64(numRecords),
		C.ViInt64(offsetWithinRecord), C.ViInt64(numPointsPerRecord), &size)
	return int64(size), s.status(status, "AgMD2_QueryMinWaveformMemory")
}

func (s *Session) FetchWaveformInt8(channel string, data []int8) (gpm.WaveformInfo, error) {
	if len(data) == 0 {
		return gpm.WaveformInfo{}, gpm.DriverError("AgMD2_FetchWaveformInt8", -1, "empty buffer")
	}
	ch, free := cString(channel)
	defer free()
	var (
		actualPoints, firstValidPoint                    C.ViInt64
		xOffset, xTimeSeconds, xTimeFraction, xIncrement C.ViReal64
		scaleFactor, scaleOffset                         C.ViReal64
	)
	status := C.AgMD2_FetchWaveformInt8(s.vi, ch, C.ViInt64(len(data)), (*C.ViInt8)(unsafe.Pointer(&data[0])),
		&actualPoints, &firstValidPoint, &xOffset, &xTimeSeconds, &xTimeFraction, &xIncrement,
		&scaleFactor, &scaleOffset)
	info := gpm.WaveformInfo{
		ActualPoints:         int64(actualPoints),
		FirstValidPoint:      int64(firstValidPoint),
		InitialXOffset:       float64(xOffset),
		InitialXTimeSeconds:  float64(xTimeSeconds),
		InitialXTimeFraction: float64(xTimeFraction),
		XIncrement:           float64(xIncrement),
		ScaleFactor:          float64(scaleFactor),
		ScaleOffset:          float64(scaleOffset),
	}
	return info, s.status(status, "AgMD2_FetchWaveformInt8")
}
