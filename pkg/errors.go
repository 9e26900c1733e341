package gpm

import (
	"errors"
	"fmt"
	"strings"
)

var ErrAcquisitionTimeout = errors.New("acquisition timed out")

// ErrConfigIncomplete lists every required parameter that is missing or
// invalid. The run must not start while it is returned.
type ErrConfigIncomplete struct {
	Missing []string
}

func (e *ErrConfigIncomplete) Error() string {
	return fmt.Sprintf("incomplete configuration: %s", strings.Join(e.Missing, ", "))
}

// ErrParseParams represents a malformed value in the params file.
type ErrParseParams struct {
	Line int
	Text string
	Err  error
}

func (e *ErrParseParams) Error() string {
	return fmt.Sprintf("params line %d %q: %v", e.Line, e.Text, e.Err)
}

func (e *ErrParseParams) Unwrap() error {
	return e.Err
}

type Severity int

const (
	SeverityWarning Severity = iota + 1
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// DriverStatus is the outcome of a driver call that did not succeed
// cleanly. Warnings are logged and execution continues, errors end the run.
type DriverStatus struct {
	Op       string
	Code     int32
	Message  string
	Severity Severity
	Err      error
}

func (e *DriverStatus) Error() string {
	return fmt.Sprintf("%s during %s: 0x%08x, %s", e.Severity, e.Op, uint32(e.Code), e.Message)
}

func (e *DriverStatus) Unwrap() error {
	return e.Err
}

func (e *DriverStatus) Fatal() bool {
	return e.Severity != SeverityWarning
}

func DriverWarning(op string, code int32, message string) *DriverStatus {
	return &DriverStatus{Op: op, Code: code, Message: message, Severity: SeverityWarning}
}

func DriverError(op string, code int32, message string) *DriverStatus {
	return &DriverStatus{Op: op, Code: code, Message: message, Severity: SeverityError}
}

// ErrOpenFile represents an error when opening a file.
type ErrOpenFile struct {
	Filename string
	Err      error
}

func (e *ErrOpenFile) Error() string {
	return fmt.Sprintf("error opening file %q: %v", e.Filename, e.Err)
}

func (e *ErrOpenFile) Unwrap() error {
	return e.Err
}

// ErrWriteRecord represents a failed write of one header/payload block.
type ErrWriteRecord struct {
	EventNumber int32
	Channel     uint8
	Err         error
}

func (e *ErrWriteRecord) Error() string {
	return fmt.Sprintf("error writing event %d channel %d: %v", e.EventNumber, e.Channel, e.Err)
}

func (e *ErrWriteRecord) Unwrap() error {
	return e.Err
}
