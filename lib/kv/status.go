package kv

import "fmt"

// --------------------------------------------------------------------------
// Status Codes
// --------------------------------------------------------------------------

// Status is the result code of an engine operation. The numeric values are
// part of the wire format used by the rpc bindings and must never change.
type Status int

const (
	StatusOK                 Status = 0
	StatusUnknownError       Status = 1
	StatusNotFound           Status = 2
	StatusNotSupported       Status = 3
	StatusInvalidArgument    Status = 4
	StatusConfigParsingError Status = 5
	StatusConfigTypeError    Status = 6
	StatusStoppedByCallback  Status = 7
	StatusOutOfMemory        Status = 8
	StatusWrongEngineName    Status = 9
	StatusTransactionScope   Status = 10
	StatusDefragError        Status = 11
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusUnknownError:
		return "unknown-error"
	case StatusNotFound:
		return "not-found"
	case StatusNotSupported:
		return "not-supported"
	case StatusInvalidArgument:
		return "invalid-argument"
	case StatusConfigParsingError:
		return "config-parsing-error"
	case StatusConfigTypeError:
		return "config-type-error"
	case StatusStoppedByCallback:
		return "stopped-by-callback"
	case StatusOutOfMemory:
		return "out-of-memory"
	case StatusWrongEngineName:
		return "wrong-engine-name"
	case StatusTransactionScope:
		return "transaction-scope-error"
	case StatusDefragError:
		return "defrag-error"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// --------------------------------------------------------------------------
// Error Type
// --------------------------------------------------------------------------

// Error couples a Status with a human-readable message. All non-OK results
// that cross a Go error boundary are of this type.
type Error struct {
	Status Status // the wire status
	Msg    string // the error message
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Msg == "" {
		return e.Status.String()
	}
	return fmt.Sprintf("%s: %s", e.Status, e.Msg)
}

// NewError creates an Error with the given status and message and records
// it as the process-local last error.
func NewError(status Status, msg string) *Error {
	err := &Error{Status: status, Msg: msg}
	setLastError(err.Error())
	return err
}

// StatusOf extracts the Status from an error. A nil error is StatusOK, a
// non-*Error value maps to StatusUnknownError.
func StatusOf(err error) Status {
	if err == nil {
		return StatusOK
	}
	if e, ok := err.(*Error); ok {
		return e.Status
	}
	return StatusUnknownError
}
