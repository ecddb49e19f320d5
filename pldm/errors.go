package pldm

import "errors"

// Completion is a 1-byte PLDM completion code, returned in every
// response.
type Completion uint8

const (
	Success                Completion = 0x00
	CcError                Completion = 0x01
	CcErrorInvalidData     Completion = 0x02
	CcErrorInvalidLength   Completion = 0x03
	CcErrorNotReady        Completion = 0x04
	CcErrorUnsupportedCmd  Completion = 0x05
	CcErrorInvalidPLDMType Completion = 0x20
)

// ErrKind is the internal error taxonomy this codec layer surfaces,
// grounded on the distinction the control/FWUP responders make between
// recoverable protocol errors and everything else.
type ErrKind int

const (
	KindNone ErrKind = iota
	KindInvalidData
	KindInvalidLength
	KindNotReady
	KindUnsupportedCmd
	KindGenericFailure
)

// Err pairs an internal error kind with a message, with a method to
// project it onto the wire completion code a response should carry.
type Err struct {
	Kind ErrKind
	Msg  string
}

func (e *Err) Error() string { return e.Msg }

// NewErr constructs an *Err of the given kind.
func NewErr(kind ErrKind, msg string) *Err {
	return &Err{Kind: kind, Msg: msg}
}

// MapCompletion maps an internal error kind to the wire completion
// code a response should carry, per spec §4.2:
// InvalidData -> INVALID_DATA, InvalidLength -> INVALID_LENGTH,
// NotReady -> NOT_READY, UnsupportedCmd -> UNSUPPORTED_PLDM_CMD,
// anything else -> ERROR.
func (k ErrKind) MapCompletion() Completion {
	switch k {
	case KindInvalidData:
		return CcErrorInvalidData
	case KindInvalidLength:
		return CcErrorInvalidLength
	case KindNotReady:
		return CcErrorNotReady
	case KindUnsupportedCmd:
		return CcErrorUnsupportedCmd
	default:
		return CcError
	}
}

// MapErrCompletion maps any error to a completion code: *Err values
// use their own Kind, everything else (including msgbuf sentinels)
// maps to the generic ERROR completion (CcError).
func MapErrCompletion(err error) Completion {
	var e *Err
	if errors.As(err, &e) {
		return e.Kind.MapCompletion()
	}
	return CcError
}
