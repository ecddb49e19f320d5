// Package control implements the PLDM control/discovery responder
// (spec §4.8): GetTID, GetPLDMVersion, GetPLDMTypes and
// GetPLDMCommands against a small table of registered PLDM types.
//
// Grounded on _examples/original_source/src/control.c's
// pldm_control_handle_msg and its per-command handlers, and
// include/libpldm/control.h's pldm_control_add_type.
package control

import (
	"github.com/openbmc/go-pldm/msgbuf"
	"github.com/openbmc/go-pldm/pldm"
)

// PLDMType is the DSP0240 PLDM base type number control messages are
// carried under.
const PLDMType uint8 = 0

// Command codes for PLDM Type 0 (Base), the subset control serves.
const (
	CmdGetTID          uint8 = 0x02
	CmdGetPLDMVersion  uint8 = 0x03
	CmdGetPLDMTypes    uint8 = 0x04
	CmdGetPLDMCommands uint8 = 0x05
)

// TIDUnassigned is the terminus ID GetTID always answers with; this
// library does not implement TID assignment (spec §1: the instance-ID
// allocator and terminus-ID assignment are external collaborators).
const TIDUnassigned uint8 = 0

// GetPLDMVersion transfer operation flags.
const (
	TransferOpGetNextPart  uint8 = 0x00
	TransferOpGetFirstPart uint8 = 0x01
)

// transferFlagStartAndEnd marks a GetPLDMVersion response as both the
// first and only part of the transfer, since every registered type's
// version list is sent in a single response (spec §4.8: "single
// transfer").
const transferFlagStartAndEnd uint8 = 0x05

// Control completion codes beyond the generic ones in package pldm.
const (
	CcInvalidTransferOperationFlag  pldm.Completion = 0x81
	CcInvalidPLDMTypeInRequestData  pldm.Completion = 0x83
)

// typesBitmapLen and commandsBitmapLen are GetPLDMTypes' and
// GetPLDMCommands' fixed response bitmap sizes (64 types, 256
// commands), per control.c's required_resp_payload computations.
const (
	typesBitmapLen    = 8
	commandsBitmapLen = 32
)

type registeredType struct {
	pldmType uint8
	versions []uint32 // version values followed by a trailing crc32
	commands [commandsBitmapLen]byte
}

// Responder answers control messages from a fixed table of registered
// PLDM types. It carries no other state (spec §4.8: "Stateless apart
// from a fixed table of supported (type, versions[], commands[])").
type Responder struct {
	types []registeredType
}

// New returns an empty Responder; register at least PLDMType (Base)
// before serving GetPLDMVersion/GetPLDMCommands for it.
func New() *Responder {
	return &Responder{}
}

// Register adds pldmType to the responder's table, with its supported
// version list (values followed by a trailing CRC32, mirroring
// pldm_control_add_type's versions/versions_count contract) and its
// per-command support bitmap. Registering the same type twice is
// rejected (spec §4.8: "A PLDM type may be registered at most once").
func (r *Responder) Register(pldmType uint8, versions []uint32, commands [commandsBitmapLen]byte) error {
	if len(versions) < 2 {
		return ErrTooFewVersions
	}
	if r.find(pldmType) != nil {
		return ErrTypeAlreadyRegistered
	}
	r.types = append(r.types, registeredType{pldmType: pldmType, versions: versions, commands: commands})
	return nil
}

func (r *Responder) find(pldmType uint8) *registeredType {
	for i := range r.types {
		if r.types[i].pldmType == pldmType {
			return &r.types[i]
		}
	}
	return nil
}

// Message is a PLDM response the caller should deliver back to the
// requester.
type Message struct {
	Header pldm.Header
	Body   []byte
}

func replyHeader(hdr pldm.Header) pldm.Header {
	hdr.Request = false
	hdr.Datagram = false
	return hdr
}

func ccOnlyMessage(hdr pldm.Header, cc pldm.Completion) *Message {
	return &Message{Header: replyHeader(hdr), Body: []byte{uint8(cc)}}
}

// HandleMessage dispatches one incoming control request.
func (r *Responder) HandleMessage(hdr pldm.Header, body []byte) (*Message, error) {
	if !hdr.Request {
		return nil, nil
	}
	switch hdr.Command {
	case CmdGetTID:
		return r.handleGetTID(hdr, body)
	case CmdGetPLDMVersion:
		return r.handleGetPLDMVersion(hdr, body)
	case CmdGetPLDMTypes:
		return r.handleGetPLDMTypes(hdr, body)
	case CmdGetPLDMCommands:
		return r.handleGetPLDMCommands(hdr, body)
	default:
		return ccOnlyMessage(hdr, pldm.CcErrorUnsupportedCmd), nil
	}
}

func (r *Responder) handleGetTID(hdr pldm.Header, body []byte) (*Message, error) {
	rdr, err := msgbuf.NewReader(body, 0)
	if err != nil {
		return ccOnlyMessage(hdr, pldm.CcErrorInvalidLength), nil
	}
	if err := rdr.CompleteConsumed(); err != nil {
		return ccOnlyMessage(hdr, pldm.CcErrorInvalidLength), nil
	}

	buf := make([]byte, 2)
	w, err := msgbuf.NewWriter(buf, 2)
	if err != nil {
		return nil, err
	}
	if err := w.InsertUint8(uint8(pldm.Success)); err != nil {
		return nil, w.Discard(err)
	}
	if err := w.InsertUint8(TIDUnassigned); err != nil {
		return nil, w.Discard(err)
	}
	return &Message{Header: replyHeader(hdr), Body: buf[:w.Pos()]}, w.CompleteConsumed()
}

func (r *Responder) handleGetPLDMVersion(hdr pldm.Header, body []byte) (*Message, error) {
	rdr, err := msgbuf.NewReader(body, 6)
	if err != nil {
		return ccOnlyMessage(hdr, pldm.CcErrorInvalidLength), nil
	}
	_, err = rdr.ExtractUint32() // data transfer handle; single-transfer only, ignored
	if err != nil {
		return ccOnlyMessage(hdr, pldm.MapErrCompletion(err)), nil
	}
	opFlag, err := rdr.ExtractUint8()
	if err != nil {
		return ccOnlyMessage(hdr, pldm.MapErrCompletion(err)), nil
	}
	pldmType, err := rdr.ExtractUint8()
	if err != nil {
		return ccOnlyMessage(hdr, pldm.MapErrCompletion(err)), nil
	}
	if err := rdr.CompleteConsumed(); err != nil {
		return ccOnlyMessage(hdr, pldm.CcErrorInvalidLength), nil
	}

	if opFlag != TransferOpGetFirstPart {
		return ccOnlyMessage(hdr, CcInvalidTransferOperationFlag), nil
	}

	t := r.find(pldmType)
	if t == nil {
		return ccOnlyMessage(hdr, CcInvalidPLDMTypeInRequestData), nil
	}

	respLen := 1 + 4 + 1 + len(t.versions)*4
	buf := make([]byte, respLen)
	w, err := msgbuf.NewWriter(buf, respLen)
	if err != nil {
		return nil, err
	}
	if err := w.InsertUint8(uint8(pldm.Success)); err != nil {
		return nil, w.Discard(err)
	}
	if err := w.InsertUint32(0); err != nil { // next transfer handle; unused for single-transfer
		return nil, w.Discard(err)
	}
	if err := w.InsertUint8(transferFlagStartAndEnd); err != nil {
		return nil, w.Discard(err)
	}
	for _, v := range t.versions {
		if err := w.InsertUint32(v); err != nil {
			return nil, w.Discard(err)
		}
	}
	return &Message{Header: replyHeader(hdr), Body: buf[:w.Pos()]}, w.CompleteConsumed()
}

func (r *Responder) handleGetPLDMTypes(hdr pldm.Header, body []byte) (*Message, error) {
	rdr, err := msgbuf.NewReader(body, 0)
	if err != nil {
		return ccOnlyMessage(hdr, pldm.CcErrorInvalidLength), nil
	}
	if err := rdr.CompleteConsumed(); err != nil {
		return ccOnlyMessage(hdr, pldm.CcErrorInvalidLength), nil
	}

	var bitmap [typesBitmapLen]byte
	for _, t := range r.types {
		if t.pldmType < 64 {
			bitmap[t.pldmType/8] |= 1 << (t.pldmType % 8)
		}
	}

	respLen := 1 + typesBitmapLen
	buf := make([]byte, respLen)
	w, err := msgbuf.NewWriter(buf, respLen)
	if err != nil {
		return nil, err
	}
	if err := w.InsertUint8(uint8(pldm.Success)); err != nil {
		return nil, w.Discard(err)
	}
	if err := w.InsertArray(bitmap[:]); err != nil {
		return nil, w.Discard(err)
	}
	return &Message{Header: replyHeader(hdr), Body: buf[:w.Pos()]}, w.CompleteConsumed()
}

func (r *Responder) handleGetPLDMCommands(hdr pldm.Header, body []byte) (*Message, error) {
	rdr, err := msgbuf.NewReader(body, 5)
	if err != nil {
		return ccOnlyMessage(hdr, pldm.CcErrorInvalidLength), nil
	}
	pldmType, err := rdr.ExtractUint8()
	if err != nil {
		return ccOnlyMessage(hdr, pldm.MapErrCompletion(err)), nil
	}
	// The requested version is accepted but ignored: SelectPLDMVersion
	// (multi-version negotiation) is out of scope here.
	if _, err := rdr.SpanRequired(4); err != nil {
		return ccOnlyMessage(hdr, pldm.CcErrorInvalidLength), nil
	}
	if err := rdr.CompleteConsumed(); err != nil {
		return ccOnlyMessage(hdr, pldm.CcErrorInvalidLength), nil
	}

	t := r.find(pldmType)
	if t == nil {
		return ccOnlyMessage(hdr, CcInvalidPLDMTypeInRequestData), nil
	}

	respLen := 1 + commandsBitmapLen
	buf := make([]byte, respLen)
	w, err := msgbuf.NewWriter(buf, respLen)
	if err != nil {
		return nil, err
	}
	if err := w.InsertUint8(uint8(pldm.Success)); err != nil {
		return nil, w.Discard(err)
	}
	if err := w.InsertArray(t.commands[:]); err != nil {
		return nil, w.Discard(err)
	}
	return &Message{Header: replyHeader(hdr), Body: buf[:w.Pos()]}, w.CompleteConsumed()
}
