package fwup

import (
	"github.com/openbmc/go-pldm/msgbuf"
	"github.com/openbmc/go-pldm/pldm"
)

// ActivateFirmwareRequest asks the FD to switch to the newly applied
// firmware (spec §4.7: ReadyXfer + ActivateFirmware -> Activate).
type ActivateFirmwareRequest struct {
	SelfContainedActivationRequest bool
}

type ActivateFirmwareResponse struct {
	CompletionCode                       pldm.Completion
	EstimatedTimeForSelfContainedActivation uint16
}

func EncodeActivateFirmwareRequest(buf []byte, req ActivateFirmwareRequest) (int, error) {
	w, err := msgbuf.NewWriter(buf, 1)
	if err != nil {
		return 0, pldm.NewErr(pldm.KindInvalidLength, "activate firmware request buffer")
	}
	v := uint8(0)
	if req.SelfContainedActivationRequest {
		v = 1
	}
	if err := w.InsertUint8(v); err != nil {
		return 0, w.Discard(err)
	}
	return w.Pos(), w.Complete()
}

func DecodeActivateFirmwareRequest(buf []byte) (ActivateFirmwareRequest, error) {
	r, err := msgbuf.NewReader(buf, 1)
	if err != nil {
		return ActivateFirmwareRequest{}, pldm.NewErr(pldm.KindInvalidLength, "activate firmware request")
	}
	v, err := r.ExtractUint8()
	if err != nil {
		return ActivateFirmwareRequest{}, r.Discard(err)
	}
	req := ActivateFirmwareRequest{SelfContainedActivationRequest: v != 0}
	return req, r.CompleteConsumed()
}

func EncodeActivateFirmwareResponse(buf []byte, resp ActivateFirmwareResponse) (int, error) {
	w, err := msgbuf.NewWriter(buf, 1)
	if err != nil {
		return 0, pldm.NewErr(pldm.KindInvalidLength, "activate firmware response buffer")
	}
	if err := w.InsertUint8(uint8(resp.CompletionCode)); err != nil {
		return 0, w.Discard(err)
	}
	if resp.CompletionCode != pldm.Success {
		return w.Pos(), w.Complete()
	}
	if err := w.InsertUint16(resp.EstimatedTimeForSelfContainedActivation); err != nil {
		return 0, w.Discard(err)
	}
	return w.Pos(), w.Complete()
}

func DecodeActivateFirmwareResponse(buf []byte) (ActivateFirmwareResponse, error) {
	r, err := msgbuf.NewReader(buf, 1)
	if err != nil {
		return ActivateFirmwareResponse{}, pldm.NewErr(pldm.KindInvalidLength, "activate firmware response")
	}
	cc, err := r.ExtractUint8()
	if err != nil {
		return ActivateFirmwareResponse{}, r.Discard(err)
	}
	resp := ActivateFirmwareResponse{CompletionCode: pldm.Completion(cc)}
	if resp.CompletionCode != pldm.Success {
		return resp, r.Complete()
	}
	estTime, err := r.ExtractUint16()
	if err != nil {
		return ActivateFirmwareResponse{}, r.Discard(err)
	}
	resp.EstimatedTimeForSelfContainedActivation = estTime
	return resp, r.CompleteConsumed()
}

// GetStatusResponse reports the FD's current update state (spec §4.7
// / §4.8 are distinct responders, but GetStatus belongs to the FWUP
// type per the command list in spec §4.4).
type GetStatusResponse struct {
	CompletionCode            pldm.Completion
	CurrentState              uint8
	PreviousState             uint8
	AuxState                  uint8
	AuxStateStatus            uint8
	ProgressPercent           uint8
	ReasonCode                uint8
	UpdateOptionFlagsEnabled  uint32
}

// DecodeGetStatusRequest validates the (empty) request.
func DecodeGetStatusRequest(buf []byte) error {
	r, err := msgbuf.NewReader(buf, 0)
	if err != nil {
		return pldm.NewErr(pldm.KindInvalidLength, "get status request")
	}
	return r.CompleteConsumed()
}

// EncodeGetStatusRequest writes the (empty) request body.
func EncodeGetStatusRequest(buf []byte) error {
	w, err := msgbuf.NewWriter(buf, 0)
	if err != nil {
		return pldm.NewErr(pldm.KindInvalidLength, "get status request buffer")
	}
	return w.CompleteConsumed()
}

func EncodeGetStatusResponse(buf []byte, resp GetStatusResponse) (int, error) {
	w, err := msgbuf.NewWriter(buf, 1)
	if err != nil {
		return 0, pldm.NewErr(pldm.KindInvalidLength, "get status response buffer")
	}
	if err := w.InsertUint8(uint8(resp.CompletionCode)); err != nil {
		return 0, w.Discard(err)
	}
	if resp.CompletionCode != pldm.Success {
		return w.Pos(), w.Complete()
	}
	fields := []uint8{
		resp.CurrentState, resp.PreviousState, resp.AuxState,
		resp.AuxStateStatus, resp.ProgressPercent, resp.ReasonCode,
	}
	for _, f := range fields {
		if err := w.InsertUint8(f); err != nil {
			return 0, w.Discard(err)
		}
	}
	if err := w.InsertUint32(resp.UpdateOptionFlagsEnabled); err != nil {
		return 0, w.Discard(err)
	}
	return w.Pos(), w.Complete()
}

func DecodeGetStatusResponse(buf []byte) (GetStatusResponse, error) {
	r, err := msgbuf.NewReader(buf, 1)
	if err != nil {
		return GetStatusResponse{}, pldm.NewErr(pldm.KindInvalidLength, "get status response")
	}
	cc, err := r.ExtractUint8()
	if err != nil {
		return GetStatusResponse{}, r.Discard(err)
	}
	resp := GetStatusResponse{CompletionCode: pldm.Completion(cc)}
	if resp.CompletionCode != pldm.Success {
		return resp, r.Complete()
	}
	var fields [6]uint8
	for i := range fields {
		v, err := r.ExtractUint8()
		if err != nil {
			return GetStatusResponse{}, r.Discard(err)
		}
		fields[i] = v
	}
	flagsEnabled, err := r.ExtractUint32()
	if err != nil {
		return GetStatusResponse{}, r.Discard(err)
	}
	resp.CurrentState = fields[0]
	resp.PreviousState = fields[1]
	resp.AuxState = fields[2]
	resp.AuxStateStatus = fields[3]
	resp.ProgressPercent = fields[4]
	resp.ReasonCode = fields[5]
	resp.UpdateOptionFlagsEnabled = flagsEnabled
	return resp, r.CompleteConsumed()
}

// DecodeCancelUpdateComponentRequest validates the (empty) request.
func DecodeCancelUpdateComponentRequest(buf []byte) error {
	r, err := msgbuf.NewReader(buf, 0)
	if err != nil {
		return pldm.NewErr(pldm.KindInvalidLength, "cancel update component request")
	}
	return r.CompleteConsumed()
}

// EncodeCancelUpdateComponentRequest writes the (empty) request body.
func EncodeCancelUpdateComponentRequest(buf []byte) error {
	w, err := msgbuf.NewWriter(buf, 0)
	if err != nil {
		return pldm.NewErr(pldm.KindInvalidLength, "cancel update component request buffer")
	}
	return w.CompleteConsumed()
}

func EncodeCancelUpdateComponentResponse(buf []byte, cc pldm.Completion) (int, error) {
	return encodeSimpleCompletionResponse(buf, cc)
}

func DecodeCancelUpdateComponentResponse(buf []byte) (pldm.Completion, error) {
	return decodeSimpleCompletionResponse(buf)
}

// DecodeCancelUpdateRequest validates the (empty) request.
func DecodeCancelUpdateRequest(buf []byte) error {
	r, err := msgbuf.NewReader(buf, 0)
	if err != nil {
		return pldm.NewErr(pldm.KindInvalidLength, "cancel update request")
	}
	return r.CompleteConsumed()
}

// EncodeCancelUpdateRequest writes the (empty) request body.
func EncodeCancelUpdateRequest(buf []byte) error {
	w, err := msgbuf.NewWriter(buf, 0)
	if err != nil {
		return pldm.NewErr(pldm.KindInvalidLength, "cancel update request buffer")
	}
	return w.CompleteConsumed()
}

// CancelUpdateResponse additionally reports which components (by
// bitmap index) were left non-functioning by the aborted update.
type CancelUpdateResponse struct {
	CompletionCode                  pldm.Completion
	NonFunctioningComponentIndication uint8
	NonFunctioningComponentBitmap    uint64
}

func EncodeCancelUpdateResponse(buf []byte, resp CancelUpdateResponse) (int, error) {
	w, err := msgbuf.NewWriter(buf, 1)
	if err != nil {
		return 0, pldm.NewErr(pldm.KindInvalidLength, "cancel update response buffer")
	}
	if err := w.InsertUint8(uint8(resp.CompletionCode)); err != nil {
		return 0, w.Discard(err)
	}
	if resp.CompletionCode != pldm.Success {
		return w.Pos(), w.Complete()
	}
	if err := w.InsertUint8(resp.NonFunctioningComponentIndication); err != nil {
		return 0, w.Discard(err)
	}
	if err := w.InsertUint64(resp.NonFunctioningComponentBitmap); err != nil {
		return 0, w.Discard(err)
	}
	return w.Pos(), w.Complete()
}

func DecodeCancelUpdateResponse(buf []byte) (CancelUpdateResponse, error) {
	r, err := msgbuf.NewReader(buf, 1)
	if err != nil {
		return CancelUpdateResponse{}, pldm.NewErr(pldm.KindInvalidLength, "cancel update response")
	}
	cc, err := r.ExtractUint8()
	if err != nil {
		return CancelUpdateResponse{}, r.Discard(err)
	}
	resp := CancelUpdateResponse{CompletionCode: pldm.Completion(cc)}
	if resp.CompletionCode != pldm.Success {
		return resp, r.Complete()
	}
	indication, err := r.ExtractUint8()
	if err != nil {
		return CancelUpdateResponse{}, r.Discard(err)
	}
	bitmap, err := r.ExtractUint64()
	if err != nil {
		return CancelUpdateResponse{}, r.Discard(err)
	}
	resp.NonFunctioningComponentIndication = indication
	resp.NonFunctioningComponentBitmap = bitmap
	return resp, r.CompleteConsumed()
}
