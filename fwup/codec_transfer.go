package fwup

import (
	"github.com/openbmc/go-pldm/msgbuf"
	"github.com/openbmc/go-pldm/pldm"
)

// RequestFirmwareDataRequest is the FD-initiated pull for one chunk of
// component image data (spec §4.7: Download tick).
type RequestFirmwareDataRequest struct {
	Offset uint32
	Length uint32
}

func EncodeRequestFirmwareDataRequest(buf []byte, req RequestFirmwareDataRequest) (int, error) {
	w, err := msgbuf.NewWriter(buf, 8)
	if err != nil {
		return 0, pldm.NewErr(pldm.KindInvalidLength, "request firmware data request buffer")
	}
	if err := w.InsertUint32(req.Offset); err != nil {
		return 0, w.Discard(err)
	}
	if err := w.InsertUint32(req.Length); err != nil {
		return 0, w.Discard(err)
	}
	return w.Pos(), w.Complete()
}

func DecodeRequestFirmwareDataRequest(buf []byte) (RequestFirmwareDataRequest, error) {
	r, err := msgbuf.NewReader(buf, 8)
	if err != nil {
		return RequestFirmwareDataRequest{}, pldm.NewErr(pldm.KindInvalidLength, "request firmware data request")
	}
	offset, err := r.ExtractUint32()
	if err != nil {
		return RequestFirmwareDataRequest{}, r.Discard(err)
	}
	length, err := r.ExtractUint32()
	if err != nil {
		return RequestFirmwareDataRequest{}, r.Discard(err)
	}
	req := RequestFirmwareDataRequest{Offset: offset, Length: length}
	return req, r.CompleteConsumed()
}

// RequestFirmwareDataResponse carries cc and, on success, the
// requested chunk. Data aliases the decoder's input buffer.
type RequestFirmwareDataResponse struct {
	CompletionCode pldm.Completion
	Data           []byte
}

func EncodeRequestFirmwareDataResponse(buf []byte, resp RequestFirmwareDataResponse) (int, error) {
	w, err := msgbuf.NewWriter(buf, 1)
	if err != nil {
		return 0, pldm.NewErr(pldm.KindInvalidLength, "request firmware data response buffer")
	}
	if err := w.InsertUint8(uint8(resp.CompletionCode)); err != nil {
		return 0, w.Discard(err)
	}
	if resp.CompletionCode != pldm.Success {
		return w.Pos(), w.Complete()
	}
	if err := w.InsertArray(resp.Data); err != nil {
		return 0, w.Discard(err)
	}
	return w.Pos(), w.Complete()
}

// DecodeRequestFirmwareDataResponse decodes cc and the data chunk. The
// returned Data span aliases buf; callers must not retain it past
// buf's lifetime.
func DecodeRequestFirmwareDataResponse(buf []byte) (RequestFirmwareDataResponse, error) {
	r, err := msgbuf.NewReader(buf, 1)
	if err != nil {
		return RequestFirmwareDataResponse{}, pldm.NewErr(pldm.KindInvalidLength, "request firmware data response")
	}
	cc, err := r.ExtractUint8()
	if err != nil {
		return RequestFirmwareDataResponse{}, r.Discard(err)
	}
	resp := RequestFirmwareDataResponse{CompletionCode: pldm.Completion(cc)}
	if resp.CompletionCode != pldm.Success {
		return resp, r.Complete()
	}
	data, err := r.SpanRequired(int(r.Remaining()))
	if err != nil {
		return RequestFirmwareDataResponse{}, r.Discard(err)
	}
	resp.Data = data
	return resp, r.CompleteConsumed()
}

// TransferCompleteRequest reports the outcome of the component's
// image transfer (spec §4.7: Download -> Verify on success).
type TransferCompleteRequest struct {
	TransferResult uint8
}

func EncodeTransferCompleteRequest(buf []byte, req TransferCompleteRequest) (int, error) {
	w, err := msgbuf.NewWriter(buf, 1)
	if err != nil {
		return 0, pldm.NewErr(pldm.KindInvalidLength, "transfer complete request buffer")
	}
	if err := w.InsertUint8(req.TransferResult); err != nil {
		return 0, w.Discard(err)
	}
	return w.Pos(), w.Complete()
}

func DecodeTransferCompleteRequest(buf []byte) (TransferCompleteRequest, error) {
	r, err := msgbuf.NewReader(buf, 1)
	if err != nil {
		return TransferCompleteRequest{}, pldm.NewErr(pldm.KindInvalidLength, "transfer complete request")
	}
	result, err := r.ExtractUint8()
	if err != nil {
		return TransferCompleteRequest{}, r.Discard(err)
	}
	req := TransferCompleteRequest{TransferResult: result}
	return req, r.CompleteConsumed()
}

func encodeSimpleCompletionResponse(buf []byte, cc pldm.Completion) (int, error) {
	w, err := msgbuf.NewWriter(buf, 1)
	if err != nil {
		return 0, pldm.NewErr(pldm.KindInvalidLength, "response buffer")
	}
	if err := w.InsertUint8(uint8(cc)); err != nil {
		return 0, w.Discard(err)
	}
	return w.Pos(), w.CompleteConsumed()
}

func decodeSimpleCompletionResponse(buf []byte) (pldm.Completion, error) {
	r, err := msgbuf.NewReader(buf, 1)
	if err != nil {
		return 0, pldm.NewErr(pldm.KindInvalidLength, "response")
	}
	cc, err := r.ExtractUint8()
	if err != nil {
		return 0, r.Discard(err)
	}
	return pldm.Completion(cc), r.CompleteConsumed()
}

// EncodeTransferCompleteResponse writes the (cc-only) response.
func EncodeTransferCompleteResponse(buf []byte, cc pldm.Completion) (int, error) {
	return encodeSimpleCompletionResponse(buf, cc)
}

// DecodeTransferCompleteResponse decodes the (cc-only) response.
func DecodeTransferCompleteResponse(buf []byte) (pldm.Completion, error) {
	return decodeSimpleCompletionResponse(buf)
}

// VerifyCompleteRequest reports the outcome of image verification
// (spec §4.7: Verify -> Apply on success).
type VerifyCompleteRequest struct {
	VerifyResult uint8
}

func EncodeVerifyCompleteRequest(buf []byte, req VerifyCompleteRequest) (int, error) {
	w, err := msgbuf.NewWriter(buf, 1)
	if err != nil {
		return 0, pldm.NewErr(pldm.KindInvalidLength, "verify complete request buffer")
	}
	if err := w.InsertUint8(req.VerifyResult); err != nil {
		return 0, w.Discard(err)
	}
	return w.Pos(), w.Complete()
}

func DecodeVerifyCompleteRequest(buf []byte) (VerifyCompleteRequest, error) {
	r, err := msgbuf.NewReader(buf, 1)
	if err != nil {
		return VerifyCompleteRequest{}, pldm.NewErr(pldm.KindInvalidLength, "verify complete request")
	}
	result, err := r.ExtractUint8()
	if err != nil {
		return VerifyCompleteRequest{}, r.Discard(err)
	}
	return VerifyCompleteRequest{VerifyResult: result}, r.CompleteConsumed()
}

func EncodeVerifyCompleteResponse(buf []byte, cc pldm.Completion) (int, error) {
	return encodeSimpleCompletionResponse(buf, cc)
}

func DecodeVerifyCompleteResponse(buf []byte) (pldm.Completion, error) {
	return decodeSimpleCompletionResponse(buf)
}

// ApplyCompleteRequest reports the outcome of applying the update
// (spec §4.7: Apply -> ReadyXfer on success).
type ApplyCompleteRequest struct {
	ApplyResult                               uint8
	ComponentActivationMethodsModification    uint16
}

func EncodeApplyCompleteRequest(buf []byte, req ApplyCompleteRequest) (int, error) {
	w, err := msgbuf.NewWriter(buf, 3)
	if err != nil {
		return 0, pldm.NewErr(pldm.KindInvalidLength, "apply complete request buffer")
	}
	if err := w.InsertUint8(req.ApplyResult); err != nil {
		return 0, w.Discard(err)
	}
	if err := w.InsertUint16(req.ComponentActivationMethodsModification); err != nil {
		return 0, w.Discard(err)
	}
	return w.Pos(), w.Complete()
}

func DecodeApplyCompleteRequest(buf []byte) (ApplyCompleteRequest, error) {
	r, err := msgbuf.NewReader(buf, 3)
	if err != nil {
		return ApplyCompleteRequest{}, pldm.NewErr(pldm.KindInvalidLength, "apply complete request")
	}
	result, err := r.ExtractUint8()
	if err != nil {
		return ApplyCompleteRequest{}, r.Discard(err)
	}
	modification, err := r.ExtractUint16()
	if err != nil {
		return ApplyCompleteRequest{}, r.Discard(err)
	}
	req := ApplyCompleteRequest{
		ApplyResult:                            result,
		ComponentActivationMethodsModification: modification,
	}
	return req, r.CompleteConsumed()
}

func EncodeApplyCompleteResponse(buf []byte, cc pldm.Completion) (int, error) {
	return encodeSimpleCompletionResponse(buf, cc)
}

func DecodeApplyCompleteResponse(buf []byte) (pldm.Completion, error) {
	return decodeSimpleCompletionResponse(buf)
}
