package fwup

import (
	"github.com/openbmc/go-pldm/msgbuf"
	"github.com/openbmc/go-pldm/pldm"
)

// RequestUpdateRequest is the UA's opening bid for an update session
// (spec §4.7: Idle + RequestUpdate -> LearnComponents).
type RequestUpdateRequest struct {
	MaximumTransferSize            uint32
	NumberOfComponents             uint16
	MaxOutstandingTransferRequests uint8
	PackageDataLength               uint16
	ComponentImageSetVersion       pldm.VersionString
}

// RequestUpdateResponse answers with how much FD metadata the UA
// should expect and whether a GetPackageData exchange will follow.
type RequestUpdateResponse struct {
	CompletionCode                  pldm.Completion
	FDMetaDataLength                uint16
	FDWillSendGetPackageDataCommand uint8
}

func EncodeRequestUpdateRequest(buf []byte, req RequestUpdateRequest) (int, error) {
	w, err := msgbuf.NewWriter(buf, 9)
	if err != nil {
		return 0, pldm.NewErr(pldm.KindInvalidLength, "request update request buffer")
	}
	if err := w.InsertUint32(req.MaximumTransferSize); err != nil {
		return 0, w.Discard(err)
	}
	if err := w.InsertUint16(req.NumberOfComponents); err != nil {
		return 0, w.Discard(err)
	}
	if err := w.InsertUint8(req.MaxOutstandingTransferRequests); err != nil {
		return 0, w.Discard(err)
	}
	if err := w.InsertUint16(req.PackageDataLength); err != nil {
		return 0, w.Discard(err)
	}
	if err := pldm.EncodeVersionString(w, req.ComponentImageSetVersion); err != nil {
		return 0, err
	}
	return w.Pos(), w.Complete()
}

func DecodeRequestUpdateRequest(buf []byte) (RequestUpdateRequest, error) {
	r, err := msgbuf.NewReader(buf, 9)
	if err != nil {
		return RequestUpdateRequest{}, pldm.NewErr(pldm.KindInvalidLength, "request update request")
	}
	maxTransfer, err := r.ExtractUint32()
	if err != nil {
		return RequestUpdateRequest{}, r.Discard(err)
	}
	numComponents, err := r.ExtractUint16()
	if err != nil {
		return RequestUpdateRequest{}, r.Discard(err)
	}
	maxOutstanding, err := r.ExtractUint8()
	if err != nil {
		return RequestUpdateRequest{}, r.Discard(err)
	}
	pkgDataLen, err := r.ExtractUint16()
	if err != nil {
		return RequestUpdateRequest{}, r.Discard(err)
	}
	version, err := pldm.DecodeVersionString(r)
	if err != nil {
		return RequestUpdateRequest{}, err
	}
	req := RequestUpdateRequest{
		MaximumTransferSize:            maxTransfer,
		NumberOfComponents:              numComponents,
		MaxOutstandingTransferRequests: maxOutstanding,
		PackageDataLength:              pkgDataLen,
		ComponentImageSetVersion:       version,
	}
	return req, r.CompleteConsumed()
}

func EncodeRequestUpdateResponse(buf []byte, resp RequestUpdateResponse) (int, error) {
	w, err := msgbuf.NewWriter(buf, 1)
	if err != nil {
		return 0, pldm.NewErr(pldm.KindInvalidLength, "request update response buffer")
	}
	if err := w.InsertUint8(uint8(resp.CompletionCode)); err != nil {
		return 0, w.Discard(err)
	}
	if resp.CompletionCode != pldm.Success {
		return w.Pos(), w.Complete()
	}
	if err := w.InsertUint16(resp.FDMetaDataLength); err != nil {
		return 0, w.Discard(err)
	}
	if err := w.InsertUint8(resp.FDWillSendGetPackageDataCommand); err != nil {
		return 0, w.Discard(err)
	}
	return w.Pos(), w.Complete()
}

func DecodeRequestUpdateResponse(buf []byte) (RequestUpdateResponse, error) {
	r, err := msgbuf.NewReader(buf, 1)
	if err != nil {
		return RequestUpdateResponse{}, pldm.NewErr(pldm.KindInvalidLength, "request update response")
	}
	cc, err := r.ExtractUint8()
	if err != nil {
		return RequestUpdateResponse{}, r.Discard(err)
	}
	resp := RequestUpdateResponse{CompletionCode: pldm.Completion(cc)}
	if resp.CompletionCode != pldm.Success {
		return resp, r.Complete()
	}
	metaLen, err := r.ExtractUint16()
	if err != nil {
		return RequestUpdateResponse{}, r.Discard(err)
	}
	willSend, err := r.ExtractUint8()
	if err != nil {
		return RequestUpdateResponse{}, r.Discard(err)
	}
	resp.FDMetaDataLength = metaLen
	resp.FDWillSendGetPackageDataCommand = willSend
	return resp, r.CompleteConsumed()
}

// PassComponentTableRequest announces one component ahead of the
// actual update (spec §4.7: LearnComponents).
type PassComponentTableRequest struct {
	TransferFlag        uint8
	Classification      uint16
	Identifier          uint16
	ClassificationIndex uint8
	ComparisonStamp     uint32
	Version             pldm.VersionString
}

type PassComponentTableResponse struct {
	CompletionCode     pldm.Completion
	ComponentResponse  uint8
	ComponentResponseCode uint8
}

func EncodePassComponentTableRequest(buf []byte, req PassComponentTableRequest) (int, error) {
	w, err := msgbuf.NewWriter(buf, 9)
	if err != nil {
		return 0, pldm.NewErr(pldm.KindInvalidLength, "pass component table request buffer")
	}
	if err := w.InsertUint8(req.TransferFlag); err != nil {
		return 0, w.Discard(err)
	}
	if err := w.InsertUint16(req.Classification); err != nil {
		return 0, w.Discard(err)
	}
	if err := w.InsertUint16(req.Identifier); err != nil {
		return 0, w.Discard(err)
	}
	if err := w.InsertUint8(req.ClassificationIndex); err != nil {
		return 0, w.Discard(err)
	}
	if err := w.InsertUint32(req.ComparisonStamp); err != nil {
		return 0, w.Discard(err)
	}
	if err := pldm.EncodeVersionString(w, req.Version); err != nil {
		return 0, err
	}
	return w.Pos(), w.Complete()
}

func DecodePassComponentTableRequest(buf []byte) (PassComponentTableRequest, error) {
	r, err := msgbuf.NewReader(buf, 9)
	if err != nil {
		return PassComponentTableRequest{}, pldm.NewErr(pldm.KindInvalidLength, "pass component table request")
	}
	flag, err := r.ExtractUint8()
	if err != nil {
		return PassComponentTableRequest{}, r.Discard(err)
	}
	classification, err := r.ExtractUint16()
	if err != nil {
		return PassComponentTableRequest{}, r.Discard(err)
	}
	identifier, err := r.ExtractUint16()
	if err != nil {
		return PassComponentTableRequest{}, r.Discard(err)
	}
	classIndex, err := r.ExtractUint8()
	if err != nil {
		return PassComponentTableRequest{}, r.Discard(err)
	}
	stamp, err := r.ExtractUint32()
	if err != nil {
		return PassComponentTableRequest{}, r.Discard(err)
	}
	version, err := pldm.DecodeVersionString(r)
	if err != nil {
		return PassComponentTableRequest{}, err
	}
	req := PassComponentTableRequest{
		TransferFlag:        flag,
		Classification:      classification,
		Identifier:          identifier,
		ClassificationIndex: classIndex,
		ComparisonStamp:     stamp,
		Version:             version,
	}
	return req, r.CompleteConsumed()
}

func EncodePassComponentTableResponse(buf []byte, resp PassComponentTableResponse) (int, error) {
	w, err := msgbuf.NewWriter(buf, 1)
	if err != nil {
		return 0, pldm.NewErr(pldm.KindInvalidLength, "pass component table response buffer")
	}
	if err := w.InsertUint8(uint8(resp.CompletionCode)); err != nil {
		return 0, w.Discard(err)
	}
	if resp.CompletionCode != pldm.Success {
		return w.Pos(), w.Complete()
	}
	if err := w.InsertUint8(resp.ComponentResponse); err != nil {
		return 0, w.Discard(err)
	}
	if err := w.InsertUint8(resp.ComponentResponseCode); err != nil {
		return 0, w.Discard(err)
	}
	return w.Pos(), w.Complete()
}

func DecodePassComponentTableResponse(buf []byte) (PassComponentTableResponse, error) {
	r, err := msgbuf.NewReader(buf, 1)
	if err != nil {
		return PassComponentTableResponse{}, pldm.NewErr(pldm.KindInvalidLength, "pass component table response")
	}
	cc, err := r.ExtractUint8()
	if err != nil {
		return PassComponentTableResponse{}, r.Discard(err)
	}
	resp := PassComponentTableResponse{CompletionCode: pldm.Completion(cc)}
	if resp.CompletionCode != pldm.Success {
		return resp, r.Complete()
	}
	compResp, err := r.ExtractUint8()
	if err != nil {
		return PassComponentTableResponse{}, r.Discard(err)
	}
	compRespCode, err := r.ExtractUint8()
	if err != nil {
		return PassComponentTableResponse{}, r.Discard(err)
	}
	resp.ComponentResponse = compResp
	resp.ComponentResponseCode = compRespCode
	return resp, r.CompleteConsumed()
}

// UpdateComponentRequest starts the transfer for one accepted
// component (spec §4.7: ReadyXfer + UpdateComponent -> Download).
type UpdateComponentRequest struct {
	Classification      uint16
	Identifier           uint16
	ClassificationIndex  uint8
	ComparisonStamp      uint32
	ImageSize            uint32
	UpdateOptionFlags    uint32
	Version              pldm.VersionString
}

type UpdateComponentResponse struct {
	CompletionCode                          pldm.Completion
	CompatibilityResponse                   uint8
	CompatibilityResponseCode               uint8
	UpdateOptionFlagsEnabled                uint32
	EstimatedTimeBeforeRequestFirmwareData  uint16
}

func EncodeUpdateComponentRequest(buf []byte, req UpdateComponentRequest) (int, error) {
	w, err := msgbuf.NewWriter(buf, 17)
	if err != nil {
		return 0, pldm.NewErr(pldm.KindInvalidLength, "update component request buffer")
	}
	if err := w.InsertUint16(req.Classification); err != nil {
		return 0, w.Discard(err)
	}
	if err := w.InsertUint16(req.Identifier); err != nil {
		return 0, w.Discard(err)
	}
	if err := w.InsertUint8(req.ClassificationIndex); err != nil {
		return 0, w.Discard(err)
	}
	if err := w.InsertUint32(req.ComparisonStamp); err != nil {
		return 0, w.Discard(err)
	}
	if err := w.InsertUint32(req.ImageSize); err != nil {
		return 0, w.Discard(err)
	}
	if err := w.InsertUint32(req.UpdateOptionFlags); err != nil {
		return 0, w.Discard(err)
	}
	if err := pldm.EncodeVersionString(w, req.Version); err != nil {
		return 0, err
	}
	return w.Pos(), w.Complete()
}

func DecodeUpdateComponentRequest(buf []byte) (UpdateComponentRequest, error) {
	r, err := msgbuf.NewReader(buf, 17)
	if err != nil {
		return UpdateComponentRequest{}, pldm.NewErr(pldm.KindInvalidLength, "update component request")
	}
	classification, err := r.ExtractUint16()
	if err != nil {
		return UpdateComponentRequest{}, r.Discard(err)
	}
	identifier, err := r.ExtractUint16()
	if err != nil {
		return UpdateComponentRequest{}, r.Discard(err)
	}
	classIndex, err := r.ExtractUint8()
	if err != nil {
		return UpdateComponentRequest{}, r.Discard(err)
	}
	stamp, err := r.ExtractUint32()
	if err != nil {
		return UpdateComponentRequest{}, r.Discard(err)
	}
	imageSize, err := r.ExtractUint32()
	if err != nil {
		return UpdateComponentRequest{}, r.Discard(err)
	}
	optionFlags, err := r.ExtractUint32()
	if err != nil {
		return UpdateComponentRequest{}, r.Discard(err)
	}
	version, err := pldm.DecodeVersionString(r)
	if err != nil {
		return UpdateComponentRequest{}, err
	}
	req := UpdateComponentRequest{
		Classification:      classification,
		Identifier:          identifier,
		ClassificationIndex: classIndex,
		ComparisonStamp:     stamp,
		ImageSize:           imageSize,
		UpdateOptionFlags:   optionFlags,
		Version:             version,
	}
	return req, r.CompleteConsumed()
}

func EncodeUpdateComponentResponse(buf []byte, resp UpdateComponentResponse) (int, error) {
	w, err := msgbuf.NewWriter(buf, 1)
	if err != nil {
		return 0, pldm.NewErr(pldm.KindInvalidLength, "update component response buffer")
	}
	if err := w.InsertUint8(uint8(resp.CompletionCode)); err != nil {
		return 0, w.Discard(err)
	}
	if resp.CompletionCode != pldm.Success {
		return w.Pos(), w.Complete()
	}
	if err := w.InsertUint8(resp.CompatibilityResponse); err != nil {
		return 0, w.Discard(err)
	}
	if err := w.InsertUint8(resp.CompatibilityResponseCode); err != nil {
		return 0, w.Discard(err)
	}
	if err := w.InsertUint32(resp.UpdateOptionFlagsEnabled); err != nil {
		return 0, w.Discard(err)
	}
	if err := w.InsertUint16(resp.EstimatedTimeBeforeRequestFirmwareData); err != nil {
		return 0, w.Discard(err)
	}
	return w.Pos(), w.Complete()
}

func DecodeUpdateComponentResponse(buf []byte) (UpdateComponentResponse, error) {
	r, err := msgbuf.NewReader(buf, 1)
	if err != nil {
		return UpdateComponentResponse{}, pldm.NewErr(pldm.KindInvalidLength, "update component response")
	}
	cc, err := r.ExtractUint8()
	if err != nil {
		return UpdateComponentResponse{}, r.Discard(err)
	}
	resp := UpdateComponentResponse{CompletionCode: pldm.Completion(cc)}
	if resp.CompletionCode != pldm.Success {
		return resp, r.Complete()
	}
	compatResp, err := r.ExtractUint8()
	if err != nil {
		return UpdateComponentResponse{}, r.Discard(err)
	}
	compatRespCode, err := r.ExtractUint8()
	if err != nil {
		return UpdateComponentResponse{}, r.Discard(err)
	}
	flagsEnabled, err := r.ExtractUint32()
	if err != nil {
		return UpdateComponentResponse{}, r.Discard(err)
	}
	estTime, err := r.ExtractUint16()
	if err != nil {
		return UpdateComponentResponse{}, r.Discard(err)
	}
	resp.CompatibilityResponse = compatResp
	resp.CompatibilityResponseCode = compatRespCode
	resp.UpdateOptionFlagsEnabled = flagsEnabled
	resp.EstimatedTimeBeforeRequestFirmwareData = estTime
	return resp, r.CompleteConsumed()
}
