package fwup

import (
	"github.com/openbmc/go-pldm/msgbuf"
	"github.com/openbmc/go-pldm/pldm"
)

// QueryDeviceIdentifiers has an empty request payload; only the
// response carries the device's descriptor list.
type QueryDeviceIdentifiersResponse struct {
	CompletionCode   pldm.Completion
	DescriptorsCount uint8
	Descriptors      []pldm.Descriptor
}

// DecodeQueryDeviceIdentifiersRequest validates that the request
// carries no payload (spec §4.4: reject undersized/oversized payloads).
func DecodeQueryDeviceIdentifiersRequest(buf []byte) error {
	r, err := msgbuf.NewReader(buf, 0)
	if err != nil {
		return pldm.NewErr(pldm.KindInvalidLength, "query device identifiers request")
	}
	return r.CompleteConsumed()
}

// EncodeQueryDeviceIdentifiersRequest writes the (empty) request body.
func EncodeQueryDeviceIdentifiersRequest(buf []byte) error {
	w, err := msgbuf.NewWriter(buf, 0)
	if err != nil {
		return pldm.NewErr(pldm.KindInvalidLength, "query device identifiers request buffer")
	}
	return w.CompleteConsumed()
}

// EncodeQueryDeviceIdentifiersResponse writes cc and, on success, the
// length-prefixed descriptor list.
func EncodeQueryDeviceIdentifiersResponse(buf []byte, resp QueryDeviceIdentifiersResponse) (int, error) {
	w, err := msgbuf.NewWriter(buf, 1)
	if err != nil {
		return 0, pldm.NewErr(pldm.KindInvalidLength, "query device identifiers response buffer")
	}
	if err := w.InsertUint8(uint8(resp.CompletionCode)); err != nil {
		return 0, w.Discard(err)
	}
	if resp.CompletionCode != pldm.Success {
		return w.Pos(), w.Complete()
	}

	descBuf, err := encodeDescriptors(resp.Descriptors)
	if err != nil {
		return 0, err
	}
	if err := w.InsertUint32(uint32(len(descBuf))); err != nil {
		return 0, w.Discard(err)
	}
	if err := w.InsertUint8(uint8(len(resp.Descriptors))); err != nil {
		return 0, w.Discard(err)
	}
	if err := w.InsertArray(descBuf); err != nil {
		return 0, w.Discard(err)
	}
	return w.Pos(), w.Complete()
}

// DecodeQueryDeviceIdentifiersResponse decodes cc and, on success, the
// descriptor list.
func DecodeQueryDeviceIdentifiersResponse(buf []byte) (QueryDeviceIdentifiersResponse, error) {
	r, err := msgbuf.NewReader(buf, 1)
	if err != nil {
		return QueryDeviceIdentifiersResponse{}, pldm.NewErr(pldm.KindInvalidLength, "query device identifiers response")
	}
	cc, err := r.ExtractUint8()
	if err != nil {
		return QueryDeviceIdentifiersResponse{}, r.Discard(err)
	}
	resp := QueryDeviceIdentifiersResponse{CompletionCode: pldm.Completion(cc)}
	if resp.CompletionCode != pldm.Success {
		return resp, r.Complete()
	}

	descLen, err := r.ExtractUint32()
	if err != nil {
		return QueryDeviceIdentifiersResponse{}, r.Discard(err)
	}
	count, err := r.ExtractUint8()
	if err != nil {
		return QueryDeviceIdentifiersResponse{}, r.Discard(err)
	}
	resp.DescriptorsCount = count

	span, err := r.SpanRequired(int(descLen))
	if err != nil {
		return QueryDeviceIdentifiersResponse{}, r.Discard(err)
	}
	descs, err := decodeDescriptors(span, int(count))
	if err != nil {
		return QueryDeviceIdentifiersResponse{}, err
	}
	resp.Descriptors = descs

	return resp, r.CompleteConsumed()
}

func encodeDescriptors(descriptors []pldm.Descriptor) ([]byte, error) {
	size := 0
	for _, d := range descriptors {
		size += 4 + len(d.Data)
	}
	buf := make([]byte, size)
	w, err := msgbuf.NewWriter(buf, 0)
	if err != nil {
		return nil, pldm.NewErr(pldm.KindInvalidLength, "descriptor list buffer")
	}
	for _, d := range descriptors {
		if err := w.InsertUint16(d.Type); err != nil {
			return nil, w.Discard(err)
		}
		if err := w.InsertUint16(uint16(len(d.Data))); err != nil {
			return nil, w.Discard(err)
		}
		if err := w.InsertArray(d.Data); err != nil {
			return nil, w.Discard(err)
		}
	}
	return w.Bytes(), w.Complete()
}

func decodeDescriptors(span []byte, count int) ([]pldm.Descriptor, error) {
	r, err := msgbuf.NewReader(span, 0)
	if err != nil {
		return nil, pldm.NewErr(pldm.KindInvalidLength, "descriptor list")
	}
	descs := make([]pldm.Descriptor, 0, count)
	for i := 0; i < count; i++ {
		d, err := pldm.DecodeDescriptor(r)
		if err != nil {
			return nil, err
		}
		descs = append(descs, d)
	}
	return descs, r.Complete()
}

// ComponentParameterEntry is one entry of GetFirmwareParameters'
// response, describing a single component's active/pending version
// state.
type ComponentParameterEntry struct {
	Classification           uint16
	Identifier               uint16
	ClassificationIndex      uint8
	ActiveComparisonStamp    uint32
	ActiveVersion            pldm.VersionString
	PendingComparisonStamp   uint32
	PendingVersion           pldm.VersionString
	ActivationMethods        uint16
	CapabilitiesDuringUpdate uint32
}

// GetFirmwareParametersResponse is the decoded GetFirmwareParameters
// reply: imageset-level version strings plus one entry per component.
type GetFirmwareParametersResponse struct {
	CompletionCode           pldm.Completion
	CapabilitiesDuringUpdate uint32
	ComponentCount           uint16
	ActiveImageSetVersion    pldm.VersionString
	PendingImageSetVersion   pldm.VersionString
	Components               []ComponentParameterEntry
}


// DecodeGetFirmwareParametersRequest validates the (empty) request.
func DecodeGetFirmwareParametersRequest(buf []byte) error {
	r, err := msgbuf.NewReader(buf, 0)
	if err != nil {
		return pldm.NewErr(pldm.KindInvalidLength, "get firmware parameters request")
	}
	return r.CompleteConsumed()
}

// EncodeGetFirmwareParametersRequest writes the (empty) request body.
func EncodeGetFirmwareParametersRequest(buf []byte) error {
	w, err := msgbuf.NewWriter(buf, 0)
	if err != nil {
		return pldm.NewErr(pldm.KindInvalidLength, "get firmware parameters request buffer")
	}
	return w.CompleteConsumed()
}

// EncodeGetFirmwareParametersResponse writes resp to buf, returning the
// number of bytes written.
func EncodeGetFirmwareParametersResponse(buf []byte, resp GetFirmwareParametersResponse) (int, error) {
	w, err := msgbuf.NewWriter(buf, 1)
	if err != nil {
		return 0, pldm.NewErr(pldm.KindInvalidLength, "get firmware parameters response buffer")
	}
	if err := w.InsertUint8(uint8(resp.CompletionCode)); err != nil {
		return 0, w.Discard(err)
	}
	if resp.CompletionCode != pldm.Success {
		return w.Pos(), w.Complete()
	}

	if err := w.InsertUint32(resp.CapabilitiesDuringUpdate); err != nil {
		return 0, w.Discard(err)
	}
	if err := w.InsertUint16(uint16(len(resp.Components))); err != nil {
		return 0, w.Discard(err)
	}
	if err := pldm.EncodeVersionString(w, resp.ActiveImageSetVersion); err != nil {
		return 0, err
	}
	if err := pldm.EncodeVersionString(w, resp.PendingImageSetVersion); err != nil {
		return 0, err
	}
	for _, c := range resp.Components {
		if err := encodeComponentParameterEntry(w, c); err != nil {
			return 0, err
		}
	}
	return w.Pos(), w.Complete()
}

func encodeComponentParameterEntry(w *msgbuf.Writer, c ComponentParameterEntry) error {
	if err := w.InsertUint16(c.Classification); err != nil {
		return w.Discard(err)
	}
	if err := w.InsertUint16(c.Identifier); err != nil {
		return w.Discard(err)
	}
	if err := w.InsertUint8(c.ClassificationIndex); err != nil {
		return w.Discard(err)
	}
	if err := w.InsertUint32(c.ActiveComparisonStamp); err != nil {
		return w.Discard(err)
	}
	if err := pldm.EncodeVersionString(w, c.ActiveVersion); err != nil {
		return err
	}
	if err := w.InsertUint32(c.PendingComparisonStamp); err != nil {
		return w.Discard(err)
	}
	if err := pldm.EncodeVersionString(w, c.PendingVersion); err != nil {
		return err
	}
	if err := w.InsertUint16(c.ActivationMethods); err != nil {
		return w.Discard(err)
	}
	if err := w.InsertUint32(c.CapabilitiesDuringUpdate); err != nil {
		return w.Discard(err)
	}
	return nil
}

func decodeComponentParameterEntry(r *msgbuf.Reader) (ComponentParameterEntry, error) {
	classification, err := r.ExtractUint16()
	if err != nil {
		return ComponentParameterEntry{}, r.Discard(err)
	}
	identifier, err := r.ExtractUint16()
	if err != nil {
		return ComponentParameterEntry{}, r.Discard(err)
	}
	classIndex, err := r.ExtractUint8()
	if err != nil {
		return ComponentParameterEntry{}, r.Discard(err)
	}
	activeStamp, err := r.ExtractUint32()
	if err != nil {
		return ComponentParameterEntry{}, r.Discard(err)
	}
	activeVersion, err := pldm.DecodeVersionString(r)
	if err != nil {
		return ComponentParameterEntry{}, err
	}
	pendingStamp, err := r.ExtractUint32()
	if err != nil {
		return ComponentParameterEntry{}, r.Discard(err)
	}
	pendingVersion, err := pldm.DecodeVersionString(r)
	if err != nil {
		return ComponentParameterEntry{}, err
	}
	methods, err := r.ExtractUint16()
	if err != nil {
		return ComponentParameterEntry{}, r.Discard(err)
	}
	caps, err := r.ExtractUint32()
	if err != nil {
		return ComponentParameterEntry{}, r.Discard(err)
	}
	return ComponentParameterEntry{
		Classification:           classification,
		Identifier:               identifier,
		ClassificationIndex:      classIndex,
		ActiveComparisonStamp:    activeStamp,
		ActiveVersion:            activeVersion,
		PendingComparisonStamp:   pendingStamp,
		PendingVersion:           pendingVersion,
		ActivationMethods:        methods,
		CapabilitiesDuringUpdate: caps,
	}, nil
}

// DecodeGetFirmwareParametersResponse decodes buf into a
// GetFirmwareParametersResponse.
func DecodeGetFirmwareParametersResponse(buf []byte) (GetFirmwareParametersResponse, error) {
	r, err := msgbuf.NewReader(buf, 1)
	if err != nil {
		return GetFirmwareParametersResponse{}, pldm.NewErr(pldm.KindInvalidLength, "get firmware parameters response")
	}
	cc, err := r.ExtractUint8()
	if err != nil {
		return GetFirmwareParametersResponse{}, r.Discard(err)
	}
	resp := GetFirmwareParametersResponse{CompletionCode: pldm.Completion(cc)}
	if resp.CompletionCode != pldm.Success {
		return resp, r.Complete()
	}

	caps, err := r.ExtractUint32()
	if err != nil {
		return GetFirmwareParametersResponse{}, r.Discard(err)
	}
	resp.CapabilitiesDuringUpdate = caps

	count, err := r.ExtractUint16()
	if err != nil {
		return GetFirmwareParametersResponse{}, r.Discard(err)
	}
	resp.ComponentCount = count

	resp.ActiveImageSetVersion, err = pldm.DecodeVersionString(r)
	if err != nil {
		return GetFirmwareParametersResponse{}, err
	}
	resp.PendingImageSetVersion, err = pldm.DecodeVersionString(r)
	if err != nil {
		return GetFirmwareParametersResponse{}, err
	}

	resp.Components = make([]ComponentParameterEntry, 0, count)
	for i := 0; i < int(count); i++ {
		entry, err := decodeComponentParameterEntry(r)
		if err != nil {
			return GetFirmwareParametersResponse{}, err
		}
		resp.Components = append(resp.Components, entry)
	}

	return resp, r.CompleteConsumed()
}
