package fwup

import (
	"github.com/openbmc/go-pldm/msgbuf"
	"github.com/openbmc/go-pldm/pldm"
)

// DeviceIDRecord is one firmware-device-ID record (spec §3.3). Data
// fields (ApplicableComponents, FirmwareDevicePackageData) and every
// Descriptor's Data/VendorData alias the parser's input buffer.
type DeviceIDRecord struct {
	RecordLength            uint16
	DeviceUpdateOptionFlags uint32
	ApplicableComponents    []byte // ComponentBitmapBitLength/8 bytes
	ComponentVersion        pldm.VersionString
	Descriptors             []pldm.Descriptor
	PackageData             []byte // never nil; len 0 with a valid (possibly empty) slice is distinct from absent
}

// decodeDeviceIDRecord reads one device-ID record from r, validating
// that its declared record length exactly covers the descriptor TLV
// list and every other declared field (spec §4.3). bitmapBitLen is the
// header's declared component-bitmap bit length.
func decodeDeviceIDRecord(r *msgbuf.Reader, bitmapBitLen uint16) (DeviceIDRecord, int, error) {
	startPos := r.Pos()

	recordLength, err := r.ExtractUint16()
	if err != nil {
		return DeviceIDRecord{}, 0, r.Discard(pldm.NewErr(pldm.KindInvalidLength, "device-id record length"))
	}
	descriptorCount, err := r.ExtractUint8()
	if err != nil {
		return DeviceIDRecord{}, 0, r.Discard(pldm.NewErr(pldm.KindInvalidLength, "device-id descriptor count"))
	}
	optionFlags, err := r.ExtractUint32()
	if err != nil {
		return DeviceIDRecord{}, 0, r.Discard(pldm.NewErr(pldm.KindInvalidLength, "device-id option flags"))
	}
	verType, err := r.ExtractUint8()
	if err != nil {
		return DeviceIDRecord{}, 0, err
	}
	verLen, err := r.ExtractUint8()
	if err != nil {
		return DeviceIDRecord{}, 0, err
	}
	pkgDataLen, err := r.ExtractUint16()
	if err != nil {
		return DeviceIDRecord{}, 0, err
	}

	bitmapBytes := int(bitmapBitLen / 8)
	applicable, err := r.SpanRequired(bitmapBytes)
	if err != nil {
		return DeviceIDRecord{}, 0, r.Discard(ErrBitmapLength)
	}

	verSpan, err := r.SpanRequired(int(verLen))
	if err != nil {
		return DeviceIDRecord{}, 0, err
	}
	compVersion := decodeVersionStringParts(pldm.StringType(verType), verSpan)

	descriptors := make([]pldm.Descriptor, 0, descriptorCount)
	for i := 0; i < int(descriptorCount); i++ {
		d, derr := pldm.DecodeDescriptor(r)
		if derr != nil {
			return DeviceIDRecord{}, 0, r.Discard(derr)
		}
		descriptors = append(descriptors, d)
	}

	pkgData, err := r.SpanRequired(int(pkgDataLen))
	if err != nil {
		return DeviceIDRecord{}, 0, err
	}

	consumed := r.Pos() - startPos
	if consumed != int(recordLength) {
		return DeviceIDRecord{}, 0, ErrDescriptorLength
	}

	rec := DeviceIDRecord{
		RecordLength:            recordLength,
		DeviceUpdateOptionFlags: optionFlags,
		ApplicableComponents:    applicable,
		ComponentVersion:        compVersion,
		Descriptors:             descriptors,
		PackageData:             pkgData,
	}
	return rec, consumed, nil
}

// decodeVersionStringParts builds a pldm.VersionString from a type
// byte and a pre-sliced span, matching pldm.DecodeVersionString's
// byte-preserving decode rule without re-reading the length prefix
// (which, in a device-ID record, is a separate field from the string
// bytes rather than immediately preceding them).
func decodeVersionStringParts(t pldm.StringType, span []byte) pldm.VersionString {
	vs := pldm.VersionString{Type: t}
	switch t {
	case pldm.StrTypeASCII, pldm.StrTypeUTF8:
		vs.Str = string(span)
	case pldm.StrTypeUTF16, pldm.StrTypeUTF16LE, pldm.StrTypeUTF16BE:
		if decoded, err := msgbuf.DecodeUTF16LE(span); err == nil {
			vs.Str = decoded
		}
	}
	return vs
}

// DeviceIDRecords returns a lazy iterator over the package's
// firmware-device-ID records, re-decoding each record from the
// original buffer on every iteration so no records are held in
// memory at once.
func (p *Package) DeviceIDRecords() func(yield func(DeviceIDRecord) bool) {
	return func(yield func(DeviceIDRecord) bool) {
		r, err := msgbuf.NewReader(p.buf[p.deviceIDRecordsOffset:], 0)
		if err != nil {
			return
		}
		for i := 0; i < int(p.Header.DeviceIDRecordCount); i++ {
			rec, _, err := decodeDeviceIDRecord(r, p.Header.ComponentBitmapBitLength)
			if err != nil {
				return
			}
			if !yield(rec) {
				return
			}
		}
	}
}

// DownstreamDeviceIDRecords returns a lazy iterator over the
// package's downstream-device-ID records, structurally identical to
// DeviceIDRecords (see the note on scanDownstreamDeviceIDRecords).
func (p *Package) DownstreamDeviceIDRecords() func(yield func(DeviceIDRecord) bool) {
	return func(yield func(DeviceIDRecord) bool) {
		r, err := msgbuf.NewReader(p.buf[p.downstreamDeviceIDRecordsOffset:], 1)
		if err != nil {
			return
		}
		if _, err := r.ExtractUint8(); err != nil {
			return
		}
		for i := 0; i < int(p.downstreamDeviceIDRecordCount); i++ {
			rec, _, err := decodeDeviceIDRecord(r, p.Header.ComponentBitmapBitLength)
			if err != nil {
				return
			}
			if !yield(rec) {
				return
			}
		}
	}
}
