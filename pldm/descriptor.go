package pldm

import "github.com/openbmc/go-pldm/msgbuf"

// DescriptorVendorDefined is the reserved descriptor type whose data
// nests a title string and vendor-specific bytes.
const DescriptorVendorDefined uint16 = 0xffff

// Descriptor is one (type, length, data) TLV entry from a firmware
// device ID record's descriptor list. Data aliases the parser's input
// buffer; callers must not retain it past the buffer's lifetime.
type Descriptor struct {
	Type uint16
	Data []byte

	// Populated only when Type == DescriptorVendorDefined.
	VendorTitle string
	VendorData  []byte
}

// DecodeDescriptor reads one descriptor TLV from r. If the descriptor
// type is the reserved vendor-defined type, the data is further
// decoded into a title string and vendor-specific bytes.
func DecodeDescriptor(r *msgbuf.Reader) (Descriptor, error) {
	typ, err := r.ExtractUint16()
	if err != nil {
		return Descriptor{}, r.Discard(err)
	}
	length, err := r.ExtractUint16()
	if err != nil {
		return Descriptor{}, r.Discard(err)
	}
	data, err := r.SpanRequired(int(length))
	if err != nil {
		return Descriptor{}, r.Discard(err)
	}

	d := Descriptor{Type: typ, Data: data}
	if typ != DescriptorVendorDefined {
		return d, nil
	}

	dr, err := msgbuf.NewReader(data, 2)
	if err != nil {
		return Descriptor{}, NewErr(KindInvalidLength, "vendor-defined descriptor too short")
	}
	titleType, err := dr.ExtractUint8()
	if err != nil {
		return Descriptor{}, dr.Discard(err)
	}
	titleLen, err := dr.ExtractUint8()
	if err != nil {
		return Descriptor{}, dr.Discard(err)
	}
	titleBytes, err := dr.SpanRequired(int(titleLen))
	if err != nil {
		return Descriptor{}, dr.Discard(err)
	}
	if StringType(titleType) == StrTypeASCII || StringType(titleType) == StrTypeUTF8 {
		d.VendorTitle = string(titleBytes)
	}
	vendorData, err := dr.SpanRequired(int(dr.Remaining()))
	if err != nil {
		return Descriptor{}, dr.Discard(err)
	}
	d.VendorData = vendorData
	if err := dr.CompleteConsumed(); err != nil {
		return Descriptor{}, err
	}
	return d, nil
}
