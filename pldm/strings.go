package pldm

import "github.com/openbmc/go-pldm/msgbuf"

// StringType is the 1-byte type prefix PLDM uses for variable-length
// strings on the wire.
type StringType uint8

const (
	StrTypeUnknown StringType = 0
	StrTypeASCII   StringType = 1
	StrTypeUTF8    StringType = 2
	StrTypeUTF16   StringType = 3
	StrTypeUTF16LE StringType = 4
	StrTypeUTF16BE StringType = 5
)

// VersionString is a typed, length-prefixed PLDM string field (used
// for package-version strings, component-version strings, and
// imageset version strings).
type VersionString struct {
	Type StringType
	Str  string
}

// DecodeVersionString reads a 1-byte type, 1-byte length, then length
// bytes of string data from r.
//
// Per the decided Open Question on string-type handling (spec §9,
// DESIGN.md), decoding is byte-preserving: ASCII/UTF-8 bytes are kept
// exactly as given. String types other than ASCII/UTF-8/UTF-16 decode
// to an empty string rather than erroring.
func DecodeVersionString(r *msgbuf.Reader) (VersionString, error) {
	t, err := r.ExtractUint8()
	if err != nil {
		return VersionString{}, r.Discard(err)
	}
	length, err := r.ExtractUint8()
	if err != nil {
		return VersionString{}, r.Discard(err)
	}
	span, err := r.SpanRequired(int(length))
	if err != nil {
		return VersionString{}, r.Discard(err)
	}

	vs := VersionString{Type: StringType(t)}
	switch vs.Type {
	case StrTypeASCII, StrTypeUTF8:
		vs.Str = string(span)
	case StrTypeUTF16, StrTypeUTF16LE, StrTypeUTF16BE:
		decoded, derr := msgbuf.DecodeUTF16LE(span)
		if derr == nil {
			vs.Str = decoded
		}
	default:
		vs.Str = ""
	}
	return vs, nil
}

// EncodeVersionString writes the 1-byte type, 1-byte length, and
// string bytes of vs. The string bytes are written verbatim whatever
// the type; a string longer than 255 bytes is rejected with a
// KindInvalidLength error.
func EncodeVersionString(w *msgbuf.Writer, vs VersionString) error {
	if err := w.InsertUint8(uint8(vs.Type)); err != nil {
		return w.Discard(err)
	}
	if len(vs.Str) > 255 {
		return w.Discard(NewErr(KindInvalidLength, "version string too long"))
	}
	if err := w.InsertUint8(uint8(len(vs.Str))); err != nil {
		return w.Discard(err)
	}
	if err := w.InsertArray([]byte(vs.Str)); err != nil {
		return w.Discard(err)
	}
	return nil
}
