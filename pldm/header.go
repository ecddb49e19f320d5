// Package pldm implements the PLDM message header, completion-code
// taxonomy, and the small set of wire types (typed strings,
// descriptors, TIMESTAMP104) shared by the FWUP codecs, the PDR layer,
// and the responders.
package pldm

import "github.com/openbmc/go-pldm/msgbuf"

// HeaderVersion is the only header version this implementation
// accepts.
const HeaderVersion = 0

// Header is the fixed 3-byte PLDM message header.
type Header struct {
	InstanceID uint8 // 5 bits
	Datagram   bool
	Request    bool
	Type       uint8 // 6 bits
	HeaderVer  uint8 // 2 bits, must be HeaderVersion
	Command    uint8
}

// Size is the on-wire size of a PLDM header in bytes.
const Size = 3

// Decode reads a 3-byte header from buf.
func Decode(buf []byte) (Header, error) {
	r, err := msgbuf.NewReader(buf, Size)
	if err != nil {
		return Header{}, err
	}
	b0, err := r.ExtractUint8()
	if err != nil {
		return Header{}, r.Discard(err)
	}
	b1, err := r.ExtractUint8()
	if err != nil {
		return Header{}, r.Discard(err)
	}
	cmd, err := r.ExtractUint8()
	if err != nil {
		return Header{}, r.Discard(err)
	}

	h := Header{
		InstanceID: b0 & 0x1f,
		Datagram:   b0&0x40 != 0,
		Request:    b0&0x80 != 0,
		Type:       b1 & 0x3f,
		HeaderVer:  b1 >> 6,
		Command:    cmd,
	}
	return h, nil
}

// Encode writes h into the first 3 bytes of buf.
func Encode(h Header, buf []byte) error {
	w, err := msgbuf.NewWriter(buf, Size)
	if err != nil {
		return err
	}
	b0 := h.InstanceID & 0x1f
	if h.Datagram {
		b0 |= 0x40
	}
	if h.Request {
		b0 |= 0x80
	}
	b1 := (h.Type & 0x3f) | (h.HeaderVer << 6)

	if err := w.InsertUint8(b0); err != nil {
		return w.Discard(err)
	}
	if err := w.InsertUint8(b1); err != nil {
		return w.Discard(err)
	}
	if err := w.InsertUint8(h.Command); err != nil {
		return w.Discard(err)
	}
	return nil
}

// Valid reports whether h has a recognised header version and an
// instance ID that fits in 5 bits. The request and datagram bits are
// not checked, either against each other or against a role.
func (h Header) Valid() bool {
	if h.HeaderVer != HeaderVersion {
		return false
	}
	if h.InstanceID > 0x1f {
		return false
	}
	return true
}

// Correlates reports whether resp is the response to the request req:
// matching instance ID, type, and command, with the response bit set
// on resp (i.e. resp.Request == false).
func (req Header) Correlates(resp Header) bool {
	if resp.Request {
		return false
	}
	return req.InstanceID == resp.InstanceID &&
		req.Type == resp.Type &&
		req.Command == resp.Command
}
