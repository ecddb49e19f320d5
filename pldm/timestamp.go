package pldm

import (
	"fmt"
	"time"

	"github.com/openbmc/go-pldm/msgbuf"
)

// Timestamp104Size is the on-wire size in bytes of a TIMESTAMP104
// value (spec §3.3).
const Timestamp104Size = 13

// Timestamp104 is the PLDM TIMESTAMP104 BCD-encoded date/time value
// used in firmware-update package headers for the release date.
type Timestamp104 struct {
	Microseconds uint32 // 3 bytes, binary
	UTCOffset    int16  // minutes, binary
	Year         uint16 // BCD
	Month        uint8  // BCD
	Day          uint8  // BCD
	Hour         uint8  // BCD
	Minute       uint8  // BCD
	Second       uint8  // BCD
}

// DecodeTimestamp104 reads a 13-byte TIMESTAMP104 field from r.
func DecodeTimestamp104(r *msgbuf.Reader) (Timestamp104, error) {
	span, err := r.SpanRequired(Timestamp104Size)
	if err != nil {
		return Timestamp104{}, r.Discard(err)
	}

	us := uint32(span[0]) | uint32(span[1])<<8 | uint32(span[2])<<16
	offset := int16(uint16(span[3]) | uint16(span[4])<<8)

	t := Timestamp104{
		Microseconds: us,
		UTCOffset:    offset,
		Year:         bcdToDecimal16(span[5], span[6]),
		Month:        bcdToDecimal8(span[7]),
		Day:          bcdToDecimal8(span[8]),
		Hour:         bcdToDecimal8(span[9]),
		Minute:       bcdToDecimal8(span[10]),
		Second:       bcdToDecimal8(span[11]),
	}
	_ = span[12] // reserved byte
	return t, nil
}

// EncodeTimestamp104 writes t as a 13-byte TIMESTAMP104 field.
func EncodeTimestamp104(w *msgbuf.Writer, t Timestamp104) error {
	var buf [Timestamp104Size]byte
	buf[0] = byte(t.Microseconds)
	buf[1] = byte(t.Microseconds >> 8)
	buf[2] = byte(t.Microseconds >> 16)
	u := uint16(t.UTCOffset)
	buf[3] = byte(u)
	buf[4] = byte(u >> 8)
	yLo, yHi := decimalToBCD16(t.Year)
	buf[5] = yLo
	buf[6] = yHi
	buf[7] = decimalToBCD8(t.Month)
	buf[8] = decimalToBCD8(t.Day)
	buf[9] = decimalToBCD8(t.Hour)
	buf[10] = decimalToBCD8(t.Minute)
	buf[11] = decimalToBCD8(t.Second)
	buf[12] = 0
	return w.InsertArray(buf[:])
}

// Time converts t to a time.Time in a fixed-offset zone derived from
// UTCOffset (minutes east of UTC).
func (t Timestamp104) Time() time.Time {
	loc := time.FixedZone(fmt.Sprintf("UTC%+d", int(t.UTCOffset)/60), int(t.UTCOffset)*60)
	return time.Date(int(t.Year), time.Month(t.Month), int(t.Day),
		int(t.Hour), int(t.Minute), int(t.Second), int(t.Microseconds)*1000, loc)
}

func bcdToDecimal8(b byte) uint8 {
	return (b>>4)*10 + (b & 0x0f)
}

func bcdToDecimal16(lo, hi byte) uint16 {
	return uint16(bcdToDecimal8(hi))*100 + uint16(bcdToDecimal8(lo))
}

func decimalToBCD8(v uint8) byte {
	return byte((v/10)<<4 | (v % 10))
}

func decimalToBCD16(v uint16) (lo, hi byte) {
	return decimalToBCD8(uint8(v % 100)), decimalToBCD8(uint8(v / 100))
}
