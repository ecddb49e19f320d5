// Package msgbuf implements a bounded, overflow-tracking cursor over
// byte buffers, used by every PLDM wire codec in this module to
// extract and insert primitives, string spans, and array spans without
// ever reading or writing outside the caller-supplied buffer.
//
// A cursor tracks a signed "remaining" byte budget. An access that fits
// advances the cursor and decrements remaining by the access size. An
// access that doesn't fit decrements remaining into negative territory
// instead of refusing outright, so long as the subtraction itself does
// not underflow the signed range; the magnitude of the negative value
// is the overrun in bytes, which upper layers can surface for
// diagnostics. A subtraction that would underflow clamps remaining to
// a sentinel "invalid" value instead. Every access is checked; nothing
// here panics.
package msgbuf

import (
	"encoding/binary"
	"math"
)

const remainingInvalid = math.MinInt64

// Reader is a read-only cursor over an immutable byte buffer.
type Reader struct {
	buf       []byte
	pos       int
	remaining int64
}

// Writer is a read-write cursor over a mutable byte buffer.
type Writer struct {
	buf       []byte
	pos       int
	remaining int64
}

// NewReader initializes a read-only cursor over buf. It succeeds iff
// minimum <= len(buf) <= math.MaxInt64.
func NewReader(buf []byte, minimum int) (*Reader, error) {
	remaining, err := initRemaining(len(buf), minimum)
	if err != nil {
		return nil, err
	}
	return &Reader{buf: buf, remaining: remaining}, nil
}

// NewWriter initializes a read-write cursor over buf. It succeeds iff
// minimum <= len(buf) <= math.MaxInt64.
func NewWriter(buf []byte, minimum int) (*Writer, error) {
	remaining, err := initRemaining(len(buf), minimum)
	if err != nil {
		return nil, err
	}
	return &Writer{buf: buf, remaining: remaining}, nil
}

func initRemaining(length, minimum int) (int64, error) {
	if minimum < 0 || minimum > length {
		return 0, ErrInvalidInit
	}
	return int64(length), nil
}

// Remaining returns the cursor's current signed remaining-byte count.
// A negative value records an overrun; use Overrun to read its
// magnitude.
func (r *Reader) Remaining() int64 { return r.remaining }
func (w *Writer) Remaining() int64 { return w.remaining }

// Overrun reports the number of bytes by which the cursor has
// overflowed, and whether any overflow has occurred at all.
func (r *Reader) Overrun() (int64, bool) { return overrun(r.remaining) }
func (w *Writer) Overrun() (int64, bool) { return overrun(w.remaining) }

func overrun(remaining int64) (int64, bool) {
	if remaining >= 0 {
		return 0, false
	}
	if remaining == remainingInvalid {
		return math.MaxInt64, true
	}
	return -remaining, true
}

// advance consumes n bytes of budget, applying the buffer's underflow
// policy, and reports whether the access fits.
func advance(remaining int64, n int) (next int64, fits bool) {
	if remaining == remainingInvalid {
		return remainingInvalid, false
	}
	if remaining >= int64(n) {
		return remaining - int64(n), true
	}
	diff := remaining - int64(n)
	// diff > remaining with n > 0 means the subtraction wrapped around
	// the signed range; clamp to the sentinel rather than report a
	// bogus (positive-looking) remaining count.
	if diff > remaining {
		return remainingInvalid, false
	}
	return diff, false
}

// Complete succeeds iff remaining >= 0 (trailing bytes are permitted).
func (r *Reader) Complete() error { return complete(r.remaining) }
func (w *Writer) Complete() error { return complete(w.remaining) }

func complete(remaining int64) error {
	if remaining < 0 {
		return ErrOverflow
	}
	return nil
}

// CompleteConsumed succeeds iff remaining == 0 exactly.
func (r *Reader) CompleteConsumed() error { return completeConsumed(r.remaining) }
func (w *Writer) CompleteConsumed() error { return completeConsumed(w.remaining) }

func completeConsumed(remaining int64) error {
	if remaining > 0 {
		return ErrTrailingBytes
	}
	if remaining < 0 {
		return ErrOverflow
	}
	return nil
}

// Discard invalidates the cursor and returns err unchanged, for clean
// error propagation from decode functions that bail out early.
func (r *Reader) Discard(err error) error {
	r.remaining = remainingInvalid
	return err
}

func (w *Writer) Discard(err error) error {
	w.remaining = remainingInvalid
	return err
}

// Primitive is the set of widths the generic extract/insert helpers
// support: 1, 2, 4, and 8 byte little-endian wire values.
type Primitive interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64
}

func widthOf[T Primitive]() int {
	var z T
	switch any(z).(type) {
	case uint8:
		return 1
	case uint16:
		return 2
	case uint32:
		return 4
	case uint64:
		return 8
	default:
		return 0
	}
}

// Extract reads a little-endian primitive of type T and advances the
// cursor. On overflow it returns the zero value and ErrOverflow; the
// cursor's remaining count still reflects the attempted access per the
// buffer's underflow policy.
func Extract[T Primitive](r *Reader) (T, error) {
	w := widthOf[T]()
	next, fits := advance(r.remaining, w)
	r.remaining = next
	if !fits {
		return 0, ErrOverflow
	}
	v := decodeLE[T](r.buf[r.pos : r.pos+w])
	r.pos += w
	return v, nil
}

// Insert writes a little-endian primitive of type T and advances the
// cursor, applying the same underflow policy as Extract.
func Insert[T Primitive](w *Writer, v T) error {
	width := widthOf[T]()
	next, fits := advance(w.remaining, width)
	w.remaining = next
	if !fits {
		return ErrOverflow
	}
	encodeLE(w.buf[w.pos:w.pos+width], v)
	w.pos += width
	return nil
}

func decodeLE[T Primitive](b []byte) T {
	var z T
	switch any(z).(type) {
	case uint8:
		return T(b[0])
	case uint16:
		return T(binary.LittleEndian.Uint16(b))
	case uint32:
		return T(binary.LittleEndian.Uint32(b))
	case uint64:
		return T(binary.LittleEndian.Uint64(b))
	}
	return z
}

func encodeLE[T Primitive](b []byte, v T) {
	switch x := any(v).(type) {
	case uint8:
		b[0] = x
	case uint16:
		binary.LittleEndian.PutUint16(b, x)
	case uint32:
		binary.LittleEndian.PutUint32(b, x)
	case uint64:
		binary.LittleEndian.PutUint64(b, x)
	}
}

// ExtractUint8/16/32/64 and InsertUint8/16/32/64 are thin, non-generic
// wrappers for call sites (most codec code) that prefer concrete types
// over type parameters.
func (r *Reader) ExtractUint8() (uint8, error)   { return Extract[uint8](r) }
func (r *Reader) ExtractUint16() (uint16, error) { return Extract[uint16](r) }
func (r *Reader) ExtractUint32() (uint32, error) { return Extract[uint32](r) }
func (r *Reader) ExtractUint64() (uint64, error) { return Extract[uint64](r) }

func (w *Writer) InsertUint8(v uint8) error   { return Insert(w, v) }
func (w *Writer) InsertUint16(v uint16) error { return Insert(w, v) }
func (w *Writer) InsertUint32(v uint32) error { return Insert(w, v) }
func (w *Writer) InsertUint64(v uint64) error { return Insert(w, v) }

// ExtractArray copies the next n bytes into dst (len(dst) must equal
// n) and advances the cursor by n, applying the underflow policy.
func (r *Reader) ExtractArray(dst []byte) error {
	n := len(dst)
	next, fits := advance(r.remaining, n)
	r.remaining = next
	if !fits {
		return ErrOverflow
	}
	copy(dst, r.buf[r.pos:r.pos+n])
	r.pos += n
	return nil
}

// InsertArray copies src into the buffer and advances the cursor by
// len(src), applying the underflow policy.
func (w *Writer) InsertArray(src []byte) error {
	n := len(src)
	next, fits := advance(w.remaining, n)
	w.remaining = next
	if !fits {
		return ErrOverflow
	}
	copy(w.buf[w.pos:w.pos+n], src)
	w.pos += n
	return nil
}

// SpanRequired returns a slice aliasing the cursor's current position
// and advances by n bytes, applying the underflow policy. The returned
// slice aliases the Reader's backing buffer; callers must not retain
// it past the buffer's lifetime.
func (r *Reader) SpanRequired(n int) ([]byte, error) {
	next, fits := advance(r.remaining, n)
	r.remaining = next
	if !fits {
		return nil, ErrOverflow
	}
	span := r.buf[r.pos : r.pos+n]
	r.pos += n
	return span, nil
}

// SpanUntil reserves trailer bytes at the end of the declared length
// and returns the span preceding them, without advancing past the
// reserved trailer. The trailer bytes remain available for subsequent
// reads.
func (r *Reader) SpanUntil(n, trailer int) ([]byte, error) {
	if trailer > n {
		r.remaining = remainingInvalid
		return nil, ErrOverflow
	}
	return r.SpanRequired(n - trailer)
}

// Pos returns the cursor's current byte offset into the original
// buffer.
func (r *Reader) Pos() int { return r.pos }
func (w *Writer) Pos() int { return w.pos }

// Len returns the length of the buffer the cursor was initialized
// over.
func (r *Reader) Len() int { return len(r.buf) }
func (w *Writer) Len() int { return len(w.buf) }

// Bytes returns the portion of the Writer's buffer written so far.
func (w *Writer) Bytes() []byte { return w.buf[:w.pos] }
