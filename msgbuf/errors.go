package msgbuf

import "errors"

var (
	// ErrOverflow is returned when an access would read or write past
	// the end of the buffer. The cursor's remaining count has already
	// been decremented (and possibly clamped) by the attempted access
	// size; Overrun reports the magnitude.
	ErrOverflow = errors.New("msgbuf: access beyond buffer bounds")

	// ErrTrailingBytes is returned by CompleteConsumed when the buffer
	// has unread bytes left but no access has overflowed.
	ErrTrailingBytes = errors.New("msgbuf: trailing bytes after decode")

	// ErrInvalidInit is returned when NewReader or NewWriter is called
	// with a minimum length greater than the buffer length, or a length
	// that cannot be represented as a signed remaining-byte count.
	ErrInvalidInit = errors.New("msgbuf: invalid buffer length for minimum size")

	// ErrStringNotTerminated is returned by SpanStringASCII/UTF16 when
	// no terminator is found within the remaining bytes.
	ErrStringNotTerminated = errors.New("msgbuf: unterminated string")
)
