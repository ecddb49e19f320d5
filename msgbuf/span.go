package msgbuf

import "bytes"

// availSlice returns the portion of the buffer still within the
// cursor's remaining budget, empty if the cursor has already
// overflowed.
func availSlice(r *Reader) []byte {
	if r.remaining <= 0 {
		return nil
	}
	avail := r.buf[r.pos:]
	if int64(len(avail)) > r.remaining {
		avail = avail[:r.remaining]
	}
	return avail
}

// SpanStringASCII scans for a NUL terminator within the remaining
// bytes and returns a span covering the string and its terminator
// (length strnlen(buf, remaining)+1). It errors if no NUL is found
// within the remaining budget.
func (r *Reader) SpanStringASCII() ([]byte, error) {
	avail := availSlice(r)
	idx := bytes.IndexByte(avail, 0)
	if idx < 0 {
		r.remaining = remainingInvalid
		return nil, ErrStringNotTerminated
	}
	return r.SpanRequired(idx + 1)
}

// SpanStringUTF16 scans for a pair of consecutive zero bytes, aligned
// with the buffer's starting parity (i.e. pairs starting at an even
// offset from byte 0 of the original buffer), and returns a span
// through and including the terminator pair. It errors if no aligned
// double-zero is found within the remaining budget.
func (r *Reader) SpanStringUTF16() ([]byte, error) {
	avail := availSlice(r)
	// Alignment is relative to byte 0 of the original buffer, so the
	// first pair boundary to test is offset by r.pos's parity.
	start := r.pos % 2
	for i := start; i+1 < len(avail); i += 2 {
		if avail[i] == 0 && avail[i+1] == 0 {
			return r.SpanRequired(i + 2)
		}
	}
	r.remaining = remainingInvalid
	return nil, ErrStringNotTerminated
}
