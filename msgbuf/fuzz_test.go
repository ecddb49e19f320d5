package msgbuf

import (
	"bytes"
	"testing"
)

// FuzzReaderNeverPanics exercises arbitrary sequences of extracts
// against arbitrary buffers, checking only that the cursor never
// panics and that Remaining() never exceeds the buffer length.
// Grounded on the teacher's Fuzz(data []byte) entry point in fuzz.go,
// reimplemented with native fuzzing since go-fuzz itself is dropped.
func FuzzReaderNeverPanics(f *testing.F) {
	f.Add([]byte{1, 2, 3, 4, 5, 6, 7, 8}, uint8(0x3))
	f.Add([]byte{}, uint8(0x0))
	f.Add([]byte{0xff}, uint8(0xaa))

	f.Fuzz(func(t *testing.T, data []byte, widths uint8) {
		r, err := NewReader(data, 0)
		if err != nil {
			return
		}
		for i := 0; i < 8; i++ {
			switch (widths >> (uint(i) % 4)) & 0x3 {
			case 0:
				_, _ = r.ExtractUint8()
			case 1:
				_, _ = r.ExtractUint16()
			case 2:
				_, _ = r.ExtractUint32()
			case 3:
				_, _ = r.ExtractUint64()
			}
		}
		if r.Remaining() > int64(len(data)) {
			t.Fatalf("remaining %d exceeds buffer length %d", r.Remaining(), len(data))
		}
	})
}

// FuzzMsgbufRoundtrip writes a byte, a uint16, a uint32, a uint64, and
// an arbitrary-length trailing array through a Writer, then checks a
// Reader over the resulting bytes extracts the exact same values back
// out, in order, with nothing left over.
func FuzzMsgbufRoundtrip(f *testing.F) {
	f.Add(uint8(1), uint16(2), uint32(3), uint64(4), []byte{5, 6, 7})
	f.Add(uint8(0), uint16(0), uint32(0), uint64(0), []byte{})
	f.Add(uint8(0xff), uint16(0xffff), uint32(0xffffffff), uint64(0xffffffffffffffff), []byte{0xff, 0xff})

	f.Fuzz(func(t *testing.T, b uint8, u16 uint16, u32 uint32, u64 uint64, trailer []byte) {
		size := 1 + 2 + 4 + 8 + len(trailer)
		buf := make([]byte, size)

		w, err := NewWriter(buf, size)
		if err != nil {
			t.Fatalf("NewWriter: %v", err)
		}
		if err := w.InsertUint8(b); err != nil {
			t.Fatalf("InsertUint8: %v", err)
		}
		if err := w.InsertUint16(u16); err != nil {
			t.Fatalf("InsertUint16: %v", err)
		}
		if err := w.InsertUint32(u32); err != nil {
			t.Fatalf("InsertUint32: %v", err)
		}
		if err := w.InsertUint64(u64); err != nil {
			t.Fatalf("InsertUint64: %v", err)
		}
		if err := w.InsertArray(trailer); err != nil {
			t.Fatalf("InsertArray: %v", err)
		}
		if err := w.CompleteConsumed(); err != nil {
			t.Fatalf("Writer.CompleteConsumed: %v", err)
		}

		r, err := NewReader(buf, size)
		if err != nil {
			t.Fatalf("NewReader: %v", err)
		}
		gotB, err := r.ExtractUint8()
		if err != nil || gotB != b {
			t.Fatalf("ExtractUint8 = (%v, %v), want (%v, nil)", gotB, err, b)
		}
		gotU16, err := r.ExtractUint16()
		if err != nil || gotU16 != u16 {
			t.Fatalf("ExtractUint16 = (%v, %v), want (%v, nil)", gotU16, err, u16)
		}
		gotU32, err := r.ExtractUint32()
		if err != nil || gotU32 != u32 {
			t.Fatalf("ExtractUint32 = (%v, %v), want (%v, nil)", gotU32, err, u32)
		}
		gotU64, err := r.ExtractUint64()
		if err != nil || gotU64 != u64 {
			t.Fatalf("ExtractUint64 = (%v, %v), want (%v, nil)", gotU64, err, u64)
		}
		gotTrailer := make([]byte, len(trailer))
		if err := r.ExtractArray(gotTrailer); err != nil {
			t.Fatalf("ExtractArray: %v", err)
		}
		if !bytes.Equal(gotTrailer, trailer) {
			t.Fatalf("trailer = %v, want %v", gotTrailer, trailer)
		}
		if err := r.CompleteConsumed(); err != nil {
			t.Fatalf("Reader.CompleteConsumed: %v", err)
		}
	})
}
