package pldm

import "testing"

func TestHeaderRoundtrip(t *testing.T) {
	h := Header{InstanceID: 7, Datagram: false, Request: true, Type: 5, HeaderVer: 0, Command: 0x34}
	buf := make([]byte, Size)
	if err := Encode(h, buf); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	got, err := Decode(buf)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if got != h {
		t.Errorf("got %+v, want %+v", got, h)
	}
	if !got.Valid() {
		t.Errorf("expected header to be valid")
	}
}

func TestHeaderCorrelation(t *testing.T) {
	req := Header{InstanceID: 3, Request: true, Type: 5, Command: 1}
	resp := Header{InstanceID: 3, Request: false, Type: 5, Command: 1}
	if !req.Correlates(resp) {
		t.Errorf("expected correlation to match")
	}

	mismatched := Header{InstanceID: 4, Request: false, Type: 5, Command: 1}
	if req.Correlates(mismatched) {
		t.Errorf("expected correlation to fail on instance ID mismatch")
	}

	stillRequest := Header{InstanceID: 3, Request: true, Type: 5, Command: 1}
	if req.Correlates(stillRequest) {
		t.Errorf("expected correlation to fail when response bit unset")
	}
}

func TestHeaderInvalidVersion(t *testing.T) {
	h := Header{HeaderVer: 1}
	if h.Valid() {
		t.Errorf("header with non-zero version should be invalid")
	}
}
