package fwup

import (
	"encoding/binary"
	"hash/crc32"
	"testing"

	"github.com/openbmc/go-pldm/msgbuf"
	"github.com/openbmc/go-pldm/pldm"
)

// buildTinyPackage assembles a minimal, self-consistent firmware
// update package: one device-ID record carrying a single UUID-typed
// descriptor, no downstream-device-ID records, and one component
// image of size 1. It mirrors the shape spec §8's "round-trip tiny
// package" scenario describes (single device-ID record with an
// update-option bit set, one 16-byte descriptor, one 1-byte component
// image, classification=10, identifier=100, comparison-stamp
// 0xFFFFFFFF) with offsets computed from the encoded field sizes
// rather than hardcoded to a specific fixture's byte count.
func buildTinyPackage(t *testing.T) []byte {
	t.Helper()

	const (
		pkgVersion    = "PV1"
		devVersion    = "VersionString2"
		imageVersion  = "VersionString3"
		descriptorLen = 16
	)
	descriptorData := make([]byte, descriptorLen)
	for i := range descriptorData {
		descriptorData[i] = byte(0xA0 + i)
	}

	fixedHeaderLen := 16 + 1 + 2 + pldm.Timestamp104Size + 2 + (1 + 1 + len(pkgVersion)) + 1
	deviceRecordLen := 2 + 1 + 4 + 1 + 1 + 2 + 1 + len(devVersion) + (2 + 2 + descriptorLen) + 0
	componentInfoLen := 2 + 2 + 4 + 2 + 2 + 4 + 4 + (1 + 1 + len(imageVersion))

	headerSize := fixedHeaderLen + deviceRecordLen + 1 /* downstream count */ + 2 + componentInfoLen + 4 /* crc */
	total := headerSize + 1 /* component image */

	buf := make([]byte, total)
	w, err := msgbuf.NewWriter(buf, 0)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}

	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
	}

	must(w.InsertArray(HeaderUUID[:]))
	must(w.InsertUint8(FormatVersion1))
	must(w.InsertUint16(uint16(headerSize)))
	must(pldm.EncodeTimestamp104(w, pldm.Timestamp104{Year: 2024, Month: 1, Day: 1, Hour: 0, Minute: 0, Second: 0}))
	must(w.InsertUint16(8)) // component-bitmap bit length
	must(pldm.EncodeVersionString(w, pldm.VersionString{Type: pldm.StrTypeASCII, Str: pkgVersion}))
	must(w.InsertUint8(1)) // device-id record count

	// device-id record
	must(w.InsertUint16(uint16(deviceRecordLen)))
	must(w.InsertUint8(1)) // descriptor count
	must(w.InsertUint32(1))
	must(w.InsertUint8(uint8(pldm.StrTypeASCII)))
	must(w.InsertUint8(uint8(len(devVersion))))
	must(w.InsertUint16(0)) // package data length
	must(w.InsertUint8(0x01))
	must(w.InsertArray([]byte(devVersion)))
	must(w.InsertUint16(2)) // descriptor type
	must(w.InsertUint16(descriptorLen))
	must(w.InsertArray(descriptorData))

	must(w.InsertUint8(0)) // downstream-device-id record count

	must(w.InsertUint16(1)) // component image info count
	must(w.InsertUint16(10))
	must(w.InsertUint16(100))
	must(w.InsertUint32(0xFFFFFFFF))
	must(w.InsertUint16(0))
	must(w.InsertUint16(0))
	must(w.InsertUint32(uint32(headerSize)))
	must(w.InsertUint32(1))
	must(pldm.EncodeVersionString(w, pldm.VersionString{Type: pldm.StrTypeASCII, Str: imageVersion}))

	if w.Pos() != headerSize-4 {
		t.Fatalf("header body length mismatch: got %d, want %d", w.Pos(), headerSize-4)
	}
	crc := crc32.ChecksumIEEE(buf[:headerSize-4])
	binary.LittleEndian.PutUint32(buf[headerSize-4:headerSize], crc)
	buf[headerSize] = 0x5A // the component's single image byte

	return buf
}

func TestParsePackageTinyRoundtrip(t *testing.T) {
	buf := buildTinyPackage(t)

	pkg, err := ParsePackage(buf)
	if err != nil {
		t.Fatalf("ParsePackage: %v", err)
	}

	if got := pkg.DeviceIDRecordCount(); got != 1 {
		t.Fatalf("DeviceIDRecordCount = %d, want 1", got)
	}
	if got := pkg.DownstreamDeviceIDRecordCount(); got != 0 {
		t.Fatalf("DownstreamDeviceIDRecordCount = %d, want 0", got)
	}
	if got := pkg.ComponentImageInfoCount(); got != 1 {
		t.Fatalf("ComponentImageInfoCount = %d, want 1", got)
	}

	var records int
	for rec := range pkg.DeviceIDRecords() {
		records++
		if rec.ComponentVersion.Str != "VersionString2" {
			t.Errorf("ComponentVersion = %q, want VersionString2", rec.ComponentVersion.Str)
		}
		if rec.DeviceUpdateOptionFlags&0x1 == 0 {
			t.Errorf("expected update-option-flags bit 0 set")
		}
		if len(rec.Descriptors) != 1 {
			t.Fatalf("len(Descriptors) = %d, want 1", len(rec.Descriptors))
		}
		d := rec.Descriptors[0]
		if d.Type != 2 || len(d.Data) != 16 {
			t.Errorf("descriptor = type %d len %d, want type 2 len 16", d.Type, len(d.Data))
		}
	}
	if records != 1 {
		t.Fatalf("iterated %d device-id records, want 1", records)
	}

	var infos int
	for info := range pkg.ComponentImageInfos() {
		infos++
		if info.Classification != 10 || info.Identifier != 100 {
			t.Errorf("classification/identifier = %d/%d, want 10/100", info.Classification, info.Identifier)
		}
		if info.ComparisonStamp != 0xFFFFFFFF {
			t.Errorf("ComparisonStamp = %#x, want 0xFFFFFFFF", info.ComparisonStamp)
		}
		if info.Size != 1 {
			t.Errorf("Size = %d, want 1", info.Size)
		}
		if info.Version.Str != "VersionString3" {
			t.Errorf("Version = %q, want VersionString3", info.Version.Str)
		}
		image, err := pkg.ComponentImage(info)
		if err != nil {
			t.Fatalf("ComponentImage: %v", err)
		}
		if len(image) != 1 || image[0] != 0x5A {
			t.Errorf("image = %v, want [0x5a]", image)
		}
	}
	if infos != 1 {
		t.Fatalf("iterated %d component image infos, want 1", infos)
	}
}

func TestParsePackageRejectsBadUUID(t *testing.T) {
	buf := buildTinyPackage(t)
	buf[0] ^= 0xff
	if _, err := ParsePackage(buf); err != ErrUUIDMismatch {
		t.Fatalf("ParsePackage with corrupted UUID = %v, want ErrUUIDMismatch", err)
	}
}

func TestParsePackageRejectsBadChecksum(t *testing.T) {
	buf := buildTinyPackage(t)
	buf[len(buf)-2] ^= 0xff
	if _, err := ParsePackage(buf); err != ErrChecksum {
		t.Fatalf("ParsePackage with corrupted checksum = %v, want ErrChecksum", err)
	}
}

func TestParsePackageHeaderOnlyVariant(t *testing.T) {
	full := buildTinyPackage(t)
	headerOnly := full[:len(full)-1]
	pkg, err := ParsePackage(headerOnly)
	if err != nil {
		t.Fatalf("ParsePackage(header-only): %v", err)
	}
	if got := pkg.ComponentImageInfoCount(); got != 1 {
		t.Fatalf("ComponentImageInfoCount = %d, want 1", got)
	}
}
