package fwup

import (
	"encoding/binary"
	"hash/crc32"
	"testing"

	"github.com/openbmc/go-pldm/msgbuf"
	"github.com/openbmc/go-pldm/pldm"
)

// seedTinyPackageBytes builds the same minimal, self-consistent
// package buildTinyPackage does (one device-ID record, one component
// image), but as a plain byte-producing function rather than a test
// helper, so it can seed FuzzParsePackage's corpus outside of a *T.
func seedTinyPackageBytes() []byte {
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
	total := headerSize + 1                                                                              /* component image */

	buf := make([]byte, total)
	w, err := msgbuf.NewWriter(buf, 0)
	if err != nil {
		panic(err)
	}

	must := func(err error) {
		if err != nil {
			panic(err)
		}
	}

	must(w.InsertArray(HeaderUUID[:]))
	must(w.InsertUint8(FormatVersion1))
	must(w.InsertUint16(uint16(headerSize)))
	must(pldm.EncodeTimestamp104(w, pldm.Timestamp104{Year: 2024, Month: 1, Day: 1, Hour: 0, Minute: 0, Second: 0}))
	must(w.InsertUint16(8)) // component-bitmap bit length
	must(pldm.EncodeVersionString(w, pldm.VersionString{Type: pldm.StrTypeASCII, Str: pkgVersion}))
	must(w.InsertUint8(1)) // device-id record count

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
		panic("header body length mismatch")
	}
	crc := crc32.ChecksumIEEE(buf[:headerSize-4])
	binary.LittleEndian.PutUint32(buf[headerSize-4:headerSize], crc)
	buf[headerSize] = 0x5A // the component's single image byte

	return buf
}

// FuzzParsePackage fuzzes ParsePackage, the entry point for the least
// trusted input this module handles: a firmware update package
// supplied by whoever is updating the device. It checks only that
// parsing never panics and that a successful parse's record iterators
// can be walked to completion without panicking either.
func FuzzParsePackage(f *testing.F) {
	f.Add(seedTinyPackageBytes())
	f.Add([]byte{})
	f.Add(HeaderUUID[:])

	f.Fuzz(func(t *testing.T, buf []byte) {
		pkg, err := ParsePackage(buf)
		if err != nil {
			return
		}
		for range pkg.DeviceIDRecords() {
		}
		for range pkg.DownstreamDeviceIDRecords() {
		}
		for range pkg.ComponentImageInfos() {
		}
	})
}
