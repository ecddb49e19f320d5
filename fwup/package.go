package fwup

import (
	"encoding/binary"
	"hash/crc32"

	"github.com/openbmc/go-pldm/msgbuf"
	"github.com/openbmc/go-pldm/pldm"
)

// HeaderUUID is the well-known 16-byte identifier every firmware
// update package header must begin with (spec §3.3).
var HeaderUUID = [16]byte{
	0xF0, 0x18, 0x87, 0x8C, 0xCB, 0x7D, 0x49, 0x43,
	0x98, 0x00, 0xA0, 0x2F, 0x05, 0x9A, 0xCA, 0x02,
}

// FormatVersion1 is the only package-header format version this
// parser recognises.
const FormatVersion1 = 0x01

// HeaderInfo is the fixed portion of a firmware update package
// header, preceding the device-ID record list.
type HeaderInfo struct {
	FormatVersion            uint8
	HeaderSize               uint16
	ReleaseDate              pldm.Timestamp104
	ComponentBitmapBitLength uint16
	PackageVersion           pldm.VersionString
	DeviceIDRecordCount      uint8
}

// Package is a parsed view over a firmware update package buffer. It
// performs no allocation for record content: every record type below
// holds spans back into buf.
type Package struct {
	buf    []byte
	Header HeaderInfo

	deviceIDRecordsOffset           int
	downstreamDeviceIDRecordsOffset int
	downstreamDeviceIDRecordCount   uint8
	componentImageInfosOffset       int
	componentImageInfoCount         uint16
}

// ParsePackage validates and parses a firmware update package held
// entirely in buf. buf may be either just the header (ending exactly
// at HeaderSize) or a full package (header, descriptors, and component
// image payloads) — both variants are accepted per spec §4.3.
func ParsePackage(buf []byte) (*Package, error) {
	r, err := msgbuf.NewReader(buf, 16+1+2+pldm.Timestamp104Size+2+2+1)
	if err != nil {
		return nil, ErrHeaderSize
	}

	uuid, err := r.SpanRequired(16)
	if err != nil {
		return nil, r.Discard(ErrHeaderSize)
	}
	for i := range HeaderUUID {
		if uuid[i] != HeaderUUID[i] {
			return nil, ErrUUIDMismatch
		}
	}

	formatVersion, err := r.ExtractUint8()
	if err != nil {
		return nil, r.Discard(ErrHeaderSize)
	}
	if formatVersion != FormatVersion1 {
		return nil, ErrFormatVersion
	}

	headerSize, err := r.ExtractUint16()
	if err != nil {
		return nil, r.Discard(ErrHeaderSize)
	}
	// Header-only variant: buf is exactly the header. Full-package
	// variant: headerSize must fit within buf.
	if int(headerSize) != len(buf) && int(headerSize) > len(buf) {
		return nil, ErrHeaderSize
	}

	releaseDate, err := pldm.DecodeTimestamp104(r)
	if err != nil {
		return nil, r.Discard(ErrHeaderSize)
	}

	bitmapBitLen, err := r.ExtractUint16()
	if err != nil {
		return nil, r.Discard(ErrHeaderSize)
	}
	if bitmapBitLen%8 != 0 {
		return nil, ErrBitmapLength
	}

	pkgVersion, err := pldm.DecodeVersionString(r)
	if err != nil {
		return nil, r.Discard(ErrHeaderSize)
	}

	devRecCount, err := r.ExtractUint8()
	if err != nil {
		return nil, r.Discard(ErrHeaderSize)
	}

	pkg := &Package{
		buf: buf,
		Header: HeaderInfo{
			FormatVersion:            formatVersion,
			HeaderSize:               headerSize,
			ReleaseDate:              releaseDate,
			ComponentBitmapBitLength: bitmapBitLen,
			PackageVersion:           pkgVersion,
			DeviceIDRecordCount:      devRecCount,
		},
		deviceIDRecordsOffset: r.Pos(),
	}

	if err := pkg.scanDeviceIDRecords(r); err != nil {
		return nil, err
	}
	pkg.downstreamDeviceIDRecordsOffset = r.Pos()
	if err := pkg.scanDownstreamDeviceIDRecords(r); err != nil {
		return nil, err
	}
	pkg.componentImageInfosOffset = r.Pos()
	if err := pkg.scanComponentImageInfos(r); err != nil {
		return nil, err
	}

	if err := pkg.validateChecksum(); err != nil {
		return nil, err
	}

	if len(buf) > int(headerSize) {
		if err := pkg.validateTotalSize(); err != nil {
			return nil, err
		}
	}

	return pkg, nil
}

// scanDeviceIDRecords walks DeviceIDRecordCount records to validate
// their shape and advance r past them, without materialising a slice
// of records (iteration happens lazily via DeviceIDRecords).
func (p *Package) scanDeviceIDRecords(r *msgbuf.Reader) error {
	count := 0
	for ; count < int(p.Header.DeviceIDRecordCount); count++ {
		if _, _, err := decodeDeviceIDRecord(r, p.Header.ComponentBitmapBitLength); err != nil {
			return err
		}
	}
	if count != int(p.Header.DeviceIDRecordCount) {
		return ErrRecordCountMismatch
	}
	return nil
}

// scanDownstreamDeviceIDRecords reads a single count byte (mirroring
// the device-ID record list's own count-then-records shape, per spec
// §3.3's ordering; the wire count for this section is not documented
// by the upstream C++ bindings retrieved for this module, so the
// layout here follows the device-ID record convention — see
// DESIGN.md) and walks that many records, reusing the device-ID
// record decoder (the downstream variant carries the same fields).
func (p *Package) scanDownstreamDeviceIDRecords(r *msgbuf.Reader) error {
	count, err := r.ExtractUint8()
	if err != nil {
		return r.Discard(ErrHeaderSize)
	}
	p.downstreamDeviceIDRecordCount = count
	for i := 0; i < int(count); i++ {
		if _, _, err := decodeDeviceIDRecord(r, p.Header.ComponentBitmapBitLength); err != nil {
			return err
		}
	}
	return nil
}

func (p *Package) scanComponentImageInfos(r *msgbuf.Reader) error {
	count, err := r.ExtractUint16()
	if err != nil {
		return r.Discard(ErrHeaderSize)
	}
	p.componentImageInfoCount = count
	for i := 0; i < int(count); i++ {
		if _, err := decodeComponentImageInfo(r); err != nil {
			return err
		}
	}
	return nil
}

// validateChecksum checks the IEEE 802.3 CRC32 stored as a little
// endian u32 at buf[headerSize-4:headerSize] against the CRC over
// buf[0:headerSize-4].
func (p *Package) validateChecksum() error {
	hs := int(p.Header.HeaderSize)
	if hs < 4 || hs > len(p.buf) {
		return ErrHeaderSize
	}
	want := binary.LittleEndian.Uint32(p.buf[hs-4 : hs])
	got := crc32.ChecksumIEEE(p.buf[:hs-4])
	if got != want {
		return ErrChecksum
	}
	return nil
}

// validateTotalSize enforces spec §3.3's invariant:
// headerSize + sum(componentSize) == len(buf), and each component's
// declared location offset equals the running sum.
func (p *Package) validateTotalSize() error {
	running := uint64(p.Header.HeaderSize)
	for info := range p.ComponentImageInfos() {
		if uint64(info.LocationOffset) != running {
			return ErrTotalSize
		}
		running += uint64(info.Size)
	}
	if running != uint64(len(p.buf)) {
		return ErrTotalSize
	}
	return nil
}

// DeviceIDRecordCount returns the number of firmware-device-ID
// records declared in the header.
func (p *Package) DeviceIDRecordCount() int { return int(p.Header.DeviceIDRecordCount) }

// DownstreamDeviceIDRecordCount returns the number of
// downstream-device-ID records declared after the device-ID records.
func (p *Package) DownstreamDeviceIDRecordCount() int {
	return int(p.downstreamDeviceIDRecordCount)
}

// ComponentImageInfoCount returns the number of component-image-info
// records declared in the package.
func (p *Package) ComponentImageInfoCount() int { return int(p.componentImageInfoCount) }
