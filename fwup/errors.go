// Package fwup implements the PLDM Firmware Update package parser
// (spec §3.3/§4.3), the FWUP command codecs (§4.4), and a thin loader
// and signature check layered on top of the parser.
package fwup

import "errors"

var (
	// ErrUUIDMismatch is returned when the first 16 bytes of the
	// header don't match the well-known firmware-update package UUID.
	ErrUUIDMismatch = errors.New("fwup: package header identifier mismatch")

	// ErrFormatVersion is returned when the header's format-version
	// byte is not the one supported version.
	ErrFormatVersion = errors.New("fwup: unsupported package header format version")

	// ErrHeaderSize is returned when the declared header size doesn't
	// match the buffer presented (header-only variant) or doesn't fit
	// within it (full-package variant).
	ErrHeaderSize = errors.New("fwup: invalid header size")

	// ErrRecordCountMismatch is returned when a declared record count
	// doesn't match the number of records actually parsed.
	ErrRecordCountMismatch = errors.New("fwup: device-id record count mismatch")

	// ErrDescriptorLength is returned when a device-id record's
	// declared length doesn't exactly cover its descriptor list.
	ErrDescriptorLength = errors.New("fwup: device-id record length does not cover descriptors")

	// ErrBitmapLength is returned when an applicable-components
	// bitmap's length doesn't match the header's declared bit length.
	ErrBitmapLength = errors.New("fwup: applicable-components bitmap length mismatch")

	// ErrChecksum is returned when the package header's CRC32 doesn't
	// match the bytes preceding it.
	ErrChecksum = errors.New("fwup: header checksum mismatch")

	// ErrTotalSize is returned when headerSize + sum(component sizes)
	// doesn't equal the package size, or a component's location offset
	// doesn't equal the running sum (spec §3.3 total-size invariant).
	ErrTotalSize = errors.New("fwup: package total-size invariant violated")

	// ErrNoSignature is returned by Package.Signature when the package
	// carries no trailing PKCS7 signature block.
	ErrNoSignature = errors.New("fwup: package carries no signature trailer")
)
