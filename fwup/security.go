package fwup

import (
	"crypto/x509"
	"encoding/binary"

	"go.mozilla.org/pkcs7"
)

// Signature describes an optional PKCS7-signed trailer a firmware
// update package may carry immediately after its component-image
// payloads (spec §3.7; grounded on the teacher's Authenticode
// Certificate directory in security.go, adapted from a WIN_CERTIFICATE
// structure to a length-prefixed PKCS7 SignedData blob over the
// package header bytes). This is purely additive: a package with no
// trailer parses and validates exactly as before.
type Signature struct {
	Present  bool
	Verified bool
	Signer   *x509.Certificate
}

// trailerLengthSize is the size of the length prefix preceding the
// PKCS7 DER blob in the signature trailer.
const trailerLengthSize = 4

// Signature inspects the bytes immediately following the package's
// declared total size (headerSize + sum(componentSize)) for a
// length-prefixed PKCS7 SignedData blob, parses it, and verifies the
// signature over the package header bytes [0, headerSize-4).
//
// A package with no trailing bytes beyond its declared size carries no
// signature; Signature then returns a zero Signature and ErrNoSignature
// is not treated as fatal by callers that don't require signing.
func (p *Package) Signature() (Signature, error) {
	end := int(p.Header.HeaderSize)
	for info := range p.ComponentImageInfos() {
		end = int(info.LocationOffset) + int(info.Size)
	}
	if end >= len(p.buf) {
		return Signature{}, ErrNoSignature
	}

	trailer := p.buf[end:]
	if len(trailer) < trailerLengthSize {
		return Signature{}, ErrNoSignature
	}
	blobLen := int(binary.LittleEndian.Uint32(trailer[:trailerLengthSize]))
	if blobLen <= 0 || trailerLengthSize+blobLen > len(trailer) {
		return Signature{}, ErrNoSignature
	}
	der := trailer[trailerLengthSize : trailerLengthSize+blobLen]

	p7, err := pkcs7.Parse(der)
	if err != nil {
		return Signature{Present: true}, err
	}

	hs := int(p.Header.HeaderSize)
	p7.Content = p.buf[:hs-4]

	sig := Signature{Present: true}
	if err := p7.Verify(); err != nil {
		return sig, err
	}
	sig.Verified = true
	if len(p7.Certificates) > 0 {
		sig.Signer = p7.Certificates[0]
	}
	return sig, nil
}
