package fwup

import (
	"github.com/openbmc/go-pldm/msgbuf"
	"github.com/openbmc/go-pldm/pldm"
)

// ComponentImageInfo is one component-image-information record (spec
// §3.3). Version decodes byte-preserving per the string-type Open
// Question decision (DESIGN.md).
type ComponentImageInfo struct {
	Classification   uint16
	Identifier       uint16
	ComparisonStamp  uint32
	Options          uint16
	ActivationMethod uint16
	LocationOffset   uint32
	Size             uint32
	Version          pldm.VersionString
}

func decodeComponentImageInfo(r *msgbuf.Reader) (ComponentImageInfo, error) {
	classification, err := r.ExtractUint16()
	if err != nil {
		return ComponentImageInfo{}, r.Discard(pldm.NewErr(pldm.KindInvalidLength, "component classification"))
	}
	identifier, err := r.ExtractUint16()
	if err != nil {
		return ComponentImageInfo{}, err
	}
	comparisonStamp, err := r.ExtractUint32()
	if err != nil {
		return ComponentImageInfo{}, err
	}
	options, err := r.ExtractUint16()
	if err != nil {
		return ComponentImageInfo{}, err
	}
	activationMethod, err := r.ExtractUint16()
	if err != nil {
		return ComponentImageInfo{}, err
	}
	locationOffset, err := r.ExtractUint32()
	if err != nil {
		return ComponentImageInfo{}, err
	}
	size, err := r.ExtractUint32()
	if err != nil {
		return ComponentImageInfo{}, err
	}
	version, err := pldm.DecodeVersionString(r)
	if err != nil {
		return ComponentImageInfo{}, err
	}

	return ComponentImageInfo{
		Classification:   classification,
		Identifier:       identifier,
		ComparisonStamp:  comparisonStamp,
		Options:          options,
		ActivationMethod: activationMethod,
		LocationOffset:   locationOffset,
		Size:             size,
		Version:          version,
	}, nil
}

// ComponentImageInfos returns a lazy iterator over the package's
// component-image-information records.
func (p *Package) ComponentImageInfos() func(yield func(ComponentImageInfo) bool) {
	return func(yield func(ComponentImageInfo) bool) {
		r, err := msgbuf.NewReader(p.buf[p.componentImageInfosOffset:], 2)
		if err != nil {
			return
		}
		if _, err := r.ExtractUint16(); err != nil {
			return
		}
		for i := 0; i < int(p.componentImageInfoCount); i++ {
			info, err := decodeComponentImageInfo(r)
			if err != nil {
				return
			}
			if !yield(info) {
				return
			}
		}
	}
}

// ComponentImage returns the raw image bytes for info, sliced out of
// the full package buffer. It is only valid when Package was parsed
// from a full package buffer (not the header-only variant).
func (p *Package) ComponentImage(info ComponentImageInfo) ([]byte, error) {
	start := int(info.LocationOffset)
	end := start + int(info.Size)
	if start < 0 || end > len(p.buf) || end < start {
		return nil, ErrTotalSize
	}
	return p.buf[start:end], nil
}
