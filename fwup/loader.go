package fwup

import (
	"os"

	mmap "github.com/edsrzf/mmap-go"

	"github.com/openbmc/go-pldm/internal/plog"
)

// PackageFile is a firmware update package backed by a memory-mapped
// file, grounded on the teacher's mmap-based pe.New constructor.
type PackageFile struct {
	*Package
	data mmap.MMap
	f    *os.File
	log  *plog.Helper
}

// LoadPackageFile memory-maps name and parses it as a firmware update
// package. A nil logger defaults to a standard error-level logger, the
// way the teacher's pe.New does.
func LoadPackageFile(name string, logger plog.Logger) (*PackageFile, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}

	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, err
	}

	pkg, err := ParsePackage(data)
	if err != nil {
		data.Unmap()
		f.Close()
		return nil, err
	}

	return &PackageFile{
		Package: pkg,
		data:    data,
		f:       f,
		log:     plog.NewHelper(logger),
	}, nil
}

// Close unmaps the backing file and closes its descriptor.
func (pf *PackageFile) Close() error {
	if pf.data != nil {
		if err := pf.data.Unmap(); err != nil {
			pf.log.Warnf("unmap package file: %v", err)
		}
	}
	if pf.f != nil {
		return pf.f.Close()
	}
	return nil
}
