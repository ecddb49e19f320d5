package pdr

import "errors"

var (
	ErrInvalidArgument  = errors.New("pdr: invalid argument")
	ErrDuplicateHandle  = errors.New("pdr: record handle already in use")
	ErrHandleOverflow   = errors.New("pdr: no record handle available")
	ErrRecordNotFound   = errors.New("pdr: record not found")
	ErrMalformedRecord  = errors.New("pdr: malformed record")
)
