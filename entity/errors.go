package entity

import "errors"

var (
	ErrInvalidArgument    = errors.New("entity: invalid argument")
	ErrInstanceInUse      = errors.New("entity: instance number already in use")
	ErrInstanceOverflow   = errors.New("entity: no free instance number")
	ErrNodeNotFound       = errors.New("entity: node not found")
	ErrRecordNotFound     = errors.New("entity: association record not found")
	ErrMalformedRecord    = errors.New("entity: malformed association record")
)
