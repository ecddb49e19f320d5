package control

import "errors"

var (
	ErrTypeAlreadyRegistered = errors.New("control: pldm type already registered")
	ErrTooFewVersions        = errors.New("control: at least one version plus a trailing crc32 is required")
)
