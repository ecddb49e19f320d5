package fd

import "errors"

var (
	ErrUnexpectedResponse = errors.New("fd: response does not correlate with an outstanding request")
	ErrNoOutstandingRequest = errors.New("fd: no outstanding request to retry or time out")
)
