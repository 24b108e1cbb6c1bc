//go:build !cgo

package audio

import (
	"errors"
	"fmt"
)

var errCGORequired = errors.New("device backends require a cgo build (CGO_ENABLED=1 and a C toolchain)")

// NewMalgoBackend is unavailable without cgo
func NewMalgoBackend(opts BackendOptions) (OutputBackend, error) {
	return nil, fmt.Errorf("%w: %v", ErrBackendNotAvailable, errCGORequired)
}

// NewOtoBackend is unavailable without cgo
func NewOtoBackend(opts BackendOptions) (OutputBackend, error) {
	return nil, fmt.Errorf("%w: %v", ErrBackendNotAvailable, errCGORequired)
}
