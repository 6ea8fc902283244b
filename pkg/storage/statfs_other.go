//go:build !linux && !darwin && !freebsd

package storage

import "errors"

// ErrUnsupported is returned where disk space cannot be queried.
var ErrUnsupported = errors.New("storage: disk space query not supported on this platform")

func diskSpace(path string) (total, free uint64, err error) {
	return 0, 0, ErrUnsupported
}
