//go:build !unix

package transport

import "errors"

// OpenDirect is only available on unix systems.
func OpenDirect(path string, windows ...Window) (*Direct, error) {
	return nil, errors.New("transport: direct access needs a unix host")
}
