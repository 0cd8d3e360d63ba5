// Package transport provides single-word register access to a memory
// controller, either directly through a mapped physical window or remotely
// through a framed request/response byte link.
package transport

import "errors"

// RegisterAccess reads and writes one 32-bit register at a byte address.
//
// Implementations are not safe for concurrent use. The owner of a controller
// serializes every access.
type RegisterAccess interface {
	Read(addr uint32) (uint32, error)
	Write(addr, value uint32) error
}

// Errors reported by the transports. They are wrapped with the address that
// was being accessed.
var (
	ErrShortTransfer = errors.New("transport: byte count mismatch")
	ErrOutOfRange    = errors.New("transport: address outside of window")
	ErrMisaligned    = errors.New("transport: address not word aligned")
	ErrBadFrame      = errors.New("transport: malformed frame")
)
