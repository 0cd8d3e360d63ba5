package transport

import (
	"errors"
	"fmt"
	"io"
)

// Remote forwards register accesses over a byte link. Every call blocks until
// the link has accepted the request and, for reads, returned the reply. There
// is no timeout; a link that stops answering hangs the caller.
type Remote struct {
	link  io.ReadWriter
	reply [ReplySize]byte
}

// NewRemote creates a Remote over a byte link that is already configured
// (baud rate, raw mode, framing).
func NewRemote(link io.ReadWriter) *Remote {
	return &Remote{link: link}
}

// Write sends a write frame.
func (r *Remote) Write(addr, value uint32) error {
	frame := EncodeWrite(addr, value)

	return r.send(addr, frame[:])
}

// Read sends a read frame and waits for the reply.
func (r *Remote) Read(addr uint32) (uint32, error) {
	frame := EncodeRead(addr)

	err := r.send(addr, frame[:])
	if err != nil {
		return 0, err
	}

	n, err := io.ReadFull(r.link, r.reply[:])
	if err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return 0, fmt.Errorf("read 0x%08x: %w: received %d of %d bytes",
				addr, ErrShortTransfer, n, ReplySize)
		}

		return 0, fmt.Errorf("read 0x%08x: %w", addr, err)
	}

	return DecodeReply(r.reply[:])
}

func (r *Remote) send(addr uint32, frame []byte) error {
	n, err := r.link.Write(frame)
	if err != nil {
		return fmt.Errorf("access 0x%08x: %w", addr, err)
	}

	if n != len(frame) {
		return fmt.Errorf("access 0x%08x: %w: sent %d of %d bytes",
			addr, ErrShortTransfer, n, len(frame))
	}

	return nil
}
