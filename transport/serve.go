package transport

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Serve is the device side of the remote protocol. It decodes frames from the
// link, executes them against target and answers reads, until the link
// reports io.EOF. Any other error stops the loop and is returned. A failed
// read is not answered, so the caller must close the link once Serve returns
// or the host keeps waiting for the reply.
func Serve(link io.ReadWriter, target RegisterAccess) error {
	var hdr [2]byte

	for {
		_, err := io.ReadFull(link, hdr[:])
		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			return err
		}

		err = serveOne(link, target, hdr)
		if err != nil {
			return err
		}
	}
}

func serveOne(link io.ReadWriter, target RegisterAccess, hdr [2]byte) error {
	if hdr[1] != SubOpWord {
		return fmt.Errorf("%w: sub-opcode 0x%02x", ErrBadFrame, hdr[1])
	}

	switch hdr[0] {
	case OpWrite:
		var body [8]byte
		if _, err := io.ReadFull(link, body[:]); err != nil {
			return err
		}

		addr := binary.BigEndian.Uint32(body[0:4]) << 2
		value := binary.BigEndian.Uint32(body[4:8])

		return target.Write(addr, value)
	case OpRead:
		var body [4]byte
		if _, err := io.ReadFull(link, body[:]); err != nil {
			return err
		}

		addr := binary.BigEndian.Uint32(body[:]) << 2

		value, err := target.Read(addr)
		if err != nil {
			return err
		}

		reply := EncodeReply(value)
		_, err = link.Write(reply[:])

		return err
	}

	return fmt.Errorf("%w: opcode 0x%02x", ErrBadFrame, hdr[0])
}
