package transport

import (
	"encoding/binary"
	"fmt"
)

// Opcodes of the remote register protocol.
const (
	OpWrite   byte = 0x01
	OpRead    byte = 0x02
	SubOpWord byte = 0x01
)

// Frame sizes of the remote register protocol.
const (
	WriteFrameSize = 10
	ReadFrameSize  = 6
	ReplySize      = 4
)

// RegisterIndex converts a byte address to the word index carried on the
// wire.
func RegisterIndex(addr uint32) uint32 {
	return addr >> 2
}

// EncodeWrite builds the frame of a register write. addr is the absolute byte
// address on the bus, not an offset into a block, so the index on the wire is
// addr >> 2 in full: 0x10000004 goes out as 04 00 00 01.
func EncodeWrite(addr, value uint32) [WriteFrameSize]byte {
	var f [WriteFrameSize]byte

	f[0] = OpWrite
	f[1] = SubOpWord
	binary.BigEndian.PutUint32(f[2:6], RegisterIndex(addr))
	binary.BigEndian.PutUint32(f[6:10], value)

	return f
}

// EncodeRead builds the frame of a register read request. addr is absolute,
// as for EncodeWrite.
func EncodeRead(addr uint32) [ReadFrameSize]byte {
	var f [ReadFrameSize]byte

	f[0] = OpRead
	f[1] = SubOpWord
	binary.BigEndian.PutUint32(f[2:6], RegisterIndex(addr))

	return f
}

// DecodeReply extracts the value of a read reply.
func DecodeReply(b []byte) (uint32, error) {
	if len(b) != ReplySize {
		return 0, fmt.Errorf("%w: reply is %d bytes, want %d",
			ErrShortTransfer, len(b), ReplySize)
	}

	return binary.BigEndian.Uint32(b), nil
}

// EncodeReply builds the reply of a read request.
func EncodeReply(value uint32) [ReplySize]byte {
	var r [ReplySize]byte

	binary.BigEndian.PutUint32(r[:], value)

	return r
}
