package transport

import "fmt"

// Memory is a deterministic register space kept in a map. Unwritten words
// read as zero.
type Memory struct {
	words map[uint32]uint32
}

// NewMemory creates an empty Memory.
func NewMemory() *Memory {
	return &Memory{words: make(map[uint32]uint32)}
}

// Read returns the word at addr.
func (m *Memory) Read(addr uint32) (uint32, error) {
	if addr%4 != 0 {
		return 0, fmt.Errorf("read 0x%08x: %w", addr, ErrMisaligned)
	}

	return m.words[addr], nil
}

// Write stores the word at addr.
func (m *Memory) Write(addr, value uint32) error {
	if addr%4 != 0 {
		return fmt.Errorf("write 0x%08x: %w", addr, ErrMisaligned)
	}

	m.words[addr] = value

	return nil
}

// Len returns the number of words that have been written.
func (m *Memory) Len() int {
	return len(m.words)
}
