package transport

import (
	"fmt"
	"sync/atomic"
	"unsafe"
)

// Window is a physical address range that Direct maps.
type Window struct {
	Base uint32
	Size uint32
}

func (w Window) contains(addr uint32) bool {
	return addr >= w.Base && uint64(addr)+4 <= uint64(w.Base)+uint64(w.Size)
}

type mapping struct {
	Window
	mem []byte
}

// Direct accesses registers through mapped physical windows. Each access is a
// single 32-bit atomic load or store on the mapped word, so the compiler
// never elides, merges or reorders it.
type Direct struct {
	mappings []mapping
	closer   func() error
}

func (d *Direct) find(addr uint32) (*mapping, error) {
	if addr%4 != 0 {
		return nil, fmt.Errorf("access 0x%08x: %w", addr, ErrMisaligned)
	}

	for i := range d.mappings {
		if d.mappings[i].contains(addr) {
			return &d.mappings[i], nil
		}
	}

	return nil, fmt.Errorf("access 0x%08x: %w", addr, ErrOutOfRange)
}

func (m *mapping) word(addr uint32) *uint32 {
	return (*uint32)(unsafe.Pointer(&m.mem[addr-m.Base]))
}

// Read loads the word at addr.
func (d *Direct) Read(addr uint32) (uint32, error) {
	m, err := d.find(addr)
	if err != nil {
		return 0, err
	}

	return atomic.LoadUint32(m.word(addr)), nil
}

// Write stores the word at addr.
func (d *Direct) Write(addr, value uint32) error {
	m, err := d.find(addr)
	if err != nil {
		return err
	}

	atomic.StoreUint32(m.word(addr), value)

	return nil
}

// Close unmaps every window.
func (d *Direct) Close() error {
	if d.closer == nil {
		return nil
	}

	err := d.closer()
	d.closer = nil
	d.mappings = nil

	return err
}
