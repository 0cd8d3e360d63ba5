package transport

import (
	"sync"

	"github.com/sarchlab/dramcal/hooking"
)

// Hook positions of register accesses.
var (
	HookPosRead  = &hooking.HookPos{Name: "RegRead"}
	HookPosWrite = &hooking.HookPos{Name: "RegWrite"}
)

// Access is the item passed to hooks for every register access.
type Access struct {
	Addr  uint32
	Value uint32
	Err   error
}

// Hooked wraps a RegisterAccess and reports every access to its hooks. It
// serializes the accesses, so a session can share it with an inspector that
// reads registers from another goroutine. Hooks run outside the lock.
type Hooked struct {
	hooking.HookableBase

	mu    sync.Mutex
	inner RegisterAccess
	name  string
}

// NewHooked wraps inner. The name identifies the transport in hook contexts.
func NewHooked(name string, inner RegisterAccess) *Hooked {
	return &Hooked{inner: inner, name: name}
}

// Name returns the name of the transport.
func (h *Hooked) Name() string {
	return h.name
}

// Read reads through the inner transport and invokes the read hooks.
func (h *Hooked) Read(addr uint32) (uint32, error) {
	h.mu.Lock()
	v, err := h.inner.Read(addr)
	h.mu.Unlock()

	if h.NumHooks() > 0 {
		h.InvokeHook(hooking.HookCtx{
			Domain: h,
			Pos:    HookPosRead,
			Item:   Access{Addr: addr, Value: v, Err: err},
		})
	}

	return v, err
}

// Write writes through the inner transport and invokes the write hooks.
func (h *Hooked) Write(addr, value uint32) error {
	h.mu.Lock()
	err := h.inner.Write(addr, value)
	h.mu.Unlock()

	if h.NumHooks() > 0 {
		h.InvokeHook(hooking.HookCtx{
			Domain: h,
			Pos:    HookPosWrite,
			Item:   Access{Addr: addr, Value: value, Err: err},
		})
	}

	return err
}
