// Package hooking lets observers attach to register accesses, calibration
// samples and long-running bring-up tasks without the core depending on
// what the observers do with them.
package hooking

import "sync"

// HookPos names a site at which a domain fires its hooks.
type HookPos struct {
	Name string
}

// HookCtx describes one firing: the domain that fired, the site, and the
// site-specific payload.
type HookCtx struct {
	Domain Hookable
	Pos    *HookPos
	Item   interface{}
	Detail interface{}
}

// Hookable is implemented by everything observers can attach to.
type Hookable interface {
	AcceptHook(hook Hook)
	NumHooks() int
	Hooks() []Hook
}

// Hook observes the sites of the domains it is attached to.
type Hook interface {
	Func(ctx HookCtx)
}

// HookFunc adapts a plain function to the Hook interface.
type HookFunc func(ctx HookCtx)

// Func calls f.
func (f HookFunc) Func(ctx HookCtx) {
	f(ctx)
}

// HookableBase is embedded by domains to keep their hook list. Hooks may be
// attached while another goroutine fires, as the monitor does with a running
// bring-up.
type HookableBase struct {
	mu    sync.RWMutex
	hooks []Hook
}

// NumHooks returns the number of attached hooks.
func (h *HookableBase) NumHooks() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.hooks)
}

// Hooks returns a copy of the attached hooks.
func (h *HookableBase) Hooks() []Hook {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return append([]Hook(nil), h.hooks...)
}

// AcceptHook attaches a hook. Attaching the same hook value twice panics;
// HookFunc values cannot be compared and are always accepted.
func (h *HookableBase) AcceptHook(hook Hook) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, isFunc := hook.(HookFunc); !isFunc {
		for _, existing := range h.hooks {
			if existing == hook {
				panic("hooking: hook attached twice")
			}
		}
	}

	h.hooks = append(h.hooks, hook)
}

// InvokeHook calls every attached hook in attach order.
func (h *HookableBase) InvokeHook(ctx HookCtx) {
	for _, hook := range h.Hooks() {
		hook.Func(ctx)
	}
}
