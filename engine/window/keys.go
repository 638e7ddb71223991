package window

import (
	"slices"
	"sync"
)

// keyAction is a platform-neutral key transition.
type keyAction int

const (
	keyPressed keyAction = iota
	keyReleased
	keyRepeated
)

// heldKeys tracks which key codes are currently down so a lost release can be synthesized.
type heldKeys struct {
	mu   sync.Mutex
	down map[uint32]struct{}
}

func newHeldKeys() *heldKeys {
	return &heldKeys{down: make(map[uint32]struct{})}
}

// press marks code as held. Returns false if it was already held.
func (h *heldKeys) press(code uint32) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.down[code]; ok {
		return false
	}
	h.down[code] = struct{}{}
	return true
}

// release clears code. Returns false if it was not held.
func (h *heldKeys) release(code uint32) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.down[code]; !ok {
		return false
	}
	delete(h.down, code)
	return true
}

// releaseAll clears every held key and returns them in ascending order.
func (h *heldKeys) releaseAll() []uint32 {
	h.mu.Lock()
	defer h.mu.Unlock()
	codes := make([]uint32, 0, len(h.down))
	for code := range h.down {
		codes = append(codes, code)
	}
	clear(h.down)
	slices.Sort(codes)
	return codes
}

func (h *heldKeys) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.down)
}
