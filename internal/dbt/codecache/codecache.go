// Package codecache implements the process-wide code cache (component
// F's dispatch table): a fixed-size table mapping guest PC to compiled
// entry, published with acquire/release semantics so the interpreter's
// hot path can probe it without taking a lock (spec §5).
package codecache

import (
	"sync/atomic"
)

// Entry is the compiled form installed for a guest PC: an index into the
// manager's compiled-region slice, not the function pointer itself, so a
// probe that hits the cache still validates against the manager's table
// under its own lock before jumping.
type Entry struct {
	// GuestPC identifies which region this slot currently holds, so a
	// hash collision can be detected and treated as a miss.
	GuestPC uint32
	// Index is the compiled-region slot the manager should look up.
	Index uint32
}

const emptySentinel = ^uint32(0)

// Table is a fixed-size, lock-free lookup structure keyed by guest PC
// modulo its length. It never grows; a collision simply evicts the prior
// occupant, trading a compile-again miss for bounded memory, matching the
// source's fixed code-cache array.
type Table struct {
	slots []atomic.Uint64
}

// NewTable returns a Table with size slots, all initially empty.
func NewTable(size int) *Table {
	t := &Table{slots: make([]atomic.Uint64, size)}
	for i := range t.slots {
		t.slots[i].Store(pack(emptySentinel, 0))
	}
	return t
}

func (t *Table) index(pc uint32) int {
	return int(pc) % len(t.slots)
}

func pack(guestPC, idx uint32) uint64 {
	return uint64(guestPC)<<32 | uint64(idx)
}

func unpack(v uint64) (guestPC, idx uint32) {
	return uint32(v >> 32), uint32(v)
}

// Lookup probes the table for pc, returning the stored Entry and true on a
// hit (same pc, not the empty sentinel), or the zero Entry and false on a
// miss. Safe for concurrent use without external locking; the atomic load
// is the acquire half of the publication protocol Install's atomic store
// provides the release half of.
func (t *Table) Lookup(pc uint32) (Entry, bool) {
	v := t.slots[t.index(pc)].Load()
	guestPC, idx := unpack(v)
	if guestPC != pc || guestPC == emptySentinel {
		return Entry{}, false
	}
	return Entry{GuestPC: guestPC, Index: idx}, true
}

// Install publishes e, making it visible to concurrent Lookup callers via
// a single atomic store. Called only after the manager has fully built
// and linked the compiled region e.Index refers to — publication must be
// the last step, not the first, so no Lookup can observe a partially
// built entry.
func (t *Table) Install(e Entry) {
	t.slots[t.index(e.GuestPC)].Store(pack(e.GuestPC, e.Index))
}

// Evict clears whatever entry currently occupies pc's slot, regardless of
// which guest PC is stored there.
func (t *Table) Evict(pc uint32) {
	t.slots[t.index(pc)].Store(pack(emptySentinel, 0))
}
