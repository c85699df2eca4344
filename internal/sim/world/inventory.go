package world

import (
	"sync"

	"tradepost.gg/internal/sim/items"
)

// Inventory is a fixed-size slotted container. Every operation is atomic
// under the inventory's own mutex; compound check-then-act sequences (the
// trade protocol) are serialized by the per-position shop lock, not here.
type Inventory struct {
	mu    sync.Mutex
	slots []*items.Amount
	limit func(kind string) int
}

func NewInventory(size int, stackLimit func(kind string) int) *Inventory {
	if stackLimit == nil {
		stackLimit = func(string) int { return items.DefaultStackLimit }
	}
	return &Inventory{
		slots: make([]*items.Amount, size),
		limit: stackLimit,
	}
}

func (inv *Inventory) Size() int { return len(inv.slots) }

// SetSlot overwrites a slot directly. Intended for setup (world gen, tests);
// a nil amount clears the slot.
func (inv *Inventory) SetSlot(i int, a *items.Amount) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	if i < 0 || i >= len(inv.slots) {
		return
	}
	if a == nil {
		inv.slots[i] = nil
		return
	}
	cp := *a
	inv.slots[i] = &cp
}

// Count sums the quantity of all stacks equivalent to match, scanning the
// full contents. Equivalence is modifier-aware.
func (inv *Inventory) Count(match items.Amount) int {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.countLocked(match)
}

func (inv *Inventory) countLocked(match items.Amount) int {
	n := 0
	for _, s := range inv.slots {
		if s != nil && s.EquivalentTo(match) {
			n += s.Count
		}
	}
	return n
}

func (inv *Inventory) Has(match items.Amount, n int) bool {
	return inv.Count(match) >= n
}

// HasRoom reports whether n units of item fit: an empty slot, or an
// equivalent stack with residual capacity.
func (inv *Inventory) HasRoom(item items.Amount, n int) bool {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.roomLocked(item) >= n
}

func (inv *Inventory) roomLocked(item items.Amount) int {
	limit := inv.limit(item.Kind)
	room := 0
	for _, s := range inv.slots {
		switch {
		case s == nil:
			room += limit
		case s.EquivalentTo(item) && s.Count < limit:
			room += limit - s.Count
		}
	}
	return room
}

// Remove takes n units of stacks equivalent to match, spread across slots.
// All-or-nothing: when fewer than n units are present nothing is removed and
// Remove reports false.
func (inv *Inventory) Remove(match items.Amount, n int) bool {
	if n <= 0 {
		return true
	}
	inv.mu.Lock()
	defer inv.mu.Unlock()
	if inv.countLocked(match) < n {
		return false
	}
	remaining := n
	for i, s := range inv.slots {
		if remaining == 0 {
			break
		}
		if s == nil || !s.EquivalentTo(match) {
			continue
		}
		if s.Count <= remaining {
			remaining -= s.Count
			inv.slots[i] = nil
		} else {
			cp := s.WithCount(s.Count - remaining)
			inv.slots[i] = &cp
			remaining = 0
		}
	}
	return remaining == 0
}

// Add places n units of item, filling equivalent stacks first, then empty
// slots. All-or-nothing: reports false and leaves the inventory untouched
// when the units do not fit.
func (inv *Inventory) Add(item items.Amount, n int) bool {
	if n <= 0 {
		return true
	}
	inv.mu.Lock()
	defer inv.mu.Unlock()
	if inv.roomLocked(item) < n {
		return false
	}
	limit := inv.limit(item.Kind)
	remaining := n
	for i, s := range inv.slots {
		if remaining == 0 {
			return true
		}
		if s == nil || !s.EquivalentTo(item) || s.Count >= limit {
			continue
		}
		take := limit - s.Count
		if take > remaining {
			take = remaining
		}
		cp := s.WithCount(s.Count + take)
		inv.slots[i] = &cp
		remaining -= take
	}
	for i, s := range inv.slots {
		if remaining == 0 {
			break
		}
		if s != nil {
			continue
		}
		take := limit
		if take > remaining {
			take = remaining
		}
		cp := item.WithCount(take)
		inv.slots[i] = &cp
		remaining -= take
	}
	return remaining == 0
}

// Snapshot returns a copy of all occupied stacks.
func (inv *Inventory) Snapshot() []items.Amount {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	out := make([]items.Amount, 0, len(inv.slots))
	for _, s := range inv.slots {
		if s != nil {
			out = append(out, *s)
		}
	}
	return out
}

// FindNotable returns the first modifier-bearing stack of the given kind.
// Shop creation uses it to capture the enchanted variant held in the
// backing container.
func (inv *Inventory) FindNotable(kind string) (items.Amount, bool) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	for _, s := range inv.slots {
		if s != nil && s.Kind == kind && s.Notable() {
			return *s, true
		}
	}
	return items.Amount{}, false
}
