package world

import (
	"testing"

	"tradepost.gg/internal/sim/items"
)

func fixedLimit(n int) func(string) int {
	return func(string) int { return n }
}

func TestInventoryCountModifierAware(t *testing.T) {
	inv := NewInventory(9, fixedLimit(64))
	plain := items.New("DIAMOND_SWORD", 1)
	sharp := items.New("DIAMOND_SWORD", 1, items.Modifier{ID: "SHARPNESS", Level: 3})

	inv.SetSlot(0, &plain)
	inv.SetSlot(3, &sharp)
	two := plain.WithCount(2)
	inv.SetSlot(7, &two)

	if got := inv.Count(plain); got != 3 {
		t.Fatalf("plain count = %d, want 3", got)
	}
	if got := inv.Count(sharp); got != 1 {
		t.Fatalf("modified count = %d, want 1", got)
	}
}

func TestInventoryRemoveSpreadsAcrossSlots(t *testing.T) {
	inv := NewInventory(9, fixedLimit(64))
	a := items.New("STONE", 40)
	b := items.New("STONE", 30)
	inv.SetSlot(0, &a)
	inv.SetSlot(5, &b)

	if !inv.Remove(items.New("STONE", 0), 50) {
		t.Fatalf("remove 50 of 70 should succeed")
	}
	if got := inv.Count(items.New("STONE", 0)); got != 20 {
		t.Fatalf("count after remove = %d, want 20", got)
	}
}

func TestInventoryRemoveAllOrNothing(t *testing.T) {
	inv := NewInventory(9, fixedLimit(64))
	a := items.New("STONE", 10)
	inv.SetSlot(0, &a)

	if inv.Remove(items.New("STONE", 0), 11) {
		t.Fatalf("remove beyond stock should fail")
	}
	if got := inv.Count(items.New("STONE", 0)); got != 10 {
		t.Fatalf("failed remove must not mutate: count = %d", got)
	}
}

func TestInventoryRemoveIgnoresNonEquivalent(t *testing.T) {
	inv := NewInventory(9, fixedLimit(64))
	sharp := items.New("DIAMOND_SWORD", 1, items.Modifier{ID: "SHARPNESS", Level: 3})
	inv.SetSlot(0, &sharp)

	if inv.Remove(items.New("DIAMOND_SWORD", 0), 1) {
		t.Fatalf("plain match must not consume the modified stack")
	}
	if !inv.Remove(sharp, 1) {
		t.Fatalf("modified match should consume it")
	}
}

func TestInventoryAddFillsEquivalentStacksFirst(t *testing.T) {
	inv := NewInventory(3, fixedLimit(64))
	a := items.New("STONE", 60)
	inv.SetSlot(1, &a)

	if !inv.Add(items.New("STONE", 0), 10) {
		t.Fatalf("add should succeed")
	}
	snap := inv.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("snapshot len = %d, want 2 stacks", len(snap))
	}
	if got := inv.Count(items.New("STONE", 0)); got != 70 {
		t.Fatalf("count = %d, want 70", got)
	}
	// The partial stack must have been topped off to the limit.
	topped := false
	for _, s := range snap {
		if s.Count == 64 {
			topped = true
		}
	}
	if !topped {
		t.Fatalf("existing stack was not topped off: %v", snap)
	}
}

func TestInventoryAddAllOrNothing(t *testing.T) {
	inv := NewInventory(1, fixedLimit(64))
	a := items.New("STONE", 60)
	inv.SetSlot(0, &a)

	if inv.Add(items.New("STONE", 0), 5) {
		t.Fatalf("add beyond capacity should fail")
	}
	if got := inv.Count(items.New("STONE", 0)); got != 60 {
		t.Fatalf("failed add must not mutate: count = %d", got)
	}
}

func TestInventoryAddRespectsStackLimitPerKind(t *testing.T) {
	limits := map[string]int{"DIAMOND_SWORD": 1}
	inv := NewInventory(2, func(kind string) int {
		if l, ok := limits[kind]; ok {
			return l
		}
		return 64
	})
	if !inv.Add(items.New("DIAMOND_SWORD", 0), 2) {
		t.Fatalf("two unstackables fit two slots")
	}
	if inv.Add(items.New("DIAMOND_SWORD", 0), 1) {
		t.Fatalf("third unstackable should not fit")
	}
}

func TestInventoryHasRoom(t *testing.T) {
	inv := NewInventory(2, fixedLimit(64))
	a := items.New("STONE", 64)
	inv.SetSlot(0, &a)

	if !inv.HasRoom(items.New("DIRT", 0), 64) {
		t.Fatalf("empty slot should hold a full stack")
	}
	if inv.HasRoom(items.New("DIRT", 0), 65) {
		t.Fatalf("one empty slot cannot hold 65")
	}
}

func TestInventoryFindNotable(t *testing.T) {
	inv := NewInventory(9, fixedLimit(64))
	plain := items.New("BOW", 1)
	power := items.New("BOW", 1, items.Modifier{ID: "POWER", Level: 2})
	inv.SetSlot(0, &plain)
	inv.SetSlot(4, &power)

	got, ok := inv.FindNotable("BOW")
	if !ok {
		t.Fatalf("expected a notable bow")
	}
	if !got.EquivalentTo(power) {
		t.Fatalf("found %v, want the modified variant", got)
	}
	if _, ok := inv.FindNotable("STONE"); ok {
		t.Fatalf("no notable stone exists")
	}
}

func TestInventorySetSlotCopies(t *testing.T) {
	inv := NewInventory(1, fixedLimit(64))
	a := items.New("STONE", 5)
	inv.SetSlot(0, &a)
	a.Count = 99
	if got := inv.Count(items.New("STONE", 0)); got != 5 {
		t.Fatalf("SetSlot must copy, count = %d", got)
	}
}
