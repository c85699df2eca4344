package items

import (
	"fmt"
	"sort"
	"strings"
)

// DefaultStackLimit applies to any kind the catalog has no definition for.
const DefaultStackLimit = 64

// Modifier is an enchantment-like attribute attached to an item. Modifiers
// participate in equivalence: two amounts match only when their modifier sets
// are identical.
type Modifier struct {
	ID    string `json:"id"`
	Level int    `json:"level"`
}

// Amount describes a kind plus a quantity plus an optional modifier set.
// It is a value type; treat instances as immutable.
type Amount struct {
	Kind  string     `json:"kind"`
	Count int        `json:"amount"`
	Mods  []Modifier `json:"modifiers,omitempty"`
}

func New(kind string, count int, mods ...Modifier) Amount {
	return Amount{Kind: kind, Count: count, Mods: canonMods(mods)}
}

// WithCount returns a copy carrying a different quantity.
func (a Amount) WithCount(n int) Amount {
	return Amount{Kind: a.Kind, Count: n, Mods: a.Mods}
}

// EquivalentTo reports whether two amounts refer to the same tradable thing:
// same kind and same modifier set, quantity ignored.
func (a Amount) EquivalentTo(b Amount) bool {
	return a.Kind == b.Kind && ModsEqual(a.Mods, b.Mods)
}

// Notable reports whether the item deserves a floating label: anything
// carrying modifiers.
func (a Amount) Notable() bool { return len(a.Mods) > 0 }

// Label renders the modifier set for display, e.g. "SHARPNESS III, UNBREAKING I".
func (a Amount) Label() string {
	if len(a.Mods) == 0 {
		return ""
	}
	parts := make([]string, 0, len(a.Mods))
	for _, m := range a.Mods {
		parts = append(parts, fmt.Sprintf("%s %s", m.ID, roman(m.Level)))
	}
	return strings.Join(parts, ", ")
}

func (a Amount) String() string {
	if len(a.Mods) == 0 {
		return fmt.Sprintf("%dx %s", a.Count, a.Kind)
	}
	return fmt.Sprintf("%dx %s (%s)", a.Count, a.Kind, a.Label())
}

func ModsEqual(a, b []Modifier) bool {
	if len(a) != len(b) {
		return false
	}
	ca, cb := canonMods(a), canonMods(b)
	for i := range ca {
		if ca[i] != cb[i] {
			return false
		}
	}
	return true
}

func canonMods(mods []Modifier) []Modifier {
	if len(mods) == 0 {
		return nil
	}
	out := make([]Modifier, len(mods))
	copy(out, mods)
	sort.Slice(out, func(i, j int) bool {
		if out[i].ID != out[j].ID {
			return out[i].ID < out[j].ID
		}
		return out[i].Level < out[j].Level
	})
	return out
}

func roman(n int) string {
	if n <= 0 || n > 10 {
		return fmt.Sprintf("%d", n)
	}
	return [...]string{"I", "II", "III", "IV", "V", "VI", "VII", "VIII", "IX", "X"}[n-1]
}
