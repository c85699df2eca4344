package items

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

type ItemDef struct {
	ID         string `json:"id"`
	StackLimit int    `json:"stack_limit,omitempty"`
}

// Catalog is the open-ended item kind registry. Unknown kinds are tolerated
// by StackLimit (default limit) but rejected by Lookup, which gates what a
// marker sign may name.
type Catalog struct {
	Defs map[string]ItemDef
}

// Default returns the built-in catalog used when no items.json is shipped.
func Default() *Catalog {
	defs := []ItemDef{
		{ID: "STONE"}, {ID: "DIRT"}, {ID: "COBBLESTONE"}, {ID: "OAK_PLANKS"},
		{ID: "OAK_LOG"}, {ID: "SAND"}, {ID: "GLASS"}, {ID: "BREAD"},
		{ID: "COAL"}, {ID: "IRON_INGOT"}, {ID: "GOLD_INGOT"}, {ID: "DIAMOND"},
		{ID: "EMERALD"}, {ID: "REDSTONE"}, {ID: "LAPIS_LAZULI"},
		{ID: "DIAMOND_SWORD", StackLimit: 1}, {ID: "DIAMOND_PICKAXE", StackLimit: 1},
		{ID: "IRON_SWORD", StackLimit: 1}, {ID: "BOW", StackLimit: 1},
		{ID: "ENCHANTED_BOOK", StackLimit: 1}, {ID: "ENDER_PEARL", StackLimit: 16},
		{ID: "EGG", StackLimit: 16}, {ID: "SNOWBALL", StackLimit: 16},
	}
	c := &Catalog{Defs: make(map[string]ItemDef, len(defs))}
	for _, d := range defs {
		c.Defs[d.ID] = d
	}
	return c
}

// Load reads an item definition file: a JSON array of ItemDef.
func Load(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var defs []ItemDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return nil, fmt.Errorf("items: %w", err)
	}
	c := &Catalog{Defs: make(map[string]ItemDef, len(defs))}
	for _, d := range defs {
		if d.ID == "" {
			return nil, fmt.Errorf("items: def with empty id")
		}
		c.Defs[strings.ToUpper(d.ID)] = d
	}
	return c, nil
}

// StackLimit returns the per-kind stack limit, defaulting for unknown kinds.
func (c *Catalog) StackLimit(kind string) int {
	if c != nil {
		if d, ok := c.Defs[kind]; ok && d.StackLimit > 0 {
			return d.StackLimit
		}
	}
	return DefaultStackLimit
}

// Lookup resolves a user-entered token to a known kind, case-insensitively.
func (c *Catalog) Lookup(token string) (ItemDef, bool) {
	if c == nil {
		return ItemDef{}, false
	}
	d, ok := c.Defs[strings.ToUpper(strings.TrimSpace(token))]
	return d, ok
}
