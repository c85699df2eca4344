package world

import (
	"sync"

	"tradepost.gg/internal/sim/items"
)

// ItemEntity is a floating rendered item: the visual proxy a shop display
// owns. Entities are ephemeral world state, never persisted.
type ItemEntity struct {
	ID           uint64
	World        string
	Pos          Vec3
	Item         items.Amount
	Label        string
	LabelVisible bool

	// Display marks entities spawned by the display layer so startup sweeps
	// can tell strays from ordinary dropped items.
	Display bool
}

type entityTable struct {
	mu  sync.Mutex
	m   map[uint64]*ItemEntity
	seq uint64
}

// SpawnItemEntity creates a display entity and returns its handle.
func (w *World) SpawnItemEntity(worldName string, pos Vec3, item items.Amount, label string) uint64 {
	w.entities.mu.Lock()
	defer w.entities.mu.Unlock()
	w.entities.seq++
	id := w.entities.seq
	w.entities.m[id] = &ItemEntity{
		ID:      id,
		World:   worldName,
		Pos:     pos,
		Item:    item,
		Label:   label,
		Display: true,
	}
	return id
}

func (w *World) RemoveEntity(id uint64) {
	w.entities.mu.Lock()
	defer w.entities.mu.Unlock()
	delete(w.entities.m, id)
}

func (w *World) MoveEntity(id uint64, pos Vec3) {
	w.entities.mu.Lock()
	defer w.entities.mu.Unlock()
	if e, ok := w.entities.m[id]; ok {
		e.Pos = pos
	}
}

func (w *World) SetLabelVisible(id uint64, visible bool) {
	w.entities.mu.Lock()
	defer w.entities.mu.Unlock()
	if e, ok := w.entities.m[id]; ok {
		e.LabelVisible = visible
	}
}

// Entity returns a copy of the entity, if it still exists.
func (w *World) Entity(id uint64) (ItemEntity, bool) {
	w.entities.mu.Lock()
	defer w.entities.mu.Unlock()
	e, ok := w.entities.m[id]
	if !ok {
		return ItemEntity{}, false
	}
	return *e, true
}

// EntitiesNear returns the ids of display entities within radius of center.
// The display layer uses it to sweep orphans physically co-located with a
// shop but absent from its tracking table.
func (w *World) EntitiesNear(worldName string, center Vec3, radius float64) []uint64 {
	w.entities.mu.Lock()
	defer w.entities.mu.Unlock()
	var out []uint64
	for id, e := range w.entities.m {
		if e.World != worldName || !e.Display {
			continue
		}
		if e.Pos.Sub(center).Len() <= radius {
			out = append(out, id)
		}
	}
	return out
}

// StrayDisplayEntities returns all display-flagged entity ids. Startup
// reconciliation removes them wholesale before rebuilding.
func (w *World) StrayDisplayEntities() []uint64 {
	w.entities.mu.Lock()
	defer w.entities.mu.Unlock()
	out := make([]uint64, 0, len(w.entities.m))
	for id, e := range w.entities.m {
		if e.Display {
			out = append(out, id)
		}
	}
	return out
}

func (w *World) EntityCount() int {
	w.entities.mu.Lock()
	defer w.entities.mu.Unlock()
	return len(w.entities.m)
}
