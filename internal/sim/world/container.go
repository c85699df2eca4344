package world

import "sync"

const containerSlots = 27

// Container is a placed inventory block (chest, barrel) that can back a shop.
type Container struct {
	Kind string
	Pos  Pos
	Inv  *Inventory
}

type containerTable struct {
	mu sync.RWMutex
	m  map[Pos]*Container
}

func (w *World) PlaceContainer(pos Pos, kind string) *Container {
	w.containers.mu.Lock()
	defer w.containers.mu.Unlock()
	if c, ok := w.containers.m[pos]; ok {
		c.Kind = kind
		return c
	}
	c := &Container{
		Kind: kind,
		Pos:  pos,
		Inv:  NewInventory(containerSlots, w.catalog.StackLimit),
	}
	w.containers.m[pos] = c
	w.chunks.SetBlock(pos, Block{Kind: kind})
	return c
}

func (w *World) RemoveContainer(pos Pos) {
	w.containers.mu.Lock()
	defer w.containers.mu.Unlock()
	delete(w.containers.m, pos)
	w.chunks.RemoveBlock(pos)
}

func (w *World) ContainerAt(pos Pos) (*Container, bool) {
	w.containers.mu.RLock()
	defer w.containers.mu.RUnlock()
	c, ok := w.containers.m[pos]
	return c, ok
}

// ValidShopContainer reports whether the block at pos is one of the kinds a
// shop may be anchored to.
func (w *World) ValidShopContainer(pos Pos) bool {
	w.containers.mu.RLock()
	c, ok := w.containers.m[pos]
	w.containers.mu.RUnlock()
	if !ok {
		return false
	}
	for _, kind := range w.cfg.ShopContainers {
		if c.Kind == kind {
			return true
		}
	}
	return false
}
