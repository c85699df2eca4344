package market

import (
	"tradepost.gg/internal/sim/world"
)

// liveWorld adapts *world.World to the engine's WorldView.
type liveWorld struct {
	w *world.World
}

func LiveWorld(w *world.World) WorldView { return liveWorld{w: w} }

func (v liveWorld) Exists(name string) bool               { return v.w.Exists(name) }
func (v liveWorld) ActorConnected(id string) bool         { return v.w.ActorConnected(id) }
func (v liveWorld) ChunkLoaded(key world.ChunkKey) bool   { return v.w.ChunkLoaded(key) }
func (v liveWorld) VerifyMarker(pos world.Pos) bool       { return v.w.VerifyMarker(pos) }
func (v liveWorld) ValidShopContainer(pos world.Pos) bool { return v.w.ValidShopContainer(pos) }
func (v liveWorld) StackLimit(kind string) int            { return v.w.Catalog().StackLimit(kind) }

func (v liveWorld) ActorInventory(id string) (Inventory, bool) {
	a, ok := v.w.Actor(id)
	if !ok || a.Inv == nil {
		return nil, false
	}
	return a.Inv, true
}

func (v liveWorld) ContainerInventory(pos world.Pos) (Inventory, bool) {
	c, ok := v.w.ContainerAt(pos)
	if !ok || c.Inv == nil {
		return nil, false
	}
	return c.Inv, true
}
