package market

import (
	"math"

	"tradepost.gg/internal/sim/world"
)

// observes reports whether the proxy at pos is in the actor's world, within
// view distance, and not behind a solid block. Proxy existence follows this
// test; turning the head away does not tear a proxy down.
func (m *DisplayManager) observes(a world.ActorState, pos world.Pos) bool {
	if a.World != pos.World {
		return false
	}
	target := m.spawnPos(pos)
	if target.Sub(a.Eye).Len() > m.cfg.ViewDistance {
		return false
	}
	return m.stage.ClearPath(pos.World, a.Eye, target)
}

// looksAt additionally requires pos inside the actor's 45-degree view cone.
// Label visibility follows this stricter test.
func (m *DisplayManager) looksAt(a world.ActorState, pos world.Pos) bool {
	if !m.observes(a, pos) {
		return false
	}
	return a.View.Angle(m.spawnPos(pos).Sub(a.Eye)) <= viewCone
}

// wantedSet computes which shop positions should currently have a proxy: the
// chunk is loaded and at least one actor observes the position.
func (m *DisplayManager) wantedSet() map[world.Pos]*Shop {
	actors := m.stage.ActorStates()
	wanted := make(map[world.Pos]*Shop)
	for _, shop := range m.reg.All() {
		if !m.stage.ChunkLoaded(shop.Position.Chunk()) {
			continue
		}
		for _, a := range actors {
			if m.observes(a, shop.Position) {
				wanted[shop.Position] = shop
				break
			}
		}
	}
	return wanted
}

// VisibilityPass runs every tick: create proxies that just became visible,
// remove those that just left visibility, toggle labels on notable items.
func (m *DisplayManager) VisibilityPass() {
	if !m.cfg.Enabled {
		return
	}
	wanted := m.wantedSet()

	m.mu.Lock()
	defer m.mu.Unlock()
	for pos := range m.tracked {
		if _, ok := wanted[pos]; !ok {
			m.removeLocked(pos)
		}
	}
	for pos, shop := range wanted {
		if _, ok := m.tracked[pos]; !ok {
			m.createLocked(shop)
		}
	}
	m.updateLabelsLocked()
}

// updateLabelsLocked flips label visibility on notable proxies. Plain items
// never show one.
func (m *DisplayManager) updateLabelsLocked() {
	for pos, p := range m.tracked {
		if p.label == "" {
			continue
		}
		show := false
		for _, a := range m.stage.ActorStates() {
			if m.looksAt(a, pos) {
				show = true
				break
			}
		}
		if p.labelSeen != show {
			p.labelSeen = show
			m.stage.SetLabelVisible(p.entity, show)
		}
	}
}

// AnimationPass runs every tick: bob each proxy by a deterministic function
// of elapsed ticks. Proxies whose shop or region no longer exists are removed
// rather than animated.
func (m *DisplayManager) AnimationPass() {
	if !m.cfg.Enabled {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.animTick += 0.05
	bob := math.Sin(m.animTick*m.cfg.Frequency) * m.cfg.Amplitude
	for pos, p := range m.tracked {
		if !m.reg.Contains(pos) || !m.stage.ChunkLoaded(pos.Chunk()) {
			m.removeLocked(pos)
			continue
		}
		if _, alive := m.stage.Entity(p.entity); !alive {
			m.removeLocked(pos)
			continue
		}
		m.stage.MoveEntity(p.entity, world.Vec3{
			X: float64(pos.X) + 0.5,
			Y: float64(pos.Y) + m.cfg.Height + bob,
			Z: float64(pos.Z) + 0.5,
		})
	}
}

// Reconcile recomputes the visible set from scratch, removing stale tracked
// proxies, sweeping orphans at every shop position, and creating what is
// missing. It corrects any drift the incremental passes accumulated.
func (m *DisplayManager) Reconcile() {
	if !m.cfg.Enabled {
		return
	}
	wanted := m.wantedSet()

	m.mu.Lock()
	defer m.mu.Unlock()
	for pos := range m.tracked {
		if _, ok := wanted[pos]; !ok {
			m.removeLocked(pos)
		}
	}
	// Orphan sweep at every registered position, tracked or not: entities at
	// a display spot that the table does not own are stale.
	for _, shop := range m.reg.All() {
		pos := shop.Position
		var own uint64
		if p, ok := m.tracked[pos]; ok {
			own = p.entity
		}
		for _, id := range m.stage.EntitiesNear(pos.World, m.spawnPos(pos), orphanRadius) {
			if id != own {
				m.stage.RemoveEntity(id)
			}
		}
	}
	for pos, shop := range wanted {
		if _, ok := m.tracked[pos]; !ok {
			m.createLocked(shop)
		}
	}
	m.updateLabelsLocked()
}

// Startup removes every stray display entity left over from a previous run,
// resets tracking, and rebuilds from the registry.
func (m *DisplayManager) Startup() {
	if !m.cfg.Enabled {
		return
	}
	m.mu.Lock()
	for _, id := range m.stage.StrayDisplayEntities() {
		m.stage.RemoveEntity(id)
	}
	m.tracked = make(map[world.Pos]*proxy)
	m.byChunk = make(map[world.ChunkKey]map[world.Pos]struct{})
	m.mu.Unlock()

	m.Reconcile()
}

// BuildChunk creates proxies for every shop in a freshly loaded chunk. The
// visibility pass will trim ones nobody can see; creating eagerly here keeps
// the load path simple, as a proxy may lag reality by at most one pass.
func (m *DisplayManager) BuildChunk(key world.ChunkKey) {
	if !m.cfg.Enabled || !m.stage.ChunkLoaded(key) {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, shop := range m.reg.All() {
		if shop.Position.Chunk() == key {
			m.createLocked(shop)
		}
	}
}

// DropChunk removes every proxy in an unloading chunk immediately,
// independent of the periodic passes.
func (m *DisplayManager) DropChunk(key world.ChunkKey) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.byChunk[key]
	if !ok {
		return
	}
	positions := make([]world.Pos, 0, len(set))
	for pos := range set {
		positions = append(positions, pos)
	}
	for _, pos := range positions {
		m.removeLocked(pos)
	}
}

// Attach wires the manager onto the world's tick loop: visibility and
// animation every tick, reconciliation every reconcileEvery ticks, chunk
// load/unload triggers (load deferred by SettleTicks so the chunk finishes
// settling).
func (m *DisplayManager) Attach(w *world.World, reconcileEvery uint64) {
	if reconcileEvery == 0 {
		reconcileEvery = 100
	}
	w.OnChunkLoad(func(key world.ChunkKey) {
		w.After(m.cfg.SettleTicks, func() { m.BuildChunk(key) })
	})
	w.OnChunkUnload(m.DropChunk)
	w.OnTick(func(tick uint64) {
		m.VisibilityPass()
		m.AnimationPass()
		if tick%reconcileEvery == 0 {
			m.Reconcile()
		}
	})
}
