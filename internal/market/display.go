package market

import (
	"log"
	"math"
	"sync"

	"tradepost.gg/internal/sim/items"
	"tradepost.gg/internal/sim/world"
)

// Stage is the world surface the display layer drives: entity lifecycle plus
// the spatial queries visibility needs. *world.World satisfies it.
type Stage interface {
	ChunkLoaded(key world.ChunkKey) bool
	SpawnItemEntity(worldName string, pos world.Vec3, item items.Amount, label string) uint64
	RemoveEntity(id uint64)
	MoveEntity(id uint64, pos world.Vec3)
	SetLabelVisible(id uint64, visible bool)
	Entity(id uint64) (world.ItemEntity, bool)
	EntitiesNear(worldName string, center world.Vec3, radius float64) []uint64
	StrayDisplayEntities() []uint64
	ActorStates() []world.ActorState
	ClearPath(worldName string, from, to world.Vec3) bool
}

type DisplayConfig struct {
	Enabled      bool
	ViewDistance float64
	Height       float64 // hover height above the container block
	Amplitude    float64 // bob amplitude
	Frequency    float64 // bob frequency multiplier
	SettleTicks  uint64  // delay after chunk load before building proxies
}

func (c *DisplayConfig) applyDefaults() {
	if c.ViewDistance <= 0 {
		c.ViewDistance = 16
	}
	if c.Height <= 0 {
		c.Height = 1.2
	}
	if c.Amplitude <= 0 {
		c.Amplitude = 0.15
	}
	if c.Frequency <= 0 {
		c.Frequency = 1
	}
	if c.SettleTicks == 0 {
		c.SettleTicks = 2
	}
}

// viewCone is the half-angle of the visibility cone (45 degrees).
const viewCone = math.Pi / 4

// orphanRadius is how far around a display position the layer scans for
// entities it does not track.
const orphanRadius = 0.75

type proxy struct {
	entity    uint64
	item      items.Amount
	label     string
	labelSeen bool
}

// DisplayManager owns the ephemeral visual proxies for shops. It reads the
// registry, never mutates trade state, and keeps the proxy table consistent
// with reality through incremental passes plus a full reconciliation. All
// tracking-table mutation happens under one mutex, which also serializes
// create/remove for any single position.
type DisplayManager struct {
	stage Stage
	reg   *Registry
	cfg   DisplayConfig
	log   *log.Logger

	mu       sync.Mutex
	tracked  map[world.Pos]*proxy
	byChunk  map[world.ChunkKey]map[world.Pos]struct{}
	animTick float64
}

func NewDisplayManager(stage Stage, reg *Registry, cfg DisplayConfig, logger *log.Logger) *DisplayManager {
	cfg.applyDefaults()
	return &DisplayManager{
		stage:   stage,
		reg:     reg,
		cfg:     cfg,
		log:     logger,
		tracked: make(map[world.Pos]*proxy),
		byChunk: make(map[world.ChunkKey]map[world.Pos]struct{}),
	}
}

// spawnPos is where a shop's proxy hovers: block center, Height above.
func (m *DisplayManager) spawnPos(pos world.Pos) world.Vec3 {
	return world.Vec3{
		X: float64(pos.X) + 0.5,
		Y: float64(pos.Y) + m.cfg.Height,
		Z: float64(pos.Z) + 0.5,
	}
}

// Rebuild creates (or recreates) the proxy for the shop at pos. Idempotent:
// an existing proxy is removed first, and co-located orphans are swept.
func (m *DisplayManager) Rebuild(pos world.Pos) {
	if !m.cfg.Enabled {
		return
	}
	shop, ok := m.reg.Get(pos)
	if !ok {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createLocked(shop)
}

// Drop removes the proxy at pos, tracked or orphaned.
func (m *DisplayManager) Drop(pos world.Pos) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeLocked(pos)
}

func (m *DisplayManager) createLocked(shop *Shop) {
	pos := shop.Position
	m.removeLocked(pos)
	if !m.stage.ChunkLoaded(pos.Chunk()) {
		return
	}

	item := shop.Offered.WithCount(1)
	label := ""
	if item.Notable() {
		label = item.Label()
	}
	id := m.stage.SpawnItemEntity(pos.World, m.spawnPos(pos), item, label)
	m.tracked[pos] = &proxy{entity: id, item: item, label: label}

	key := pos.Chunk()
	set, ok := m.byChunk[key]
	if !ok {
		set = make(map[world.Pos]struct{})
		m.byChunk[key] = set
	}
	set[pos] = struct{}{}
}

// removeLocked drops the tracked proxy at pos and sweeps any entity
// physically co-located but absent from the tracking table. Environment churn
// can desynchronize tracking from reality; overwriting is not enough.
func (m *DisplayManager) removeLocked(pos world.Pos) {
	key := pos.Chunk()
	if set, ok := m.byChunk[key]; ok {
		delete(set, pos)
		if len(set) == 0 {
			delete(m.byChunk, key)
		}
	}

	if p, ok := m.tracked[pos]; ok {
		m.stage.RemoveEntity(p.entity)
		delete(m.tracked, pos)
	}
	for _, id := range m.stage.EntitiesNear(pos.World, m.spawnPos(pos), orphanRadius) {
		m.stage.RemoveEntity(id)
	}
}

// TrackedCount reports the proxy table size (diagnostics and tests).
func (m *DisplayManager) TrackedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tracked)
}

// ProxyEntity returns the entity handle backing the proxy at pos.
func (m *DisplayManager) ProxyEntity(pos world.Pos) (uint64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.tracked[pos]
	if !ok {
		return 0, false
	}
	return p.entity, true
}
