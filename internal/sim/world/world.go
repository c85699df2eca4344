package world

import (
	"log"
	"sync"
	"sync/atomic"

	"tradepost.gg/internal/sim/items"
)

type Config struct {
	TickRateHz     int
	Worlds         []string
	ShopContainers []string
	ActorSlots     int
}

func (c *Config) applyDefaults() {
	if c.TickRateHz <= 0 {
		c.TickRateHz = 20
	}
	if len(c.Worlds) == 0 {
		c.Worlds = []string{"overworld"}
	}
	if len(c.ShopContainers) == 0 {
		c.ShopContainers = []string{"CHEST", "BARREL"}
	}
	if c.ActorSlots <= 0 {
		c.ActorSlots = 36
	}
}

// World is the authoritative simulation boundary: chunk load state, placed
// blocks, actors, inventories, and display entities. Individual tables carry
// their own locks so read paths (visibility, broadcast snapshots) never stall
// the tick loop; the loop remains the only driver of periodic work.
type World struct {
	cfg     Config
	catalog *items.Catalog
	log     *log.Logger

	tick   atomic.Uint64
	chunks *ChunkStore

	actorsMu sync.RWMutex
	actors   map[string]*Actor

	containers containerTable
	signs      signTable
	entities   entityTable

	sched scheduler

	chunkLoadFns   []func(ChunkKey)
	chunkUnloadFns []func(ChunkKey)

	do   chan func()
	stop chan struct{}
}

func New(cfg Config, catalog *items.Catalog, logger *log.Logger) *World {
	cfg.applyDefaults()
	if catalog == nil {
		catalog = items.Default()
	}
	w := &World{
		cfg:     cfg,
		catalog: catalog,
		log:     logger,
		chunks:  NewChunkStore(),
		actors:  make(map[string]*Actor),
		do:      make(chan func(), 256),
		stop:    make(chan struct{}),
	}
	w.containers.m = make(map[Pos]*Container)
	w.signs.m = make(map[Pos]*Sign)
	w.entities.m = make(map[uint64]*ItemEntity)
	w.sched.delayed = make(map[uint64][]func())
	return w
}

func (w *World) Catalog() *items.Catalog { return w.catalog }
func (w *World) Tick() uint64            { return w.tick.Load() }
func (w *World) TickRateHz() int         { return w.cfg.TickRateHz }

func (w *World) Exists(worldName string) bool {
	for _, name := range w.cfg.Worlds {
		if name == worldName {
			return true
		}
	}
	return false
}

func (w *World) ChunkLoaded(key ChunkKey) bool { return w.chunks.Loaded(key) }

// Actors.

func (w *World) JoinActor(id, name string) *Actor {
	w.actorsMu.Lock()
	defer w.actorsMu.Unlock()
	if a, ok := w.actors[id]; ok {
		a.setConnected(true)
		return a
	}
	a := &Actor{
		ID:   id,
		Name: name,
		Inv:  NewInventory(w.cfg.ActorSlots, w.catalog.StackLimit),
	}
	a.setConnected(true)
	w.actors[id] = a
	return a
}

func (w *World) QuitActor(id string) {
	w.actorsMu.Lock()
	a := w.actors[id]
	w.actorsMu.Unlock()
	if a != nil {
		a.setConnected(false)
	}
}

func (w *World) MoveActor(id, worldName string, pos, view Vec3) {
	w.actorsMu.RLock()
	a := w.actors[id]
	w.actorsMu.RUnlock()
	if a != nil {
		a.SetPos(worldName, pos, view)
	}
}

func (w *World) Actor(id string) (*Actor, bool) {
	w.actorsMu.RLock()
	defer w.actorsMu.RUnlock()
	a, ok := w.actors[id]
	return a, ok
}

func (w *World) ActorConnected(id string) bool {
	w.actorsMu.RLock()
	a := w.actors[id]
	w.actorsMu.RUnlock()
	return a != nil && a.Connected()
}

// ActorStates returns a point-in-time copy of all connected actors.
func (w *World) ActorStates() []ActorState {
	w.actorsMu.RLock()
	defer w.actorsMu.RUnlock()
	out := make([]ActorState, 0, len(w.actors))
	for _, a := range w.actors {
		st := a.State()
		if st.Connected {
			out = append(out, st)
		}
	}
	return out
}

// Region (chunk) load state.

func (w *World) OnChunkLoad(fn func(ChunkKey))   { w.chunkLoadFns = append(w.chunkLoadFns, fn) }
func (w *World) OnChunkUnload(fn func(ChunkKey)) { w.chunkUnloadFns = append(w.chunkUnloadFns, fn) }

func (w *World) HandleChunkLoad(key ChunkKey) {
	w.chunks.SetLoaded(key, true)
	for _, fn := range w.chunkLoadFns {
		fn(key)
	}
}

func (w *World) HandleChunkUnload(key ChunkKey) {
	w.chunks.SetLoaded(key, false)
	for _, fn := range w.chunkUnloadFns {
		fn(key)
	}
}
