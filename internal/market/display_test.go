package market

import (
	"math"
	"testing"

	"tradepost.gg/internal/sim/items"
	"tradepost.gg/internal/sim/world"
)

type displayFixture struct {
	w    *world.World
	reg  *Registry
	dm   *DisplayManager
	pos  world.Pos
	shop *Shop
}

func newDisplayFixture(t *testing.T, cfg DisplayConfig) *displayFixture {
	t.Helper()
	cfg.Enabled = true
	w := world.New(world.Config{Worlds: []string{"overworld"}}, items.Default(), discard())
	pos := world.Pos{World: "overworld", X: 10, Y: 64, Z: 10}
	w.HandleChunkLoad(pos.Chunk())
	w.PlaceContainer(pos, "CHEST")

	reg := NewRegistry()
	shop := NewShop(pos, "owner-1", "alice",
		items.New("DIAMOND", 1), items.New("IRON_INGOT", 2))
	reg.PutIfAbsent(shop)

	return &displayFixture{
		w:    w,
		reg:  reg,
		dm:   NewDisplayManager(w, reg, cfg, discard()),
		pos:  pos,
		shop: shop,
	}
}

// watcher joins an actor south of the shop, looking straight at it.
func (f *displayFixture) watcher(t *testing.T, id string) {
	t.Helper()
	f.w.JoinActor(id, id)
	f.w.MoveActor(id, "overworld",
		world.Vec3{X: 10.5, Y: 63.6, Z: 5.5}, world.Vec3{Z: 1})
}

func TestRebuildCreatesProxy(t *testing.T) {
	f := newDisplayFixture(t, DisplayConfig{})
	f.dm.Rebuild(f.pos)

	if f.dm.TrackedCount() != 1 {
		t.Fatalf("tracked = %d, want 1", f.dm.TrackedCount())
	}
	id, ok := f.dm.ProxyEntity(f.pos)
	if !ok {
		t.Fatalf("no proxy entity")
	}
	e, ok := f.w.Entity(id)
	if !ok {
		t.Fatalf("entity missing from world")
	}
	want := world.Vec3{X: 10.5, Y: 64 + 1.2, Z: 10.5}
	if e.Pos != want {
		t.Fatalf("spawn pos = %v, want %v", e.Pos, want)
	}
	if e.Item.Count != 1 {
		t.Fatalf("proxy item count = %d, want 1", e.Item.Count)
	}
	if !e.Display {
		t.Fatalf("proxy entity not display-flagged")
	}
}

func TestRebuildIsIdempotent(t *testing.T) {
	f := newDisplayFixture(t, DisplayConfig{})
	f.dm.Rebuild(f.pos)
	first, _ := f.dm.ProxyEntity(f.pos)
	f.dm.Rebuild(f.pos)
	second, _ := f.dm.ProxyEntity(f.pos)

	if f.w.EntityCount() != 1 {
		t.Fatalf("entity count = %d, want 1", f.w.EntityCount())
	}
	if _, alive := f.w.Entity(first); alive && first != second {
		t.Fatalf("old proxy entity leaked")
	}
}

func TestRebuildSkipsUnloadedChunk(t *testing.T) {
	f := newDisplayFixture(t, DisplayConfig{})
	f.w.HandleChunkUnload(f.pos.Chunk())
	f.dm.Rebuild(f.pos)
	if f.dm.TrackedCount() != 0 || f.w.EntityCount() != 0 {
		t.Fatalf("proxy built in an unloaded chunk")
	}
}

func TestDropSweepsOrphans(t *testing.T) {
	f := newDisplayFixture(t, DisplayConfig{})
	f.dm.Rebuild(f.pos)
	// A rogue entity sitting at the display spot, unknown to the table.
	f.w.SpawnItemEntity("overworld", world.Vec3{X: 10.4, Y: 65.2, Z: 10.5},
		items.New("DIRT", 1), "")

	f.dm.Drop(f.pos)
	if f.w.EntityCount() != 0 {
		t.Fatalf("entity count = %d, want 0 after drop", f.w.EntityCount())
	}
	if f.dm.TrackedCount() != 0 {
		t.Fatalf("tracked = %d", f.dm.TrackedCount())
	}
}

func TestVisibilityPassFollowsRange(t *testing.T) {
	f := newDisplayFixture(t, DisplayConfig{})
	f.watcher(t, "p1")

	f.dm.VisibilityPass()
	if f.dm.TrackedCount() != 1 {
		t.Fatalf("visible shop has no proxy")
	}

	// Turning away hides at most the label, never the proxy.
	f.w.MoveActor("p1", "overworld",
		world.Vec3{X: 10.5, Y: 63.6, Z: 5.5}, world.Vec3{Z: -1})
	f.dm.VisibilityPass()
	if f.dm.TrackedCount() != 1 {
		t.Fatalf("proxy should survive the actor looking away")
	}

	// Walking out of range removes it.
	f.w.MoveActor("p1", "overworld",
		world.Vec3{X: 10.5, Y: 63.6, Z: -10.5}, world.Vec3{Z: -1})
	f.dm.VisibilityPass()
	if f.dm.TrackedCount() != 0 {
		t.Fatalf("proxy survived the actor leaving range")
	}
}

func TestVisibilityPassRespectsDistance(t *testing.T) {
	f := newDisplayFixture(t, DisplayConfig{})
	f.w.JoinActor("p1", "p1")
	f.w.MoveActor("p1", "overworld",
		world.Vec3{X: 10.5, Y: 63.6, Z: -10.5}, world.Vec3{Z: 1})

	f.dm.VisibilityPass()
	if f.dm.TrackedCount() != 0 {
		t.Fatalf("proxy created beyond view distance")
	}
}

func TestVisibilityPassRespectsWalls(t *testing.T) {
	f := newDisplayFixture(t, DisplayConfig{})
	f.watcher(t, "p1")
	// A solid block in the sight line.
	f.w.PlaceContainer(world.Pos{World: "overworld", X: 10, Y: 65, Z: 7}, "STONE")

	f.dm.VisibilityPass()
	if f.dm.TrackedCount() != 0 {
		t.Fatalf("proxy created through a wall")
	}
}

func TestVisibilityPassIgnoresOtherWorlds(t *testing.T) {
	f := newDisplayFixture(t, DisplayConfig{})
	f.w.JoinActor("p1", "p1")
	f.w.MoveActor("p1", "nether",
		world.Vec3{X: 10.5, Y: 63.6, Z: 5.5}, world.Vec3{Z: 1})

	f.dm.VisibilityPass()
	if f.dm.TrackedCount() != 0 {
		t.Fatalf("proxy created for an actor in another world")
	}
}

func TestAnimationPassBobs(t *testing.T) {
	f := newDisplayFixture(t, DisplayConfig{})
	f.dm.Rebuild(f.pos)
	id, _ := f.dm.ProxyEntity(f.pos)

	f.dm.AnimationPass()
	e, _ := f.w.Entity(id)
	wantY := 64 + 1.2 + math.Sin(0.05)*0.15
	if math.Abs(e.Pos.Y-wantY) > 1e-9 {
		t.Fatalf("bobbed y = %v, want %v", e.Pos.Y, wantY)
	}

	f.dm.AnimationPass()
	e2, _ := f.w.Entity(id)
	if e2.Pos.Y == e.Pos.Y {
		t.Fatalf("animation did not advance")
	}
}

func TestAnimationPassRemovesDeadProxies(t *testing.T) {
	t.Run("shop removed", func(t *testing.T) {
		f := newDisplayFixture(t, DisplayConfig{})
		f.dm.Rebuild(f.pos)
		f.reg.Remove(f.pos)
		f.dm.AnimationPass()
		if f.dm.TrackedCount() != 0 || f.w.EntityCount() != 0 {
			t.Fatalf("proxy survived its shop")
		}
	})

	t.Run("entity killed externally", func(t *testing.T) {
		f := newDisplayFixture(t, DisplayConfig{})
		f.dm.Rebuild(f.pos)
		id, _ := f.dm.ProxyEntity(f.pos)
		f.w.RemoveEntity(id)
		f.dm.AnimationPass()
		if f.dm.TrackedCount() != 0 {
			t.Fatalf("tracking survived its entity")
		}
	})
}

func TestReconcileSweepsOrphansBesideOwnProxy(t *testing.T) {
	f := newDisplayFixture(t, DisplayConfig{})
	f.watcher(t, "p1")
	f.dm.Rebuild(f.pos)
	own, _ := f.dm.ProxyEntity(f.pos)
	f.w.SpawnItemEntity("overworld", world.Vec3{X: 10.6, Y: 65.2, Z: 10.5},
		items.New("DIRT", 1), "")

	f.dm.Reconcile()
	if f.w.EntityCount() != 1 {
		t.Fatalf("entity count = %d, want the tracked proxy only", f.w.EntityCount())
	}
	if _, alive := f.w.Entity(own); !alive {
		t.Fatalf("own proxy was swept")
	}
}

func TestStartupSweepsStrays(t *testing.T) {
	f := newDisplayFixture(t, DisplayConfig{})
	// Leftovers from a previous run, tracked by nobody.
	f.w.SpawnItemEntity("overworld", world.Vec3{X: 10.5, Y: 65.2, Z: 10.5},
		items.New("DIAMOND", 1), "")
	f.w.SpawnItemEntity("overworld", world.Vec3{X: 200, Y: 70, Z: 200},
		items.New("COAL", 1), "")

	f.dm.Startup()
	if f.w.EntityCount() != 0 {
		t.Fatalf("strays survived startup: %d entities", f.w.EntityCount())
	}

	// With a watcher present, startup rebuilds the visible set.
	f.watcher(t, "p1")
	f.dm.Startup()
	if f.dm.TrackedCount() != 1 || f.w.EntityCount() != 1 {
		t.Fatalf("startup did not rebuild: tracked=%d entities=%d",
			f.dm.TrackedCount(), f.w.EntityCount())
	}
}

func TestChunkBuildAndDrop(t *testing.T) {
	f := newDisplayFixture(t, DisplayConfig{})
	key := f.pos.Chunk()

	f.dm.BuildChunk(key)
	if f.dm.TrackedCount() != 1 {
		t.Fatalf("BuildChunk created %d proxies", f.dm.TrackedCount())
	}
	f.dm.DropChunk(key)
	if f.dm.TrackedCount() != 0 || f.w.EntityCount() != 0 {
		t.Fatalf("DropChunk left proxies behind")
	}
}

func TestNotableProxyCarriesLabel(t *testing.T) {
	f := newDisplayFixture(t, DisplayConfig{})
	f.reg.Remove(f.pos)
	sharp := items.New("DIAMOND_SWORD", 1, items.Modifier{ID: "SHARPNESS", Level: 3})
	f.reg.PutIfAbsent(NewShop(f.pos, "owner-1", "alice", sharp, items.New("DIAMOND", 5)))
	f.watcher(t, "p1")

	f.dm.VisibilityPass()
	id, ok := f.dm.ProxyEntity(f.pos)
	if !ok {
		t.Fatalf("no proxy")
	}
	e, _ := f.w.Entity(id)
	if e.Label != "SHARPNESS III" {
		t.Fatalf("label = %q", e.Label)
	}
	if !e.LabelVisible {
		t.Fatalf("label should be visible to the watcher")
	}

	// Looking away hides the label but keeps the proxy.
	f.w.MoveActor("p1", "overworld",
		world.Vec3{X: 10.5, Y: 63.6, Z: 5.5}, world.Vec3{Z: -1})
	f.dm.VisibilityPass()
	if f.dm.TrackedCount() != 1 {
		t.Fatalf("proxy should survive the gaze leaving")
	}
	e, _ = f.w.Entity(id)
	if e.LabelVisible {
		t.Fatalf("label should hide when nobody looks at it")
	}
}

func TestAttachDrivesPassesFromTickLoop(t *testing.T) {
	f := newDisplayFixture(t, DisplayConfig{SettleTicks: 2})
	f.dm.Attach(f.w, 5)
	f.watcher(t, "p1")

	// A fresh chunk load builds after the settle delay.
	f.w.HandleChunkUnload(f.pos.Chunk())
	if f.dm.TrackedCount() != 0 {
		t.Fatalf("unload did not drop proxies")
	}
	f.w.HandleChunkLoad(f.pos.Chunk())
	f.w.Step(3)
	if f.dm.TrackedCount() != 1 {
		t.Fatalf("tracked = %d after settled load", f.dm.TrackedCount())
	}

	// Unload drops immediately, without waiting for a pass.
	f.w.HandleChunkUnload(f.pos.Chunk())
	if f.dm.TrackedCount() != 0 {
		t.Fatalf("unload should drop proxies at once")
	}
}

func TestDisabledManagerIsInert(t *testing.T) {
	f := newDisplayFixture(t, DisplayConfig{})
	f.dm.cfg.Enabled = false
	f.dm.Rebuild(f.pos)
	f.dm.VisibilityPass()
	if f.dm.TrackedCount() != 0 || f.w.EntityCount() != 0 {
		t.Fatalf("disabled manager created proxies")
	}
}
