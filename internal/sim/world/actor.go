package world

import "sync"

const eyeHeight = 1.62

// Actor is a connected participant: position, view direction, inventory.
type Actor struct {
	ID   string
	Name string
	Inv  *Inventory

	mu        sync.Mutex
	world     string
	pos       Vec3
	view      Vec3
	connected bool
}

// ActorState is a read-only copy handed to visibility and broadcast code.
type ActorState struct {
	ID        string
	Name      string
	World     string
	Pos       Vec3
	Eye       Vec3
	View      Vec3
	Connected bool
}

func (a *Actor) State() ActorState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return ActorState{
		ID:        a.ID,
		Name:      a.Name,
		World:     a.world,
		Pos:       a.pos,
		Eye:       a.pos.Add(Vec3{Y: eyeHeight}),
		View:      a.view,
		Connected: a.connected,
	}
}

func (a *Actor) SetPos(worldName string, pos, view Vec3) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.world = worldName
	a.pos = pos
	if view != (Vec3{}) {
		a.view = view.Norm()
	}
}

func (a *Actor) Connected() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.connected
}

func (a *Actor) setConnected(c bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.connected = c
}
