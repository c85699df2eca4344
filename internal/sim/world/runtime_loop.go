package world

import (
	"context"
	"sync"
	"time"
)

// TickHook runs on the loop goroutine once per tick. Hooks must be registered
// before Run.
type TickHook func(tick uint64)

type scheduler struct {
	mu      sync.Mutex
	hooks   []TickHook
	delayed map[uint64][]func()
}

func (w *World) OnTick(hook TickHook) {
	w.sched.mu.Lock()
	defer w.sched.mu.Unlock()
	w.sched.hooks = append(w.sched.hooks, hook)
}

// After schedules fn to run on the loop goroutine after the given number of
// ticks.
func (w *World) After(ticks uint64, fn func()) {
	w.sched.mu.Lock()
	defer w.sched.mu.Unlock()
	due := w.tick.Load() + ticks
	w.sched.delayed[due] = append(w.sched.delayed[due], fn)
}

// Do marshals fn onto the loop goroutine. Background goroutines (persistence
// I/O, broadcast) must route any world-mutating work through here instead of
// calling mutators directly.
func (w *World) Do(fn func()) {
	select {
	case w.do <- fn:
	case <-w.stop:
	}
}

// Run drives the authoritative loop until ctx is cancelled or Stop is called.
func (w *World) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(w.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil
		case fn := <-w.do:
			fn()
		case <-ticker.C:
			w.StepOnce()
		}
	}
}

func (w *World) Stop() { close(w.stop) }

// StepOnce advances the world by a single tick: due delayed work first, then
// the registered per-tick hooks. Tests drive the loop with it directly.
func (w *World) StepOnce() uint64 {
	tick := w.tick.Add(1)

	w.sched.mu.Lock()
	due := w.sched.delayed[tick]
	delete(w.sched.delayed, tick)
	hooks := w.sched.hooks
	w.sched.mu.Unlock()

	for _, fn := range due {
		fn()
	}
	for _, hook := range hooks {
		hook(tick)
	}
	return tick
}

// Step advances n ticks. Test helper.
func (w *World) Step(n int) {
	for i := 0; i < n; i++ {
		w.StepOnce()
	}
}
