package market

import (
	"log"
	"sync"
	"time"

	"tradepost.gg/internal/protocol"
	"tradepost.gg/internal/sim/items"
	"tradepost.gg/internal/sim/world"
)

// defaultLockWait bounds how long a trade attempt may wait on a contended
// position before giving up with E_BUSY.
const defaultLockWait = 500 * time.Millisecond

// Inventory is the slice of inventory behavior the engine needs. All matching
// is modifier-aware; Remove and Add are all-or-nothing.
type Inventory interface {
	Has(match items.Amount, n int) bool
	HasRoom(item items.Amount, n int) bool
	Remove(match items.Amount, n int) bool
	Add(item items.Amount, n int) bool
	Count(match items.Amount) int
}

// WorldView is the engine's read surface onto the world.
type WorldView interface {
	Exists(worldName string) bool
	ActorConnected(id string) bool
	ActorInventory(id string) (Inventory, bool)
	ChunkLoaded(key world.ChunkKey) bool
	VerifyMarker(pos world.Pos) bool
	ValidShopContainer(pos world.Pos) bool
	ContainerInventory(pos world.Pos) (Inventory, bool)
	StackLimit(kind string) int
}

// DisplaySink receives registry-change notifications so visual proxies track
// shop lifecycle. May lag; the display layer reconciles on its own schedule.
type DisplaySink interface {
	Rebuild(pos world.Pos)
	Drop(pos world.Pos)
}

// AttemptRecord is the audit row for one terminal trade attempt.
type AttemptRecord struct {
	AtMs      int64
	ShopID    string
	Pos       world.Pos
	ActorID   string
	Code      string
	Completed bool
}

type TradeRecorder interface {
	RecordAttempt(rec AttemptRecord)
}

type EngineConfig struct {
	LockWait time.Duration
	Display  DisplaySink             // optional
	Recorder TradeRecorder           // optional
	Persist  func(all []*Shop) error // optional; called from the saver goroutine only
}

// Engine validates and executes shop mutations and trade attempts. Distinct
// positions proceed fully in parallel; the per-position lock is the sole
// serialization point.
type Engine struct {
	reg *Registry
	wv  WorldView
	cfg EngineConfig
	log *log.Logger

	saveReq chan struct{}
	done    chan struct{}
	wg      sync.WaitGroup
}

func NewEngine(reg *Registry, wv WorldView, cfg EngineConfig, logger *log.Logger) *Engine {
	if cfg.LockWait <= 0 {
		cfg.LockWait = defaultLockWait
	}
	e := &Engine{
		reg:     reg,
		wv:      wv,
		cfg:     cfg,
		log:     logger,
		saveReq: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	if cfg.Persist != nil {
		e.wg.Add(1)
		go e.saverLoop()
	}
	return e
}

// Close flushes a final save and stops the saver.
func (e *Engine) Close() {
	close(e.done)
	e.wg.Wait()
	if e.cfg.Persist != nil {
		if err := e.cfg.Persist(e.reg.All()); err != nil {
			e.log.Printf("final save failed: %v", err)
		}
	}
}

// saverLoop is the single writer: saves never run concurrently, and bursts of
// mutations coalesce into one write.
func (e *Engine) saverLoop() {
	defer e.wg.Done()
	for {
		select {
		case <-e.done:
			return
		case <-e.saveReq:
			if err := e.cfg.Persist(e.reg.All()); err != nil {
				e.log.Printf("save shops: %v", err)
			}
		}
	}
}

func (e *Engine) requestSave() {
	if e.cfg.Persist == nil {
		return
	}
	select {
	case e.saveReq <- struct{}{}:
	default: // a save is already pending; it will pick up this mutation
	}
}

func (e *Engine) IsShop(pos world.Pos) bool        { return e.reg.Contains(pos) }
func (e *Engine) Shop(pos world.Pos) (*Shop, bool) { return e.reg.Get(pos) }
func (e *Engine) AllShops() []*Shop                { return e.reg.All() }

// CreateShop registers a new trade offer at pos.
func (e *Engine) CreateShop(pos world.Pos, ownerID, ownerName string, offered, asked items.Amount) (*Shop, error) {
	if !e.wv.ValidShopContainer(pos) {
		return nil, codedErr(protocol.ErrInvalidLocation, "not a shop container")
	}
	shop := NewShop(pos, ownerID, ownerName, offered, asked)
	if !shop.Valid(e.wv.StackLimit) {
		return nil, codedErr(protocol.ErrInvalidAmount, "amounts out of range")
	}
	if !e.reg.PutIfAbsent(shop) {
		return nil, codedErr(protocol.ErrAlreadyVendor, "position already has a shop")
	}
	e.reg.LockFor(pos)
	if e.cfg.Display != nil {
		e.cfg.Display.Rebuild(pos)
	}
	e.requestSave()
	return shop, nil
}

// RemoveShop deletes the shop at pos. Only the owner may remove it.
func (e *Engine) RemoveShop(pos world.Pos, requesterID string) error {
	shop, ok := e.reg.Get(pos)
	if !ok {
		return codedErr(protocol.ErrVendorGone, "no shop here")
	}
	if shop.OwnerID != requesterID {
		return codedErr(protocol.ErrNotOwner, "only the owner can remove a shop")
	}
	e.reg.Remove(pos)
	if e.cfg.Display != nil {
		e.cfg.Display.Drop(pos)
	}
	e.requestSave()
	return nil
}

// AttemptTrade runs one trade attempt against the shop at pos, strictly
// ordered and short-circuiting on the first failure. The returned transaction
// always carries a terminal state.
func (e *Engine) AttemptTrade(pos world.Pos, actorID string) *Transaction {
	tx := e.attempt(pos, actorID)
	e.record(pos, tx)
	return tx
}

func (e *Engine) attempt(pos world.Pos, actorID string) *Transaction {
	snap, ok := e.reg.Get(pos)
	if !ok {
		return failedTransaction(nil, actorID, protocol.ErrVendorGone, "no shop here")
	}

	// Liveness: the buyer must be connected and the shop's region loaded.
	if !e.wv.ActorConnected(actorID) || !e.wv.ChunkLoaded(pos.Chunk()) {
		return failedTransaction(snap, actorID, protocol.ErrUnavailable, "shop not available")
	}

	// The physical marker may have been destroyed or edited since creation
	// without the removal path firing.
	if !e.wv.VerifyMarker(pos) {
		return failedTransaction(snap, actorID, protocol.ErrMarkerMissing, "shop sign is missing")
	}

	lock := e.reg.LockFor(pos)
	if !lock.Acquire(e.cfg.LockWait) {
		return failedTransaction(snap, actorID, protocol.ErrBusy, "shop is busy, try again")
	}
	defer lock.Release()

	// The shop may have been removed while we waited for the lock.
	cur, ok := e.reg.Get(pos)
	if !ok || cur.ID != snap.ID {
		return failedTransaction(snap, actorID, protocol.ErrVendorGone, "shop was removed")
	}

	tx := newTransaction(cur, actorID)
	shopInv, ok := e.wv.ContainerInventory(pos)
	if !ok {
		tx.fail(protocol.ErrUnavailable, "shop container is missing")
		return tx
	}
	actorInv, ok := e.wv.ActorInventory(actorID)
	if !ok {
		tx.fail(protocol.ErrUnavailable, "no inventory")
		return tx
	}

	offered, asked := tx.Offered, tx.Asked
	switch {
	case !shopInv.Has(offered, offered.Count):
		tx.fail(protocol.ErrOutOfStock, "shop is out of stock")
	case !shopInv.HasRoom(asked, asked.Count):
		tx.fail(protocol.ErrVendorFull, "shop cannot accept payment")
	case !actorInv.Has(asked, asked.Count):
		tx.fail(protocol.ErrInsufficientPayment, "not enough payment items")
	case !actorInv.HasRoom(offered, offered.Count):
		tx.fail(protocol.ErrInsufficientSpace, "not enough inventory space")
	}
	if tx.State == TxFailed {
		return tx
	}

	e.execute(tx, shopInv, actorInv)
	return tx
}

// execute performs the inventory swap. The checks above ran under the same
// lock, but external mutation between check and removal is still possible, so
// every step compensates on failure rather than leaving either side short.
func (e *Engine) execute(tx *Transaction, shopInv, actorInv Inventory) {
	offered, asked := tx.Offered, tx.Asked

	if !shopInv.Remove(offered, offered.Count) {
		tx.fail(protocol.ErrOutOfStock, "stock changed while trading")
		return
	}
	if !actorInv.Remove(asked, asked.Count) {
		// Put the stock back; the shop must never end up short.
		shopInv.Add(offered, offered.Count)
		tx.fail(protocol.ErrPaymentRemovalFailed, "payment could not be taken")
		return
	}
	if !actorInv.Add(offered, offered.Count) {
		actorInv.Add(asked, asked.Count)
		shopInv.Add(offered, offered.Count)
		tx.fail(protocol.ErrInsufficientSpace, "inventory space changed while trading")
		return
	}
	if !shopInv.Add(asked, asked.Count) {
		actorInv.Remove(offered, offered.Count)
		actorInv.Add(asked, asked.Count)
		shopInv.Add(offered, offered.Count)
		tx.fail(protocol.ErrVendorFull, "shop space changed while trading")
		return
	}
	tx.complete()
}

func (e *Engine) record(pos world.Pos, tx *Transaction) {
	if e.cfg.Recorder == nil {
		return
	}
	rec := AttemptRecord{
		AtMs:      time.Now().UnixMilli(),
		Pos:       pos,
		ActorID:   tx.ActorID,
		Code:      tx.Code,
		Completed: tx.Completed(),
	}
	if tx.Shop != nil {
		rec.ShopID = tx.Shop.ID.String()
	}
	e.cfg.Recorder.RecordAttempt(rec)
}

// ValidateAll sweeps the registry for records that no longer make sense (a
// vanished world, out-of-range amounts) and drops them with a warning instead
// of letting them wedge later code. Runs on a slow timer and at startup.
func (e *Engine) ValidateAll() int {
	removed := 0
	for _, s := range e.reg.All() {
		switch {
		case !e.wv.Exists(s.Position.World):
			e.log.Printf("dropping shop %s: world %q no longer exists", s.ID, s.Position.World)
		case !s.Valid(e.wv.StackLimit):
			e.log.Printf("dropping shop %s: amounts out of range", s.ID)
		default:
			continue
		}
		e.reg.Remove(s.Position)
		if e.cfg.Display != nil {
			e.cfg.Display.Drop(s.Position)
		}
		removed++
	}
	if removed > 0 {
		e.requestSave()
	}
	return removed
}
