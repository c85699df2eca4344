package market

import (
	"log"

	"tradepost.gg/internal/protocol"
	"tradepost.gg/internal/sim/world"
)

// Interactions applies the ownership rules between raw world events and the
// engine: who may open a shop container, what a written sign means, who may
// break the blocks a shop is made of. It holds no state of its own.
type Interactions struct {
	eng *Engine
	w   *world.World
	log *log.Logger
}

func NewInteractions(eng *Engine, w *world.World, logger *log.Logger) *Interactions {
	return &Interactions{eng: eng, w: w, log: logger}
}

// HandleSignChange reacts to an actor writing a sign. A sign that is not
// shaped like an offer is ignored; an offer sign hanging on a valid container
// creates a shop owned by the writer.
func (i *Interactions) HandleSignChange(signPos world.Pos, actorID, actorName string) (*Shop, error) {
	sign, ok := i.w.SignAt(signPos)
	if !ok || !IsOfferSign(sign.Lines) {
		return nil, nil
	}
	containerPos := sign.AttachedTo()
	container, ok := i.w.ContainerAt(containerPos)
	if !ok {
		return nil, codedErr(protocol.ErrInvalidLocation, "sign is not on a container")
	}

	offer, err := ParseOffer(sign.Lines, i.w.Catalog(), container.Inv.FindNotable)
	if err != nil {
		return nil, err
	}
	shop, err := i.eng.CreateShop(containerPos, actorID, actorName, offer.Offered, offer.Asked)
	if err != nil {
		return nil, err
	}
	i.log.Printf("shop %s created at %s by %s", shop.ID, containerPos, actorName)
	return shop, nil
}

// HandleContainerOpen reacts to an actor opening a container. The owner opens
// their own shop freely (restocking is not a trade); anyone else triggers a
// trade attempt. The boolean reports whether the open should be intercepted.
func (i *Interactions) HandleContainerOpen(pos world.Pos, actorID string) (*Transaction, bool) {
	shop, ok := i.eng.Shop(pos)
	if !ok {
		return nil, false
	}
	if shop.OwnerID == actorID {
		return nil, false
	}
	return i.eng.AttemptTrade(pos, actorID), true
}

// HandleMarkerUse reacts to an actor interacting with a marker sign: a
// non-owner trades, the owner gets nothing (the sign is theirs).
func (i *Interactions) HandleMarkerUse(signPos world.Pos, actorID string) (*Transaction, bool) {
	sign, ok := i.w.SignAt(signPos)
	if !ok {
		return nil, false
	}
	return i.HandleContainerOpen(sign.AttachedTo(), actorID)
}

// HandleBlockBreak reacts to an actor breaking a block. Breaking a shop's
// container or its marker is the owner's removal gesture and is refused for
// anyone else. Non-shop blocks are none of our business.
func (i *Interactions) HandleBlockBreak(pos world.Pos, actorID string) error {
	shopPos, ok := i.shopPosFor(pos)
	if !ok {
		return nil
	}
	if err := i.eng.RemoveShop(shopPos, actorID); err != nil {
		return err
	}
	i.log.Printf("shop at %s removed by its owner", shopPos)
	return nil
}

// shopPosFor maps a broken block to the shop it belongs to: either the
// container itself or a marker sign hanging on one.
func (i *Interactions) shopPosFor(pos world.Pos) (world.Pos, bool) {
	if i.eng.IsShop(pos) {
		return pos, true
	}
	if sign, ok := i.w.SignAt(pos); ok {
		attached := sign.AttachedTo()
		if i.eng.IsShop(attached) {
			return attached, true
		}
	}
	return world.Pos{}, false
}
