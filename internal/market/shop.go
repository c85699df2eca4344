package market

import (
	"time"

	"github.com/google/uuid"

	"tradepost.gg/internal/sim/items"
	"tradepost.gg/internal/sim/world"
)

// Shop is a fixed-position trade offer: give Offered, receive Asked, owned by
// one actor. A Shop is immutable after creation; trade execution reads a
// point-in-time reference and never mutates it. Identity is by ID.
type Shop struct {
	ID        uuid.UUID
	Position  world.Pos
	OwnerID   string
	OwnerName string
	Offered   items.Amount
	Asked     items.Amount
	CreatedAt int64 // unix milliseconds
}

func NewShop(pos world.Pos, ownerID, ownerName string, offered, asked items.Amount) *Shop {
	return &Shop{
		ID:        uuid.New(),
		Position:  pos,
		OwnerID:   ownerID,
		OwnerName: ownerName,
		Offered:   offered,
		Asked:     asked,
		CreatedAt: time.Now().UnixMilli(),
	}
}

// Valid reports whether both amounts sit in [1, stackLimit(kind)].
func (s *Shop) Valid(stackLimit func(kind string) int) bool {
	if s == nil {
		return false
	}
	if s.Offered.Count < 1 || s.Offered.Count > stackLimit(s.Offered.Kind) {
		return false
	}
	if s.Asked.Count < 1 || s.Asked.Count > stackLimit(s.Asked.Kind) {
		return false
	}
	return true
}
