package world

import (
	"strings"
	"sync"
)

// MarkerHeader is the first line a sign must carry to denote a trading post.
const MarkerHeader = "Selling"

// Sign is a wall-mounted text block. Facing points away from the block the
// sign hangs on, so the supporting block is pos offset by the opposite face.
type Sign struct {
	Pos    Pos
	Facing Facing
	Lines  [4]string
}

// AttachedTo returns the position of the block the sign hangs on.
func (s *Sign) AttachedTo() Pos {
	dx, dz := s.Facing.Opposite().Offset()
	return s.Pos.Offset(dx, 0, dz)
}

type signTable struct {
	mu sync.RWMutex
	m  map[Pos]*Sign
}

func (w *World) PlaceSign(pos Pos, facing Facing, lines [4]string) *Sign {
	s := &Sign{Pos: pos, Facing: facing, Lines: lines}
	w.signs.mu.Lock()
	w.signs.m[pos] = s
	w.signs.mu.Unlock()
	w.chunks.SetBlock(pos, Block{Kind: BlockWallSign, Facing: facing})
	return s
}

func (w *World) RemoveSign(pos Pos) {
	w.signs.mu.Lock()
	delete(w.signs.m, pos)
	w.signs.mu.Unlock()
	w.chunks.RemoveBlock(pos)
}

func (w *World) SignAt(pos Pos) (*Sign, bool) {
	w.signs.mu.RLock()
	defer w.signs.mu.RUnlock()
	s, ok := w.signs.m[pos]
	return s, ok
}

// MarkerFor returns the marker sign advertising the container at pos, if an
// intact one exists on any horizontal face.
func (w *World) MarkerFor(containerPos Pos) (*Sign, bool) {
	w.signs.mu.RLock()
	defer w.signs.mu.RUnlock()
	for _, face := range HorizontalFaces {
		dx, dz := face.Offset()
		s, ok := w.signs.m[containerPos.Offset(dx, 0, dz)]
		if !ok {
			continue
		}
		// The sign must hang on the container itself, not merely sit beside it.
		if s.AttachedTo() != containerPos {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(s.Lines[0]), MarkerHeader) {
			return s, true
		}
	}
	return nil, false
}

// VerifyMarker re-checks that the physical trading-post marker is still
// intact and correctly oriented. Trade attempts run this before locking so a
// shop whose sign was destroyed or edited cannot keep trading.
func (w *World) VerifyMarker(containerPos Pos) bool {
	_, ok := w.MarkerFor(containerPos)
	return ok
}
