package world

import "sync"

// Facing is the horizontal direction a wall-mounted block points.
type Facing int

const (
	North Facing = iota // -Z
	South               // +Z
	East                // +X
	West                // -X
)

var HorizontalFaces = [4]Facing{North, South, East, West}

func (f Facing) Offset() (dx, dz int) {
	switch f {
	case North:
		return 0, -1
	case South:
		return 0, 1
	case East:
		return 1, 0
	default:
		return -1, 0
	}
}

func (f Facing) Opposite() Facing {
	switch f {
	case North:
		return South
	case South:
		return North
	case East:
		return West
	default:
		return East
	}
}

const BlockWallSign = "WALL_SIGN"

type Block struct {
	Kind   string
	Facing Facing
}

// Solid reports whether the block occludes line of sight. Signs are the only
// non-solid placed block this engine tracks.
func (b Block) Solid() bool { return b.Kind != BlockWallSign }

// ChunkStore tracks chunk load state and a sparse block map. The world here
// is an event boundary, not a terrain generator: only blocks that matter to
// trading (containers, signs, occluders) are recorded, so a sparse map does
// the job of the dense chunk arrays a full voxel server would carry.
type ChunkStore struct {
	mu     sync.RWMutex
	loaded map[ChunkKey]struct{}
	blocks map[Pos]Block
}

func NewChunkStore() *ChunkStore {
	return &ChunkStore{
		loaded: make(map[ChunkKey]struct{}),
		blocks: make(map[Pos]Block),
	}
}

func (s *ChunkStore) SetLoaded(key ChunkKey, loaded bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if loaded {
		s.loaded[key] = struct{}{}
	} else {
		delete(s.loaded, key)
	}
}

func (s *ChunkStore) Loaded(key ChunkKey) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.loaded[key]
	return ok
}

func (s *ChunkStore) SetBlock(pos Pos, b Block) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blocks[pos] = b
}

func (s *ChunkStore) RemoveBlock(pos Pos) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blocks, pos)
}

func (s *ChunkStore) BlockAt(pos Pos) (Block, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.blocks[pos]
	return b, ok
}

func (s *ChunkStore) SolidAt(pos Pos) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.blocks[pos]
	return ok && b.Solid()
}
