package world

import (
	"fmt"
	"math"
)

// Pos is a block position: world name plus integer coordinates. It is the
// registry key for shops, markers, and containers.
type Pos struct {
	World string `json:"world"`
	X     int    `json:"x"`
	Y     int    `json:"y"`
	Z     int    `json:"z"`
}

func (p Pos) String() string {
	return fmt.Sprintf("%s:%d,%d,%d", p.World, p.X, p.Y, p.Z)
}

func (p Pos) Chunk() ChunkKey {
	return ChunkKey{World: p.World, X: p.X >> 4, Z: p.Z >> 4}
}

func (p Pos) Offset(dx, dy, dz int) Pos {
	return Pos{World: p.World, X: p.X + dx, Y: p.Y + dy, Z: p.Z + dz}
}

// Center is the middle of the block cell, where display entities hover.
func (p Pos) Center() Vec3 {
	return Vec3{X: float64(p.X) + 0.5, Y: float64(p.Y) + 0.5, Z: float64(p.Z) + 0.5}
}

// ChunkKey identifies a 16x16 column of the world that loads and unloads as
// a unit.
type ChunkKey struct {
	World string
	X     int
	Z     int
}

func (k ChunkKey) String() string {
	return fmt.Sprintf("%s:%d,%d", k.World, k.X, k.Z)
}

type Vec3 struct {
	X, Y, Z float64
}

func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }
func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{v.X * s, v.Y * s, v.Z * s}
}

func (v Vec3) Dot(o Vec3) float64 { return v.X*o.X + v.Y*o.Y + v.Z*o.Z }
func (v Vec3) Len() float64       { return math.Sqrt(v.Dot(v)) }

func (v Vec3) Norm() Vec3 {
	l := v.Len()
	if l == 0 {
		return Vec3{}
	}
	return v.Scale(1 / l)
}

// Angle returns the angle in radians between two vectors.
func (v Vec3) Angle(o Vec3) float64 {
	la, lb := v.Len(), o.Len()
	if la == 0 || lb == 0 {
		return 0
	}
	c := v.Dot(o) / (la * lb)
	if c > 1 {
		c = 1
	} else if c < -1 {
		c = -1
	}
	return math.Acos(c)
}

// Block returns the block cell containing the point.
func (v Vec3) Block(worldName string) Pos {
	return Pos{
		World: worldName,
		X:     int(math.Floor(v.X)),
		Y:     int(math.Floor(v.Y)),
		Z:     int(math.Floor(v.Z)),
	}
}
