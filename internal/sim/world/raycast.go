package world

// rayStep is the sampling interval for the coarse line-of-sight test. A full
// voxel traversal is overkill for a once-per-tick visibility cone check.
const rayStep = 0.25

// ClearPath reports whether the segment from eye to target crosses no solid
// block. The cells containing the endpoints are ignored so a sign or the
// observer's own head never occludes.
func (w *World) ClearPath(worldName string, from, to Vec3) bool {
	delta := to.Sub(from)
	dist := delta.Len()
	if dist == 0 {
		return true
	}
	dir := delta.Scale(1 / dist)
	startCell := from.Block(worldName)
	endCell := to.Block(worldName)
	for d := rayStep; d < dist; d += rayStep {
		cell := from.Add(dir.Scale(d)).Block(worldName)
		if cell == startCell || cell == endCell {
			continue
		}
		if w.chunks.SolidAt(cell) {
			return false
		}
	}
	return true
}
