package world

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"voxgrass/internal/registry"
)

const pickStep = float32(0.02)

// PickResult is the first non-air voxel along a ray.
type PickResult struct {
	Hit      bool
	Voxel    [3]int
	Adjacent [3]int // last air cell before the hit, where a new voxel would go
	Distance float32
}

// Pick marches a ray through the world in fixed steps. Voxel (x, y, z)
// occupies the unit box starting at (x, y, z); cells outside the world are
// air. Distances below minDist are skipped.
func (w *World) Pick(start, dir mgl32.Vec3, minDist, maxDist float32) PickResult {
	w.mu.Lock()
	defer w.mu.Unlock()
	defer w.prof.Track("world.Pick")()

	var res PickResult
	if !w.generated || dir.Len() == 0 {
		return res
	}
	dir = dir.Normalize()

	last := cellOf(start)
	steps := int(maxDist / pickStep)
	for i := 0; i <= steps; i++ {
		dist := float32(i) * pickStep
		if dist < minDist {
			continue
		}
		cell := cellOf(start.Add(dir.Mul(dist)))
		if w.solidAt(cell) {
			res.Hit = true
			res.Voxel = cell
			res.Adjacent = last
			res.Distance = dist
			return res
		}
		last = cell
	}
	return res
}

func cellOf(p mgl32.Vec3) [3]int {
	return [3]int{
		int(math.Floor(float64(p.X()))),
		int(math.Floor(float64(p.Y()))),
		int(math.Floor(float64(p.Z()))),
	}
}

func (w *World) solidAt(cell [3]int) bool {
	c, l, err := w.locate(cell[0], cell[1], cell[2])
	if err != nil {
		return false
	}
	id, err := c.Voxel(l[0], l[1], l[2])
	return err == nil && id != registry.Air
}
