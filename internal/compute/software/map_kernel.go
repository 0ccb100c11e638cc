package software

import (
	"github.com/aquilax/go-perlin"

	"voxgrass/internal/compute"
	"voxgrass/internal/index"
)

// Second rock band is sampled this far away from the rock mask.
const rockBandShift = 7919

type mapKernel struct {
	p     compute.MapParams
	noise *perlin.Perlin
	out   []int32
}

func (k *mapKernel) runGroup(g [3]int) {
	size := k.p.Size
	for lz := 0; lz < mapGroupSize[2]; lz++ {
		for ly := 0; ly < mapGroupSize[1]; ly++ {
			for lx := 0; lx < mapGroupSize[0]; lx++ {
				x := g[0]*mapGroupSize[0] + lx
				y := g[1]*mapGroupSize[1] + ly
				z := g[2]*mapGroupSize[2] + lz
				if !index.InBounds(x, y, z, size[0], size[1], size[2]) {
					continue
				}
				k.out[index.ToFlat(x, y, z, size[0], size[1])] = k.voxel(x, y, z)
			}
		}
	}
}

// noise2 samples 2D perlin noise remapped to roughly [0,1].
func (k *mapKernel) noise2(x, z int, scale float32, off [2]int32) float32 {
	fx := (float64(x) + float64(k.p.Offset[0]) + float64(off[0])) * float64(scale)
	fz := (float64(z) + float64(k.p.Offset[1]) + float64(off[1])) * float64(scale)
	return float32(k.noise.Noise2D(fx, fz)+1) / 2
}

func (k *mapKernel) noise3(x, y, z int, scale float32, off [2]int32) float32 {
	fx := (float64(x) + float64(k.p.Offset[0]) + float64(off[0])) * float64(scale)
	fy := float64(y) * float64(scale)
	fz := (float64(z) + float64(k.p.Offset[1]) + float64(off[1])) * float64(scale)
	return float32(k.noise.Noise3D(fx, fy, fz)+1) / 2
}

func (k *mapKernel) surface(x, z int) int32 {
	b := k.p.Biome
	if b.SecondaryGroundBlock != 0 &&
		k.noise2(x, z, b.SecondaryGroundScale, b.SecondaryGroundOffset) > b.SecondaryGroundThreshold {
		return b.SecondaryGroundBlock
	}
	return b.GroundBlock
}

func (k *mapKernel) voxel(x, y, z int) int32 {
	b := k.p.Biome
	gh := int(b.GroundHeight)

	switch {
	case y == gh:
		return k.surface(x, z)
	case y < gh:
		if rock := k.rock(x, y, z); rock != 0 {
			return rock
		}
		return b.UndergroundBlock
	case y == gh+1:
		if b.FoliageBlock == 0 || b.GroundBlock == 0 || k.surface(x, z) != b.GroundBlock {
			return 0
		}
		if k.noise2(x, z, b.FoliageScale, [2]int32{}) > b.FoliageThreshold {
			return b.FoliageBlock
		}
	}
	return 0
}

func (k *mapKernel) rock(x, y, z int) int32 {
	b := k.p.Biome
	var types [3]int32
	n := 0
	for _, id := range b.RockTypes {
		if id != 0 {
			types[n] = id
			n++
		}
	}
	if n == 0 || k.noise3(x, y, z, b.RockScale, b.RockOffset) <= b.RockThreshold {
		return 0
	}

	band := k.noise2(x+rockBandShift, z, b.RockScale, b.RockOffset)
	i := int(band * float32(n))
	i = max(0, min(i, n-1))
	return types[i]
}
