package software

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"voxgrass/internal/compute"
)

type grassKernel struct {
	p     compute.GrassParams
	out   *appendBuffer
	total int
}

func (k *grassKernel) runGroup(g [3]int) {
	var rec [compute.GrassTriangleStride]byte
	for l := 0; l < grassGroupSize[0]; l++ {
		t := g[0]*grassGroupSize[0] + l
		if t >= k.total {
			return
		}
		blade := GrassBlade(k.p, t)
		k.out.writeRecord(t, blade.AppendBinary(rec[:0]))
	}
}

// GrassBlade builds triangle t of the grass layer. Blade t is stored in
// slot t and blades are spread round-robin over the positions, so a prefix
// of the buffer covers every tile evenly.
func GrassBlade(p compute.GrassParams, t int) compute.GrassTriangle {
	n := len(p.Positions)
	pos := p.Positions[t%n]
	blade := uint32(t / n)

	seed := uint32(pos[0])*73856093 ^ uint32(pos[1])*19349663 ^ uint32(pos[2])*83492791 ^ blade*2654435761
	r := func(i uint32) float32 { return compute.Unit(compute.Hash32(seed + i)) }

	origin := mgl32.Vec3{
		p.ChunkPos[0] + float32(pos[0]) + r(0),
		p.ChunkPos[1] + float32(pos[1]),
		p.ChunkPos[2] + float32(pos[2]) + r(1),
	}
	angle := float64(r(2)) * 2 * math.Pi
	dir := mgl32.Vec3{float32(math.Cos(angle)), 0, float32(math.Sin(angle))}
	bendDir := mgl32.Vec3{-dir[2], 0, dir[0]}

	height := p.Height * (0.6 + 0.4*r(3))
	half := dir.Mul(p.Width / 2)
	tip := origin.Add(mgl32.Vec3{0, height, 0}).Add(bendDir.Mul(p.CurveMultiplier * height * r(4)))

	return compute.GrassTriangle{Verts: [3]compute.Vertex{
		{Position: origin.Sub(half), UV: mgl32.Vec2{0, 0}},
		{Position: origin.Add(half), UV: mgl32.Vec2{1, 0}},
		{Position: tip, UV: mgl32.Vec2{0.5, 1}},
	}}
}
