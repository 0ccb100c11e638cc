package chunk

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"voxgrass/internal/compute"
	"voxgrass/internal/config"
	"voxgrass/internal/index"
	"voxgrass/internal/render"
)

// GrassSet returns the grass positions in insertion order.
func (c *Chunk) GrassSet() []Position { return append([]Position(nil), c.grass...) }

// RebuildGrassSet adds every foliage voxel not yet present and drops
// entries whose voxel is no longer foliage. Running it twice changes nothing.
func (c *Chunk) RebuildGrassSet() {
	kept := c.grass[:0]
	for _, p := range c.grass {
		if c.reg.IsFoliage(c.voxels[index.ToFlat(p.X, p.Y, p.Z, c.size[0], c.size[1])]) {
			kept = append(kept, p)
		} else {
			delete(c.grassIndex, p)
			c.grassDirty = true
		}
	}
	c.grass = kept
	for i, p := range c.grass {
		c.grassIndex[p] = i
	}

	for i, id := range c.voxels {
		if !c.reg.IsFoliage(id) {
			continue
		}
		x, y, z := index.To3D(i, c.size[0], c.size[1])
		p := Position{x, y, z}
		if _, ok := c.grassIndex[p]; ok {
			continue
		}
		c.grassIndex[p] = len(c.grass)
		c.grass = append(c.grass, p)
		c.grassDirty = true
	}
}

// InvalidateGrass forces the next UpdateGrassGeometry to redispatch.
func (c *Chunk) InvalidateGrass() { c.grassDirty = true }

func (c *Chunk) releaseGrassBuffer() {
	if c.grassBuf != nil {
		c.grassBuf.Release()
		c.grassBuf = nil
	}
	c.grassTris = 0
}

// UpdateGrassGeometry regenerates the grass triangles when the set or the
// grass tunables changed, then rewrites the indirect args for the current
// LOD. An empty set releases the triangle buffer.
func (c *Chunk) UpdateGrassGeometry(ctx context.Context) error {
	if err := c.checkLive("update grass"); err != nil {
		return err
	}
	if len(c.grass) == 0 {
		c.releaseGrassBuffer()
		c.grassDirty = false
		return c.args.Set(compute.ProceduralArgs(0))
	}

	cfg, rev := c.grassCfg.Get()
	if c.grassBuf == nil || c.grassDirty || rev != c.grassRev {
		if err := c.generateGrass(ctx, cfg, rev); err != nil {
			return err
		}
	}
	visible := len(c.grass) * cfg.PerTile / c.lodMult
	if visible > c.grassTris {
		visible = c.grassTris
	}
	return c.args.Set(compute.ProceduralArgs(visible))
}

func (c *Chunk) generateGrass(ctx context.Context, cfg config.GrassConfig, rev uint64) error {
	positions := make([][3]int32, len(c.grass))
	for i, p := range c.grass {
		positions[i] = [3]int32{int32(p.X), int32(p.Y), int32(p.Z)}
	}
	params := compute.GrassParams{
		Positions:       positions,
		PerTile:         cfg.PerTile,
		Width:           cfg.Width,
		Height:          cfg.Height,
		CurveMultiplier: cfg.CurveMultiplier,
		ChunkPos:        [3]float32{float32(c.origin[0]), float32(c.origin[1]), float32(c.origin[2])},
	}

	buf, err := c.device.NewAppendBuffer(params.TriangleCount(), compute.GrassTriangleStride)
	if err != nil {
		return fmt.Errorf("grass buffer for chunk %s: %w", c.coord, err)
	}
	if err := c.device.GenerateGrass(ctx, params, buf); err != nil {
		buf.Release()
		return fmt.Errorf("grass for chunk %s: %w", c.coord, err)
	}
	n, err := buf.Count()
	if err != nil {
		buf.Release()
		return fmt.Errorf("grass count for chunk %s: %w", c.coord, err)
	}

	c.releaseGrassBuffer()
	c.grassBuf = buf
	c.grassTris = n
	c.grassDirty = false
	c.grassRev = rev

	c.log.WithFields(logrus.Fields{
		"positions": len(positions),
		"triangles": n,
	}).Debug("grass geometry rebuilt")
	return nil
}

// GrassArgs returns the current indirect args.
func (c *Chunk) GrassArgs() compute.DrawArgs {
	if c.args == nil {
		return compute.DrawArgs{}
	}
	return c.args.Args()
}

// GrassTriangles reads the generated grass triangles back.
func (c *Chunk) GrassTriangles() ([]compute.GrassTriangle, error) {
	if c.grassBuf == nil {
		return nil, nil
	}
	raw, err := c.grassBuf.Read(c.grassTris)
	if err != nil {
		return nil, err
	}
	return compute.DecodeGrassTriangles(raw)
}

// DrawGrass issues the procedural grass draw when there is geometry.
func (c *Chunk) DrawGrass(scene render.Scene) {
	if c.grassBuf == nil || c.released {
		return
	}
	scene.DrawProceduralIndirect(c.bounds, c.grassBuf, c.args, c.lodMult)
}
