package world

import (
	"context"
	"fmt"

	"voxgrass/internal/chunk"
	"voxgrass/internal/compute"
)

func (w *World) locate(x, y, z int) (*chunk.Chunk, [3]int, error) {
	cx, cy, cz := w.chunkSize[0], w.chunkSize[1], w.chunkSize[2]
	if x < 0 || z < 0 || y < 0 || y >= cy || x >= w.mapSize[0]*cx || z >= w.mapSize[1]*cz {
		return nil, [3]int{}, fmt.Errorf("voxel (%d, %d, %d): %w", x, y, z, ErrOutOfBounds)
	}
	c := w.store.get(chunk.Coord{X: floorDiv(x, cx), Z: floorDiv(z, cz)})
	if c == nil {
		return nil, [3]int{}, fmt.Errorf("voxel (%d, %d, %d): %w", x, y, z, ErrNoChunk)
	}
	return c, [3]int{mod(x, cx), y, mod(z, cz)}, nil
}

// VoxelAt reads a voxel by world coordinate.
func (w *World) VoxelAt(x, y, z int) (int32, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.generated {
		return 0, ErrNoWorld
	}
	c, l, err := w.locate(x, y, z)
	if err != nil {
		return 0, err
	}
	return c.Voxel(l[0], l[1], l[2])
}

// SetVoxel edits one voxel by world coordinate. The owning chunk's grass
// and mesh are rebuilt, and so is the mesh of any neighbor sharing the
// touched boundary.
func (w *World) SetVoxel(ctx context.Context, x, y, z int, id int32) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.generated {
		return ErrNoWorld
	}
	if id != 0 {
		if _, err := w.reg.Block(id); err != nil {
			return fmt.Errorf("set voxel: %w", err)
		}
	}
	c, l, err := w.locate(x, y, z)
	if err != nil {
		return err
	}
	if err := c.SetVoxel(l[0], l[1], l[2], id); err != nil {
		return err
	}

	c.RebuildGrassSet()
	if err := w.updateGrass(ctx, c); err != nil {
		return err
	}
	if err := w.remesh(ctx, c); err != nil {
		return err
	}

	nbs := w.store.neighbors(c.Coord())
	touched := [compute.NumNeighbors]bool{
		compute.NeighborFront: l[2] == 0,
		compute.NeighborBack:  l[2] == w.chunkSize[2]-1,
		compute.NeighborLeft:  l[0] == 0,
		compute.NeighborRight: l[0] == w.chunkSize[0]-1,
	}
	for n, nb := range nbs {
		if nb == nil || !touched[n] {
			continue
		}
		if err := w.remesh(ctx, nb); err != nil {
			return err
		}
	}
	return nil
}

// remesh is meshChunk for edits: a chunk that became empty gets an empty
// mesh instead of keeping its stale one.
func (w *World) remesh(ctx context.Context, c *chunk.Chunk) error {
	if c.Empty() {
		if c.Mesh() != nil {
			c.AssembleMesh(nil, nil)
		}
		return nil
	}
	return w.meshChunk(ctx, c)
}
