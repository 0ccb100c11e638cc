// Package preview renders a top-down map of a voxel world: each pixel is the
// topmost non-air voxel of a column, darkened with depth.
package preview

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"

	xdraw "golang.org/x/image/draw"

	"voxgrass/internal/registry"
)

// Volume is the read side of a world.
type Volume interface {
	Extent() [3]int
	VoxelAt(x, y, z int) (int32, error)
}

// Palette maps block names to preview colors.
var Palette = map[string]color.RGBA{
	registry.Dirt:         {134, 96, 67, 255},
	registry.Grass:        {95, 159, 53, 255},
	registry.GrassFoliage: {124, 189, 76, 255},
	registry.Stone:        {125, 125, 125, 255},
	registry.Basalt:       {70, 70, 78, 255},
	registry.Marble:       {226, 222, 214, 255},
	registry.BlackMarble:  {40, 38, 42, 255},
	registry.Chalk:        {240, 240, 228, 255},
	registry.Sand:         {219, 207, 163, 255},
}

var unknown = color.RGBA{255, 0, 255, 255}

// Render draws v at scale pixels per column. Air-only columns stay
// transparent.
func Render(v Volume, reg *registry.Registry, scale int) (*image.RGBA, error) {
	if scale < 1 {
		return nil, fmt.Errorf("preview: scale %d must be positive", scale)
	}
	ext := v.Extent()
	w, h, d := ext[0], ext[1], ext[2]
	base := image.NewRGBA(image.Rect(0, 0, w, d))

	colors := make(map[int32]color.RGBA, reg.Len())
	for _, blk := range reg.Blocks() {
		c, ok := Palette[blk.Name]
		if !ok {
			c = unknown
		}
		colors[blk.ID] = c
	}

	for z := 0; z < d; z++ {
		for x := 0; x < w; x++ {
			for y := h - 1; y >= 0; y-- {
				id, err := v.VoxelAt(x, y, z)
				if err != nil {
					return nil, fmt.Errorf("preview: %w", err)
				}
				if id == registry.Air {
					continue
				}
				c, ok := colors[id]
				if !ok {
					c = unknown
				}
				base.SetRGBA(x, z, shade(c, y, h))
				break
			}
		}
	}

	if scale == 1 {
		return base, nil
	}
	out := image.NewRGBA(image.Rect(0, 0, w*scale, d*scale))
	xdraw.NearestNeighbor.Scale(out, out.Bounds(), base, base.Bounds(), xdraw.Src, nil)
	return out, nil
}

// shade darkens lower columns, down to 60% at y = 0.
func shade(c color.RGBA, y, height int) color.RGBA {
	f := 1.0
	if height > 1 {
		f = 0.6 + 0.4*float64(y)/float64(height-1)
	}
	return color.RGBA{
		R: uint8(float64(c.R) * f),
		G: uint8(float64(c.G) * f),
		B: uint8(float64(c.B) * f),
		A: c.A,
	}
}

// WriteFile renders v and encodes it as PNG at path.
func WriteFile(path string, v Volume, reg *registry.Registry, scale int) error {
	img, err := Render(v, reg, scale)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("preview: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("preview: encode %s: %w", path, err)
	}
	return f.Close()
}
