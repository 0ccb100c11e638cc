// Package mapgen turns a seed, a map size and a biome into the voxel IDs of
// a whole map with a single world-generation dispatch.
package mapgen

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"voxgrass/internal/compute"
)

type Gateway struct {
	device    compute.Device
	chunkSize [3]int
	log       logrus.FieldLogger
}

func NewGateway(device compute.Device, chunkSize [3]int, log logrus.FieldLogger) *Gateway {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Gateway{device: device, chunkSize: chunkSize, log: log}
}

// MapParams marshals a generation request. Size is in voxels.
func (g *Gateway) MapParams(seed string, mapSize [2]int, biome Biome) compute.MapParams {
	ox, oy := Offsets(ParseSeed(seed))
	return compute.MapParams{
		Size:   [3]int{mapSize[0] * g.chunkSize[0], g.chunkSize[1], mapSize[1] * g.chunkSize[2]},
		Offset: [2]float32{float32(ox), float32(oy)},
		Biome:  biome.Params,
	}
}

// Generate returns mapSize.x*mapSize.y*chunkVolume voxel IDs laid out over
// the full map extent. A zero-volume map returns an empty slice without a
// dispatch.
func (g *Gateway) Generate(ctx context.Context, seed string, mapSize [2]int, biome Biome) ([]int32, error) {
	if mapSize[0] < 0 || mapSize[1] < 0 {
		return nil, fmt.Errorf("generate map: negative map size %v", mapSize)
	}
	p := g.MapParams(seed, mapSize, biome)
	if p.Volume() == 0 {
		return []int32{}, nil
	}

	g.log.WithFields(logrus.Fields{
		"biome":  biome.Name,
		"size":   p.Size,
		"volume": p.Volume(),
	}).Debug("dispatching world generation")

	voxels, err := g.device.GenerateMap(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("generate map: %w", err)
	}
	if len(voxels) != p.Volume() {
		return nil, fmt.Errorf("generate map: kernel returned %d voxels, want %d", len(voxels), p.Volume())
	}
	return voxels, nil
}
