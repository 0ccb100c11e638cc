package mapgen

import (
	"fmt"

	"voxgrass/internal/compute"
	"voxgrass/internal/config"
	"voxgrass/internal/registry"
)

// Biome is a config.Biome with every block name resolved to an ID.
type Biome struct {
	Name   string
	Params compute.BiomeParams
}

// ResolveBiome looks up the block names of b. An empty name resolves to air.
func ResolveBiome(b config.Biome, reg *registry.Registry) (Biome, error) {
	var firstErr error
	id := func(field, name string) int32 {
		if name == "" || firstErr != nil {
			return 0
		}
		v, err := reg.IDByName(name)
		if err != nil {
			firstErr = fmt.Errorf("biome %q %s: %w", b.Name, field, err)
		}
		return v
	}

	p := compute.BiomeParams{
		GroundBlock:              id("ground block", b.GroundBlock),
		GroundHeight:             int32(b.GroundHeight),
		SecondaryGroundBlock:     id("secondary ground block", b.SecondaryGroundBlock),
		SecondaryGroundThreshold: b.SecondaryGroundThreshold,
		SecondaryGroundScale:     b.SecondaryGroundScale,
		SecondaryGroundOffset:    [2]int32{int32(b.SecondaryGroundOffset[0]), int32(b.SecondaryGroundOffset[1])},
		UndergroundBlock:         id("underground block", b.UndergroundBlock),
		RockThreshold:            b.RockThreshold,
		RockScale:                b.RockScale,
		RockOffset:               [2]int32{int32(b.RockOffset[0]), int32(b.RockOffset[1])},
		FoliageBlock:             id("foliage block", b.FoliageBlock),
		FoliageThreshold:         b.FoliageThreshold,
		FoliageScale:             b.FoliageScale,
	}
	for i, name := range b.RockTypes {
		p.RockTypes[i] = id(fmt.Sprintf("rock type %d", i), name)
	}
	if firstErr != nil {
		return Biome{}, firstErr
	}
	return Biome{Name: b.Name, Params: p}, nil
}
