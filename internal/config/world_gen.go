package config

// Biome describes terrain selection by block name. Names are resolved against
// the block registry before generation.
type Biome struct {
	Name string `yaml:"name"`

	GroundBlock              string  `yaml:"ground_block"`
	GroundHeight             int     `yaml:"ground_height"`
	SecondaryGroundBlock     string  `yaml:"secondary_ground_block"`
	SecondaryGroundThreshold float32 `yaml:"secondary_ground_threshold"`
	SecondaryGroundScale     float32 `yaml:"secondary_ground_scale"`
	SecondaryGroundOffset    [2]int  `yaml:"secondary_ground_offset"`
	UndergroundBlock         string  `yaml:"underground_block"`

	RockTypes     [3]string `yaml:"rock_types"`
	RockThreshold float32   `yaml:"rock_threshold"`
	RockScale     float32   `yaml:"rock_scale"`
	RockOffset    [2]int    `yaml:"rock_offset"`

	FoliageBlock     string  `yaml:"foliage_block"`
	FoliageThreshold float32 `yaml:"foliage_threshold"`
	FoliageScale     float32 `yaml:"foliage_scale"`
}

// DefaultBiome is grassland over dirt with sand patches and marble veins.
func DefaultBiome() Biome {
	return Biome{
		Name:                     "Grasslands",
		GroundBlock:              "Grass",
		GroundHeight:             1,
		SecondaryGroundBlock:     "Sand",
		SecondaryGroundThreshold: 0.7,
		SecondaryGroundScale:     0.05,
		SecondaryGroundOffset:    [2]int{1000, 1000},
		UndergroundBlock:         "Dirt",
		RockTypes:                [3]string{"Stone", "Marble", "Basalt"},
		RockThreshold:            0.6,
		RockScale:                0.1,
		RockOffset:               [2]int{5000, 5000},
		FoliageBlock:             "Grass Foliage",
		FoliageThreshold:         0.35,
		FoliageScale:             0.08,
	}
}
