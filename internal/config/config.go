package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the environment variable consulted when Load gets an
// empty path.
const EnvConfigPath = "VOXGRASS_CONFIG"

// Config is the root application configuration.
type Config struct {
	World   WorldConfig   `yaml:"world"`
	Grass   GrassConfig   `yaml:"grass"`
	LOD     LODConfig     `yaml:"lod"`
	Biome   Biome         `yaml:"biome"`
	Compute ComputeConfig `yaml:"compute"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
}

type WorldConfig struct {
	Seed      string `yaml:"seed"`
	MapSize   [2]int `yaml:"map_size"`
	ChunkSize [3]int `yaml:"chunk_size"`
}

// ChunkVolume is the voxel count of one chunk.
func (w WorldConfig) ChunkVolume() int {
	return w.ChunkSize[0] * w.ChunkSize[1] * w.ChunkSize[2]
}

type GrassConfig struct {
	PerTile         int     `yaml:"per_tile"`
	Height          float32 `yaml:"height"`
	Width           float32 `yaml:"width"`
	CurveMultiplier float32 `yaml:"curve_multiplier"`
}

type LODConfig struct {
	Near          float64 `yaml:"near"`
	Far           float64 `yaml:"far"`
	MaxMultiplier int     `yaml:"max_multiplier"`
	BiasThreshold float64 `yaml:"bias_threshold"`
	BiasFloor     float64 `yaml:"bias_floor"`
}

type ComputeConfig struct {
	// Backend is "software" or "opengl".
	Backend string `yaml:"backend"`
	// Workers bounds the software backend's dispatch pool; 0 means NumCPU.
	Workers int `yaml:"workers"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	// File enables rotating file output in addition to stderr.
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

type MetricsConfig struct {
	Listen string `yaml:"listen"`
}

// Default returns the reference configuration: a 16x4x16 chunk, 1024 grass
// blades per tile and the reference LOD curve.
func Default() Config {
	return Config{
		World: WorldConfig{
			Seed:      "voxgrass",
			MapSize:   [2]int{4, 4},
			ChunkSize: [3]int{16, 4, 16},
		},
		Grass: GrassConfig{
			PerTile:         1024,
			Height:          0.2,
			Width:           0.025,
			CurveMultiplier: 0.2,
		},
		LOD: LODConfig{
			Near:          30,
			Far:           200,
			MaxMultiplier: 64,
			BiasThreshold: 0.8,
			BiasFloor:     0.12,
		},
		Biome: DefaultBiome(),
		Compute: ComputeConfig{
			Backend: "software",
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  50,
			MaxBackups: 3,
		},
	}
}

// Load reads a YAML file over the defaults. An empty path falls back to
// $VOXGRASS_CONFIG; if that is unset too the defaults are returned.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv(EnvConfigPath)
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

var ErrInvalid = errors.New("invalid configuration")

// Validate checks ranges that would otherwise surface as kernel faults.
func (c Config) Validate() error {
	for i, s := range c.World.ChunkSize {
		if s < 1 {
			return fmt.Errorf("%w: chunk_size[%d] = %d", ErrInvalid, i, s)
		}
	}
	if c.World.MapSize[0] < 0 || c.World.MapSize[1] < 0 {
		return fmt.Errorf("%w: negative map_size %v", ErrInvalid, c.World.MapSize)
	}
	if c.Grass.PerTile < 1 {
		return fmt.Errorf("%w: grass.per_tile must be positive", ErrInvalid)
	}
	if c.LOD.Far <= c.LOD.Near {
		return fmt.Errorf("%w: lod.far (%v) must exceed lod.near (%v)", ErrInvalid, c.LOD.Far, c.LOD.Near)
	}
	if c.LOD.MaxMultiplier < 1 {
		return fmt.Errorf("%w: lod.max_multiplier must be >= 1", ErrInvalid)
	}
	if c.LOD.BiasFloor < 0 || c.LOD.BiasFloor > 1 {
		return fmt.Errorf("%w: lod.bias_floor (%v) outside [0,1]", ErrInvalid, c.LOD.BiasFloor)
	}
	if c.LOD.BiasThreshold < 0 {
		return fmt.Errorf("%w: negative lod.bias_threshold (%v)", ErrInvalid, c.LOD.BiasThreshold)
	}
	switch c.Compute.Backend {
	case "software", "opengl":
	default:
		return fmt.Errorf("%w: unknown compute backend %q", ErrInvalid, c.Compute.Backend)
	}
	if c.Biome.GroundHeight < 0 || c.Biome.GroundHeight >= c.World.ChunkSize[1] {
		return fmt.Errorf("%w: biome.ground_height %d outside chunk height %d", ErrInvalid, c.Biome.GroundHeight, c.World.ChunkSize[1])
	}
	return nil
}
