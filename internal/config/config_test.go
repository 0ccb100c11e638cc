package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 1024, cfg.World.ChunkVolume())
	assert.Equal(t, 64, cfg.LOD.MaxMultiplier)
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "voxgrass.yaml")
	data := []byte(`
world:
  seed: abc
  map_size: [2, 3]
grass:
  per_tile: 16
biome:
  ground_block: Stone
  ground_height: 0
compute:
  backend: software
  workers: 2
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "abc", cfg.World.Seed)
	assert.Equal(t, [2]int{2, 3}, cfg.World.MapSize)
	assert.Equal(t, [3]int{16, 4, 16}, cfg.World.ChunkSize, "unset fields keep defaults")
	assert.Equal(t, 16, cfg.Grass.PerTile)
	assert.Equal(t, float32(0.2), cfg.Grass.Height)
	assert.Equal(t, "Stone", cfg.Biome.GroundBlock)
	assert.Equal(t, 2, cfg.Compute.Workers)
}

func TestLoadFromEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "env.yaml")
	require.NoError(t, os.WriteFile(path, []byte("world:\n  seed: from-env\n"), 0o644))
	t.Setenv(EnvConfigPath, path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.World.Seed)
}

func TestLoadWithoutPath(t *testing.T) {
	t.Setenv(EnvConfigPath, "")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]func(*Config){
		"far below near":  func(c *Config) { c.LOD.Far = c.LOD.Near },
		"zero multiplier": func(c *Config) { c.LOD.MaxMultiplier = 0 },
		"zero chunk axis": func(c *Config) { c.World.ChunkSize[1] = 0 },
		"bad backend":     func(c *Config) { c.Compute.Backend = "metal" },
		"ground too high": func(c *Config) { c.Biome.GroundHeight = 4 },
		"no grass blades": func(c *Config) { c.Grass.PerTile = 0 },
		"bias floor high": func(c *Config) { c.LOD.BiasFloor = 2 },
		"bias floor low":  func(c *Config) { c.LOD.BiasFloor = -0.1 },
		"bias below zero": func(c *Config) { c.LOD.BiasThreshold = -1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(&cfg)
			err := cfg.Validate()
			assert.True(t, errors.Is(err, ErrInvalid), "got %v", err)
		})
	}
}

func TestGrassSettingsRevision(t *testing.T) {
	s := NewGrassSettings(Default().Grass)
	_, rev0 := s.Get()

	g := Default().Grass
	g.PerTile = 0
	s.Set(g)

	got, rev1 := s.Get()
	assert.Greater(t, rev1, rev0)
	assert.Equal(t, 1, got.PerTile)
}
