package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voxgrass/internal/compute/software"
	"voxgrass/internal/config"
	"voxgrass/internal/mapgen"
	"voxgrass/internal/registry"
	"voxgrass/internal/render"
	"voxgrass/internal/snapshot"
	"voxgrass/internal/world"
)

func TestApplyFlags(t *testing.T) {
	f, fs, err := parseFlags([]string{"--seed", "42", "--map-size", "2,3", "--backend", "software", "--log-level", "debug"})
	require.NoError(t, err)

	cfg := config.Default()
	require.NoError(t, applyFlags(&cfg, f, fs))
	assert.Equal(t, "42", cfg.World.Seed)
	assert.Equal(t, [2]int{2, 3}, cfg.World.MapSize)
	assert.Equal(t, "debug", cfg.Log.Level)

	f, fs, err = parseFlags([]string{"--map-size", "2"})
	require.NoError(t, err)
	assert.Error(t, applyFlags(&cfg, f, fs))

	f, fs, err = parseFlags([]string{"--backend", "vulkan"})
	require.NoError(t, err)
	assert.ErrorIs(t, applyFlags(&cfg, f, fs), config.ErrInvalid)
}

func TestUnsetFlagsKeepConfig(t *testing.T) {
	f, fs, err := parseFlags(nil)
	require.NoError(t, err)
	cfg := config.Default()
	require.NoError(t, applyFlags(&cfg, f, fs))
	assert.Equal(t, config.Default(), cfg)
}

func TestCameraHeight(t *testing.T) {
	l := &frameLoop{frames: 5, from: 0, to: 200}
	assert.Equal(t, 0.0, l.cameraHeight(0))
	assert.Equal(t, 100.0, l.cameraHeight(2))
	assert.Equal(t, 200.0, l.cameraHeight(4))

	single := &frameLoop{frames: 1, from: 30, to: 90}
	assert.Equal(t, 30.0, single.cameraHeight(0))
}

func TestSetupLogger(t *testing.T) {
	log := logrus.New()
	require.NoError(t, setupLogger(log, config.LogConfig{Level: "warn", Format: "json"}))
	assert.Equal(t, logrus.WarnLevel, log.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, log.Formatter)

	assert.Error(t, setupLogger(log, config.LogConfig{Level: "loud"}))
	assert.Error(t, setupLogger(log, config.LogConfig{Level: "info", Format: "xml"}))
}

func TestFrameLoopRuns(t *testing.T) {
	dev := software.New(software.Options{Workers: 2})
	t.Cleanup(func() { _ = dev.Close() })

	cfg := config.Default()
	cfg.World.MapSize = [2]int{1, 1}
	cfg.Grass.PerTile = 4
	reg := registry.Default()
	biome, err := mapgen.ResolveBiome(cfg.Biome, reg)
	require.NoError(t, err)

	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	scene := render.NewHeadless()
	w, err := world.New(world.Options{Config: cfg, Registry: reg, Device: dev, Scene: scene, Logger: logger})
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })

	ctx := context.Background()
	require.NoError(t, w.GenerateWorld(ctx, cfg.World.Seed, cfg.World.MapSize, biome))

	loop := &frameLoop{world: w, scene: scene, log: logger, frames: 3, from: 0, to: 1000, limit: newFPSLimiter(0)}
	require.NoError(t, loop.run(ctx))

	last := hook.LastEntry()
	require.NotNil(t, last)
	assert.Equal(t, "frame loop done", last.Message)
	assert.Equal(t, 1, w.Stats().Chunks)
}

func TestSimulateReleasesWorld(t *testing.T) {
	dev := software.New(software.Options{Workers: 2})
	t.Cleanup(func() { _ = dev.Close() })
	logger, _ := test.NewNullLogger()

	cfg := config.Default()
	cfg.World.MapSize = [2]int{2, 1}
	cfg.Grass.PerTile = 4
	f := flags{frames: 2, cameraTo: 100, store: t.TempDir()}
	ctx := context.Background()

	require.NoError(t, simulate(ctx, cfg, f, dev, logger))
	assert.Zero(t, dev.LiveBuffers())

	// Failures after generation still release every chunk.
	bad := f
	bad.preview = filepath.Join(t.TempDir(), "missing", "preview.png")
	require.Error(t, simulate(ctx, cfg, bad, dev, logger))
	assert.Zero(t, dev.LiveBuffers())

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	require.ErrorIs(t, simulate(cancelled, cfg, f, dev, logger), context.Canceled)
	assert.Zero(t, dev.LiveBuffers())

	missing := f
	missing.load = "nowhere"
	assert.ErrorIs(t, simulate(ctx, cfg, missing, dev, logger), snapshot.ErrNotFound)
}

func TestSaveAndReloadSnapshot(t *testing.T) {
	dev := software.New(software.Options{Workers: 2})
	t.Cleanup(func() { _ = dev.Close() })
	store, err := snapshot.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	cfg := config.Default()
	cfg.World.MapSize = [2]int{2, 1}
	reg := registry.Default()
	biome, err := mapgen.ResolveBiome(cfg.Biome, reg)
	require.NoError(t, err)
	ctx := context.Background()

	w, err := world.New(world.Options{Config: cfg, Registry: reg, Device: dev, Scene: render.NewHeadless()})
	require.NoError(t, err)
	require.NoError(t, w.GenerateWorld(ctx, "saved", cfg.World.MapSize, biome))
	require.NoError(t, saveSnapshot(store, "one", w, cfg, biome.Name))
	want, err := w.ExportVoxels()
	require.NoError(t, err)
	require.NoError(t, w.Close())

	snap, err := store.Load("one")
	require.NoError(t, err)
	assert.Equal(t, "saved", snap.Seed)
	assert.Equal(t, biome.Name, snap.Biome)

	reloaded, err := world.New(world.Options{Config: cfg, Registry: reg, Device: dev, Scene: render.NewHeadless(), Source: snap})
	require.NoError(t, err)
	t.Cleanup(func() { _ = reloaded.Close() })
	require.NoError(t, reloaded.GenerateWorld(ctx, snap.Seed, snap.MapSize, biome))
	got, err := reloaded.ExportVoxels()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
