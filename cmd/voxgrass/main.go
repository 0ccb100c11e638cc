// Command voxgrass generates a chunked voxel world, meshes it on a compute
// backend and runs a headless frame loop that animates the camera height
// through the grass LOD curve.
package main

import (
	"context"
	"fmt"
	"runtime"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/xlab/closer"

	"voxgrass/internal/compute"
	"voxgrass/internal/config"
	"voxgrass/internal/mapgen"
	"voxgrass/internal/preview"
	"voxgrass/internal/registry"
	"voxgrass/internal/render"
	"voxgrass/internal/snapshot"
	"voxgrass/internal/telemetry"
	"voxgrass/internal/world"
)

// GL calls must stay on the thread that created the context.
func init() { runtime.LockOSThread() }

type flags struct {
	config        string
	seed          string
	mapSize       []int
	backend       string
	frames        int
	fps           int
	cameraFrom    float64
	cameraTo      float64
	preview       string
	previewScale  int
	metricsListen string
	logLevel      string
	store         string
	save          string
	load          string
}

func parseFlags(args []string) (flags, *pflag.FlagSet, error) {
	var f flags
	fs := pflag.NewFlagSet("voxgrass", pflag.ContinueOnError)
	fs.StringVarP(&f.config, "config", "c", "", "YAML config file (default $"+config.EnvConfigPath+")")
	fs.StringVar(&f.seed, "seed", "", "world seed, overrides world.seed")
	fs.IntSliceVar(&f.mapSize, "map-size", nil, "map size in chunks as x,z")
	fs.StringVar(&f.backend, "backend", "", "compute backend: software or opengl")
	fs.IntVarP(&f.frames, "frames", "n", 120, "frames to run")
	fs.IntVar(&f.fps, "fps", 60, "frame limit, 0 for unlimited")
	fs.Float64Var(&f.cameraFrom, "camera-from", 0, "camera height on the first frame")
	fs.Float64Var(&f.cameraTo, "camera-to", 250, "camera height on the last frame")
	fs.StringVar(&f.preview, "preview", "", "write a top-down PNG of the world to this path")
	fs.IntVar(&f.previewScale, "preview-scale", 4, "preview pixels per column")
	fs.StringVar(&f.metricsListen, "metrics-listen", "", "serve Prometheus metrics on this address")
	fs.StringVar(&f.logLevel, "log-level", "", "log level, overrides log.level")
	fs.StringVar(&f.store, "store", "voxgrass-data", "snapshot store directory")
	fs.StringVar(&f.save, "save", "", "save the generated world as a named snapshot")
	fs.StringVar(&f.load, "load", "", "load a named snapshot instead of generating")
	if err := fs.Parse(args); err != nil {
		return f, fs, err
	}
	return f, fs, nil
}

// applyFlags overlays explicitly set flags on the loaded config.
func applyFlags(cfg *config.Config, f flags, fs *pflag.FlagSet) error {
	if fs.Changed("seed") {
		cfg.World.Seed = f.seed
	}
	if fs.Changed("map-size") {
		if len(f.mapSize) != 2 {
			return fmt.Errorf("--map-size wants two values, got %v", f.mapSize)
		}
		cfg.World.MapSize = [2]int{f.mapSize[0], f.mapSize[1]}
	}
	if fs.Changed("backend") {
		cfg.Compute.Backend = f.backend
	}
	if fs.Changed("metrics-listen") {
		cfg.Metrics.Listen = f.metricsListen
	}
	if fs.Changed("log-level") {
		cfg.Log.Level = f.logLevel
	}
	return cfg.Validate()
}

func main() {
	log := logrus.StandardLogger()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	// closer runs handlers on its own goroutine, so it only cancels and
	// waits; the GL resources are released by run on the locked thread.
	closer.Bind(func() {
		cancel()
		<-done
	})

	err := run(ctx, log)
	close(done)
	if err != nil {
		log.WithError(err).Error("voxgrass failed")
		closer.Exit(closer.ExitCodeErr)
	}
	closer.Close()
}

func run(ctx context.Context, std *logrus.Logger) error {
	f, fs, err := parseFlags(osArgs())
	if err != nil {
		return err
	}
	cfg, err := config.Load(f.config)
	if err != nil {
		return err
	}
	if err := applyFlags(&cfg, f, fs); err != nil {
		return err
	}
	if err := setupLogger(std, cfg.Log); err != nil {
		return err
	}
	log := std.WithField("backend", cfg.Compute.Backend)

	device, err := newDevice(cfg.Compute, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := device.Close(); err != nil {
			log.WithError(err).Warn("close device")
		}
	}()
	return simulate(ctx, cfg, f, device, log)
}

// simulate builds the world on device and runs the frame loop. The world is
// released before it returns on every path.
func simulate(ctx context.Context, cfg config.Config, f flags, device compute.Device, log logrus.FieldLogger) error {
	reg := registry.Default()
	biome, err := mapgen.ResolveBiome(cfg.Biome, reg)
	if err != nil {
		return err
	}

	metrics := telemetry.New()
	if cfg.Metrics.Listen != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics.Listen, log); err != nil {
				log.WithError(err).Error("metrics endpoint stopped")
			}
		}()
	}

	var (
		store  *snapshot.Store
		source world.MapSource
	)
	if f.save != "" || f.load != "" {
		if store, err = snapshot.Open(f.store); err != nil {
			return err
		}
		defer store.Close()
	}
	if f.load != "" {
		snap, err := store.Load(f.load)
		if err != nil {
			return err
		}
		if snap.ChunkSize != cfg.World.ChunkSize {
			return fmt.Errorf("snapshot %q has chunk size %v, config has %v", f.load, snap.ChunkSize, cfg.World.ChunkSize)
		}
		cfg.World.Seed, cfg.World.MapSize = snap.Seed, snap.MapSize
		source = snap
		log.WithFields(logrus.Fields{"snapshot": f.load, "seed": snap.Seed}).Info("loading snapshot")
	}

	scene := render.NewHeadless()
	w, err := world.New(world.Options{
		Config:   cfg,
		Registry: reg,
		Device:   device,
		Scene:    scene,
		Source:   source,
		Logger:   log,
		Metrics:  metrics,
	})
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.GenerateWorld(ctx, cfg.World.Seed, cfg.World.MapSize, biome); err != nil {
		return err
	}
	if f.save != "" {
		if err := saveSnapshot(store, f.save, w, cfg, biome.Name); err != nil {
			return err
		}
		log.WithField("snapshot", f.save).Info("snapshot saved")
	}
	log.WithFields(logrus.Fields{
		"revision": w.Revision(),
		"extent":   w.Extent(),
	}).Info("world ready")

	if f.preview != "" {
		if err := preview.WriteFile(f.preview, w, reg, f.previewScale); err != nil {
			return err
		}
		log.WithField("path", f.preview).Info("preview written")
	}

	loop := &frameLoop{
		world:   w,
		scene:   scene,
		metrics: metrics,
		log:     log,
		frames:  f.frames,
		from:    f.cameraFrom,
		to:      f.cameraTo,
		limit:   newFPSLimiter(f.fps),
	}
	return loop.run(ctx)
}

func saveSnapshot(store *snapshot.Store, name string, w *world.World, cfg config.Config, biome string) error {
	voxels, err := w.ExportVoxels()
	if err != nil {
		return err
	}
	return store.Save(name, &snapshot.Snapshot{
		Seed:      w.Seed(),
		Biome:     biome,
		ChunkSize: cfg.World.ChunkSize,
		MapSize:   w.MapSize(),
		Voxels:    voxels,
	})
}
