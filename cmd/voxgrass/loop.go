package main

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"voxgrass/internal/profiling"
	"voxgrass/internal/render"
	"voxgrass/internal/telemetry"
	"voxgrass/internal/world"
)

const slowFrame = 16 * time.Millisecond

type frameLoop struct {
	world   *world.World
	scene   *render.Headless
	metrics *telemetry.Collector
	log     logrus.FieldLogger
	frames  int
	from    float64
	to      float64
	limit   *fpsLimiter
}

// cameraHeight interpolates linearly from the first to the last frame.
func (l *frameLoop) cameraHeight(frame int) float64 {
	if l.frames <= 1 {
		return l.from
	}
	t := float64(frame) / float64(l.frames-1)
	return l.from + (l.to-l.from)*t
}

func (l *frameLoop) run(ctx context.Context) error {
	for frame := 0; frame < l.frames; frame++ {
		if err := ctx.Err(); err != nil {
			return nil
		}
		profiling.ResetFrame()
		start := time.Now()

		h := l.cameraHeight(frame)
		if err := l.world.Tick(ctx, h); err != nil {
			return err
		}
		draws := l.scene.EndFrame()

		if d := time.Since(start); d > slowFrame {
			l.log.WithFields(logrus.Fields{
				"frame":   frame,
				"elapsed": d.Round(time.Microsecond),
			}).Warnf("slow frame, top tasks: %s", profiling.TopN(5))
		}
		if frame%30 == 0 || frame == l.frames-1 {
			s := l.world.Stats()
			fields := logrus.Fields{
				"frame":         frame,
				"camera_height": h,
				"draws":         len(draws),
				"voxel_tris":    s.VoxelTriangles,
				"grass_tris":    s.GrassTriangles,
				"visible_grass": s.VisibleGrassTriangles,
			}
			if host, err := l.metrics.SampleHost(); err == nil {
				fields["cpu_pct"] = host.CPUPercent
				fields["rss_mb"] = host.RSSBytes >> 20
			}
			l.log.WithFields(fields).Debug("frame")
		}
		l.limit.Wait()
	}

	s := l.world.Stats()
	l.log.WithFields(logrus.Fields{
		"frames":        l.frames,
		"chunks":        s.Chunks,
		"voxel_tris":    s.VoxelTriangles,
		"visible_grass": s.VisibleGrassTriangles,
	}).Info("frame loop done")
	return nil
}
