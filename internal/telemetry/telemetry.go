// Package telemetry exports engine counters to Prometheus.
package telemetry

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

const namespace = "voxgrass"

// Collector holds the engine metrics. A nil *Collector is valid and drops
// every observation.
type Collector struct {
	registry *prometheus.Registry

	chunks         prometheus.Gauge
	voxelTriangles prometheus.Gauge
	grassTriangles prometheus.Gauge
	visibleGrass   prometheus.Gauge
	generations    prometheus.Counter
	dispatch       *prometheus.HistogramVec
	frames         prometheus.Histogram

	host *hostSampler
}

func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		chunks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "chunks",
			Help:      "Chunks in the current world.",
		}),
		voxelTriangles: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "voxel_triangles",
			Help:      "Opaque triangles across all chunk meshes.",
		}),
		grassTriangles: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "grass_triangles",
			Help:      "Grass triangles generated, before LOD.",
		}),
		visibleGrass: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "grass_triangles_visible",
			Help:      "Grass triangles drawn in the last frame.",
		}),
		generations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "world_generations_total",
			Help:      "Completed world generations.",
		}),
		dispatch: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dispatch_seconds",
			Help:      "Kernel dispatch plus readback latency.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}, []string{"kernel"}),
		frames: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tick_seconds",
			Help:      "World tick duration.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 10),
		}),
		host: newHostSampler(),
	}
	c.registry.MustRegister(
		c.chunks, c.voxelTriangles, c.grassTriangles, c.visibleGrass,
		c.generations, c.dispatch, c.frames,
		c.host.cpu, c.host.rss,
	)
	return c
}

// Registry exposes the underlying registry, mainly for tests.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// SetFrame publishes the per-tick aggregates.
func (c *Collector) SetFrame(chunks, voxelTriangles, grassTriangles, visibleGrass int) {
	if c == nil {
		return
	}
	c.chunks.Set(float64(chunks))
	c.voxelTriangles.Set(float64(voxelTriangles))
	c.grassTriangles.Set(float64(grassTriangles))
	c.visibleGrass.Set(float64(visibleGrass))
}

func (c *Collector) ObserveDispatch(kernel string, d time.Duration) {
	if c == nil {
		return
	}
	c.dispatch.WithLabelValues(kernel).Observe(d.Seconds())
}

func (c *Collector) ObserveTick(d time.Duration) {
	if c == nil {
		return
	}
	c.frames.Observe(d.Seconds())
}

func (c *Collector) GenerationDone() {
	if c == nil {
		return
	}
	c.generations.Inc()
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func (c *Collector) Serve(ctx context.Context, addr string, log logrus.FieldLogger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.WithField("addr", addr).Info("metrics endpoint listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
