package telemetry

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/process"
)

// HostSample is one reading of this process's resource use.
type HostSample struct {
	CPUPercent float64
	RSSBytes   uint64
}

// hostSampler reads process stats through gopsutil. The process handle is
// opened on first use.
type hostSampler struct {
	once sync.Once
	proc *process.Process
	err  error

	cpu prometheus.Gauge
	rss prometheus.Gauge
}

func newHostSampler() *hostSampler {
	return &hostSampler{
		cpu: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "process_cpu_percent",
			Help:      "CPU use of the engine process since the previous sample.",
		}),
		rss: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "process_resident_bytes",
			Help:      "Resident set size of the engine process.",
		}),
	}
}

func (h *hostSampler) sample() (HostSample, error) {
	h.once.Do(func() {
		h.proc, h.err = process.NewProcess(int32(os.Getpid()))
	})
	if h.err != nil {
		return HostSample{}, fmt.Errorf("host sample: %w", h.err)
	}

	var s HostSample
	pct, err := h.proc.Percent(0)
	if err != nil {
		// fall back to system-wide use
		all, cerr := cpu.Percent(100*time.Millisecond, false)
		if cerr != nil || len(all) == 0 {
			return HostSample{}, fmt.Errorf("host sample: cpu: %w", err)
		}
		pct = all[0]
	}
	s.CPUPercent = pct

	mem, err := h.proc.MemoryInfo()
	if err != nil {
		return HostSample{}, fmt.Errorf("host sample: memory: %w", err)
	}
	s.RSSBytes = mem.RSS

	h.cpu.Set(s.CPUPercent)
	h.rss.Set(float64(s.RSSBytes))
	return s, nil
}

// SampleHost reads process CPU and memory and publishes them.
func (c *Collector) SampleHost() (HostSample, error) {
	if c == nil {
		return HostSample{}, nil
	}
	return c.host.sample()
}
