// Package profiling accumulates named wall-clock spans per frame.
//
//	defer profiling.Track("world.MeshChunk")()
package profiling

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Profiler sums span durations until the next ResetFrame.
type Profiler struct {
	mu     sync.Mutex
	totals map[string]time.Duration
	calls  map[string]int
	frames uint64
}

func New() *Profiler {
	return &Profiler{
		totals: make(map[string]time.Duration),
		calls:  make(map[string]int),
	}
}

var std = New()

// Default is the process-wide profiler used by the package functions.
func Default() *Profiler { return std }

// Track returns a stop function that records the elapsed time under name.
func (p *Profiler) Track(name string) func() {
	start := time.Now()
	return func() {
		d := time.Since(start)
		p.mu.Lock()
		p.totals[name] += d
		p.calls[name]++
		p.mu.Unlock()
	}
}

// ResetFrame clears the totals. Call at the start of each frame.
func (p *Profiler) ResetFrame() {
	p.mu.Lock()
	clear(p.totals)
	clear(p.calls)
	p.frames++
	p.mu.Unlock()
}

// Frames counts ResetFrame calls.
func (p *Profiler) Frames() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.frames
}

// Snapshot copies the current totals.
func (p *Profiler) Snapshot() map[string]time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]time.Duration, len(p.totals))
	for k, v := range p.totals {
		out[k] = v
	}
	return out
}

// Calls reports how often name was tracked this frame.
func (p *Profiler) Calls(name string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[name]
}

// TopN formats the n slowest spans, e.g.
// "world.MeshChunk:4.2ms, chunk.UpdateGrassGeometry:2.1ms".
func (p *Profiler) TopN(n int) string {
	type span struct {
		name string
		dur  time.Duration
	}
	snap := p.Snapshot()
	list := make([]span, 0, len(snap))
	for k, v := range snap {
		list = append(list, span{k, v})
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].dur != list[j].dur {
			return list[i].dur > list[j].dur
		}
		return list[i].name < list[j].name
	})

	n = max(0, min(n, len(list)))
	parts := make([]string, 0, n)
	for _, s := range list[:n] {
		parts = append(parts, fmt.Sprintf("%s:%sms", s.name, formatMs(s.dur)))
	}
	return strings.Join(parts, ", ")
}

// formatMs prints milliseconds with one decimal, dropping ".0".
func formatMs(d time.Duration) string {
	s := fmt.Sprintf("%.1f", float64(d.Microseconds())/1000)
	return strings.TrimSuffix(s, ".0")
}

func Track(name string) func() { return std.Track(name) }

func ResetFrame() { std.ResetFrame() }

func Snapshot() map[string]time.Duration { return std.Snapshot() }

func TopN(n int) string { return std.TopN(n) }
