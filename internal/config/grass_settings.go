package config

import "sync"

// GrassSettings holds the grass tunables that UI sliders adjust at runtime.
// World code reads them once per geometry rebuild.
type GrassSettings struct {
	mu    sync.RWMutex
	grass GrassConfig
	rev   uint64
}

// NewGrassSettings seeds the runtime settings from the static config.
func NewGrassSettings(g GrassConfig) *GrassSettings {
	return &GrassSettings{grass: g}
}

// Get returns the current values and a revision that increases on every Set.
func (s *GrassSettings) Get() (GrassConfig, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.grass, s.rev
}

// Set replaces the grass parameters. PerTile is clamped to at least 1.
func (s *GrassSettings) Set(g GrassConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if g.PerTile < 1 {
		g.PerTile = 1
	}
	s.grass = g
	s.rev++
}
