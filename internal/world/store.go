package world

import (
	"voxgrass/internal/chunk"
	"voxgrass/internal/compute"
)

// store indexes chunks by coordinate and keeps generation order. It is
// guarded by the World mutex.
type store struct {
	chunks map[chunk.Coord]*chunk.Chunk
	order  []*chunk.Chunk
}

func newStore() *store {
	return &store{chunks: make(map[chunk.Coord]*chunk.Chunk)}
}

func (s *store) get(coord chunk.Coord) *chunk.Chunk {
	return s.chunks[coord]
}

func (s *store) add(c *chunk.Chunk) {
	if _, ok := s.chunks[c.Coord()]; ok {
		return
	}
	s.chunks[c.Coord()] = c
	s.order = append(s.order, c)
}

// all returns the chunks in generation order.
func (s *store) all() []*chunk.Chunk {
	return append([]*chunk.Chunk(nil), s.order...)
}

func (s *store) len() int { return len(s.order) }

// neighbors looks up the four horizontal neighbors, nil where missing.
func (s *store) neighbors(coord chunk.Coord) [compute.NumNeighbors]*chunk.Chunk {
	var out [compute.NumNeighbors]*chunk.Chunk
	for n := range out {
		dx, dz := compute.Neighbor(n).Offset()
		out[n] = s.chunks[coord.Add(dx, dz)]
	}
	return out
}

// releaseAll frees every chunk and empties the store.
func (s *store) releaseAll() int {
	n := len(s.order)
	for _, c := range s.order {
		c.Release()
	}
	clear(s.chunks)
	s.order = nil
	return n
}

// floorDiv divides rounding toward negative infinity.
func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func mod(a, b int) int {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}
