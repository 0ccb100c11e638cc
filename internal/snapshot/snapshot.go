// Package snapshot saves generated worlds: a compact zstd encoding of the
// whole-map voxel array and a badger-backed store of named snapshots. A
// loaded Snapshot is a map source, so regenerating from it skips the
// world-generation dispatch.
package snapshot

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"

	"voxgrass/internal/mapgen"
)

const (
	magic   = "VXGS"
	version = uint16(1)

	maxNameLen = 1 << 12
	maxVoxels  = 1 << 28
)

var (
	ErrFormat   = errors.New("not a voxgrass snapshot")
	ErrVersion  = errors.New("unsupported snapshot version")
	ErrMismatch = errors.New("snapshot does not match requested map")
)

// Snapshot is a whole map in the flat layout the world-generation kernel
// produces: width MapSize[0]*ChunkSize[0], depth MapSize[1]*ChunkSize[2].
type Snapshot struct {
	Seed      string
	Biome     string
	ChunkSize [3]int
	MapSize   [2]int
	Voxels    []int32
}

// volume is only meaningful once checkSizes has passed.
func (s *Snapshot) volume() int {
	return s.MapSize[0] * s.ChunkSize[0] * s.ChunkSize[1] * s.MapSize[1] * s.ChunkSize[2]
}

func (s *Snapshot) checkSizes() error {
	for _, v := range s.ChunkSize {
		if v < 1 {
			return fmt.Errorf("%w: chunk size %v", ErrFormat, s.ChunkSize)
		}
	}
	if s.MapSize[0] < 0 || s.MapSize[1] < 0 {
		return fmt.Errorf("%w: map size %v", ErrFormat, s.MapSize)
	}
	// Each factor and running product stays under maxVoxels, so the
	// product never wraps even for sizes read from a hostile header.
	n := int64(1)
	for _, v := range [...]int{s.MapSize[0], s.ChunkSize[0], s.ChunkSize[1], s.MapSize[1], s.ChunkSize[2]} {
		if v > maxVoxels {
			return fmt.Errorf("%w: size %d exceeds limit", ErrFormat, v)
		}
		if n *= int64(v); n > maxVoxels {
			return fmt.Errorf("%w: chunk size %v map size %v exceeds %d voxels", ErrFormat, s.ChunkSize, s.MapSize, maxVoxels)
		}
	}
	return nil
}

// Validate checks that the voxel count matches the recorded sizes.
func (s *Snapshot) Validate() error {
	if err := s.checkSizes(); err != nil {
		return err
	}
	if want := s.volume(); len(s.Voxels) != want {
		return fmt.Errorf("%w: %d voxels, want %d", ErrFormat, len(s.Voxels), want)
	}
	return nil
}

// Generate replays the stored voxels. The seed and biome are ignored; the
// map size must match.
func (s *Snapshot) Generate(ctx context.Context, _ string, mapSize [2]int, _ mapgen.Biome) ([]int32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if mapSize != s.MapSize {
		return nil, fmt.Errorf("%w: map size %v, snapshot has %v", ErrMismatch, mapSize, s.MapSize)
	}
	return append([]int32(nil), s.Voxels...), nil
}

type header struct {
	ChunkSize [3]int32
	MapSize   [2]int32
	SeedLen   uint16
	BiomeLen  uint16
}

// Encode writes the magic and version uncompressed, then the header and
// voxels as one zstd frame.
func Encode(w io.Writer, s *Snapshot) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if len(s.Seed) > maxNameLen || len(s.Biome) > maxNameLen {
		return fmt.Errorf("%w: seed or biome name too long", ErrFormat)
	}

	if _, err := io.WriteString(w, magic); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, version); err != nil {
		return err
	}

	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return fmt.Errorf("snapshot encoder: %w", err)
	}
	bw := bufio.NewWriter(enc)
	h := header{
		ChunkSize: [3]int32{int32(s.ChunkSize[0]), int32(s.ChunkSize[1]), int32(s.ChunkSize[2])},
		MapSize:   [2]int32{int32(s.MapSize[0]), int32(s.MapSize[1])},
		SeedLen:   uint16(len(s.Seed)),
		BiomeLen:  uint16(len(s.Biome)),
	}
	if err := binary.Write(bw, binary.LittleEndian, h); err != nil {
		enc.Close()
		return err
	}
	bw.WriteString(s.Seed)
	bw.WriteString(s.Biome)
	if err := binary.Write(bw, binary.LittleEndian, s.Voxels); err != nil {
		enc.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

// Decode reads a snapshot written by Encode.
func Decode(r io.Reader) (*Snapshot, error) {
	var m [len(magic)]byte
	if _, err := io.ReadFull(r, m[:]); err != nil || string(m[:]) != magic {
		return nil, ErrFormat
	}
	var v uint16
	if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
		return nil, ErrFormat
	}
	if v != version {
		return nil, fmt.Errorf("%w: %d", ErrVersion, v)
	}

	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("snapshot decoder: %w", err)
	}
	defer dec.Close()
	br := bufio.NewReader(dec)

	var h header
	if err := binary.Read(br, binary.LittleEndian, &h); err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrFormat, err)
	}
	names := make([]byte, int(h.SeedLen)+int(h.BiomeLen))
	if _, err := io.ReadFull(br, names); err != nil {
		return nil, fmt.Errorf("%w: names: %v", ErrFormat, err)
	}

	s := &Snapshot{
		Seed:      string(names[:h.SeedLen]),
		Biome:     string(names[h.SeedLen:]),
		ChunkSize: [3]int{int(h.ChunkSize[0]), int(h.ChunkSize[1]), int(h.ChunkSize[2])},
		MapSize:   [2]int{int(h.MapSize[0]), int(h.MapSize[1])},
	}
	if err := s.checkSizes(); err != nil {
		return nil, err
	}
	s.Voxels = make([]int32, s.volume())
	if err := binary.Read(br, binary.LittleEndian, s.Voxels); err != nil {
		return nil, fmt.Errorf("%w: voxels: %v", ErrFormat, err)
	}
	return s, nil
}
