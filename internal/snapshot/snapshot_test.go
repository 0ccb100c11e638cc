package snapshot

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voxgrass/internal/mapgen"
)

func sample() *Snapshot {
	s := &Snapshot{
		Seed:      "meadow",
		Biome:     "Grasslands",
		ChunkSize: [3]int{4, 2, 4},
		MapSize:   [2]int{2, 1},
	}
	s.Voxels = make([]int32, s.volume())
	for i := range s.Voxels {
		s.Voxels[i] = int32(i % 9)
	}
	return s
}

func TestEncodeDecode(t *testing.T) {
	s := sample()
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, s))
	assert.Equal(t, magic, buf.String()[:4])

	got, err := Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, s, got)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode(bytes.NewReader([]byte("nope")))
	assert.True(t, errors.Is(err, ErrFormat))

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, sample()))
	raw := buf.Bytes()
	raw[4] = 9
	_, err = Decode(bytes.NewReader(raw))
	assert.True(t, errors.Is(err, ErrVersion))
}

// rawSnapshot frames a hand-built header the way Encode does, with no voxels.
func rawSnapshot(t *testing.T, h header) []byte {
	t.Helper()
	var buf bytes.Buffer
	buf.WriteString(magic)
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, version))
	enc, err := zstd.NewWriter(&buf)
	require.NoError(t, err)
	require.NoError(t, binary.Write(enc, binary.LittleEndian, h))
	require.NoError(t, enc.Close())
	return buf.Bytes()
}

func TestDecodeRejectsOversizedHeader(t *testing.T) {
	cases := map[string]header{
		"wrapping product": {ChunkSize: [3]int32{1 << 16, 1 << 16, 1 << 16}, MapSize: [2]int32{1 << 15, 1}},
		"huge dimension":   {ChunkSize: [3]int32{1, 1 << 30, 1}, MapSize: [2]int32{1, 1}},
		"just over limit":  {ChunkSize: [3]int32{1 << 10, 1 << 9, 1 << 10}, MapSize: [2]int32{1, 1}},
		"negative map":     {ChunkSize: [3]int32{4, 4, 4}, MapSize: [2]int32{-1, 1}},
	}
	for name, h := range cases {
		t.Run(name, func(t *testing.T) {
			var err error
			require.NotPanics(t, func() { _, err = Decode(bytes.NewReader(rawSnapshot(t, h))) })
			assert.True(t, errors.Is(err, ErrFormat), "got %v", err)
		})
	}

	// A header within the limit gets as far as reading voxels.
	_, err := Decode(bytes.NewReader(rawSnapshot(t, header{ChunkSize: [3]int32{2, 2, 2}, MapSize: [2]int32{1, 1}})))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "voxels")
}

func TestEncodeValidates(t *testing.T) {
	s := sample()
	s.Voxels = s.Voxels[:3]
	assert.True(t, errors.Is(Encode(&bytes.Buffer{}, s), ErrFormat))
}

func TestSnapshotAsMapSource(t *testing.T) {
	s := sample()
	ctx := context.Background()

	voxels, err := s.Generate(ctx, "ignored", [2]int{2, 1}, mapgen.Biome{})
	require.NoError(t, err)
	assert.Equal(t, s.Voxels, voxels)
	voxels[0] = 42
	assert.NotEqual(t, int32(42), s.Voxels[0])

	_, err = s.Generate(ctx, "", [2]int{1, 1}, mapgen.Biome{})
	assert.True(t, errors.Is(err, ErrMismatch))
}

func TestStore(t *testing.T) {
	st, err := OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.Save("b", sample()))
	require.NoError(t, st.Save("a", sample()))
	assert.Error(t, st.Save("", sample()))

	names, err := st.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names)

	got, err := st.Load("a")
	require.NoError(t, err)
	assert.Equal(t, sample(), got)

	_, err = st.Load("missing")
	assert.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, st.Delete("a"))
	_, err = st.Load("a")
	assert.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, st.Close())
	require.NoError(t, st.Close())
	_, err = st.Load("b")
	assert.True(t, errors.Is(err, ErrClosed))
}

func TestStoreOnDisk(t *testing.T) {
	dir := t.TempDir()
	st, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, st.Save("w", sample()))
	require.NoError(t, st.Close())

	st, err = Open(dir)
	require.NoError(t, err)
	defer st.Close()
	got, err := st.Load("w")
	require.NoError(t, err)
	assert.Equal(t, "meadow", got.Seed)
}
