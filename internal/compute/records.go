package compute

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Record strides in bytes, matching the kernels' output layout.
const (
	VertexStride        = 20        // vec3 position + vec2 uv
	ChunkTriangleStride = 3*20 + 20 // 3 vertices + vec3 normal + vec2 uv4
	GrassTriangleStride = 3 * 20
)

// Vertex is a kernel-emitted vertex.
type Vertex struct {
	Position mgl32.Vec3
	UV       mgl32.Vec2
}

// ChunkTriangle is one face-culled voxel triangle. UV4.X carries the texture
// array layer.
type ChunkTriangle struct {
	Verts  [3]Vertex
	Normal mgl32.Vec3
	UV4    mgl32.Vec2
}

// GrassTriangle is a single grass blade.
type GrassTriangle struct {
	Verts [3]Vertex
}

var le = binary.LittleEndian

func putFloats(dst []byte, fs ...float32) []byte {
	for _, f := range fs {
		dst = le.AppendUint32(dst, math.Float32bits(f))
	}
	return dst
}

func getFloat(src []byte, i int) float32 {
	return math.Float32frombits(le.Uint32(src[i*4:]))
}

func appendVertex(dst []byte, v Vertex) []byte {
	return putFloats(dst, v.Position[0], v.Position[1], v.Position[2], v.UV[0], v.UV[1])
}

func readVertex(src []byte, f int) Vertex {
	return Vertex{
		Position: mgl32.Vec3{getFloat(src, f), getFloat(src, f+1), getFloat(src, f+2)},
		UV:       mgl32.Vec2{getFloat(src, f+3), getFloat(src, f+4)},
	}
}

// AppendBinary appends the 80-byte record form of t to dst.
func (t ChunkTriangle) AppendBinary(dst []byte) []byte {
	for _, v := range t.Verts {
		dst = appendVertex(dst, v)
	}
	return putFloats(dst, t.Normal[0], t.Normal[1], t.Normal[2], t.UV4[0], t.UV4[1])
}

// AppendBinary appends the 60-byte record form of t to dst.
func (t GrassTriangle) AppendBinary(dst []byte) []byte {
	for _, v := range t.Verts {
		dst = appendVertex(dst, v)
	}
	return dst
}

// DecodeChunkTriangles decodes packed 80-byte records.
func DecodeChunkTriangles(raw []byte) ([]ChunkTriangle, error) {
	if len(raw)%ChunkTriangleStride != 0 {
		return nil, fmt.Errorf("decode chunk triangles: %d bytes is not a multiple of %d", len(raw), ChunkTriangleStride)
	}
	out := make([]ChunkTriangle, len(raw)/ChunkTriangleStride)
	for i := range out {
		rec := raw[i*ChunkTriangleStride : (i+1)*ChunkTriangleStride]
		out[i] = ChunkTriangle{
			Verts:  [3]Vertex{readVertex(rec, 0), readVertex(rec, 5), readVertex(rec, 10)},
			Normal: mgl32.Vec3{getFloat(rec, 15), getFloat(rec, 16), getFloat(rec, 17)},
			UV4:    mgl32.Vec2{getFloat(rec, 18), getFloat(rec, 19)},
		}
	}
	return out, nil
}

// DecodeGrassTriangles decodes packed 60-byte records.
func DecodeGrassTriangles(raw []byte) ([]GrassTriangle, error) {
	if len(raw)%GrassTriangleStride != 0 {
		return nil, fmt.Errorf("decode grass triangles: %d bytes is not a multiple of %d", len(raw), GrassTriangleStride)
	}
	out := make([]GrassTriangle, len(raw)/GrassTriangleStride)
	for i := range out {
		rec := raw[i*GrassTriangleStride : (i+1)*GrassTriangleStride]
		out[i] = GrassTriangle{Verts: [3]Vertex{readVertex(rec, 0), readVertex(rec, 5), readVertex(rec, 10)}}
	}
	return out, nil
}

// ReadChunkTriangles performs the second readback phase: it reads exactly
// count records from buf and decodes them.
func ReadChunkTriangles(buf AppendBuffer, count int) ([]ChunkTriangle, error) {
	if count == 0 {
		return nil, nil
	}
	raw, err := buf.Read(count)
	if err != nil {
		return nil, err
	}
	return DecodeChunkTriangles(raw)
}
