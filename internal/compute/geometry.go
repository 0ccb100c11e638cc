package compute

import "github.com/go-gl/mathgl/mgl32"

// Unit cube corners.
var VoxelVerts = [8]mgl32.Vec3{
	{0, 0, 0},
	{1, 0, 0},
	{1, 1, 0},
	{0, 1, 0},
	{0, 0, 1},
	{1, 0, 1},
	{1, 1, 1},
	{0, 1, 1},
}

// VoxelFaces lists the four corners of each face in registry face order
// (front -Z, back +Z, top, bottom, left -X, right +X). A quad q becomes the
// triangles (q0,q1,q2) and (q2,q1,q3).
var VoxelFaces = [6][4]int{
	{0, 3, 1, 2},
	{5, 6, 4, 7},
	{3, 7, 2, 6},
	{1, 5, 0, 4},
	{4, 7, 0, 3},
	{1, 2, 5, 6},
}

// FaceNormals are the outward normals in face order.
var FaceNormals = [6]mgl32.Vec3{
	{0, 0, -1},
	{0, 0, 1},
	{0, 1, 0},
	{0, -1, 0},
	{-1, 0, 0},
	{1, 0, 0},
}

// FaceChecks are the voxel offsets probed to decide face visibility.
var FaceChecks = [6][3]int{
	{0, 0, -1},
	{0, 0, 1},
	{0, 1, 0},
	{0, -1, 0},
	{-1, 0, 0},
	{1, 0, 0},
}

// QuadUVs are the uv coordinates of the four quad corners.
var QuadUVs = [4]mgl32.Vec2{
	{0, 0},
	{0, 1},
	{1, 0},
	{1, 1},
}

// QuadTriangles maps the two triangles of a face onto quad corners.
var QuadTriangles = [2][3]int{
	{0, 1, 2},
	{2, 1, 3},
}

// MaxTrianglesPerVoxel is the meshing capacity heuristic: six faces, two
// triangles each.
const MaxTrianglesPerVoxel = 12

// Hash32 is the integer hash shared by the kernels for per-blade jitter.
func Hash32(x uint32) uint32 {
	x ^= x >> 16
	x *= 0x7feb352d
	x ^= x >> 15
	x *= 0x846ca68b
	x ^= x >> 16
	return x
}

// Unit maps a hash to [0,1).
func Unit(h uint32) float32 {
	return float32(h&0xffffff) / float32(1<<24)
}
