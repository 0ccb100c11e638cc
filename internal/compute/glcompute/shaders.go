package glcompute

import (
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"voxgrass/internal/compute"
)

// Work group sizes; must match the local_size declarations below.
var (
	mapGroupSize   = [3]int{8, 4, 8}
	meshGroupSize  = [3]int{8, 4, 8}
	grassGroupSize = [3]int{128, 1, 1}
)

// Storage and counter bindings.
const (
	mapVoxelsBinding = 0

	meshVoxelsBinding      = 0
	meshNeighborsBinding   = 1
	meshLookupBinding      = 2
	meshOpaqueBinding      = 3
	meshTransparentBinding = 4
	meshOpaqueCounter      = 0
	meshTransparentCounter = 1

	grassPositionsBinding = 0
	grassOutBinding       = 1
	grassCounter          = 0
)

const hashGLSL = `
uint hash32(uint x) {
	x ^= x >> 16;
	x *= 0x7feb352du;
	x ^= x >> 15;
	x *= 0x846ca68bu;
	x ^= x >> 16;
	return x;
}

float unit(uint h) {
	return float(h & 0xffffffu) / 16777216.0;
}
`

func glslVec3Array(name string, vs []mgl32.Vec3) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = fmt.Sprintf("vec3(%g, %g, %g)", v[0], v[1], v[2])
	}
	return fmt.Sprintf("const vec3 %s[%d] = vec3[%d](%s);\n", name, len(vs), len(vs), strings.Join(parts, ", "))
}

func glslVec2Array(name string, vs []mgl32.Vec2) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = fmt.Sprintf("vec2(%g, %g)", v[0], v[1])
	}
	return fmt.Sprintf("const vec2 %s[%d] = vec2[%d](%s);\n", name, len(vs), len(vs), strings.Join(parts, ", "))
}

func glslIntArray(name string, vs []int) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = fmt.Sprint(v)
	}
	return fmt.Sprintf("const int %s[%d] = int[%d](%s);\n", name, len(vs), len(vs), strings.Join(parts, ", "))
}

func localSize(s [3]int) string {
	return fmt.Sprintf("layout(local_size_x = %d, local_size_y = %d, local_size_z = %d) in;\n", s[0], s[1], s[2])
}

// geometryGLSL renders the cube tables shared with the software kernel.
func geometryGLSL() string {
	var faces, checks, tris []int
	for _, f := range compute.VoxelFaces {
		faces = append(faces, f[:]...)
	}
	for _, c := range compute.FaceChecks {
		checks = append(checks, c[:]...)
	}
	for _, t := range compute.QuadTriangles {
		tris = append(tris, t[:]...)
	}

	var b strings.Builder
	b.WriteString(glslVec3Array("voxelVerts", compute.VoxelVerts[:]))
	b.WriteString(glslIntArray("voxelFaces", faces))
	b.WriteString(glslVec3Array("faceNormals", compute.FaceNormals[:]))
	b.WriteString(glslIntArray("faceChecks", checks))
	b.WriteString(glslVec2Array("quadUVs", compute.QuadUVs[:]))
	b.WriteString(glslIntArray("quadTris", tris))
	return b.String()
}

func mapShaderSource() string {
	return "#version 430\n" + localSize(mapGroupSize) + fmt.Sprintf(`
layout(std430, binding = %d) writeonly buffer Voxels { int voxels[]; };
`, mapVoxelsBinding) + `
uniform ivec3 mapSize;
uniform vec2 offset;
uniform int groundBlock;
uniform int groundHeight;
uniform int secondaryBlock;
uniform float secondaryThreshold;
uniform float secondaryScale;
uniform ivec2 secondaryOffset;
uniform int undergroundBlock;
uniform ivec3 rockTypes;
uniform float rockThreshold;
uniform float rockScale;
uniform ivec2 rockOffset;
uniform int foliageBlock;
uniform float foliageThreshold;
uniform float foliageScale;
` + hashGLSL + `
float lattice(ivec3 p) {
	return unit(hash32(uint(p.x) * 73856093u ^ uint(p.y) * 19349663u ^ uint(p.z) * 83492791u));
}

float valueNoise(vec3 p) {
	ivec3 i = ivec3(floor(p));
	vec3 f = fract(p);
	vec3 u = f * f * (3.0 - 2.0 * f);

	float x00 = mix(lattice(i), lattice(i + ivec3(1, 0, 0)), u.x);
	float x10 = mix(lattice(i + ivec3(0, 1, 0)), lattice(i + ivec3(1, 1, 0)), u.x);
	float x01 = mix(lattice(i + ivec3(0, 0, 1)), lattice(i + ivec3(1, 0, 1)), u.x);
	float x11 = mix(lattice(i + ivec3(0, 1, 1)), lattice(i + ivec3(1, 1, 1)), u.x);
	return mix(mix(x00, x10, u.y), mix(x01, x11, u.y), u.z);
}

float noise2(int x, int z, float scale, ivec2 off) {
	vec2 p = (vec2(x, z) + offset + vec2(off)) * scale;
	return valueNoise(vec3(p.x, 0.0, p.y));
}

float noise3(ivec3 c, float scale, ivec2 off) {
	vec3 p = vec3(float(c.x) + offset.x + float(off.x), float(c.y), float(c.z) + offset.y + float(off.y)) * scale;
	return valueNoise(p);
}

int surface(int x, int z) {
	if (secondaryBlock != 0 && noise2(x, z, secondaryScale, secondaryOffset) > secondaryThreshold) {
		return secondaryBlock;
	}
	return groundBlock;
}

int rock(ivec3 c) {
	int types[3];
	int n = 0;
	for (int i = 0; i < 3; i++) {
		if (rockTypes[i] != 0) {
			types[n] = rockTypes[i];
			n++;
		}
	}
	if (n == 0 || noise3(c, rockScale, rockOffset) <= rockThreshold) {
		return 0;
	}
	float band = noise2(c.x + 7919, c.z, rockScale, rockOffset);
	return types[clamp(int(band * float(n)), 0, n - 1)];
}

int voxel(ivec3 c) {
	if (c.y == groundHeight) {
		return surface(c.x, c.z);
	}
	if (c.y < groundHeight) {
		int r = rock(c);
		return r != 0 ? r : undergroundBlock;
	}
	if (c.y == groundHeight + 1 && foliageBlock != 0 && groundBlock != 0 && surface(c.x, c.z) == groundBlock &&
		noise2(c.x, c.z, foliageScale, ivec2(0)) > foliageThreshold) {
		return foliageBlock;
	}
	return 0;
}

void main() {
	ivec3 c = ivec3(gl_GlobalInvocationID);
	if (any(greaterThanEqual(c, mapSize))) {
		return;
	}
	voxels[c.x + mapSize.x * (c.y + mapSize.y * c.z)] = voxel(c);
}
`
}

func meshShaderSource() string {
	return "#version 430\n" + localSize(meshGroupSize) + fmt.Sprintf(`
struct Triangle { float v[%d]; };

layout(std430, binding = %d) readonly buffer VoxelMap { int voxels[]; };
layout(std430, binding = %d) readonly buffer NeighborMaps { int neighbors[]; };
layout(std430, binding = %d) readonly buffer Lookup { int lookup[]; };
layout(std430, binding = %d) writeonly buffer Opaque { Triangle opaqueTris[]; };
layout(std430, binding = %d) writeonly buffer Transparent { Triangle transparentTris[]; };
layout(binding = %d, offset = 0) uniform atomic_uint opaqueCount;
layout(binding = %d, offset = 0) uniform atomic_uint transparentCount;
`, compute.ChunkTriangleStride/4,
		meshVoxelsBinding, meshNeighborsBinding, meshLookupBinding,
		meshOpaqueBinding, meshTransparentBinding,
		meshOpaqueCounter, meshTransparentCounter) + `
uniform ivec3 chunkSize;
uniform ivec3 chunkPos;
uniform int transparentIDCount;
uniform int customIDCount;
uniform int textureCount;
uniform uint opaqueCapacity;
uniform uint transparentCapacity;
` + geometryGLSL() + fmt.Sprintf(`
const int neighborFront = %d;
const int neighborBack = %d;
const int neighborLeft = %d;
const int neighborRight = %d;
`, compute.NeighborFront, compute.NeighborBack, compute.NeighborLeft, compute.NeighborRight) + `
bool inList(int id, int start, int count) {
	for (int i = 0; i < count; i++) {
		if (lookup[start + i] == id) {
			return true;
		}
	}
	return false;
}

bool isTransparent(int id) { return inList(id, 0, transparentIDCount); }
bool isCustom(int id) { return inList(id, transparentIDCount, customIDCount); }

int voxelAt(ivec3 p) {
	if (p.y < 0 || p.y >= chunkSize.y) {
		return 0;
	}
	int which = -1;
	if (p.x < 0) {
		which = neighborLeft;
		p.x += chunkSize.x;
	} else if (p.x >= chunkSize.x) {
		which = neighborRight;
		p.x -= chunkSize.x;
	} else if (p.z < 0) {
		which = neighborFront;
		p.z += chunkSize.z;
	} else if (p.z >= chunkSize.z) {
		which = neighborBack;
		p.z -= chunkSize.z;
	}
	int i = p.x + chunkSize.x * (p.y + chunkSize.y * p.z);
	if (which < 0) {
		return voxels[i];
	}
	return neighbors[which * chunkSize.x * chunkSize.y * chunkSize.z + i];
}

bool faceVisible(int self, int other) {
	if (other == 0 || isCustom(other)) {
		return true;
	}
	return isTransparent(other) && other != self;
}

float textureIndex(int id, int face) {
	int i = (id - 1) * 6 + face;
	if (i < 0 || i >= textureCount) {
		return 0.0;
	}
	return float(lookup[transparentIDCount + customIDCount + i]);
}

void emitFace(bool transparent, vec3 base, int face, float tex) {
	for (int t = 0; t < 2; t++) {
		uint slot = transparent ? atomicCounterIncrement(transparentCount) : atomicCounterIncrement(opaqueCount);
		if (slot >= (transparent ? transparentCapacity : opaqueCapacity)) {
			continue;
		}

		Triangle tri;
		for (int v = 0; v < 3; v++) {
			int q = quadTris[t * 3 + v];
			vec3 p = base + voxelVerts[voxelFaces[face * 4 + q]];
			tri.v[v * 5 + 0] = p.x;
			tri.v[v * 5 + 1] = p.y;
			tri.v[v * 5 + 2] = p.z;
			tri.v[v * 5 + 3] = quadUVs[q].x;
			tri.v[v * 5 + 4] = quadUVs[q].y;
		}
		vec3 n = faceNormals[face];
		tri.v[15] = n.x;
		tri.v[16] = n.y;
		tri.v[17] = n.z;
		tri.v[18] = tex;
		tri.v[19] = 0.0;

		if (transparent) {
			transparentTris[slot] = tri;
		} else {
			opaqueTris[slot] = tri;
		}
	}
}

void main() {
	ivec3 c = ivec3(gl_GlobalInvocationID);
	if (any(greaterThanEqual(c, chunkSize))) {
		return;
	}
	int id = voxels[c.x + chunkSize.x * (c.y + chunkSize.y * c.z)];
	if (id == 0 || isCustom(id)) {
		return;
	}

	bool transparent = isTransparent(id);
	vec3 base = vec3(chunkPos + c);
	for (int face = 0; face < 6; face++) {
		ivec3 check = ivec3(faceChecks[face * 3], faceChecks[face * 3 + 1], faceChecks[face * 3 + 2]);
		if (faceVisible(id, voxelAt(c + check))) {
			emitFace(transparent, base, face, textureIndex(id, face));
		}
	}
}
`
}

func grassShaderSource() string {
	return "#version 430\n" + localSize(grassGroupSize) + fmt.Sprintf(`
struct Blade { float v[%d]; };

layout(std430, binding = %d) readonly buffer Positions { int positions[]; };
layout(std430, binding = %d) writeonly buffer Blades { Blade blades[]; };
layout(binding = %d, offset = 0) uniform atomic_uint bladeCount;
`, compute.GrassTriangleStride/4, grassPositionsBinding, grassOutBinding, grassCounter) + `
uniform int positionCount;
uniform uint total;
uniform uint capacity;
uniform float width;
uniform float height;
uniform float curve;
uniform vec3 chunkPos;
` + hashGLSL + `
void writeVertex(inout Blade b, int v, vec3 p, vec2 uv) {
	b.v[v * 5 + 0] = p.x;
	b.v[v * 5 + 1] = p.y;
	b.v[v * 5 + 2] = p.z;
	b.v[v * 5 + 3] = uv.x;
	b.v[v * 5 + 4] = uv.y;
}

void main() {
	uint t = gl_GlobalInvocationID.x;
	if (t >= total) {
		return;
	}
	uint n = uint(positionCount);
	int tile = int(t % n);
	uint blade = t / n;
	ivec3 pos = ivec3(positions[tile * 3], positions[tile * 3 + 1], positions[tile * 3 + 2]);

	uint seed = uint(pos.x) * 73856093u ^ uint(pos.y) * 19349663u ^ uint(pos.z) * 83492791u ^ blade * 2654435761u;

	vec3 origin = chunkPos + vec3(pos) + vec3(unit(hash32(seed)), 0.0, unit(hash32(seed + 1u)));
	float angle = unit(hash32(seed + 2u)) * 6.283185307179586;
	vec3 dir = vec3(cos(angle), 0.0, sin(angle));
	vec3 bendDir = vec3(-dir.z, 0.0, dir.x);

	float h = height * (0.6 + 0.4 * unit(hash32(seed + 3u)));
	vec3 halfWidth = dir * (width / 2.0);
	vec3 tip = origin + vec3(0.0, h, 0.0) + bendDir * (curve * h * unit(hash32(seed + 4u)));

	// Blade t always goes to slot t; the counter only tallies writes.
	atomicCounterIncrement(bladeCount);
	if (t >= capacity) {
		return;
	}
	Blade b;
	writeVertex(b, 0, origin - halfWidth, vec2(0.0, 0.0));
	writeVertex(b, 1, origin + halfWidth, vec2(1.0, 0.0));
	writeVertex(b, 2, tip, vec2(0.5, 1.0));
	blades[t] = b;
}
`
}
