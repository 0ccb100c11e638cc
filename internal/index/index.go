// Package index converts between flat voxel array indices and 3D coordinates.
package index

// ToFlat converts local coordinates to a flat index: x + width*(y + height*z).
func ToFlat(x, y, z, width, height int) int {
	return x + width*(y+height*z)
}

// To3D is the inverse of ToFlat. Out-of-range indices are the caller's problem.
func To3D(i, width, height int) (x, y, z int) {
	z = i / (width * height)
	rem := i - z*width*height
	y = rem / width
	x = rem % width
	return x, y, z
}

// Volume returns the number of cells in a width x height x depth box.
func Volume(width, height, depth int) int {
	return width * height * depth
}

// InBounds reports whether (x,y,z) lies in [0,width)x[0,height)x[0,depth).
func InBounds(x, y, z, width, height, depth int) bool {
	return x >= 0 && x < width && y >= 0 && y < height && z >= 0 && z < depth
}
