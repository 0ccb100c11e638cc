// Package render is the boundary between the engine and whatever draws it.
package render

import (
	"voxgrass/internal/compute"
	"voxgrass/internal/meshing"
)

// Object is a named scene node carrying a chunk mesh.
type Object interface {
	Name() string
	SetMesh(m *meshing.Mesh)
	Mesh() *meshing.Mesh
	Destroy()
}

type Scene interface {
	NewObject(name string) Object
	// DrawProceduralIndirect draws the triangles in buf with three vertices
	// per instance using args. lod is passed through for materials that
	// widen blades as density drops.
	DrawProceduralIndirect(bounds meshing.Bounds, buf compute.AppendBuffer, args compute.ArgsBuffer, lod int)
}
