package render

import (
	"sync"

	"voxgrass/internal/compute"
	"voxgrass/internal/meshing"
)

// DrawCall is one recorded procedural draw.
type DrawCall struct {
	Bounds    meshing.Bounds
	Triangles compute.AppendBuffer
	Args      compute.DrawArgs
	LOD       int
}

// Headless records scene activity without drawing anything.
type Headless struct {
	mu        sync.Mutex
	objects   []*HeadlessObject
	draws     []DrawCall
	destroyed int
}

var _ Scene = (*Headless)(nil)

func NewHeadless() *Headless {
	return &Headless{}
}

type HeadlessObject struct {
	scene     *Headless
	name      string
	mesh      *meshing.Mesh
	meshSets  int
	destroyed bool
}

func (o *HeadlessObject) Name() string { return o.name }

func (o *HeadlessObject) SetMesh(m *meshing.Mesh) {
	o.scene.mu.Lock()
	defer o.scene.mu.Unlock()
	o.mesh = m
	o.meshSets++
}

func (o *HeadlessObject) Mesh() *meshing.Mesh {
	o.scene.mu.Lock()
	defer o.scene.mu.Unlock()
	return o.mesh
}

// MeshSets counts SetMesh calls.
func (o *HeadlessObject) MeshSets() int {
	o.scene.mu.Lock()
	defer o.scene.mu.Unlock()
	return o.meshSets
}

func (o *HeadlessObject) Destroyed() bool {
	o.scene.mu.Lock()
	defer o.scene.mu.Unlock()
	return o.destroyed
}

func (o *HeadlessObject) Destroy() {
	s := o.scene
	s.mu.Lock()
	defer s.mu.Unlock()
	if o.destroyed {
		return
	}
	o.destroyed = true
	o.mesh = nil
	for i, obj := range s.objects {
		if obj == o {
			s.objects = append(s.objects[:i], s.objects[i+1:]...)
			break
		}
	}
	s.destroyed++
}

func (h *Headless) NewObject(name string) Object {
	h.mu.Lock()
	defer h.mu.Unlock()
	o := &HeadlessObject{scene: h, name: name}
	h.objects = append(h.objects, o)
	return o
}

// DrawProceduralIndirect snapshots the args at draw time.
func (h *Headless) DrawProceduralIndirect(bounds meshing.Bounds, buf compute.AppendBuffer, args compute.ArgsBuffer, lod int) {
	a := args.Args()
	h.mu.Lock()
	defer h.mu.Unlock()
	h.draws = append(h.draws, DrawCall{Bounds: bounds, Triangles: buf, Args: a, LOD: lod})
}

// EndFrame returns the draws recorded since the previous call.
func (h *Headless) EndFrame() []DrawCall {
	h.mu.Lock()
	defer h.mu.Unlock()
	d := h.draws
	h.draws = nil
	return d
}

// Objects lists live objects in creation order.
func (h *Headless) Objects() []*HeadlessObject {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]*HeadlessObject(nil), h.objects...)
}

func (h *Headless) Object(name string) (*HeadlessObject, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, o := range h.objects {
		if o.name == name {
			return o, true
		}
	}
	return nil, false
}

// DestroyedCount counts Destroy calls that removed an object.
func (h *Headless) DestroyedCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.destroyed
}
