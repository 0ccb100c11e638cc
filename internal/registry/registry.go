package registry

import "fmt"

// Registry is the read-only block catalog shared by every chunk and meshing
// dispatch. It is safe for concurrent use.
type Registry struct {
	blocks       []Block
	names        map[string]int32
	textureCount int

	textureIndexes []int32
	transparentIDs []int32
	nonSolidIDs    []int32
	customMeshIDs  []int32

	transparent map[int32]bool
	customMesh  map[int32]bool
}

// Len returns the number of registered blocks (air excluded).
func (r *Registry) Len() int { return len(r.blocks) }

// IDByName looks up a block ID by its registered name.
func (r *Registry) IDByName(name string) (int32, error) {
	id, ok := r.names[name]
	if !ok {
		return 0, fmt.Errorf("block %q: %w", name, ErrNotFound)
	}
	return id, nil
}

// Block looks up a block by ID.
func (r *Registry) Block(id int32) (Block, error) {
	if id < 1 || int(id) > len(r.blocks) {
		return Block{}, fmt.Errorf("block id %d: %w", id, ErrNotFound)
	}
	return r.blocks[id-1], nil
}

// Blocks returns every block in ID order.
func (r *Registry) Blocks() []Block {
	return append([]Block(nil), r.blocks...)
}

// IsTransparent reports whether id is a registered transparent block.
func (r *Registry) IsTransparent(id int32) bool { return r.transparent[id] }

// IsCustomMesh reports whether id is rendered by something other than cube faces.
func (r *Registry) IsCustomMesh(id int32) bool { return r.customMesh[id] }

// TextureCount is the depth of the texture array the face indexes point into.
func (r *Registry) TextureCount() int { return r.textureCount }

// TextureIndexes returns the per-face atlas indexes, six per block in ID
// order: entry (id-1)*6+face.
func (r *Registry) TextureIndexes() []int32 { return append([]int32(nil), r.textureIndexes...) }

func (r *Registry) TransparentIDs() []int32 { return append([]int32(nil), r.transparentIDs...) }

func (r *Registry) NonSolidIDs() []int32 { return append([]int32(nil), r.nonSolidIDs...) }

func (r *Registry) CustomMeshIDs() []int32 { return append([]int32(nil), r.customMeshIDs...) }

// IsFoliage reports whether id belongs to the foliage category, the blocks
// the grass layer grows from.
func (r *Registry) IsFoliage(id int32) bool {
	if id < 1 || int(id) > len(r.blocks) {
		return false
	}
	return r.blocks[id-1].Category == CategoryFoliage
}
