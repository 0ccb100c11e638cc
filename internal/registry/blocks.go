package registry

import (
	"errors"
	"fmt"
)

// Face order used by every per-face table in the engine.
const (
	FaceFront = iota
	FaceBack
	FaceTop
	FaceBottom
	FaceLeft
	FaceRight
	NumFaces
)

// Air is the reserved empty voxel ID.
const Air int32 = 0

// Block categories.
const (
	CategoryBlock   = 0
	CategoryFoliage = 1
)

var (
	ErrNotFound  = errors.New("block not registered")
	ErrDuplicate = errors.New("block already registered")
	ErrFrozen    = errors.New("registry already built")
)

// Definition is the input to Builder.Register.
type Definition struct {
	Name          string
	Description   string
	Category      int
	IsSolid       bool
	IsTransparent bool
	FaceTextures  [NumFaces]int
	CustomMeshID  int
}

// Block is an immutable registry entry.
type Block struct {
	ID            int32
	Name          string
	Description   string
	Category      int
	IsSolid       bool
	IsTransparent bool
	// TextureOffset is the atlas cursor at registration time.
	TextureOffset int
	FaceTextures  [NumFaces]int
	CustomMeshID  int
}

// Builder collects block definitions. It is single-use: once Build is called
// further registrations fail.
type Builder struct {
	blocks       []Block
	names        map[string]int32
	textureCount int
	frozen       bool

	textureIndexes []int32
	transparentIDs []int32
	nonSolidIDs    []int32
	customMeshIDs  []int32
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{names: make(map[string]int32)}
}

// Register assigns the next sequential ID to def and returns it.
func (b *Builder) Register(def Definition) (int32, error) {
	if b.frozen {
		return 0, fmt.Errorf("register %q: %w", def.Name, ErrFrozen)
	}
	if _, exists := b.names[def.Name]; exists {
		return 0, fmt.Errorf("register %q: %w", def.Name, ErrDuplicate)
	}

	id := int32(len(b.blocks) + 1)
	blk := Block{
		ID:            id,
		Name:          def.Name,
		Description:   def.Description,
		Category:      def.Category,
		IsSolid:       def.IsSolid,
		IsTransparent: def.IsTransparent,
		TextureOffset: b.textureCount,
		FaceTextures:  def.FaceTextures,
		CustomMeshID:  def.CustomMeshID,
	}

	maxFace := 0
	for _, t := range def.FaceTextures {
		b.textureIndexes = append(b.textureIndexes, int32(t+b.textureCount))
		maxFace = max(maxFace, t)
	}
	if def.IsTransparent {
		b.transparentIDs = append(b.transparentIDs, id)
	}
	if !def.IsSolid {
		b.nonSolidIDs = append(b.nonSolidIDs, id)
	}
	if def.CustomMeshID != 0 {
		b.customMeshIDs = append(b.customMeshIDs, id)
	}
	b.textureCount += maxFace + 1

	b.blocks = append(b.blocks, blk)
	b.names[def.Name] = id
	return id, nil
}

// MustRegister is Register for static catalogs; it panics on error.
func (b *Builder) MustRegister(def Definition) int32 {
	id, err := b.Register(def)
	if err != nil {
		panic(err)
	}
	return id
}

// Build freezes the builder and returns the registry snapshot.
func (b *Builder) Build() *Registry {
	b.frozen = true
	r := &Registry{
		blocks:         append([]Block(nil), b.blocks...),
		names:          make(map[string]int32, len(b.names)),
		textureCount:   b.textureCount,
		textureIndexes: append([]int32(nil), b.textureIndexes...),
		transparentIDs: append([]int32(nil), b.transparentIDs...),
		nonSolidIDs:    append([]int32(nil), b.nonSolidIDs...),
		customMeshIDs:  append([]int32(nil), b.customMeshIDs...),
		transparent:    make(map[int32]bool, len(b.transparentIDs)),
		customMesh:     make(map[int32]bool, len(b.customMeshIDs)),
	}
	for k, v := range b.names {
		r.names[k] = v
	}
	for _, id := range b.transparentIDs {
		r.transparent[id] = true
	}
	for _, id := range b.customMeshIDs {
		r.customMesh[id] = true
	}
	return r
}
