package registry

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDsAreSequential(t *testing.T) {
	r := Default()
	require.Equal(t, 9, r.Len())

	for i, blk := range r.Blocks() {
		assert.Equal(t, int32(i+1), blk.ID, blk.Name)
	}

	id, err := r.IDByName(Grass)
	require.NoError(t, err)
	assert.Equal(t, int32(2), id)
}

func TestTextureOffsetsAccumulate(t *testing.T) {
	r := Default()

	want := 0
	for _, blk := range r.Blocks() {
		assert.Equal(t, want, blk.TextureOffset, blk.Name)
		maxFace := 0
		for _, f := range blk.FaceTextures {
			maxFace = max(maxFace, f)
		}
		want += maxFace + 1
	}
	assert.Equal(t, want, r.TextureCount())

	// Grass has three distinct textures, so Grass Foliage starts at 1+3.
	foliage, err := r.IDByName(GrassFoliage)
	require.NoError(t, err)
	blk, err := r.Block(foliage)
	require.NoError(t, err)
	assert.Equal(t, 4, blk.TextureOffset)
}

func TestTextureIndexesPerFace(t *testing.T) {
	r := Default()
	idx := r.TextureIndexes()
	require.Len(t, idx, r.Len()*NumFaces)

	// Grass faces {0,0,1,2,0,0} offset by Dirt's single texture.
	grass := idx[(2-1)*NumFaces : 2*NumFaces]
	assert.Equal(t, []int32{1, 1, 2, 3, 1, 1}, grass)
}

func TestCategoryLists(t *testing.T) {
	r := Default()
	foliage, _ := r.IDByName(GrassFoliage)

	assert.Equal(t, []int32{foliage}, r.TransparentIDs())
	assert.Equal(t, []int32{foliage}, r.NonSolidIDs())
	assert.Equal(t, []int32{foliage}, r.CustomMeshIDs())
	assert.True(t, r.IsTransparent(foliage))
	assert.True(t, r.IsCustomMesh(foliage))

	stone, _ := r.IDByName(Stone)
	assert.False(t, r.IsTransparent(stone))
	assert.False(t, r.IsTransparent(Air))

	assert.True(t, r.IsFoliage(foliage))
	assert.False(t, r.IsFoliage(stone))
	assert.False(t, r.IsFoliage(Air))
	assert.False(t, r.IsFoliage(99))
}

func TestNotFound(t *testing.T) {
	r := Default()

	_, err := r.IDByName("Obsidian")
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = r.Block(0)
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = r.Block(int32(r.Len() + 1))
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestBuilderFreezes(t *testing.T) {
	b := NewBuilder()
	_, err := b.Register(Definition{Name: "A", IsSolid: true})
	require.NoError(t, err)

	_, err = b.Register(Definition{Name: "A"})
	assert.True(t, errors.Is(err, ErrDuplicate))

	r := b.Build()
	_, err = b.Register(Definition{Name: "B"})
	assert.True(t, errors.Is(err, ErrFrozen))
	assert.Equal(t, 1, r.Len())
}

func TestAccessorsReturnCopies(t *testing.T) {
	r := Default()
	ids := r.TransparentIDs()
	ids[0] = 99
	assert.NotEqual(t, int32(99), r.TransparentIDs()[0])
}
