package registry

// Names of the reference catalog.
const (
	Dirt         = "Dirt"
	Grass        = "Grass"
	GrassFoliage = "Grass Foliage"
	Stone        = "Stone"
	Basalt       = "Basalt"
	Marble       = "Marble"
	BlackMarble  = "Black Marble"
	Chalk        = "Chalk"
	Sand         = "Sand"
)

// RegisterDefaults adds the reference catalog to b. Face textures are listed
// front, back, top, bottom, left, right.
func RegisterDefaults(b *Builder) error {
	defs := []Definition{
		{Name: Dirt, Description: "It's mushy.... and brown", IsSolid: true},
		{Name: Grass, Description: "Dirt with a healthy green coating", IsSolid: true,
			FaceTextures: [NumFaces]int{0, 0, 1, 2, 0, 0}},
		{Name: GrassFoliage, Description: "Grass that grows on top of grass", Category: CategoryFoliage,
			IsTransparent: true, CustomMeshID: 1},
		{Name: Stone, Description: "A hard, mineral based material", IsSolid: true},
		{Name: Basalt, Description: "A fine grain volcanic rock", IsSolid: true},
		{Name: Marble, Description: "A crystalline form of limestone", IsSolid: true},
		{Name: BlackMarble, Description: "A crystalline form of limestone", IsSolid: true},
		{Name: Chalk, Description: "A crumbly limestone composition", IsSolid: true},
		{Name: Sand, Description: "Rock crushed by nature", IsSolid: true},
	}
	for _, def := range defs {
		if _, err := b.Register(def); err != nil {
			return err
		}
	}
	return nil
}

// Default builds the reference catalog.
func Default() *Registry {
	b := NewBuilder()
	if err := RegisterDefaults(b); err != nil {
		// static table, cannot collide
		panic(err)
	}
	return b.Build()
}
