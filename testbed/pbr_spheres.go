package testbed

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/lumen/engine/math"
	"github.com/spaghettifunk/lumen/engine/renderer"
	"github.com/spaghettifunk/lumen/engine/renderer/materials"
	"github.com/spaghettifunk/lumen/engine/renderer/meshes"
	"github.com/spaghettifunk/lumen/engine/renderer/resource"
	"github.com/spaghettifunk/lumen/engine/renderer/scene"
)

const (
	PBRTexturelessMaterialPath = "materials/pbr-textureless.toml"

	sphereGridSize     = 5
	sphereSubdivisions = 16
)

var sphereMaterialCategory = renderer.Category{
	Name:        "Material Settings",
	Description: "Settings for the PBR materials.",
}

var pbrSpheresProperties = []renderer.Property{
	exposureProperty,
	renderer.ColourProperty("sphereColour", "Sphere Colour", sphereMaterialCategory, true, false,
		"The colour of the sphere material."),
}

// PBRSpheresScene shows a grid of spheres going from smooth to rough along
// x and from dielectric to metal along y.
type PBRSpheresScene struct {
	baseScene

	material  *materials.Material
	sphere    *meshes.Mesh
	instances []*materials.Instance
}

func NewPBRSpheresScene() *PBRSpheresScene {
	return &PBRSpheresScene{}
}

func (s *PBRSpheresScene) Description() renderer.SceneDescription {
	return renderer.SceneDescription{
		Name:        "PBR Spheres",
		Description: "An array of spheres with differing values of roughness and metallic to demonstrate PBR lighting.",
	}
}

func (s *PBRSpheresScene) Init(ctx *renderer.SceneContext) error {
	if err := s.init(ctx, "PBRSpheresScene"); err != nil {
		return err
	}
	m, err := s.material(PBRTexturelessMaterialPath)
	if err != nil {
		return err
	}
	s.material = m

	s.sphere = resource.Owned(&s.Base, meshes.NewSphere(ctx.GPU, sphereSubdivisions))
	s.sphere.CreateRenderData()
	return nil
}

func (s *PBRSpheresScene) Create() error {
	s.begin()
	fxaa, err := s.postProcess("pp-fxaa", nil)
	if err != nil {
		return err
	}
	s.mainView, err = s.ctx.SceneRenderer.AddView(s.ctx.Camera, s.ctx.MainViewport, nil, scene.ViewProps{
		HDR:              true,
		DrawEnvMap:       true,
		LDRPostProcesses: []*materials.Instance{fxaa},
	})
	if err != nil {
		return err
	}

	s.instances = s.instances[:0]
	for i := 0; i < sphereGridSize; i++ {
		for j := 0; j < sphereGridSize; j++ {
			inst, err := s.material.CreateInstance(map[string]any{
				"materialBaseColor": mgl32.Vec3{1.0, 0.1, 0.1},
				"materialRoughness": SphereRoughness(i),
				"materialMetallic":  SphereMetallic(j),
			})
			if err != nil {
				return err
			}
			s.instances = append(s.instances, inst)

			obj, err := s.ctx.SceneRenderer.AddObject(s.sphere, 0, inst, scene.ObjectProps{DrawFlags: 1})
			if err != nil {
				return err
			}
			t := math.NewTransform()
			t.Position = mgl32.Vec3{float32(i - 2), float32(j - 2), 0}
			t.Scale = mgl32.Vec3{0.4, 0.4, 0.4}
			s.ctx.SceneRenderer.UpdateObjectTransform(obj, t)
		}
	}
	return nil
}

// SphereRoughness keeps the smoothest sphere away from a perfect mirror.
func SphereRoughness(i int) float32 {
	return 0.01 + float32(i)/float32(sphereGridSize-1)*0.98
}

func SphereMetallic(j int) float32 {
	return float32(j) / float32(sphereGridSize-1)
}

func (s *PBRSpheresScene) Destroy() {
	s.baseScene.Destroy()
	for _, inst := range s.instances {
		inst.Dispose()
	}
	s.instances = nil
}

func (s *PBRSpheresScene) Instances() []*materials.Instance {
	return s.instances
}

func (s *PBRSpheresScene) PropertyDefinitions() []renderer.Property {
	return pbrSpheresProperties
}

func (s *PBRSpheresScene) DefaultProperties() renderer.PropertyValues {
	return renderer.PropertyValues{
		"exposure":     float32(2.0),
		"sphereColour": mgl32.Vec4{1.0, 0.1, 0.1, 1.0},
	}
}

func (s *PBRSpheresScene) ApplyProperties(values renderer.PropertyValues) {
	s.applyExposure(values)
	colour := values.Colour("sphereColour").Vec3()
	for _, inst := range s.instances {
		inst.Params().SetVec3("materialBaseColor", colour)
	}
}
