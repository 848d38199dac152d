package testbed

import (
	gomath "math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/lumen/engine/math"
	"github.com/spaghettifunk/lumen/engine/renderer"
	"github.com/spaghettifunk/lumen/engine/renderer/gpu"
	"github.com/spaghettifunk/lumen/engine/renderer/materials"
	"github.com/spaghettifunk/lumen/engine/renderer/meshes"
	"github.com/spaghettifunk/lumen/engine/renderer/resource"
	"github.com/spaghettifunk/lumen/engine/renderer/scene"
	"github.com/spaghettifunk/lumen/engine/renderer/state"
	"github.com/spaghettifunk/lumen/engine/renderer/textures"
)

const (
	CrystalMaterialPath   = "materials/crystal.toml"
	DepthOnlyMaterialPath = "materials/depth-only.toml"
	VignetteMaterialPath  = "materials/pp-vignette.toml"
	CrystalMeshPath       = "meshes/LargeCrystal.obj"
	crystalMeshScale      = 0.01

	// Crystal objects are drawn by the main view, their back faces by the
	// depth pre-pass.
	mainPassFlag     uint32 = 1
	depthPrePassFlag uint32 = 2

	// CrystalSpin is the rotation speed in radians per second.
	CrystalSpin = 0.6 * gomath.Pi
)

// crystalTextures maps material slots to their image under textures/.
var crystalTextures = []struct{ slot, path string }{
	{"baseColor", "textures/LargeCrystal_basecolor.png"},
	{"normalMap", "textures/LargeCrystal_normal.png"},
	{"materialMap", "textures/LargeCrystal_material.png"},
	{"edgeMap", "textures/LargeCrystal_edge.png"},
}

var crystalMaterialCategory = renderer.Category{
	Name:        "Material Settings",
	Description: "Settings for the crystal material.",
}

var crystalProperties = []renderer.Property{
	exposureProperty,
	renderer.ColourProperty("volumeColour", "Crystal Colour", crystalMaterialCategory, true, false,
		"The colour of the translucent crystal material. This affects how light is transported through the material."),
	renderer.NumberProperty("lightBrightness", "Light Brightness", crystalMaterialCategory, 0, 5000, 50,
		"The brightness of the point light inside the crystal."),
	renderer.NumberProperty("absorptionValue", "Coefficient of Absorption", crystalMaterialCategory, 0, 1, 0.01,
		"The proportion of light that is absorbed as it travels through the material."),
	renderer.NumberProperty("baseScatteringValue", "Coefficient of Scattering", crystalMaterialCategory, 0.01, 0.99, 0.01,
		"The degree to which light is scattered as it travels through the material."),
}

/**
 * @brief CrystalScene renders a self illuminated crystal that refracts the
 * environment. A depth pre-pass with front face culling records the back
 * side depth the crystal shader marches towards.
 */
type CrystalScene struct {
	baseScene

	mesh      *meshes.Mesh
	instance  *materials.Instance
	depthOnly *materials.Material

	prePassRT    *textures.RenderTarget
	prePassDepth *textures.Texture2D

	transform   *math.Transform
	object      *scene.Object
	depthObject *scene.Object
	depthInst   *materials.Instance
	rotating    bool
	yaw         float32
}

func NewCrystalScene() *CrystalScene {
	return &CrystalScene{}
}

func (s *CrystalScene) Description() renderer.SceneDescription {
	return renderer.SceneDescription{
		Name: "Crystal",
		Description: "A self-illuminated crystal object that reflects and refracts light from the environment " +
			"and simulates the scattering of light as it passes through the material.",
	}
}

func (s *CrystalScene) Init(ctx *renderer.SceneContext) error {
	if err := s.init(ctx, "CrystalScene"); err != nil {
		return err
	}

	crystal, err := s.material(CrystalMaterialPath)
	if err != nil {
		return err
	}
	if s.depthOnly, err = s.material(DepthOnlyMaterialPath); err != nil {
		return err
	}

	builder, err := ctx.Assets.Mesh(CrystalMeshPath, crystalMeshScale)
	if err != nil {
		return err
	}
	s.mesh = resource.Owned(&s.Base, builder.Build(ctx.GPU))
	s.mesh.CreateRenderData()

	if s.instance, err = crystal.CreateInstance(nil); err != nil {
		return err
	}
	for _, t := range crystalTextures {
		img, err := ctx.Assets.Image(t.path)
		if err != nil {
			return err
		}
		tex := resource.Owned(&s.Base, textures.NewTexture2DFromImage(ctx.GPU, img, textures.Options{
			Wrap:    gpu.WrapRepeat,
			Filter:  gpu.FilterBilinear,
			Mipmaps: true,
		}))
		if err := s.instance.SetTexture(t.slot, tex); err != nil {
			return err
		}
	}

	// Setup depth prepass
	vp := *ctx.MainViewport
	prePassOptions := textures.Options{Wrap: gpu.WrapClamp, Filter: gpu.FilterNearest}
	prePassOptions.Format = gpu.FormatRGBA8
	color := resource.Owned(&s.Base, textures.NewTexture2D(ctx.GPU, vp.W, vp.H, prePassOptions))
	prePassOptions.Format = gpu.FormatDepth24
	s.prePassDepth = resource.Owned(&s.Base, textures.NewTexture2D(ctx.GPU, vp.W, vp.H, prePassOptions))
	rt, err := textures.NewRenderTarget(ctx.GPU,
		textures.ColorAttachment(0, color),
		textures.DepthAttachment(s.prePassDepth))
	if err != nil {
		return err
	}
	s.prePassRT = resource.Owned(&s.Base, rt)
	if err := s.instance.SetTexture("depthPrePass", s.prePassDepth); err != nil {
		return err
	}

	s.transform = math.NewTransform()
	s.transform.Position = mgl32.Vec3{0, -2, 0}
	s.transform.Scale = mgl32.Vec3{1.2, 1.2, 1.2}
	s.yaw = 0
	return nil
}

func (s *CrystalScene) Create() error {
	s.begin()
	s.rotating = true

	_, err := s.ctx.SceneRenderer.AddView(s.ctx.Camera, s.ctx.MainViewport, s.prePassRT, scene.ViewProps{
		// back side depths of the crystal
		CullFaceOverride: state.CullFront,
		DrawFlags:        depthPrePassFlag,
	})
	if err != nil {
		return err
	}

	fxaa, err := s.postProcess("pp-fxaa", nil)
	if err != nil {
		return err
	}
	vignetteConfig, err := s.ctx.Assets.Material(VignetteMaterialPath)
	if err != nil {
		return err
	}
	vignetteFields, err := vignetteConfig.BufferFields()
	if err != nil {
		return err
	}
	vignette, err := s.postProcess(vignetteConfig.Fragment, vignetteFields)
	if err != nil {
		return err
	}
	s.mainView, err = s.ctx.SceneRenderer.AddView(s.ctx.Camera, s.ctx.MainViewport, nil, scene.ViewProps{
		HDR:              true,
		DrawEnvMap:       true,
		DrawFlags:        mainPassFlag,
		LDRPostProcesses: []*materials.Instance{fxaa, vignette},
	})
	if err != nil {
		return err
	}

	if s.object, err = s.ctx.SceneRenderer.AddObject(s.mesh, 0, s.instance, scene.ObjectProps{DrawFlags: mainPassFlag}); err != nil {
		return err
	}
	if s.depthInst, err = s.depthOnly.CreateInstance(nil); err != nil {
		return err
	}
	if s.depthObject, err = s.ctx.SceneRenderer.AddObject(s.mesh, 0, s.depthInst, scene.ObjectProps{DrawFlags: depthPrePassFlag}); err != nil {
		return err
	}
	s.updateTransforms()
	return nil
}

func (s *CrystalScene) Destroy() {
	s.baseScene.Destroy()
	if s.depthInst != nil {
		s.depthInst.Dispose()
	}
	s.object, s.depthObject, s.depthInst = nil, nil, nil
}

func (s *CrystalScene) UserInteract() {
	s.rotating = false
}

func (s *CrystalScene) Rotating() bool {
	return s.rotating
}

func (s *CrystalScene) Tick(dt float64) {
	if !s.rotating {
		return
	}
	s.yaw += float32(dt * CrystalSpin)
	s.transform.Rotation = mgl32.QuatRotate(s.yaw, mgl32.Vec3{0, 1, 0})
	s.updateTransforms()
}

func (s *CrystalScene) updateTransforms() {
	if s.object != nil {
		s.ctx.SceneRenderer.UpdateObjectTransform(s.object, s.transform)
	}
	if s.depthObject != nil {
		s.ctx.SceneRenderer.UpdateObjectTransform(s.depthObject, s.transform)
	}
}

func (s *CrystalScene) Material() *materials.Instance {
	return s.instance
}

func (s *CrystalScene) PropertyDefinitions() []renderer.Property {
	return crystalProperties
}

func (s *CrystalScene) DefaultProperties() renderer.PropertyValues {
	return renderer.PropertyValues{
		"exposure":            float32(2.0),
		"volumeColour":        mgl32.Vec4{0.92, 0.4, 0.92, 1.0},
		"lightBrightness":     float32(1300),
		"absorptionValue":     float32(0.1),
		"baseScatteringValue": float32(0.58),
	}
}

func (s *CrystalScene) ApplyProperties(values renderer.PropertyValues) {
	s.applyExposure(values)
	if s.instance == nil {
		return
	}
	params := s.instance.Params()
	params.SetVec3("volumeColour", values.Colour("volumeColour").Vec3())
	params.SetFloat("lightBrightness", values.Number("lightBrightness"))
	params.SetFloat("absorptionValue", values.Number("absorptionValue"))
	params.SetFloat("baseScatteringValue", values.Number("baseScatteringValue"))
}
