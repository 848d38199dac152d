package testbed

import (
	"context"

	"github.com/spaghettifunk/lumen/engine/renderer"
	"github.com/spaghettifunk/lumen/engine/renderer/buffers"
	"github.com/spaghettifunk/lumen/engine/renderer/materials"
	"github.com/spaghettifunk/lumen/engine/renderer/resource"
	"github.com/spaghettifunk/lumen/engine/renderer/scene"
	"github.com/spaghettifunk/lumen/engine/renderer/shaders"
)

var cameraCategory = renderer.Category{
	Name:        "Camera Settings",
	Description: "Settings for the virtual camera.",
}

var exposureProperty = renderer.NumberProperty("exposure", "Exposure", cameraCategory, 0.5, 5.0, 0.1,
	"The exposure of the virtual camera. Higher values let more light into the lens and create a brighter image.")

/**
 * @brief baseScene carries what every demo scene shares: the exposure
 * property, the FXAA post process and two resource owners. Resources made
 * by init live until Dispose; resources made by begin live until Destroy.
 */
type baseScene struct {
	resource.Base

	ctx      *renderer.SceneContext
	created  resource.Base
	mainView *scene.View
}

func (s *baseScene) init(ctx *renderer.SceneContext, name string) error {
	s.ctx = ctx
	s.Base = resource.Base{}
	s.Init(ctx.GPU.Resources, name, nil)

	// Preload common assets
	return ctx.Shaders.Preload(context.Background(), shaders.ProgramName{Vertex: "screenquad", Fragment: "pp-fxaa"})
}

// begin opens the owner of everything a Create call makes.
func (s *baseScene) begin() {
	s.created = resource.Base{}
	s.created.Init(s.ctx.GPU.Resources, "SceneContent", nil)
	s.Own(&s.created)
}

func (s *baseScene) Destroy() {
	s.created.Dispose()
	s.mainView = nil
}

func (s *baseScene) Tick(float64) {}

func (s *baseScene) UserInteract() {}

// postProcess creates a screen space material instance owned by the current
// content.
func (s *baseScene) postProcess(fragment string, fields []buffers.Field) (*materials.Instance, error) {
	p, err := s.ctx.Shaders.Program("screenquad", fragment)
	if err != nil {
		return nil, err
	}
	m, err := newMaterial(s.ctx, p, fields, scene.PostProcessSlots)
	if err != nil {
		return nil, err
	}
	s.created.Own(m)
	return m.CreateInstance(nil)
}

// newMaterial builds a material that owns p, so disposing it also deletes
// the linked program.
func newMaterial(ctx *renderer.SceneContext, p *shaders.Program, fields []buffers.Field, slots []materials.TextureSlot) (*materials.Material, error) {
	m, err := materials.New(ctx.GPU, ctx.State, p, fields, slots)
	if err != nil {
		p.Dispose()
		return nil, err
	}
	m.Own(p)
	return m, nil
}

// material builds a material from a definition file under materials/.
func (s *baseScene) material(path string) (*materials.Material, error) {
	config, err := s.ctx.Assets.Material(path)
	if err != nil {
		return nil, err
	}
	fields, err := config.BufferFields()
	if err != nil {
		return nil, err
	}
	p, err := s.ctx.Shaders.Program(config.Vertex, config.Fragment)
	if err != nil {
		return nil, err
	}
	m, err := newMaterial(s.ctx, p, fields, config.TextureSlots())
	if err != nil {
		return nil, err
	}
	return resource.Owned(&s.Base, m), nil
}

func (s *baseScene) applyExposure(values renderer.PropertyValues) {
	if s.mainView != nil && s.mainView.ToneMapperParams != nil {
		s.mainView.ToneMapperParams.SetFloat("exposure", values.Number(exposureProperty.Key))
	}
}
