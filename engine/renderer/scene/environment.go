package scene

import (
	"fmt"
	"slices"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/batch"
	"github.com/spaghettifunk/lumen/engine/renderer/buffers"
	"github.com/spaghettifunk/lumen/engine/renderer/components"
	"github.com/spaghettifunk/lumen/engine/renderer/gpu"
	"github.com/spaghettifunk/lumen/engine/renderer/materials"
	"github.com/spaghettifunk/lumen/engine/renderer/shaders"
	"github.com/spaghettifunk/lumen/engine/renderer/textures"
)

const (
	IrradianceFaceSize = 32
	BRDFLutSize        = 512

	irradianceSampleDelta = 0.025
)

// cubeFaceFrames is the outward normal and the screen axes of each cube
// face, in gpu.CubeFace order.
var cubeFaceFrames = [gpu.CubeFaceCount]struct {
	normal, tangentU, tangentV mgl32.Vec3
}{
	{mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, -1, 0}},
	{mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 0, 1}, mgl32.Vec3{0, -1, 0}},
	{mgl32.Vec3{0, 1, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, 1}},
	{mgl32.Vec3{0, -1, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -1}},
	{mgl32.Vec3{0, 0, 1}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, -1, 0}},
	{mgl32.Vec3{0, 0, -1}, mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, -1, 0}},
}

var faceFields = []buffers.Field{
	buffers.Float("faceNormal", 3),
	buffers.Float("faceTangentU", 3),
	buffers.Float("faceTangentV", 3),
}

// EnvironmentMap is the cube currently lighting the scene, or nil.
func (r *Renderer) EnvironmentMap() *textures.TextureCube {
	if r.env == nil {
		return nil
	}
	return r.env.source
}

// IrradianceMap and ReflectionMap are nil until an environment is set.
func (r *Renderer) IrradianceMap() *textures.TextureCube {
	if r.env == nil {
		return nil
	}
	return r.env.irradiance
}

func (r *Renderer) ReflectionMap() *textures.TextureCube {
	if r.env == nil {
		return nil
	}
	return r.env.reflection
}

/**
 * @brief Replaces the environment. The irradiance and prefiltered
 * reflection maps of the previous one are released and new ones are
 * rendered from cube. Setting the current cube again does nothing; nil
 * clears the environment.
 */
func (r *Renderer) SetEnvironmentMap(cube *textures.TextureCube) error {
	if r.env != nil && r.env.source == cube {
		return nil
	}
	if r.env != nil {
		r.env.irradiance.Dispose()
		r.env.reflection.Dispose()
		r.env = nil
	}
	var err error
	if cube != nil {
		err = r.precompute(cube)
	}
	for _, v := range r.views {
		r.updateEnvMapDraw(v)
	}
	return err
}

func (r *Renderer) precompute(cube *textures.TextureCube) error {
	start := time.Now()
	irradiance, err := r.generateIrradianceMap(cube)
	if err != nil {
		return fmt.Errorf("irradiance map: %w", err)
	}
	reflection, err := r.generateReflectionMap(cube)
	if err != nil {
		irradiance.Dispose()
		return fmt.Errorf("reflection map: %w", err)
	}
	r.env = &environment{source: cube, irradiance: irradiance, reflection: reflection}
	core.LogInfo("environment precomputed in %s (%d reflection mips)", time.Since(start), reflection.HighestMipLevel()+1)
	return nil
}

// UpdateEnvMapProperties picks the reflection mip the background is drawn
// from.
func (r *Renderer) UpdateEnvMapProperties(roughness float32) {
	highest := 0
	if r.env != nil {
		highest = r.env.reflection.HighestMipLevel()
	}
	r.envParams.View(0).SetFloat("envMapMipLevel", roughness*float32(highest))
}

func (r *Renderer) updateEnvMapDraw(v *View) {
	v.envBatch.Clear()
	if r.env == nil {
		return
	}
	v.envBatch.AddItem(batch.Item{
		Section:  r.screenQuad.Sections()[0],
		Textures: []batch.TextureBinding{{Unit: materials.ReflectionMapUnit, Texture: r.env.reflection}},
		Uniforms: []batch.UniformBinding{{Buffer: r.envParams, Element: 0, BindPoint: MaterialParamsBindPoint}},
	})
}

// oneShot is a program, parameter buffer and batch used for a single
// precompute pass and released straight after.
type oneShot struct {
	program *shaders.Program
	params  *buffers.UniformBuffer
	batch   *batch.DrawBatch
}

func (r *Renderer) newOneShot(fragment, block string, fields []buffers.Field) (*oneShot, error) {
	p, err := r.shaders.Program("screenquad", fragment)
	if err != nil {
		return nil, err
	}
	s := &oneShot{program: p}
	if len(fields) > 0 {
		if s.params, err = buffers.NewUniformBuffer(r.ctx, fields...); err != nil {
			s.release(r)
			return nil, err
		}
	}
	if err := r.state.SetProgram(p); err != nil {
		s.release(r)
		return nil, err
	}
	if block != "" {
		p.BindUniformBlock(block, 0)
	}
	if loc := p.UniformLocation("envMapTexture"); loc >= 0 {
		r.ctx.Uniform1i(loc, 0)
	}
	r.state.UnbindAllTextures()
	if s.batch, err = batch.New(r.ctx, r.state, p, r.screenQuad); err != nil {
		s.release(r)
		return nil, err
	}
	return s, nil
}

func (s *oneShot) release(r *Renderer) {
	if s.batch != nil {
		s.batch.Dispose()
	}
	if s.params != nil {
		s.params.Dispose()
	}
	s.program.Dispose()
	_ = r.state.SetProgram(nil)
}

// drawFace renders one face level of cube with element of the pass
// parameters and source bound to unit 0.
func (r *Renderer) drawFace(s *oneShot, cube *textures.TextureCube, face gpu.CubeFace, level int, element uint32, source textures.Texture) error {
	rt, err := textures.NewRenderTarget(r.ctx, textures.CubeFaceAttachment(cube, face, level))
	if err != nil {
		return err
	}
	defer rt.Dispose()
	r.state.SetRenderTarget(rt)

	s.batch.Clear()
	s.batch.AddItem(batch.Item{
		Section:  r.screenQuad.Sections()[0],
		Textures: []batch.TextureBinding{{Unit: 0, Texture: source}},
		Uniforms: []batch.UniformBinding{{Buffer: s.params, Element: element, BindPoint: 0}},
	})
	return s.batch.Draw(batch.AllDrawFlags)
}

func setFace(v *buffers.View, face int) {
	v.SetVec3("faceNormal", cubeFaceFrames[face].normal)
	v.SetVec3("faceTangentU", cubeFaceFrames[face].tangentU)
	v.SetVec3("faceTangentV", cubeFaceFrames[face].tangentV)
}

func (r *Renderer) generateIrradianceMap(env *textures.TextureCube) (*textures.TextureCube, error) {
	irradiance := textures.NewTextureCube(r.ctx, IrradianceFaceSize, IrradianceFaceSize, textures.Options{Format: gpu.FormatRGBA16F, Filter: gpu.FilterBilinear})
	r.Own(irradiance)
	r.state.Invalidate()

	s, err := r.newOneShot("irradiance", "IrradianceParams", slices.Concat(faceFields, []buffers.Field{buffers.Float("sampleDelta", 1)}))
	if err != nil {
		irradiance.Dispose()
		return nil, err
	}
	defer s.release(r)

	for face := range gpu.CubeFaceCount {
		v := s.params.View(s.params.Allocate())
		setFace(v, face)
		v.SetFloat("sampleDelta", irradianceSampleDelta)
	}

	components.NewViewport(0, 0, IrradianceFaceSize, IrradianceFaceSize).Use(r.ctx)
	for face := range gpu.CubeFaceCount {
		if err := r.drawFace(s, irradiance, gpu.CubeFace(face), 0, uint32(face), env); err != nil {
			irradiance.Dispose()
			return nil, err
		}
	}
	return irradiance, nil
}

/**
 * @brief Renders the prefiltered reflection chain. Mip m of every face is
 * convolved with roughness m/N, where N is the highest mip level.
 */
func (r *Renderer) generateReflectionMap(env *textures.TextureCube) (*textures.TextureCube, error) {
	reflection := textures.NewTextureCube(r.ctx, env.FaceWidth(), env.FaceHeight(),
		textures.Options{Format: gpu.FormatRGBA16F, Filter: gpu.FilterBilinear, Mipmaps: true})
	r.Own(reflection)
	r.state.Invalidate()

	s, err := r.newOneShot("reflection", "ReflectionParams", slices.Concat(faceFields, []buffers.Field{buffers.Float("materialRoughness", 1)}))
	if err != nil {
		reflection.Dispose()
		return nil, err
	}
	defer s.release(r)

	highest := reflection.HighestMipLevel()
	for mip := 0; mip <= highest; mip++ {
		roughness := float32(0)
		if highest > 0 {
			roughness = float32(mip) / float32(highest)
		}
		for face := range gpu.CubeFaceCount {
			v := s.params.View(s.params.Allocate())
			setFace(v, face)
			v.SetFloat("materialRoughness", roughness)
		}
	}

	for mip := 0; mip <= highest; mip++ {
		components.NewViewport(0, 0, reflection.FaceWidth()>>mip, reflection.FaceHeight()>>mip).Use(r.ctx)
		for face := range gpu.CubeFaceCount {
			element := uint32(mip*gpu.CubeFaceCount + face)
			if err := r.drawFace(s, reflection, gpu.CubeFace(face), mip, element, env); err != nil {
				reflection.Dispose()
				return nil, err
			}
		}
	}
	return reflection, nil
}

func (r *Renderer) generateBRDFLut() (*textures.Texture2D, error) {
	lut := textures.NewTexture2D(r.ctx, BRDFLutSize, BRDFLutSize,
		textures.Options{Format: gpu.FormatRG16F, Wrap: gpu.WrapClamp, Filter: gpu.FilterBilinear})
	r.Own(lut)
	r.state.Invalidate()

	s, err := r.newOneShot("brdf-lut", "", nil)
	if err != nil {
		return nil, err
	}
	defer s.release(r)

	rt, err := textures.NewRenderTarget(r.ctx, textures.ColorAttachment(0, lut))
	if err != nil {
		return nil, err
	}
	defer rt.Dispose()
	r.state.SetRenderTarget(rt)
	components.NewViewport(0, 0, BRDFLutSize, BRDFLutSize).Use(r.ctx)

	s.batch.AddItem(batch.Item{Section: r.screenQuad.Sections()[0]})
	if err := s.batch.Draw(batch.AllDrawFlags); err != nil {
		return nil, err
	}
	return lut, nil
}
