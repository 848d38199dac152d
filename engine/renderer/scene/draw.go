package scene

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/lumen/engine/renderer/batch"
	"github.com/spaghettifunk/lumen/engine/renderer/materials"
	"github.com/spaghettifunk/lumen/engine/renderer/state"
	"github.com/spaghettifunk/lumen/engine/renderer/textures"
)

var (
	clearColor = mgl32.Vec4{0, 0, 0, 0}
	clearDepth = float32(1)
)

func updateViewBlock(v *View) {
	cam := v.Camera
	projView := cam.ProjectionView()
	view := cam.Transform.WorldToLocal()
	proj := cam.Projection()

	b := v.viewBlock
	b.SetMat4("projectionViewMatrix", projView)
	b.SetMat4("invProjectionViewMatrix", projView.Inv())
	b.SetMat4("viewMatrix", view)
	b.SetMat4("invViewMatrix", view.Inv())
	b.SetMat4("projectionMatrix", proj)
	b.SetMat4("invProjectionMatrix", proj.Inv())
	b.SetVec3("cameraPosWs", cam.Transform.Position)
}

/**
 * @brief Renders every view in registration order. A failing view is
 * reported in the returned error and the remaining views are still drawn.
 */
func (r *Renderer) Draw() error {
	r.pruneBatches()
	for _, v := range r.views {
		updateViewBlock(v)
	}
	r.viewBlocks.Flush()

	var errs []error
	for _, v := range r.views {
		if err := r.drawView(v); err != nil {
			errs = append(errs, fmt.Errorf("view %s: %w", v.ID, err))
		}
	}
	return errors.Join(errs...)
}

func (r *Renderer) drawView(v *View) error {
	ldrCount := len(v.Props.LDRPostProcesses)

	// every post process samples the depth written by the main pass
	var depth *textures.Texture2D
	switch {
	case v.Props.HDR:
		r.state.SetRenderTarget(r.hdr[0].rt)
		depth = r.hdr[0].depth
	case ldrCount > 0:
		r.state.SetRenderTarget(r.ldr[0].rt)
		depth = r.ldr[0].depth
	default:
		r.state.SetRenderTarget(v.Target)
	}
	if err := r.drawMainPass(v); err != nil {
		return err
	}

	r.state.SetDepthStencil(nil)
	r.state.SetCullFace(nil)
	viewBinding := []batch.UniformBinding{{Buffer: r.viewBlocks, Element: v.viewBlock.Element, BindPoint: ViewBlockBindPoint}}

	if v.Props.HDR {
		src, dst := r.hdr[0], r.hdr[1]
		for _, pp := range v.Props.HDRPostProcesses {
			r.state.SetRenderTarget(dst.rt)
			if err := r.drawPostProcess(pp, src.color, depth, viewBinding); err != nil {
				return err
			}
			src, dst = dst, src
		}

		if ldrCount > 0 {
			r.state.SetRenderTarget(r.ldr[0].rt)
		} else {
			r.state.SetRenderTarget(v.Target)
		}
		bindInputs(v.toneMapper, src.color, depth)
		if err := v.toneMapper.DrawOne(r.toneMapperBatch, r.screenQuad.Sections()[0], MaterialParamsBindPoint, nil); err != nil {
			return fmt.Errorf("tone mapper: %w", err)
		}
	}

	src, dst := r.ldr[0], r.ldr[1]
	for i, pp := range v.Props.LDRPostProcesses {
		if i == ldrCount-1 {
			r.state.SetRenderTarget(v.Target)
		} else {
			r.state.SetRenderTarget(dst.rt)
		}
		if err := r.drawPostProcess(pp, src.color, depth, viewBinding); err != nil {
			return err
		}
		src, dst = dst, src
	}
	return nil
}

// bindInputs points the input slots of a post process at color and depth.
// Slots the shader does not sample have no unit and are skipped.
func bindInputs(pp *materials.Instance, color, depth *textures.Texture2D) {
	_ = pp.SetTexture(InputColorSlot, color)
	_ = pp.SetTexture(InputDepthSlot, depth)
}

func (r *Renderer) drawPostProcess(pp *materials.Instance, color, depth *textures.Texture2D, viewBinding []batch.UniformBinding) error {
	bindInputs(pp, color, depth)
	b, err := r.drawBatch(pp.Material(), r.screenQuad, false)
	if err != nil {
		return err
	}
	return pp.DrawOne(b, r.screenQuad.Sections()[0], MaterialParamsBindPoint, viewBinding)
}

func (r *Renderer) drawMainPass(v *View) error {
	r.viewBlocks.BindElement(v.viewBlock.Element, ViewBlockBindPoint)

	r.state.SetDepthStencil(state.DepthLessWrite)
	v.Viewport.Clear(r.ctx, &clearColor, &clearDepth)

	if v.Props.DrawEnvMap && r.env != nil {
		r.state.SetDepthStencil(nil)
		r.state.SetCullFace(nil)
		if err := v.envBatch.Draw(batch.AllDrawFlags); err != nil {
			return fmt.Errorf("environment: %w", err)
		}
	}

	var irradiance, reflection textures.Texture
	if r.env != nil {
		irradiance, reflection = r.env.irradiance, r.env.reflection
	}
	if err := r.state.SetTexture(materials.IrradianceMapUnit, irradiance); err != nil {
		return err
	}
	if err := r.state.SetTexture(materials.ReflectionMapUnit, reflection); err != nil {
		return err
	}
	if err := r.state.SetTexture(materials.BRDFLutUnit, r.brdfLut); err != nil {
		return err
	}

	depth, cull := state.DepthLessWrite, state.CullBack
	if v.Props.DepthStencilOverride != nil {
		depth = v.Props.DepthStencilOverride
	}
	if v.Props.CullFaceOverride != nil {
		cull = v.Props.CullFaceOverride
	}
	r.state.SetDepthStencil(depth)
	r.state.SetCullFace(cull)

	mask := v.Props.DrawFlags
	if mask == 0 {
		mask = batch.AllDrawFlags
	}
	for _, b := range r.objectBatches {
		if err := b.Draw(mask); err != nil {
			return err
		}
	}
	return nil
}
