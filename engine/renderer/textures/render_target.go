package textures

import (
	"fmt"

	"github.com/spaghettifunk/lumen/engine/renderer/gpu"
	"github.com/spaghettifunk/lumen/engine/renderer/resource"
)

// Attachment attaches one level of a 2D texture, or one face level of a
// cubemap, to a framebuffer.
type Attachment struct {
	Kind    gpu.AttachmentKind
	Index   int
	Texture Texture
	Face    gpu.CubeFace
	Level   int
}

func ColorAttachment(index int, tex Texture) Attachment {
	return Attachment{Kind: gpu.ColorAttachment, Index: index, Texture: tex}
}

func DepthAttachment(tex Texture) Attachment {
	return Attachment{Kind: gpu.DepthAttachment, Texture: tex}
}

// CubeFaceAttachment attaches one face of a cubemap at a mip level as color
// attachment 0.
func CubeFaceAttachment(cube *TextureCube, face gpu.CubeFace, level int) Attachment {
	return Attachment{Kind: gpu.ColorAttachment, Texture: cube, Face: face, Level: level}
}

type RenderTarget struct {
	resource.Base

	handle      gpu.Handle
	attachments []Attachment
}

/**
 * @brief Creates a framebuffer with the given attachments and checks that
 * it is complete. The new framebuffer is left bound.
 * @return ErrIncompleteFramebuffer when the driver rejects the combination.
 */
func NewRenderTarget(ctx *gpu.Context, attachments ...Attachment) (*RenderTarget, error) {
	rt := &RenderTarget{handle: ctx.CreateFramebuffer(), attachments: attachments}
	rt.Init(ctx.Resources, "RenderTarget", func() {
		ctx.DeleteFramebuffer(rt.handle)
	})

	ctx.BindFramebuffer(rt.handle)
	colors := 0
	for _, a := range attachments {
		ctx.FramebufferTexture2D(a.Kind, a.Index, a.Texture.Target(), a.Face, a.Texture.Handle(), a.Level)
		if a.Kind == gpu.ColorAttachment {
			colors = max(colors, a.Index+1)
		}
	}
	ctx.DrawBuffers(colors)
	if err := ctx.CheckFramebufferStatus(); err != nil {
		rt.Dispose()
		return nil, fmt.Errorf("render target with %d attachments: %w", len(attachments), err)
	}
	return rt, nil
}

func (rt *RenderTarget) Handle() gpu.Handle {
	return rt.handle
}

func (rt *RenderTarget) Attachments() []Attachment {
	return rt.attachments
}
