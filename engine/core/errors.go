package core

import (
	"errors"
)

var (
	// renderer preconditions
	ErrRenderDataMissing     = errors.New("mesh has no render data, call CreateRenderData first")
	ErrDisposedProgram       = errors.New("shader program has been disposed")
	ErrDisposedVertexArray   = errors.New("vertex array has been disposed")
	ErrSectionOutOfRange     = errors.New("mesh section index out of range")
	ErrTextureUnitOutOfRange = errors.New("texture unit out of range")
	ErrIncompleteFramebuffer = errors.New("framebuffer is incomplete")

	// packed buffer layouts
	ErrInvalidField = errors.New("invalid struct field")
	ErrUnknownField = errors.New("unknown struct field")
	ErrFieldType    = errors.New("struct field type mismatch")

	ErrUnknownTextureSlot = errors.New("unknown texture slot")
	ErrIncludeDepth       = errors.New("shader include depth exceeded")

	ErrAssetNotFound      = errors.New("asset not found")
	ErrUnknownEnvironment = errors.New("unknown environment")
	ErrUnknownScene       = errors.New("unknown scene")

	ErrQueueFull  = errors.New("queue is full")
	ErrQueueEmpty = errors.New("queue is empty")

	ErrUnknown = errors.New("unknown")
)
