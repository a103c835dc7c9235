// SPDX-License-Identifier: Unlicense OR MIT

// Package driver defines the interface to the GPU device consumed by
// the canvas. Implementations wrap OpenGL-style APIs; the headless
// package provides an in-memory implementation for tests.
package driver

import (
	"image"
	"time"
)

// Device abstracts the underlying GPU API. It is owned by a single
// render thread; no method is safe for concurrent use.
type Device interface {
	BeginFrame()
	EndFrame()
	Caps() Caps
	NewTexture(format TextureFormat, width, height int, minFilter, magFilter TextureFilter) (Texture, error)
	NewBuffer(typ BufferBinding, size int) (Buffer, error)
	NewImmutableBuffer(typ BufferBinding, data []byte) (Buffer, error)
	NewProgram(vertexShader, fragmentShader ShaderSources) (Program, error)
	NewInputLayout(vertexShader ShaderSources, layout []InputDesc) (InputLayout, error)
	NewTimer() Timer

	Clear(r, g, b, a float32)
	ClearStencil(s int)
	Viewport(x, y, width, height int)
	DrawArrays(mode DrawMode, off, count int)

	SetBlend(enable bool)
	BlendFunc(sfactor, dfactor BlendFactor)
	SetStencilTest(enable bool)
	StencilFunc(f CompareFunc, ref int, mask uint32)
	StencilOp(fail, zfail, zpass StencilOp)
	// StencilOpSeparate applies distinct operations to front and back
	// faces, as needed by winding-based stencil fills.
	StencilOpSeparate(face Face, fail, zfail, zpass StencilOp)
	StencilMask(mask uint32)
	ColorMask(r, g, b, a bool)
	SetCullFace(enable bool)

	BindInputLayout(i InputLayout)
	BindProgram(p Program)
	BindTexture(unit int, t Texture)
	BindVertexBuffer(b Buffer, stride, offset int)

	// Err returns the first error recorded by the device since the
	// previous call, or nil.
	Err() error
}

// ShaderSources carries the per-dialect sources for one shader stage.
type ShaderSources struct {
	Name      string
	GLSL100ES string
	GLSL150   string
	Uniforms  UniformsReflection
	Inputs    []InputLocation
	Textures  []TextureBinding
}

type UniformsReflection struct {
	Blocks    []UniformBlock
	Locations []UniformLocation
	Size      int
}

type TextureBinding struct {
	Name    string
	Binding int
}

type UniformBlock struct {
	Name    string
	Binding int
}

type UniformLocation struct {
	Name   string
	Type   DataType
	Size   int
	Offset int
}

type InputLocation struct {
	Name     string
	Location int

	Type DataType
	Size int
}

// InputDesc describes a vertex attribute as laid out in a Buffer.
type InputDesc struct {
	Type DataType
	Size int

	Offset int
}

// InputLayout is the device specific representation of the mapping
// between Buffers and shader attributes.
type InputLayout interface {
	Release()
}

type Program interface {
	Release()
	// SetFragmentUniforms binds a range of buf as the uniform block at
	// binding 0.
	SetFragmentUniforms(buf Buffer, offset, size int)
	SetVertexUniforms(buf Buffer)
}

type Buffer interface {
	Release()
	Upload(data []byte)
}

type Texture interface {
	Upload(offset, size image.Point, pixels []byte)
	Size() image.Point
	Release()
}

// Timer measures the device time spent between Begin and End. The
// result may not be available right away; Duration reports false
// until it is.
type Timer interface {
	Begin()
	End()
	Duration() (time.Duration, bool)
	Release()
}

type Caps struct {
	MaxTextureSize int
	// UniformAlignment is the required alignment of uniform buffer
	// binding offsets.
	UniformAlignment int
	StencilBits      int
}

type BlendFactor uint8

type DrawMode uint8

type TextureFilter uint8
type TextureFormat uint8

type BufferBinding uint8

type DataType uint8

type CompareFunc uint8

type StencilOp uint8

type Face uint8

const (
	DataTypeFloat DataType = iota
	DataTypeInt
	DataTypeShort
)

const (
	BufferBindingIndices BufferBinding = 1 << iota
	BufferBindingVertices
	BufferBindingUniforms
	BufferBindingTexture
)

const (
	TextureFormatR TextureFormat = iota
	TextureFormatRGB
	TextureFormatRGBA
)

const (
	FilterNearest TextureFilter = iota
	FilterLinear
)

const (
	DrawModeTriangleStrip DrawMode = iota
	DrawModeTriangleFan
	DrawModeTriangles
)

const (
	BlendFactorZero BlendFactor = iota
	BlendFactorOne
	BlendFactorSrcColor
	BlendFactorOneMinusSrcColor
	BlendFactorDstColor
	BlendFactorOneMinusDstColor
	BlendFactorSrcAlpha
	BlendFactorOneMinusSrcAlpha
	BlendFactorDstAlpha
	BlendFactorOneMinusDstAlpha
)

const (
	CompareAlways CompareFunc = iota
	CompareNever
	CompareEqual
	CompareNotEqual
	CompareLess
	CompareLessEqual
	CompareGreater
	CompareGreaterEqual
)

const (
	StencilOpKeep StencilOp = iota
	StencilOpZero
	StencilOpReplace
	StencilOpIncr
	StencilOpIncrWrap
	StencilOpDecr
	StencilOpDecrWrap
	StencilOpInvert
)

const (
	FaceFront Face = iota
	FaceBack
)
