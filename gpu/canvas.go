// SPDX-License-Identifier: Unlicense OR MIT

// Package gpu renders recorded cells. A Canvas interprets cell command
// streams into flattened, expanded triangle geometry and batches the
// result into stencil-aware draws against a driver.Device.
package gpu

import (
	"log"
	"time"

	"honnef.co/go/safeish"

	"github.com/pictorui/pictor/cell"
	"github.com/pictorui/pictor/gpu/driver"
)

// Clock supplies the monotonic frame time.
type Clock interface {
	Now() time.Duration
}

type wallClock struct {
	start time.Time
}

func (c wallClock) Now() time.Duration {
	return time.Since(c.start)
}

type callType uint8

const (
	callFill callType = iota
	callConvexFill
	callStroke
	callText
)

// call is one unit of draw dispatch: a tight sequence of draws sharing
// a uniform block and texture.
type call struct {
	typ            callType
	pathOffset     int
	pathCount      int
	triangleOffset int
	triangleCount  int
	uniformOffset  int
	texture        driver.Texture
	blend          blend
}

type blend struct {
	src, dst driver.BlendFactor
}

// frame holds the per-frame geometry buffers. They are pooled: reset
// keeps the backing arrays for the next frame.
type frame struct {
	verts    []vertex
	paths    []subPath
	uniforms []byte
	calls    []call
}

func (f *frame) reset() {
	f.verts = f.verts[:0]
	f.paths = f.paths[:0]
	f.uniforms = f.uniforms[:0]
	f.calls = f.calls[:0]
}

// frameOptions is the per-frame tolerance snapshot taken at BeginFrame.
type frameOptions struct {
	distTol        float32
	tessTol        float32
	fringeWidth    float32
	geometricAA    bool
	stencilStrokes bool
}

// Canvas owns the GPU buffer set and assembles one frame at a time. It
// must only be used from the thread owning its device.
type Canvas struct {
	dev    driver.Device
	prog   driver.Program
	layout driver.InputLayout
	vbo    driver.Buffer
	vboCap int
	ubo    driver.Buffer
	uboCap int
	vubo   driver.Buffer

	fragSize int
	clock    Clock

	geometricAA    bool
	stencilStrokes bool

	profile    bool
	frameTimer driver.Timer
	gpuTime    time.Duration
	gpuTimeOK  bool

	opts                  frameOptions
	frame                 frame
	builder               pathBuilder
	inFrame               bool
	frameTime             time.Duration
	viewWidth, viewHeight float32
}

// NewCanvas creates a canvas on dev, building its shader program and
// buffer set. Construction errors surface; runtime device errors are
// logged and abort the frame instead.
func NewCanvas(dev driver.Device) (*Canvas, error) {
	prog, err := dev.NewProgram(vertexShader, fragmentShader)
	if err != nil {
		return nil, err
	}
	layout, err := dev.NewInputLayout(vertexShader, []driver.InputDesc{
		{Type: driver.DataTypeFloat, Size: 2, Offset: 0},
		{Type: driver.DataTypeFloat, Size: 2, Offset: 8},
	})
	if err != nil {
		prog.Release()
		return nil, err
	}
	vubo, err := dev.NewBuffer(driver.BufferBindingUniforms, 16)
	if err != nil {
		layout.Release()
		prog.Release()
		return nil, err
	}
	align := dev.Caps().UniformAlignment
	fragSize := shaderVariablesSize
	if align > 0 && fragSize%align != 0 {
		fragSize += align - fragSize%align
	}
	return &Canvas{
		dev:            dev,
		prog:           prog,
		layout:         layout,
		vubo:           vubo,
		fragSize:       fragSize,
		clock:          wallClock{start: time.Now()},
		geometricAA:    true,
		stencilStrokes: true,
	}, nil
}

// SetClock replaces the frame time source.
func (c *Canvas) SetClock(clk Clock) {
	c.clock = clk
}

// SetGeometricAA toggles the antialiasing fringe for subsequent frames.
func (c *Canvas) SetGeometricAA(enable bool) {
	c.geometricAA = enable
}

// SetStencilStrokes toggles double-pass stroke rendering, which keeps
// overlapping stroke geometry from double blending.
func (c *Canvas) SetStencilStrokes(enable bool) {
	c.stencilStrokes = enable
}

// SetProfiling toggles device timing of frame dispatch. The timer is
// created lazily on the first profiled frame.
func (c *Canvas) SetProfiling(enable bool) {
	c.profile = enable
}

// GPUTime reports the device time spent dispatching the most recent
// profiled frame. It reports false until a profiled measurement is
// available.
func (c *Canvas) GPUTime() (time.Duration, bool) {
	return c.gpuTime, c.gpuTimeOK
}

// Release frees the canvas's device resources.
func (c *Canvas) Release() {
	if c.frameTimer != nil {
		c.frameTimer.Release()
	}
	if c.vbo != nil {
		c.vbo.Release()
	}
	if c.ubo != nil {
		c.ubo.Release()
	}
	c.vubo.Release()
	c.layout.Release()
	c.prog.Release()
}

// BeginFrame opens a frame for the given viewport, clearing the pooled
// frame buffers and snapshotting the tolerance options for the frame.
func (c *Canvas) BeginFrame(width, height, pixelRatio float32) {
	if pixelRatio <= 0 {
		pixelRatio = 1
	}
	c.frame.reset()
	c.builder.reset()
	c.opts = frameOptions{
		distTol:        0.01 / pixelRatio,
		tessTol:        0.25 / pixelRatio,
		fringeWidth:    1.0 / pixelRatio,
		geometricAA:    c.geometricAA,
		stencilStrokes: c.stencilStrokes,
	}
	c.viewWidth = width
	c.viewHeight = height
	c.frameTime = c.clock.Now()
	c.inFrame = true
}

// FrameTime returns the time snapshotted at BeginFrame.
func (c *Canvas) FrameTime() time.Duration {
	return c.frameTime
}

// Paint interprets cl into the open frame.
func (c *Canvas) Paint(cl *cell.Cell) {
	c.PaintWith(cl, NoBase())
}

// PaintWith interprets cl under a nesting context.
func (c *Canvas) PaintWith(cl *cell.Cell, base Base) {
	if !c.inFrame {
		return
	}
	if base.Alpha < 0 {
		base.Alpha = 0
	} else if base.Alpha > 1 {
		base.Alpha = 1
	}
	c.paintCell(cl, base)
}

// Reset discards the in-flight frame without drawing.
func (c *Canvas) Reset() {
	c.frame.reset()
	c.builder.reset()
	c.inFrame = false
}

// FinishFrame uploads the frame buffers and dispatches every call in
// append order. Device errors are logged and abort the frame; no error
// crosses this boundary.
func (c *Canvas) FinishFrame() {
	if !c.inFrame {
		return
	}
	defer c.Reset()
	if len(c.frame.calls) == 0 {
		return
	}
	if err := c.upload(); err != nil {
		log.Printf("gpu: frame upload failed: %v", err)
		return
	}

	if c.profile && c.frameTimer == nil {
		c.frameTimer = c.dev.NewTimer()
	}
	if c.profile {
		c.frameTimer.Begin()
	}

	dev := c.dev
	dev.BindProgram(c.prog)
	dev.BindInputLayout(c.layout)
	dev.BindVertexBuffer(c.vbo, 16, 0)
	dev.SetBlend(true)
	dev.SetCullFace(true)
	dev.SetStencilTest(false)
	dev.StencilMask(0xffffffff)
	dev.StencilOp(driver.StencilOpKeep, driver.StencilOpKeep, driver.StencilOpKeep)
	dev.StencilFunc(driver.CompareAlways, 0, 0xffffffff)
	dev.ColorMask(true, true, true, true)

	for i := range c.frame.calls {
		cl := &c.frame.calls[i]
		dev.BlendFunc(cl.blend.src, cl.blend.dst)
		switch cl.typ {
		case callFill:
			c.drawFill(cl)
		case callConvexFill:
			c.drawConvexFill(cl)
		case callStroke:
			c.drawStroke(cl)
		case callText:
			c.drawText(cl)
		}
	}

	dev.SetStencilTest(false)
	dev.SetCullFace(false)
	if c.profile {
		c.frameTimer.End()
		if d, ok := c.frameTimer.Duration(); ok {
			c.gpuTime = d
			c.gpuTimeOK = true
		}
	}
	if err := dev.Err(); err != nil {
		log.Printf("gpu: frame aborted: %v", err)
	}
}

// upload grows the GPU buffers as needed and copies this frame's
// vertices and uniform blocks.
func (c *Canvas) upload() error {
	vdata := safeish.SliceCast[[]byte](c.frame.verts)
	if len(vdata) > c.vboCap {
		if c.vbo != nil {
			c.vbo.Release()
			c.vbo = nil
		}
		vbo, err := c.dev.NewBuffer(driver.BufferBindingVertices, len(vdata))
		if err != nil {
			return err
		}
		c.vbo = vbo
		c.vboCap = len(vdata)
	}
	c.vbo.Upload(vdata)

	if len(c.frame.uniforms) > c.uboCap {
		if c.ubo != nil {
			c.ubo.Release()
			c.ubo = nil
		}
		ubo, err := c.dev.NewBuffer(driver.BufferBindingUniforms, len(c.frame.uniforms))
		if err != nil {
			return err
		}
		c.ubo = ubo
		c.uboCap = len(c.frame.uniforms)
	}
	if len(c.frame.uniforms) > 0 {
		c.ubo.Upload(c.frame.uniforms)
	}

	view := [4]float32{c.viewWidth, c.viewHeight, 0, 0}
	c.vubo.Upload(safeish.SliceCast[[]byte](view[:]))
	c.prog.SetVertexUniforms(c.vubo)
	return c.dev.Err()
}

func (c *Canvas) bindUniforms(cl *call, offset int) {
	c.prog.SetFragmentUniforms(c.ubo, offset, shaderVariablesSize)
	if cl.texture != nil {
		c.dev.BindTexture(0, cl.texture)
	}
}

func (c *Canvas) paths(cl *call) []subPath {
	return c.frame.paths[cl.pathOffset : cl.pathOffset+cl.pathCount]
}

// drawFill renders a concave fill with the stencil-then-cover scheme:
// winding fans into the stencil, fringe strips where the stencil is
// zero, then a cover quad that clears the stencil as it draws.
func (c *Canvas) drawFill(cl *call) {
	dev := c.dev

	dev.SetStencilTest(true)
	dev.StencilMask(0xff)
	dev.StencilFunc(driver.CompareAlways, 0, 0xff)
	dev.ColorMask(false, false, false, false)
	dev.StencilOpSeparate(driver.FaceFront, driver.StencilOpKeep, driver.StencilOpKeep, driver.StencilOpIncrWrap)
	dev.StencilOpSeparate(driver.FaceBack, driver.StencilOpKeep, driver.StencilOpKeep, driver.StencilOpDecrWrap)
	dev.SetCullFace(false)
	c.bindUniforms(cl, cl.uniformOffset)
	for _, p := range c.paths(cl) {
		dev.DrawArrays(driver.DrawModeTriangleFan, p.fillOffset, p.fillCount)
	}
	dev.SetCullFace(true)
	dev.ColorMask(true, true, true, true)

	c.bindUniforms(cl, cl.uniformOffset+c.fragSize)

	if c.opts.geometricAA {
		dev.StencilFunc(driver.CompareEqual, 0, 0xff)
		dev.StencilOp(driver.StencilOpKeep, driver.StencilOpKeep, driver.StencilOpKeep)
		for _, p := range c.paths(cl) {
			if p.strokeCount > 0 {
				dev.DrawArrays(driver.DrawModeTriangleStrip, p.strokeOffset, p.strokeCount)
			}
		}
	}

	dev.StencilFunc(driver.CompareNotEqual, 0, 0xff)
	dev.StencilOp(driver.StencilOpZero, driver.StencilOpZero, driver.StencilOpZero)
	dev.DrawArrays(driver.DrawModeTriangles, cl.triangleOffset, cl.triangleCount)

	dev.SetStencilTest(false)
}

func (c *Canvas) drawConvexFill(cl *call) {
	c.bindUniforms(cl, cl.uniformOffset)
	for _, p := range c.paths(cl) {
		c.dev.DrawArrays(driver.DrawModeTriangleFan, p.fillOffset, p.fillCount)
		if p.strokeCount > 0 {
			c.dev.DrawArrays(driver.DrawModeTriangleStrip, p.strokeOffset, p.strokeCount)
		}
	}
}

func (c *Canvas) drawStroke(cl *call) {
	dev := c.dev
	if !c.opts.stencilStrokes {
		c.bindUniforms(cl, cl.uniformOffset)
		for _, p := range c.paths(cl) {
			dev.DrawArrays(driver.DrawModeTriangleStrip, p.strokeOffset, p.strokeCount)
		}
		return
	}

	dev.SetStencilTest(true)
	dev.StencilMask(0xff)

	// Fill the stroke base without overlap.
	dev.StencilFunc(driver.CompareEqual, 0, 0xff)
	dev.StencilOp(driver.StencilOpKeep, driver.StencilOpKeep, driver.StencilOpIncr)
	c.bindUniforms(cl, cl.uniformOffset+c.fragSize)
	for _, p := range c.paths(cl) {
		dev.DrawArrays(driver.DrawModeTriangleStrip, p.strokeOffset, p.strokeCount)
	}

	// Antialiased fringe where the base did not land.
	c.bindUniforms(cl, cl.uniformOffset)
	dev.StencilFunc(driver.CompareEqual, 0, 0xff)
	dev.StencilOp(driver.StencilOpKeep, driver.StencilOpKeep, driver.StencilOpKeep)
	for _, p := range c.paths(cl) {
		dev.DrawArrays(driver.DrawModeTriangleStrip, p.strokeOffset, p.strokeCount)
	}

	// Clear the touched stencil bytes.
	dev.ColorMask(false, false, false, false)
	dev.StencilFunc(driver.CompareAlways, 0, 0xff)
	dev.StencilOp(driver.StencilOpZero, driver.StencilOpZero, driver.StencilOpZero)
	for _, p := range c.paths(cl) {
		dev.DrawArrays(driver.DrawModeTriangleStrip, p.strokeOffset, p.strokeCount)
	}
	dev.ColorMask(true, true, true, true)

	dev.SetStencilTest(false)
}

func (c *Canvas) drawText(cl *call) {
	c.bindUniforms(cl, cl.uniformOffset)
	c.dev.DrawArrays(driver.DrawModeTriangles, cl.triangleOffset, cl.triangleCount)
}

func (c *Canvas) allocFrag(n int) int {
	off := len(c.frame.uniforms)
	c.frame.uniforms = append(c.frame.uniforms, make([]byte, n*c.fragSize)...)
	return off
}

func (c *Canvas) fragAt(off int) *shaderVariables {
	s := safeish.SliceCast[[]shaderVariables](c.frame.uniforms[off : off+shaderVariablesSize])
	return &s[0]
}

// blendFunc maps a Porter-Duff operator to premultiplied-alpha blend
// factors.
func blendFunc(mode cell.BlendMode) blend {
	switch mode {
	case cell.SourceIn:
		return blend{driver.BlendFactorDstAlpha, driver.BlendFactorZero}
	case cell.SourceOut:
		return blend{driver.BlendFactorOneMinusDstAlpha, driver.BlendFactorZero}
	case cell.SourceAtop:
		return blend{driver.BlendFactorDstAlpha, driver.BlendFactorOneMinusSrcAlpha}
	case cell.DestinationOver:
		return blend{driver.BlendFactorOneMinusDstAlpha, driver.BlendFactorOne}
	case cell.DestinationIn:
		return blend{driver.BlendFactorZero, driver.BlendFactorSrcAlpha}
	case cell.DestinationOut:
		return blend{driver.BlendFactorZero, driver.BlendFactorOneMinusSrcAlpha}
	case cell.DestinationAtop:
		return blend{driver.BlendFactorOneMinusDstAlpha, driver.BlendFactorSrcAlpha}
	case cell.Lighter:
		return blend{driver.BlendFactorOne, driver.BlendFactorOne}
	case cell.Copy:
		return blend{driver.BlendFactorOne, driver.BlendFactorZero}
	case cell.Xor:
		return blend{driver.BlendFactorOneMinusDstAlpha, driver.BlendFactorOneMinusSrcAlpha}
	default: // cell.SourceOver
		return blend{driver.BlendFactorOne, driver.BlendFactorOneMinusSrcAlpha}
	}
}
