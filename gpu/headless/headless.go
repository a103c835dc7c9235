// SPDX-License-Identifier: Unlicense OR MIT

// Package headless implements an in-memory driver.Device for tests and
// offscreen use. It records every draw together with the device state
// it ran under, and rasterizes stencil-tested draws into a simulated
// 8 bit stencil buffer so stencil invariants can be checked without a
// GPU.
package headless

import (
	"encoding/binary"
	"image"
	"math"
	"time"

	"github.com/pictorui/pictor/gpu/driver"
)

// Device is an in-memory driver.Device.
type Device struct {
	width, height int
	caps          driver.Caps

	state   deviceState
	stencil []uint8

	draws []Draw
	err   error

	vbo       *buffer
	vboStride int
	vboOffset int

	lastUniformOffset int
	lastUniformSize   int
	lastTexture       driver.Texture
}

// deviceState mirrors the mutable pipeline state.
type deviceState struct {
	blend          bool
	blendSrc       driver.BlendFactor
	blendDst       driver.BlendFactor
	stencilTest    bool
	stencilCmp     driver.CompareFunc
	stencilRef     int
	stencilCmpMask uint32
	stencilMask    uint32
	opFront        [3]driver.StencilOp
	opBack         [3]driver.StencilOp
	colorMask      [4]bool
	cullFace       bool
}

// Draw is one recorded DrawArrays call with a snapshot of the state it
// ran under.
type Draw struct {
	Mode          driver.DrawMode
	Offset, Count int

	Blend       bool
	BlendSrc    driver.BlendFactor
	BlendDst    driver.BlendFactor
	StencilTest bool
	StencilCmp  driver.CompareFunc
	StencilRef  int
	OpFront     [3]driver.StencilOp
	OpBack      [3]driver.StencilOp
	ColorMask   [4]bool

	UniformOffset int
	UniformSize   int
	Texture       driver.Texture
}

// NewDevice returns a device with a width×height stencil buffer.
func NewDevice(width, height int) *Device {
	return &Device{
		width:   width,
		height:  height,
		stencil: make([]uint8, width*height),
		caps: driver.Caps{
			MaxTextureSize:   4096,
			UniformAlignment: 32,
			StencilBits:      8,
		},
		state: defaultState(),
	}
}

func defaultState() deviceState {
	return deviceState{
		stencilCmp:     driver.CompareAlways,
		stencilCmpMask: 0xffffffff,
		stencilMask:    0xffffffff,
		colorMask:      [4]bool{true, true, true, true},
	}
}

// Draws returns every draw recorded since the last ResetTrace.
func (d *Device) Draws() []Draw {
	return d.draws
}

// ResetTrace discards the recorded draws.
func (d *Device) ResetTrace() {
	d.draws = d.draws[:0]
}

// StencilAt returns the stencil value at pixel (x, y).
func (d *Device) StencilAt(x, y int) uint8 {
	return d.stencil[y*d.width+x]
}

// InjectErr arranges for the next Err call to return err, simulating a
// device failure.
func (d *Device) InjectErr(err error) {
	d.err = err
}

func (d *Device) BeginFrame() {}
func (d *Device) EndFrame()   {}

func (d *Device) Caps() driver.Caps {
	return d.caps
}

func (d *Device) NewTexture(format driver.TextureFormat, width, height int, minFilter, magFilter driver.TextureFilter) (driver.Texture, error) {
	return &texture{format: format, size: image.Pt(width, height)}, nil
}

func (d *Device) NewBuffer(typ driver.BufferBinding, size int) (driver.Buffer, error) {
	return &buffer{data: make([]byte, size)}, nil
}

func (d *Device) NewImmutableBuffer(typ driver.BufferBinding, data []byte) (driver.Buffer, error) {
	return &buffer{data: append([]byte(nil), data...)}, nil
}

func (d *Device) NewProgram(vertexShader, fragmentShader driver.ShaderSources) (driver.Program, error) {
	return &program{dev: d}, nil
}

func (d *Device) NewInputLayout(vertexShader driver.ShaderSources, layout []driver.InputDesc) (driver.InputLayout, error) {
	return inputLayout{}, nil
}

// NewTimer returns a wall clock timer. The device runs on the CPU, so
// the measurement is available as soon as End is called.
func (d *Device) NewTimer() driver.Timer {
	return &timer{}
}

func (d *Device) Clear(r, g, b, a float32) {}

func (d *Device) ClearStencil(s int) {
	for i := range d.stencil {
		d.stencil[i] = uint8(s)
	}
}

func (d *Device) Viewport(x, y, width, height int) {}

func (d *Device) SetBlend(enable bool) { d.state.blend = enable }

func (d *Device) BlendFunc(sfactor, dfactor driver.BlendFactor) {
	d.state.blendSrc = sfactor
	d.state.blendDst = dfactor
}

func (d *Device) SetStencilTest(enable bool) { d.state.stencilTest = enable }

func (d *Device) StencilFunc(f driver.CompareFunc, ref int, mask uint32) {
	d.state.stencilCmp = f
	d.state.stencilRef = ref
	d.state.stencilCmpMask = mask
}

func (d *Device) StencilOp(fail, zfail, zpass driver.StencilOp) {
	d.state.opFront = [3]driver.StencilOp{fail, zfail, zpass}
	d.state.opBack = d.state.opFront
}

func (d *Device) StencilOpSeparate(face driver.Face, fail, zfail, zpass driver.StencilOp) {
	op := [3]driver.StencilOp{fail, zfail, zpass}
	if face == driver.FaceFront {
		d.state.opFront = op
	} else {
		d.state.opBack = op
	}
}

func (d *Device) StencilMask(mask uint32) { d.state.stencilMask = mask }

func (d *Device) ColorMask(r, g, b, a bool) {
	d.state.colorMask = [4]bool{r, g, b, a}
}

func (d *Device) SetCullFace(enable bool) { d.state.cullFace = enable }

func (d *Device) BindInputLayout(i driver.InputLayout) {}

func (d *Device) BindProgram(p driver.Program) {}

func (d *Device) BindTexture(unit int, t driver.Texture) {
	d.lastTexture = t
}

func (d *Device) BindVertexBuffer(b driver.Buffer, stride, offset int) {
	d.vbo, _ = b.(*buffer)
	d.vboStride = stride
	d.vboOffset = offset
}

func (d *Device) DrawArrays(mode driver.DrawMode, off, count int) {
	s := &d.state
	d.draws = append(d.draws, Draw{
		Mode:        mode,
		Offset:      off,
		Count:       count,
		Blend:       s.blend,
		BlendSrc:    s.blendSrc,
		BlendDst:    s.blendDst,
		StencilTest: s.stencilTest,
		StencilCmp:  s.stencilCmp,
		StencilRef:  s.stencilRef,
		OpFront:     s.opFront,
		OpBack:      s.opBack,
		ColorMask:   s.colorMask,

		UniformOffset: d.lastUniformOffset,
		UniformSize:   d.lastUniformSize,
		Texture:       d.lastTexture,
	})
	if s.stencilTest {
		d.rasterizeStencil(mode, off, count)
	}
}

func (d *Device) Err() error {
	err := d.err
	d.err = nil
	return err
}

// Uniform and texture bindings are routed through the program and
// recorded for the next draw.
type program struct {
	dev *Device
}

func (p *program) Release() {}

func (p *program) SetFragmentUniforms(buf driver.Buffer, offset, size int) {
	p.dev.lastUniformOffset = offset
	p.dev.lastUniformSize = size
}

func (p *program) SetVertexUniforms(buf driver.Buffer) {}

type buffer struct {
	data []byte
}

func (b *buffer) Release() {}

func (b *buffer) Upload(data []byte) {
	if len(data) > len(b.data) {
		b.data = make([]byte, len(data))
	}
	copy(b.data, data)
}

type texture struct {
	format driver.TextureFormat
	size   image.Point
	pixels []byte
}

func (t *texture) Upload(offset, size image.Point, pixels []byte) {
	t.pixels = append(t.pixels[:0], pixels...)
}

func (t *texture) Size() image.Point { return t.size }

func (t *texture) Release() {}

type inputLayout struct{}

func (inputLayout) Release() {}

type timer struct {
	begin    time.Time
	duration time.Duration
	measured bool
}

func (t *timer) Begin() {
	t.begin = time.Now()
	t.measured = false
}

func (t *timer) End() {
	t.duration = time.Since(t.begin)
	t.measured = true
}

func (t *timer) Duration() (time.Duration, bool) {
	return t.duration, t.measured
}

func (t *timer) Release() {}

// vertexAt decodes the position of vertex i from the bound buffer.
func (d *Device) vertexAt(i int) (float32, float32) {
	off := d.vboOffset + i*d.vboStride
	bo := binary.LittleEndian
	x := math.Float32frombits(bo.Uint32(d.vbo.data[off:]))
	y := math.Float32frombits(bo.Uint32(d.vbo.data[off+4:]))
	return x, y
}

// rasterizeStencil assembles triangles from the draw and updates the
// simulated stencil buffer pixel by pixel.
func (d *Device) rasterizeStencil(mode driver.DrawMode, off, count int) {
	if d.vbo == nil {
		return
	}
	emit := func(i0, i1, i2 int) {
		x0, y0 := d.vertexAt(i0)
		x1, y1 := d.vertexAt(i1)
		x2, y2 := d.vertexAt(i2)
		d.stencilTriangle(x0, y0, x1, y1, x2, y2)
	}
	switch mode {
	case driver.DrawModeTriangles:
		for i := 0; i+2 < count; i += 3 {
			emit(off+i, off+i+1, off+i+2)
		}
	case driver.DrawModeTriangleStrip:
		for i := 2; i < count; i++ {
			if i%2 == 0 {
				emit(off+i-2, off+i-1, off+i)
			} else {
				emit(off+i-1, off+i-2, off+i)
			}
		}
	case driver.DrawModeTriangleFan:
		for i := 2; i < count; i++ {
			emit(off, off+i-1, off+i)
		}
	}
}

func (d *Device) stencilTriangle(x0, y0, x1, y1, x2, y2 float32) {
	// Signed area decides facing. Degenerate triangles rasterize
	// nothing.
	area := (x1-x0)*(y2-y0) - (x2-x0)*(y1-y0)
	if area == 0 {
		return
	}
	front := area > 0
	if d.state.cullFace && !front {
		return
	}
	op := d.state.opFront
	if !front {
		op = d.state.opBack
	}

	minX := clampI(int(minF(x0, minF(x1, x2))), 0, d.width-1)
	maxX := clampI(int(maxF(x0, maxF(x1, x2)))+1, 0, d.width-1)
	minY := clampI(int(minF(y0, minF(y1, y2))), 0, d.height-1)
	maxY := clampI(int(maxF(y0, maxF(y1, y2)))+1, 0, d.height-1)

	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			px := float32(x) + 0.5
			py := float32(y) + 0.5
			e0 := (x1-x0)*(py-y0) - (px-x0)*(y1-y0)
			e1 := (x2-x1)*(py-y1) - (px-x1)*(y2-y1)
			e2 := (x0-x2)*(py-y2) - (px-x2)*(y0-y2)
			inside := (e0 >= 0 && e1 >= 0 && e2 >= 0) || (e0 <= 0 && e1 <= 0 && e2 <= 0)
			if !inside {
				continue
			}
			idx := y*d.width + x
			cur := d.stencil[idx]
			if d.stencilPass(cur) {
				d.stencil[idx] = applyOp(op[2], cur, d.state.stencilRef, d.state.stencilMask)
			} else {
				d.stencil[idx] = applyOp(op[0], cur, d.state.stencilRef, d.state.stencilMask)
			}
		}
	}
}

func (d *Device) stencilPass(cur uint8) bool {
	ref := uint32(d.state.stencilRef) & d.state.stencilCmpMask
	val := uint32(cur) & d.state.stencilCmpMask
	switch d.state.stencilCmp {
	case driver.CompareAlways:
		return true
	case driver.CompareNever:
		return false
	case driver.CompareEqual:
		return val == ref
	case driver.CompareNotEqual:
		return val != ref
	case driver.CompareLess:
		return ref < val
	case driver.CompareLessEqual:
		return ref <= val
	case driver.CompareGreater:
		return ref > val
	case driver.CompareGreaterEqual:
		return ref >= val
	default:
		return true
	}
}

func applyOp(op driver.StencilOp, cur uint8, ref int, writeMask uint32) uint8 {
	var v uint8
	switch op {
	case driver.StencilOpKeep:
		return cur
	case driver.StencilOpZero:
		v = 0
	case driver.StencilOpReplace:
		v = uint8(ref)
	case driver.StencilOpIncr:
		if cur == 0xff {
			v = 0xff
		} else {
			v = cur + 1
		}
	case driver.StencilOpIncrWrap:
		v = cur + 1
	case driver.StencilOpDecr:
		if cur == 0 {
			v = 0
		} else {
			v = cur - 1
		}
	case driver.StencilOpDecrWrap:
		v = cur - 1
	case driver.StencilOpInvert:
		v = ^cur
	default:
		return cur
	}
	mask := uint8(writeMask)
	return (cur &^ mask) | (v & mask)
}

func clampI(v, lo, hi int) int {
	switch {
	case v < lo:
		return lo
	case v > hi:
		return hi
	default:
		return v
	}
}

func minF(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func maxF(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}
