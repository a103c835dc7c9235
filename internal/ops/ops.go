// SPDX-License-Identifier: Unlicense OR MIT

// Package ops implements the serialized command stream recorded into a
// cell. Commands are stored as variable length records tagged by a one
// byte opcode, with payloads encoded little-endian. References to Go
// values (textures) travel in a parallel refs list so the data buffer
// stays free of pointers.
package ops

import (
	"encoding/binary"
	"math"

	"github.com/pictorui/pictor/f32"
)

// Ops holds a list of serialized commands. The buffer is append-only;
// Reset drops all commands and bumps the version so stale readers can
// detect reuse.
type Ops struct {
	// version is incremented at each Reset.
	version int
	// data contains the serialized commands.
	data []byte
	// refs hold external references for commands.
	refs []interface{}
}

type OpType byte

const (
	TypeMoveTo      OpType = 0x01
	TypeLineTo      OpType = 0x02
	TypeBezierTo    OpType = 0x03
	TypeClose       OpType = 0x04
	TypeWinding     OpType = 0x05
	TypeBeginPath   OpType = 0x10
	TypeFill        OpType = 0x20
	TypeStroke      OpType = 0x21
	TypeGlyphs      OpType = 0x22
	TypeXform       OpType = 0x30
	TypeScissor     OpType = 0x31
	TypeFillPaint   OpType = 0x32
	TypeStrokePaint OpType = 0x33
	TypeStrokeWidth OpType = 0x34
	TypeAlpha       OpType = 0x35
	TypeBlend       OpType = 0x36
	TypeLineCap     OpType = 0x37
	TypeLineJoin    OpType = 0x38
	TypeMiterLimit  OpType = 0x39
)

const (
	TypeMoveToLen    = 1 + 4*2
	TypeLineToLen    = 1 + 4*2
	TypeBezierToLen  = 1 + 4*6
	TypeCloseLen     = 1
	TypeWindingLen   = 1 + 1
	TypeBeginPathLen = 1
	TypeFillLen      = 1 + 4
	TypeStrokeLen    = 1 + 4
	// TypeGlyphsLen is the fixed prefix of a glyphs record. The glyph
	// quads follow, GlyphVertexLen bytes per vertex.
	TypeGlyphsLen      = 1 + 4 + 4
	TypeXformLen       = 1 + 4*6
	TypeScissorLen     = 1 + 4*6 + 4*2
	TypePaintLen       = 1 + 4*6 + 4*2 + 4 + 4 + 4*4 + 4*4 + 1
	TypeStrokeWidthLen = 1 + 4
	TypeAlphaLen       = 1 + 4
	TypeBlendLen       = 1 + 1
	TypeLineCapLen     = 1 + 1
	TypeLineJoinLen    = 1 + 1
	TypeMiterLimitLen  = 1 + 4
)

// GlyphVertexLen is the encoded size of one glyph vertex (x, y, u, v).
const GlyphVertexLen = 4 * 4

// Size returns the fixed encoded length of records of type t. The total
// length of a TypeGlyphs record is its fixed prefix plus the vertex
// data it declares.
func (t OpType) Size() int {
	switch t {
	case TypeMoveTo:
		return TypeMoveToLen
	case TypeLineTo:
		return TypeLineToLen
	case TypeBezierTo:
		return TypeBezierToLen
	case TypeClose:
		return TypeCloseLen
	case TypeWinding:
		return TypeWindingLen
	case TypeBeginPath:
		return TypeBeginPathLen
	case TypeFill:
		return TypeFillLen
	case TypeStroke:
		return TypeStrokeLen
	case TypeGlyphs:
		return TypeGlyphsLen
	case TypeXform:
		return TypeXformLen
	case TypeScissor:
		return TypeScissorLen
	case TypeFillPaint, TypeStrokePaint:
		return TypePaintLen
	case TypeStrokeWidth:
		return TypeStrokeWidthLen
	case TypeAlpha:
		return TypeAlphaLen
	case TypeBlend:
		return TypeBlendLen
	case TypeLineCap:
		return TypeLineCapLen
	case TypeLineJoin:
		return TypeLineJoinLen
	case TypeMiterLimit:
		return TypeMiterLimitLen
	default:
		panic("unknown OpType")
	}
}

// NumRefs returns the number of external references carried by records
// of type t. Paint and glyph records always carry exactly one ref, nil
// when no texture is attached, to keep record decoding regular.
func (t OpType) NumRefs() int {
	switch t {
	case TypeFillPaint, TypeStrokePaint, TypeGlyphs:
		return 1
	default:
		return 0
	}
}

func (t OpType) String() string {
	switch t {
	case TypeMoveTo:
		return "MoveTo"
	case TypeLineTo:
		return "LineTo"
	case TypeBezierTo:
		return "BezierTo"
	case TypeClose:
		return "Close"
	case TypeWinding:
		return "Winding"
	case TypeBeginPath:
		return "BeginPath"
	case TypeFill:
		return "Fill"
	case TypeStroke:
		return "Stroke"
	case TypeGlyphs:
		return "Glyphs"
	case TypeXform:
		return "Xform"
	case TypeScissor:
		return "Scissor"
	case TypeFillPaint:
		return "FillPaint"
	case TypeStrokePaint:
		return "StrokePaint"
	case TypeStrokeWidth:
		return "StrokeWidth"
	case TypeAlpha:
		return "Alpha"
	case TypeBlend:
		return "Blend"
	case TypeLineCap:
		return "LineCap"
	case TypeLineJoin:
		return "LineJoin"
	case TypeMiterLimit:
		return "MiterLimit"
	default:
		panic("unknown OpType")
	}
}

func (o *Ops) Reset() {
	// Leave references to the GC.
	for i := range o.refs {
		o.refs[i] = nil
	}
	o.data = o.data[:0]
	o.refs = o.refs[:0]
	o.version++
}

func (o *Ops) Data() []byte {
	return o.data
}

func (o *Ops) Refs() []interface{} {
	return o.refs
}

func (o *Ops) Version() int {
	return o.version
}

func (o *Ops) Write(n int) []byte {
	o.data = append(o.data, make([]byte, n)...)
	return o.data[len(o.data)-n:]
}

func (o *Ops) Write1(n int, ref1 interface{}) []byte {
	o.data = append(o.data, make([]byte, n)...)
	o.refs = append(o.refs, ref1)
	return o.data[len(o.data)-n:]
}

// PutPoint encodes p at the start of data.
func PutPoint(data []byte, p f32.Point) {
	bo := binary.LittleEndian
	bo.PutUint32(data[0:], math.Float32bits(p.X))
	bo.PutUint32(data[4:], math.Float32bits(p.Y))
}

// DecodePoint decodes a point from the start of data.
func DecodePoint(data []byte) f32.Point {
	bo := binary.LittleEndian
	return f32.Point{
		X: math.Float32frombits(bo.Uint32(data[0:])),
		Y: math.Float32frombits(bo.Uint32(data[4:])),
	}
}

// PutAffine encodes the six matrix elements of t at the start of data.
func PutAffine(data []byte, t f32.Affine2D) {
	bo := binary.LittleEndian
	sx, hx, ox, hy, sy, oy := t.Elems()
	bo.PutUint32(data[0:], math.Float32bits(sx))
	bo.PutUint32(data[4*1:], math.Float32bits(hx))
	bo.PutUint32(data[4*2:], math.Float32bits(ox))
	bo.PutUint32(data[4*3:], math.Float32bits(hy))
	bo.PutUint32(data[4*4:], math.Float32bits(sy))
	bo.PutUint32(data[4*5:], math.Float32bits(oy))
}

// DecodeAffine decodes a transform from the start of data.
func DecodeAffine(data []byte) f32.Affine2D {
	bo := binary.LittleEndian
	sx := math.Float32frombits(bo.Uint32(data))
	hx := math.Float32frombits(bo.Uint32(data[4*1:]))
	ox := math.Float32frombits(bo.Uint32(data[4*2:]))
	hy := math.Float32frombits(bo.Uint32(data[4*3:]))
	sy := math.Float32frombits(bo.Uint32(data[4*4:]))
	oy := math.Float32frombits(bo.Uint32(data[4*5:]))
	return f32.NewAffine2D(sx, hx, ox, hy, sy, oy)
}

// PutFloat32 encodes f at the start of data.
func PutFloat32(data []byte, f float32) {
	binary.LittleEndian.PutUint32(data, math.Float32bits(f))
}

// DecodeFloat32 decodes a float from the start of data.
func DecodeFloat32(data []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(data))
}

// PutUint32 encodes v at the start of data.
func PutUint32(data []byte, v uint32) {
	binary.LittleEndian.PutUint32(data, v)
}

// DecodeUint32 decodes a uint32 from the start of data.
func DecodeUint32(data []byte) uint32 {
	return binary.LittleEndian.Uint32(data)
}
