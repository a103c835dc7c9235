// SPDX-License-Identifier: Unlicense OR MIT

package gpu

import (
	"math"

	"github.com/pictorui/pictor/cell"
	"github.com/pictorui/pictor/f32"
	"github.com/pictorui/pictor/gpu/driver"
	"github.com/pictorui/pictor/internal/ops"
)

// Base is the context injected when painting a nested cell: its paths,
// paints and scissors are transformed by Xform, clipped by Scissor when
// they carry none of their own, and faded by Alpha.
type Base struct {
	Xform   f32.Affine2D
	Scissor cell.Scissor
	Alpha   float32
}

// NoBase is the neutral nesting context.
func NoBase() Base {
	return Base{
		Scissor: cell.Scissor{Extent: f32.Pt(-1, -1)},
		Alpha:   1,
	}
}

// paintCell interprets a recorded cell: path records feed the builder,
// fill/stroke/glyph records expand geometry into the frame buffers.
// State setter records are descriptive only; the snapshots referenced
// by the directives are authoritative.
func (c *Canvas) paintCell(cl *cell.Cell, base Base) {
	states := cl.States()
	ident := base.Xform == f32.Affine2D{}
	xf := func(p f32.Point) f32.Point {
		if ident {
			return p
		}
		return base.Xform.Transform(p)
	}
	b := &c.builder
	var r ops.Reader
	r.Reset(cl.Commands())
	for {
		op, ok := r.Decode()
		if !ok {
			break
		}
		switch ops.OpType(op.Data[0]) {
		case ops.TypeBeginPath:
			b.reset()
		case ops.TypeMoveTo:
			b.moveTo(xf(ops.DecodePoint(op.Data[1:])))
		case ops.TypeLineTo:
			b.lineTo(xf(ops.DecodePoint(op.Data[1:])))
		case ops.TypeBezierTo:
			b.bezierTo(
				xf(ops.DecodePoint(op.Data[1:])),
				xf(ops.DecodePoint(op.Data[9:])),
				xf(ops.DecodePoint(op.Data[17:])))
		case ops.TypeClose:
			b.close()
		case ops.TypeWinding:
			b.setWinding(cell.Winding(op.Data[1]))
		case ops.TypeFill:
			if idx := ops.DecodeUint32(op.Data[1:]); int(idx) < len(states) {
				c.fillPath(states[idx], base)
			}
		case ops.TypeStroke:
			if idx := ops.DecodeUint32(op.Data[1:]); int(idx) < len(states) {
				c.strokePath(states[idx], base)
			}
		case ops.TypeGlyphs:
			idx := ops.DecodeUint32(op.Data[1:])
			nverts := int(ops.DecodeUint32(op.Data[5:]))
			if int(idx) >= len(states) {
				break
			}
			tex, _ := op.Refs[0].(driver.Texture)
			c.textGlyphs(states[idx], base, op.Data[ops.TypeGlyphsLen:], nverts, tex)
		}
	}
}

// resolvePaint folds the nesting context and the state alpha into a
// paint: the base transform premultiplies the paint transform and the
// combined alpha scales both colors.
func resolvePaint(p cell.Paint, base Base, stateAlpha float32) cell.Paint {
	if (base.Xform != f32.Affine2D{}) {
		p.Xform = base.Xform.Mul(p.Xform)
	}
	if a := stateAlpha * base.Alpha; a != 1 {
		p.InnerColor = p.InnerColor.MulAlpha(a)
		p.OuterColor = p.OuterColor.MulAlpha(a)
	}
	return p
}

func resolveScissor(s cell.Scissor, base Base) cell.Scissor {
	if s.Empty() {
		return base.Scissor
	}
	if (base.Xform != f32.Affine2D{}) {
		s.Xform = base.Xform.Mul(s.Xform)
	}
	return s
}

func (c *Canvas) fillPath(st cell.State, base Base) {
	b := &c.builder
	b.flatten(c.opts.tessTol, c.opts.distTol)
	if len(b.paths) == 0 {
		return
	}
	var fringe float32
	if c.opts.geometricAA {
		fringe = c.opts.fringeWidth
	}
	pathOffset := len(c.frame.paths)
	verts, convex := expandFill(c.frame.verts, b, fringe, cell.MiterJoin, 2.4)
	c.frame.verts = verts
	c.frame.paths = append(c.frame.paths, b.paths...)

	paint := resolvePaint(st.Fill, base, st.Alpha)
	scissor := resolveScissor(st.Scissor, base)

	cl := call{
		typ:        callConvexFill,
		pathOffset: pathOffset,
		pathCount:  len(b.paths),
		texture:    paint.Texture,
		blend:      blendFunc(st.Blend),
	}
	if convex {
		cl.uniformOffset = c.allocFrag(1)
		paintToFrag(c.fragAt(cl.uniformOffset), paint, scissor, c.opts.fringeWidth, c.opts.fringeWidth, -1)
	} else {
		cl.typ = callFill
		// Cover quad over the path bounds, drawn in the final stencil
		// pass.
		bounds := b.bounds
		cl.triangleOffset = len(c.frame.verts)
		cl.triangleCount = 6
		c.frame.verts = append(c.frame.verts,
			vert(bounds.Min.X, bounds.Min.Y, 0.5, 1),
			vert(bounds.Max.X, bounds.Min.Y, 0.5, 1),
			vert(bounds.Max.X, bounds.Max.Y, 0.5, 1),
			vert(bounds.Min.X, bounds.Min.Y, 0.5, 1),
			vert(bounds.Max.X, bounds.Max.Y, 0.5, 1),
			vert(bounds.Min.X, bounds.Max.Y, 0.5, 1))
		cl.uniformOffset = c.allocFrag(2)
		// First block fills the stencil, second covers with the paint.
		stencilFrag := c.fragAt(cl.uniformOffset)
		*stencilFrag = shaderVariables{strokeThr: -1, paintType: fragStencil}
		paintToFrag(c.fragAt(cl.uniformOffset+c.fragSize), paint, scissor, c.opts.fringeWidth, c.opts.fringeWidth, -1)
	}
	c.frame.calls = append(c.frame.calls, cl)
}

func (c *Canvas) strokePath(st cell.State, base Base) {
	b := &c.builder
	b.flatten(c.opts.tessTol, c.opts.distTol)
	if len(b.paths) == 0 {
		return
	}
	scale := averageScale(base.Xform.Mul(st.Xform))
	w := clampF(st.StrokeWidth*scale, 0, 200)
	alpha := st.Alpha
	var fringe float32
	if c.opts.geometricAA {
		fringe = c.opts.fringeWidth
	}
	if w < c.opts.fringeWidth && c.opts.geometricAA {
		// Sub-pixel strokes keep full fringe width and fade by
		// coverage instead.
		a := clampF(w/c.opts.fringeWidth, 0, 1)
		alpha *= a * a
		w = c.opts.fringeWidth
	}
	paint := resolvePaint(st.Stroke, base, alpha)
	scissor := resolveScissor(st.Scissor, base)

	pathOffset := len(c.frame.paths)
	c.frame.verts = expandStroke(c.frame.verts, b, w*0.5, fringe, c.opts.tessTol, st.Cap, st.Join, st.MiterLimit)
	c.frame.paths = append(c.frame.paths, b.paths...)

	cl := call{
		typ:        callStroke,
		pathOffset: pathOffset,
		pathCount:  len(b.paths),
		texture:    paint.Texture,
		blend:      blendFunc(st.Blend),
	}
	if c.opts.stencilStrokes {
		cl.uniformOffset = c.allocFrag(2)
		paintToFrag(c.fragAt(cl.uniformOffset), paint, scissor, w, c.opts.fringeWidth, -1)
		paintToFrag(c.fragAt(cl.uniformOffset+c.fragSize), paint, scissor, w, c.opts.fringeWidth, 1-0.5/c.opts.fringeWidth)
	} else {
		cl.uniformOffset = c.allocFrag(1)
		paintToFrag(c.fragAt(cl.uniformOffset), paint, scissor, w, c.opts.fringeWidth, -1)
	}
	c.frame.calls = append(c.frame.calls, cl)
}

func (c *Canvas) textGlyphs(st cell.State, base Base, data []byte, nverts int, tex driver.Texture) {
	if nverts == 0 || tex == nil {
		return
	}
	ident := base.Xform == f32.Affine2D{}
	triangleOffset := len(c.frame.verts)
	for i := 0; i < nverts; i++ {
		off := i * ops.GlyphVertexLen
		pos := f32.Pt(ops.DecodeFloat32(data[off:]), ops.DecodeFloat32(data[off+4:]))
		if !ident {
			pos = base.Xform.Transform(pos)
		}
		c.frame.verts = append(c.frame.verts, vert(pos.X, pos.Y,
			ops.DecodeFloat32(data[off+8:]), ops.DecodeFloat32(data[off+12:])))
	}
	paint := resolvePaint(st.Fill, base, st.Alpha)
	paint.Texture = tex
	scissor := resolveScissor(st.Scissor, base)

	cl := call{
		typ:            callText,
		triangleOffset: triangleOffset,
		triangleCount:  nverts,
		texture:        tex,
		blend:          blendFunc(st.Blend),
	}
	cl.uniformOffset = c.allocFrag(1)
	frag := c.fragAt(cl.uniformOffset)
	paintToFrag(frag, paint, scissor, 1, c.opts.fringeWidth, -1)
	frag.paintType = fragText
	frag.texType = texTypeAlpha
	c.frame.calls = append(c.frame.calls, cl)
}

// averageScale estimates the scale factor of a transform as the mean
// of its column norms.
func averageScale(t f32.Affine2D) float32 {
	sx, hx, _, hy, sy, _ := t.Elems()
	return (float32(math.Sqrt(float64(sx*sx+hy*hy))) +
		float32(math.Sqrt(float64(hx*hx+sy*sy)))) * 0.5
}
