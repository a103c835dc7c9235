// SPDX-License-Identifier: Unlicense OR MIT

package cell

import (
	"math"

	"github.com/pictorui/pictor/f32"
	"github.com/pictorui/pictor/gpu/driver"
	"github.com/pictorui/pictor/internal/f32color"
	"github.com/pictorui/pictor/internal/ops"
)

// KAPPA90 is the Bézier control offset approximating a 90 degree arc.
const kappa90 = 0.5522847493

// penTol is the recorder-side tolerance for degenerate arc inputs.
const penTol = 0.01

// Painter records drawing commands into a Cell. It keeps a state stack
// whose top frame transforms path coordinates at record time; the
// recorded path buffer holds world-space points. A Painter borrows its
// Cell and must not outlive it.
type Painter struct {
	cell   *Cell
	states []State
	// pen is the current point in local coordinates, valid after a
	// sub-path has been opened.
	pen    f32.Point
	hasPen bool
}

// GlyphQuad is one positioned glyph rectangle with its atlas uv-rect.
type GlyphQuad struct {
	Rect f32.Rectangle
	UV   f32.Rectangle
}

// NewPainter returns a recorder targeting c. The state stack starts
// with a single default frame.
func NewPainter(c *Cell) *Painter {
	return &Painter{
		cell:   c,
		states: []State{defaultState()},
	}
}

func (p *Painter) top() *State {
	return &p.states[len(p.states)-1]
}

// PushState duplicates the top state frame and returns the new depth.
func (p *Painter) PushState() int {
	p.states = append(p.states, *p.top())
	return len(p.states)
}

// PopState drops the top state frame. Popping the last frame is a
// no-op.
func (p *Painter) PopState() {
	if len(p.states) == 1 {
		return
	}
	p.states = p.states[:len(p.states)-1]
	p.recordState()
}

// ResetState restores the top frame to the default state.
func (p *Painter) ResetState() {
	*p.top() = defaultState()
	p.recordState()
}

// SetXform replaces the current transform.
func (p *Painter) SetXform(m f32.Affine2D) {
	p.top().Xform = m
	p.recordXform()
}

// ResetXform restores the identity transform.
func (p *Painter) ResetXform() {
	p.SetXform(f32.Affine2D{})
}

// Concat applies m in local coordinates, before the current transform.
func (p *Painter) Concat(m f32.Affine2D) {
	s := p.top()
	s.Xform = s.Xform.Mul(m)
	p.recordXform()
}

func (p *Painter) Translate(offset f32.Point) {
	p.Concat(f32.Affine2D{}.Offset(offset))
}

// Rotate turns subsequent coordinates counter-clockwise by rad radians
// about the local origin.
func (p *Painter) Rotate(rad float32) {
	p.Concat(f32.Affine2D{}.Rotate(f32.Point{}, rad))
}

func (p *Painter) Scale(sx, sy float32) {
	p.Concat(f32.NewAffine2D(sx, 0, 0, 0, sy, 0))
}

func (p *Painter) Shear(radX, radY float32) {
	p.Concat(f32.Affine2D{}.Shear(f32.Point{}, radX, radY))
}

// SetScissor clips subsequent fills and strokes to r, oriented by the
// current transform.
func (p *Painter) SetScissor(r f32.Rectangle) {
	s := p.top()
	r = r.Canon()
	w := maxF(0, r.Dx())
	h := maxF(0, r.Dy())
	center := f32.Pt(r.Min.X+w*0.5, r.Min.Y+h*0.5)
	s.Scissor = Scissor{
		Xform:  s.Xform.Mul(f32.Affine2D{}.Offset(center)),
		Extent: f32.Pt(w*0.5, h*0.5),
	}
	p.recordScissor()
}

// RemoveScissor disables clipping.
func (p *Painter) RemoveScissor() {
	p.top().Scissor = Scissor{Extent: f32.Pt(-1, -1)}
	p.recordScissor()
}

func (p *Painter) SetFillColor(col f32color.RGBA) {
	p.SetFillPaint(ColorPaint(col))
}

func (p *Painter) SetFillPaint(paint Paint) {
	p.top().Fill = paint
	p.recordPaint(ops.TypeFillPaint, paint)
}

func (p *Painter) SetStrokeColor(col f32color.RGBA) {
	p.SetStrokePaint(ColorPaint(col))
}

func (p *Painter) SetStrokePaint(paint Paint) {
	p.top().Stroke = paint
	p.recordPaint(ops.TypeStrokePaint, paint)
}

// SetStrokeWidth sets the stroke width in local units. Negative widths
// clamp to zero; a zero width draws a hairline whose coverage comes
// from the antialiasing fringe alone.
func (p *Painter) SetStrokeWidth(w float32) {
	if w < 0 {
		w = 0
	}
	p.top().StrokeWidth = w
	p.recordFloat(ops.TypeStrokeWidth, w)
}

// SetMiterLimit bounds the miter extension before joins degenerate to
// bevels. Limits below 1 clamp to 1.
func (p *Painter) SetMiterLimit(limit float32) {
	if limit < 1 {
		limit = 1
	}
	p.top().MiterLimit = limit
	p.recordFloat(ops.TypeMiterLimit, limit)
}

// SetAlpha scales the alpha of subsequent fills and strokes, clamped
// to [0, 1].
func (p *Painter) SetAlpha(a float32) {
	if a < 0 {
		a = 0
	} else if a > 1 {
		a = 1
	}
	p.top().Alpha = a
	p.recordFloat(ops.TypeAlpha, a)
}

func (p *Painter) SetBlendMode(mode BlendMode) {
	p.top().Blend = mode
	p.recordByte(ops.TypeBlend, byte(mode))
}

func (p *Painter) SetLineCap(cap LineCap) {
	p.top().Cap = cap
	p.recordByte(ops.TypeLineCap, byte(cap))
}

func (p *Painter) SetLineJoin(join LineJoin) {
	p.top().Join = join
	p.recordByte(ops.TypeLineJoin, byte(join))
}

// BeginPath starts a new path group, discarding any recorded path
// commands not yet consumed by a fill or stroke.
func (p *Painter) BeginPath() {
	data := p.cell.ops.Write(ops.TypeBeginPathLen)
	data[0] = byte(ops.TypeBeginPath)
	p.hasPen = false
}

// MoveTo opens a new sub-path at pt.
func (p *Painter) MoveTo(pt f32.Point) {
	p.pen = pt
	p.hasPen = true
	p.recordPoint(ops.TypeMoveTo, pt)
}

// LineTo appends a linear segment from the current point to pt.
func (p *Painter) LineTo(pt f32.Point) {
	p.pen = pt
	p.hasPen = true
	p.recordPoint(ops.TypeLineTo, pt)
}

// QuadTo appends a quadratic segment, promoted to the equivalent
// cubic.
func (p *Painter) QuadTo(ctrl, end f32.Point) {
	pen := p.pen
	c1 := f32.Pt(pen.X+2.0/3.0*(ctrl.X-pen.X), pen.Y+2.0/3.0*(ctrl.Y-pen.Y))
	c2 := f32.Pt(end.X+2.0/3.0*(ctrl.X-end.X), end.Y+2.0/3.0*(ctrl.Y-end.Y))
	p.BezierTo(c1, c2, end)
}

// BezierTo appends a cubic Bézier segment.
func (p *Painter) BezierTo(c1, c2, end f32.Point) {
	s := p.top()
	data := p.cell.ops.Write(ops.TypeBezierToLen)
	data[0] = byte(ops.TypeBezierTo)
	ops.PutPoint(data[1:], s.Xform.Transform(c1))
	ops.PutPoint(data[9:], s.Xform.Transform(c2))
	ops.PutPoint(data[17:], s.Xform.Transform(end))
	p.pen = end
	p.hasPen = true
}

// ClosePath marks the current sub-path as closed.
func (p *Painter) ClosePath() {
	data := p.cell.ops.Write(ops.TypeCloseLen)
	data[0] = byte(ops.TypeClose)
}

// SetWinding declares the orientation of the current sub-path, used to
// carve holes out of concave fills.
func (p *Painter) SetWinding(w Winding) {
	p.recordByte(ops.TypeWinding, byte(w))
}

// Arc appends a circular arc of radius r around center, sweeping from
// angle a0 to a1 (radians) in direction dir. The arc connects to the
// current point with a line when a sub-path is open.
func (p *Painter) Arc(center f32.Point, r, a0, a1 float32, dir Winding) {
	da := a1 - a0
	if dir == CW {
		if absF(da) >= 2*math.Pi {
			da = 2 * math.Pi
		} else {
			for da < 0 {
				da += 2 * math.Pi
			}
		}
	} else {
		if absF(da) >= 2*math.Pi {
			da = -2 * math.Pi
		} else {
			for da > 0 {
				da -= 2 * math.Pi
			}
		}
	}
	ndivs := int(absF(da)/(math.Pi*0.5) + 0.5)
	if ndivs < 1 {
		ndivs = 1
	} else if ndivs > 5 {
		ndivs = 5
	}
	hda := (da / float32(ndivs)) / 2
	sin, cos := math.Sincos(float64(hda))
	kappa := absF(4.0 / 3.0 * (1.0 - float32(cos)) / float32(sin))
	if dir == CCW {
		kappa = -kappa
	}
	var px, py, ptanx, ptany float32
	for i := 0; i <= ndivs; i++ {
		a := a0 + da*(float32(i)/float32(ndivs))
		sin, cos := math.Sincos(float64(a))
		dx, dy := float32(cos), float32(sin)
		x := center.X + dx*r
		y := center.Y + dy*r
		tanx := -dy * r * kappa
		tany := dx * r * kappa
		if i == 0 {
			if p.hasPen {
				p.LineTo(f32.Pt(x, y))
			} else {
				p.MoveTo(f32.Pt(x, y))
			}
		} else {
			p.BezierTo(f32.Pt(px+ptanx, py+ptany), f32.Pt(x-tanx, y-tany), f32.Pt(x, y))
		}
		px, py = x, y
		ptanx, ptany = tanx, tany
	}
}

// ArcTo appends an arc of the given radius tangent to the rays from
// the current point to p1 and from p1 to p2. Degenerate configurations
// fall back to a line to p1.
func (p *Painter) ArcTo(p1, p2 f32.Point, radius float32) {
	if !p.hasPen {
		return
	}
	p0 := p.pen
	if ptEquals(p0, p1, penTol) || ptEquals(p1, p2, penTol) ||
		distPtSeg(p1, p0, p2) < penTol*penTol || radius < penTol {
		p.LineTo(p1)
		return
	}
	dx0, dy0 := normalize(p0.X-p1.X, p0.Y-p1.Y)
	dx1, dy1 := normalize(p2.X-p1.X, p2.Y-p1.Y)
	a := float32(math.Acos(float64(dx0*dx1 + dy0*dy1)))
	d := radius / float32(math.Tan(float64(a)/2))
	if d > 10000 {
		p.LineTo(p1)
		return
	}
	var cx, cy, a0, a1 float32
	var dir Winding
	if dx0*dy1-dx1*dy0 > 0 {
		cx = p1.X + dx0*d + dy0*radius
		cy = p1.Y + dy0*d - dx0*radius
		a0 = atan2(dx0, -dy0)
		a1 = atan2(-dx1, dy1)
		dir = CW
	} else {
		cx = p1.X + dx0*d - dy0*radius
		cy = p1.Y + dy0*d + dx0*radius
		a0 = atan2(-dx0, dy0)
		a1 = atan2(dx1, -dy1)
		dir = CCW
	}
	p.Arc(f32.Pt(cx, cy), radius, a0, a1, dir)
}

// Rect appends a closed rectangular sub-path.
func (p *Painter) Rect(r f32.Rectangle) {
	r = r.Canon()
	p.MoveTo(r.Min)
	p.LineTo(f32.Pt(r.Min.X, r.Max.Y))
	p.LineTo(r.Max)
	p.LineTo(f32.Pt(r.Max.X, r.Min.Y))
	p.ClosePath()
}

// RoundedRect appends a closed rectangle with rounded corners. A
// radius below 0.1 degenerates to a plain rectangle.
func (p *Painter) RoundedRect(r f32.Rectangle, radius float32) {
	if radius < 0.1 {
		p.Rect(r)
		return
	}
	r = r.Canon()
	x, y := r.Min.X, r.Min.Y
	w, h := r.Dx(), r.Dy()
	rx := minF(radius, w*0.5)
	ry := minF(radius, h*0.5)
	p.MoveTo(f32.Pt(x, y+ry))
	p.LineTo(f32.Pt(x, y+h-ry))
	p.BezierTo(f32.Pt(x, y+h-ry*(1-kappa90)), f32.Pt(x+rx*(1-kappa90), y+h), f32.Pt(x+rx, y+h))
	p.LineTo(f32.Pt(x+w-rx, y+h))
	p.BezierTo(f32.Pt(x+w-rx*(1-kappa90), y+h), f32.Pt(x+w, y+h-ry*(1-kappa90)), f32.Pt(x+w, y+h-ry))
	p.LineTo(f32.Pt(x+w, y+ry))
	p.BezierTo(f32.Pt(x+w, y+ry*(1-kappa90)), f32.Pt(x+w-rx*(1-kappa90), y), f32.Pt(x+w-rx, y))
	p.LineTo(f32.Pt(x+rx, y))
	p.BezierTo(f32.Pt(x+rx*(1-kappa90), y), f32.Pt(x, y+ry*(1-kappa90)), f32.Pt(x, y+ry))
	p.ClosePath()
}

// Ellipse appends a closed elliptic sub-path around center.
func (p *Painter) Ellipse(center f32.Point, rx, ry float32) {
	cx, cy := center.X, center.Y
	p.MoveTo(f32.Pt(cx-rx, cy))
	p.BezierTo(f32.Pt(cx-rx, cy+ry*kappa90), f32.Pt(cx-rx*kappa90, cy+ry), f32.Pt(cx, cy+ry))
	p.BezierTo(f32.Pt(cx+rx*kappa90, cy+ry), f32.Pt(cx+rx, cy+ry*kappa90), f32.Pt(cx+rx, cy))
	p.BezierTo(f32.Pt(cx+rx, cy-ry*kappa90), f32.Pt(cx+rx*kappa90, cy-ry), f32.Pt(cx, cy-ry))
	p.BezierTo(f32.Pt(cx-rx*kappa90, cy-ry), f32.Pt(cx-rx, cy-ry*kappa90), f32.Pt(cx-rx, cy))
	p.ClosePath()
}

// Circle appends a closed circular sub-path around center.
func (p *Painter) Circle(center f32.Point, r float32) {
	p.Ellipse(center, r, r)
}

// Fill records a fill of the current path with the current state.
func (p *Painter) Fill() {
	idx := p.cell.snapshot(*p.top())
	data := p.cell.ops.Write(ops.TypeFillLen)
	data[0] = byte(ops.TypeFill)
	ops.PutUint32(data[1:], idx)
}

// Stroke records a stroke of the current path with the current state.
func (p *Painter) Stroke() {
	idx := p.cell.snapshot(*p.top())
	data := p.cell.ops.Write(ops.TypeStrokeLen)
	data[0] = byte(ops.TypeStroke)
	ops.PutUint32(data[1:], idx)
}

// Glyphs records a run of glyph quads textured by the font atlas tex.
// Quad corners are transformed at record time like path points.
func (p *Painter) Glyphs(quads []GlyphQuad, tex driver.Texture) {
	if len(quads) == 0 {
		return
	}
	s := p.top()
	idx := p.cell.snapshot(*s)
	nverts := 6 * len(quads)
	var ref interface{}
	if tex != nil {
		ref = tex
	}
	data := p.cell.ops.Write1(ops.TypeGlyphsLen+nverts*ops.GlyphVertexLen, ref)
	data[0] = byte(ops.TypeGlyphs)
	ops.PutUint32(data[1:], idx)
	ops.PutUint32(data[5:], uint32(nverts))
	off := ops.TypeGlyphsLen
	put := func(pos, uv f32.Point) {
		pos = s.Xform.Transform(pos)
		ops.PutFloat32(data[off:], pos.X)
		ops.PutFloat32(data[off+4:], pos.Y)
		ops.PutFloat32(data[off+8:], uv.X)
		ops.PutFloat32(data[off+12:], uv.Y)
		off += ops.GlyphVertexLen
	}
	for _, q := range quads {
		put(q.Rect.Min, q.UV.Min)
		put(f32.Pt(q.Rect.Max.X, q.Rect.Min.Y), f32.Pt(q.UV.Max.X, q.UV.Min.Y))
		put(q.Rect.Max, q.UV.Max)
		put(q.Rect.Min, q.UV.Min)
		put(q.Rect.Max, q.UV.Max)
		put(f32.Pt(q.Rect.Min.X, q.Rect.Max.Y), f32.Pt(q.UV.Min.X, q.UV.Max.Y))
	}
}

func (p *Painter) recordPoint(t ops.OpType, pt f32.Point) {
	data := p.cell.ops.Write(t.Size())
	data[0] = byte(t)
	ops.PutPoint(data[1:], p.top().Xform.Transform(pt))
}

func (p *Painter) recordXform() {
	data := p.cell.ops.Write(ops.TypeXformLen)
	data[0] = byte(ops.TypeXform)
	ops.PutAffine(data[1:], p.top().Xform)
}

func (p *Painter) recordScissor() {
	s := p.top().Scissor
	data := p.cell.ops.Write(ops.TypeScissorLen)
	data[0] = byte(ops.TypeScissor)
	ops.PutAffine(data[1:], s.Xform)
	ops.PutPoint(data[25:], s.Extent)
}

func (p *Painter) recordPaint(t ops.OpType, paint Paint) {
	var ref interface{}
	textured := byte(0)
	if paint.Texture != nil {
		ref = paint.Texture
		textured = 1
	}
	data := p.cell.ops.Write1(ops.TypePaintLen, ref)
	data[0] = byte(t)
	ops.PutAffine(data[1:], paint.Xform)
	ops.PutPoint(data[25:], paint.Extent)
	ops.PutFloat32(data[33:], paint.Radius)
	ops.PutFloat32(data[37:], paint.Feather)
	putColor(data[41:], paint.InnerColor)
	putColor(data[57:], paint.OuterColor)
	data[73] = textured
}

func (p *Painter) recordFloat(t ops.OpType, v float32) {
	data := p.cell.ops.Write(t.Size())
	data[0] = byte(t)
	ops.PutFloat32(data[1:], v)
}

func (p *Painter) recordByte(t ops.OpType, v byte) {
	data := p.cell.ops.Write(t.Size())
	data[0] = byte(t)
	data[1] = v
}

// recordState re-emits every setter after a state frame is restored,
// keeping the recorded stream self-describing.
func (p *Painter) recordState() {
	s := p.top()
	p.recordXform()
	p.recordScissor()
	p.recordPaint(ops.TypeFillPaint, s.Fill)
	p.recordPaint(ops.TypeStrokePaint, s.Stroke)
	p.recordFloat(ops.TypeStrokeWidth, s.StrokeWidth)
	p.recordFloat(ops.TypeAlpha, s.Alpha)
	p.recordFloat(ops.TypeMiterLimit, s.MiterLimit)
	p.recordByte(ops.TypeBlend, byte(s.Blend))
	p.recordByte(ops.TypeLineCap, byte(s.Cap))
	p.recordByte(ops.TypeLineJoin, byte(s.Join))
}

func putColor(data []byte, col f32color.RGBA) {
	ops.PutFloat32(data[0:], col.R)
	ops.PutFloat32(data[4:], col.G)
	ops.PutFloat32(data[8:], col.B)
	ops.PutFloat32(data[12:], col.A)
}

func absF(v float32) float32 {
	return float32(math.Abs(float64(v)))
}

func minF(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func atan2(y, x float32) float32 {
	return float32(math.Atan2(float64(y), float64(x)))
}

func normalize(x, y float32) (float32, float32) {
	d := float32(math.Hypot(float64(x), float64(y)))
	if d > 1e-6 {
		x /= d
		y /= d
	}
	return x, y
}

func ptEquals(a, b f32.Point, tol float32) bool {
	dx := b.X - a.X
	dy := b.Y - a.Y
	return dx*dx+dy*dy < tol*tol
}

// distPtSeg returns the squared distance from p to the segment ab.
func distPtSeg(p, a, b f32.Point) float32 {
	pqx := b.X - a.X
	pqy := b.Y - a.Y
	dx := p.X - a.X
	dy := p.Y - a.Y
	d := pqx*pqx + pqy*pqy
	t := pqx*dx + pqy*dy
	if d > 0 {
		t /= d
	}
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	dx = a.X + t*pqx - p.X
	dy = a.Y + t*pqy - p.Y
	return dx*dx + dy*dy
}
