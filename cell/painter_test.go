// SPDX-License-Identifier: Unlicense OR MIT

package cell

import (
	"math"
	"testing"

	"github.com/pictorui/pictor/f32"
	"github.com/pictorui/pictor/internal/f32color"
	"github.com/pictorui/pictor/internal/ops"
)

func TestStateStackRoundTrip(t *testing.T) {
	var c Cell
	p := NewPainter(&c)
	p.SetStrokeWidth(3)
	p.SetAlpha(0.25)
	p.SetLineCap(RoundCap)
	p.Translate(f32.Pt(5, 7))
	before := *p.top()

	const depth = 4
	for i := 0; i < depth; i++ {
		p.PushState()
		p.Rotate(float32(i))
		p.SetAlpha(0.1 * float32(i+1))
		p.SetFillColor(f32color.RGBA{R: float32(i) / depth, A: 1})
	}
	for i := 0; i < depth; i++ {
		p.PopState()
	}
	if got := *p.top(); got != before {
		t.Errorf("state after push/pop sequence = %+v, want %+v", got, before)
	}
}

func TestPopLastStateIgnored(t *testing.T) {
	var c Cell
	p := NewPainter(&c)
	p.PopState()
	p.PopState()
	if len(p.states) != 1 {
		t.Fatalf("state stack depth = %d, want 1", len(p.states))
	}
}

func TestParameterClamping(t *testing.T) {
	var c Cell
	p := NewPainter(&c)
	p.SetStrokeWidth(-5)
	if w := p.top().StrokeWidth; w != 0 {
		t.Errorf("negative stroke width recorded as %g, want 0", w)
	}
	p.SetAlpha(3)
	if a := p.top().Alpha; a != 1 {
		t.Errorf("alpha 3 recorded as %g, want 1", a)
	}
	p.SetAlpha(-1)
	if a := p.top().Alpha; a != 0 {
		t.Errorf("alpha -1 recorded as %g, want 0", a)
	}
	p.SetMiterLimit(0.5)
	if l := p.top().MiterLimit; l != 1 {
		t.Errorf("miter limit 0.5 recorded as %g, want 1", l)
	}
}

func TestRecordTimeTransform(t *testing.T) {
	var c Cell
	p := NewPainter(&c)
	p.Translate(f32.Pt(10, 20))
	p.BeginPath()
	p.MoveTo(f32.Pt(1, 2))
	p.LineTo(f32.Pt(3, 4))

	var r ops.Reader
	r.Reset(c.Commands())
	op, ok := r.Decode()
	if !ok || ops.OpType(op.Data[0]) != ops.TypeXform {
		t.Fatalf("expected leading Xform record, got %v", op)
	}
	op, ok = r.Decode()
	if !ok || ops.OpType(op.Data[0]) != ops.TypeBeginPath {
		t.Fatalf("expected BeginPath, got %v", op)
	}
	op, ok = r.Decode()
	if !ok || ops.OpType(op.Data[0]) != ops.TypeMoveTo {
		t.Fatalf("expected MoveTo, got %v", op)
	}
	if got := ops.DecodePoint(op.Data[1:]); got != f32.Pt(11, 22) {
		t.Errorf("recorded move point %v, want (11,22)", got)
	}
	op, _ = r.Decode()
	if got := ops.DecodePoint(op.Data[1:]); got != f32.Pt(13, 24) {
		t.Errorf("recorded line point %v, want (13,24)", got)
	}
}

func TestQuadToPromotion(t *testing.T) {
	var c Cell
	p := NewPainter(&c)
	p.BeginPath()
	p.MoveTo(f32.Pt(0, 0))
	p.QuadTo(f32.Pt(30, 0), f32.Pt(30, 30))

	var r ops.Reader
	r.Reset(c.Commands())
	r.Decode() // BeginPath
	r.Decode() // MoveTo
	op, ok := r.Decode()
	if !ok || ops.OpType(op.Data[0]) != ops.TypeBezierTo {
		t.Fatalf("expected QuadTo to record a cubic, got %v", op)
	}
	c1 := ops.DecodePoint(op.Data[1:])
	c2 := ops.DecodePoint(op.Data[9:])
	end := ops.DecodePoint(op.Data[17:])
	if c1 != f32.Pt(20, 0) {
		t.Errorf("first control point %v, want (20,0)", c1)
	}
	if c2 != f32.Pt(30, 10) {
		t.Errorf("second control point %v, want (30,10)", c2)
	}
	if end != f32.Pt(30, 30) {
		t.Errorf("end point %v, want (30,30)", end)
	}
}

func TestSnapshotDedup(t *testing.T) {
	var c Cell
	p := NewPainter(&c)
	p.BeginPath()
	p.Rect(f32.Rectangle{Max: f32.Pt(10, 10)})
	p.Fill()
	p.Stroke()
	if n := len(c.States()); n != 1 {
		t.Errorf("consecutive identical snapshots allocated %d states, want 1", n)
	}
	p.SetAlpha(0.5)
	p.Fill()
	if n := len(c.States()); n != 2 {
		t.Errorf("changed state allocated %d states, want 2", n)
	}
}

func TestArcSegmentCount(t *testing.T) {
	countCubics := func(c *Cell) int {
		var r ops.Reader
		r.Reset(c.Commands())
		n := 0
		for {
			op, ok := r.Decode()
			if !ok {
				break
			}
			if ops.OpType(op.Data[0]) == ops.TypeBezierTo {
				n++
			}
		}
		return n
	}
	var quarter Cell
	p := NewPainter(&quarter)
	p.BeginPath()
	p.Arc(f32.Pt(0, 0), 10, 0, math.Pi/2, CW)
	if n := countCubics(&quarter); n != 1 {
		t.Errorf("quarter arc recorded %d cubics, want 1", n)
	}
	var full Cell
	p = NewPainter(&full)
	p.BeginPath()
	p.Arc(f32.Pt(0, 0), 10, 0, 2*math.Pi, CW)
	if n := countCubics(&full); n != 4 {
		t.Errorf("full circle arc recorded %d cubics, want 4", n)
	}
}

func TestScissorHalfExtent(t *testing.T) {
	var c Cell
	p := NewPainter(&c)
	p.SetScissor(f32.Rectangle{Min: f32.Pt(20, 20), Max: f32.Pt(80, 80)})
	sc := p.top().Scissor
	if sc.Extent != f32.Pt(30, 30) {
		t.Errorf("scissor extent %v, want (30,30)", sc.Extent)
	}
	if _, _, ox, _, _, oy := sc.Xform.Elems(); ox != 50 || oy != 50 {
		t.Errorf("scissor centered at (%g,%g), want (50,50)", ox, oy)
	}
	p.RemoveScissor()
	if !p.top().Scissor.Empty() {
		t.Error("RemoveScissor left a scissor in place")
	}
}
