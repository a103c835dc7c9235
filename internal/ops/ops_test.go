// SPDX-License-Identifier: Unlicense OR MIT

package ops

import (
	"testing"

	"github.com/pictorui/pictor/f32"
)

func TestWriteDecode(t *testing.T) {
	var o Ops
	data := o.Write(TypeMoveToLen)
	data[0] = byte(TypeMoveTo)
	PutPoint(data[1:], f32.Pt(1.5, -2.5))
	data = o.Write(TypeBezierToLen)
	data[0] = byte(TypeBezierTo)
	PutPoint(data[1:], f32.Pt(1, 2))
	PutPoint(data[9:], f32.Pt(3, 4))
	PutPoint(data[17:], f32.Pt(5, 6))
	data = o.Write1(TypePaintLen, nil)
	data[0] = byte(TypeFillPaint)
	PutAffine(data[1:], f32.Affine2D{}.Offset(f32.Pt(10, 20)))

	var r Reader
	r.Reset(&o)

	op, ok := r.Decode()
	if !ok || OpType(op.Data[0]) != TypeMoveTo {
		t.Fatalf("expected MoveTo, got %v", op)
	}
	if p := DecodePoint(op.Data[1:]); p != f32.Pt(1.5, -2.5) {
		t.Errorf("MoveTo point decoded as %v", p)
	}
	op, ok = r.Decode()
	if !ok || OpType(op.Data[0]) != TypeBezierTo {
		t.Fatalf("expected BezierTo, got %v", op)
	}
	if len(op.Data) != TypeBezierToLen {
		t.Errorf("BezierTo record is %d bytes, expected %d", len(op.Data), TypeBezierToLen)
	}
	op, ok = r.Decode()
	if !ok || OpType(op.Data[0]) != TypeFillPaint {
		t.Fatalf("expected FillPaint, got %v", op)
	}
	if len(op.Refs) != 1 || op.Refs[0] != nil {
		t.Errorf("FillPaint refs decoded as %v", op.Refs)
	}
	x := DecodeAffine(op.Data[1:])
	if _, _, ox, _, _, oy := x.Elems(); ox != 10 || oy != 20 {
		t.Errorf("FillPaint transform decoded as %v", x)
	}
	if _, ok := r.Decode(); ok {
		t.Error("decoded past the end of the list")
	}
}

func TestGlyphsVariableLength(t *testing.T) {
	var o Ops
	const nverts = 6
	data := o.Write1(TypeGlyphsLen+nverts*GlyphVertexLen, nil)
	data[0] = byte(TypeGlyphs)
	PutUint32(data[1:], 3)
	PutUint32(data[5:], nverts)
	for i := 0; i < nverts; i++ {
		PutFloat32(data[TypeGlyphsLen+i*GlyphVertexLen:], float32(i))
	}
	data = o.Write(TypeCloseLen)
	data[0] = byte(TypeClose)

	var r Reader
	r.Reset(&o)
	op, ok := r.Decode()
	if !ok || OpType(op.Data[0]) != TypeGlyphs {
		t.Fatalf("expected Glyphs, got %v", op)
	}
	if got := len(op.Data); got != TypeGlyphsLen+nverts*GlyphVertexLen {
		t.Errorf("Glyphs record is %d bytes", got)
	}
	if v := DecodeFloat32(op.Data[TypeGlyphsLen+2*GlyphVertexLen:]); v != 2 {
		t.Errorf("vertex 2 x decoded as %g", v)
	}
	op, ok = r.Decode()
	if !ok || OpType(op.Data[0]) != TypeClose {
		t.Fatalf("expected Close after Glyphs, got %v", op)
	}
}

func TestReset(t *testing.T) {
	var o Ops
	o.Write1(TypePaintLen, new(int))
	v := o.Version()
	o.Reset()
	if o.Version() == v {
		t.Error("Reset did not change the version")
	}
	if len(o.Data()) != 0 || len(o.Refs()) != 0 {
		t.Error("Reset left data behind")
	}
	var r Reader
	r.Reset(&o)
	if _, ok := r.Decode(); ok {
		t.Error("decoded a command from a reset list")
	}
}
