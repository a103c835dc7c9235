// SPDX-License-Identifier: Unlicense OR MIT

package gpu

import (
	"reflect"
	"testing"

	"github.com/pictorui/pictor/cell"
	"github.com/pictorui/pictor/f32"
	"github.com/pictorui/pictor/gpu/driver"
	"github.com/pictorui/pictor/gpu/headless"
	"github.com/pictorui/pictor/internal/f32color"
)

func newTestCanvas(t *testing.T) (*Canvas, *headless.Device) {
	t.Helper()
	dev := headless.NewDevice(200, 200)
	c, err := NewCanvas(dev)
	if err != nil {
		t.Fatalf("NewCanvas: %v", err)
	}
	t.Cleanup(c.Release)
	return c, dev
}

func recordRect(col f32color.RGBA) *cell.Cell {
	var cl cell.Cell
	p := cell.NewPainter(&cl)
	p.BeginPath()
	p.Rect(f32.Rectangle{Min: f32.Pt(10, 10), Max: f32.Pt(110, 60)})
	p.SetFillColor(col)
	p.Fill()
	return &cl
}

var red = f32color.RGBA{R: 1, A: 1}

func TestEmptyFrame(t *testing.T) {
	c, dev := newTestCanvas(t)
	c.BeginFrame(200, 200, 1)
	c.FinishFrame()
	if n := len(dev.Draws()); n != 0 {
		t.Errorf("empty frame issued %d draws", n)
	}
}

func TestPaintOutsideFrameIgnored(t *testing.T) {
	c, _ := newTestCanvas(t)
	c.Paint(recordRect(red))
	if n := len(c.frame.calls); n != 0 {
		t.Errorf("paint without open frame recorded %d calls", n)
	}
}

func TestFrameProfiling(t *testing.T) {
	c, _ := newTestCanvas(t)
	c.BeginFrame(200, 200, 1)
	c.Paint(recordRect(red))
	c.FinishFrame()
	if _, ok := c.GPUTime(); ok {
		t.Error("GPUTime reported a measurement without profiling enabled")
	}

	c.SetProfiling(true)
	c.BeginFrame(200, 200, 1)
	c.Paint(recordRect(red))
	c.FinishFrame()
	d, ok := c.GPUTime()
	if !ok {
		t.Fatal("GPUTime not available after a profiled frame")
	}
	if d < 0 {
		t.Errorf("GPUTime = %v, want >= 0", d)
	}
}

func TestConvexRectFill(t *testing.T) {
	c, dev := newTestCanvas(t)
	c.BeginFrame(200, 200, 1)
	c.Paint(recordRect(red))

	if n := len(c.frame.calls); n != 1 {
		t.Fatalf("got %d calls, want 1", n)
	}
	cl := c.frame.calls[0]
	if cl.typ != callConvexFill {
		t.Fatalf("call type %d, want convex fill", cl.typ)
	}
	if cl.pathCount != 1 {
		t.Fatalf("pathCount %d, want 1", cl.pathCount)
	}
	p := c.frame.paths[cl.pathOffset]
	if p.fillCount != 4 {
		t.Errorf("fan vertex count %d, want 4", p.fillCount)
	}
	if p.strokeCount != 10 {
		t.Errorf("fringe vertex count %d, want 10", p.strokeCount)
	}
	for _, v := range c.frame.verts[p.fillOffset : p.fillOffset+p.fillCount] {
		if v.U != 0.5 || v.V != 1 {
			t.Errorf("fan vertex uv (%f, %f), want (0.5, 1)", v.U, v.V)
		}
	}
	frag := c.fragAt(cl.uniformOffset)
	want := red.Array()
	if frag.innerCol != want || frag.outerCol != want {
		t.Errorf("fill colors %v / %v, want %v", frag.innerCol, frag.outerCol, want)
	}
	if frag.paintType != fragGradient {
		t.Errorf("paintType %d, want gradient", frag.paintType)
	}
	if frag.strokeThr != -1 {
		t.Errorf("strokeThr %f, want -1", frag.strokeThr)
	}

	c.FinishFrame()
	draws := dev.Draws()
	if len(draws) != 2 {
		t.Fatalf("got %d draws, want fan and fringe", len(draws))
	}
	if draws[0].Mode != driver.DrawModeTriangleFan || draws[0].Count != 4 {
		t.Errorf("first draw %+v, want 4 vertex fan", draws[0])
	}
	if draws[1].Mode != driver.DrawModeTriangleStrip || draws[1].Count != 10 {
		t.Errorf("second draw %+v, want 10 vertex strip", draws[1])
	}
	for i, d := range draws {
		if d.StencilTest {
			t.Errorf("draw %d ran with stencil test on", i)
		}
	}
}

func TestConvexFillWithoutAA(t *testing.T) {
	c, _ := newTestCanvas(t)
	c.SetGeometricAA(false)
	c.BeginFrame(200, 200, 1)
	c.Paint(recordRect(red))

	cl := c.frame.calls[0]
	p := c.frame.paths[cl.pathOffset]
	if p.fillCount != 4 {
		t.Errorf("fan vertex count %d, want 4", p.fillCount)
	}
	if p.strokeCount != 0 {
		t.Errorf("fringe vertex count %d, want none without antialiasing", p.strokeCount)
	}
}

func TestStrokeOpenLine(t *testing.T) {
	c, dev := newTestCanvas(t)
	var rec cell.Cell
	p := cell.NewPainter(&rec)
	p.BeginPath()
	p.MoveTo(f32.Pt(10, 10))
	p.LineTo(f32.Pt(100, 10))
	p.SetStrokeColor(red)
	p.SetStrokeWidth(2)
	p.Stroke()

	c.BeginFrame(200, 200, 1)
	c.Paint(&rec)

	if n := len(c.frame.calls); n != 1 {
		t.Fatalf("got %d calls, want 1", n)
	}
	cl := c.frame.calls[0]
	if cl.typ != callStroke {
		t.Fatalf("call type %d, want stroke", cl.typ)
	}
	sp := c.frame.paths[cl.pathOffset]
	if sp.strokeCount != 8 {
		t.Errorf("stroke vertex count %d, want 8 for two butt caps", sp.strokeCount)
	}
	if sp.fillCount != 0 {
		t.Errorf("stroke path has %d fill vertices", sp.fillCount)
	}
	base := c.fragAt(cl.uniformOffset)
	if base.strokeThr != -1 {
		t.Errorf("fringe pass strokeThr %f, want -1", base.strokeThr)
	}
	block := c.fragAt(cl.uniformOffset + c.fragSize)
	if want := 1 - 0.5/c.opts.fringeWidth; block.strokeThr != want {
		t.Errorf("base pass strokeThr %f, want %f", block.strokeThr, want)
	}
	// w 2, fringe 1: (2*0.5 + 1*0.5) / 1.
	if base.strokeMult != 1.5 {
		t.Errorf("strokeMult %f, want 1.5", base.strokeMult)
	}

	c.FinishFrame()
	draws := dev.Draws()
	if len(draws) != 3 {
		t.Fatalf("got %d draws, want base, fringe and clear", len(draws))
	}
	if draws[0].StencilCmp != driver.CompareEqual || draws[0].OpFront[2] != driver.StencilOpIncr {
		t.Errorf("base pass state %+v", draws[0])
	}
	if draws[0].UniformOffset != cl.uniformOffset+c.fragSize {
		t.Errorf("base pass uniform offset %d, want %d", draws[0].UniformOffset, cl.uniformOffset+c.fragSize)
	}
	if draws[1].StencilCmp != driver.CompareEqual || draws[1].OpFront[2] != driver.StencilOpKeep {
		t.Errorf("fringe pass state %+v", draws[1])
	}
	if draws[2].StencilCmp != driver.CompareAlways || draws[2].OpFront[2] != driver.StencilOpZero {
		t.Errorf("clear pass state %+v", draws[2])
	}
	if draws[2].ColorMask != [4]bool{false, false, false, false} {
		t.Errorf("clear pass wrote color: %v", draws[2].ColorMask)
	}
}

func TestStrokeWithoutStencil(t *testing.T) {
	c, dev := newTestCanvas(t)
	c.SetStencilStrokes(false)
	var rec cell.Cell
	p := cell.NewPainter(&rec)
	p.BeginPath()
	p.MoveTo(f32.Pt(10, 10))
	p.LineTo(f32.Pt(100, 10))
	p.SetStrokeWidth(2)
	p.Stroke()

	c.BeginFrame(200, 200, 1)
	c.Paint(&rec)
	c.FinishFrame()
	draws := dev.Draws()
	if len(draws) != 1 {
		t.Fatalf("got %d draws, want a single strip", len(draws))
	}
	if draws[0].StencilTest {
		t.Error("plain stroke ran with stencil test on")
	}
}

func TestSubPixelStrokeAlpha(t *testing.T) {
	c, _ := newTestCanvas(t)
	var rec cell.Cell
	p := cell.NewPainter(&rec)
	p.BeginPath()
	p.MoveTo(f32.Pt(10, 10))
	p.LineTo(f32.Pt(100, 10))
	p.SetStrokeColor(f32color.RGBA{R: 1, G: 1, B: 1, A: 1})
	p.SetStrokeWidth(0.5)
	p.Stroke()

	c.BeginFrame(200, 200, 1)
	c.Paint(&rec)
	frag := c.fragAt(c.frame.calls[0].uniformOffset)
	// Width clamps to the fringe and coverage squared scales the color.
	if want := float32(0.25); frag.innerCol != [4]float32{want, want, want, want} {
		t.Errorf("sub-pixel stroke color %v, want %f in every channel", frag.innerCol, want)
	}
	if frag.strokeMult != 1 {
		t.Errorf("strokeMult %f, want 1 for clamped width", frag.strokeMult)
	}
}

func concaveChevron() *cell.Cell {
	var rec cell.Cell
	p := cell.NewPainter(&rec)
	p.BeginPath()
	p.MoveTo(f32.Pt(20, 20))
	p.LineTo(f32.Pt(120, 20))
	p.LineTo(f32.Pt(70, 70))
	p.LineTo(f32.Pt(120, 120))
	p.LineTo(f32.Pt(20, 120))
	p.ClosePath()
	p.SetFillColor(red)
	p.Fill()
	return &rec
}

func TestConcaveFill(t *testing.T) {
	c, dev := newTestCanvas(t)
	c.BeginFrame(200, 200, 1)
	c.Paint(concaveChevron())

	cl := c.frame.calls[0]
	if cl.typ != callFill {
		t.Fatalf("call type %d, want stencil fill", cl.typ)
	}
	if cl.triangleCount != 6 {
		t.Errorf("cover quad vertex count %d, want 6", cl.triangleCount)
	}
	for _, v := range c.frame.verts[cl.triangleOffset : cl.triangleOffset+cl.triangleCount] {
		if v.U != 0.5 || v.V != 1 {
			t.Errorf("cover vertex uv (%f, %f), want (0.5, 1)", v.U, v.V)
		}
	}
	stencilFrag := c.fragAt(cl.uniformOffset)
	if stencilFrag.paintType != fragStencil || stencilFrag.strokeThr != -1 {
		t.Errorf("stencil pass block %+v", stencilFrag)
	}
	cover := c.fragAt(cl.uniformOffset + c.fragSize)
	if cover.innerCol != red.Array() {
		t.Errorf("cover color %v", cover.innerCol)
	}

	c.FinishFrame()
	draws := dev.Draws()
	// Winding fan, fringe strip, cover quad.
	if len(draws) != 3 {
		t.Fatalf("got %d draws, want 3", len(draws))
	}
	fan := draws[0]
	if fan.Mode != driver.DrawModeTriangleFan || fan.ColorMask != [4]bool{false, false, false, false} {
		t.Errorf("stencil fan state %+v", fan)
	}
	if fan.OpFront[2] != driver.StencilOpIncrWrap || fan.OpBack[2] != driver.StencilOpDecrWrap {
		t.Errorf("winding ops %v / %v", fan.OpFront, fan.OpBack)
	}
	cov := draws[2]
	if cov.Mode != driver.DrawModeTriangles || cov.StencilCmp != driver.CompareNotEqual {
		t.Errorf("cover state %+v", cov)
	}
}

func TestConcaveFillClearsStencil(t *testing.T) {
	c, dev := newTestCanvas(t)
	c.BeginFrame(200, 200, 1)
	c.Paint(concaveChevron())
	c.FinishFrame()

	for y := 0; y < 200; y++ {
		for x := 0; x < 200; x++ {
			if v := dev.StencilAt(x, y); v != 0 {
				t.Fatalf("stencil (%d, %d) = %d after frame, want 0", x, y, v)
			}
		}
	}
}

func TestScissorUniforms(t *testing.T) {
	c, _ := newTestCanvas(t)
	var rec cell.Cell
	p := cell.NewPainter(&rec)
	p.SetScissor(f32.Rectangle{Min: f32.Pt(20, 20), Max: f32.Pt(80, 80)})
	p.BeginPath()
	p.Rect(f32.Rectangle{Min: f32.Pt(10, 10), Max: f32.Pt(110, 60)})
	p.SetFillColor(red)
	p.Fill()

	c.BeginFrame(200, 200, 1)
	c.Paint(&rec)
	frag := c.fragAt(c.frame.calls[0].uniformOffset)
	if frag.scissorExt != [2]float32{30, 30} {
		t.Errorf("scissorExt %v, want half extents (30, 30)", frag.scissorExt)
	}
	if frag.scissorScale != [2]float32{1, 1} {
		t.Errorf("scissorScale %v, want (1, 1) at unit ratio", frag.scissorScale)
	}
}

func TestNoScissorPassesEverything(t *testing.T) {
	c, _ := newTestCanvas(t)
	c.BeginFrame(200, 200, 1)
	c.Paint(recordRect(red))
	frag := c.fragAt(c.frame.calls[0].uniformOffset)
	if frag.scissorExt != [2]float32{1, 1} || frag.scissorScale != [2]float32{1, 1} {
		t.Errorf("no-scissor block ext %v scale %v", frag.scissorExt, frag.scissorScale)
	}
	if frag.scissorMat != [12]float32{} {
		t.Errorf("no-scissor matrix %v, want zero", frag.scissorMat)
	}
}

func TestNestedBase(t *testing.T) {
	c, _ := newTestCanvas(t)
	c.BeginFrame(200, 200, 1)
	base := NoBase()
	base.Xform = f32.Affine2D{}.Offset(f32.Pt(5, 7))
	base.Alpha = 0.5
	c.PaintWith(recordRect(red), base)

	cl := c.frame.calls[0]
	frag := c.fragAt(cl.uniformOffset)
	if want := [4]float32{0.5, 0, 0, 0.5}; frag.innerCol != want {
		t.Errorf("nested fill color %v, want %v", frag.innerCol, want)
	}
	// Geometry is offset at interpretation time. The fan is inset by
	// half a fringe, so compare loosely.
	v := c.frame.verts[c.frame.paths[cl.pathOffset].fillOffset]
	if v.X < 14 || v.X > 16 || v.Y < 16 || v.Y > 18 {
		t.Errorf("first fan vertex (%f, %f), want near (15, 17)", v.X, v.Y)
	}
}

func TestFrameDeterminism(t *testing.T) {
	c, _ := newTestCanvas(t)
	rec := concaveChevron()

	c.BeginFrame(200, 200, 1)
	c.Paint(rec)
	verts := append([]vertex(nil), c.frame.verts...)
	uniforms := append([]byte(nil), c.frame.uniforms...)
	c.FinishFrame()

	c.BeginFrame(200, 200, 1)
	c.Paint(rec)
	if !reflect.DeepEqual(verts, c.frame.verts) {
		t.Error("vertex buffers differ between identical frames")
	}
	if !reflect.DeepEqual(uniforms, c.frame.uniforms) {
		t.Error("uniform buffers differ between identical frames")
	}
	c.FinishFrame()
}

func TestUniformBlockAlignment(t *testing.T) {
	c, dev := newTestCanvas(t)
	align := dev.Caps().UniformAlignment
	if c.fragSize%align != 0 {
		t.Fatalf("fragSize %d not aligned to %d", c.fragSize, align)
	}
	if c.fragSize < shaderVariablesSize {
		t.Fatalf("fragSize %d smaller than block %d", c.fragSize, shaderVariablesSize)
	}

	var rec cell.Cell
	p := cell.NewPainter(&rec)
	p.BeginPath()
	p.Rect(f32.Rectangle{Min: f32.Pt(10, 10), Max: f32.Pt(50, 50)})
	p.Fill()
	p.BeginPath()
	p.MoveTo(f32.Pt(10, 100))
	p.LineTo(f32.Pt(100, 100))
	p.SetStrokeWidth(3)
	p.Stroke()

	c.BeginFrame(200, 200, 1)
	c.Paint(&rec)
	for i, cl := range c.frame.calls {
		if cl.uniformOffset%c.fragSize != 0 {
			t.Errorf("call %d uniform offset %d not a block multiple", i, cl.uniformOffset)
		}
	}
	if len(c.frame.uniforms)%c.fragSize != 0 {
		t.Errorf("uniform buffer length %d not a block multiple", len(c.frame.uniforms))
	}
}

func TestGlyphQuads(t *testing.T) {
	c, dev := newTestCanvas(t)
	tex, err := dev.NewTexture(driver.TextureFormatR, 64, 64, driver.FilterLinear, driver.FilterLinear)
	if err != nil {
		t.Fatal(err)
	}
	defer tex.Release()

	var rec cell.Cell
	p := cell.NewPainter(&rec)
	p.SetFillColor(red)
	p.Glyphs([]cell.GlyphQuad{
		{
			Rect: f32.Rectangle{Min: f32.Pt(10, 10), Max: f32.Pt(20, 26)},
			UV:   f32.Rectangle{Min: f32.Pt(0, 0), Max: f32.Pt(0.25, 0.5)},
		},
		{
			Rect: f32.Rectangle{Min: f32.Pt(22, 10), Max: f32.Pt(32, 26)},
			UV:   f32.Rectangle{Min: f32.Pt(0.25, 0), Max: f32.Pt(0.5, 0.5)},
		},
	}, tex)

	c.BeginFrame(200, 200, 1)
	c.Paint(&rec)
	if n := len(c.frame.calls); n != 1 {
		t.Fatalf("got %d calls, want 1", n)
	}
	cl := c.frame.calls[0]
	if cl.typ != callText {
		t.Fatalf("call type %d, want text", cl.typ)
	}
	if cl.triangleCount != 12 {
		t.Errorf("triangle vertex count %d, want 12 for two quads", cl.triangleCount)
	}
	if cl.texture != tex {
		t.Error("glyph call lost its texture")
	}
	frag := c.fragAt(cl.uniformOffset)
	if frag.paintType != fragText || frag.texType != texTypeAlpha {
		t.Errorf("glyph block paintType %d texType %d", frag.paintType, frag.texType)
	}
	if frag.innerCol != red.Array() {
		t.Errorf("glyph color %v", frag.innerCol)
	}

	c.FinishFrame()
	draws := dev.Draws()
	if len(draws) != 1 {
		t.Fatalf("got %d draws, want 1", len(draws))
	}
	if draws[0].Mode != driver.DrawModeTriangles || draws[0].Texture != tex {
		t.Errorf("glyph draw %+v", draws[0])
	}
}

func TestBlendFuncMapping(t *testing.T) {
	cases := []struct {
		mode cell.BlendMode
		want blend
	}{
		{cell.SourceOver, blend{driver.BlendFactorOne, driver.BlendFactorOneMinusSrcAlpha}},
		{cell.Lighter, blend{driver.BlendFactorOne, driver.BlendFactorOne}},
		{cell.Copy, blend{driver.BlendFactorOne, driver.BlendFactorZero}},
		{cell.DestinationIn, blend{driver.BlendFactorZero, driver.BlendFactorSrcAlpha}},
		{cell.Xor, blend{driver.BlendFactorOneMinusDstAlpha, driver.BlendFactorOneMinusSrcAlpha}},
	}
	for _, tc := range cases {
		if got := blendFunc(tc.mode); got != tc.want {
			t.Errorf("blendFunc(%d) = %+v, want %+v", tc.mode, got, tc.want)
		}
	}
}

func TestBlendModeReachesDraw(t *testing.T) {
	c, dev := newTestCanvas(t)
	var rec cell.Cell
	p := cell.NewPainter(&rec)
	p.SetBlendMode(cell.Lighter)
	p.BeginPath()
	p.Rect(f32.Rectangle{Min: f32.Pt(10, 10), Max: f32.Pt(50, 50)})
	p.Fill()

	c.BeginFrame(200, 200, 1)
	c.Paint(&rec)
	c.FinishFrame()
	for i, d := range dev.Draws() {
		if d.BlendSrc != driver.BlendFactorOne || d.BlendDst != driver.BlendFactorOne {
			t.Errorf("draw %d blend %v/%v, want additive", i, d.BlendSrc, d.BlendDst)
		}
	}
}

func TestPixelRatioScalesTolerances(t *testing.T) {
	c, _ := newTestCanvas(t)
	c.BeginFrame(200, 200, 2)
	if c.opts.fringeWidth != 0.5 {
		t.Errorf("fringe %f at ratio 2, want 0.5", c.opts.fringeWidth)
	}
	if c.opts.tessTol != 0.125 {
		t.Errorf("tessTol %f at ratio 2, want 0.125", c.opts.tessTol)
	}
	c.FinishFrame()

	// A non-positive ratio falls back to 1.
	c.BeginFrame(200, 200, 0)
	if c.opts.fringeWidth != 1 {
		t.Errorf("fringe %f at fallback ratio, want 1", c.opts.fringeWidth)
	}
	c.FinishFrame()
}
