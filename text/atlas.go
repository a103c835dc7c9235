// SPDX-License-Identifier: Unlicense OR MIT

package text

import (
	"image"
	"image/draw"

	"golang.org/x/exp/constraints"
	xfont "golang.org/x/image/font"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"

	"github.com/go-text/typesetting/font"

	"github.com/pictorui/pictor/cell"
	"github.com/pictorui/pictor/f32"
	"github.com/pictorui/pictor/gpu/driver"
)

const (
	initialAtlasSize = 256
	// glyphPad is the empty border around each glyph that keeps
	// bilinear sampling from bleeding into neighbours.
	glyphPad = 1
)

type glyphKey struct {
	face uint32
	gid  font.GID
	// size is the pixel size quantized to tenths.
	size uint16
}

// AtlasGlyph locates one rasterized glyph inside the atlas.
type AtlasGlyph struct {
	// Rect is the glyph area in atlas pixels, without padding.
	Rect image.Rectangle
	// Offset is the displacement of Rect.Min from the glyph dot.
	Offset f32.Point
	// Advance is the horizontal pen advance, in pixels.
	Advance float32
}

type atlasRow struct {
	y, h, x int
}

// Atlas caches rasterized glyph coverage in a single-channel texture.
// Glyphs are packed into rows and the texture doubles in size when a
// glyph no longer fits, up to the device texture limit. Not safe for
// concurrent use.
type Atlas struct {
	dev           driver.Device
	tex           driver.Texture
	width, height int
	maxSize       int
	// pix mirrors the texture contents, stride == width.
	pix    []uint8
	rows   []atlasRow
	glyphs map[glyphKey]AtlasGlyph

	buf  sfnt.Buffer
	rast vector.Rasterizer
	mask image.Alpha
}

// NewAtlas creates an empty glyph atlas on dev.
func NewAtlas(dev driver.Device) (*Atlas, error) {
	tex, err := dev.NewTexture(driver.TextureFormatR, initialAtlasSize, initialAtlasSize, driver.FilterLinear, driver.FilterLinear)
	if err != nil {
		return nil, err
	}
	return &Atlas{
		dev:     dev,
		tex:     tex,
		width:   initialAtlasSize,
		height:  initialAtlasSize,
		maxSize: dev.Caps().MaxTextureSize,
		pix:     make([]uint8, initialAtlasSize*initialAtlasSize),
		glyphs:  make(map[glyphKey]AtlasGlyph),
	}, nil
}

// Texture returns the backing texture for use as a glyph paint. The
// texture is replaced when the atlas grows, so fetch it after the
// frame's glyphs have been inserted.
func (a *Atlas) Texture() driver.Texture {
	return a.tex
}

func (a *Atlas) Release() {
	a.tex.Release()
	a.tex = nil
	a.glyphs = nil
}

// Glyph returns the atlas entry for gid at the given pixel size,
// rasterizing and packing it on first use. ok is false when the glyph
// cannot be loaded or the atlas is full.
func (a *Atlas) Glyph(face *Face, gid font.GID, size float32) (AtlasGlyph, bool) {
	key := glyphKey{face: face.id, gid: gid, size: uint16(size*10 + 0.5)}
	if g, ok := a.glyphs[key]; ok {
		return g, true
	}

	ppem := fixed.Int26_6(size*64 + 0.5)
	advance, err := face.outline.GlyphAdvance(&a.buf, sfnt.GlyphIndex(gid), ppem, xfont.HintingNone)
	if err != nil {
		return AtlasGlyph{}, false
	}
	segments, err := face.outline.LoadGlyph(&a.buf, sfnt.GlyphIndex(gid), ppem, nil)
	if err != nil {
		return AtlasGlyph{}, false
	}

	bounds := segments.Bounds()
	minX, minY := bounds.Min.X.Floor(), bounds.Min.Y.Floor()
	w := bounds.Max.X.Ceil() - minX
	h := bounds.Max.Y.Ceil() - minY
	g := AtlasGlyph{
		Offset:  f32.Pt(float32(minX), float32(minY)),
		Advance: float32(advance) / 64,
	}
	if w <= 0 || h <= 0 {
		// Whitespace and other blank glyphs still advance the pen.
		a.glyphs[key] = g
		return g, true
	}

	x, y, ok := a.pack(w+2*glyphPad, h+2*glyphPad)
	for !ok {
		if !a.grow() {
			return AtlasGlyph{}, false
		}
		x, y, ok = a.pack(w+2*glyphPad, h+2*glyphPad)
	}

	a.rasterize(segments, minX, minY, w, h)
	dst := image.Pt(x+glyphPad, y+glyphPad)
	for row := 0; row < h; row++ {
		copy(a.pix[(dst.Y+row)*a.width+dst.X:], a.mask.Pix[row*w:(row+1)*w])
	}
	a.upload(image.Rect(x, y, x+w+2*glyphPad, y+h+2*glyphPad))

	g.Rect = image.Rectangle{Min: dst, Max: dst.Add(image.Pt(w, h))}
	a.glyphs[key] = g
	return g, true
}

// Quads appends one textured quad per visible glyph of line, with the
// pen starting at origin, and returns the extended slice.
func (a *Atlas) Quads(face *Face, size float32, line Line, origin f32.Point, quads []cell.GlyphQuad) []cell.GlyphQuad {
	pen := origin
	for _, sg := range line.Glyphs {
		g, ok := a.Glyph(face, sg.ID, size)
		if ok && !g.Rect.Empty() {
			dot := pen.Add(sg.Offset)
			x, y := dot.X+g.Offset.X, dot.Y+g.Offset.Y
			w, h := float32(g.Rect.Dx()), float32(g.Rect.Dy())
			sx, sy := 1/float32(a.width), 1/float32(a.height)
			quads = append(quads, cell.GlyphQuad{
				Rect: f32.Rectangle{
					Min: f32.Pt(x, y),
					Max: f32.Pt(x+w, y+h),
				},
				UV: f32.Rectangle{
					Min: f32.Pt(float32(g.Rect.Min.X)*sx, float32(g.Rect.Min.Y)*sy),
					Max: f32.Pt(float32(g.Rect.Max.X)*sx, float32(g.Rect.Max.Y)*sy),
				},
			})
		}
		pen.X += sg.Advance
	}
	return quads
}

// rasterize draws segments into a.mask, a w by h coverage image whose
// top left corner maps to glyph space (minX, minY).
func (a *Atlas) rasterize(segments sfnt.Segments, minX, minY, w, h int) {
	biasX := -fixed.Int26_6(minX << 6)
	biasY := -fixed.Int26_6(minY << 6)

	nPixels := w * h
	if cap(a.mask.Pix) < nPixels {
		a.mask.Pix = make([]uint8, 2*nPixels)
	}
	a.mask.Pix = a.mask.Pix[:nPixels]
	a.mask.Stride = w
	a.mask.Rect = image.Rect(0, 0, w, h)

	a.rast.Reset(w, h)
	a.rast.DrawOp = draw.Src
	for _, seg := range segments {
		switch seg.Op {
		case sfnt.SegmentOpMoveTo:
			a.rast.MoveTo(
				float32(seg.Args[0].X+biasX)/64,
				float32(seg.Args[0].Y+biasY)/64,
			)
		case sfnt.SegmentOpLineTo:
			a.rast.LineTo(
				float32(seg.Args[0].X+biasX)/64,
				float32(seg.Args[0].Y+biasY)/64,
			)
		case sfnt.SegmentOpQuadTo:
			a.rast.QuadTo(
				float32(seg.Args[0].X+biasX)/64,
				float32(seg.Args[0].Y+biasY)/64,
				float32(seg.Args[1].X+biasX)/64,
				float32(seg.Args[1].Y+biasY)/64,
			)
		case sfnt.SegmentOpCubeTo:
			a.rast.CubeTo(
				float32(seg.Args[0].X+biasX)/64,
				float32(seg.Args[0].Y+biasY)/64,
				float32(seg.Args[1].X+biasX)/64,
				float32(seg.Args[1].Y+biasY)/64,
				float32(seg.Args[2].X+biasX)/64,
				float32(seg.Args[2].Y+biasY)/64,
			)
		}
	}
	a.rast.Draw(&a.mask, a.mask.Bounds(), image.Opaque, image.Point{})
}

// pack finds room for a w by h rectangle, extending an existing row
// when one of a close enough height has space.
func (a *Atlas) pack(w, h int) (x, y int, ok bool) {
	if w > a.width {
		return 0, 0, false
	}
	best := -1
	for i, r := range a.rows {
		if h <= r.h && r.h < h+h/2 && a.width-r.x >= w {
			if best < 0 || r.h < a.rows[best].h {
				best = i
			}
		}
	}
	if best >= 0 {
		r := &a.rows[best]
		x, y = r.x, r.y
		r.x += w
		return x, y, true
	}
	var top int
	for _, r := range a.rows {
		top = maxN(top, r.y+r.h)
	}
	if top+h > a.height {
		return 0, 0, false
	}
	a.rows = append(a.rows, atlasRow{y: top, h: h, x: w})
	return 0, top, true
}

// grow doubles the smaller atlas dimension and reuploads the pixels.
// Packed entries keep their positions.
func (a *Atlas) grow() bool {
	nw, nh := a.width, a.height
	if nw <= nh {
		nw *= 2
	} else {
		nh *= 2
	}
	if nw > a.maxSize || nh > a.maxSize {
		return false
	}
	pix := make([]uint8, nw*nh)
	for row := 0; row < a.height; row++ {
		copy(pix[row*nw:], a.pix[row*a.width:(row+1)*a.width])
	}
	tex, err := a.dev.NewTexture(driver.TextureFormatR, nw, nh, driver.FilterLinear, driver.FilterLinear)
	if err != nil {
		return false
	}
	a.tex.Release()
	a.tex = tex
	a.pix = pix
	a.width, a.height = nw, nh
	a.upload(image.Rect(0, 0, nw, nh))
	return true
}

// upload copies the given atlas region from the CPU mirror to the
// texture.
func (a *Atlas) upload(r image.Rectangle) {
	w, h := r.Dx(), r.Dy()
	tight := make([]uint8, w*h)
	for row := 0; row < h; row++ {
		copy(tight[row*w:], a.pix[(r.Min.Y+row)*a.width+r.Min.X:(r.Min.Y+row)*a.width+r.Max.X])
	}
	a.tex.Upload(r.Min, image.Pt(w, h), tight)
}

func maxN[T constraints.Ordered](a, b T) T {
	if a > b {
		return a
	}
	return b
}
