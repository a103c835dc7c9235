// SPDX-License-Identifier: Unlicense OR MIT

package cell

import (
	"math"

	"github.com/pictorui/pictor/f32"
	"github.com/pictorui/pictor/gpu/driver"
	"github.com/pictorui/pictor/internal/f32color"
)

// Paint describes a colorable material: a solid color, a gradient
// between InnerColor and OuterColor, or a textured pattern. The fields
// parameterize a rounded rectangle signed distance function in the
// fragment program; the factories below fill them in.
type Paint struct {
	Xform      f32.Affine2D
	Extent     f32.Point
	Radius     float32
	Feather    float32
	InnerColor f32color.RGBA
	OuterColor f32color.RGBA
	Texture    driver.Texture
}

// ColorPaint returns a solid paint.
func ColorPaint(col f32color.RGBA) Paint {
	return Paint{
		Feather:    1,
		InnerColor: col,
		OuterColor: col,
	}
}

// LinearGradient returns a paint blending from inner at start to outer
// at end. Degenerate axes fall back to a vertical gradient.
func LinearGradient(start, end f32.Point, inner, outer f32color.RGBA) Paint {
	// A large extent along the gradient axis keeps the rounded
	// rectangle edges out of view.
	const large = 1e5
	dx := end.X - start.X
	dy := end.Y - start.Y
	d := float32(math.Hypot(float64(dx), float64(dy)))
	if d > 0.0001 {
		dx /= d
		dy /= d
	} else {
		dx = 0
		dy = 1
	}
	return Paint{
		Xform:      f32.NewAffine2D(dy, dx, start.X-dx*large, -dx, dy, start.Y-dy*large),
		Extent:     f32.Pt(large, large+d*0.5),
		Feather:    maxF(1, d),
		InnerColor: inner,
		OuterColor: outer,
	}
}

// RadialGradient returns a paint blending from inner at radius inr to
// outer at radius outr around center.
func RadialGradient(center f32.Point, inr, outr float32, inner, outer f32color.RGBA) Paint {
	r := (inr + outr) * 0.5
	return Paint{
		Xform:      f32.Affine2D{}.Offset(center),
		Extent:     f32.Pt(r, r),
		Radius:     r,
		Feather:    maxF(1, outr-inr),
		InnerColor: inner,
		OuterColor: outer,
	}
}

// BoxGradient returns a feathered rounded rectangle gradient, typically
// used for drop shadows.
func BoxGradient(r f32.Rectangle, radius, feather float32, inner, outer f32color.RGBA) Paint {
	return Paint{
		Xform:      f32.Affine2D{}.Offset(f32.Pt(r.Min.X+r.Dx()*0.5, r.Min.Y+r.Dy()*0.5)),
		Extent:     f32.Pt(r.Dx()*0.5, r.Dy()*0.5),
		Radius:     radius,
		Feather:    maxF(1, feather),
		InnerColor: inner,
		OuterColor: outer,
	}
}

// ImagePattern returns a textured paint covering the w×h rectangle at
// origin, rotated by angle radians. Alpha scales the texture.
func ImagePattern(origin f32.Point, w, h, angle float32, tex driver.Texture, alpha float32) Paint {
	col := f32color.RGBA{R: 1, G: 1, B: 1, A: 1}.MulAlpha(alpha)
	return Paint{
		Xform:      f32.Affine2D{}.Rotate(f32.Point{}, angle).Offset(origin),
		Extent:     f32.Pt(w, h),
		InnerColor: col,
		OuterColor: col,
		Texture:    tex,
	}
}

func maxF(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}
