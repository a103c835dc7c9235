// SPDX-License-Identifier: Unlicense OR MIT

// The stroke and fill expansion algorithms have been adapted from (and
// validated against) the geometry produced by NanoVG:
//  - github.com/memononen/nanovg (Licensed under Zlib)
//
// Strokes expand a flattened polyline into a triangle strip offset by
// half the stroke width on each side, with a one pixel antialiasing
// fringe encoded in the vertex u coordinate: 0 on the outer edge, 1 on
// the inner edge. The fragment program turns u into edge coverage.

package gpu

import (
	"math"

	"github.com/pictorui/pictor/cell"
)

// vertex is the layout of the frame vertex buffer: position and AA uv.
type vertex struct {
	X, Y float32
	U, V float32
}

func vert(x, y, u, v float32) vertex {
	return vertex{X: x, Y: y, U: u, V: v}
}

// curveDivs returns the number of subdivisions needed for an arc of
// the given radius and angle to stay within tol.
func curveDivs(r, arc, tol float32) int {
	da := float32(math.Acos(float64(r/(r+tol)))) * 2
	n := int(math.Ceil(float64(arc / da)))
	if n < 2 {
		n = 2
	}
	return n
}

// expandStroke appends the stroke strips for every sub-path in b to
// verts, recording each sub-path's span. w is the half-width of the
// stroke, fringe the AA margin (0 disables the gradient).
func expandStroke(verts []vertex, b *pathBuilder, w, fringe, tessTol float32, lineCap cell.LineCap, lineJoin cell.LineJoin, miterLimit float32) []vertex {
	aa := fringe
	u0, u1 := float32(0), float32(1)
	ncap := curveDivs(w, math.Pi, tessTol)

	w += aa * 0.5

	// Disable the AA gradient when antialiasing is off.
	if aa == 0 {
		u0, u1 = 0.5, 0.5
	}

	b.calculateJoins(w, lineJoin, miterLimit)

	for pi := range b.paths {
		path := &b.paths[pi]
		pts := b.points[path.first : path.first+path.count]
		path.fillOffset = 0
		path.fillCount = 0
		path.strokeOffset = len(verts)

		var p0, p1 *point
		var s, e int
		loop := path.closed
		if loop {
			p0 = &pts[path.count-1]
			p1 = &pts[0]
			s = 0
			e = path.count
		} else {
			p0 = &pts[0]
			p1 = &pts[1]
			s = 1
			e = path.count - 1
		}

		var dx, dy float32
		if !loop {
			dx = p1.x - p0.x
			dy = p1.y - p0.y
			_, dx, dy = normalize(dx, dy)
			switch lineCap {
			case cell.ButtCap:
				verts = buttCapStart(verts, p0, dx, dy, w, -aa*0.5, aa, u0, u1)
			case cell.SquareCap:
				verts = buttCapStart(verts, p0, dx, dy, w, w-aa, aa, u0, u1)
			case cell.RoundCap:
				verts = roundCapStart(verts, p0, dx, dy, w, ncap, u0, u1)
			}
		}

		for j := s; j < e; j++ {
			p1 = &pts[j]
			if p1.flags&(pointBevel|pointInnerBevel) != 0 {
				if lineJoin == cell.RoundJoin {
					verts = roundJoin(verts, p0, p1, w, w, u0, u1, ncap)
				} else {
					verts = bevelJoin(verts, p0, p1, w, w, u0, u1)
				}
			} else {
				verts = append(verts,
					vert(p1.x+p1.dmx*w, p1.y+p1.dmy*w, u0, 1),
					vert(p1.x-p1.dmx*w, p1.y-p1.dmy*w, u1, 1))
			}
			p0 = p1
		}

		if loop {
			// Bridge back to the strip start.
			first := verts[path.strokeOffset]
			second := verts[path.strokeOffset+1]
			verts = append(verts,
				vert(first.X, first.Y, u0, 1),
				vert(second.X, second.Y, u1, 1))
		} else {
			p1 = &pts[path.count-1]
			dx = p1.x - p0.x
			dy = p1.y - p0.y
			_, dx, dy = normalize(dx, dy)
			switch lineCap {
			case cell.ButtCap:
				verts = buttCapEnd(verts, p1, dx, dy, w, -aa*0.5, aa, u0, u1)
			case cell.SquareCap:
				verts = buttCapEnd(verts, p1, dx, dy, w, w-aa, aa, u0, u1)
			case cell.RoundCap:
				verts = roundCapEnd(verts, p1, dx, dy, w, ncap, u0, u1)
			}
		}

		path.strokeCount = len(verts) - path.strokeOffset
	}
	return verts
}

func buttCapStart(verts []vertex, p *point, dx, dy, w, d, aa, u0, u1 float32) []vertex {
	px := p.x - dx*d
	py := p.y - dy*d
	dlx := dy
	dly := -dx
	return append(verts,
		vert(px+dlx*w-dx*aa, py+dly*w-dy*aa, u0, 0),
		vert(px-dlx*w-dx*aa, py-dly*w-dy*aa, u1, 0),
		vert(px+dlx*w, py+dly*w, u0, 1),
		vert(px-dlx*w, py-dly*w, u1, 1))
}

func buttCapEnd(verts []vertex, p *point, dx, dy, w, d, aa, u0, u1 float32) []vertex {
	px := p.x + dx*d
	py := p.y + dy*d
	dlx := dy
	dly := -dx
	return append(verts,
		vert(px+dlx*w, py+dly*w, u0, 1),
		vert(px-dlx*w, py-dly*w, u1, 1),
		vert(px+dlx*w+dx*aa, py+dly*w+dy*aa, u0, 0),
		vert(px-dlx*w+dx*aa, py-dly*w+dy*aa, u1, 0))
}

func roundCapStart(verts []vertex, p *point, dx, dy, w float32, ncap int, u0, u1 float32) []vertex {
	dlx := dy
	dly := -dx
	for i := 0; i < ncap; i++ {
		a := float64(i) / float64(ncap-1) * math.Pi
		sin, cos := math.Sincos(a)
		ax := float32(cos) * w
		ay := float32(sin) * w
		verts = append(verts,
			vert(p.x-dlx*ax-dx*ay, p.y-dly*ax-dy*ay, u0, 1),
			vert(p.x, p.y, 0.5, 1))
	}
	return append(verts,
		vert(p.x+dlx*w, p.y+dly*w, u0, 1),
		vert(p.x-dlx*w, p.y-dly*w, u1, 1))
}

func roundCapEnd(verts []vertex, p *point, dx, dy, w float32, ncap int, u0, u1 float32) []vertex {
	dlx := dy
	dly := -dx
	verts = append(verts,
		vert(p.x+dlx*w, p.y+dly*w, u0, 1),
		vert(p.x-dlx*w, p.y-dly*w, u1, 1))
	for i := 0; i < ncap; i++ {
		a := float64(i) / float64(ncap-1) * math.Pi
		sin, cos := math.Sincos(a)
		ax := float32(cos) * w
		ay := float32(sin) * w
		verts = append(verts,
			vert(p.x, p.y, 0.5, 1),
			vert(p.x-dlx*ax+dx*ay, p.y-dly*ax+dy*ay, u0, 1))
	}
	return verts
}

// chooseBevel picks the join anchor points: the two segment offsets
// when the inner side must be beveled, the shared miter point
// otherwise.
func chooseBevel(bevel bool, p0, p1 *point, w float32) (x0, y0, x1, y1 float32) {
	if bevel {
		x0 = p1.x + p0.dy*w
		y0 = p1.y - p0.dx*w
		x1 = p1.x + p1.dy*w
		y1 = p1.y - p1.dx*w
	} else {
		x0 = p1.x + p1.dmx*w
		y0 = p1.y + p1.dmy*w
		x1 = p1.x + p1.dmx*w
		y1 = p1.y + p1.dmy*w
	}
	return
}

func bevelJoin(verts []vertex, p0, p1 *point, lw, rw, lu, ru float32) []vertex {
	dlx0 := p0.dy
	dly0 := -p0.dx
	dlx1 := p1.dy
	dly1 := -p1.dx
	inner := p1.flags&pointInnerBevel != 0

	if p1.flags&pointLeft != 0 {
		lx0, ly0, lx1, ly1 := chooseBevel(inner, p0, p1, lw)
		verts = append(verts,
			vert(lx0, ly0, lu, 1),
			vert(p1.x-dlx0*rw, p1.y-dly0*rw, ru, 1))
		if p1.flags&pointBevel != 0 {
			verts = append(verts,
				vert(lx0, ly0, lu, 1),
				vert(p1.x-dlx0*rw, p1.y-dly0*rw, ru, 1),
				vert(lx1, ly1, lu, 1),
				vert(p1.x-dlx1*rw, p1.y-dly1*rw, ru, 1))
		} else {
			rx0 := p1.x - p1.dmx*rw
			ry0 := p1.y - p1.dmy*rw
			verts = append(verts,
				vert(p1.x, p1.y, 0.5, 1),
				vert(p1.x-dlx0*rw, p1.y-dly0*rw, ru, 1),
				vert(rx0, ry0, ru, 1),
				vert(rx0, ry0, ru, 1),
				vert(p1.x, p1.y, 0.5, 1),
				vert(p1.x-dlx1*rw, p1.y-dly1*rw, ru, 1))
		}
		verts = append(verts,
			vert(lx1, ly1, lu, 1),
			vert(p1.x-dlx1*rw, p1.y-dly1*rw, ru, 1))
	} else {
		rx0, ry0, rx1, ry1 := chooseBevel(inner, p0, p1, -rw)
		verts = append(verts,
			vert(p1.x+dlx0*lw, p1.y+dly0*lw, lu, 1),
			vert(rx0, ry0, ru, 1))
		if p1.flags&pointBevel != 0 {
			verts = append(verts,
				vert(p1.x+dlx0*lw, p1.y+dly0*lw, lu, 1),
				vert(rx0, ry0, ru, 1),
				vert(p1.x+dlx1*lw, p1.y+dly1*lw, lu, 1),
				vert(rx1, ry1, ru, 1))
		} else {
			lx0 := p1.x + p1.dmx*lw
			ly0 := p1.y + p1.dmy*lw
			verts = append(verts,
				vert(p1.x+dlx0*lw, p1.y+dly0*lw, lu, 1),
				vert(p1.x, p1.y, 0.5, 1),
				vert(lx0, ly0, lu, 1),
				vert(lx0, ly0, lu, 1),
				vert(p1.x+dlx1*lw, p1.y+dly1*lw, lu, 1),
				vert(p1.x, p1.y, 0.5, 1))
		}
		verts = append(verts,
			vert(p1.x+dlx1*lw, p1.y+dly1*lw, lu, 1),
			vert(rx1, ry1, ru, 1))
	}
	return verts
}

func roundJoin(verts []vertex, p0, p1 *point, lw, rw, lu, ru float32, ncap int) []vertex {
	dlx0 := p0.dy
	dly0 := -p0.dx
	dlx1 := p1.dy
	dly1 := -p1.dx
	inner := p1.flags&pointInnerBevel != 0

	if p1.flags&pointLeft != 0 {
		lx0, ly0, lx1, ly1 := chooseBevel(inner, p0, p1, lw)
		a0 := math.Atan2(float64(-dly0), float64(-dlx0))
		a1 := math.Atan2(float64(-dly1), float64(-dlx1))
		if a1 > a0 {
			a1 -= math.Pi * 2
		}
		verts = append(verts,
			vert(lx0, ly0, lu, 1),
			vert(p1.x-dlx0*rw, p1.y-dly0*rw, ru, 1))
		n := clampI(int(math.Ceil((a0-a1)/math.Pi*float64(ncap))), 2, ncap)
		for i := 0; i < n; i++ {
			u := float64(i) / float64(n-1)
			a := a0 + u*(a1-a0)
			sin, cos := math.Sincos(a)
			verts = append(verts,
				vert(p1.x, p1.y, 0.5, 1),
				vert(p1.x+float32(cos)*rw, p1.y+float32(sin)*rw, ru, 1))
		}
		verts = append(verts,
			vert(lx1, ly1, lu, 1),
			vert(p1.x-dlx1*rw, p1.y-dly1*rw, ru, 1))
	} else {
		rx0, ry0, rx1, ry1 := chooseBevel(inner, p0, p1, -rw)
		a0 := math.Atan2(float64(dly0), float64(dlx0))
		a1 := math.Atan2(float64(dly1), float64(dlx1))
		if a1 < a0 {
			a1 += math.Pi * 2
		}
		verts = append(verts,
			vert(p1.x+dlx0*lw, p1.y+dly0*lw, lu, 1),
			vert(rx0, ry0, ru, 1))
		n := clampI(int(math.Ceil((a1-a0)/math.Pi*float64(ncap))), 2, ncap)
		for i := 0; i < n; i++ {
			u := float64(i) / float64(n-1)
			a := a0 + u*(a1-a0)
			sin, cos := math.Sincos(a)
			verts = append(verts,
				vert(p1.x+float32(cos)*lw, p1.y+float32(sin)*lw, lu, 1),
				vert(p1.x, p1.y, 0.5, 1))
		}
		verts = append(verts,
			vert(p1.x+dlx1*lw, p1.y+dly1*lw, lu, 1),
			vert(rx1, ry1, ru, 1))
	}
	return verts
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
