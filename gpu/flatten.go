// SPDX-License-Identifier: Unlicense OR MIT

package gpu

import (
	"math"

	"github.com/pictorui/pictor/cell"
	"github.com/pictorui/pictor/f32"
)

type pointFlags uint8

const (
	pointCorner pointFlags = 1 << iota
	pointLeft
	pointBevel
	pointInnerBevel
)

// point is one flattened polyline vertex with the precomputed segment
// direction and join normal used by the expanders.
type point struct {
	x, y float32
	// dx, dy is the unit direction to the next point, len its length.
	dx, dy float32
	len    float32
	// dmx, dmy is the scaled join normal at this point.
	dmx, dmy float32
	flags    pointFlags
}

// subPath is one contiguous point range of the flattened path.
type subPath struct {
	first   int
	count   int
	closed  bool
	winding cell.Winding
	convex  bool
	nbevel  int

	// Spans into the frame vertex buffer, filled by the expanders.
	fillOffset   int
	fillCount    int
	strokeOffset int
	strokeCount  int
}

// Raw path command codes, embedded in the float command buffer.
const (
	cmdMoveTo float32 = iota
	cmdLineTo
	cmdBezierTo
	cmdClose
	cmdWinding
)

// pathBuilder accumulates raw path segments and flattens them on
// demand. The flattened form is cached until the next raw command.
type pathBuilder struct {
	commands  []float32
	flattened bool

	points []point
	paths  []subPath
	bounds f32.Rectangle
}

func (b *pathBuilder) reset() {
	b.commands = b.commands[:0]
	b.flattened = false
}

func (b *pathBuilder) moveTo(p f32.Point) {
	b.commands = append(b.commands, cmdMoveTo, p.X, p.Y)
	b.flattened = false
}

func (b *pathBuilder) lineTo(p f32.Point) {
	b.commands = append(b.commands, cmdLineTo, p.X, p.Y)
	b.flattened = false
}

func (b *pathBuilder) bezierTo(c1, c2, end f32.Point) {
	b.commands = append(b.commands, cmdBezierTo, c1.X, c1.Y, c2.X, c2.Y, end.X, end.Y)
	b.flattened = false
}

func (b *pathBuilder) close() {
	b.commands = append(b.commands, cmdClose)
	b.flattened = false
}

func (b *pathBuilder) setWinding(w cell.Winding) {
	b.commands = append(b.commands, cmdWinding, float32(w))
	b.flattened = false
}

func (b *pathBuilder) lastPath() *subPath {
	if len(b.paths) == 0 {
		return nil
	}
	return &b.paths[len(b.paths)-1]
}

func (b *pathBuilder) addPath() {
	b.paths = append(b.paths, subPath{
		first:   len(b.points),
		winding: cell.Solid,
	})
}

func (b *pathBuilder) addPoint(x, y float32, flags pointFlags, distTol float32) {
	path := b.lastPath()
	if path == nil {
		return
	}
	if path.count > 0 && len(b.points) > 0 {
		last := &b.points[len(b.points)-1]
		if ptEquals(last.x, last.y, x, y, distTol) {
			last.flags |= flags
			return
		}
	}
	b.points = append(b.points, point{x: x, y: y, flags: flags})
	path.count++
}

func (b *pathBuilder) closePath() {
	if path := b.lastPath(); path != nil {
		path.closed = true
	}
}

func (b *pathBuilder) pathWinding(w cell.Winding) {
	if path := b.lastPath(); path != nil {
		path.winding = w
	}
}

// flatten converts the raw commands into deduplicated polylines with
// per-point directions, enforcing declared windings and dropping
// degenerate sub-paths.
func (b *pathBuilder) flatten(tessTol, distTol float32) {
	if b.flattened {
		return
	}
	b.flattened = true
	b.points = b.points[:0]
	b.paths = b.paths[:0]

	var pen f32.Point
	for i := 0; i < len(b.commands); {
		switch b.commands[i] {
		case cmdMoveTo:
			b.addPath()
			pen = f32.Pt(b.commands[i+1], b.commands[i+2])
			b.addPoint(pen.X, pen.Y, pointCorner, distTol)
			i += 3
		case cmdLineTo:
			pen = f32.Pt(b.commands[i+1], b.commands[i+2])
			b.addPoint(pen.X, pen.Y, pointCorner, distTol)
			i += 3
		case cmdBezierTo:
			if b.lastPath() != nil && b.lastPath().count > 0 {
				b.tesselateBezier(
					pen.X, pen.Y,
					b.commands[i+1], b.commands[i+2],
					b.commands[i+3], b.commands[i+4],
					b.commands[i+5], b.commands[i+6],
					0, pointCorner, tessTol, distTol)
			}
			pen = f32.Pt(b.commands[i+5], b.commands[i+6])
			i += 7
		case cmdClose:
			b.closePath()
			i++
		case cmdWinding:
			b.pathWinding(cell.Winding(b.commands[i+1]))
			i += 2
		default:
			i++
		}
	}

	b.bounds = f32.Rectangle{
		Min: f32.Pt(float32(math.Inf(1)), float32(math.Inf(1))),
		Max: f32.Pt(float32(math.Inf(-1)), float32(math.Inf(-1))),
	}
	kept := b.paths[:0]
	for pi := range b.paths {
		path := &b.paths[pi]
		pts := b.points[path.first : path.first+path.count]
		// Merge coincident endpoints.
		if path.count > 1 {
			p0 := &pts[path.count-1]
			p1 := &pts[0]
			if ptEquals(p0.x, p0.y, p1.x, p1.y, distTol) {
				path.count--
				pts = pts[:path.count]
				path.closed = true
			}
		}
		if path.count < 2 {
			continue
		}
		// Enforce the declared winding.
		if path.count > 2 {
			area := polyArea(pts)
			if path.winding == cell.Solid && area < 0 {
				polyReverse(pts)
			}
			if path.winding == cell.Hole && area > 0 {
				polyReverse(pts)
			}
		}
		for i := range pts {
			p0 := &pts[i]
			p1 := &pts[(i+1)%len(pts)]
			p0.dx = p1.x - p0.x
			p0.dy = p1.y - p0.y
			p0.len, p0.dx, p0.dy = normalize(p0.dx, p0.dy)
			b.bounds.Min.X = minF(b.bounds.Min.X, p0.x)
			b.bounds.Min.Y = minF(b.bounds.Min.Y, p0.y)
			b.bounds.Max.X = maxF(b.bounds.Max.X, p0.x)
			b.bounds.Max.Y = maxF(b.bounds.Max.Y, p0.y)
		}
		kept = append(kept, *path)
	}
	b.paths = kept
}

func (b *pathBuilder) tesselateBezier(x1, y1, x2, y2, x3, y3, x4, y4 float32, level int, flags pointFlags, tessTol, distTol float32) {
	if level > 10 {
		return
	}
	x12 := (x1 + x2) * 0.5
	y12 := (y1 + y2) * 0.5
	x23 := (x2 + x3) * 0.5
	y23 := (y2 + y3) * 0.5
	x34 := (x3 + x4) * 0.5
	y34 := (y3 + y4) * 0.5
	x123 := (x12 + x23) * 0.5
	y123 := (y12 + y23) * 0.5

	dx := x4 - x1
	dy := y4 - y1
	d2 := absF((x2-x4)*dy - (y2-y4)*dx)
	d3 := absF((x3-x4)*dy - (y3-y4)*dx)

	if d := d2 + d3; d*d < tessTol*tessTol*(dx*dx+dy*dy) {
		b.addPoint(x4, y4, flags, distTol)
		return
	}

	x234 := (x23 + x34) * 0.5
	y234 := (y23 + y34) * 0.5
	x1234 := (x123 + x234) * 0.5
	y1234 := (y123 + y234) * 0.5

	b.tesselateBezier(x1, y1, x12, y12, x123, y123, x1234, y1234, level+1, 0, tessTol, distTol)
	b.tesselateBezier(x1234, y1234, x234, y234, x34, y34, x4, y4, level+1, flags, tessTol, distTol)
}

// calculateJoins classifies each joint for the expanders: join normals,
// left turns, and bevel/innerbevel flags from the miter limit.
func (b *pathBuilder) calculateJoins(w float32, lineJoin cell.LineJoin, miterLimit float32) {
	var iw float32
	if w > 0 {
		iw = 1.0 / w
	}
	for pi := range b.paths {
		path := &b.paths[pi]
		pts := b.points[path.first : path.first+path.count]
		nleft := 0
		path.nbevel = 0
		p0 := &pts[path.count-1]
		for i := 0; i < path.count; i++ {
			p1 := &pts[i]
			dlx0, dly0 := p0.dy, -p0.dx
			dlx1, dly1 := p1.dy, -p1.dx
			p1.dmx = (dlx0 + dlx1) * 0.5
			p1.dmy = (dly0 + dly1) * 0.5
			dmr2 := p1.dmx*p1.dmx + p1.dmy*p1.dmy
			if dmr2 > 1e-6 {
				scale := minF(1.0/dmr2, 600)
				p1.dmx *= scale
				p1.dmy *= scale
			}
			p1.flags &= pointCorner

			cross := p1.dx*p0.dy - p0.dx*p1.dy
			if cross > 0 {
				nleft++
				p1.flags |= pointLeft
			}

			// Inner bevel when the segments are too short for the
			// miter offset.
			limit := maxF(1.01, minF(p0.len, p1.len)*iw)
			if dmr2*limit*limit < 1.0 {
				p1.flags |= pointInnerBevel
			}

			if p1.flags&pointCorner != 0 {
				if dmr2*miterLimit*miterLimit < 1.0 || lineJoin == cell.BevelJoin || lineJoin == cell.RoundJoin {
					p1.flags |= pointBevel
				}
			}
			if p1.flags&(pointBevel|pointInnerBevel) != 0 {
				path.nbevel++
			}
			p0 = p1
		}
		path.convex = nleft == path.count
	}
}

func polyArea(pts []point) float32 {
	var area float32
	for i := 2; i < len(pts); i++ {
		a := &pts[0]
		b := &pts[i-1]
		c := &pts[i]
		area += (c.x-a.x)*(b.y-a.y) - (b.x-a.x)*(c.y-a.y)
	}
	return area * 0.5
}

func polyReverse(pts []point) {
	for i, j := 0, len(pts)-1; i < j; i, j = i+1, j-1 {
		pts[i], pts[j] = pts[j], pts[i]
	}
}

func ptEquals(x1, y1, x2, y2, tol float32) bool {
	dx := x2 - x1
	dy := y2 - y1
	return dx*dx+dy*dy < tol*tol
}

func normalize(x, y float32) (float32, float32, float32) {
	d := float32(math.Sqrt(float64(x*x + y*y)))
	if d > 1e-6 {
		id := 1.0 / d
		x *= id
		y *= id
	}
	return d, x, y
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

func maxF(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

func clampF(v, lo, hi float32) float32 {
	switch {
	case v < lo:
		return lo
	case v > hi:
		return hi
	default:
		return v
	}
}
