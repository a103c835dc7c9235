// SPDX-License-Identifier: Unlicense OR MIT

package gpu

import (
	"github.com/pictorui/pictor/cell"
)

// expandFill appends the fill geometry for every sub-path in b to
// verts: a boundary fan slightly inset by half the fringe, plus an AA
// fringe strip along the edge. w is the fringe width when antialiasing
// is on, 0 otherwise. It reports whether the whole path can be drawn
// without stenciling.
func expandFill(verts []vertex, b *pathBuilder, w float32, lineJoin cell.LineJoin, miterLimit float32) ([]vertex, bool) {
	aa := w
	fringe := w > 0

	b.calculateJoins(w, lineJoin, miterLimit)

	convex := len(b.paths) == 1 && b.paths[0].convex

	for pi := range b.paths {
		path := &b.paths[pi]
		pts := b.points[path.first : path.first+path.count]
		woff := 0.5 * aa

		path.fillOffset = len(verts)
		if fringe {
			p0 := &pts[path.count-1]
			for j := 0; j < path.count; j++ {
				p1 := &pts[j]
				if p1.flags&pointBevel != 0 {
					dlx0 := p0.dy
					dly0 := -p0.dx
					dlx1 := p1.dy
					dly1 := -p1.dx
					if p1.flags&pointLeft != 0 {
						verts = append(verts, vert(p1.x+p1.dmx*woff, p1.y+p1.dmy*woff, 0.5, 1))
					} else {
						verts = append(verts,
							vert(p1.x+dlx0*woff, p1.y+dly0*woff, 0.5, 1),
							vert(p1.x+dlx1*woff, p1.y+dly1*woff, 0.5, 1))
					}
				} else {
					verts = append(verts, vert(p1.x+p1.dmx*woff, p1.y+p1.dmy*woff, 0.5, 1))
				}
				p0 = p1
			}
		} else {
			for j := 0; j < path.count; j++ {
				verts = append(verts, vert(pts[j].x, pts[j].y, 0.5, 1))
			}
		}
		path.fillCount = len(verts) - path.fillOffset

		if fringe {
			lw := w + woff
			rw := w - woff
			lu := float32(0)
			ru := float32(1)
			// Convex shapes get only the outer half of the fringe so
			// they can be drawn without stenciling; the fade midpoint
			// lands on the boundary.
			if convex {
				lw = woff
				lu = 0.5
			}
			path.strokeOffset = len(verts)
			p0 := &pts[path.count-1]
			for j := 0; j < path.count; j++ {
				p1 := &pts[j]
				if p1.flags&(pointBevel|pointInnerBevel) != 0 {
					verts = bevelJoin(verts, p0, p1, lw, rw, lu, ru)
				} else {
					verts = append(verts,
						vert(p1.x+p1.dmx*lw, p1.y+p1.dmy*lw, lu, 1),
						vert(p1.x-p1.dmx*rw, p1.y-p1.dmy*rw, ru, 1))
				}
				p0 = p1
			}
			first := verts[path.strokeOffset]
			second := verts[path.strokeOffset+1]
			verts = append(verts,
				vert(first.X, first.Y, lu, 1),
				vert(second.X, second.Y, ru, 1))
			path.strokeCount = len(verts) - path.strokeOffset
		} else {
			path.strokeOffset = 0
			path.strokeCount = 0
		}
	}
	return verts, convex
}
