// SPDX-License-Identifier: Unlicense OR MIT

package cell

import (
	"github.com/pictorui/pictor/f32"
	"github.com/pictorui/pictor/internal/f32color"
)

// Winding selects the orientation of a sub-path. Solid sub-paths wind
// counter-clockwise, holes clockwise.
type Winding uint8

const (
	Solid Winding = iota
	Hole
)

// Sweep direction aliases for Arc.
const (
	CCW = Solid
	CW  = Hole
)

// LineCap styles the ends of open stroked sub-paths.
type LineCap uint8

const (
	ButtCap LineCap = iota
	RoundCap
	SquareCap
)

// LineJoin styles the corners between stroke segments.
type LineJoin uint8

const (
	MiterJoin LineJoin = iota
	RoundJoin
	BevelJoin
)

// BlendMode selects one of the Porter-Duff compositing operators.
type BlendMode uint8

const (
	SourceOver BlendMode = iota
	SourceIn
	SourceOut
	SourceAtop
	DestinationOver
	DestinationIn
	DestinationOut
	DestinationAtop
	Lighter
	Copy
	Xor
)

// Scissor is a rotated rectangle clipping region, applied in the
// fragment program rather than through the scissor test. Extent is the
// half-size; a negative extent means no scissor.
type Scissor struct {
	Xform  f32.Affine2D
	Extent f32.Point
}

// Empty reports whether s clips nothing.
func (s Scissor) Empty() bool {
	return s.Extent.X < 0
}

// State is one frame of the Painter's state stack. Fill and stroke
// directives snapshot it into the cell's state pool.
type State struct {
	Xform       f32.Affine2D
	Scissor     Scissor
	Blend       BlendMode
	Cap         LineCap
	Join        LineJoin
	Alpha       float32
	MiterLimit  float32
	StrokeWidth float32
	Fill        Paint
	Stroke      Paint
}

func defaultState() State {
	return State{
		Scissor:     Scissor{Extent: f32.Pt(-1, -1)},
		Blend:       SourceOver,
		Cap:         ButtCap,
		Join:        MiterJoin,
		Alpha:       1,
		MiterLimit:  10,
		StrokeWidth: 1,
		Fill:        ColorPaint(f32color.RGBA{R: 1, G: 1, B: 1, A: 1}),
		Stroke:      ColorPaint(f32color.RGBA{A: 1}),
	}
}
