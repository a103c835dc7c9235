// SPDX-License-Identifier: Unlicense OR MIT

package gpu

import (
	"math"
	"unsafe"

	"github.com/pictorui/pictor/cell"
	"github.com/pictorui/pictor/f32"
)

// Fragment program paint types.
const (
	fragGradient int32 = iota
	fragImage
	fragStencil
	fragText
)

// Texture channel layouts as seen by the fragment program.
const (
	texTypeNone int32 = iota
	texTypeRGBA
	texTypeAlpha
)

// shaderVariables is the 176 byte std140 uniform block consumed by the
// fragment program. The 2×3 affines are packed as three vec4 columns.
type shaderVariables struct {
	scissorMat   [12]float32
	paintMat     [12]float32
	innerCol     [4]float32
	outerCol     [4]float32
	scissorExt   [2]float32
	scissorScale [2]float32
	extent       [2]float32
	radius       float32
	feather      float32
	strokeMult   float32
	strokeThr    float32
	texType      int32
	paintType    int32
}

const shaderVariablesSize = 176

var _ [shaderVariablesSize]byte = [unsafe.Sizeof(shaderVariables{})]byte{}

// xformToMat3x4 packs the inverse of a 2×3 affine into vec4 columns.
func xformToMat3x4(m *[12]float32, t f32.Affine2D) {
	sx, hx, ox, hy, sy, oy := t.Elems()
	m[0] = sx
	m[1] = hy
	m[2] = 0
	m[3] = 0
	m[4] = hx
	m[5] = sy
	m[6] = 0
	m[7] = 0
	m[8] = ox
	m[9] = oy
	m[10] = 1
	m[11] = 0
}

// paintToFrag fills a uniform block from a paint and scissor. The
// stroke threshold is -1 for fills; stroke fringe passes use it to
// discard interior fragments that would blend twice.
func paintToFrag(frag *shaderVariables, paint cell.Paint, scissor cell.Scissor, width, fringe, strokeThr float32) {
	*frag = shaderVariables{}
	frag.innerCol = paint.InnerColor.Array()
	frag.outerCol = paint.OuterColor.Array()

	if scissor.Extent.X < -0.5 || scissor.Extent.Y < -0.5 {
		// No scissor: a zero matrix with unit extent and scale makes
		// the shader mask pass every fragment.
		frag.scissorExt = [2]float32{1, 1}
		frag.scissorScale = [2]float32{1, 1}
	} else {
		xformToMat3x4(&frag.scissorMat, scissor.Xform.Invert())
		frag.scissorExt = [2]float32{scissor.Extent.X, scissor.Extent.Y}
		sx, hx, _, hy, sy, _ := scissor.Xform.Elems()
		frag.scissorScale = [2]float32{
			float32(math.Sqrt(float64(sx*sx+hx*hx))) / fringe,
			float32(math.Sqrt(float64(hy*hy+sy*sy))) / fringe,
		}
	}
	frag.extent = [2]float32{paint.Extent.X, paint.Extent.Y}
	frag.strokeMult = (width*0.5 + fringe*0.5) / fringe
	frag.strokeThr = strokeThr

	if paint.Texture != nil {
		frag.paintType = fragImage
		frag.texType = texTypeRGBA
	} else {
		frag.paintType = fragGradient
		frag.radius = paint.Radius
		frag.feather = paint.Feather
	}
	xformToMat3x4(&frag.paintMat, paint.Xform.Invert())
}
