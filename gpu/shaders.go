// SPDX-License-Identifier: Unlicense OR MIT

package gpu

import "github.com/pictorui/pictor/gpu/driver"

var vertexShader = driver.ShaderSources{
	Name: "canvas.vert",
	Inputs: []driver.InputLocation{
		{Name: "vertex", Location: 0, Type: driver.DataTypeFloat, Size: 2},
		{Name: "tcoord", Location: 1, Type: driver.DataTypeFloat, Size: 2},
	},
	Uniforms: driver.UniformsReflection{
		Locations: []driver.UniformLocation{
			{Name: "viewSize", Type: driver.DataTypeFloat, Size: 2, Offset: 0},
		},
		Size: 16,
	},
	GLSL100ES: `
uniform vec2 viewSize;
attribute vec2 vertex;
attribute vec2 tcoord;
varying vec2 ftcoord;
varying vec2 fpos;

void main(void) {
	ftcoord = tcoord;
	fpos = vertex;
	gl_Position = vec4(2.0*vertex.x/viewSize.x - 1.0, 1.0 - 2.0*vertex.y/viewSize.y, 0.0, 1.0);
}
`,
	GLSL150: `
uniform vec2 viewSize;
in vec2 vertex;
in vec2 tcoord;
out vec2 ftcoord;
out vec2 fpos;

void main(void) {
	ftcoord = tcoord;
	fpos = vertex;
	gl_Position = vec4(2.0*vertex.x/viewSize.x - 1.0, 1.0 - 2.0*vertex.y/viewSize.y, 0.0, 1.0);
}
`,
}

var fragmentShader = driver.ShaderSources{
	Name: "canvas.frag",
	Uniforms: driver.UniformsReflection{
		Blocks: []driver.UniformBlock{
			{Name: "variables", Binding: 0},
		},
		Size: shaderVariablesSize,
	},
	Textures: []driver.TextureBinding{
		{Name: "image", Binding: 0},
	},
	GLSL100ES: `
precision highp float;
` + fragmentBody(false),
	GLSL150: fragmentBody(true),
}

// fragmentBody returns the shared fragment program. The uniform block
// mirrors the shaderVariables layout; type selects gradient, image,
// stencil pass-through or text coverage.
func fragmentBody(modern bool) string {
	// GLSL 100 ES has no uniform blocks; the members are declared as
	// plain uniforms and bound by name with the same std140 offsets.
	decl := `
uniform mat3 scissorMat;
uniform mat3 paintMat;
uniform vec4 innerCol;
uniform vec4 outerCol;
uniform vec2 scissorExt;
uniform vec2 scissorScale;
uniform vec2 extent;
uniform float radius;
uniform float feather;
uniform float strokeMult;
uniform float strokeThr;
uniform int texType;
uniform int type;

varying vec2 ftcoord;
varying vec2 fpos;
#define outColor gl_FragColor
#define fetch texture2D
`
	if modern {
		decl = `
layout(std140) uniform variables {
	mat3 scissorMat;
	mat3 paintMat;
	vec4 innerCol;
	vec4 outerCol;
	vec2 scissorExt;
	vec2 scissorScale;
	vec2 extent;
	float radius;
	float feather;
	float strokeMult;
	float strokeThr;
	int texType;
	int type;
};

in vec2 ftcoord;
in vec2 fpos;
out vec4 outColor;
#define fetch texture
`
	}
	return `
uniform sampler2D image;
` + decl + `

float sdroundrect(vec2 pt, vec2 ext, float rad) {
	vec2 ext2 = ext - vec2(rad, rad);
	vec2 d = abs(pt) - ext2;
	return min(max(d.x, d.y), 0.0) + length(max(d, 0.0)) - rad;
}

// Scissoring
float scissorMask(vec2 p) {
	vec2 sc = (abs((scissorMat * vec3(p, 1.0)).xy) - scissorExt);
	sc = vec2(0.5, 0.5) - sc * scissorScale;
	return clamp(sc.x, 0.0, 1.0) * clamp(sc.y, 0.0, 1.0);
}

// Stroke - from [0..1] to clipped pyramid, where the slope is 1px.
float strokeMask() {
	return min(1.0, (1.0 - abs(ftcoord.x*2.0 - 1.0)) * strokeMult) * min(1.0, ftcoord.y);
}

void main(void) {
	vec4 result;
	float scissor = scissorMask(fpos);
	float strokeAlpha = strokeMask();
	if (strokeAlpha < strokeThr) discard;
	if (type == 0) {
		// Gradient
		vec2 pt = (paintMat * vec3(fpos, 1.0)).xy;
		float d = clamp((sdroundrect(pt, extent, radius) + feather*0.5) / feather, 0.0, 1.0);
		vec4 color = mix(innerCol, outerCol, d);
		result = color * strokeAlpha * scissor;
	} else if (type == 1) {
		// Image
		vec2 pt = (paintMat * vec3(fpos, 1.0)).xy / extent;
		vec4 color = fetch(image, pt);
		if (texType == 2) color = vec4(color.x);
		result = color * innerCol * strokeAlpha * scissor;
	} else if (type == 2) {
		// Stencil fill
		result = vec4(1.0, 1.0, 1.0, 1.0);
	} else {
		// Text, coverage replicated for premultiplied blending.
		vec4 color = vec4(fetch(image, ftcoord).x);
		result = color * innerCol * scissor;
	}
	outColor = result;
}
`
}
