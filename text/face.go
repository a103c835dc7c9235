// SPDX-License-Identifier: Unlicense OR MIT

// Package text shapes runs of text and rasterizes their glyphs into an
// alpha atlas texture suitable for textured quad rendering.
package text

import (
	"bytes"
	"sync/atomic"

	"github.com/go-text/typesetting/font"
	xfont "golang.org/x/image/font"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
)

// Face is a parsed font usable for both shaping and rasterization. A
// Face is immutable after ParseTTF and may be shared between shapers,
// but the rasterization buffers inside Atlas are not, so a Face and an
// Atlas pair must be confined to one goroutine.
type Face struct {
	id      uint32
	shaping *font.Face
	outline *sfnt.Font
}

var faceIDs atomic.Uint32

// ParseTTF parses a TrueType or OpenType font.
func ParseTTF(data []byte) (*Face, error) {
	shaped, err := font.ParseTTF(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	out, err := sfnt.Parse(data)
	if err != nil {
		return nil, err
	}
	return &Face{
		id:      faceIDs.Add(1),
		shaping: shaped,
		outline: out,
	}, nil
}

// Metrics reports the vertical metrics of the face scaled to the given
// pixel size.
type Metrics struct {
	Ascent  float32
	Descent float32
	Height  float32
}

func (f *Face) Metrics(size float32) Metrics {
	var buf sfnt.Buffer
	ppem := fixed.Int26_6(size*64 + 0.5)
	m, err := f.outline.Metrics(&buf, ppem, xfont.HintingNone)
	if err != nil {
		return Metrics{}
	}
	return Metrics{
		Ascent:  float32(m.Ascent) / 64,
		Descent: float32(m.Descent) / 64,
		Height:  float32(m.Height) / 64,
	}
}
