// SPDX-License-Identifier: Unlicense OR MIT

package f32color

import (
	"image/color"
	"testing"
)

func TestNRGBAToLinearRGBA_Boundary(t *testing.T) {
	for col := 0; col <= 0xFF; col++ {
		for alpha := 0; alpha <= 0xFF; alpha++ {
			in := color.NRGBA{R: uint8(col), A: uint8(alpha)}
			premul := NRGBAToLinearRGBA(in)
			if premul.A != uint8(alpha) {
				t.Errorf("%v: got %v expected %v", in, premul.A, alpha)
			}
			if premul.R > premul.A {
				t.Errorf("%v: R=%v > A=%v", in, premul.R, premul.A)
			}
		}
	}
}

func TestLinearToRGBARoundtrip(t *testing.T) {
	for col := 0; col <= 0xFF; col++ {
		for alpha := 0; alpha <= 0xFF; alpha++ {
			want := color.NRGBA{R: uint8(col), A: uint8(alpha)}
			if alpha == 0 {
				want.R = 0
			}
			got := LinearFromSRGB(want).SRGB()
			if want != got {
				t.Errorf("got %v expected %v", got, want)
			}
		}
	}
}

func TestMulAlpha(t *testing.T) {
	col := RGBA{R: 0.8, G: 0.5, B: 0.25, A: 1}
	got := col.MulAlpha(0.5)
	want := RGBA{R: 0.4, G: 0.25, B: 0.125, A: 0.5}
	if got != want {
		t.Errorf("MulAlpha(0.5) = %+v, want %+v", got, want)
	}
	if got := col.MulAlpha(1); got != col {
		t.Errorf("MulAlpha(1) = %+v, want %+v", got, col)
	}
	if got := col.MulAlpha(0); got != (RGBA{}) {
		t.Errorf("MulAlpha(0) = %+v, want zero", got)
	}
	// Premultiplied colors keep every component below alpha.
	half := LinearFromSRGB(color.NRGBA{R: 0xff, G: 0x80, B: 0x10, A: 0xff}).MulAlpha(0.5)
	for i, c := range [...]float32{half.R, half.G, half.B} {
		if c > half.A {
			t.Errorf("component %d = %g exceeds alpha %g", i, c, half.A)
		}
	}
}

var sink RGBA

func BenchmarkLinearFromSRGB(b *testing.B) {
	b.Run("opaque", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			sink = LinearFromSRGB(color.NRGBA{R: byte(i), G: byte(i >> 8), B: byte(i >> 16), A: 0xFF})
		}
	})
	b.Run("translucent", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			sink = LinearFromSRGB(color.NRGBA{R: byte(i), G: byte(i >> 8), B: byte(i >> 16), A: 0x50})
		}
	})
	b.Run("transparent", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			sink = LinearFromSRGB(color.NRGBA{R: byte(i), G: byte(i >> 8), B: byte(i >> 16), A: 0x00})
		}
	})
}
