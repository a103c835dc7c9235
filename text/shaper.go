// SPDX-License-Identifier: Unlicense OR MIT

package text

import (
	"unicode"

	"github.com/go-text/typesetting/di"
	"github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/language"
	"github.com/go-text/typesetting/shaping"
	"golang.org/x/image/math/fixed"

	"github.com/pictorui/pictor/f32"
)

// Glyph is one shaped glyph positioned relative to the run origin.
type Glyph struct {
	ID      font.GID
	Cluster int
	// Offset displaces the glyph from the pen position, in pixels.
	// Y grows down.
	Offset f32.Point
	// Advance moves the pen after the glyph is placed.
	Advance float32
}

// Line is the result of shaping a single run of text.
type Line struct {
	Glyphs []Glyph
	// Advance is the total pen movement of the line.
	Advance float32
}

// Shaper converts text strings into positioned glyphs. It reuses its
// HarfBuzz state between calls and is not safe for concurrent use.
type Shaper struct {
	hb shaping.HarfbuzzShaper
}

// Shape shapes str with face at the given pixel size. The script and
// direction are detected from the text.
func (s *Shaper) Shape(face *Face, size float32, str string) Line {
	runes := []rune(str)
	if len(runes) == 0 {
		return Line{}
	}
	script := detectScript(runes)
	out := s.hb.Shape(shaping.Input{
		Text:      runes,
		RunStart:  0,
		RunEnd:    len(runes),
		Direction: scriptDirection(script),
		Face:      face.shaping,
		Size:      fixed.Int26_6(size*64 + 0.5),
		Script:    script,
		Language:  language.DefaultLanguage(),
	})
	line := Line{Glyphs: make([]Glyph, 0, len(out.Glyphs))}
	for _, g := range out.Glyphs {
		line.Glyphs = append(line.Glyphs, Glyph{
			ID:      g.GlyphID,
			Cluster: g.ClusterIndex,
			// Shaping offsets are y-up.
			Offset: f32.Point{
				X: float32(g.XOffset) / 64,
				Y: -float32(g.YOffset) / 64,
			},
			Advance: float32(g.XAdvance) / 64,
		})
		line.Advance += float32(g.XAdvance) / 64
	}
	return line
}

func scriptDirection(script language.Script) di.Direction {
	switch script {
	case language.Arabic, language.Hebrew, language.Syriac, language.Thaana, language.Nko:
		return di.DirectionRTL
	default:
		return di.DirectionLTR
	}
}

func detectScript(runes []rune) language.Script {
	counts := make(map[language.Script]int)
	maxCount := 0
	best := language.Latin
	for _, r := range runes {
		script := scriptFromRune(r)
		if script == language.Unknown {
			continue
		}
		counts[script]++
		if counts[script] > maxCount {
			maxCount = counts[script]
			best = script
		}
	}
	return best
}

func scriptFromRune(r rune) language.Script {
	switch {
	case unicode.Is(unicode.Latin, r):
		return language.Latin
	case unicode.Is(unicode.Arabic, r):
		return language.Arabic
	case unicode.Is(unicode.Hebrew, r):
		return language.Hebrew
	case unicode.Is(unicode.Cyrillic, r):
		return language.Cyrillic
	case unicode.Is(unicode.Greek, r):
		return language.Greek
	case unicode.Is(unicode.Thai, r):
		return language.Thai
	case unicode.Is(unicode.Devanagari, r):
		return language.Devanagari
	case unicode.Is(unicode.Han, r):
		return language.Han
	case unicode.Is(unicode.Hiragana, r):
		return language.Hiragana
	case unicode.Is(unicode.Katakana, r):
		return language.Katakana
	case unicode.Is(unicode.Hangul, r):
		return language.Hangul
	}
	return language.Unknown
}
