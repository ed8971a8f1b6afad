// Package colorutil provides shared color utilities for the diagram display.
package colorutil

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// Common colors used throughout the display.
var (
	Black     = color.NRGBA{R: 0, G: 0, B: 0, A: 255}
	White     = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	Gray      = color.NRGBA{R: 128, G: 128, B: 128, A: 255}
	LightGray = color.NRGBA{R: 211, G: 211, B: 211, A: 255}
	DarkGray  = color.NRGBA{R: 64, G: 64, B: 64, A: 255}
	Blue      = color.NRGBA{R: 0, G: 0, B: 255, A: 255}
	Green     = color.NRGBA{R: 0, G: 160, B: 0, A: 255}
	Yellow    = color.NRGBA{R: 255, G: 255, B: 0, A: 255}
	Orange    = color.NRGBA{R: 255, G: 165, B: 0, A: 255}
)

// ParseHex parses "#rrggbb" or "#rrggbbaa" (the leading '#' is optional).
func ParseHex(s string) (color.NRGBA, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) != 6 && len(h) != 8 {
		return color.NRGBA{}, fmt.Errorf("colorutil: invalid color %q", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("colorutil: invalid color %q: %w", s, err)
	}
	if len(h) == 6 {
		v = v<<8 | 0xff
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}

// Hex formats c as "#rrggbb", or "#rrggbbaa" when it is not opaque.
func Hex(c color.NRGBA) string {
	if c.A == 255 {
		return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
	}
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}

// Lighten moves each channel towards white by factor (0 = unchanged, 1 = white).
func Lighten(c color.NRGBA, factor float64) color.NRGBA {
	if factor <= 0 {
		return c
	}
	if factor > 1 {
		factor = 1
	}
	lift := func(v uint8) uint8 {
		return v + uint8(float64(255-v)*factor+0.5)
	}
	return color.NRGBA{R: lift(c.R), G: lift(c.G), B: lift(c.B), A: c.A}
}

// WithAlpha returns c with its alpha channel replaced.
func WithAlpha(c color.NRGBA, alpha uint8) color.NRGBA {
	c.A = alpha
	return c
}
