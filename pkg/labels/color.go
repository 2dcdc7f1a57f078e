package labels

import (
	"fmt"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// RGB is an 8-bit display color.
type RGB struct {
	R, G, B uint8
}

func (c RGB) String() string {
	return c.Colorful().Hex()
}

// Colorful converts to a go-colorful color.
func (c RGB) Colorful() colorful.Color {
	return colorful.Color{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255}
}

func clamp8(v int) uint8 {
	switch {
	case v < 0:
		return 0
	case v > 255:
		return 255
	}
	return uint8(v)
}

// Clamp builds an RGB from arbitrary ints.
func Clamp(r, g, b int) RGB {
	return RGB{clamp8(r), clamp8(g), clamp8(b)}
}

// Palette are the named colors offered when creating a label.
var Palette = []struct {
	Name string
	Hex  string
}{
	{"red", "#ff0000"},
	{"lime", "#00ff00"},
	{"blue", "#0000ff"},
	{"yellow", "#ffff00"},
	{"aqua", "#00ffff"},
	{"fuchsia", "#ff00ff"},
	{"maroon", "#800000"},
	{"green", "#008000"},
	{"navy", "#000080"},
}

// ParseColor accepts a palette name, a #rrggbb hex string or "r,g,b".
func ParseColor(s string) (RGB, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	for _, p := range Palette {
		if p.Name == s {
			s = p.Hex
			break
		}
	}
	if strings.HasPrefix(s, "#") {
		c, err := colorful.Hex(s)
		if err != nil {
			return RGB{}, fmt.Errorf("parsing color %q: %w", s, err)
		}
		r, g, b := c.RGB255()
		return RGB{r, g, b}, nil
	}
	s = strings.ReplaceAll(s, " ", "")
	var r, g, b int
	if _, err := fmt.Sscanf(s, "%d,%d,%d", &r, &g, &b); err != nil {
		return RGB{}, fmt.Errorf("parsing color %q: %w", s, err)
	}
	return Clamp(r, g, b), nil
}

// NextColor picks the palette color for the n-th label, falling back to
// evenly spaced hues once the palette is exhausted.
func NextColor(n int) RGB {
	if n >= 0 && n < len(Palette) {
		c, _ := colorful.Hex(Palette[n].Hex)
		r, g, b := c.RGB255()
		return RGB{r, g, b}
	}
	c := colorful.Hsv(float64((n*47)%360), 0.85, 0.95).Clamped()
	r, g, b := c.RGB255()
	return RGB{r, g, b}
}
