package fibsterm

import "strconv"

// ColorType indicates how a color was specified
type ColorType uint8

const (
	ColorTypeDefault   ColorType = iota // Use terminal default fg/bg (SGR 39/49)
	ColorTypeStandard                   // Standard 16 ANSI colors (0-15)
	ColorTypeTrueColor                  // 24-bit RGB
)

// Color is a terminal color used for the frame around the panels
type Color struct {
	Type    ColorType
	Index   uint8 // For Standard (0-15)
	R, G, B uint8 // For TrueColor
}

// DefaultColor leaves the terminal's own foreground or background in place
var DefaultColor = Color{Type: ColorTypeDefault}

// StandardColor creates a standard 16-color ANSI color (index 0-15)
func StandardColor(index int) Color {
	if index < 0 || index > 15 {
		index = 7 // Default to white
	}
	return Color{Type: ColorTypeStandard, Index: uint8(index)}
}

// TrueColor creates a 24-bit true color
func TrueColor(r, g, b uint8) Color {
	return Color{Type: ColorTypeTrueColor, R: r, G: g, B: b}
}

// IsDefault returns true if this is the default fg/bg color
func (c Color) IsDefault() bool {
	return c.Type == ColorTypeDefault
}

// ToSGRCode returns the SGR color code(s) for this color (foreground if isFg=true)
func (c Color) ToSGRCode(isFg bool) string {
	switch c.Type {
	case ColorTypeStandard:
		idx := int(c.Index)
		if idx < 8 {
			if isFg {
				return strconv.Itoa(30 + idx)
			}
			return strconv.Itoa(40 + idx)
		}
		if isFg {
			return strconv.Itoa(90 + idx - 8)
		}
		return strconv.Itoa(100 + idx - 8)
	case ColorTypeTrueColor:
		rgb := strconv.Itoa(int(c.R)) + ";" + strconv.Itoa(int(c.G)) + ";" + strconv.Itoa(int(c.B))
		if isFg {
			return "38;2;" + rgb
		}
		return "48;2;" + rgb
	}
	if isFg {
		return "39"
	}
	return "49"
}

// Foreground returns the escape sequence selecting c as the foreground color
func (c Color) Foreground() string {
	return "\033[" + c.ToSGRCode(true) + "m"
}

// ColorScheme holds the colors of the screen layout. Server text is always drawn
// in the terminal's default colors.
type ColorScheme struct {
	Border Color
	Title  Color
	Prompt Color
	Mask   Color
}

// DefaultColorScheme returns the colors used when none are configured
func DefaultColorScheme() ColorScheme {
	return ColorScheme{
		Border: StandardColor(8),
		Title:  StandardColor(14),
		Prompt: StandardColor(10),
		Mask:   StandardColor(11),
	}
}

// PlainColorScheme draws everything in the terminal's default colors
func PlainColorScheme() ColorScheme {
	return ColorScheme{
		Border: DefaultColor,
		Title:  DefaultColor,
		Prompt: DefaultColor,
		Mask:   DefaultColor,
	}
}
