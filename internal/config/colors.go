package config

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Color is a terminal color: an ANSI palette index ("0"-"255") or "#rrggbb".
type Color string

// Index returns the ANSI palette index, or -1 for hex colors.
func (c Color) Index() int {
	n, err := strconv.Atoi(string(c))
	if err != nil {
		return -1
	}
	return n
}

var namedColors = map[string]Color{
	"black":         "0",
	"red":           "1",
	"green":         "2",
	"yellow":        "3",
	"blue":          "4",
	"magenta":       "5",
	"cyan":          "6",
	"white":         "7",
	"gray":          "8",
	"grey":          "8",
	"brightred":     "9",
	"brightgreen":   "10",
	"brightyellow":  "11",
	"brightblue":    "12",
	"brightmagenta": "13",
	"brightcyan":    "14",
	"brightwhite":   "15",
}

// defaultPalette is cycled through for commands without an explicit color.
var defaultPalette = []Color{"6", "5", "3", "2", "4", "1", "14", "13", "11", "10", "12", "9"}

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// ParseColor resolves a color name, palette index or hex value.
func ParseColor(raw string) (Color, error) {
	v := strings.ToLower(strings.TrimSpace(raw))
	v = strings.NewReplacer("-", "", "_", "", " ", "").Replace(v)
	if v == "" {
		return "", fmt.Errorf("color must not be empty")
	}
	if c, ok := namedColors[v]; ok {
		return c, nil
	}
	if hexColor.MatchString(v) {
		return Color(v), nil
	}
	if n, err := strconv.Atoi(v); err == nil && n >= 0 && n <= 255 {
		return Color(v), nil
	}
	return "", fmt.Errorf("unknown color %q", raw)
}

func paletteColor(i int) Color {
	return defaultPalette[i%len(defaultPalette)]
}
