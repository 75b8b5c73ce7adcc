package canvas

import (
	"fmt"
	"strconv"
	"strings"
)

// Color is a 24-bit RGB value.
type Color uint32

// String formats the color as a #rrggbb literal.
func (c Color) String() string {
	return fmt.Sprintf("#%06x", uint32(c)&0xffffff)
}

// ParseColor parses a #rrggbb literal.
func ParseColor(s string) (Color, error) {
	raw, ok := strings.CutPrefix(s, "#")
	if !ok || len(raw) != 6 {
		return 0, fmt.Errorf("canvas: color %q is not a #rrggbb literal", s)
	}
	v, err := strconv.ParseUint(raw, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("canvas: parsing color %q: %w", s, err)
	}
	return Color(v), nil
}

// MarshalText implements encoding.TextMarshaler.
func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Color) UnmarshalText(text []byte) error {
	parsed, err := ParseColor(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Style is the display configuration a submitter attaches to a token. It is
// persisted separately from the claim so an expired token still renders.
type Style struct {
	Foreground Color `json:"foreground"`
	Background Color `json:"background"`
}
