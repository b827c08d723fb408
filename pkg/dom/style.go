package dom

import (
	"fmt"
	"strings"

	"golang.org/x/image/colornames"
)

// NormalizeColor canonicalizes a CSS-style color value. Named colors
// ("rebeccapurple") resolve through the SVG 1.1 color table to lowercase
// #rrggbb form; values already in hex form are lowercased. Returns false
// for values that are not recognizable colors (gradients, var() refs),
// which callers store verbatim.
func NormalizeColor(value string) (string, bool) {
	v := strings.ToLower(strings.TrimSpace(value))
	if strings.HasPrefix(v, "#") {
		if len(v) == 4 { // #rgb
			return fmt.Sprintf("#%c%c%c%c%c%c", v[1], v[1], v[2], v[2], v[3], v[3]), true
		}
		if len(v) == 7 {
			return v, true
		}
		return "", false
	}
	c, ok := colornames.Map[v]
	if !ok {
		return "", false
	}
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B), true
}

func isColorAttr(name string) bool {
	return name == "color" || name == "fill" || name == "stroke" ||
		strings.HasSuffix(name, "color")
}

func isColorProp(prop string) bool {
	return prop == "color" || prop == "fill" || prop == "stroke" ||
		strings.HasSuffix(prop, "-color")
}
