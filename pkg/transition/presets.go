package transition

import (
	"fmt"
	"time"

	"github.com/veld-ui/veld/pkg/dom"
)

// Fade animates opacity between 0 and 1.
func Fade(duration time.Duration) Spec {
	return Spec{
		Duration: duration,
		Easing:   LinearCurve,
		Apply: func(el *dom.Element, t float64) {
			el.SetStyle("opacity", formatFloat(t))
		},
	}
}

// Fly moves the element in from an offset while fading.
func Fly(duration time.Duration, x, y float64) Spec {
	return Spec{
		Duration: duration,
		Easing:   EaseOut,
		Apply: func(el *dom.Element, t float64) {
			inv := 1 - t
			el.SetStyle("opacity", formatFloat(t))
			el.SetStyle("transform",
				fmt.Sprintf("translate(%spx, %spx)", formatFloat(x*inv), formatFloat(y*inv)))
		},
	}
}

// Slide collapses the element's height toward zero.
func Slide(duration time.Duration) Spec {
	return Spec{
		Duration: duration,
		Easing:   EaseInOut,
		Apply: func(el *dom.Element, t float64) {
			el.SetStyle("transform", fmt.Sprintf("scaleY(%s)", formatFloat(t)))
		},
	}
}

// Scale shrinks the element toward its center while fading.
func Scale(duration time.Duration) Spec {
	return Spec{
		Duration: duration,
		Easing:   EaseInOut,
		Apply: func(el *dom.Element, t float64) {
			el.SetStyle("opacity", formatFloat(t))
			el.SetStyle("transform", fmt.Sprintf("scale(%s)", formatFloat(t)))
		},
	}
}

// formatFloat trims trailing zeros so style values are stable in snapshots.
func formatFloat(v float64) string {
	s := fmt.Sprintf("%.4f", v)
	for len(s) > 1 && s[len(s)-1] == '0' {
		s = s[:len(s)-1]
	}
	if s[len(s)-1] == '.' {
		s = s[:len(s)-1]
	}
	return s
}
