// Package overlay computes where overlay text is drawn on a page.
package overlay

import (
	"strings"

	"github.com/local/pdftools/internal/apperr"
)

// DefaultMargin is the distance from the page edge, in points.
const DefaultMargin = 30.0

type Vertical int

const (
	Top Vertical = iota + 1
	Middle
	Bottom
)

type Horizontal int

const (
	Left Horizontal = iota + 1
	Center
	Right
)

// Anchor is one of the nine symbolic positions. The zero Anchor is unset.
type Anchor struct {
	V Vertical
	H Horizontal
}

var (
	TopLeft      = Anchor{Top, Left}
	TopCenter    = Anchor{Top, Center}
	TopRight     = Anchor{Top, Right}
	MiddleLeft   = Anchor{Middle, Left}
	MiddleCenter = Anchor{Middle, Center}
	MiddleRight  = Anchor{Middle, Right}
	BottomLeft   = Anchor{Bottom, Left}
	BottomCenter = Anchor{Bottom, Center}
	BottomRight  = Anchor{Bottom, Right}
)

var verticalNames = [...]string{"top", "middle", "bottom"}
var horizontalNames = [...]string{"left", "center", "right"}

func (a Anchor) String() string {
	if a.V < Top || a.V > Bottom || a.H < Left || a.H > Right {
		return "invalid"
	}
	return verticalNames[a.V-1] + "-" + horizontalNames[a.H-1]
}

// Names lists every anchor name in row-major order.
func Names() []string {
	out := make([]string, 0, 9)
	for v := Top; v <= Bottom; v++ {
		for h := Left; h <= Right; h++ {
			out = append(out, Anchor{v, h}.String())
		}
	}
	return out
}

// ParseAnchor accepts names of the form "vertical-horizontal", e.g.
// "bottom-center". Matching ignores case and surrounding space.
func ParseAnchor(s string) (Anchor, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for v := Top; v <= Bottom; v++ {
		for h := Left; h <= Right; h++ {
			if a := (Anchor{v, h}); a.String() == name {
				return a, nil
			}
		}
	}
	return Anchor{}, apperr.Newf(apperr.KindInvalidOption, "overlay.anchor", "unknown position %q", s)
}

// IsZero reports whether no anchor was chosen.
func (a Anchor) IsZero() bool { return a == Anchor{} }

// Point is a PDF user-space coordinate with the origin at bottom-left.
type Point struct {
	X, Y float64
}

// Place returns the baseline origin for text of width textWidth and size
// fontSize. Results are not clamped to the page: text wider than
// pageWidth-2*margin lands partly off the page.
func Place(a Anchor, pageWidth, pageHeight, textWidth, fontSize, margin float64) Point {
	var p Point
	switch a.V {
	case Top:
		p.Y = pageHeight - margin
	case Middle:
		p.Y = pageHeight/2 - fontSize/2
	default:
		p.Y = margin
	}
	switch a.H {
	case Left:
		p.X = margin
	case Center:
		p.X = (pageWidth - textWidth) / 2
	default:
		p.X = pageWidth - margin - textWidth
	}
	return p
}
