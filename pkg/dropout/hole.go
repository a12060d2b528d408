package dropout

import (
	"fmt"
	"image"
)

// Hole is a half-open axis-aligned rectangle [X1, X2) x [Y1, Y2) in pixel
// coordinates. A hole with X1 == X2 or Y1 == Y2 has zero area.
type Hole struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// Width returns X2 - X1.
func (h Hole) Width() int { return h.X2 - h.X1 }

// Height returns Y2 - Y1.
func (h Hole) Height() int { return h.Y2 - h.Y1 }

// Empty reports whether the hole covers no pixels.
func (h Hole) Empty() bool { return h.X1 >= h.X2 || h.Y1 >= h.Y2 }

// Rect returns the hole as an image.Rectangle.
func (h Hole) Rect() image.Rectangle {
	return image.Rectangle{Min: image.Pt(h.X1, h.Y1), Max: image.Pt(h.X2, h.Y2)}
}

// Contains reports whether the point (px, py) lies inside the hole. The top
// and left edges are included, the bottom and right edges are not, so a
// zero-area hole contains no points.
func (h Hole) Contains(px, py float64) bool {
	return float64(h.X1) <= px && px < float64(h.X2) &&
		float64(h.Y1) <= py && py < float64(h.Y2)
}

// Within reports whether the hole lies inside a width x height image.
func (h Hole) Within(height, width int) bool {
	return 0 <= h.X1 && h.X1 <= h.X2 && h.X2 <= width &&
		0 <= h.Y1 && h.Y1 <= h.Y2 && h.Y2 <= height
}

func (h Hole) String() string {
	return fmt.Sprintf("(%d,%d)-(%d,%d)", h.X1, h.Y1, h.X2, h.Y2)
}

// HoleSet is the ordered list of holes sampled for one invocation. Later
// holes overwrite earlier ones where they overlap.
type HoleSet []Hole

// Contains reports whether any hole contains (px, py).
func (hs HoleSet) Contains(px, py float64) bool {
	for _, h := range hs {
		if h.Contains(px, py) {
			return true
		}
	}
	return false
}

// Area returns the summed area of all holes, counting overlaps twice.
func (hs HoleSet) Area() int {
	total := 0
	for _, h := range hs {
		if !h.Empty() {
			total += h.Width() * h.Height()
		}
	}
	return total
}
