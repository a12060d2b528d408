package dropout

// Point is anything with pixel coordinates. [FilterKeypoints] accepts any
// slice of Points and returns the surviving elements unchanged.
type Point interface {
	XY() (x, y float64)
}

// Keypoint is a 2D keypoint in pixel space. Angle, Scale and Label are
// carried through untouched.
type Keypoint struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Angle float64 `json:"angle,omitempty"`
	Scale float64 `json:"scale,omitempty"`
	Label string  `json:"label,omitempty"`
}

// XY implements [Point].
func (k Keypoint) XY() (float64, float64) { return k.X, k.Y }
