// Package autofit computes the uniform scale which brings a loaded asset to a
// fixed real-world size in the viewer.
package autofit

import "github.com/roboticeyes/arpreview/math"

// TargetSize is the length in meters of the largest asset dimension after
// scaling.
const TargetSize = 0.8

// Identity is the scale applied before an asset reported its dimensions
var Identity = math.Uniform(1)

// Factor returns the uniform scale factor for an asset of the given bounding
// size. The boolean is false if the largest dimension is not positive; no
// scale must be applied in that case.
func Factor(size math.Vec3f) (float64, bool) {
	largest := float64(size.MaxComponent())
	if !(largest > 0) {
		return 0, false
	}
	return TargetSize / largest, true
}

// Fit returns the three axis scale for size. A degenerate size leaves prior
// untouched.
func Fit(size, prior math.Vec3f) (math.Vec3f, bool) {
	f, ok := Factor(size)
	if !ok {
		return prior, false
	}
	return math.Uniform(float32(f)), true
}
