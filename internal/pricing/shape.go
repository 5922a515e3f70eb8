package pricing

import (
	"errors"
	"math"
	"strings"
)

// Shape selects the deterministic trend component of a synthetic path.
type Shape int

// Shape constants.
const (
	ShapeLinear Shape = iota
	ShapeCrash
	ShapeVShape
	ShapeBull
)

// ErrUnknownShape is returned for unrecognized shape labels.
var ErrUnknownShape = errors.New("unknown price path shape")

// ParseShape converts a config label to a Shape.
func ParseShape(s string) (Shape, error) {
	switch strings.ToLower(s) {
	case "linear":
		return ShapeLinear, nil
	case "crash":
		return ShapeCrash, nil
	case "vshape", "v-shape", "v":
		return ShapeVShape, nil
	case "bull":
		return ShapeBull, nil
	default:
		return ShapeLinear, ErrUnknownShape
	}
}

// String returns the canonical label for the shape.
func (s Shape) String() string {
	switch s {
	case ShapeCrash:
		return "crash"
	case ShapeVShape:
		return "vshape"
	case ShapeBull:
		return "bull"
	default:
		return "linear"
	}
}

// trendFunc maps horizon progress t in [0,1] and total change fraction
// c to a price multiplier. Every shape satisfies f(0)=1 and f(1)=1+c,
// keeping each shape's algebra testable in isolation.
type trendFunc func(t, c float64) float64

// trendTable dispatches shapes through a pure function table.
var trendTable = map[Shape]trendFunc{
	ShapeLinear: trendLinear,
	ShapeCrash:  trendCrash,
	ShapeVShape: trendVShape,
	ShapeBull:   trendBull,
}

// trendLinear is a straight ramp from 1 to 1+c.
func trendLinear(t, c float64) float64 {
	return 1 + c*t
}

// trendCrash drops fast to an overshoot bottom in the first 35% of the
// horizon, then bounces shallowly back up to the target.
func trendCrash(t, c float64) float64 {
	const dropEnd = 0.35
	const overshoot = 1.25

	bottom := 1 + c*overshoot
	if t < dropEnd {
		// Sub-linear exponent front-loads the fall.
		return 1 + c*overshoot*math.Pow(t/dropEnd, 0.7)
	}
	return bottom + (1+c-bottom)*(t-dropEnd)/(1-dropEnd)
}

// trendVShape rides a sine half-wave down to an overshoot bottom at
// mid-horizon, then recovers linearly to the target.
func trendVShape(t, c float64) float64 {
	const overshoot = 1.3

	bottom := 1 + c*overshoot
	if t <= 0.5 {
		return 1 + c*overshoot*math.Sin(math.Pi*t)
	}
	return bottom + (1+c-bottom)*(t-0.5)/0.5
}

// trendBull combines a ramp with late acceleration and periodic
// pullbacks. The pullback wave completes whole cycles over the
// horizon, so the path still lands exactly on the target.
func trendBull(t, c float64) float64 {
	ramp := 0.55*t + 0.45*t*t*t
	pullback := 0.08 * c * t * math.Sin(2*math.Pi*4*t)
	return 1 + c*ramp + pullback
}
