package pricing

import (
	"errors"
	"math"
	"strings"
)

// NoiseTier scales the bounded pseudo-noise applied to synthetic paths.
type NoiseTier int

// Noise tier constants with their daily amplitudes.
const (
	NoiseLow NoiseTier = iota
	NoiseMedium
	NoiseHigh
)

// ErrUnknownNoiseTier is returned for unrecognized tier labels.
var ErrUnknownNoiseTier = errors.New("unknown volatility tier")

// ParseNoiseTier converts a config label to a NoiseTier.
func ParseNoiseTier(s string) (NoiseTier, error) {
	switch strings.ToLower(s) {
	case "low":
		return NoiseLow, nil
	case "medium", "":
		return NoiseMedium, nil
	case "high":
		return NoiseHigh, nil
	default:
		return NoiseMedium, ErrUnknownNoiseTier
	}
}

// amplitude returns the relative daily noise amplitude for the tier.
func (n NoiseTier) amplitude() float64 {
	switch n {
	case NoiseLow:
		return 0.005
	case NoiseHigh:
		return 0.035
	default:
		return 0.015
	}
}

// priceFloorFraction keeps synthetic prices strictly positive: no path
// may fall below this fraction of the base price.
const priceFloorFraction = 0.05

// Synthetic generates a deterministic price path from a named shape,
// a target total change and a noise tier. The same inputs always
// produce the same path; there is no random generator involved.
type Synthetic struct {
	BasePrice       float64
	TargetChangePct float64
	TotalDays       int
	Shape           Shape
	Tier            NoiseTier
}

// NewSynthetic builds a synthetic provider from config-level labels.
func NewSynthetic(basePrice, targetChangePct float64, totalDays int, shape, tier string) (*Synthetic, error) {
	sh, err := ParseShape(shape)
	if err != nil {
		return nil, err
	}
	nt, err := ParseNoiseTier(tier)
	if err != nil {
		return nil, err
	}
	if basePrice <= 0 {
		return nil, errors.New("base price must be positive")
	}
	if totalDays <= 0 {
		return nil, errors.New("total days must be positive")
	}
	return &Synthetic{
		BasePrice:       basePrice,
		TargetChangePct: targetChangePct,
		TotalDays:       totalDays,
		Shape:           sh,
		Tier:            nt,
	}, nil
}

// PriceAt returns the synthetic price for the given day. Day 0 always
// returns the base price exactly; out-of-range days clamp.
func (s *Synthetic) PriceAt(day int) float64 {
	if day <= 0 {
		return s.BasePrice
	}
	if day > s.TotalDays {
		day = s.TotalDays
	}

	t := float64(day) / float64(s.TotalDays)
	c := s.TargetChangePct / 100

	trend := trendTable[s.Shape](t, c)
	price := s.BasePrice * trend * (1 + s.Tier.amplitude()*pseudoNoise(day))

	if floor := s.BasePrice * priceFloorFraction; price < floor {
		price = floor
	}
	return price
}

// Horizon returns the number of simulated days the path covers.
func (s *Synthetic) Horizon() int {
	return s.TotalDays
}

// pseudoNoise derives a bounded value in [-1, 1) from the day index
// alone. It is the classic fractional-sine hash, chosen over math/rand
// so that paths are reproducible for a given input and an arbitrary
// day is computable without stepping through prior days.
func pseudoNoise(day int) float64 {
	x := math.Sin(float64(day)*12.9898+78.233) * 43758.5453
	return 2*(x-math.Floor(x)) - 1
}

var _ Provider = (*Synthetic)(nil)
