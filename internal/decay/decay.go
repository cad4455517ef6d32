package decay

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Preset identifies a data family with a fixed decay rate
type Preset string

const (
	PresetGrants  Preset = "grants"
	PresetMission Preset = "mission"
	PresetWebsite Preset = "website"
	PresetFilings Preset = "filings"
)

// Default decay rates per month
const (
	GrantsLambda  = 0.03
	MissionLambda = 0.02
	WebsiteLambda = 0.04
	FilingsLambda = 0.025
)

// daysPerMonth is the mean Gregorian month length
const daysPerMonth = 365.2425 / 12

// ErrNegativeAge is returned when a feature is dated in the future.
// This points at a bad caller, not at bad data.
var ErrNegativeAge = errors.New("months_old must be non-negative")

// ErrInvalidLambda is returned for non-positive or non-finite rates
var ErrInvalidLambda = errors.New("lambda must be a positive finite number")

// Calculator computes exponential decay weights for aging data.
// It holds no mutable state and is safe for concurrent use.
type Calculator struct {
	lambda float64
}

// New creates a Calculator with a custom decay rate
func New(lambda float64) (*Calculator, error) {
	if lambda <= 0 || math.IsNaN(lambda) || math.IsInf(lambda, 0) {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidLambda, lambda)
	}
	return &Calculator{lambda: lambda}, nil
}

// ForPreset returns a Calculator for one of the built-in presets
func ForPreset(p Preset) (*Calculator, error) {
	lambda, ok := PresetLambda(p)
	if !ok {
		return nil, fmt.Errorf("unknown decay preset: %q", p)
	}
	return &Calculator{lambda: lambda}, nil
}

// MustPreset is ForPreset for the built-in presets, which cannot fail
func MustPreset(p Preset) *Calculator {
	c, err := ForPreset(p)
	if err != nil {
		panic(err)
	}
	return c
}

// PresetLambda returns the rate for a preset
func PresetLambda(p Preset) (float64, bool) {
	switch p {
	case PresetGrants:
		return GrantsLambda, true
	case PresetMission:
		return MissionLambda, true
	case PresetWebsite:
		return WebsiteLambda, true
	case PresetFilings:
		return FilingsLambda, true
	default:
		return 0, false
	}
}

// Lambda returns the decay rate per month
func (c *Calculator) Lambda() float64 {
	return c.lambda
}

// Decay returns exp(-λ·monthsOld)
func (c *Calculator) Decay(monthsOld float64) (float64, error) {
	if math.IsNaN(monthsOld) {
		return 0, fmt.Errorf("%w: got NaN", ErrNegativeAge)
	}
	if monthsOld < 0 {
		return 0, fmt.Errorf("%w: got %.3f", ErrNegativeAge, monthsOld)
	}
	return math.Exp(-c.lambda * monthsOld), nil
}

// HalfLife returns the age in months at which the weight drops to 0.5
func (c *Calculator) HalfLife() float64 {
	return math.Ln2 / c.lambda
}

// ApplyToScore scales score by the decay weight, never below minWeight
func (c *Calculator) ApplyToScore(score, monthsOld, minWeight float64) (float64, error) {
	d, err := c.Decay(monthsOld)
	if err != nil {
		return 0, err
	}
	return score * math.Max(d, minWeight), nil
}

// MonthsBetween returns the number of average months from from to to.
// The result is negative when from is after to.
func MonthsBetween(from, to time.Time) float64 {
	return to.Sub(from).Hours() / 24 / daysPerMonth
}

// EndOfYear returns 31 Dec of the given year, UTC
func EndOfYear(year int) time.Time {
	return time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
}
