package decay

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecayProperties(t *testing.T) {
	lambdas := []float64{0.001, 0.02, 0.025, 0.03, 0.04, 0.5, 2}

	for _, lambda := range lambdas {
		c, err := New(lambda)
		require.NoError(t, err)

		d0, err := c.Decay(0)
		require.NoError(t, err)
		assert.Equal(t, 1.0, d0, "decay(0) for lambda %v", lambda)

		prev := d0
		for m := 0.5; m < 200; m += 0.5 {
			d, err := c.Decay(m)
			require.NoError(t, err)
			if d >= prev {
				t.Fatalf("decay not strictly decreasing for lambda %v at %v: %v >= %v", lambda, m, d, prev)
			}
			prev = d
		}

		half, err := c.Decay(c.HalfLife())
		require.NoError(t, err)
		assert.InDelta(t, 0.5, half, 1e-6)
	}
}

func TestDecay_GrantsHalfLife(t *testing.T) {
	c := MustPreset(PresetGrants)

	assert.InDelta(t, 23.1, c.HalfLife(), 0.01)

	d, err := c.Decay(23.1)
	require.NoError(t, err)
	assert.InDelta(t, 0.500, d, 0.001)
}

func TestDecay_NegativeAge(t *testing.T) {
	c := MustPreset(PresetFilings)

	_, err := c.Decay(-0.01)
	if !errors.Is(err, ErrNegativeAge) {
		t.Errorf("Decay(-0.01) error = %v, want ErrNegativeAge", err)
	}

	_, err = c.ApplyToScore(10, -1, 0)
	if !errors.Is(err, ErrNegativeAge) {
		t.Errorf("ApplyToScore() error = %v, want ErrNegativeAge", err)
	}
}

func TestNew_InvalidLambda(t *testing.T) {
	tests := []float64{0, -0.1, math.NaN(), math.Inf(1)}
	for _, lambda := range tests {
		if _, err := New(lambda); !errors.Is(err, ErrInvalidLambda) {
			t.Errorf("New(%v) error = %v, want ErrInvalidLambda", lambda, err)
		}
	}
}

func TestForPreset(t *testing.T) {
	tests := []struct {
		preset Preset
		lambda float64
	}{
		{PresetGrants, 0.03},
		{PresetMission, 0.02},
		{PresetWebsite, 0.04},
		{PresetFilings, 0.025},
	}

	for _, tt := range tests {
		t.Run(string(tt.preset), func(t *testing.T) {
			c, err := ForPreset(tt.preset)
			require.NoError(t, err)
			assert.Equal(t, tt.lambda, c.Lambda())
		})
	}

	_, err := ForPreset("social")
	assert.Error(t, err)
}

func TestApplyToScore(t *testing.T) {
	c := MustPreset(PresetGrants)

	tests := []struct {
		name      string
		score     float64
		months    float64
		minWeight float64
		expected  float64
	}{
		{"fresh data untouched", 80, 0, 0, 80},
		{"half life halves", 80, c.HalfLife(), 0, 40},
		{"floor applies", 80, 500, 0.3, 24},
		{"floor ignored when decay is higher", 80, c.HalfLife(), 0.3, 40},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.ApplyToScore(tt.score, tt.months, tt.minWeight)
			require.NoError(t, err)
			assert.InDelta(t, tt.expected, got, 1e-6)
		})
	}
}

func TestMonthsBetween(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(1, 0, 0)

	assert.InDelta(t, 12.0, MonthsBetween(from, to), 0.05)
	assert.Less(t, MonthsBetween(to, from), 0.0)
	assert.Equal(t, time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC), EndOfYear(2023))
}
