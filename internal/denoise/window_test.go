package denoise

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdaptivePlanner_AlwaysOddInRange(t *testing.T) {
	motions := []float64{0, 0.0001, 0.001, 0.01, 0.05, 0.1, 0.15, 0.3, 0.5, 1, 10, 1e6}
	thresholds := []float64{0.001, 0.02, 0.1, 0.5, 3}

	for base := 1; base <= 40; base++ {
		for _, th := range thresholds {
			p, err := NewAdaptivePlanner(base, th)
			require.NoError(t, err)
			for _, m := range motions {
				w := p.Width(m)
				if w%2 == 0 || w < MinWindowSize || w > MaxWindowSize {
					t.Fatalf("Width(%v) with base=%d threshold=%v = %d, want odd in [3,15]", m, base, th, w)
				}
			}
		}
	}
}

func TestAdaptivePlanner_HighMotionShrinks(t *testing.T) {
	p, err := NewAdaptivePlanner(15, 0.1)
	require.NoError(t, err)

	// scale = max(0.3, 1-5) = 0.3 -> int(4.5) = 4 -> 5
	w := p.Width(0.5)
	assert.Equal(t, 5, w)
	assert.Less(t, w, 15)
}

func TestAdaptivePlanner_LowMotionWidens(t *testing.T) {
	p, err := NewAdaptivePlanner(5, 0.1)
	require.NoError(t, err)

	// scale = min(2, 1 + 0.1/0.001) = 2 -> 10 -> 11
	assert.Equal(t, 11, p.Width(0))

	p, err = NewAdaptivePlanner(15, 0.1)
	require.NoError(t, err)
	assert.Equal(t, 15, p.Width(0), "clamped to the upper bound")
}

func TestAdaptivePlanner_NormalizesEvenBase(t *testing.T) {
	p, err := NewAdaptivePlanner(4, 0.1)
	require.NoError(t, err)
	assert.Equal(t, 5, p.baseWindowSize)
}

func TestAdaptivePlanner_Invalid(t *testing.T) {
	_, err := NewAdaptivePlanner(0, 0.1)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewAdaptivePlanner(5, 0)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestFixedPlanner(t *testing.T) {
	p := NewFixedPlanner(6)
	assert.Equal(t, 7, p.Width(0))
	assert.Equal(t, 7, p.Width(100))
}

func TestPlanWindows(t *testing.T) {
	p, err := NewAdaptivePlanner(9, 0.1)
	require.NoError(t, err)

	plan := PlanWindows(p, MotionProfile{0, 0.5, 0.05})
	require.Len(t, plan, 3)
	assert.Equal(t, p.Width(0.5), plan[1])

	lo, hi := plan.Range()
	assert.LessOrEqual(t, lo, hi)
	assert.Equal(t, plan[1], lo)

	lo, hi = WindowPlan(nil).Range()
	assert.Zero(t, lo)
	assert.Zero(t, hi)
}

func TestSuggestWindowSize(t *testing.T) {
	tests := []struct {
		fps  float64
		want int
	}{
		{12, 3},
		{24, 3},
		{35, 3},
		{48, 5},
		{60, 5},
		{65, 5},
		{90, 7},
		{120, 7},
	}
	for _, tt := range tests {
		if got := SuggestWindowSize(tt.fps); got != tt.want {
			t.Errorf("SuggestWindowSize(%v) = %d, want %d", tt.fps, got, tt.want)
		}
	}
}
