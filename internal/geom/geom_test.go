package geom

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func almostEqual(t *testing.T, want, got float64) {
	t.Helper()
	assert.InDelta(t, want, got, 1e-9)
}

func TestVectorArithmetic(t *testing.T) {
	a := Vector2{X: 1, Y: 2}
	b := Vector2{X: 3, Y: -1}

	assert.Equal(t, Vector2{X: 4, Y: 1}, a.Add(b))
	assert.Equal(t, Vector2{X: -2, Y: 3}, a.Sub(b))
	assert.Equal(t, Vector2{X: 2, Y: 4}, a.Mul(2))
}

func TestMagnitudeAndNormalize(t *testing.T) {
	v := Vector2{X: 3, Y: 4}
	almostEqual(t, 5, v.Magnitude())

	n := v.Normalize()
	almostEqual(t, 1, n.Magnitude())

	zero := Vector2{}.Normalize()
	assert.Equal(t, Vector2{}, zero)
}

func TestRotatedQuarterTurn(t *testing.T) {
	v := Vector2{X: 1, Y: 0}
	r := v.Rotated(math.Pi / 2)
	almostEqual(t, 0, r.X)
	almostEqual(t, 1, r.Y)
}

func TestFanAroundSinglePoint(t *testing.T) {
	pts := FanAround(Vector2{}, 0, math.Pi, 10, 1)
	assert.Len(t, pts, 1)
	almostEqual(t, 10, pts[0].X)
	almostEqual(t, 0, pts[0].Y)
}

func TestFanAroundTwoPointsStraddleBaseAngle(t *testing.T) {
	pts := FanAround(Vector2{}, 0, math.Pi, 10, 2)
	assert.Len(t, pts, 2)
	// spread of pi split two ways puts one point at -90deg, one at +90deg.
	almostEqual(t, 0, pts[0].X)
	almostEqual(t, -10, pts[0].Y)
	almostEqual(t, 0, pts[1].X)
	almostEqual(t, 10, pts[1].Y)
}

func TestFanAroundThreePointsEvenlySpaced(t *testing.T) {
	pts := FanAround(Vector2{}, 0, math.Pi/2, 10, 3)
	assert.Len(t, pts, 3)
	almostEqual(t, 10, pts[1].X)
	almostEqual(t, 0, pts[1].Y)
	for _, p := range pts {
		almostEqual(t, 10, p.Magnitude())
	}
}

func TestFanAroundNonPositiveCountIsNil(t *testing.T) {
	assert.Nil(t, FanAround(Vector2{}, 0, 1, 1, 0))
	assert.Nil(t, FanAround(Vector2{}, 0, 1, 1, -1))
}
