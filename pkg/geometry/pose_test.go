package geometry

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
)

const tol = 1e-9

var samplePoses = []Pose2{
	{0, 0, 0},
	{1, 2, math.Pi / 3},
	{-4.5, 0.25, -2.9},
	{3, -7, math.Pi},
	{0.1, 0.1, -math.Pi + 1e-6},
	{10, 10, 7.5},
}

func TestComposeInverseIsIdentity(t *testing.T) {
	for _, a := range samplePoses {
		got := a.Compose(a.Inverse())
		assert.True(t, got.Equal(Identity(), tol), "pose %v composed with inverse gave %v", a, got)

		got = a.Inverse().Compose(a)
		assert.True(t, got.Equal(Identity(), tol), "inverse of %v composed with pose gave %v", a, got)
	}
}

func TestComposeDifference(t *testing.T) {
	for _, a := range samplePoses {
		for _, b := range samplePoses {
			got := a.Compose(a.Difference(b))
			assert.True(t, got.Equal(b, tol), "compose(%v, diff(%v, %v)) = %v", a, a, b, got)
		}
	}
}

func TestComposeHeadingRange(t *testing.T) {
	a := Pose2{0, 0, 3}
	b := Pose2{0, 0, 3}
	got := a.Compose(b)
	assert.Greater(t, got.Theta, -math.Pi)
	assert.LessOrEqual(t, got.Theta, math.Pi)
	assert.InDelta(t, 6-2*math.Pi, got.Theta, tol)
}

func TestComposeTranslation(t *testing.T) {
	a := Pose2{1, 1, math.Pi / 2}
	got := a.Compose(Pose2{1, 0, 0})
	assert.InDelta(t, 1, got.X, tol)
	assert.InDelta(t, 2, got.Y, tol)
	assert.InDelta(t, math.Pi/2, got.Theta, tol)
}

func TestInverseDoesNotNormalize(t *testing.T) {
	a := Pose2{0, 0, 5}
	assert.Equal(t, -5.0, a.Inverse().Theta)
}

func TestBearingAndRange(t *testing.T) {
	p := Identity()
	assert.InDelta(t, math.Pi/4, p.Bearing(orb.Point{1, 1}), tol)
	assert.InDelta(t, math.Sqrt2, p.Range(orb.Point{1, 1}), tol)

	p = Pose2{1, 0, math.Pi / 2}
	assert.InDelta(t, math.Pi/2, p.Bearing(orb.Point{0, 0}), tol)
	assert.InDelta(t, 1, p.Range(orb.Point{0, 0}), tol)

	p = Pose2{0, 0, 0}
	assert.InDelta(t, math.Pi, math.Abs(p.Bearing(orb.Point{-1, 0})), tol)
}

func TestRangeMatchesWorldDistance(t *testing.T) {
	target := orb.Point{3, -4}
	for _, a := range samplePoses {
		want := math.Hypot(target[0]-a.X, target[1]-a.Y)
		assert.InDelta(t, want, a.Range(target), 1e-9)
	}
}

func TestTransformRoundTrip(t *testing.T) {
	pt := orb.Point{2.5, -1.25}
	for _, a := range samplePoses {
		back := a.TransformFrom(a.TransformTo(pt))
		assert.InDelta(t, pt[0], back[0], tol)
		assert.InDelta(t, pt[1], back[1], tol)
	}
}

func TestNormalizeAngle(t *testing.T) {
	assert.InDelta(t, 0, NormalizeAngle(2*math.Pi), tol)
	assert.InDelta(t, -math.Pi/2, NormalizeAngle(3*math.Pi/2), tol)
	assert.InDelta(t, math.Pi/180*0.01, Radians(0.01), tol)
}
