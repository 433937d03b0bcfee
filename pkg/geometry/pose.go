// Package geometry implements the planar rigid-body algebra used for agent
// poses and frame conversions.
package geometry

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// Pose2 is an element of SE(2): a rotation by Theta followed by a
// translation to (X, Y). Values are immutable; every method returns a new Pose2.
type Pose2 struct {
	X     float64 `json:"x" yaml:"x"`
	Y     float64 `json:"y" yaml:"y"`
	Theta float64 `json:"theta" yaml:"theta"`
}

// Identity returns the identity transform.
func Identity() Pose2 {
	return Pose2{}
}

// NewPose2 creates a pose from a translation and heading.
func NewPose2(x, y, theta float64) Pose2 {
	return Pose2{X: x, Y: y, Theta: theta}
}

// FromPoint creates a pose located at p with the given heading.
func FromPoint(p orb.Point, theta float64) Pose2 {
	return Pose2{X: p[0], Y: p[1], Theta: theta}
}

// Translation returns the pose position as a point.
func (p Pose2) Translation() orb.Point {
	return orb.Point{p.X, p.Y}
}

// Compose applies other in the frame of p. The resulting heading is
// recovered from the combined rotation and lies in (-pi, pi].
func (p Pose2) Compose(other Pose2) Pose2 {
	c, s := math.Cos(p.Theta), math.Sin(p.Theta)
	oc, os := math.Cos(other.Theta), math.Sin(other.Theta)

	r00 := c*oc - s*os
	r10 := s*oc + c*os

	return Pose2{
		X:     p.X + c*other.X - s*other.Y,
		Y:     p.Y + s*other.X + c*other.Y,
		Theta: math.Atan2(r10, r00),
	}
}

// Inverse returns the transform that undoes p.
func (p Pose2) Inverse() Pose2 {
	c, s := math.Cos(p.Theta), math.Sin(p.Theta)
	return Pose2{
		X:     -(c*p.X + s*p.Y),
		Y:     s*p.X - c*p.Y,
		Theta: -p.Theta,
	}
}

// Difference returns other expressed in the frame of p, so that
// p.Compose(p.Difference(other)) equals other.
func (p Pose2) Difference(other Pose2) Pose2 {
	return p.Inverse().Compose(other)
}

// TransformFrom maps a point from the local frame of p into the world frame.
func (p Pose2) TransformFrom(local orb.Point) orb.Point {
	c, s := math.Cos(p.Theta), math.Sin(p.Theta)
	return orb.Point{
		p.X + c*local[0] - s*local[1],
		p.Y + s*local[0] + c*local[1],
	}
}

// TransformTo maps a world point into the local frame of p.
func (p Pose2) TransformTo(world orb.Point) orb.Point {
	return p.Inverse().TransformFrom(world)
}

// Bearing returns the signed angle from the forward axis of p to the point.
func (p Pose2) Bearing(world orb.Point) float64 {
	local := p.TransformTo(world)
	return math.Atan2(local[1], local[0])
}

// Range returns the distance from p to the point.
func (p Pose2) Range(world orb.Point) float64 {
	local := p.TransformTo(world)
	return math.Hypot(local[0], local[1])
}

// Equal reports whether both poses agree within tol on every component.
// Headings are compared modulo 2*pi.
func (p Pose2) Equal(other Pose2, tol float64) bool {
	if math.Abs(p.X-other.X) > tol || math.Abs(p.Y-other.Y) > tol {
		return false
	}
	return math.Abs(NormalizeAngle(p.Theta-other.Theta)) <= tol
}

func (p Pose2) String() string {
	return fmt.Sprintf("(%.4f, %.4f, %.4f)", p.X, p.Y, p.Theta)
}

// NormalizeAngle wraps an angle into (-pi, pi].
func NormalizeAngle(a float64) float64 {
	return math.Atan2(math.Sin(a), math.Cos(a))
}

// Radians converts degrees to radians.
func Radians(deg float64) float64 {
	return deg * math.Pi / 180
}
