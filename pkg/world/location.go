// Package world holds the shared world snapshot agents act upon: the road
// graph of locations and the package records whose ownership moves between
// locations and robots.
package world

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// LocationKind classifies a location. It carries no kinematic meaning.
type LocationKind string

const (
	KindIntersection LocationKind = "intersection"
	KindHouse        LocationKind = "house"
	KindDock         LocationKind = "dock"
)

// ParseLocationKind converts a string into a LocationKind
func ParseLocationKind(s string) (LocationKind, error) {
	switch LocationKind(s) {
	case KindIntersection, KindHouse, KindDock:
		return LocationKind(s), nil
	default:
		return "", fmt.Errorf("unknown location kind %q", s)
	}
}

// Location is a node of the road graph. Its ID doubles as its index in the
// environment.
type Location struct {
	ID    int          `json:"id"`
	Point orb.Point    `json:"point"`
	Kind  LocationKind `json:"kind"`
}

// Angle returns the heading from l towards other.
func (l Location) Angle(other Location) float64 {
	return math.Atan2(other.Point[1]-l.Point[1], other.Point[0]-l.Point[0])
}

// Distance returns the straight-line distance between two locations.
func (l Location) Distance(other Location) float64 {
	return planar.Distance(l.Point, other.Point)
}

func (l Location) String() string {
	return fmt.Sprintf("l%d", l.ID)
}
