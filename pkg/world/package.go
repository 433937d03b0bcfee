package world

import (
	"fmt"

	"github.com/paulmach/orb"
)

// OwnerKind says whether a package is owned by a location or a robot.
type OwnerKind string

const (
	OwnerLocation OwnerKind = "location"
	OwnerRobot    OwnerKind = "robot"
)

// Package is a deliverable. Owner is the id of the owning location or robot
// depending on OwnerKind. While a robot holds it, Point follows the robot.
type Package struct {
	ID           int       `json:"id"`
	Owner        int       `json:"owner"`
	OwnerKind    OwnerKind `json:"owner_kind"`
	Goal         int       `json:"goal"`
	DeliveryTime float64   `json:"delivery_time,omitempty"`
	Point        orb.Point `json:"point"`
}

// HeldBy reports whether the robot with the given id owns the package.
func (p *Package) HeldBy(robotID int) bool {
	return p.OwnerKind == OwnerRobot && p.Owner == robotID
}

// At reports whether the package rests at the given location.
func (p *Package) At(locationID int) bool {
	return p.OwnerKind == OwnerLocation && p.Owner == locationID
}

// Delivered reports whether the package rests at its goal.
func (p *Package) Delivered() bool {
	return p.At(p.Goal)
}

// TransferToRobot hands the package to a robot.
func (p *Package) TransferToRobot(robotID int) {
	p.Owner = robotID
	p.OwnerKind = OwnerRobot
}

// TransferToLocation leaves the package at a location and snaps it there.
func (p *Package) TransferToLocation(loc Location) {
	p.Owner = loc.ID
	p.OwnerKind = OwnerLocation
	p.Point = loc.Point
}

func (p *Package) String() string {
	return fmt.Sprintf("p%d[%s %d -> l%d]", p.ID, p.OwnerKind, p.Owner, p.Goal)
}
