package world

import (
	"errors"
	"fmt"
	"sort"
)

// ErrInvalidEnvironment is returned when an environment fails validation.
var ErrInvalidEnvironment = errors.New("invalid environment")

// Road is an undirected edge between two location ids.
type Road [2]int

// Environment is the mutable world snapshot shared by all agents of a run.
// Locations and roads are read-only once built; package records are updated
// by the agents performing pickups, drops and moves.
type Environment struct {
	locations []Location
	roads     []Road
	packages  []Package
	adjacency [][]int
}

// NewEnvironment validates and assembles an environment. Locations and
// packages are sorted by id and their ids must be dense starting at zero.
func NewEnvironment(locations []Location, roads []Road, packages []Package) (*Environment, error) {
	locs := append([]Location(nil), locations...)
	sort.Slice(locs, func(i, j int) bool { return locs[i].ID < locs[j].ID })
	for i, l := range locs {
		if l.ID != i {
			return nil, fmt.Errorf("%w: location ids must be dense from 0, found %d at index %d", ErrInvalidEnvironment, l.ID, i)
		}
	}

	adjacency := make([][]int, len(locs))
	for _, r := range roads {
		a, b := r[0], r[1]
		if a < 0 || a >= len(locs) || b < 0 || b >= len(locs) {
			return nil, fmt.Errorf("%w: road %v references unknown location", ErrInvalidEnvironment, r)
		}
		if a == b {
			return nil, fmt.Errorf("%w: road %v is a self loop", ErrInvalidEnvironment, r)
		}
		adjacency[a] = appendUnique(adjacency[a], b)
		adjacency[b] = appendUnique(adjacency[b], a)
	}
	for i := range adjacency {
		sort.Ints(adjacency[i])
	}

	pkgs := append([]Package(nil), packages...)
	sort.Slice(pkgs, func(i, j int) bool { return pkgs[i].ID < pkgs[j].ID })
	for i := range pkgs {
		p := &pkgs[i]
		if p.ID != i {
			return nil, fmt.Errorf("%w: package ids must be dense from 0, found %d at index %d", ErrInvalidEnvironment, p.ID, i)
		}
		if p.Goal < 0 || p.Goal >= len(locs) {
			return nil, fmt.Errorf("%w: package %d has unknown goal %d", ErrInvalidEnvironment, p.ID, p.Goal)
		}
		switch p.OwnerKind {
		case OwnerLocation:
			if p.Owner < 0 || p.Owner >= len(locs) {
				return nil, fmt.Errorf("%w: package %d owned by unknown location %d", ErrInvalidEnvironment, p.ID, p.Owner)
			}
			p.Point = locs[p.Owner].Point
		case OwnerRobot:
		default:
			return nil, fmt.Errorf("%w: package %d has owner kind %q", ErrInvalidEnvironment, p.ID, p.OwnerKind)
		}
	}

	return &Environment{
		locations: locs,
		roads:     append([]Road(nil), roads...),
		packages:  pkgs,
		adjacency: adjacency,
	}, nil
}

func appendUnique(ids []int, id int) []int {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}

// Location returns the location with the given id. The id must exist.
func (e *Environment) Location(id int) Location {
	return e.locations[id]
}

// HasLocation reports whether id names a location.
func (e *Environment) HasLocation(id int) bool {
	return id >= 0 && id < len(e.locations)
}

// Locations returns a copy of all locations ordered by id.
func (e *Environment) Locations() []Location {
	return append([]Location(nil), e.locations...)
}

// Roads returns a copy of the road list.
func (e *Environment) Roads() []Road {
	return append([]Road(nil), e.roads...)
}

// Package returns the mutable record for the given package id. The id must exist.
func (e *Environment) Package(id int) *Package {
	return &e.packages[id]
}

// HasPackage reports whether id names a package.
func (e *Environment) HasPackage(id int) bool {
	return id >= 0 && id < len(e.packages)
}

// NumPackages returns the number of packages.
func (e *Environment) NumPackages() int {
	return len(e.packages)
}

// Packages returns a copy of all package records ordered by id.
func (e *Environment) Packages() []Package {
	return append([]Package(nil), e.packages...)
}

// FindAdjacent returns the ids of locations connected to id by a road.
func (e *Environment) FindAdjacent(id int) []int {
	if !e.HasLocation(id) {
		return nil
	}
	return append([]int(nil), e.adjacency[id]...)
}

// Connected reports whether a road joins a and b.
func (e *Environment) Connected(a, b int) bool {
	for _, n := range e.FindAdjacent(a) {
		if n == b {
			return true
		}
	}
	return false
}

// HeldBy returns the ids of packages currently owned by the robot.
func (e *Environment) HeldBy(robotID int) []int {
	var ids []int
	for i := range e.packages {
		if e.packages[i].HeldBy(robotID) {
			ids = append(ids, e.packages[i].ID)
		}
	}
	return ids
}

// Delivered returns how many packages rest at their goal.
func (e *Environment) Delivered() int {
	n := 0
	for i := range e.packages {
		if e.packages[i].Delivered() {
			n++
		}
	}
	return n
}

// Clone returns a deep copy whose package records can be mutated independently.
func (e *Environment) Clone() *Environment {
	adjacency := make([][]int, len(e.adjacency))
	for i, ids := range e.adjacency {
		adjacency[i] = append([]int(nil), ids...)
	}
	return &Environment{
		locations: append([]Location(nil), e.locations...),
		roads:     append([]Road(nil), e.roads...),
		packages:  append([]Package(nil), e.packages...),
		adjacency: adjacency,
	}
}
