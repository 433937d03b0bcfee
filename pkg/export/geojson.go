// Package export renders a world and the paths driven through it as GeoJSON.
// Coordinates are the planar world coordinates, not longitude/latitude.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/picogrid/maildelivery/pkg/driver"
	"github.com/picogrid/maildelivery/pkg/world"
)

// Feature layers, stored in the "layer" property.
const (
	LayerRoad     = "road"
	LayerLocation = "location"
	LayerPackage  = "package"
	LayerTrack    = "track"
)

// Track is the sequence of positions an agent passed through.
type Track struct {
	Agent int
	Kind  string
	Path  orb.LineString
}

// TrackCollector is a driver observer accumulating agent tracks. Consecutive
// identical positions are collapsed.
type TrackCollector struct {
	mu       sync.Mutex
	tracks   map[int]*Track
	packages []world.Package
}

// NewTrackCollector creates a collector seeded with the starting positions of
// the agents.
func NewTrackCollector(start []driver.AgentState) *TrackCollector {
	c := &TrackCollector{tracks: make(map[int]*Track)}
	for _, st := range start {
		c.add(st)
	}
	return c
}

// OnTick implements driver.Observer.
func (c *TrackCollector) OnTick(s *driver.Snapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, st := range s.Agents {
		c.add(st)
	}
	c.packages = s.Packages
	return nil
}

func (c *TrackCollector) add(st driver.AgentState) {
	t, ok := c.tracks[st.ID]
	if !ok {
		t = &Track{Agent: st.ID, Kind: string(st.Kind)}
		c.tracks[st.ID] = t
	}
	p := st.Pose.Translation()
	if n := len(t.Path); n > 0 && t.Path[n-1].Equal(p) {
		return
	}
	t.Path = append(t.Path, p)
}

// Tracks returns the collected tracks ordered by agent id.
func (c *TrackCollector) Tracks() []Track {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Track, 0, len(c.tracks))
	for _, t := range c.tracks {
		out = append(out, Track{Agent: t.Agent, Kind: t.Kind, Path: append(orb.LineString(nil), t.Path...)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Agent < out[j].Agent })
	return out
}

// Packages returns the package states seen on the last tick.
func (c *TrackCollector) Packages() []world.Package {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]world.Package(nil), c.packages...)
}

// TracksFromSnapshots rebuilds tracks from a recorded trajectory.
func TracksFromSnapshots(snaps []driver.Snapshot) []Track {
	c := NewTrackCollector(nil)
	for i := range snaps {
		_ = c.OnTick(&snaps[i])
	}
	return c.Tracks()
}

// FeatureCollection builds the GeoJSON layers for env. Packages override the
// package states of env when non-nil.
func FeatureCollection(env *world.Environment, packages []world.Package, tracks []Track) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	for _, r := range env.Roads() {
		a, b := env.Location(r[0]), env.Location(r[1])
		f := geojson.NewFeature(orb.LineString{a.Point, b.Point})
		f.Properties["layer"] = LayerRoad
		f.Properties["from"] = a.ID
		f.Properties["to"] = b.ID
		f.Properties["length"] = a.Distance(b)
		fc.Append(f)
	}

	for _, l := range env.Locations() {
		f := geojson.NewFeature(l.Point)
		f.ID = fmt.Sprintf("l%d", l.ID)
		f.Properties["layer"] = LayerLocation
		f.Properties["id"] = l.ID
		f.Properties["kind"] = string(l.Kind)
		fc.Append(f)
	}

	if packages == nil {
		packages = env.Packages()
	}
	for _, p := range packages {
		f := geojson.NewFeature(p.Point)
		f.ID = fmt.Sprintf("p%d", p.ID)
		f.Properties["layer"] = LayerPackage
		f.Properties["id"] = p.ID
		f.Properties["owner"] = p.Owner
		f.Properties["owner_kind"] = string(p.OwnerKind)
		f.Properties["goal"] = p.Goal
		f.Properties["delivered"] = p.Delivered()
		fc.Append(f)
	}

	for _, t := range tracks {
		var g orb.Geometry = t.Path
		if len(t.Path) == 1 {
			g = t.Path[0]
		}
		f := geojson.NewFeature(g)
		f.ID = fmt.Sprintf("a%d", t.Agent)
		f.Properties["layer"] = LayerTrack
		f.Properties["agent"] = t.Agent
		f.Properties["kind"] = t.Kind
		fc.Append(f)
	}
	return fc
}

// WriteFile writes fc to path as indented JSON.
func WriteFile(fc *geojson.FeatureCollection, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}
	data, err := fc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to encode geojson: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write geojson: %w", err)
	}
	return nil
}
