package export

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/picogrid/maildelivery/pkg/actions"
	"github.com/picogrid/maildelivery/pkg/agents"
	"github.com/picogrid/maildelivery/pkg/driver"
	"github.com/picogrid/maildelivery/pkg/geometry"
	"github.com/picogrid/maildelivery/pkg/world"
)

func lineWorld(t *testing.T) *world.Environment {
	t.Helper()
	env, err := world.NewEnvironment([]world.Location{
		{ID: 0, Point: orb.Point{0, 0}, Kind: world.KindDock},
		{ID: 1, Point: orb.Point{1, 0}, Kind: world.KindIntersection},
		{ID: 2, Point: orb.Point{1, 1}, Kind: world.KindHouse},
	}, []world.Road{{0, 1}, {1, 2}}, []world.Package{
		{ID: 0, Owner: 0, OwnerKind: world.OwnerLocation, Goal: 2},
	})
	require.NoError(t, err)
	return env
}

func layerCount(fc *geojson.FeatureCollection) map[string]int {
	out := map[string]int{}
	for _, f := range fc.Features {
		out[f.Properties.MustString("layer")]++
	}
	return out
}

func TestCollectorFollowsRun(t *testing.T) {
	env := lineWorld(t)
	cfg := driver.DefaultConfig()
	r := agents.NewRobot(0, geometry.Identity(), cfg.DT, agents.DefaultRobotConfig())
	d, err := driver.New(env, cfg, r)
	require.NoError(t, err)
	require.NoError(t, d.Load([]actions.Action{
		actions.NewPickup(0, 0, 0),
		actions.NewMove(0, 0, 1),
		actions.NewMove(0, 1, 2),
		actions.NewDrop(0, 0, 2),
	}))

	c := NewTrackCollector(d.Snapshot().Agents)
	d.AddObserver(c)
	res, err := d.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, res.Delivered)

	tracks := c.Tracks()
	require.Len(t, tracks, 1)
	path := tracks[0].Path
	require.Greater(t, len(path), 2)
	assert.Equal(t, orb.Point{0, 0}, path[0])
	assert.InDelta(t, 1.0, path[len(path)-1][0], 1e-3)
	assert.InDelta(t, 1.0, path[len(path)-1][1], 1e-3)
	for i := 1; i < len(path); i++ {
		assert.NotEqual(t, path[i-1], path[i])
	}

	pkgs := c.Packages()
	require.Len(t, pkgs, 1)
	assert.True(t, pkgs[0].Delivered())

	fc := FeatureCollection(env, pkgs, tracks)
	assert.Equal(t, map[string]int{
		LayerRoad:     2,
		LayerLocation: 3,
		LayerPackage:  1,
		LayerTrack:    1,
	}, layerCount(fc))
}

func TestFeatureCollectionWithoutTracks(t *testing.T) {
	env := lineWorld(t)
	fc := FeatureCollection(env, nil, nil)

	var pkg *geojson.Feature
	for _, f := range fc.Features {
		if f.ID == "p0" {
			pkg = f
		}
	}
	require.NotNil(t, pkg)
	assert.Equal(t, false, pkg.Properties["delivered"])
	assert.Equal(t, "location", pkg.Properties["owner_kind"])
	assert.Equal(t, orb.Point{0, 0}, pkg.Geometry)
}

func TestSinglePointTrack(t *testing.T) {
	env := lineWorld(t)
	fc := FeatureCollection(env, nil, []Track{{Agent: 3, Kind: "drone", Path: orb.LineString{{1, 1}}}})
	last := fc.Features[len(fc.Features)-1]
	assert.Equal(t, orb.Point{1, 1}, last.Geometry)
}

func TestTracksFromSnapshots(t *testing.T) {
	snaps := []driver.Snapshot{
		{Tick: 1, Agents: []driver.AgentState{{ID: 1, Pose: geometry.NewPose2(0, 0, 0)}, {ID: 0, Pose: geometry.NewPose2(5, 5, 0)}}},
		{Tick: 2, Agents: []driver.AgentState{{ID: 1, Pose: geometry.NewPose2(0, 0, 1)}, {ID: 0, Pose: geometry.NewPose2(5, 6, 0)}}},
	}
	tracks := TracksFromSnapshots(snaps)
	require.Len(t, tracks, 2)
	assert.Equal(t, 0, tracks[0].Agent)
	assert.Len(t, tracks[0].Path, 2)
	assert.Len(t, tracks[1].Path, 1)
}

func TestWriteFile(t *testing.T) {
	env := lineWorld(t)
	path := filepath.Join(t.TempDir(), "out", "world.geojson")
	require.NoError(t, WriteFile(FeatureCollection(env, nil, nil), path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	fc, err := geojson.UnmarshalFeatureCollection(data)
	require.NoError(t, err)
	assert.Len(t, fc.Features, 6)
}
