package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/picogrid/maildelivery/pkg/scenario"
)

func TestTrimTrajectoryExt(t *testing.T) {
	assert.Equal(t, "runs/abc", trimTrajectoryExt("runs/abc.jsonl.zst"))
	assert.Equal(t, "runs/abc", trimTrajectoryExt("runs/abc.jsonl"))
	assert.Equal(t, "runs/abc.log", trimTrajectoryExt("runs/abc.log"))
}

func TestInitialSnapshotPlacesFleet(t *testing.T) {
	sc, err := scenario.Load("../../../scenarios/drone-ferry.yaml")
	require.NoError(t, err)
	built, err := scenario.Build(sc, scenario.DefaultOptions())
	require.NoError(t, err)

	snap := initialSnapshot(built)
	require.Len(t, snap.Agents, len(built.Robots)+len(built.Drones))
	for i, a := range built.Agents() {
		assert.Equal(t, a.ID(), snap.Agents[i].ID)
		assert.Equal(t, a.Pose(), snap.Agents[i].Pose)
	}
	assert.Equal(t, 0, snap.Tick)
}

func TestSettingsOverridesOnlyChangedFlags(t *testing.T) {
	require.NoError(t, runCmd.Flags().Set("record", "true"))
	require.NoError(t, runCmd.Flags().Set("dt", "0.25"))
	defer func() {
		_ = runCmd.Flags().Set("record", "false")
		_ = runCmd.Flags().Set("dt", "0")
		runCmd.Flags().Lookup("record").Changed = false
		runCmd.Flags().Lookup("dt").Changed = false
	}()

	overrides := settingsOverrides(runCmd)
	assert.Equal(t, map[string]interface{}{"record": true}, overrides)

	preset := parameterPresets(runCmd)
	assert.Equal(t, map[string]interface{}{"dt": 0.25}, preset)
}
