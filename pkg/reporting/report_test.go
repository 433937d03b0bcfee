package reporting

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/picogrid/maildelivery/pkg/actions"
	"github.com/picogrid/maildelivery/pkg/agents"
	"github.com/picogrid/maildelivery/pkg/driver"
	"github.com/picogrid/maildelivery/pkg/world"
)

// starvingRun feeds a robot that runs dry once and then delivers, next to an idle drone.
func starvingRun(t *testing.T) *RunLogger {
	t.Helper()
	rl := NewRunLogger(Options{RunID: "0123456789abcdef", Out: &bytes.Buffer{}})

	drone := driver.AgentState{ID: 1, Kind: agents.KindDrone}
	move := actions.NewMove(0, 5, 6)
	ticks := []*driver.Snapshot{
		{
			Tick: 1, Time: 0,
			Agents:   []driver.AgentState{robotState(0, 100, false), drone},
			Packages: []world.Package{pending()},
			Events: []driver.Event{{
				Tick: 1, Type: driver.EventActionStarted, Agent: 0,
				ActionKind: actions.KindMove, Action: move.String(),
			}},
		},
		{
			Tick: 2, Time: 0.1,
			Agents:   []driver.AgentState{robotState(0, 0, true), drone},
			Packages: []world.Package{pending()},
		},
		{
			Tick: 3, Time: 0.2,
			Agents:   []driver.AgentState{robotState(0, 10, false), drone},
			Packages: []world.Package{delivered()},
			Events: []driver.Event{{
				Tick: 3, Time: 0.2, Type: driver.EventActionCompleted, Agent: 0,
				ActionKind: actions.KindMove, Action: move.String(),
			}},
		},
	}
	for _, s := range ticks {
		require.NoError(t, rl.OnTick(s))
	}
	rl.RecordResult(driver.Result{Ticks: 3, SimTime: 0.2, Completed: 1, Delivered: 1})
	return rl
}

func TestGenerateReport(t *testing.T) {
	rl := starvingRun(t)
	report := NewReportGenerator(rl, ReportConfig{DetailLevel: "summary"}).Generate()

	assert.Equal(t, "0123456789abcdef", report.Metadata.RunID)
	assert.Equal(t, "All 1 packages delivered", report.Summary.Outcome)
	assert.Equal(t, 1, report.Summary.PackagesDelivered)
	assert.Equal(t, 1, report.Summary.ActionsCompleted)
	assert.Equal(t, 1, report.Summary.StarvationEvents)

	require.Len(t, report.Timeline, 3)
	assert.Equal(t, EventTypeStarved, report.Timeline[0].EventType)
	assert.Equal(t, "00:00", report.Timeline[0].Elapsed)

	require.Len(t, report.Agents, 2)
	robot, drone := report.Agents[0], report.Agents[1]
	assert.Equal(t, "robot", robot.Kind)
	assert.Equal(t, 1, robot.ActionsStarted)
	assert.Equal(t, 1, robot.Starved)
	require.NotNil(t, robot.MinCharge)
	assert.Equal(t, 0.0, *robot.MinCharge)
	assert.Equal(t, 10.0, *robot.FinalCharge)
	assert.Equal(t, "drone", drone.Kind)
	assert.Nil(t, drone.FinalCharge)

	assert.Equal(t, 1, report.Energy.Robots)
	assert.Equal(t, []int{0}, report.Energy.StarvedRobots)
	assert.Empty(t, report.EventLog)

	require.Len(t, report.Findings, 1)
	assert.Equal(t, "Energy", report.Findings[0].Category)
}

func TestReportOutcomeOnFailure(t *testing.T) {
	rl := NewRunLogger(Options{Out: &bytes.Buffer{}})
	require.NoError(t, rl.OnTick(&driver.Snapshot{
		Tick:     1,
		Agents:   []driver.AgentState{robotState(0, 100, false)},
		Packages: []world.Package{pending()},
	}))
	rl.LogError("tick budget exhausted", errors.New("stalled"), nil)

	report := NewReportGenerator(rl, ReportConfig{DetailLevel: "full"}).Generate()
	assert.Equal(t, "Run aborted: tick budget exhausted", report.Summary.Outcome)
	assert.Len(t, report.EventLog, 1)

	categories := make([]string, 0, len(report.Findings))
	for _, f := range report.Findings {
		categories = append(categories, f.Category)
	}
	assert.ElementsMatch(t, []string{"Delivery", "Run"}, categories)
}

func TestSaveReport(t *testing.T) {
	rl := starvingRun(t)
	dir := t.TempDir()

	jsonGen := NewReportGenerator(rl, ReportConfig{OutputDir: dir, Format: FormatJSON})
	path, err := jsonGen.Save(jsonGen.Generate())
	require.NoError(t, err)
	assert.Equal(t, ".json", filepath.Ext(path))
	assert.Contains(t, filepath.Base(path), "report_01234567_")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var decoded Report
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "All 1 packages delivered", decoded.Summary.Outcome)

	mdGen := NewReportGenerator(rl, ReportConfig{OutputDir: dir, Format: FormatMarkdown})
	path, err = mdGen.Save(mdGen.Generate())
	require.NoError(t, err)
	md, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(md), "# Run Report")
	assert.Contains(t, string(md), "| 0 | robot | 1 | 1 | 1 | 10.0 | 0.0 |")

	_, err = NewReportGenerator(rl, ReportConfig{OutputDir: dir, Format: "html"}).Save(&Report{})
	assert.Error(t, err)
}
