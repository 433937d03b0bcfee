package reporting

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/picogrid/maildelivery/pkg/agents"
	"github.com/picogrid/maildelivery/pkg/logger"
)

// Report formats
const (
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
)

// ReportGenerator turns a finished run log into a post-run report
type ReportGenerator struct {
	log    *RunLogger
	config ReportConfig
}

// ReportConfig configures report generation
type ReportConfig struct {
	OutputDir   string
	Format      string // "json", "markdown"
	DetailLevel string // "summary", "full"
	Settings    map[string]interface{}
}

// Report is the post-run report of one simulation run
type Report struct {
	Metadata ReportMetadata   `json:"metadata"`
	Summary  ExecutiveSummary `json:"summary"`
	Timeline []TimelineEntry  `json:"timeline"`
	Agents   []AgentAnalysis  `json:"agents"`
	Energy   EnergyAnalysis   `json:"energy"`
	EventLog []EventLogEntry  `json:"event_log,omitempty"`
	Findings []Finding        `json:"findings,omitempty"`
}

// ReportMetadata identifies the run
type ReportMetadata struct {
	RunID        string                 `json:"run_id"`
	GeneratedAt  time.Time              `json:"generated_at"`
	RunStart     time.Time              `json:"run_start"`
	WallDuration string                 `json:"wall_duration"`
	Settings     map[string]interface{} `json:"settings,omitempty"`
}

// ExecutiveSummary holds the headline numbers
type ExecutiveSummary struct {
	Outcome           string   `json:"outcome"`
	Ticks             int      `json:"ticks"`
	SimTime           float64  `json:"sim_time"`
	ActionsCompleted  int      `json:"actions_completed"`
	Packages          int      `json:"packages"`
	PackagesDelivered int      `json:"packages_delivered"`
	StarvationEvents  int      `json:"starvation_events"`
	KeyEvents         []string `json:"key_events"`
}

// TimelineEntry is a significant moment of the run
type TimelineEntry struct {
	Tick        int     `json:"tick"`
	SimTime     float64 `json:"sim_time"`
	Elapsed     string  `json:"elapsed"`
	EventType   string  `json:"event_type"`
	Description string  `json:"description"`
	Agent       *int    `json:"agent,omitempty"`
}

// AgentAnalysis summarizes one agent
type AgentAnalysis struct {
	Agent            int      `json:"agent"`
	Kind             string   `json:"kind"`
	ActionsStarted   int      `json:"actions_started"`
	ActionsCompleted int      `json:"actions_completed"`
	Starved          int      `json:"starved"`
	FinalCharge      *float64 `json:"final_charge,omitempty"`
	MinCharge        *float64 `json:"min_charge,omitempty"`
}

// EnergyAnalysis summarizes robot batteries
type EnergyAnalysis struct {
	Robots        int     `json:"robots"`
	LowestCharge  float64 `json:"lowest_charge"`
	LowestAgent   int     `json:"lowest_agent"`
	StarvedRobots []int   `json:"starved_robots,omitempty"`
}

// EventLogEntry is a raw run event
type EventLogEntry struct {
	Tick     int                    `json:"tick"`
	SimTime  float64                `json:"sim_time"`
	Type     string                 `json:"type"`
	Severity string                 `json:"severity"`
	Agent    *int                   `json:"agent,omitempty"`
	Message  string                 `json:"message"`
	Details  map[string]interface{} `json:"details,omitempty"`
}

// Finding is an observation with a suggested change to the scenario
type Finding struct {
	Category       string `json:"category"`
	Observation    string `json:"observation"`
	Recommendation string `json:"recommendation"`
}

// NewReportGenerator creates a generator over a run log
func NewReportGenerator(log *RunLogger, config ReportConfig) *ReportGenerator {
	return &ReportGenerator{
		log:    log,
		config: config,
	}
}

// Generate builds the report from the current state of the run log
func (g *ReportGenerator) Generate() *Report {
	summary := g.log.GetSummary()
	events := g.log.GetEvents()

	report := &Report{
		Metadata: ReportMetadata{
			RunID:        summary.RunID,
			GeneratedAt:  time.Now(),
			RunStart:     summary.StartTime,
			WallDuration: summary.Duration.Round(time.Millisecond).String(),
			Settings:     g.config.Settings,
		},
	}

	report.Summary = g.generateExecutiveSummary(events, summary)
	report.Timeline = g.buildTimeline(events)
	report.Agents = g.analyzeAgents(summary)
	report.Energy = g.analyzeEnergy(report.Agents)

	if g.config.DetailLevel == "full" {
		report.EventLog = g.generateEventLog(events)
	}

	report.Findings = g.generateFindings(report, events)
	return report
}

// Save writes the report into the output directory and returns its path
func (g *ReportGenerator) Save(report *Report) (string, error) {
	if err := os.MkdirAll(g.config.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	id := report.Metadata.RunID
	if len(id) > 8 {
		id = id[:8]
	}
	name := fmt.Sprintf("report_%s_%s", id, report.Metadata.GeneratedAt.Format("20060102_150405"))

	var (
		data []byte
		ext  string
		err  error
	)
	switch g.config.Format {
	case FormatJSON:
		data, err = json.MarshalIndent(report, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to marshal report: %w", err)
		}
		ext = ".json"
	case FormatMarkdown:
		data = []byte(g.markdown(report))
		ext = ".md"
	default:
		return "", fmt.Errorf("unsupported format: %s", g.config.Format)
	}

	path := filepath.Join(g.config.OutputDir, name+ext)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	logger.Successf("Report saved to: %s", path)
	return path, nil
}

func (g *ReportGenerator) markdown(report *Report) string {
	var sb strings.Builder

	sb.WriteString("# Run Report\n\n")
	sb.WriteString(fmt.Sprintf("**Run ID:** %s\n", report.Metadata.RunID))
	sb.WriteString(fmt.Sprintf("**Generated:** %s\n", report.Metadata.GeneratedAt.Format("2006-01-02 15:04:05")))
	sb.WriteString(fmt.Sprintf("**Wall Time:** %s\n\n", report.Metadata.WallDuration))

	sb.WriteString("## Summary\n\n")
	sb.WriteString(fmt.Sprintf("**Outcome:** %s\n\n", report.Summary.Outcome))
	sb.WriteString(fmt.Sprintf("- **Ticks:** %d\n", report.Summary.Ticks))
	sb.WriteString(fmt.Sprintf("- **Simulated Time:** %.2fs\n", report.Summary.SimTime))
	sb.WriteString(fmt.Sprintf("- **Actions Completed:** %d\n", report.Summary.ActionsCompleted))
	sb.WriteString(fmt.Sprintf("- **Packages Delivered:** %d/%d\n", report.Summary.PackagesDelivered, report.Summary.Packages))
	sb.WriteString(fmt.Sprintf("- **Starvation Events:** %d\n\n", report.Summary.StarvationEvents))

	if len(report.Summary.KeyEvents) > 0 {
		sb.WriteString("### Key Events\n")
		for _, event := range report.Summary.KeyEvents {
			sb.WriteString(fmt.Sprintf("- %s\n", event))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## Agents\n\n")
	sb.WriteString("| Agent | Kind | Started | Completed | Starved | Final Charge | Min Charge |\n")
	sb.WriteString("|---|---|---|---|---|---|---|\n")
	for _, a := range report.Agents {
		sb.WriteString(fmt.Sprintf("| %d | %s | %d | %d | %d | %s | %s |\n",
			a.Agent, a.Kind, a.ActionsStarted, a.ActionsCompleted, a.Starved,
			formatCharge(a.FinalCharge), formatCharge(a.MinCharge)))
	}
	sb.WriteString("\n")

	if len(report.Timeline) > 0 {
		sb.WriteString("## Timeline\n\n")
		for _, entry := range report.Timeline {
			sb.WriteString(fmt.Sprintf("- `%s` tick %d: %s\n", entry.Elapsed, entry.Tick, entry.Description))
		}
		sb.WriteString("\n")
	}

	if len(report.Findings) > 0 {
		sb.WriteString("## Findings\n\n")
		for _, f := range report.Findings {
			sb.WriteString(fmt.Sprintf("### %s\n", f.Category))
			sb.WriteString(fmt.Sprintf("**Observation:** %s\n\n", f.Observation))
			sb.WriteString(fmt.Sprintf("**Recommendation:** %s\n\n", f.Recommendation))
		}
	}

	return sb.String()
}

func (g *ReportGenerator) generateExecutiveSummary(events []RunEvent, summary RunSummary) ExecutiveSummary {
	exec := ExecutiveSummary{
		Ticks:             summary.Ticks,
		SimTime:           summary.SimTime,
		ActionsCompleted:  summary.EventCounts[EventTypeActionCompleted],
		Packages:          summary.Packages,
		PackagesDelivered: summary.EventCounts[EventTypeDelivery],
		StarvationEvents:  summary.EventCounts[EventTypeStarved],
		KeyEvents:         make([]string, 0),
	}
	if m, ok := summary.Metrics["delivered"]; ok {
		exec.PackagesDelivered = int(m.Value)
	}

	var failure string
	for _, event := range events {
		switch event.Type {
		case EventTypeSystem:
			if event.Severity == SeverityError || event.Severity == SeverityCritical {
				failure = event.Message
			}
			exec.KeyEvents = append(exec.KeyEvents, event.Message)
		case EventTypeDelivery, EventTypeStarved:
			exec.KeyEvents = append(exec.KeyEvents, fmt.Sprintf("t=%.2fs %s", event.SimTime, event.Message))
		}
	}

	switch {
	case failure != "":
		exec.Outcome = fmt.Sprintf("Run aborted: %s", failure)
	case exec.Packages == 0:
		exec.Outcome = "No packages in scenario"
	case exec.PackagesDelivered == exec.Packages:
		exec.Outcome = fmt.Sprintf("All %d packages delivered", exec.Packages)
	default:
		exec.Outcome = fmt.Sprintf("%d of %d packages delivered", exec.PackagesDelivered, exec.Packages)
	}
	return exec
}

func (g *ReportGenerator) buildTimeline(events []RunEvent) []TimelineEntry {
	timeline := make([]TimelineEntry, 0)
	for _, event := range events {
		if !isSignificant(event) {
			continue
		}
		timeline = append(timeline, TimelineEntry{
			Tick:        event.Tick,
			SimTime:     event.SimTime,
			Elapsed:     formatSimTime(event.SimTime),
			EventType:   event.Type,
			Description: event.Message,
			Agent:       event.Agent,
		})
	}
	sort.SliceStable(timeline, func(i, j int) bool { return timeline[i].Tick < timeline[j].Tick })
	return timeline
}

func (g *ReportGenerator) analyzeAgents(summary RunSummary) []AgentAnalysis {
	ids := make(map[int]bool)
	for id := range summary.AgentKinds {
		ids[id] = true
	}
	for id := range summary.AgentEvents {
		ids[id] = true
	}

	out := make([]AgentAnalysis, 0, len(ids))
	for id := range ids {
		counts := summary.AgentEvents[id]
		a := AgentAnalysis{
			Agent:            id,
			Kind:             kindName(summary.AgentKinds[id]),
			ActionsStarted:   counts[EventTypeActionStarted],
			ActionsCompleted: counts[EventTypeActionCompleted],
			Starved:          counts[EventTypeStarved],
		}
		if m, ok := summary.Metrics["charge."+strconv.Itoa(id)]; ok {
			final, lowest := m.Value, m.Value
			for _, p := range m.History {
				if p.Value < lowest {
					lowest = p.Value
				}
			}
			a.FinalCharge, a.MinCharge = &final, &lowest
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Agent < out[j].Agent })
	return out
}

func (g *ReportGenerator) analyzeEnergy(agentStats []AgentAnalysis) EnergyAnalysis {
	energy := EnergyAnalysis{LowestAgent: -1}
	for _, a := range agentStats {
		if a.MinCharge == nil {
			continue
		}
		energy.Robots++
		if energy.LowestAgent < 0 || *a.MinCharge < energy.LowestCharge {
			energy.LowestCharge = *a.MinCharge
			energy.LowestAgent = a.Agent
		}
		if a.Starved > 0 {
			energy.StarvedRobots = append(energy.StarvedRobots, a.Agent)
		}
	}
	return energy
}

func (g *ReportGenerator) generateEventLog(events []RunEvent) []EventLogEntry {
	log := make([]EventLogEntry, 0, len(events))
	for _, event := range events {
		log = append(log, EventLogEntry{
			Tick:     event.Tick,
			SimTime:  event.SimTime,
			Type:     event.Type,
			Severity: event.Severity,
			Agent:    event.Agent,
			Message:  event.Message,
			Details:  event.Details,
		})
	}
	return log
}

func (g *ReportGenerator) generateFindings(report *Report, events []RunEvent) []Finding {
	findings := make([]Finding, 0)

	for _, id := range report.Energy.StarvedRobots {
		findings = append(findings, Finding{
			Category:       "Energy",
			Observation:    fmt.Sprintf("Robot %d ran out of energy during its plan", id),
			Recommendation: "Schedule a chargeup before the longest leg or raise the initial charge",
		})
	}

	if s := report.Summary; s.Packages > 0 && s.PackagesDelivered < s.Packages {
		findings = append(findings, Finding{
			Category:       "Delivery",
			Observation:    fmt.Sprintf("%d packages did not reach their goal", s.Packages-s.PackagesDelivered),
			Recommendation: "Check that every package has a pickup and a drop at its goal in the plan",
		})
	}

	for _, event := range events {
		if event.Type == EventTypeSystem && event.Severity == SeverityError {
			findings = append(findings, Finding{
				Category:       "Run",
				Observation:    event.Message,
				Recommendation: "Inspect the event log around the last tick",
			})
		}
	}
	return findings
}

func isSignificant(event RunEvent) bool {
	switch event.Type {
	case EventTypeDelivery, EventTypeStarved, EventTypeRecharged, EventTypeSystem:
		return true
	}
	return false
}

func kindName(k agents.Kind) string {
	if k == "" {
		return "unknown"
	}
	return string(k)
}

func formatCharge(c *float64) string {
	if c == nil {
		return "-"
	}
	return fmt.Sprintf("%.1f", *c)
}

// formatSimTime renders simulated seconds as mm:ss.
func formatSimTime(seconds float64) string {
	d := time.Duration(seconds * float64(time.Second))
	minutes := int(d.Minutes())
	secs := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d", minutes, secs)
}
