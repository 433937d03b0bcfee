// Package reporting prints a colored event log of a run and summarizes it.
package reporting

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"

	"github.com/picogrid/maildelivery/pkg/agents"
	"github.com/picogrid/maildelivery/pkg/driver"
	"github.com/picogrid/maildelivery/pkg/logger"
)

// RunLogger is a driver observer that logs run events and tracks metrics.
type RunLogger struct {
	runID     string
	startTime time.Time
	out       io.Writer
	minLevel  int

	events  []RunEvent
	metrics map[string]Metric

	delivered map[int]bool
	starved   map[int]bool
	kinds     map[int]agents.Kind
	packages  int
	lastTick  int
	lastTime  float64

	mu sync.RWMutex
}

// RunEvent is an entry of the run log.
type RunEvent struct {
	Timestamp time.Time
	Tick      int
	SimTime   float64
	Type      string
	Severity  string
	Agent     *int
	Message   string
	Details   map[string]interface{}
}

// Metric is a tracked value with a bounded history.
type Metric struct {
	Name        string
	Value       float64
	Unit        string
	LastUpdated time.Time
	History     []MetricPoint
}

// MetricPoint is a metric value at a simulation time.
type MetricPoint struct {
	SimTime float64
	Value   float64
}

// Event types
const (
	EventTypeActionStarted   = "action_started"
	EventTypeActionCompleted = "action_completed"
	EventTypeDelivery        = "delivery"
	EventTypeStarved         = "starved"
	EventTypeRecharged       = "recharged"
	EventTypeSystem          = "system"
)

// Severities, in increasing order.
const (
	SeverityDebug    = "debug"
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

const (
	maxEvents        = 10000
	maxMetricHistory = 1000
)

var severityRank = map[string]int{
	SeverityDebug:    0,
	SeverityInfo:     1,
	SeverityWarning:  2,
	SeverityError:    3,
	SeverityCritical: 4,
}

var (
	colorDebug    = color.New(color.FgHiBlack)
	colorInfo     = color.New(color.FgCyan)
	colorWarning  = color.New(color.FgYellow)
	colorError    = color.New(color.FgRed)
	colorCritical = color.New(color.FgRed, color.Bold)
	colorRobot    = color.New(color.FgBlue, color.Bold)
	colorDrone    = color.New(color.FgMagenta, color.Bold)
	colorSuccess  = color.New(color.FgGreen)
)

// Options configures a RunLogger.
type Options struct {
	// RunID defaults to a fresh UUID.
	RunID string
	// Out defaults to stdout.
	Out io.Writer
	// MinSeverity hides console lines below it. Everything is still recorded.
	MinSeverity string
}

// NewRunLogger creates a run logger.
func NewRunLogger(opts Options) *RunLogger {
	if opts.RunID == "" {
		opts.RunID = uuid.New().String()
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	rank, ok := severityRank[strings.ToLower(opts.MinSeverity)]
	if !ok {
		rank = severityRank[SeverityInfo]
	}

	rl := &RunLogger{
		runID:     opts.RunID,
		startTime: time.Now(),
		out:       opts.Out,
		minLevel:  rank,
		events:    make([]RunEvent, 0),
		metrics:   make(map[string]Metric),
		delivered: make(map[int]bool),
		starved:   make(map[int]bool),
		kinds:     make(map[int]agents.Kind),
	}

	rl.logColoredMessage(SeverityInfo, "Run Started",
		fmt.Sprintf("ID: %s | Time: %s", rl.runID, rl.startTime.Format("15:04:05")))
	return rl
}

// RunID returns the identifier of the run.
func (rl *RunLogger) RunID() string {
	return rl.runID
}

// OnTick implements driver.Observer.
func (rl *RunLogger) OnTick(s *driver.Snapshot) error {
	kinds := make(map[int]agents.Kind, len(s.Agents))
	for _, a := range s.Agents {
		kinds[a.ID] = a.Kind
	}

	for _, ev := range s.Events {
		agent := ev.Agent
		sev, label := SeverityDebug, "Started"
		if ev.Type == driver.EventActionCompleted {
			sev, label = SeverityInfo, "Completed"
		}
		rl.logEvent(RunEvent{
			Timestamp: time.Now(),
			Tick:      ev.Tick,
			SimTime:   ev.Time,
			Type:      string(ev.Type),
			Severity:  sev,
			Agent:     &agent,
			Message:   ev.Action,
			Details:   map[string]interface{}{"action": string(ev.ActionKind)},
		})
		rl.logColoredMessage(sev, label,
			fmt.Sprintf("t=%.2fs | %s | %s", ev.Time, rl.agentLabel(ev.Agent, kinds[ev.Agent]), ev.Action))
	}

	for _, a := range s.Agents {
		rl.trackStarvation(s, a)
		if a.Kind == agents.KindRobot {
			rl.updateMetric(fmt.Sprintf("charge.%d", a.ID), s.Time, a.Charge, "units")
		}
	}

	delivered := 0
	for _, p := range s.Packages {
		if !p.Delivered() {
			continue
		}
		delivered++
		if rl.markDelivered(p.ID) {
			rl.logEvent(RunEvent{
				Timestamp: time.Now(),
				Tick:      s.Tick,
				SimTime:   s.Time,
				Type:      EventTypeDelivery,
				Severity:  SeverityInfo,
				Message:   fmt.Sprintf("package %d delivered to l%d", p.ID, p.Goal),
				Details:   map[string]interface{}{"package": p.ID, "goal": p.Goal},
			})
			rl.logColoredMessage(SeverityInfo, "Delivered",
				colorSuccess.Sprintf("package %d at l%d (t=%.2fs)", p.ID, p.Goal, s.Time))
		}
	}
	rl.updateMetric("delivered", s.Time, float64(delivered), "packages")

	rl.mu.Lock()
	rl.lastTick, rl.lastTime = s.Tick, s.Time
	rl.packages = len(s.Packages)
	for id, k := range kinds {
		rl.kinds[id] = k
	}
	rl.mu.Unlock()
	return nil
}

func (rl *RunLogger) trackStarvation(s *driver.Snapshot, a driver.AgentState) {
	rl.mu.Lock()
	was := rl.starved[a.ID]
	rl.starved[a.ID] = a.Starved
	rl.mu.Unlock()

	agent := a.ID
	switch {
	case a.Starved && !was:
		rl.logEvent(RunEvent{
			Timestamp: time.Now(),
			Tick:      s.Tick,
			SimTime:   s.Time,
			Type:      EventTypeStarved,
			Severity:  SeverityWarning,
			Agent:     &agent,
			Message:   fmt.Sprintf("robot %d cannot afford its next step (charge %.2f)", a.ID, a.Charge),
			Details:   map[string]interface{}{"charge": a.Charge},
		})
		rl.logColoredMessage(SeverityWarning, "Out of Energy",
			fmt.Sprintf("t=%.2fs | %s | charge %.2f", s.Time, rl.agentLabel(a.ID, a.Kind), a.Charge))
	case !a.Starved && was:
		rl.logEvent(RunEvent{
			Timestamp: time.Now(),
			Tick:      s.Tick,
			SimTime:   s.Time,
			Type:      EventTypeRecharged,
			Severity:  SeverityInfo,
			Agent:     &agent,
			Message:   fmt.Sprintf("robot %d moving again", a.ID),
		})
	}
}

func (rl *RunLogger) markDelivered(id int) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if rl.delivered[id] {
		return false
	}
	rl.delivered[id] = true
	return true
}

// LogError records a failure of the run.
func (rl *RunLogger) LogError(message string, err error, details map[string]interface{}) {
	if details == nil {
		details = make(map[string]interface{})
	}
	details["error"] = err.Error()

	rl.mu.RLock()
	tick, simTime := rl.lastTick, rl.lastTime
	rl.mu.RUnlock()

	rl.logEvent(RunEvent{
		Timestamp: time.Now(),
		Tick:      tick,
		SimTime:   simTime,
		Type:      EventTypeSystem,
		Severity:  SeverityError,
		Message:   message,
		Details:   details,
	})

	logger.Errorf("%s: %v", message, err)
}

// RecordResult stores the final counters of a run as metrics.
func (rl *RunLogger) RecordResult(res driver.Result) {
	rl.updateMetric("ticks", res.SimTime, float64(res.Ticks), "ticks")
	rl.updateMetric("sim_time", res.SimTime, res.SimTime, "s")
	rl.updateMetric("completed", res.SimTime, float64(res.Completed), "actions")
	rl.updateMetric("delivered", res.SimTime, float64(res.Delivered), "packages")
}

func (rl *RunLogger) updateMetric(name string, simTime, value float64, unit string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	metric, exists := rl.metrics[name]
	if !exists {
		metric = Metric{Name: name, Unit: unit, History: make([]MetricPoint, 0)}
	}
	if exists && metric.Value == value && len(metric.History) > 0 {
		return
	}

	metric.Value = value
	metric.LastUpdated = time.Now()
	metric.History = append(metric.History, MetricPoint{SimTime: simTime, Value: value})
	if len(metric.History) > maxMetricHistory {
		metric.History = metric.History[len(metric.History)-maxMetricHistory:]
	}
	rl.metrics[name] = metric
}

// GetEvents returns a copy of the recorded events.
func (rl *RunLogger) GetEvents() []RunEvent {
	rl.mu.RLock()
	defer rl.mu.RUnlock()

	events := make([]RunEvent, len(rl.events))
	copy(events, rl.events)
	return events
}

// GetMetrics returns a copy of the current metrics.
func (rl *RunLogger) GetMetrics() map[string]Metric {
	rl.mu.RLock()
	defer rl.mu.RUnlock()

	metrics := make(map[string]Metric, len(rl.metrics))
	for k, v := range rl.metrics {
		metrics[k] = v
	}
	return metrics
}

// RunSummary aggregates a run log.
type RunSummary struct {
	RunID       string
	StartTime   time.Time
	Duration    time.Duration
	Ticks       int
	SimTime     float64
	TotalEvents int
	Packages    int
	EventCounts map[string]int
	AgentEvents map[int]map[string]int
	AgentKinds  map[int]agents.Kind
	Metrics     map[string]Metric
}

// GetSummary returns the summary of the run so far.
func (rl *RunLogger) GetSummary() RunSummary {
	rl.mu.RLock()
	defer rl.mu.RUnlock()

	eventCounts := make(map[string]int)
	agentEvents := make(map[int]map[string]int)
	for _, event := range rl.events {
		eventCounts[event.Type]++
		if event.Agent != nil {
			if agentEvents[*event.Agent] == nil {
				agentEvents[*event.Agent] = make(map[string]int)
			}
			agentEvents[*event.Agent][event.Type]++
		}
	}

	metrics := make(map[string]Metric, len(rl.metrics))
	for k, v := range rl.metrics {
		metrics[k] = v
	}
	kinds := make(map[int]agents.Kind, len(rl.kinds))
	for id, k := range rl.kinds {
		kinds[id] = k
	}

	return RunSummary{
		RunID:       rl.runID,
		StartTime:   rl.startTime,
		Duration:    time.Since(rl.startTime),
		Ticks:       rl.lastTick,
		SimTime:     rl.lastTime,
		TotalEvents: len(rl.events),
		Packages:    rl.packages,
		EventCounts: eventCounts,
		AgentEvents: agentEvents,
		AgentKinds:  kinds,
		Metrics:     metrics,
	}
}

func (rl *RunLogger) logEvent(event RunEvent) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.events = append(rl.events, event)
	if len(rl.events) > maxEvents {
		rl.events = rl.events[len(rl.events)-maxEvents:]
	}
}

func (rl *RunLogger) logColoredMessage(severity, eventType, message string) {
	if severityRank[severity] < rl.minLevel {
		return
	}
	timestamp := time.Now().Format("15:04:05.000")

	var severityColor *color.Color
	switch severity {
	case SeverityDebug:
		severityColor = colorDebug
	case SeverityWarning:
		severityColor = colorWarning
	case SeverityError:
		severityColor = colorError
	case SeverityCritical:
		severityColor = colorCritical
	default:
		severityColor = colorInfo
	}

	_, _ = fmt.Fprintf(rl.out, "[%s] %s %-10s | %s\n",
		timestamp,
		severityColor.Sprint(fmt.Sprintf("%-8s", severity)),
		eventType,
		message)
}

func (rl *RunLogger) agentLabel(id int, kind agents.Kind) string {
	switch kind {
	case agents.KindDrone:
		return colorDrone.Sprintf("drone %d", id)
	case agents.KindRobot:
		return colorRobot.Sprintf("robot %d", id)
	default:
		return fmt.Sprintf("agent %d", id)
	}
}

// PrintSummary writes a formatted summary of the run.
func (rl *RunLogger) PrintSummary() {
	summary := rl.GetSummary()
	w := rl.out

	shortID := summary.RunID
	if len(shortID) > 8 {
		shortID = shortID[:8]
	}

	_, _ = colorSuccess.Fprintln(w, "\n==============================================================")
	_, _ = colorSuccess.Fprintf(w, "                 RUN SUMMARY - %s\n", shortID)
	_, _ = colorSuccess.Fprintln(w, "==============================================================")

	_, _ = fmt.Fprintf(w, "\nWall time: %v | Sim time: %.2fs | Ticks: %d | Events: %d\n",
		summary.Duration.Round(time.Millisecond), summary.SimTime, summary.Ticks, summary.TotalEvents)

	_, _ = fmt.Fprintln(w, "\nEvent distribution:")
	for _, eventType := range sortedKeys(summary.EventCounts) {
		_, _ = fmt.Fprintf(w, "   %-20s: %d\n", eventType, summary.EventCounts[eventType])
	}

	if len(summary.AgentEvents) > 0 {
		_, _ = fmt.Fprintln(w, "\nPer agent:")
		ids := make([]int, 0, len(summary.AgentEvents))
		for id := range summary.AgentEvents {
			ids = append(ids, id)
		}
		sort.Ints(ids)
		for _, id := range ids {
			_, _ = fmt.Fprintf(w, "\n   agent %d:\n", id)
			events := summary.AgentEvents[id]
			for _, eventType := range sortedKeys(events) {
				_, _ = fmt.Fprintf(w, "      %-18s: %d\n", eventType, events[eventType])
			}
		}
	}

	if len(summary.Metrics) > 0 {
		_, _ = fmt.Fprintln(w, "\nMetrics:")
		names := make([]string, 0, len(summary.Metrics))
		for name := range summary.Metrics {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			m := summary.Metrics[name]
			_, _ = fmt.Fprintf(w, "   %-20s: %.2f %s\n", name, m.Value, m.Unit)
		}
	}

	_, _ = colorSuccess.Fprintln(w, "\n==============================================================")
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
