package logger

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// Icons and symbols for different log types
const (
	IconSuccess = "✅"
	IconError   = "❌"
	IconWarning = "⚠️"
	IconRobot   = "🤖"
	IconDrone   = "🛸"
	IconPackage = "📦"
	IconRefresh = "🔄"
	IconFolder  = "📁"
	IconDot     = "•"
	IconArrow   = "→"
)

func out() (io.Writer, bool) {
	if l, ok := defaultLogger.(*logger); ok {
		l.sink.mu.Lock()
		defer l.sink.mu.Unlock()
		return l.sink.writer, !l.sink.noColor
	}
	return os.Stdout, false
}

// Success logs a success message with a green checkmark
func Success(args ...interface{}) {
	defaultLogger.Info(IconSuccess + " " + fmt.Sprint(args...))
}

// Successf logs a formatted success message
func Successf(format string, args ...interface{}) {
	Success(fmt.Sprintf(format, args...))
}

// Progress logs a progress message with a refresh icon
func Progress(args ...interface{}) {
	defaultLogger.Info(IconRefresh + " " + fmt.Sprint(args...))
}

// Progressf logs a formatted progress message
func Progressf(format string, args ...interface{}) {
	Progress(fmt.Sprintf(format, args...))
}

// LogSection prints a visual section separator
func LogSection(title string) {
	w, colored := out()
	line := strings.Repeat("=", 50)
	if colored {
		_, _ = styleTitle.Fprintln(w, line)
		_, _ = styleTitle.Fprintln(w, title)
		_, _ = styleTitle.Fprintln(w, line)
		return
	}
	_, _ = fmt.Fprintf(w, "%s\n%s\n%s\n", line, title, line)
}

// LogList logs a list of items with bullets
func LogList(title string, items []string) {
	Info(title)
	w, _ := out()
	for _, item := range items {
		_, _ = fmt.Fprintf(w, "  %s %s\n", IconDot, item)
	}
}

// LogKeyValue logs a key-value pair
func LogKeyValue(key string, value interface{}) {
	w, colored := out()
	if colored {
		_, _ = fmt.Fprintf(w, "%s %v\n", stylePrefix.Sprint(key+":"), value)
		return
	}
	_, _ = fmt.Fprintf(w, "%s: %v\n", key, value)
}

// LogKeyValues logs multiple key-value pairs sorted by key
func LogKeyValues(pairs map[string]interface{}) {
	keys := make([]string, 0, len(pairs))
	for k := range pairs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		LogKeyValue(k, pairs[k])
	}
}

// Table is a plain text table.
type Table struct {
	headers []string
	rows    [][]string
}

// NewTable creates a new table
func NewTable(headers ...string) *Table {
	return &Table{headers: headers}
}

// AddRow adds a row to the table
func (t *Table) AddRow(values ...string) {
	t.rows = append(t.rows, values)
}

// Print writes the table to the default logger output.
func (t *Table) Print() {
	w, _ := out()
	t.Fprint(w)
}

// Fprint writes the table to w.
func (t *Table) Fprint(w io.Writer) {
	if len(t.headers) == 0 {
		return
	}

	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = len(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	var b strings.Builder
	for i, h := range t.headers {
		fmt.Fprintf(&b, "%-*s  ", widths[i], h)
	}
	b.WriteString("\n")
	for i := range t.headers {
		b.WriteString(strings.Repeat("-", widths[i]) + "  ")
	}
	b.WriteString("\n")
	for _, row := range t.rows {
		for i, cell := range row {
			if i < len(widths) {
				fmt.Fprintf(&b, "%-*s  ", widths[i], cell)
			}
		}
		b.WriteString("\n")
	}
	_, _ = io.WriteString(w, b.String())
}
