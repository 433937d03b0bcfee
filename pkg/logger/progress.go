package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
)

// ProgressBar draws a single line progress bar. It stays silent when the
// output is not a terminal.
type ProgressBar struct {
	mu      sync.Mutex
	out     io.Writer
	enabled bool
	total   int
	current int
	width   int
	message string
	suffix  string
}

var styleBar = color.New(color.FgGreen)

// NewProgressBar creates a progress bar on stdout.
func NewProgressBar(total int, message string) *ProgressBar {
	return NewProgressBarTo(os.Stdout, IsTerminal(os.Stdout), total, message)
}

// NewProgressBarTo creates a progress bar on w. Nothing is drawn unless enabled.
func NewProgressBarTo(w io.Writer, enabled bool, total int, message string) *ProgressBar {
	return &ProgressBar{out: w, enabled: enabled, total: total, width: 40, message: message}
}

// Update sets the progress and a free text suffix.
func (p *ProgressBar) Update(current int, suffix string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if current == p.current && suffix == p.suffix {
		return
	}
	p.current, p.suffix = current, suffix
	p.draw()
}

// Current returns the last reported progress.
func (p *ProgressBar) Current() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Finish completes the progress bar
func (p *ProgressBar) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.draw()
	if p.enabled {
		_, _ = fmt.Fprintln(p.out)
	}
}

func (p *ProgressBar) draw() {
	if !p.enabled {
		return
	}
	percent := 1.0
	if p.total > 0 {
		percent = float64(p.current) / float64(p.total)
	}
	if percent > 1 {
		percent = 1
	}
	filled := int(percent * float64(p.width))
	bar := strings.Repeat("█", filled) + strings.Repeat("░", p.width-filled)

	_, _ = fmt.Fprintf(p.out, "\r%s: %s %3.0f%% %s", p.message, styleBar.Sprint(bar), percent*100, p.suffix)
}
