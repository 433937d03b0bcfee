// Package recorder persists simulation runs: a compressed per-tick
// trajectory log and a SQLite index of runs and action events.
package recorder

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/picogrid/maildelivery/pkg/driver"
)

// TrajectoryLog writes one JSON line per tick into a zstd stream.
type TrajectoryLog struct {
	path string

	mu  sync.Mutex
	f   *os.File
	enc *zstd.Encoder
	w   *bufio.Writer
}

// NewTrajectoryLog creates <dir>/<runID>.jsonl.zst.
func NewTrajectoryLog(dir, runID string) (*TrajectoryLog, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create trajectory dir: %w", err)
	}
	path := filepath.Join(dir, runID+".jsonl.zst")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open trajectory log: %w", err)
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	return &TrajectoryLog{
		path: path,
		f:    f,
		enc:  enc,
		w:    bufio.NewWriterSize(enc, 128*1024),
	}, nil
}

// Path returns the file being written.
func (l *TrajectoryLog) Path() string { return l.path }

// OnTick appends the snapshot to the log.
func (l *TrajectoryLog) OnTick(s *driver.Snapshot) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.w == nil {
		return fmt.Errorf("trajectory log %s is closed", l.path)
	}
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	if _, err := l.w.Write(b); err != nil {
		return err
	}
	return l.w.WriteByte('\n')
}

// Close flushes and closes the log.
func (l *TrajectoryLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var err error
	if l.w != nil {
		err = l.w.Flush()
		l.w = nil
	}
	if l.enc != nil {
		if cerr := l.enc.Close(); err == nil {
			err = cerr
		}
		l.enc = nil
	}
	if l.f != nil {
		if cerr := l.f.Close(); err == nil {
			err = cerr
		}
		l.f = nil
	}
	return err
}

// ReadTrajectory decodes every snapshot of a trajectory log.
func ReadTrajectory(path string) ([]driver.Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open trajectory log: %w", err)
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	defer dec.Close()

	var out []driver.Snapshot
	jd := json.NewDecoder(bufio.NewReader(dec))
	for {
		var s driver.Snapshot
		if err := jd.Decode(&s); err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("failed to decode tick %d: %w", len(out)+1, err)
		}
		out = append(out, s)
	}
	return out, nil
}
