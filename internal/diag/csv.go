// SPDX-License-Identifier: MIT
package diag

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	applog "lightdesk/internal/log"
)

const csvQueueSize = 256

// CSVSink appends one row per beat to a CSV file from its own goroutine.
type CSVSink struct {
	path    string
	out     io.WriteCloser
	w       *csv.Writer
	queue   chan Record
	done    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
	dropped atomic.Uint64
	fields  []string
}

var _ Sink = (*CSVSink)(nil)

// CSVFileName returns the log file name for a session started at t.
func CSVFileName(t time.Time) string {
	return "lightdesk_log_" + t.Format("20060102_150405") + ".csv"
}

// NewCSVSink creates a timestamped CSV file in dir. An empty dir means the
// user's home directory.
func NewCSVSink(dir string) (*CSVSink, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, errors.Wrap(err, "diag: locate home directory")
		}
		dir = home
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "diag: create %s", dir)
	}
	path := filepath.Join(dir, CSVFileName(time.Now()))
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrap(err, "diag: create csv")
	}
	s, err := NewCSVWriterSink(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	s.path = path
	applog.Infof("Diagnostics: Logging beats to %s", path)
	return s, nil
}

// NewCSVWriterSink writes the header to out and starts the writer.
func NewCSVWriterSink(out io.WriteCloser) (*CSVSink, error) {
	s := &CSVSink{
		out:    out,
		w:      csv.NewWriter(out),
		queue:  make(chan Record, csvQueueSize),
		done:   make(chan struct{}),
		fields: make([]string, 0, len(Header)),
	}
	if err := s.w.Write(Header); err != nil {
		return nil, errors.Wrap(err, "diag: write csv header")
	}
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		return nil, errors.Wrap(err, "diag: write csv header")
	}
	s.wg.Add(1)
	go s.run()
	return s, nil
}

// Path returns the file being written, or "" for a caller-supplied writer.
func (s *CSVSink) Path() string { return s.path }

// Dropped returns how many records were discarded on a full queue.
func (s *CSVSink) Dropped() uint64 { return s.dropped.Load() }

func (s *CSVSink) Record(r Record) {
	select {
	case <-s.done:
		return
	default:
	}
	select {
	case s.queue <- r:
	default:
		s.dropped.Add(1)
	}
}

func (s *CSVSink) run() {
	defer s.wg.Done()
	for {
		select {
		case r := <-s.queue:
			s.write(r)
		case <-s.done:
			for {
				select {
				case r := <-s.queue:
					s.write(r)
				default:
					return
				}
			}
		}
	}
}

func (s *CSVSink) write(r Record) {
	s.fields = r.AppendFields(s.fields[:0])
	if err := s.w.Write(s.fields); err != nil {
		applog.Debugf("Diagnostics: csv write failed: %v", err)
		return
	}
	s.w.Flush()
}

// Close writes any queued rows and closes the file.
func (s *CSVSink) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		s.wg.Wait()
		s.w.Flush()
		err = s.w.Error()
		if cerr := s.out.Close(); err == nil {
			err = cerr
		}
		err = errors.Wrap(err, "diag: close csv")
	})
	return err
}
