package csvlog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
)

// RowSink accepts finished table rows. Implementations are not required to
// be safe for concurrent use; callers must serialize writes.
type RowSink interface {
	WriteRow(cells []string) error
	Flush() error
	Close() error
}

type csvSink struct {
	w *csv.Writer
	c io.Closer
}

// NewCSVSink wraps a writer in a CSV row sink. If w is also an io.Closer it
// is closed by Close.
func NewCSVSink(w io.Writer) RowSink {
	s := &csvSink{w: csv.NewWriter(w)}
	if c, ok := w.(io.Closer); ok {
		s.c = c
	}
	return s
}

// CreateCSVFile creates (or truncates) path and returns a CSV sink over it.
func CreateCSVFile(path string) (RowSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csvlog: %w", err)
	}
	return NewCSVSink(f), nil
}

func (s *csvSink) WriteRow(cells []string) error {
	if err := s.w.Write(cells); err != nil {
		return fmt.Errorf("csvlog: write row: %w", err)
	}
	return nil
}

func (s *csvSink) Flush() error {
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		return fmt.Errorf("csvlog: flush: %w", err)
	}
	return nil
}

func (s *csvSink) Close() error {
	if err := s.Flush(); err != nil {
		if s.c != nil {
			s.c.Close()
		}
		return err
	}
	if s.c != nil {
		return s.c.Close()
	}
	return nil
}
