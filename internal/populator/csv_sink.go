package populator

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
	"github.com/vitebski/bank-dataset-generator/pkg/models"
)

// rows between context checks and progress updates
const csvCheckInterval = 10000

// CSVSink writes one delimited file per table into Dir
type CSVSink struct {
	Dir      string
	Progress bool
	Manifest *Manifest
	Logger   *logrus.Logger
}

// NewCSVSink creates a new CSV sink
func NewCSVSink(dir string, progress bool, logger *logrus.Logger) *CSVSink {
	return &CSVSink{Dir: dir, Progress: progress, Logger: logger}
}

// FileName returns the file a table is written to
func FileName(table string) string {
	return table + ".csv"
}

// Open creates Dir and removes the table files and manifest of an earlier
// run, so the directory only holds tables written by this one
func (s *CSVSink) Open(ctx context.Context) error {
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return fmt.Errorf("create output directory %s: %w", s.Dir, err)
	}
	stale := []string{ManifestFile}
	for _, info := range models.Schemas() {
		stale = append(stale, FileName(info.Name))
	}
	for _, name := range stale {
		path := filepath.Join(s.Dir, name)
		err := os.Remove(path)
		switch {
		case err == nil:
			s.Logger.Debugf("Removed %s from an earlier run", path)
		case !os.IsNotExist(err):
			return fmt.Errorf("remove stale %s: %w", path, err)
		}
	}
	return nil
}

// Write renders the table to a temporary file and renames it into place, so
// a failed or cancelled write never leaves a partial file behind
func (s *CSVSink) Write(ctx context.Context, table models.Table) (int64, error) {
	info := table.Info()
	path := filepath.Join(s.Dir, FileName(info.Name))

	tmp, err := os.CreateTemp(s.Dir, "."+info.Name+"-*.tmp")
	if err != nil {
		return 0, fmt.Errorf("create temporary file for %s: %w", info.Name, err)
	}
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	n := table.Len()
	var bar *progressbar.ProgressBar
	if s.Progress {
		bar = progressbar.Default(int64(n), "writing "+info.Name)
	}

	buf := bufio.NewWriterSize(tmp, 1<<20)
	w := csv.NewWriter(buf)
	if err := w.Write(info.ColumnNames()); err != nil {
		return 0, fmt.Errorf("write header of %s: %w", info.Name, err)
	}

	record := make([]string, 0, len(info.Columns))
	for i := 0; i < n; i++ {
		if i%csvCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
			if bar != nil && i > 0 {
				bar.Add(csvCheckInterval)
			}
		}
		record = table.AppendText(record[:0], i)
		if err := w.Write(record); err != nil {
			return 0, fmt.Errorf("write row %d of %s: %w", i, info.Name, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return 0, fmt.Errorf("flush %s: %w", info.Name, err)
	}
	if err := buf.Flush(); err != nil {
		return 0, fmt.Errorf("flush %s: %w", info.Name, err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("close %s: %w", info.Name, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return 0, fmt.Errorf("move %s into place: %w", info.Name, err)
	}
	committed = true

	if bar != nil {
		bar.Finish()
	}
	if s.Manifest != nil {
		s.Manifest.AddTable(info, FileName(info.Name), int64(n))
	}
	s.Logger.Debugf("Wrote %s", path)
	return int64(n), nil
}

// Close writes the manifest, if one is attached
func (s *CSVSink) Close(ctx context.Context) error {
	if s.Manifest == nil {
		return nil
	}
	if err := s.Manifest.Write(s.Dir); err != nil {
		return err
	}
	s.Logger.Infof("Wrote manifest for run %s", s.Manifest.RunID)
	return nil
}
