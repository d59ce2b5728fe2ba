package store

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"netmon/internal/models"
)

// TimeLayout is the timestamp format used in the measurement log.
const TimeLayout = "2006-01-02 15:04:05"

var header = []string{"timestamp", "download", "upload", "ping", "isp", "server_location", "server_id"}

// CSV is an append-only measurement log. Rows are never rewritten or
// reordered; the header is written exactly once, when the file is created.
// Single-writer: the monitor loop is the only appender.
type CSV struct {
	path string
}

func New(path string) *CSV {
	return &CSV{path: path}
}

func (s *CSV) Path() string { return s.path }

// Append writes one row, creating the directory, file and header on first
// use.
func (s *CSV) Append(m models.Measurement) error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}
	}

	_, statErr := os.Stat(s.path)
	writeHeader := os.IsNotExist(statErr)

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}

	w := csv.NewWriter(f)
	if writeHeader {
		if err := w.Write(header); err != nil {
			f.Close()
			return err
		}
	}
	if err := w.Write(record(m)); err != nil {
		f.Close()
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadAll parses the log back into measurements, in append order. A missing
// file yields no rows and no error.
func (s *CSV) ReadAll() ([]models.Measurement, error) {
	f, err := os.Open(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) <= 1 {
		return nil, nil
	}

	out := make([]models.Measurement, 0, len(rows)-1)
	for _, row := range rows[1:] {
		m, err := parseRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// Recent returns measurements with timestamps at or after since.
func (s *CSV) Recent(since time.Time) ([]models.Measurement, error) {
	all, err := s.ReadAll()
	if err != nil {
		return nil, err
	}
	out := make([]models.Measurement, 0, len(all))
	for _, m := range all {
		if !m.Timestamp.Before(since) {
			out = append(out, m)
		}
	}
	return out, nil
}

func record(m models.Measurement) []string {
	return []string{
		m.Timestamp.Format(TimeLayout),
		formatValue(m.DownloadMbps),
		formatValue(m.UploadMbps),
		formatValue(m.PingMs),
		m.ISP,
		m.ServerLocation,
		strconv.FormatInt(m.ServerID, 10),
	}
}

// formatValue renders readings with two decimals; failure sentinels stay a
// literal -1.
func formatValue(v float64) string {
	if v < 0 {
		return "-1"
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func parseRow(row []string) (models.Measurement, error) {
	if len(row) != len(header) {
		return models.Measurement{}, fmt.Errorf("row has %d fields, want %d", len(row), len(header))
	}
	ts, err := time.Parse(TimeLayout, row[0])
	if err != nil {
		return models.Measurement{}, fmt.Errorf("parse timestamp %q: %w", row[0], err)
	}
	download, err := strconv.ParseFloat(row[1], 64)
	if err != nil {
		return models.Measurement{}, fmt.Errorf("parse download %q: %w", row[1], err)
	}
	upload, err := strconv.ParseFloat(row[2], 64)
	if err != nil {
		return models.Measurement{}, fmt.Errorf("parse upload %q: %w", row[2], err)
	}
	ping, err := strconv.ParseFloat(row[3], 64)
	if err != nil {
		return models.Measurement{}, fmt.Errorf("parse ping %q: %w", row[3], err)
	}
	serverID, err := strconv.ParseInt(row[6], 10, 64)
	if err != nil {
		return models.Measurement{}, fmt.Errorf("parse server_id %q: %w", row[6], err)
	}
	return models.Measurement{
		Timestamp:      ts,
		DownloadMbps:   download,
		UploadMbps:     upload,
		PingMs:         ping,
		ISP:            row[4],
		ServerLocation: row[5],
		ServerID:       serverID,
	}, nil
}
