package store

import (
	"os"
	"strings"
	"testing"
	"time"

	"netmon/internal/models"
)

func sample(ts time.Time, download float64) models.Measurement {
	return models.Measurement{
		Timestamp:      ts,
		DownloadMbps:   download,
		UploadMbps:     20.5,
		PingMs:         18.25,
		ISP:            "Acme Broadband",
		ServerLocation: "Helsinki, Finland",
		ServerID:       4242,
	}
}

func TestAppendWritesHeaderAndRowsInOrder(t *testing.T) {
	s := New(t.TempDir() + "/data/network_metrics.csv")
	now := time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		if err := s.Append(sample(now.Add(time.Duration(i)*time.Minute), 100+float64(i))); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	raw, err := os.ReadFile(s.Path())
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	if len(lines) != 4 {
		t.Fatalf("line count = %d, want header + 3 rows", len(lines))
	}
	if lines[0] != "timestamp,download,upload,ping,isp,server_location,server_id" {
		t.Fatalf("unexpected header: %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "2026-02-21 12:00:00,100.00,") {
		t.Fatalf("unexpected first row: %q", lines[1])
	}
	if !strings.HasPrefix(lines[3], "2026-02-21 12:02:00,102.00,") {
		t.Fatalf("rows out of append order: %q", lines[3])
	}
}

func TestAppendNeverDuplicatesHeader(t *testing.T) {
	s := New(t.TempDir() + "/network_metrics.csv")
	now := time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC)

	if err := s.Append(sample(now, 100)); err != nil {
		t.Fatalf("first append: %v", err)
	}
	if err := s.Append(sample(now.Add(time.Minute), 101)); err != nil {
		t.Fatalf("second append: %v", err)
	}

	raw, err := os.ReadFile(s.Path())
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	if got := strings.Count(string(raw), "timestamp,download"); got != 1 {
		t.Fatalf("header appears %d times, want 1", got)
	}
}

func TestAppendFailureRowUsesLiteralSentinels(t *testing.T) {
	s := New(t.TempDir() + "/network_metrics.csv")
	ts := time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC)

	if err := s.Append(models.Failure(ts)); err != nil {
		t.Fatalf("append: %v", err)
	}

	raw, err := os.ReadFile(s.Path())
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	if lines[1] != "2026-02-21 12:00:00,-1,-1,-1,Error,Error,-1" {
		t.Fatalf("unexpected failure row: %q", lines[1])
	}
}

func TestReadAllRoundTrip(t *testing.T) {
	s := New(t.TempDir() + "/network_metrics.csv")
	now := time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC)

	want := []models.Measurement{
		sample(now, 100.25),
		sample(now.Add(20*time.Minute), 95.5),
	}
	for _, m := range want {
		if err := s.Append(m); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	got, err := s.ReadAll()
	if err != nil {
		t.Fatalf("read all: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("rows = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("row %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestReadAllMissingFileYieldsNoRows(t *testing.T) {
	s := New(t.TempDir() + "/missing.csv")
	got, err := s.ReadAll()
	if err != nil {
		t.Fatalf("read all: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("rows = %d, want 0", len(got))
	}
}

func TestRecentFiltersByTimestamp(t *testing.T) {
	s := New(t.TempDir() + "/network_metrics.csv")
	now := time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC)

	for _, ts := range []time.Time{now.Add(-2 * time.Hour), now.Add(-30 * time.Minute), now} {
		if err := s.Append(sample(ts, 100)); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	got, err := s.Recent(now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("rows = %d, want 2", len(got))
	}
}
