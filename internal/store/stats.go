package store

import (
	"math"
	"sort"
	"time"

	"netmon/internal/models"
)

// Summary is a basic statistics snapshot over a time window. Failure rows
// are excluded.
type Summary struct {
	Count int       `json:"count"`
	From  time.Time `json:"from"`
	To    time.Time `json:"to"`

	AvgDownloadMbps float64 `json:"avg_download_mbps"`
	MinDownloadMbps float64 `json:"min_download_mbps"`
	MaxDownloadMbps float64 `json:"max_download_mbps"`

	AvgUploadMbps float64 `json:"avg_upload_mbps"`
	MinUploadMbps float64 `json:"min_upload_mbps"`
	MaxUploadMbps float64 `json:"max_upload_mbps"`

	AvgPingMs float64 `json:"avg_ping_ms"`
	MinPingMs float64 `json:"min_ping_ms"`
	MaxPingMs float64 `json:"max_ping_ms"`
	P95PingMs float64 `json:"p95_ping_ms"`
}

// Summarize computes summary statistics for valid measurements in a time
// window.
func Summarize(items []models.Measurement, since time.Time) Summary {
	filtered := make([]models.Measurement, 0, len(items))
	for _, m := range items {
		if m.Valid() && !m.Timestamp.Before(since) {
			filtered = append(filtered, m)
		}
	}
	if len(filtered) == 0 {
		return Summary{Count: 0}
	}

	pings := make([]float64, 0, len(filtered))
	var sumDown, sumUp, sumPing float64
	minDown, maxDown := math.MaxFloat64, 0.0
	minUp, maxUp := math.MaxFloat64, 0.0
	minPing, maxPing := math.MaxFloat64, 0.0
	from := filtered[0].Timestamp
	to := filtered[0].Timestamp

	for _, m := range filtered {
		sumDown += m.DownloadMbps
		sumUp += m.UploadMbps
		sumPing += m.PingMs
		pings = append(pings, m.PingMs)
		minDown = math.Min(minDown, m.DownloadMbps)
		maxDown = math.Max(maxDown, m.DownloadMbps)
		minUp = math.Min(minUp, m.UploadMbps)
		maxUp = math.Max(maxUp, m.UploadMbps)
		minPing = math.Min(minPing, m.PingMs)
		maxPing = math.Max(maxPing, m.PingMs)
		if m.Timestamp.Before(from) {
			from = m.Timestamp
		}
		if m.Timestamp.After(to) {
			to = m.Timestamp
		}
	}

	sort.Float64s(pings)
	count := float64(len(filtered))

	return Summary{
		Count:           len(filtered),
		From:            from,
		To:              to,
		AvgDownloadMbps: sumDown / count,
		MinDownloadMbps: minDown,
		MaxDownloadMbps: maxDown,
		AvgUploadMbps:   sumUp / count,
		MinUploadMbps:   minUp,
		MaxUploadMbps:   maxUp,
		AvgPingMs:       sumPing / count,
		MinPingMs:       minPing,
		MaxPingMs:       maxPing,
		P95PingMs:       percentile(pings, 0.95),
	}
}

func percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	if p <= 0 {
		return values[0]
	}
	if p >= 1 {
		return values[len(values)-1]
	}
	idx := int(math.Ceil(p*float64(len(values)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(values) {
		idx = len(values) - 1
	}
	return values[idx]
}
