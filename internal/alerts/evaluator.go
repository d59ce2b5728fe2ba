package alerts

import (
	"fmt"

	"netmon/internal/models"
)

// Evaluate compares a measurement against the thresholds and returns one
// event per violated metric. Checks run on the final, post-retry readings.
// Failure measurements never alert: -1 would trivially violate the floors.
func Evaluate(m models.Measurement, t models.Thresholds) []models.AlertEvent {
	if !m.Valid() {
		return nil
	}
	var events []models.AlertEvent
	if m.DownloadMbps < t.DownloadSpeed {
		events = append(events, models.AlertEvent{
			Metric:    "download",
			Value:     m.DownloadMbps,
			Threshold: t.DownloadSpeed,
			Direction: "below",
			Message:   fmt.Sprintf("Low download speed: %.2f Mbps (threshold: %.2f Mbps)", m.DownloadMbps, t.DownloadSpeed),
		})
	}
	if m.UploadMbps < t.UploadSpeed {
		events = append(events, models.AlertEvent{
			Metric:    "upload",
			Value:     m.UploadMbps,
			Threshold: t.UploadSpeed,
			Direction: "below",
			Message:   fmt.Sprintf("Low upload speed: %.2f Mbps (threshold: %.2f Mbps)", m.UploadMbps, t.UploadSpeed),
		})
	}
	if m.PingMs > t.Ping {
		events = append(events, models.AlertEvent{
			Metric:    "ping",
			Value:     m.PingMs,
			Threshold: t.Ping,
			Direction: "above",
			Message:   fmt.Sprintf("High ping: %.2f ms (threshold: %.2f ms)", m.PingMs, t.Ping),
		})
	}
	return events
}
