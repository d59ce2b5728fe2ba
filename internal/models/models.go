package models

import "time"

// Measurement is the outcome of one probe cycle. Either all numeric fields
// are positive, or the record is a failure sentinel (-1 everywhere, "Error"
// strings). A measurement is never partially valid.
type Measurement struct {
	Timestamp      time.Time `json:"timestamp"`
	DownloadMbps   float64   `json:"download"`
	UploadMbps     float64   `json:"upload"`
	PingMs         float64   `json:"ping"`
	ISP            string    `json:"isp"`
	ServerLocation string    `json:"server_location"`
	ServerID       int64     `json:"server_id"`
}

// Valid reports whether the measurement carries usable readings.
func (m Measurement) Valid() bool {
	return m.DownloadMbps > 0 && m.UploadMbps > 0 && m.PingMs > 0
}

// Failure returns the sentinel measurement recorded when a probe fails.
func Failure(ts time.Time) Measurement {
	return Measurement{
		Timestamp:      ts,
		DownloadMbps:   -1,
		UploadMbps:     -1,
		PingMs:         -1,
		ISP:            "Error",
		ServerLocation: "Error",
		ServerID:       -1,
	}
}

// Thresholds are the alerting bounds. DownloadSpeed and UploadSpeed are
// floors in Mbps, Ping is a ceiling in ms. PacketLoss is read from the
// config but not evaluated yet.
type Thresholds struct {
	DownloadSpeed float64
	UploadSpeed   float64
	Ping          float64
	PacketLoss    float64
}

// AlertEvent is one threshold violation. Events are consumed by the
// dispatcher in the same cycle they are produced and never persisted.
type AlertEvent struct {
	Metric    string
	Value     float64
	Threshold float64
	Direction string
	Message   string
}
