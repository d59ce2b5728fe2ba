package monitor

import "github.com/prometheus/client_golang/prometheus"

var (
	cyclesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "netmon_probe_cycles_total",
		Help: "Total number of probe cycles by result",
	}, []string{"result"})
	alertsSentTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "netmon_alerts_sent_total",
		Help: "Total number of alerts delivered",
	})
	alertsDroppedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "netmon_alerts_dropped_total",
		Help: "Total number of alerts that could not be delivered",
	})
	appendErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "netmon_store_append_errors_total",
		Help: "Total number of failed measurement appends",
	})
	lastDownload = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "netmon_last_download_mbps",
		Help: "Download speed of the last valid measurement",
	})
	lastUpload = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "netmon_last_upload_mbps",
		Help: "Upload speed of the last valid measurement",
	})
	lastPing = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "netmon_last_ping_ms",
		Help: "Latency of the last valid measurement",
	})
)

func init() {
	prometheus.MustRegister(
		cyclesTotal,
		alertsSentTotal,
		alertsDroppedTotal,
		appendErrorsTotal,
		lastDownload,
		lastUpload,
		lastPing,
	)
}
