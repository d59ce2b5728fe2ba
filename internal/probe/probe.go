package probe

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"netmon/internal/models"
)

// Rotated per probe so repeated runs don't present an identical client.
// Cosmetic, not load-bearing.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:89.0) Gecko/20100101 Firefox/89.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/14.1.1 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
}

const (
	// Readings below this are treated as implausible and retried once.
	implausibleMbps = 0.1
	// Pings outside (1, 1000) ms fall back to the server selection latency.
	minPlausiblePingMs = 1
	maxPlausiblePingMs = 1000

	retryPause = time.Second
)

// Client runs speed probes. Every failure is converted into the sentinel
// measurement; Probe never returns an error to its caller.
type Client struct {
	newTester TesterFactory
	timeout   time.Duration
	log       *slog.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration)
	rng   *rand.Rand
}

// NewClient builds a Client using factory for each session. timeout bounds
// every individual probe phase; zero disables the bound.
func NewClient(factory TesterFactory, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		newTester: factory,
		timeout:   timeout,
		log:       logger,
		now:       time.Now,
		sleep:     sleepCtx,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Probe runs one full measurement cycle.
func (c *Client) Probe(ctx context.Context) models.Measurement {
	m, err := c.run(ctx)
	if err != nil {
		c.log.Error("speed test failed", "err", err)
		return models.Failure(c.now())
	}
	c.log.Info("speed test completed",
		"download_mbps", m.DownloadMbps,
		"upload_mbps", m.UploadMbps,
		"ping_ms", m.PingMs,
		"server", m.ServerLocation,
	)
	return m
}

func (c *Client) run(ctx context.Context) (models.Measurement, error) {
	tester := c.newTester(userAgents[c.rng.Intn(len(userAgents))])

	endpoint, err := c.bestServer(ctx, tester)
	if err != nil {
		return models.Measurement{}, fmt.Errorf("select server: %w", err)
	}
	c.log.Info("selected server", "name", endpoint.Name, "country", endpoint.Country, "latency_ms", endpoint.LatencyMs)

	c.pause(ctx)
	download, err := c.transfer(ctx, "download", tester.Download)
	if err != nil {
		return models.Measurement{}, fmt.Errorf("download test: %w", err)
	}

	c.pause(ctx)
	upload, err := c.transfer(ctx, "upload", tester.Upload)
	if err != nil {
		return models.Measurement{}, fmt.Errorf("upload test: %w", err)
	}

	res, err := tester.Result(ctx)
	if err != nil {
		return models.Measurement{}, fmt.Errorf("read session result: %w", err)
	}
	ping := res.PingMs
	if ping < minPlausiblePingMs || ping > maxPlausiblePingMs {
		c.log.Warn("implausible ping, using server selection latency", "ping_ms", ping)
		ping = endpoint.LatencyMs
	}

	m := models.Measurement{
		Timestamp:      c.now(),
		DownloadMbps:   round2(download),
		UploadMbps:     round2(upload),
		PingMs:         round2(ping),
		ISP:            res.ISP,
		ServerLocation: fmt.Sprintf("%s, %s", res.ServerName, res.ServerCountry),
		ServerID:       res.ServerID,
	}
	if !m.Valid() {
		return models.Measurement{}, fmt.Errorf("invalid readings: download=%.2f upload=%.2f ping=%.2f",
			m.DownloadMbps, m.UploadMbps, m.PingMs)
	}
	return m, nil
}

func (c *Client) bestServer(ctx context.Context, t Tester) (Endpoint, error) {
	pctx, cancel := c.phaseCtx(ctx)
	defer cancel()
	return t.BestServer(pctx)
}

// transfer runs one sub-probe and retries it exactly once when the reading
// is implausibly low. A second implausible reading is accepted as-is.
func (c *Client) transfer(ctx context.Context, phase string, f func(context.Context) (float64, error)) (float64, error) {
	mbps, err := c.phase(ctx, f)
	if err != nil {
		return 0, err
	}
	if mbps < implausibleMbps {
		c.log.Warn("implausible reading, retrying once", "phase", phase, "mbps", mbps)
		c.sleep(ctx, retryPause)
		mbps, err = c.phase(ctx, f)
		if err != nil {
			return 0, err
		}
	}
	return mbps, nil
}

func (c *Client) phase(ctx context.Context, f func(context.Context) (float64, error)) (float64, error) {
	pctx, cancel := c.phaseCtx(ctx)
	defer cancel()
	bps, err := f(pctx)
	if err != nil {
		return 0, err
	}
	return bps / 1e6, nil
}

func (c *Client) phaseCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

// pause inserts a 0.5-1.5s randomized delay between sub-phases to avoid
// bursty request patterns.
func (c *Client) pause(ctx context.Context) {
	d := 500*time.Millisecond + time.Duration(c.rng.Int63n(int64(time.Second)))
	c.sleep(ctx, d)
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
