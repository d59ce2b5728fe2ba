package probe

import (
	"context"
	"fmt"
	"strconv"

	"github.com/showwin/speedtest-go/speedtest"
)

// Endpoint identifies the measurement server picked for a session.
type Endpoint struct {
	ID        int64
	Name      string
	Country   string
	LatencyMs float64
}

// SessionResult is the metadata read back after the transfer phases.
type SessionResult struct {
	PingMs        float64
	ISP           string
	ServerName    string
	ServerCountry string
	ServerID      int64
}

// Tester is one speed-test session against a single server. BestServer must
// be called before the transfer phases. Download and Upload report raw
// bits per second.
type Tester interface {
	BestServer(ctx context.Context) (Endpoint, error)
	Download(ctx context.Context) (float64, error)
	Upload(ctx context.Context) (float64, error)
	Result(ctx context.Context) (SessionResult, error)
}

// TesterFactory builds a fresh session presenting the given User-Agent.
type TesterFactory func(userAgent string) Tester

type speedtestTester struct {
	client *speedtest.Speedtest
	server *speedtest.Server
	isp    string
}

// NewSpeedtest returns a Tester backed by the speedtest.net network.
func NewSpeedtest(userAgent string) Tester {
	return &speedtestTester{
		client: speedtest.New(speedtest.WithUserConfig(&speedtest.UserConfig{
			UserAgent: userAgent,
		})),
	}
}

func (t *speedtestTester) BestServer(ctx context.Context) (Endpoint, error) {
	user, err := t.client.FetchUserInfoContext(ctx)
	if err != nil {
		return Endpoint{}, fmt.Errorf("fetch user info: %w", err)
	}
	t.isp = user.Isp

	servers, err := t.client.FetchServerListContext(ctx)
	if err != nil {
		return Endpoint{}, fmt.Errorf("fetch servers: %w", err)
	}
	targets, err := servers.FindServer(nil)
	if err != nil || len(targets) == 0 {
		return Endpoint{}, fmt.Errorf("no matching server: %w", err)
	}
	t.server = targets[0]

	if err := t.server.PingTestContext(ctx, nil); err != nil {
		return Endpoint{}, fmt.Errorf("ping test: %w", err)
	}
	return Endpoint{
		ID:        serverID(t.server),
		Name:      t.server.Name,
		Country:   t.server.Country,
		LatencyMs: float64(t.server.Latency.Microseconds()) / 1000,
	}, nil
}

func (t *speedtestTester) Download(ctx context.Context) (float64, error) {
	if t.server == nil {
		return 0, fmt.Errorf("no server selected")
	}
	if err := t.server.DownloadTestContext(ctx); err != nil {
		return 0, err
	}
	// DLSpeed is bytes per second.
	return float64(t.server.DLSpeed) * 8, nil
}

func (t *speedtestTester) Upload(ctx context.Context) (float64, error) {
	if t.server == nil {
		return 0, fmt.Errorf("no server selected")
	}
	if err := t.server.UploadTestContext(ctx); err != nil {
		return 0, err
	}
	return float64(t.server.ULSpeed) * 8, nil
}

func (t *speedtestTester) Result(ctx context.Context) (SessionResult, error) {
	if t.server == nil {
		return SessionResult{}, fmt.Errorf("no server selected")
	}
	return SessionResult{
		PingMs:        float64(t.server.Latency.Microseconds()) / 1000,
		ISP:           t.isp,
		ServerName:    t.server.Name,
		ServerCountry: t.server.Country,
		ServerID:      serverID(t.server),
	}, nil
}

func serverID(s *speedtest.Server) int64 {
	id, err := strconv.ParseInt(s.ID, 10, 64)
	if err != nil {
		return -1
	}
	return id
}
