package monitor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand"
	"testing"
	"time"

	"netmon/internal/models"
)

type fakeProber struct {
	m     models.Measurement
	calls int
}

func (f *fakeProber) Probe(context.Context) models.Measurement {
	f.calls++
	return f.m
}

// panickyProber blows up on its first call and behaves afterwards.
type panickyProber struct {
	m     models.Measurement
	calls int
}

func (p *panickyProber) Probe(context.Context) models.Measurement {
	p.calls++
	if p.calls == 1 {
		panic("measurement capability blew up")
	}
	return p.m
}

type fakeAppender struct {
	err    error
	rows   []models.Measurement
	events *[]string
}

func (f *fakeAppender) Append(m models.Measurement) error {
	if f.events != nil {
		*f.events = append(*f.events, "append")
	}
	if f.err != nil {
		return f.err
	}
	f.rows = append(f.rows, m)
	return nil
}

type fakeSender struct {
	ok       bool
	messages []string
	events   *[]string
}

func (f *fakeSender) Send(_ context.Context, message string) bool {
	if f.events != nil {
		*f.events = append(*f.events, "alert")
	}
	f.messages = append(f.messages, message)
	return f.ok
}

func newTestLoop(prober Prober, appender *fakeAppender, sender *fakeSender, interval, jitter time.Duration) *Loop {
	l := New(prober, appender, sender,
		models.Thresholds{DownloadSpeed: 50, UploadSpeed: 10, Ping: 100},
		interval, jitter,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	l.rng = rand.New(rand.NewSource(1))
	return l
}

func valid(download, upload, ping float64) models.Measurement {
	return models.Measurement{
		Timestamp:      time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC),
		DownloadMbps:   download,
		UploadMbps:     upload,
		PingMs:         ping,
		ISP:            "Acme Broadband",
		ServerLocation: "Helsinki, Finland",
		ServerID:       4242,
	}
}

func TestCycleDispatchesAlertsBeforePersisting(t *testing.T) {
	var events []string
	prober := &fakeProber{m: valid(30.5, 15, 50)}
	appender := &fakeAppender{events: &events}
	sender := &fakeSender{ok: true, events: &events}
	l := newTestLoop(prober, appender, sender, 20*time.Minute, time.Minute)

	delay := l.cycle(context.Background())

	if len(events) != 2 || events[0] != "alert" || events[1] != "append" {
		t.Fatalf("events = %v, want alert dispatched before append", events)
	}
	if len(sender.messages) != 1 {
		t.Fatalf("alerts sent = %d, want 1", len(sender.messages))
	}
	if len(appender.rows) != 1 {
		t.Fatalf("rows appended = %d, want 1", len(appender.rows))
	}
	if delay < 19*time.Minute || delay > 21*time.Minute {
		t.Fatalf("delay = %v, want within interval +/- jitter", delay)
	}
}

func TestCycleInternalFailureBacksOffAndRecovers(t *testing.T) {
	prober := &panickyProber{m: valid(80, 20, 30)}
	appender := &fakeAppender{}
	sender := &fakeSender{ok: true}
	l := newTestLoop(prober, appender, sender, 20*time.Minute, time.Minute)

	if delay := l.cycle(context.Background()); delay != errorBackoff {
		t.Fatalf("delay = %v, want fixed backoff %v", delay, errorBackoff)
	}
	if len(appender.rows) != 0 {
		t.Fatalf("rows appended = %d after failed cycle, want 0", len(appender.rows))
	}

	// The failure stays confined to its own cycle.
	delay := l.cycle(context.Background())
	if prober.calls != 2 {
		t.Fatalf("probe calls = %d, want 2", prober.calls)
	}
	if len(appender.rows) != 1 {
		t.Fatalf("rows appended = %d, want 1", len(appender.rows))
	}
	if delay < 19*time.Minute || delay > 21*time.Minute {
		t.Fatalf("delay = %v, want within interval +/- jitter", delay)
	}
}

func TestCycleHealthyMeasurementSendsNothing(t *testing.T) {
	prober := &fakeProber{m: valid(80, 20, 30)}
	appender := &fakeAppender{}
	sender := &fakeSender{ok: true}
	l := newTestLoop(prober, appender, sender, 20*time.Minute, time.Minute)

	l.cycle(context.Background())

	if len(sender.messages) != 0 {
		t.Fatalf("alerts sent = %d, want 0", len(sender.messages))
	}
	if len(appender.rows) != 1 {
		t.Fatalf("rows appended = %d, want 1", len(appender.rows))
	}
}

func TestCycleInvalidMeasurementSkipsAlertsAndPersistence(t *testing.T) {
	prober := &fakeProber{m: models.Failure(time.Now())}
	appender := &fakeAppender{}
	sender := &fakeSender{ok: true}
	l := newTestLoop(prober, appender, sender, 20*time.Minute, time.Minute)

	delay := l.cycle(context.Background())

	if len(sender.messages) != 0 {
		t.Fatalf("alerts sent = %d, want 0", len(sender.messages))
	}
	if len(appender.rows) != 0 {
		t.Fatalf("rows appended = %d, want 0", len(appender.rows))
	}
	if delay != invalidCooldown {
		t.Fatalf("delay = %v, want cooldown %v", delay, invalidCooldown)
	}
}

func TestCycleAppendFailureStillSchedulesNormally(t *testing.T) {
	prober := &fakeProber{m: valid(80, 20, 30)}
	appender := &fakeAppender{err: errors.New("disk full")}
	sender := &fakeSender{ok: true}
	l := newTestLoop(prober, appender, sender, 20*time.Minute, time.Minute)

	delay := l.cycle(context.Background())

	if delay < 19*time.Minute || delay > 21*time.Minute {
		t.Fatalf("delay = %v, append failure must not change scheduling", delay)
	}
}

func TestNextDelayStaysWithinJitterBound(t *testing.T) {
	l := newTestLoop(&fakeProber{}, &fakeAppender{}, &fakeSender{}, 20*time.Minute, time.Minute)
	for i := 0; i < 1000; i++ {
		d := l.nextDelay()
		if d < 19*time.Minute || d > 21*time.Minute {
			t.Fatalf("delay = %v, want within [19m, 21m]", d)
		}
	}
}

func TestNextDelayClampsWhenJitterExceedsInterval(t *testing.T) {
	l := newTestLoop(&fakeProber{}, &fakeAppender{}, &fakeSender{}, time.Second, 10*time.Second)
	for i := 0; i < 1000; i++ {
		if d := l.nextDelay(); d < minDelay {
			t.Fatalf("delay = %v, want >= %v", d, minDelay)
		}
	}
}

func TestNextDelayWithoutJitter(t *testing.T) {
	l := newTestLoop(&fakeProber{}, &fakeAppender{}, &fakeSender{}, 20*time.Minute, 0)
	if d := l.nextDelay(); d != 20*time.Minute {
		t.Fatalf("delay = %v, want 20m", d)
	}
}

func TestRunStopsOnCancellation(t *testing.T) {
	prober := &fakeProber{m: valid(80, 20, 30)}
	appender := &fakeAppender{}
	l := newTestLoop(prober, appender, &fakeSender{ok: true}, time.Hour, 0)

	ctx, cancel := context.WithCancel(context.Background())
	slept := make(chan struct{})
	l.sleep = func(ctx context.Context, _ time.Duration) bool {
		close(slept)
		<-ctx.Done()
		return false
	}

	done := make(chan struct{})
	go func() {
		l.Run(ctx)
		close(done)
	}()

	<-slept
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancellation")
	}
	if prober.calls != 1 {
		t.Fatalf("probe calls = %d, want 1: no new probe after shutdown", prober.calls)
	}
}
