package monitor

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"netmon/internal/alerts"
	"netmon/internal/models"
)

const (
	// Delay before retrying after an invalid measurement.
	invalidCooldown = 5 * time.Minute
	// Delay after an internal cycle failure.
	errorBackoff = 60 * time.Second
	// Floor for the jittered delay when jitter_range >= test_interval.
	minDelay = time.Second
)

type Prober interface {
	Probe(ctx context.Context) models.Measurement
}

type Appender interface {
	Append(m models.Measurement) error
}

type Sender interface {
	Send(ctx context.Context, message string) bool
}

// Loop drives the probe/evaluate/alert/persist cycle forever. One cycle
// runs to completion at a time; a failure in one cycle never reaches the
// next.
type Loop struct {
	probe      Prober
	store      Appender
	dispatch   Sender
	thresholds models.Thresholds
	interval   time.Duration
	jitter     time.Duration
	log        *slog.Logger

	sleep func(ctx context.Context, d time.Duration) bool
	rng   *rand.Rand
}

func New(probe Prober, store Appender, dispatch Sender, thresholds models.Thresholds, interval, jitter time.Duration, logger *slog.Logger) *Loop {
	return &Loop{
		probe:      probe,
		store:      store,
		dispatch:   dispatch,
		thresholds: thresholds,
		interval:   interval,
		jitter:     jitter,
		log:        logger,
		sleep:      waitCtx,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Run cycles until the context is cancelled. Cancellation interrupts an
// in-progress sleep and halts before the next probe starts.
func (l *Loop) Run(ctx context.Context) {
	l.log.Info("network monitoring started", "interval", l.interval, "jitter", l.jitter)
	for {
		if ctx.Err() != nil {
			l.log.Info("network monitoring stopped")
			return
		}
		delay := l.cycle(ctx)
		l.log.Info("waiting for next test", "delay", delay)
		if !l.sleep(ctx, delay) {
			l.log.Info("network monitoring stopped")
			return
		}
	}
}

// cycle runs one probe iteration and returns the delay before the next.
// It is the last line of defense: a panic anywhere in the cycle is logged
// and answered with a fixed backoff.
func (l *Loop) cycle(ctx context.Context) (delay time.Duration) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error("cycle failed", "panic", r)
			cyclesTotal.WithLabelValues("error").Inc()
			delay = errorBackoff
		}
	}()

	m := l.probe.Probe(ctx)
	if !m.Valid() {
		cyclesTotal.WithLabelValues("failed").Inc()
		l.log.Warn("invalid measurement, retrying after cooldown", "cooldown", invalidCooldown)
		return invalidCooldown
	}

	for _, ev := range alerts.Evaluate(m, l.thresholds) {
		if l.dispatch.Send(ctx, ev.Message) {
			alertsSentTotal.Inc()
		} else {
			alertsDroppedTotal.Inc()
		}
	}

	if err := l.store.Append(m); err != nil {
		appendErrorsTotal.Inc()
		l.log.Error("append measurement", "err", err)
	}

	cyclesTotal.WithLabelValues("ok").Inc()
	lastDownload.Set(m.DownloadMbps)
	lastUpload.Set(m.UploadMbps)
	lastPing.Set(m.PingMs)
	return l.nextDelay()
}

// nextDelay perturbs the nominal interval by a uniform jitter in
// [-jitter, +jitter], clamped to a one-second floor.
func (l *Loop) nextDelay() time.Duration {
	d := l.interval
	if l.jitter > 0 {
		d += time.Duration(l.rng.Int63n(int64(2*l.jitter)+1)) - l.jitter
	}
	if d < minDelay {
		d = minDelay
	}
	return d
}

// waitCtx sleeps for d, reporting false when the context ends the wait
// early.
func waitCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
