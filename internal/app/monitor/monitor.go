package monitor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/h44z/vote-portal/internal/app"
	"github.com/h44z/vote-portal/internal/config"
	"github.com/h44z/vote-portal/internal/domain"
)

type Prober interface {
	// Ping reports whether the backend answered the health probe.
	Ping(ctx context.Context) bool
}

type EventBus interface {
	// Publish sends a message to the message bus.
	Publish(topic string, args ...any)
}

// Info describes the last known connectivity state.
type Info struct {
	Status      domain.BackendStatus
	LastChecked time.Time // zero until the first probe finished
	Failures    int       // consecutive failed probes
}

// Monitor probes the backend periodically. Only the initial probe and an explicit Retry put the monitor
// into the checking state, recurring probes keep the last known status until they finish.
type Monitor struct {
	cfg    config.MonitorConfig
	prober Prober
	bus    EventBus
	now    func() time.Time

	mux    sync.RWMutex
	info   Info
	cancel context.CancelFunc
	done   chan struct{}
}

func NewMonitor(cfg *config.Config, prober Prober, bus EventBus) *Monitor {
	return &Monitor{
		cfg:    cfg.Monitor,
		prober: prober,
		bus:    bus,
		now:    time.Now,
		info:   Info{Status: domain.BackendChecking},
	}
}

// Start runs the first probe immediately and then polls at the configured interval until Stop is called or
// the context is done. Starting a running monitor has no effect.
func (m *Monitor) Start(ctx context.Context) {
	m.mux.Lock()
	if m.cancel != nil {
		m.mux.Unlock()
		return
	}
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})
	done := m.done
	m.mux.Unlock()

	go m.run(ctx, done)

	slog.Debug("started connectivity monitor", "interval", m.cfg.Interval)
}

func (m *Monitor) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	m.probe(ctx)

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return // monitor stopped
		case <-ticker.C:
			m.probe(ctx)
		}
	}
}

// Stop ends the polling and waits for a running probe to finish.
func (m *Monitor) Stop() {
	m.mux.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.mux.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done

	slog.Debug("stopped connectivity monitor")
}

// CheckNow probes the backend once without entering the checking state.
func (m *Monitor) CheckNow(ctx context.Context) domain.BackendStatus {
	return m.probe(ctx)
}

// Retry enters the checking state and probes immediately.
func (m *Monitor) Retry(ctx context.Context) domain.BackendStatus {
	m.setStatus(domain.BackendChecking, false)

	return m.probe(ctx)
}

func (m *Monitor) Status() domain.BackendStatus {
	m.mux.RLock()
	defer m.mux.RUnlock()

	return m.info.Status
}

func (m *Monitor) Info() Info {
	m.mux.RLock()
	defer m.mux.RUnlock()

	return m.info
}

func (m *Monitor) probe(ctx context.Context) domain.BackendStatus {
	probeCtx := ctx
	if m.cfg.ProbeTimeout > 0 {
		var cancel context.CancelFunc
		probeCtx, cancel = context.WithTimeout(ctx, m.cfg.ProbeTimeout)
		defer cancel()
	}

	status := domain.BackendUnreachable
	if m.prober.Ping(probeCtx) {
		status = domain.BackendReachable
	}

	if ctx.Err() != nil {
		// stopped while probing, the result is meaningless
		return m.Status()
	}

	m.setStatus(status, true)

	return status
}

func (m *Monitor) setStatus(status domain.BackendStatus, probed bool) {
	m.mux.Lock()
	changed := m.info.Status != status
	m.info.Status = status
	if probed {
		m.info.LastChecked = m.now()
		if status.IsReachable() {
			m.info.Failures = 0
		} else {
			m.info.Failures++
		}
	}
	failures := m.info.Failures
	m.mux.Unlock()

	if !changed {
		return
	}

	slog.Debug("backend status changed", "status", status, "failures", failures)
	m.bus.Publish(app.TopicBackendStatus, status)
}
