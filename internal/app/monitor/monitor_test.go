package monitor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/h44z/vote-portal/internal/app"
	"github.com/h44z/vote-portal/internal/config"
	"github.com/h44z/vote-portal/internal/domain"
)

// --- Test mocks ---

type mockBus struct {
	mu       sync.Mutex
	statuses []domain.BackendStatus
}

func (b *mockBus) Publish(topic string, args ...any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if topic == app.TopicBackendStatus {
		b.statuses = append(b.statuses, args[0].(domain.BackendStatus))
	}
}

func (b *mockBus) published() []domain.BackendStatus {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]domain.BackendStatus(nil), b.statuses...)
}

// sequenceProber answers with the given results, the last result repeats.
type sequenceProber struct {
	mu      sync.Mutex
	results []bool
	calls   int
}

func (p *sequenceProber) Ping(_ context.Context) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	idx := min(p.calls, len(p.results)-1)
	p.calls++
	return p.results[idx]
}

func (p *sequenceProber) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func (p *sequenceProber) set(results ...bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.results = results
	p.calls = 0
}

func testConfig(interval time.Duration) *config.Config {
	cfg := &config.Config{}
	cfg.Monitor = config.MonitorConfig{Interval: interval, ProbeTimeout: time.Second}
	return cfg
}

// --- Tests ---

func TestMonitor_InitialState(t *testing.T) {
	m := NewMonitor(testConfig(time.Minute), &sequenceProber{results: []bool{true}}, &mockBus{})

	assert.Equal(t, domain.BackendChecking, m.Status())
	assert.True(t, m.Info().LastChecked.IsZero())
}

func TestMonitor_RecoversWithoutReload(t *testing.T) {
	prober := &sequenceProber{results: []bool{false, false, false, true}}
	bus := &mockBus{}
	m := NewMonitor(testConfig(time.Minute), prober, bus)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		assert.Equal(t, domain.BackendUnreachable, m.CheckNow(ctx))
		assert.Equal(t, domain.BackendUnreachable, m.Status())
		assert.Equal(t, i, m.Info().Failures)
	}

	assert.Equal(t, domain.BackendReachable, m.CheckNow(ctx))
	assert.Equal(t, 0, m.Info().Failures)
	assert.False(t, m.Info().LastChecked.IsZero())

	// only transitions are published
	assert.Equal(t, []domain.BackendStatus{domain.BackendUnreachable, domain.BackendReachable}, bus.published())
}

func TestMonitor_Retry(t *testing.T) {
	prober := &sequenceProber{results: []bool{false}}
	bus := &mockBus{}
	m := NewMonitor(testConfig(time.Minute), prober, bus)
	ctx := context.Background()

	require.Equal(t, domain.BackendUnreachable, m.CheckNow(ctx))

	prober.set(true)
	assert.Equal(t, domain.BackendReachable, m.Retry(ctx))
	assert.Equal(t, []domain.BackendStatus{
		domain.BackendUnreachable, domain.BackendChecking, domain.BackendReachable,
	}, bus.published())
}

func TestMonitor_StartPolls(t *testing.T) {
	prober := &sequenceProber{results: []bool{false, false, false, true}}
	bus := &mockBus{}
	m := NewMonitor(testConfig(10*time.Millisecond), prober, bus)

	m.Start(context.Background())
	m.Start(context.Background()) // second start is ignored
	defer m.Stop()

	require.Eventually(t, func() bool {
		return m.Status() == domain.BackendReachable
	}, 2*time.Second, 5*time.Millisecond)

	assert.GreaterOrEqual(t, prober.callCount(), 4)
	assert.Equal(t, []domain.BackendStatus{domain.BackendUnreachable, domain.BackendReachable}, bus.published())
}

func TestMonitor_Stop(t *testing.T) {
	prober := &sequenceProber{results: []bool{true}}
	m := NewMonitor(testConfig(5*time.Millisecond), prober, &mockBus{})

	m.Start(context.Background())
	require.Eventually(t, func() bool { return prober.callCount() > 0 }, time.Second, time.Millisecond)
	m.Stop()
	m.Stop() // stopping twice is harmless

	calls := prober.callCount()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, calls, prober.callCount())
}

func TestMonitor_StopsWithContext(t *testing.T) {
	prober := &sequenceProber{results: []bool{true}}
	m := NewMonitor(testConfig(5*time.Millisecond), prober, &mockBus{})

	ctx, cancel := context.WithCancel(context.Background())
	m.Start(ctx)
	require.Eventually(t, func() bool { return prober.callCount() > 0 }, time.Second, time.Millisecond)
	cancel()

	m.Stop() // returns once the polling goroutine has ended
	calls := prober.callCount()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, calls, prober.callCount())
}
