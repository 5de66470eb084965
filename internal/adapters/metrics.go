package adapters

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strconv"
	"sync"
	"time"

	"github.com/go-pkgz/routegroup"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	evbus "github.com/vardius/message-bus"

	"github.com/h44z/vote-portal/internal"
	"github.com/h44z/vote-portal/internal/app"
	"github.com/h44z/vote-portal/internal/config"
	"github.com/h44z/vote-portal/internal/domain"
	"github.com/h44z/vote-portal/internal/respond"
)

// MetricsServer exposes prometheus metrics of the client and a health endpoint that mirrors the
// connectivity state of the voting backend.
type MetricsServer struct {
	*http.Server

	mux    sync.RWMutex
	status domain.BackendStatus

	requestsTotal     *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
	backendReachable  prometheus.Gauge
	votesTotal        *prometheus.CounterVec
	authFailuresTotal *prometheus.CounterVec
	loginsTotal       prometheus.Counter
	candidateOpsTotal *prometheus.CounterVec
}

// NewMetricsServer returns a new prometheus server
func NewMetricsServer(cfg *config.Config) *MetricsServer {
	reg := prometheus.NewRegistry()

	m := &MetricsServer{
		status: domain.BackendChecking,

		requestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "vote_portal_backend_requests_total",
				Help: "Requests sent to the voting backend.",
			}, []string{"method", "route", "code"},
		),
		requestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "vote_portal_backend_request_duration_seconds",
				Help:    "Duration of requests sent to the voting backend.",
				Buckets: prometheus.DefBuckets,
			}, []string{"method", "route"},
		),
		backendReachable: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "vote_portal_backend_up",
				Help: "Backend connectivity state (boolean: 1/0).",
			},
		),
		votesTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "vote_portal_votes_total",
				Help: "Vote attempts answered by the backend, by result.",
			}, []string{"result"},
		),
		authFailuresTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "vote_portal_auth_failures_total",
				Help: "Rejected logins and registrations.",
			}, []string{"action"},
		),
		loginsTotal: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "vote_portal_logins_total",
				Help: "Successful logins.",
			},
		),
		candidateOpsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "vote_portal_candidate_changes_total",
				Help: "Administrative candidate changes, by action.",
			}, []string{"action"},
		),
	}

	router := routegroup.New(http.NewServeMux())
	router.Use(recoverPanics)
	router.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	router.HandleFunc("GET /health", m.handleHealth)

	m.Server = &http.Server{
		Addr:              cfg.Metrics.ListeningAddress,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return m
}

// ConnectToMessageBus subscribes the metric updaters to the application events.
func (m *MetricsServer) ConnectToMessageBus(bus evbus.MessageBus) error {
	subscriptions := map[string]any{
		app.TopicBackendStatus:    m.UpdateBackendStatus,
		app.TopicSessionLogin:     m.handleLogin,
		app.TopicAuthFailed:       m.handleAuthFailure,
		app.TopicVoteCast:         m.handleVote,
		app.TopicCandidateChanged: m.handleCandidateChange,
	}
	for topic, fn := range subscriptions {
		if err := bus.Subscribe(topic, fn); err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", topic, err)
		}
	}

	return nil
}

// Run starts the metrics server and blocks until the context is done.
func (m *MetricsServer) Run(ctx context.Context) {
	go func() {
		if err := m.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics service exited", "address", m.Addr, "error", err)
		}
	}()

	slog.Debug("started metrics service", "address", m.Addr)

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := m.Shutdown(shutdownCtx); err != nil {
		slog.Error("metrics service shutdown failed", "address", m.Addr, "error", err)
	} else {
		slog.Debug("metrics service shut down gracefully", "address", m.Addr)
	}
}

// ObserveRequest records a finished backend request.
func (m *MetricsServer) ObserveRequest(method, route string, code int, duration time.Duration) {
	m.requestsTotal.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// UpdateBackendStatus records the connectivity state reported by the monitor.
func (m *MetricsServer) UpdateBackendStatus(status domain.BackendStatus) {
	m.mux.Lock()
	m.status = status
	m.mux.Unlock()

	if status == domain.BackendChecking {
		return // keep the last known value until the probe finished
	}
	m.backendReachable.Set(internal.BoolToFloat64(status.IsReachable()))
}

func (m *MetricsServer) handleLogin(_ domain.Session) {
	m.loginsTotal.Inc()
}

func (m *MetricsServer) handleAuthFailure(e app.AuthEvent) {
	m.authFailuresTotal.WithLabelValues(e.Action).Inc()
}

func (m *MetricsServer) handleVote(e app.VoteEvent) {
	m.votesTotal.WithLabelValues(string(e.Result)).Inc()
}

func (m *MetricsServer) handleCandidateChange(e app.CandidateEvent) {
	m.candidateOpsTotal.WithLabelValues(string(e.Action)).Inc()
}

func (m *MetricsServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	m.mux.RLock()
	status := m.status
	m.mux.RUnlock()

	code := http.StatusServiceUnavailable
	if status.IsReachable() {
		code = http.StatusOK
	}

	respond.JSON(w, code, map[string]string{"backend": string(status)})
}

// recoverPanics turns a panic inside a handler into an Internal Server Error response.
func recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				slog.Error("metrics handler panicked", "path", r.URL.Path, "error", err, "stack", string(debug.Stack()))
				respond.JSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
			}
		}()

		next.ServeHTTP(w, r)
	})
}
