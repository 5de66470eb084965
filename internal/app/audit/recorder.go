package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/h44z/vote-portal/internal/app"
	"github.com/h44z/vote-portal/internal/config"
	"github.com/h44z/vote-portal/internal/domain"
)

// Recorder writes application events to the activity journal.
type Recorder struct {
	cfg *config.Config
	bus EventBus

	db DatabaseRepo
}

func NewAuditRecorder(cfg *config.Config, bus EventBus, db DatabaseRepo) (*Recorder, error) {
	r := &Recorder{
		cfg: cfg,
		bus: bus,

		db: db,
	}

	err := r.connectToMessageBus()
	if err != nil {
		return nil, fmt.Errorf("failed to setup message bus: %w", err)
	}

	return r, nil
}

func (r *Recorder) connectToMessageBus() error {
	if !r.cfg.Audit.Enabled {
		return nil // nothing to do
	}

	subscriptions := []struct {
		topic string
		fn    any
	}{
		{app.TopicSessionLogin, r.handleLoginEvent},
		{app.TopicSessionLogout, r.handleLogoutEvent},
		{app.TopicAuthFailed, r.handleAuthFailedEvent},
		{app.TopicUserRegistered, r.handleRegisteredEvent},
		{app.TopicVoteCast, r.handleVoteEvent},
		{app.TopicCandidateChanged, r.handleCandidateEvent},
		{app.TopicBackendStatus, r.handleBackendStatusEvent},
	}
	for _, s := range subscriptions {
		if err := r.bus.Subscribe(s.topic, s.fn); err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", s.topic, err)
		}
	}

	return nil
}

func (r *Recorder) handleLoginEvent(s domain.Session) {
	r.save("session", s.Username, domain.AuditSeverityLevelLow,
		fmt.Sprintf("user %s logged in with role %s", s.Username, s.Role))
}

func (r *Recorder) handleLogoutEvent(s domain.Session) {
	r.save("session", s.Username, domain.AuditSeverityLevelLow, fmt.Sprintf("user %s logged out", s.Username))
}

func (r *Recorder) handleAuthFailedEvent(e app.AuthEvent) {
	r.save("auth", e.Username, domain.AuditSeverityLevelMedium,
		fmt.Sprintf("%s of user %s failed: %s", e.Action, e.Username, e.Error))
}

func (r *Recorder) handleRegisteredEvent(e app.AuthEvent) {
	r.save("auth", e.Username, domain.AuditSeverityLevelLow, fmt.Sprintf("user %s registered", e.Username))
}

func (r *Recorder) handleVoteEvent(e app.VoteEvent) {
	severity := domain.AuditSeverityLevelLow
	msg := fmt.Sprintf("vote for candidate %s accepted", e.CandidateId)
	if e.Result == domain.VoteAlreadyCast {
		severity = domain.AuditSeverityLevelMedium
		msg = fmt.Sprintf("vote for candidate %s rejected, user %d already voted", e.CandidateId, e.UserId)
	}
	r.save("vote", e.Username, severity, msg)
}

func (r *Recorder) handleCandidateEvent(e app.CandidateEvent) {
	r.save("candidate", e.Actor, domain.AuditSeverityLevelHigh,
		fmt.Sprintf("candidate %s (%s) %s", e.Candidate.Id, e.Candidate.Name, e.Action))
}

func (r *Recorder) handleBackendStatusEvent(status domain.BackendStatus) {
	if status == domain.BackendChecking {
		return
	}

	severity := domain.AuditSeverityLevelLow
	if !status.IsReachable() {
		severity = domain.AuditSeverityLevelHigh
	}
	r.save("monitor", "", severity, fmt.Sprintf("backend is %s", status))
}

func (r *Recorder) save(origin, username string, severity domain.AuditSeverityLevel, msg string) {
	err := r.db.SaveAuditEntry(context.Background(), &domain.AuditEntry{
		CreatedAt: time.Now(),
		Severity:  severity,
		Origin:    origin,
		Username:  username,
		Message:   msg,
	})
	if err != nil {
		slog.Error("failed to create audit entry", "origin", origin, "error", err)
	}
}
