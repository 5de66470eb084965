package voting

import (
	"context"

	"github.com/h44z/vote-portal/internal/domain"
)

type Gateway interface {
	// GetCandidates returns the full candidate list in backend order.
	GetCandidates(ctx context.Context) ([]domain.Candidate, error)
	// CastVote records a vote of the given user.
	CastVote(ctx context.Context, userId domain.UserId, candidateId domain.CandidateId) (domain.VoteOutcome, error)
}

type SessionSource interface {
	// Current returns the active session or nil.
	Current() *domain.Session
}

type EventBus interface {
	// Publish sends a message to the message bus.
	Publish(topic string, args ...any)
}
