package admin

import (
	"context"

	"github.com/h44z/vote-portal/internal/domain"
)

type Gateway interface {
	GetCandidates(ctx context.Context) ([]domain.Candidate, error)
	AddCandidate(ctx context.Context, form domain.CandidateForm) (*domain.Candidate, error)
	UpdateCandidate(ctx context.Context, id domain.CandidateId, form domain.CandidateForm) (*domain.Candidate, error)
	DeleteCandidate(ctx context.Context, id domain.CandidateId) (string, error)
}

type SessionSource interface {
	// Current returns the active session or nil.
	Current() *domain.Session
}

// Confirmer asks the user to confirm a destructive action.
type Confirmer interface {
	Confirm(prompt string) bool
}

// ConfirmFunc adapts a plain function to the Confirmer interface.
type ConfirmFunc func(prompt string) bool

func (f ConfirmFunc) Confirm(prompt string) bool {
	return f(prompt)
}

type EventBus interface {
	// Publish sends a message to the message bus.
	Publish(topic string, args ...any)
}
