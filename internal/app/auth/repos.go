package auth

import (
	"context"

	"github.com/h44z/vote-portal/internal/domain"
)

type Gateway interface {
	// Login checks the credentials against the backend.
	Login(ctx context.Context, creds domain.Credentials) (domain.LoginOutcome, error)
	// Register creates a new account on the backend.
	Register(ctx context.Context, creds domain.Credentials) (domain.RegisterOutcome, error)
}

type SessionManager interface {
	// Login creates and persists the session for the given identity.
	Login(ctx context.Context, identity domain.Identity) (*domain.Session, error)
}

type EventBus interface {
	// Publish sends a message to the message bus.
	Publish(topic string, args ...any)
}
