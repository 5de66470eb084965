package audit

import (
	"context"

	"github.com/h44z/vote-portal/internal/domain"
)

type DatabaseRepo interface {
	// SaveAuditEntry saves an audit entry to the database
	SaveAuditEntry(ctx context.Context, entry *domain.AuditEntry) error
}

type ManagerDatabaseRepo interface {
	// GetAllAuditEntries retrieves all audit entries from the database.
	// The entries are ordered by timestamp, with the newest entries first.
	GetAllAuditEntries(ctx context.Context) ([]domain.AuditEntry, error)
}

type EventBus interface {
	// Subscribe subscribes to a topic
	Subscribe(topic string, fn interface{}) error
}
