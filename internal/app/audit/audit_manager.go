package audit

import (
	"context"
	"fmt"

	"github.com/h44z/vote-portal/internal/domain"
)

// Manager gives read access to the local activity journal.
type Manager struct {
	db ManagerDatabaseRepo
}

func NewManager(db ManagerDatabaseRepo) *Manager {
	return &Manager{db: db}
}

// GetAll returns all journal entries, newest first.
func (m *Manager) GetAll(ctx context.Context) ([]domain.AuditEntry, error) {
	entries, err := m.db.GetAllAuditEntries(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit entries: %w", err)
	}

	return entries, nil
}
