package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type SupportedDatabase string

const (
	DatabaseMySQL    SupportedDatabase = "mysql"
	DatabaseMsSQL    SupportedDatabase = "mssql"
	DatabasePostgres SupportedDatabase = "postgres"
	DatabaseSQLite   SupportedDatabase = "sqlite"
)

// AuditConfig contains the configuration of the local activity journal.
type AuditConfig struct {
	// Enabled turns on recording of login, vote and candidate events.
	Enabled bool `yaml:"enabled"`
	// Debug enables logging of all database statements
	Debug bool `yaml:"debug"`
	// SlowQueryThreshold enables logging of slow queries which take longer than the specified duration
	SlowQueryThreshold time.Duration `yaml:"slow_query_threshold"` // 0 means no logging of slow queries
	// Type is the database type. Supported: mysql, mssql, postgres, sqlite
	Type SupportedDatabase `yaml:"type"`
	// DSN is the database connection string.
	// For SQLite, it is the path to the database file.
	// For other databases, it is the connection string, see: https://gorm.io/docs/connecting_to_the_database.html
	DSN string `yaml:"dsn"`
}

func (a *AuditConfig) Sanitize() {
	a.Type = SupportedDatabase(strings.ToLower(strings.TrimSpace(string(a.Type))))
	if a.Type == "" {
		a.Type = DatabaseSQLite
	}
}

// Validate checks the audit configuration for errors.
func (a *AuditConfig) Validate() error {
	if !a.Enabled {
		return nil
	}

	switch a.Type {
	case DatabaseMySQL, DatabaseMsSQL, DatabasePostgres, DatabaseSQLite:
	default:
		return fmt.Errorf("unsupported database type %q", a.Type)
	}
	if a.DSN == "" {
		return errors.New("audit journal enabled but no dsn configured")
	}

	return nil
}
