package shared

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// Audit actions emitted by the service.
const (
	AuditLoginSuccess = "auth.login.success"
	AuditLoginFailure = "auth.login.failure"
)

// AuditEntry is a row in audit_logs.
type AuditEntry struct {
	// ActorID is zero when the actor could not be resolved, e.g. unknown email.
	ActorID int64
	Action  string
	Subject string
	Meta    map[string]any
	At      time.Time
}

// Execer is the subset of pgxpool.Pool used by AuditLogger.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// AuditLogger writes entries into audit_logs.
type AuditLogger struct {
	db Execer
}

// NewAuditLogger returns a new AuditLogger.
func NewAuditLogger(db Execer) *AuditLogger {
	return &AuditLogger{db: db}
}

// Record persists the entry.
func (l *AuditLogger) Record(ctx context.Context, entry AuditEntry) error {
	if l == nil || l.db == nil {
		return errors.New("audit logger not initialised")
	}
	if entry.Action == "" || entry.Subject == "" {
		return errors.New("audit entry requires action and subject")
	}
	meta, err := json.Marshal(entry.Meta)
	if err != nil {
		return err
	}
	at := entry.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	var actor *int64
	if entry.ActorID > 0 {
		actor = &entry.ActorID
	}
	_, err = l.db.Exec(ctx,
		`INSERT INTO audit_logs (actor_id, action, subject, meta, occurred_at) VALUES ($1, $2, $3, $4, $5)`,
		actor, entry.Action, entry.Subject, meta, at)
	return err
}
