package shared

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureExecer struct {
	sql  string
	args []any
	err  error
}

func (c *captureExecer) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	c.sql = sql
	c.args = args
	return pgconn.NewCommandTag("INSERT 0 1"), c.err
}

func TestAuditLoggerRecord(t *testing.T) {
	db := &captureExecer{}
	at := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

	err := NewAuditLogger(db).Record(context.Background(), AuditEntry{
		ActorID: 4,
		Action:  AuditLoginSuccess,
		Subject: "a@a.com",
		At:      at,
	})
	require.NoError(t, err)
	assert.Contains(t, db.sql, "INSERT INTO audit_logs")
	require.Len(t, db.args, 5)
	assert.Equal(t, int64(4), *db.args[0].(*int64))
	assert.Equal(t, AuditLoginSuccess, db.args[1])
	assert.Equal(t, "a@a.com", db.args[2])
	assert.JSONEq(t, "null", string(db.args[3].([]byte)))
	assert.Equal(t, at, db.args[4])
}

func TestAuditLoggerUnknownActor(t *testing.T) {
	db := &captureExecer{}

	err := NewAuditLogger(db).Record(context.Background(), AuditEntry{
		Action:  AuditLoginFailure,
		Subject: "nobody@a.com",
		Meta:    map[string]any{"known_email": false},
	})
	require.NoError(t, err)
	assert.Nil(t, db.args[0].(*int64))
	assert.JSONEq(t, `{"known_email":false}`, string(db.args[3].([]byte)))
	assert.False(t, db.args[4].(time.Time).IsZero())
}

func TestAuditLoggerRejectsIncompleteEntries(t *testing.T) {
	assert.Error(t, NewAuditLogger(&captureExecer{}).Record(context.Background(), AuditEntry{Action: AuditLoginFailure}))

	var nilLogger *AuditLogger
	assert.Error(t, nilLogger.Record(context.Background(), AuditEntry{Action: "a", Subject: "b"}))

	cause := errors.New("relation does not exist")
	err := NewAuditLogger(&captureExecer{err: cause}).Record(context.Background(), AuditEntry{Action: "a", Subject: "b"})
	assert.ErrorIs(t, err, cause)
}

func TestStorageFailureMatchesBoth(t *testing.T) {
	cause := errors.New("timeout")
	err := StorageFailure("users: list", cause)
	assert.ErrorIs(t, err, ErrStorageFailure)
	assert.ErrorIs(t, err, cause)
	assert.NoError(t, StorageFailure("users: list", nil))
}

func TestClaimsContextRoundTrip(t *testing.T) {
	_, ok := ClaimsFromContext(context.Background())
	assert.False(t, ok)

	ctx := ContextWithClaims(context.Background(), Claims{UserID: 1, Email: "a@a.com"})
	claims, ok := ClaimsFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, Claims{UserID: 1, Email: "a@a.com"}, claims)
}
