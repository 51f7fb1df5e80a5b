package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/userdir/userdir/internal/shared"
)

type stubRepo struct {
	creds map[string]Credential
	err   error
	calls int
}

func (s *stubRepo) FindByEmail(ctx context.Context, email string) (Credential, error) {
	s.calls++
	if s.err != nil {
		return Credential{}, s.err
	}
	cred, ok := s.creds[email]
	if !ok {
		return Credential{}, shared.ErrRecordNotFound
	}
	return cred, nil
}

type stubAudit struct {
	mu      sync.Mutex
	entries []shared.AuditEntry
	err     error
}

func (s *stubAudit) Record(ctx context.Context, entry shared.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return s.err
}

func newStubRepo() *stubRepo {
	return &stubRepo{creds: map[string]Credential{
		"user@test.local": {ID: 9, Email: "user@test.local", Password: "correctpass"},
	}}
}

func TestLoginIssuesVerifiableToken(t *testing.T) {
	tokens := NewTokenService([]byte("secret"), time.Hour)
	audit := &stubAudit{}
	svc := NewService(newStubRepo(), tokens, audit, nil)

	tok, err := svc.Login(context.Background(), "user@test.local", "correctpass")
	require.NoError(t, err)

	claims, err := tokens.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, int64(9), claims.UserID)
	assert.Equal(t, "user@test.local", claims.Email)

	require.Len(t, audit.entries, 1)
	assert.Equal(t, shared.AuditLoginSuccess, audit.entries[0].Action)
	assert.Equal(t, int64(9), audit.entries[0].ActorID)
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	audit := &stubAudit{}
	svc := NewService(newStubRepo(), NewTokenService([]byte("secret"), time.Hour), audit, nil)
	ctx := context.Background()

	_, unknown := svc.Login(ctx, "nobody@test.local", "correctpass")
	_, wrong := svc.Login(ctx, "user@test.local", "wrongpass")

	assert.ErrorIs(t, unknown, shared.ErrInvalidCredentials)
	assert.ErrorIs(t, wrong, shared.ErrInvalidCredentials)
	assert.Equal(t, unknown.Error(), wrong.Error())

	require.Len(t, audit.entries, 2)
	for _, e := range audit.entries {
		assert.Equal(t, shared.AuditLoginFailure, e.Action)
	}
	assert.Equal(t, int64(0), audit.entries[0].ActorID)
	assert.Equal(t, int64(9), audit.entries[1].ActorID)
}

func TestLoginPasswordMatchIsExact(t *testing.T) {
	svc := NewService(newStubRepo(), NewTokenService([]byte("secret"), time.Hour), nil, nil)

	for _, pw := range []string{"Correctpass", "correctpass ", "correctpas", ""} {
		_, err := svc.Login(context.Background(), "user@test.local", pw)
		assert.ErrorIs(t, err, shared.ErrInvalidCredentials, pw)
	}
}

func TestLoginStoreFailure(t *testing.T) {
	cause := errors.New("connection reset")
	repo := &stubRepo{err: cause}
	svc := NewService(repo, NewTokenService([]byte("secret"), time.Hour), nil, nil)

	_, err := svc.Login(context.Background(), "user@test.local", "correctpass")
	assert.ErrorIs(t, err, shared.ErrStorageFailure)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestLoginAuditFailureDoesNotBlockLogin(t *testing.T) {
	audit := &stubAudit{err: errors.New("audit table missing")}
	svc := NewService(newStubRepo(), NewTokenService([]byte("secret"), time.Hour), audit, nil)

	tok, err := svc.Login(context.Background(), "user@test.local", "correctpass")
	require.NoError(t, err)
	assert.NotEmpty(t, tok)
}

func TestLoginAlwaysReadsStore(t *testing.T) {
	repo := newStubRepo()
	svc := NewService(repo, NewTokenService([]byte("secret"), time.Hour), nil, nil)

	for i := 0; i < 3; i++ {
		_, err := svc.Login(context.Background(), "user@test.local", "correctpass")
		require.NoError(t, err)
	}
	assert.Equal(t, 3, repo.calls)
}
