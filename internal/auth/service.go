package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"io"
	"log/slog"

	"github.com/userdir/userdir/internal/shared"
)

// Credential is the subset of a user record needed to authenticate.
type Credential struct {
	ID       int64
	Email    string
	Password string
}

// Repository looks credentials up in the authoritative store. Unknown emails
// are reported with shared.ErrRecordNotFound.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (Credential, error)
}

// AuditRecorder persists login audit entries.
type AuditRecorder interface {
	Record(ctx context.Context, entry shared.AuditEntry) error
}

// Service wraps authentication business rules. It never consults the cache.
type Service struct {
	repo   Repository
	tokens *TokenService
	audit  AuditRecorder
	logger *slog.Logger
}

// NewService constructs a new Service. audit and logger may be nil.
func NewService(repo Repository, tokens *TokenService, audit AuditRecorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{repo: repo, tokens: tokens, audit: audit, logger: logger}
}

// Login validates email/password credentials and issues a bearer token.
// Unknown email and wrong password fail identically.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	cred, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, shared.ErrRecordNotFound) {
			s.recordFailure(ctx, email, 0)
			return "", shared.ErrInvalidCredentials
		}
		return "", shared.StorageFailure("auth: find credential", err)
	}
	if subtle.ConstantTimeCompare([]byte(cred.Password), []byte(password)) != 1 {
		s.recordFailure(ctx, email, cred.ID)
		return "", shared.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(shared.Claims{UserID: cred.ID, Email: cred.Email})
	if err != nil {
		return "", err
	}
	s.logger.Info("login succeeded", slog.Int64("user_id", cred.ID), slog.String("email", cred.Email))
	s.record(ctx, shared.AuditEntry{ActorID: cred.ID, Action: shared.AuditLoginSuccess, Subject: cred.Email})
	return token, nil
}

func (s *Service) recordFailure(ctx context.Context, email string, userID int64) {
	s.logger.Warn("login failed", slog.String("email", email), slog.Int64("user_id", userID))
	s.record(ctx, shared.AuditEntry{
		ActorID: userID,
		Action:  shared.AuditLoginFailure,
		Subject: email,
		Meta:    map[string]any{"known_email": userID > 0},
	})
}

// record writes to the audit trail. A failed write never changes the login
// outcome.
func (s *Service) record(ctx context.Context, entry shared.AuditEntry) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		s.logger.Error("audit login", slog.String("action", entry.Action), slog.Any("error", err))
	}
}
