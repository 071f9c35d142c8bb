package auth

import (
	"context"
	"fmt"
	"strconv"

	"github.com/gatehouse/gatehouse/internal/shared"
)

// Repository defines persistence operations for the login flow.
type Repository interface {
	FindCredentialsByEmail(ctx context.Context, email string) (*Credentials, error)
}

// Service wraps the authentication business rules.
type Service struct {
	repo   Repository
	hasher *Hasher
	codec  *Codec
}

// NewService constructs a new Service.
func NewService(repo Repository, hasher *Hasher, codec *Codec) *Service {
	return &Service{repo: repo, hasher: hasher, codec: codec}
}

// Login validates email/password credentials and issues a session token
// carrying the account's current roles.
func (s *Service) Login(ctx context.Context, email, password string) (*TokenData, error) {
	creds, err := s.repo.FindCredentialsByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if !s.hasher.Verify(password, creds.Digest) {
		return nil, fmt.Errorf("%w: wrong credentials", shared.ErrUnauthenticated)
	}
	subject := strconv.FormatInt(creds.ID, 10)
	token, err := s.codec.Issue(subject, creds.Roles)
	if err != nil {
		return nil, err
	}
	return &TokenData{Token: token, SubjectID: subject}, nil
}
