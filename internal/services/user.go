package services

import (
	"context"

	"github.com/secretshare/webserver/internal/events"
	"github.com/secretshare/webserver/types"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByUsername(ctx context.Context, username string) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	Update(ctx context.Context, user types.User) (types.User, error)
	SetSecret(ctx context.Context, id int, secret string) error
	ListWithSecrets(ctx context.Context) ([]types.User, error)
	FindOrCreateByGoogleID(ctx context.Context, user types.User) (types.User, error)
	FindOrCreateByFacebookID(ctx context.Context, user types.User) (types.User, error)
}

// UserService encapsulates user use-cases.
type UserService struct {
	repo   UserRepository
	events *events.Publisher
}

func NewUserService(repo UserRepository, publisher *events.Publisher) *UserService {
	return &UserService{repo: repo, events: publisher}
}

func (s *UserService) GetByID(ctx context.Context, id int) (types.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *UserService) GetByUsername(ctx context.Context, username string) (types.User, error) {
	return s.repo.GetByUsername(ctx, username)
}

func (s *UserService) GetByEmail(ctx context.Context, email string) (types.User, error) {
	return s.repo.GetByEmail(ctx, email)
}

func (s *UserService) Create(ctx context.Context, user types.User) (types.User, error) {
	created, err := s.repo.Create(ctx, user)
	if err != nil {
		return types.User{}, err
	}
	s.events.Emit(ctx, events.Event{
		Type:     events.TypeUserRegistered,
		UserID:   created.ID,
		Username: created.Username,
	})
	return created, nil
}

func (s *UserService) Update(ctx context.Context, user types.User) (types.User, error) {
	return s.repo.Update(ctx, user)
}

// SubmitSecret stores the secret on the user's own record.
func (s *UserService) SubmitSecret(ctx context.Context, userID int, secret string) error {
	if err := s.repo.SetSecret(ctx, userID, secret); err != nil {
		return err
	}
	s.events.Emit(ctx, events.Event{
		Type:   events.TypeSecretSubmitted,
		UserID: userID,
	})
	return nil
}

// ListWithSecrets returns every user who has shared a secret.
func (s *UserService) ListWithSecrets(ctx context.Context) ([]types.User, error) {
	return s.repo.ListWithSecrets(ctx)
}

func (s *UserService) FindOrCreateByGoogleID(ctx context.Context, user types.User) (types.User, error) {
	return s.repo.FindOrCreateByGoogleID(ctx, user)
}

func (s *UserService) FindOrCreateByFacebookID(ctx context.Context, user types.User) (types.User, error) {
	return s.repo.FindOrCreateByFacebookID(ctx, user)
}

// RecordLogin emits an audit event for a successful authentication.
func (s *UserService) RecordLogin(ctx context.Context, user types.User, provider string) {
	s.events.Emit(ctx, events.Event{
		Type:     events.TypeUserLogin,
		UserID:   user.ID,
		Username: user.Username,
		Provider: provider,
	})
}
