package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/ayush/social-media-api/internal/apperr"
	"github.com/ayush/social-media-api/internal/models"
)

// UserStore defines the interface for user persistence.
type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// Notifier accepts notifications without blocking.
type Notifier interface {
	Notify(n models.Notification)
}

// Service registers and authenticates users.
type Service struct {
	users    UserStore
	notifier Notifier
	cost     int
}

func NewService(users UserStore, notifier Notifier, bcryptCost int) *Service {
	if bcryptCost < bcrypt.MinCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{users: users, notifier: notifier, cost: bcryptCost}
}

// Register creates a user with a hashed password. The returned user has its
// password field cleared.
func (s *Service) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	if err := models.Validate(req); err != nil {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := models.NewUser(req.Username, req.Email, string(hashed))
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	user.Password = ""

	s.notifier.Notify(models.Notification{Kind: models.NotifyRegistered, UserID: user.HexID()})
	return user, nil
}

// Authenticate checks email and password. Unknown email and wrong password
// both yield apperr.ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, apperr.ErrInvalidCredentials
	}
	user.Password = ""

	s.notifier.Notify(models.Notification{Kind: models.NotifyLoggedIn, UserID: user.HexID()})
	return user, nil
}
