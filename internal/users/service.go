package users

import (
	"context"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/bcrypt"

	"github.com/ayush/social-media-api/internal/apperr"
	"github.com/ayush/social-media-api/internal/models"
)

// UserStore defines the interface for user and follow-list persistence.
type UserStore interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	UpdateUser(ctx context.Context, id string, patch models.UserPatch) (*models.User, error)
	DeleteUser(ctx context.Context, id string) error
	AddFollower(ctx context.Context, targetID, actorID string) error
	RemoveFollower(ctx context.Context, targetID, actorID string) error
}

// MediaStore defines the interface for picture storage.
type MediaStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, string, int64, error)
	Remove(ctx context.Context, key string) error
}

// FollowOutcome tells a state change apart from a no-op.
type FollowOutcome int

const (
	Followed FollowOutcome = iota
	AlreadyFollowing
	Unfollowed
	NotFollowing
)

// FollowResult carries the outcome along with both users as they stand
// after the call.
type FollowResult struct {
	Outcome FollowOutcome
	Target  *models.User
	Actor   *models.User
}

// Service implements profile management and the social graph.
type Service struct {
	users UserStore
	media MediaStore
	cost  int
}

// ErrNoMediaStore is returned by the picture operations of a service built
// without a media store.
var ErrNoMediaStore = errors.New("picture storage is not configured")

var errNothingToUpdate = errors.New("no fields to update")

// NewService accepts a nil media store; picture operations then report
// ErrNoMediaStore.
func NewService(users UserStore, media MediaStore, bcryptCost int) *Service {
	if bcryptCost < bcrypt.MinCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{users: users, media: media, cost: bcryptCost}
}

// Get returns the public profile of a user.
func (s *Service) Get(ctx context.Context, id string) (*models.Profile, error) {
	u, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	p := u.Profile()
	return &p, nil
}

// UpdateProfile applies patch to targetID. Only the user themselves or an
// admin may do so.
func (s *Service) UpdateProfile(ctx context.Context, targetID, requesterID string, requesterIsAdmin bool, patch models.UserPatch) (*models.User, error) {
	if err := authorize(targetID, requesterID, requesterIsAdmin); err != nil {
		return nil, err
	}
	if patch.Empty() {
		return nil, apperr.Validation(errNothingToUpdate)
	}
	if err := models.Validate(patch); err != nil {
		return nil, err
	}

	if patch.Password != nil {
		hashed, err := bcrypt.GenerateFromPassword([]byte(*patch.Password), s.cost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		h := string(hashed)
		patch.Password = &h
	}

	return s.users.UpdateUser(ctx, targetID, patch)
}

// Delete removes the user document. Posts and follow lists that mention the
// user are kept.
func (s *Service) Delete(ctx context.Context, targetID, requesterID string, requesterIsAdmin bool) error {
	if err := authorize(targetID, requesterID, requesterIsAdmin); err != nil {
		return err
	}
	return s.users.DeleteUser(ctx, targetID)
}

// Follow makes actorID a follower of targetID.
func (s *Service) Follow(ctx context.Context, targetID, actorID string) (*FollowResult, error) {
	target, actor, err := s.pair(ctx, targetID, actorID)
	if err != nil {
		return nil, err
	}
	if target.HasFollower(actorID) {
		return &FollowResult{Outcome: AlreadyFollowing, Target: target, Actor: actor}, nil
	}

	if err := s.users.AddFollower(ctx, targetID, actorID); err != nil {
		return nil, err
	}
	target.Followers = append(target.Followers, actorID)
	actor.Followings = append(actor.Followings, targetID)
	return &FollowResult{Outcome: Followed, Target: target, Actor: actor}, nil
}

// Unfollow removes actorID from targetID's followers.
func (s *Service) Unfollow(ctx context.Context, targetID, actorID string) (*FollowResult, error) {
	target, actor, err := s.pair(ctx, targetID, actorID)
	if err != nil {
		return nil, err
	}
	if !target.HasFollower(actorID) {
		return &FollowResult{Outcome: NotFollowing, Target: target, Actor: actor}, nil
	}

	if err := s.users.RemoveFollower(ctx, targetID, actorID); err != nil {
		return nil, err
	}
	target.Followers = without(target.Followers, actorID)
	actor.Followings = without(actor.Followings, targetID)
	return &FollowResult{Outcome: Unfollowed, Target: target, Actor: actor}, nil
}

func (s *Service) pair(ctx context.Context, targetID, actorID string) (*models.User, *models.User, error) {
	if targetID == actorID {
		return nil, nil, apperr.ErrSelfReference
	}
	target, err := s.users.GetUserByID(ctx, targetID)
	if err != nil {
		return nil, nil, err
	}
	actor, err := s.users.GetUserByID(ctx, actorID)
	if err != nil {
		return nil, nil, err
	}
	return target, actor, nil
}

func authorize(targetID, requesterID string, requesterIsAdmin bool) error {
	if requesterIsAdmin || (requesterID != "" && requesterID == targetID) {
		return nil
	}
	return apperr.ErrUnauthorized
}

func without(list []string, id string) []string {
	out := make([]string, 0, len(list))
	for _, v := range list {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
