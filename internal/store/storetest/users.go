// Package storetest provides in-memory stand-ins for the Mongo stores, for
// use in service and handler tests.
package storetest

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ayush/social-media-api/internal/apperr"
	"github.com/ayush/social-media-api/internal/models"
)

// Users mimics store.UserStore, including its unique username and email
// constraints.
type Users struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func NewUsers() *Users {
	return &Users{users: make(map[string]*models.User)}
}

// Put stores u as-is, assigning an id when it has none. Tests use it to seed
// arbitrary, even inconsistent, state.
func (s *Users) Put(u *models.User) *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	if u.Followers == nil {
		u.Followers = []string{}
	}
	if u.Followings == nil {
		u.Followings = []string{}
	}
	s.users[u.ID.Hex()] = cloneUser(u)
	return cloneUser(u)
}

func (s *Users) CreateUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Username == u.Username || existing.Email == u.Email {
			return fmt.Errorf("create user: %w", apperr.ErrConflict)
		}
	}
	now := time.Now().UTC()
	u.ID = primitive.NewObjectID()
	u.CreatedAt, u.UpdatedAt = now, now
	if u.Followers == nil {
		u.Followers = []string{}
	}
	if u.Followings == nil {
		u.Followings = []string{}
	}
	s.users[u.ID.Hex()] = cloneUser(u)
	return nil
}

func (s *Users) GetUserByID(_ context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, notFound("user", id)
	}
	return cloneUser(u), nil
}

func (s *Users) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, notFound("user", email)
}

func (s *Users) UpdateUser(_ context.Context, id string, patch models.UserPatch) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, notFound("user", id)
	}
	for otherID, other := range s.users {
		if otherID == id {
			continue
		}
		if (patch.Username != nil && *patch.Username == other.Username) ||
			(patch.Email != nil && *patch.Email == other.Email) {
			return nil, fmt.Errorf("update user: %w", apperr.ErrConflict)
		}
	}

	apply(&u.Username, patch.Username)
	apply(&u.Email, patch.Email)
	apply(&u.Password, patch.Password)
	apply(&u.ProfilePicture, patch.ProfilePicture)
	apply(&u.CoverPicture, patch.CoverPicture)
	apply(&u.Desc, patch.Desc)
	apply(&u.City, patch.City)
	apply(&u.From, patch.From)
	if patch.Relationship != nil {
		u.Relationship = *patch.Relationship
	}
	u.UpdatedAt = time.Now().UTC()
	return cloneUser(u), nil
}

func (s *Users) DeleteUser(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return notFound("user", id)
	}
	delete(s.users, id)
	return nil
}

// AddFollower matches the Mongo behaviour: a missing document is silently
// skipped.
func (s *Users) AddFollower(_ context.Context, targetID, actorID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.users[targetID]; ok && !slices.Contains(t.Followers, actorID) {
		t.Followers = append(t.Followers, actorID)
	}
	if a, ok := s.users[actorID]; ok && !slices.Contains(a.Followings, targetID) {
		a.Followings = append(a.Followings, targetID)
	}
	return nil
}

func (s *Users) RemoveFollower(_ context.Context, targetID, actorID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.users[targetID]; ok {
		t.Followers = remove(t.Followers, actorID)
	}
	if a, ok := s.users[actorID]; ok {
		a.Followings = remove(a.Followings, targetID)
	}
	return nil
}

func (s *Users) FollowGraph(_ context.Context) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, models.User{
			ID:         u.ID,
			Followers:  slices.Clone(u.Followers),
			Followings: slices.Clone(u.Followings),
		})
	}
	return out, nil
}

func (s *Users) SetFollowings(_ context.Context, id string, old, next []string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok || !slices.Equal(u.Followings, old) {
		return false, nil
	}
	u.Followings = append([]string{}, next...)
	return true, nil
}

func cloneUser(u *models.User) *models.User {
	c := *u
	c.Followers = slices.Clone(u.Followers)
	c.Followings = slices.Clone(u.Followings)
	return &c
}

func apply(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func remove(list []string, id string) []string {
	return slices.DeleteFunc(list, func(s string) bool { return s == id })
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %q: %w", kind, id, apperr.ErrNotFound)
}
