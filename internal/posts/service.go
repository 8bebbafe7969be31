package posts

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/ayush/social-media-api/internal/apperr"
	"github.com/ayush/social-media-api/internal/models"
)

// PostStore defines the interface for post persistence.
type PostStore interface {
	CreatePost(ctx context.Context, p *models.Post) error
	GetPostByID(ctx context.Context, id string) (*models.Post, error)
	UpdatePost(ctx context.Context, id string, patch models.PostPatch) (*models.Post, error)
	DeletePost(ctx context.Context, id string) error
	AddLike(ctx context.Context, id, userID string) error
	RemoveLike(ctx context.Context, id, userID string) error
	AddComments(ctx context.Context, id string, comments []models.Comment) (*models.Post, error)
	ListByUser(ctx context.Context, userID string) ([]models.Post, error)
}

// UserReader resolves the owner of a timeline.
type UserReader interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// Notifier accepts notifications without blocking.
type Notifier interface {
	Notify(n models.Notification)
}

// LikeOutcome reports which way a like toggle went.
type LikeOutcome int

const (
	Liked LikeOutcome = iota
	Disliked
)

// Service implements posts, likes, comments and the timeline.
type Service struct {
	posts    PostStore
	users    UserReader
	notifier Notifier
}

func NewService(posts PostStore, users UserReader, notifier Notifier) *Service {
	return &Service{posts: posts, users: users, notifier: notifier}
}

func (s *Service) Create(ctx context.Context, req models.CreatePostRequest) (*models.Post, error) {
	if err := models.Validate(req); err != nil {
		return nil, err
	}

	post := &models.Post{
		Title:       req.Title,
		Description: req.Description,
		UserID:      req.UserID,
		Likes:       []string{},
		Comments:    []models.Comment{},
	}
	if err := s.posts.CreatePost(ctx, post); err != nil {
		return nil, err
	}

	s.notify(models.NotifyPostCreated, post.UserID, post.Title)
	return post, nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.Post, error) {
	return s.posts.GetPostByID(ctx, id)
}

// Update applies patch if requesterID owns the post.
func (s *Service) Update(ctx context.Context, postID, requesterID string, patch models.PostPatch) (*models.Post, error) {
	post, err := s.owned(ctx, postID, requesterID)
	if err != nil {
		return nil, err
	}
	if patch.Empty() {
		return nil, apperr.Validation(fmt.Errorf("no fields to update"))
	}
	if err := models.Validate(patch); err != nil {
		return nil, err
	}

	updated, err := s.posts.UpdatePost(ctx, postID, patch)
	if err != nil {
		return nil, err
	}

	s.notify(models.NotifyPostUpdated, post.UserID, post.Title)
	return updated, nil
}

// Delete removes the post if requesterID owns it.
func (s *Service) Delete(ctx context.Context, postID, requesterID string) error {
	post, err := s.owned(ctx, postID, requesterID)
	if err != nil {
		return err
	}
	if err := s.posts.DeletePost(ctx, postID); err != nil {
		return err
	}

	s.notify(models.NotifyPostDeleted, post.UserID, post.Title)
	return nil
}

// ToggleLike adds actorID to the post's likes, or removes it if present.
// Every call flips the state.
func (s *Service) ToggleLike(ctx context.Context, postID, actorID string) (LikeOutcome, error) {
	if actorID == "" {
		return 0, apperr.Validation(fmt.Errorf("userId is required"))
	}
	post, err := s.posts.GetPostByID(ctx, postID)
	if err != nil {
		return 0, err
	}

	if post.LikedBy(actorID) {
		if err := s.posts.RemoveLike(ctx, postID, actorID); err != nil {
			return 0, err
		}
		return Disliked, nil
	}
	if err := s.posts.AddLike(ctx, postID, actorID); err != nil {
		return 0, err
	}
	return Liked, nil
}

// AddComments appends comments to the post as given.
func (s *Service) AddComments(ctx context.Context, postID string, comments []models.Comment) (*models.Post, error) {
	if len(comments) == 0 {
		return nil, apperr.Validation(fmt.Errorf("comments are required"))
	}
	return s.posts.AddComments(ctx, postID, comments)
}

// Timeline returns the user's own posts followed by the posts of everyone
// they follow. Followed users are queried concurrently and their posts are
// appended in completion order.
func (s *Service) Timeline(ctx context.Context, userID string) ([]models.Post, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	own, err := s.posts.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("posts of %s: %w", userID, err)
	}

	var (
		mu     sync.Mutex
		others []models.Post
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, id := range user.Followings {
		id := id
		g.Go(func() error {
			posts, err := s.posts.ListByUser(gctx, id)
			if err != nil {
				return fmt.Errorf("posts of %s: %w", id, err)
			}
			mu.Lock()
			others = append(others, posts...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return append(own, others...), nil
}

// owned loads the post and checks that requesterID is its owner.
func (s *Service) owned(ctx context.Context, postID, requesterID string) (*models.Post, error) {
	post, err := s.posts.GetPostByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.UserID != requesterID {
		return nil, apperr.ErrForbidden
	}
	return post, nil
}

func (s *Service) notify(kind models.NotificationKind, userID, title string) {
	s.notifier.Notify(models.Notification{Kind: kind, UserID: userID, PostTitle: title})
}
