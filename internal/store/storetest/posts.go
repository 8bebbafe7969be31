package storetest

import (
	"context"
	"slices"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ayush/social-media-api/internal/models"
)

// Posts mimics store.PostStore. ListErr makes ListByUser fail for the given
// owner ids.
type Posts struct {
	mu      sync.Mutex
	posts   map[string]*models.Post
	order   []string
	ListErr map[string]error
}

func NewPosts() *Posts {
	return &Posts{posts: make(map[string]*models.Post), ListErr: make(map[string]error)}
}

func (s *Posts) CreatePost(_ context.Context, p *models.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	p.ID = primitive.NewObjectID()
	p.CreatedAt, p.UpdatedAt = now, now
	if p.Likes == nil {
		p.Likes = []string{}
	}
	if p.Comments == nil {
		p.Comments = []models.Comment{}
	}
	s.posts[p.ID.Hex()] = clonePost(p)
	s.order = append(s.order, p.ID.Hex())
	return nil
}

func (s *Posts) GetPostByID(_ context.Context, id string) (*models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[id]
	if !ok {
		return nil, notFound("post", id)
	}
	return clonePost(p), nil
}

func (s *Posts) UpdatePost(_ context.Context, id string, patch models.PostPatch) (*models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[id]
	if !ok {
		return nil, notFound("post", id)
	}
	apply(&p.Title, patch.Title)
	apply(&p.Description, patch.Description)
	p.UpdatedAt = time.Now().UTC()
	return clonePost(p), nil
}

func (s *Posts) DeletePost(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.posts[id]; !ok {
		return notFound("post", id)
	}
	delete(s.posts, id)
	s.order = remove(s.order, id)
	return nil
}

func (s *Posts) AddLike(_ context.Context, id, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[id]
	if !ok {
		return notFound("post", id)
	}
	if !slices.Contains(p.Likes, userID) {
		p.Likes = append(p.Likes, userID)
	}
	return nil
}

func (s *Posts) RemoveLike(_ context.Context, id, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[id]
	if !ok {
		return notFound("post", id)
	}
	p.Likes = remove(p.Likes, userID)
	return nil
}

func (s *Posts) AddComments(_ context.Context, id string, comments []models.Comment) (*models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[id]
	if !ok {
		return nil, notFound("post", id)
	}
	p.Comments = append(p.Comments, comments...)
	return clonePost(p), nil
}

func (s *Posts) ListByUser(_ context.Context, userID string) ([]models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ListErr[userID]; err != nil {
		return nil, err
	}
	out := []models.Post{}
	for _, id := range s.order {
		if p := s.posts[id]; p.UserID == userID {
			out = append(out, *clonePost(p))
		}
	}
	return out, nil
}

func clonePost(p *models.Post) *models.Post {
	c := *p
	c.Likes = slices.Clone(p.Likes)
	c.Comments = slices.Clone(p.Comments)
	return &c
}
