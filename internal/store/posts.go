package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/ayush/social-media-api/internal/models"
)

// PostStore handles post documents with their embedded likes and comments.
type PostStore struct {
	col *mongo.Collection
}

func NewPostStore(db *mongo.Database) *PostStore {
	return &PostStore{col: db.Collection("posts")}
}

// EnsureIndexes indexes the owner so timeline lookups stay cheap.
func (s *PostStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.col.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: bson.D{{Key: "userId", Value: 1}}})
	if err != nil {
		return fmt.Errorf("posts indexes: %w", err)
	}
	return nil
}

func (s *PostStore) CreatePost(ctx context.Context, p *models.Post) error {
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	if p.Likes == nil {
		p.Likes = []string{}
	}
	if p.Comments == nil {
		p.Comments = []models.Comment{}
	}

	res, err := s.col.InsertOne(ctx, p)
	if err != nil {
		return mongoErr("create post", "post", "", err)
	}
	p.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (s *PostStore) GetPostByID(ctx context.Context, id string) (*models.Post, error) {
	oid, err := objectID("post", id)
	if err != nil {
		return nil, err
	}
	var p models.Post
	if err := s.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&p); err != nil {
		return nil, mongoErr("get post", "post", id, err)
	}
	return &p, nil
}

func (s *PostStore) UpdatePost(ctx context.Context, id string, patch models.PostPatch) (*models.Post, error) {
	set := bson.M{"updatedAt": time.Now().UTC()}
	setIf(set, "title", patch.Title)
	setIf(set, "description", patch.Description)
	return s.findAndUpdate(ctx, "update post", id, bson.M{"$set": set})
}

func (s *PostStore) DeletePost(ctx context.Context, id string) error {
	oid, err := objectID("post", id)
	if err != nil {
		return err
	}
	res, err := s.col.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return mongoErr("delete post", "post", id, err)
	}
	if res.DeletedCount == 0 {
		return mongoErr("delete post", "post", id, mongo.ErrNoDocuments)
	}
	return nil
}

func (s *PostStore) AddLike(ctx context.Context, id, userID string) error {
	_, err := s.findAndUpdate(ctx, "like post", id, bson.M{
		"$addToSet": bson.M{"likes": userID},
		"$set":      bson.M{"updatedAt": time.Now().UTC()},
	})
	return err
}

func (s *PostStore) RemoveLike(ctx context.Context, id, userID string) error {
	_, err := s.findAndUpdate(ctx, "unlike post", id, bson.M{
		"$pull": bson.M{"likes": userID},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	})
	return err
}

// AddComments appends comments in the given order and returns the updated
// post.
func (s *PostStore) AddComments(ctx context.Context, id string, comments []models.Comment) (*models.Post, error) {
	return s.findAndUpdate(ctx, "comment post", id, bson.M{
		"$push": bson.M{"comments": bson.M{"$each": comments}},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	})
}

// ListByUser returns the posts owned by userID in storage order.
func (s *PostStore) ListByUser(ctx context.Context, userID string) ([]models.Post, error) {
	cur, err := s.col.Find(ctx, bson.M{"userId": userID})
	if err != nil {
		return nil, fmt.Errorf("list posts of %s: %w", userID, err)
	}
	defer cur.Close(ctx)

	posts := []models.Post{}
	if err := cur.All(ctx, &posts); err != nil {
		return nil, fmt.Errorf("list posts of %s: %w", userID, err)
	}
	return posts, nil
}

func (s *PostStore) findAndUpdate(ctx context.Context, op, id string, update bson.M) (*models.Post, error) {
	oid, err := objectID("post", id)
	if err != nil {
		return nil, err
	}
	var p models.Post
	if err := s.col.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, afterUpdate()).Decode(&p); err != nil {
		return nil, mongoErr(op, "post", id, err)
	}
	return &p, nil
}
