package models

import (
	"bytes"
	"encoding/json"
	"slices"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Comment is a single entry of a post's comment list.
type Comment struct {
	UserID string `json:"userId" bson:"userId"`
	Text   string `json:"text"   bson:"text"`
}

// Post is a document in the MongoDB posts collection.
type Post struct {
	ID          primitive.ObjectID `json:"_id"         bson:"_id,omitempty"`
	Title       string             `json:"title"       bson:"title"`
	Description string             `json:"description" bson:"description"`
	UserID      string             `json:"userId"      bson:"userId"`
	Likes       []string           `json:"likes"       bson:"likes"`
	Comments    []Comment          `json:"comments"    bson:"comments"`
	CreatedAt   time.Time          `json:"createdAt"   bson:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt"   bson:"updatedAt"`
}

func (p *Post) HexID() string {
	return p.ID.Hex()
}

// LikedBy reports whether userID is in the post's likes.
func (p *Post) LikedBy(userID string) bool {
	return slices.Contains(p.Likes, userID)
}

// CreatePostRequest is the JSON body for POST /api/posts.
type CreatePostRequest struct {
	Title       string `json:"title"       validate:"required"`
	Description string `json:"description" validate:"required"`
	UserID      string `json:"userId"      validate:"required"`
}

// PostPatch lists the post fields an owner may change. The owner itself is
// not patchable.
type PostPatch struct {
	Title       *string `json:"title,omitempty"       validate:"omitnil,min=1"`
	Description *string `json:"description,omitempty" validate:"omitnil,min=1"`
}

func (p PostPatch) Empty() bool {
	return p == PostPatch{}
}

// UpdatePostRequest is the JSON body for PUT /api/posts/{id}.
type UpdatePostRequest struct {
	UserID string `json:"userId"`
	PostPatch
}

// CommentList accepts either a single comment object or an array of them.
type CommentList []Comment

func (c *CommentList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var one Comment
		if err := json.Unmarshal(data, &one); err != nil {
			return err
		}
		*c = CommentList{one}
		return nil
	}
	var many []Comment
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*c = many
	return nil
}

// CommentsRequest is the JSON body for PUT /api/posts/{id}/comments.
type CommentsRequest struct {
	Comments CommentList `json:"comments"`
}

// TimelineRequest is the JSON body for GET /api/posts/timeline.
type TimelineRequest struct {
	UserID string `json:"userId"`
}
