package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ayush/social-media-api/internal/models"
)

// UserStore handles user documents, including the follow lists embedded in
// them.
type UserStore struct {
	col   *mongo.Collection
	useTx bool
}

// NewUserStore returns a store over the users collection. With useTx set,
// follow and unfollow run their two writes inside one transaction, which
// requires a replica set.
func NewUserStore(db *mongo.Database, useTx bool) *UserStore {
	return &UserStore{col: db.Collection("users"), useTx: useTx}
}

// EnsureIndexes creates the unique constraints on username and email.
func (s *UserStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		uniqueIndex("username"),
		uniqueIndex("email"),
	})
	if err != nil {
		return fmt.Errorf("users indexes: %w", err)
	}
	return nil
}

func (s *UserStore) CreateUser(ctx context.Context, u *models.User) error {
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	if u.Followers == nil {
		u.Followers = []string{}
	}
	if u.Followings == nil {
		u.Followings = []string{}
	}

	res, err := s.col.InsertOne(ctx, u)
	if err != nil {
		return mongoErr("create user", "user", u.Username, err)
	}
	u.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (s *UserStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	oid, err := objectID("user", id)
	if err != nil {
		return nil, err
	}
	var u models.User
	if err := s.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&u); err != nil {
		return nil, mongoErr("get user", "user", id, err)
	}
	return &u, nil
}

func (s *UserStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.col.FindOne(ctx, bson.M{"email": email}).Decode(&u); err != nil {
		return nil, mongoErr("get user by email", "user", email, err)
	}
	return &u, nil
}

// UpdateUser applies the non-nil patch fields. The password in the patch
// must already be hashed.
func (s *UserStore) UpdateUser(ctx context.Context, id string, patch models.UserPatch) (*models.User, error) {
	oid, err := objectID("user", id)
	if err != nil {
		return nil, err
	}

	set := bson.M{"updatedAt": time.Now().UTC()}
	setIf(set, "username", patch.Username)
	setIf(set, "email", patch.Email)
	setIf(set, "password", patch.Password)
	setIf(set, "profilePicture", patch.ProfilePicture)
	setIf(set, "coverPicture", patch.CoverPicture)
	setIf(set, "desc", patch.Desc)
	setIf(set, "city", patch.City)
	setIf(set, "from", patch.From)
	if patch.Relationship != nil {
		set["relationship"] = *patch.Relationship
	}

	var u models.User
	err = s.col.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, afterUpdate()).Decode(&u)
	if err != nil {
		return nil, mongoErr("update user", "user", id, err)
	}
	return &u, nil
}

// DeleteUser removes the user document only. Posts and other users' follow
// lists are left untouched.
func (s *UserStore) DeleteUser(ctx context.Context, id string) error {
	oid, err := objectID("user", id)
	if err != nil {
		return err
	}
	res, err := s.col.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return mongoErr("delete user", "user", id, err)
	}
	if res.DeletedCount == 0 {
		return mongoErr("delete user", "user", id, mongo.ErrNoDocuments)
	}
	return nil
}

// AddFollower records actorID following targetID. The target's followers
// list is written first, then the actor's followings.
func (s *UserStore) AddFollower(ctx context.Context, targetID, actorID string) error {
	return s.edge(ctx, "$addToSet", targetID, actorID)
}

// RemoveFollower is the inverse of AddFollower, in the same write order.
func (s *UserStore) RemoveFollower(ctx context.Context, targetID, actorID string) error {
	return s.edge(ctx, "$pull", targetID, actorID)
}

func (s *UserStore) edge(ctx context.Context, op, targetID, actorID string) error {
	target, err := objectID("user", targetID)
	if err != nil {
		return err
	}
	actor, err := objectID("user", actorID)
	if err != nil {
		return err
	}

	write := func(ctx context.Context) error {
		now := time.Now().UTC()
		if _, err := s.col.UpdateOne(ctx, bson.M{"_id": target},
			bson.M{op: bson.M{"followers": actorID}, "$set": bson.M{"updatedAt": now}}); err != nil {
			return fmt.Errorf("update followers of %s: %w", targetID, err)
		}
		if _, err := s.col.UpdateOne(ctx, bson.M{"_id": actor},
			bson.M{op: bson.M{"followings": targetID}, "$set": bson.M{"updatedAt": now}}); err != nil {
			return fmt.Errorf("update followings of %s: %w", actorID, err)
		}
		return nil
	}

	if !s.useTx {
		return write(ctx)
	}

	sess, err := s.col.Database().Client().StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, write(sc)
	})
	return err
}

// FollowGraph returns every user with only the id and follow lists loaded.
func (s *UserStore) FollowGraph(ctx context.Context) ([]models.User, error) {
	opts := options.Find().SetProjection(bson.M{"followers": 1, "followings": 1})
	cur, err := s.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("follow graph: %w", err)
	}
	defer cur.Close(ctx)

	var users []models.User
	if err := cur.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("follow graph: %w", err)
	}
	return users, nil
}

// SetFollowings replaces a user's followings list with next, provided it
// still equals old. It reports false when the list moved on in the meantime.
func (s *UserStore) SetFollowings(ctx context.Context, id string, old, next []string) (bool, error) {
	oid, err := objectID("user", id)
	if err != nil {
		return false, err
	}
	if old == nil {
		old = []string{}
	}
	if next == nil {
		next = []string{}
	}
	res, err := s.col.UpdateOne(ctx, bson.M{"_id": oid, "followings": old},
		bson.M{"$set": bson.M{"followings": next, "updatedAt": time.Now().UTC()}})
	if err != nil {
		return false, fmt.Errorf("set followings of %s: %w", id, err)
	}
	return res.MatchedCount > 0, nil
}

func setIf(set bson.M, field string, v *string) {
	if v != nil {
		set[field] = *v
	}
}
