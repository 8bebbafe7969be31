package models

import (
	"slices"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is a document in the MongoDB users collection. Followers and
// followings hold hex ids of other users.
type User struct {
	ID             primitive.ObjectID `json:"_id"                    bson:"_id,omitempty"`
	Username       string             `json:"username"               bson:"username"`
	Email          string             `json:"email"                  bson:"email"`
	Password       string             `json:"-"                      bson:"password"` // never serialize
	ProfilePicture string             `json:"profilePicture"         bson:"profilePicture"`
	CoverPicture   string             `json:"coverPicture"           bson:"coverPicture"`
	Followers      []string           `json:"followers"              bson:"followers"`
	Followings     []string           `json:"followings"             bson:"followings"`
	IsAdmin        bool               `json:"isAdmin"                bson:"isAdmin"`
	Desc           string             `json:"desc"                   bson:"desc"`
	City           string             `json:"city,omitempty"         bson:"city,omitempty"`
	From           string             `json:"from,omitempty"         bson:"from,omitempty"`
	Relationship   int                `json:"relationship,omitempty" bson:"relationship,omitempty"`
	CreatedAt      time.Time          `json:"createdAt"              bson:"createdAt"`
	UpdatedAt      time.Time          `json:"updatedAt"              bson:"updatedAt"`
}

// NewUser returns a user with empty follow lists so that array updates
// never hit a null field.
func NewUser(username, email, hashedPassword string) *User {
	return &User{
		Username:   username,
		Email:      email,
		Password:   hashedPassword,
		Followers:  []string{},
		Followings: []string{},
	}
}

// HexID returns the id as it appears in follow lists and post owners.
func (u *User) HexID() string {
	return u.ID.Hex()
}

// HasFollower reports whether id is in the user's followers.
func (u *User) HasFollower(id string) bool {
	return slices.Contains(u.Followers, id)
}

// Profile is the public view of a user returned by GET /users/{id}.
type Profile struct {
	ID             primitive.ObjectID `json:"_id"`
	Username       string             `json:"username"`
	Email          string             `json:"email"`
	ProfilePicture string             `json:"profilePicture"`
	CoverPicture   string             `json:"coverPicture"`
	Followers      []string           `json:"followers"`
	Followings     []string           `json:"followings"`
	IsAdmin        bool               `json:"isAdmin"`
	Desc           string             `json:"desc"`
	City           string             `json:"city,omitempty"`
	From           string             `json:"from,omitempty"`
	Relationship   int                `json:"relationship,omitempty"`
	CreatedAt      time.Time          `json:"createdAt"`
}

func (u *User) Profile() Profile {
	return Profile{
		ID:             u.ID,
		Username:       u.Username,
		Email:          u.Email,
		ProfilePicture: u.ProfilePicture,
		CoverPicture:   u.CoverPicture,
		Followers:      u.Followers,
		Followings:     u.Followings,
		IsAdmin:        u.IsAdmin,
		Desc:           u.Desc,
		City:           u.City,
		From:           u.From,
		Relationship:   u.Relationship,
		CreatedAt:      u.CreatedAt,
	}
}

// RegisterRequest is the JSON body for POST /api/auth/register.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=20"`
	Email    string `json:"email"    validate:"required,useremail"`
	Password string `json:"password" validate:"required"`
}

// LoginRequest is the JSON body for POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserPatch lists the profile fields a client may change. Anything else in
// the request body, isAdmin and the follow lists included, is ignored.
type UserPatch struct {
	Username       *string `json:"username,omitempty"       validate:"omitnil,min=3,max=20"`
	Email          *string `json:"email,omitempty"          validate:"omitnil,useremail"`
	Password       *string `json:"password,omitempty"       validate:"omitnil,min=1"`
	ProfilePicture *string `json:"profilePicture,omitempty" validate:"omitnil,max=50"`
	CoverPicture   *string `json:"coverPicture,omitempty"`
	Desc           *string `json:"desc,omitempty"`
	City           *string `json:"city,omitempty"           validate:"omitnil,max=50"`
	From           *string `json:"from,omitempty"           validate:"omitnil,max=50"`
	Relationship   *int    `json:"relationship,omitempty"   validate:"omitnil,oneof=1 2 3"`
}

// Empty reports whether the patch changes nothing.
func (p UserPatch) Empty() bool {
	return p == UserPatch{}
}

// UpdateUserRequest is the JSON body for PUT /api/users/{id}. UserID and
// IsAdmin describe the requester, not the target.
type UpdateUserRequest struct {
	UserID  string `json:"userId"`
	IsAdmin bool   `json:"isAdmin"`
	UserPatch
}

// ActorRequest carries the acting user for delete, follow and like calls.
type ActorRequest struct {
	UserID  string `json:"userId"`
	IsAdmin bool   `json:"isAdmin"`
}
