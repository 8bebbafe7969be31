package users

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/ayush/social-media-api/internal/apperr"
	"github.com/ayush/social-media-api/internal/models"
)

// MaxPictureSize is the largest accepted upload.
const MaxPictureSize = 5 << 20

// PictureKind selects which of the two profile images an operation targets.
type PictureKind string

const (
	ProfilePicture PictureKind = "profile"
	CoverPicture   PictureKind = "cover"
)

var pictureExt = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
}

// ParsePictureKind maps a query value to a kind. Empty means profile.
func ParsePictureKind(s string) (PictureKind, error) {
	switch PictureKind(s) {
	case "", ProfilePicture:
		return ProfilePicture, nil
	case CoverPicture:
		return CoverPicture, nil
	}
	return "", apperr.Validation(fmt.Errorf("unknown picture kind %q", s))
}

// Upload describes an incoming picture.
type Upload struct {
	Kind        PictureKind
	Body        io.Reader
	Size        int64
	ContentType string
}

// SetPicture stores the upload and points the user's profile or cover
// picture at it. The previous object, if any, is removed afterwards.
func (s *Service) SetPicture(ctx context.Context, targetID, requesterID string, requesterIsAdmin bool, up Upload) (*models.User, error) {
	if err := authorize(targetID, requesterID, requesterIsAdmin); err != nil {
		return nil, err
	}
	if s.media == nil {
		return nil, ErrNoMediaStore
	}
	ext, ok := pictureExt[up.ContentType]
	if !ok {
		return nil, apperr.Validation(fmt.Errorf("content type %q not allowed, use JPEG, PNG or GIF", up.ContentType))
	}
	if up.Size <= 0 || up.Size > MaxPictureSize {
		return nil, apperr.Validation(fmt.Errorf("picture must be between 1 byte and %d bytes", MaxPictureSize))
	}

	user, err := s.users.GetUserByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	old := pictureKey(user, up.Kind)

	key := string(up.Kind) + "/" + uuid.New().String() + ext
	if err := s.media.Put(ctx, key, up.Body, up.Size, up.ContentType); err != nil {
		return nil, err
	}

	var patch models.UserPatch
	if up.Kind == CoverPicture {
		patch.CoverPicture = &key
	} else {
		patch.ProfilePicture = &key
	}
	updated, err := s.users.UpdateUser(ctx, targetID, patch)
	if err != nil {
		s.removeQuietly(ctx, key)
		return nil, err
	}

	if strings.HasPrefix(old, string(up.Kind)+"/") {
		s.removeQuietly(ctx, old)
	}
	return updated, nil
}

// OpenPicture returns the stored picture of the given kind. The caller
// closes the reader.
func (s *Service) OpenPicture(ctx context.Context, userID string, kind PictureKind) (io.ReadCloser, string, int64, error) {
	if s.media == nil {
		return nil, "", 0, ErrNoMediaStore
	}
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, "", 0, err
	}
	key := pictureKey(user, kind)
	if key == "" {
		return nil, "", 0, fmt.Errorf("%s picture of %s: %w", kind, userID, apperr.ErrNotFound)
	}
	return s.media.Open(ctx, key)
}

func (s *Service) removeQuietly(ctx context.Context, key string) {
	if err := s.media.Remove(ctx, key); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Failed to remove picture")
	}
}

func pictureKey(u *models.User, kind PictureKind) string {
	if kind == CoverPicture {
		return u.CoverPicture
	}
	return u.ProfilePicture
}
