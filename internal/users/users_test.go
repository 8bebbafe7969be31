package users

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/ayush/social-media-api/internal/apperr"
	"github.com/ayush/social-media-api/internal/models"
	"github.com/ayush/social-media-api/internal/store/storetest"
)

func strPtr(s string) *string { return &s }

type fixture struct {
	svc   *Service
	users *storetest.Users
	media *memMedia
	alice *models.User
	bob   *models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	users := storetest.NewUsers()
	media := &memMedia{objects: map[string][]byte{}, types: map[string]string{}}
	return &fixture{
		svc:   NewService(users, media, bcrypt.MinCost),
		users: users,
		media: media,
		alice: users.Put(models.NewUser("alice", "alice@example.com", "hash")),
		bob:   users.Put(models.NewUser("bob", "bob@example.com", "hash")),
	}
}

func (f *fixture) reload(t *testing.T, id string) *models.User {
	t.Helper()
	u, err := f.users.GetUserByID(context.Background(), id)
	require.NoError(t, err)
	return u
}

type memMedia struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func (m *memMedia) Put(_ context.Context, key string, r io.Reader, _ int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	m.types[key] = contentType
	return nil
}

func (m *memMedia) Open(_ context.Context, key string) (io.ReadCloser, string, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, "", 0, apperr.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), m.types[key], int64(len(data)), nil
}

func (m *memMedia) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func TestFollowSelfIsRejected(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Follow(context.Background(), f.alice.HexID(), f.alice.HexID())
	assert.ErrorIs(t, err, apperr.ErrSelfReference)
	_, err = f.svc.Unfollow(context.Background(), f.alice.HexID(), f.alice.HexID())
	assert.ErrorIs(t, err, apperr.ErrSelfReference)

	alice := f.reload(t, f.alice.HexID())
	assert.Empty(t, alice.Followers)
	assert.Empty(t, alice.Followings)
}

func TestFollowIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.Follow(ctx, f.bob.HexID(), f.alice.HexID())
	require.NoError(t, err)
	assert.Equal(t, Followed, res.Outcome)
	assert.Equal(t, []string{f.alice.HexID()}, res.Target.Followers)
	assert.Equal(t, []string{f.bob.HexID()}, res.Actor.Followings)

	res, err = f.svc.Follow(ctx, f.bob.HexID(), f.alice.HexID())
	require.NoError(t, err)
	assert.Equal(t, AlreadyFollowing, res.Outcome)

	assert.Equal(t, []string{f.alice.HexID()}, f.reload(t, f.bob.HexID()).Followers)
	assert.Equal(t, []string{f.bob.HexID()}, f.reload(t, f.alice.HexID()).Followings)
}

func TestUnfollow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.Unfollow(ctx, f.bob.HexID(), f.alice.HexID())
	require.NoError(t, err)
	assert.Equal(t, NotFollowing, res.Outcome)

	_, err = f.svc.Follow(ctx, f.bob.HexID(), f.alice.HexID())
	require.NoError(t, err)
	res, err = f.svc.Unfollow(ctx, f.bob.HexID(), f.alice.HexID())
	require.NoError(t, err)
	assert.Equal(t, Unfollowed, res.Outcome)
	assert.Empty(t, res.Target.Followers)

	assert.Empty(t, f.reload(t, f.bob.HexID()).Followers)
	assert.Empty(t, f.reload(t, f.alice.HexID()).Followings)
}

func TestFollowUnknownUser(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Follow(context.Background(), "000000000000000000000000", f.alice.HexID())
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = f.svc.Follow(context.Background(), f.alice.HexID(), "000000000000000000000000")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Empty(t, f.reload(t, f.alice.HexID()).Followers)
}

func TestUpdateProfileRequiresSelfOrAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.UpdateProfile(ctx, f.alice.HexID(), f.bob.HexID(), false, models.UserPatch{City: strPtr("Paris")})
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	assert.Empty(t, f.reload(t, f.alice.HexID()).City)

	u, err := f.svc.UpdateProfile(ctx, f.alice.HexID(), f.bob.HexID(), true, models.UserPatch{City: strPtr("Paris")})
	require.NoError(t, err)
	assert.Equal(t, "Paris", u.City)

	u, err = f.svc.UpdateProfile(ctx, f.alice.HexID(), f.alice.HexID(), false, models.UserPatch{Desc: strPtr("hi")})
	require.NoError(t, err)
	assert.Equal(t, "hi", u.Desc)
	assert.Equal(t, "Paris", u.City)
}

func TestUpdateProfileHashesPassword(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.UpdateProfile(context.Background(), f.alice.HexID(), f.alice.HexID(), false, models.UserPatch{Password: strPtr("n3w")})
	require.NoError(t, err)

	stored := f.reload(t, f.alice.HexID())
	assert.NotEqual(t, "n3w", stored.Password)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("n3w")))
}

func TestUpdateProfileRejectsEmptyPatch(t *testing.T) {
	f := newFixture(t)
	before := f.reload(t, f.alice.HexID())

	_, err := f.svc.UpdateProfile(context.Background(), f.alice.HexID(), f.alice.HexID(), false, models.UserPatch{})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, before.UpdatedAt, f.reload(t, f.alice.HexID()).UpdatedAt)

	_, err = f.svc.UpdateProfile(context.Background(), f.alice.HexID(), f.bob.HexID(), false, models.UserPatch{})
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestUpdateProfileValidates(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.UpdateProfile(context.Background(), f.alice.HexID(), f.alice.HexID(), false, models.UserPatch{Username: strPtr("x")})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestDeleteDoesNotCascade(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Follow(ctx, f.bob.HexID(), f.alice.HexID())
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.Delete(ctx, f.alice.HexID(), f.bob.HexID(), false), apperr.ErrUnauthorized)
	require.NoError(t, f.svc.Delete(ctx, f.alice.HexID(), f.alice.HexID(), false))

	_, err = f.users.GetUserByID(ctx, f.alice.HexID())
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Equal(t, []string{f.alice.HexID()}, f.reload(t, f.bob.HexID()).Followers)

	assert.ErrorIs(t, f.svc.Delete(ctx, f.alice.HexID(), f.alice.HexID(), false), apperr.ErrNotFound)
}

func TestReconcilerRepairsFollowings(t *testing.T) {
	users := storetest.NewUsers()
	a := users.Put(models.NewUser("alice", "alice@example.com", "h"))
	b := users.Put(models.NewUser("bob", "bob@example.com", "h"))
	c := users.Put(models.NewUser("carol", "carol@example.com", "h"))

	// a follows b but the second write never happened; c follows a user
	// that no longer exists and claims to follow itself.
	b.Followers = []string{a.HexID()}
	users.Put(b)
	c.Followings = []string{"000000000000000000000000", c.HexID()}
	c.Followers = []string{c.HexID()}
	users.Put(c)

	r := NewReconciler(users)
	n, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	ctx := context.Background()
	got, _ := users.GetUserByID(ctx, a.HexID())
	assert.Equal(t, []string{b.HexID()}, got.Followings)
	got, _ = users.GetUserByID(ctx, c.HexID())
	assert.Equal(t, []string{"000000000000000000000000"}, got.Followings)

	n, err = r.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestReconcilerKeepsFollowingsOfDeletedUsers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bob := f.bob.HexID()

	_, err := f.svc.Follow(ctx, bob, f.alice.HexID())
	require.NoError(t, err)
	require.NoError(t, f.svc.Delete(ctx, bob, bob, false))

	n, err := NewReconciler(f.users).Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, []string{bob}, f.reload(t, f.alice.HexID()).Followings)
}

// followDuringRead lets a follow commit between the graph read and the
// repair writes.
type followDuringRead struct {
	*storetest.Users
	target, actor string
}

func (g followDuringRead) FollowGraph(ctx context.Context) ([]models.User, error) {
	graph, err := g.Users.FollowGraph(ctx)
	if err != nil {
		return nil, err
	}
	return graph, g.Users.AddFollower(ctx, g.target, g.actor)
}

func TestReconcilerSkipsFollowingsChangedDuringRun(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, bob := f.alice.HexID(), f.bob.HexID()
	carol := f.users.Put(models.NewUser("carol", "carol@example.com", "h")).HexID()

	// alice -> bob is missing its followings side; alice -> carol lands
	// while the run is in progress.
	f.bob.Followers = []string{alice}
	f.users.Put(f.bob)

	n, err := NewReconciler(followDuringRead{Users: f.users, target: carol, actor: alice}).Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, []string{carol}, f.reload(t, alice).Followings)
	assert.Equal(t, []string{alice}, f.reload(t, carol).Followers)

	n, err = NewReconciler(f.users).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{carol, bob}, f.reload(t, alice).Followings)
	assert.Equal(t, []string{alice}, f.reload(t, carol).Followers)
}

func TestSetAndOpenPicture(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	up := Upload{Kind: ProfilePicture, Body: strings.NewReader("png-bytes"), Size: 9, ContentType: "image/png"}
	u, err := f.svc.SetPicture(ctx, f.alice.HexID(), f.alice.HexID(), false, up)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(u.ProfilePicture, "profile/"))
	assert.True(t, strings.HasSuffix(u.ProfilePicture, ".png"))
	assert.LessOrEqual(t, len(u.ProfilePicture), 50)
	first := u.ProfilePicture

	body, contentType, size, err := f.svc.OpenPicture(ctx, f.alice.HexID(), ProfilePicture)
	require.NoError(t, err)
	data, _ := io.ReadAll(body)
	body.Close()
	assert.Equal(t, "png-bytes", string(data))
	assert.Equal(t, "image/png", contentType)
	assert.EqualValues(t, 9, size)

	up.Body = strings.NewReader("second")
	up.Size = 6
	u, err = f.svc.SetPicture(ctx, f.alice.HexID(), f.alice.HexID(), false, up)
	require.NoError(t, err)
	assert.NotEqual(t, first, u.ProfilePicture)
	assert.NotContains(t, f.media.objects, first)

	_, _, _, err = f.svc.OpenPicture(ctx, f.alice.HexID(), CoverPicture)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestSetPictureRejects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.SetPicture(ctx, f.alice.HexID(), f.bob.HexID(), false,
		Upload{Kind: CoverPicture, Body: strings.NewReader("x"), Size: 1, ContentType: "image/png"})
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	_, err = f.svc.SetPicture(ctx, f.alice.HexID(), f.alice.HexID(), false,
		Upload{Kind: CoverPicture, Body: strings.NewReader("x"), Size: 1, ContentType: "application/pdf"})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.svc.SetPicture(ctx, f.alice.HexID(), f.alice.HexID(), false,
		Upload{Kind: CoverPicture, Body: strings.NewReader("x"), Size: MaxPictureSize + 1, ContentType: "image/gif"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Empty(t, f.media.objects)

	_, err = ParsePictureKind("banner")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func newRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Route("/api/users/{id}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Put("/", h.Update)
		r.Delete("/", h.Delete)
		r.Put("/follow", h.Follow)
		r.Put("/unfollow", h.Unfollow)
		r.Put("/picture", h.UploadPicture)
		r.Get("/picture", h.Picture)
	})
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]json.RawMessage) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out map[string]json.RawMessage
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return rec, out
}

func TestHandlerStatuses(t *testing.T) {
	f := newFixture(t)
	router := newRouter(NewHandler(f.svc))
	alice, bob := f.alice.HexID(), f.bob.HexID()

	rec, body := do(t, router, http.MethodGet, "/api/users/"+alice, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, body, "password")
	assert.NotContains(t, body, "updatedAt")

	rec, _ = do(t, router, http.MethodGet, "/api/users/000000000000000000000000", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = do(t, router, http.MethodPut, "/api/users/"+alice, `{"userId":"`+bob+`","city":"Rome"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = do(t, router, http.MethodPut, "/api/users/"+alice, `{"userId":"`+alice+`","city":"Rome","isAdmin":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, body, "user")
	assert.False(t, f.reload(t, alice).IsAdmin)

	rec, _ = do(t, router, http.MethodPut, "/api/users/"+alice, `{"userId":"`+alice+`","username":"bob"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, _ = do(t, router, http.MethodPut, "/api/users/"+alice, `{"userId":"`+alice+`","isAdmin":true}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, router, http.MethodPut, "/api/users/"+alice+"/follow", `{"userId":"`+alice+`"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = do(t, router, http.MethodPut, "/api/users/"+bob+"/follow", `{"userId":"`+alice+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, body, "currentUser")

	rec, body = do(t, router, http.MethodPut, "/api/users/"+bob+"/follow", `{"userId":"`+alice+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `"User is already following this user"`, string(body["message"]))

	rec, body = do(t, router, http.MethodPut, "/api/users/"+bob+"/unfollow", `{"userId":"`+alice+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `"User unfollowed successfully"`, string(body["message"]))

	rec, _ = do(t, router, http.MethodDelete, "/api/users/"+bob, `{"userId":"`+alice+`"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, router, http.MethodDelete, "/api/users/"+bob, `{"userId":"`+alice+`","isAdmin":true}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = do(t, router, http.MethodGet, "/api/users/"+alice+"/picture?kind=cover", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUploadPictureHandler(t *testing.T) {
	f := newFixture(t)
	router := newRouter(NewHandler(f.svc))
	alice := f.alice.HexID()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("userId", alice))
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", `form-data; name="image"; filename="me.png"`)
	hdr.Set("Content-Type", "image/png")
	part, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write([]byte("png-bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPut, "/api/users/"+alice+"/picture?kind=cover", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, strings.HasPrefix(f.reload(t, alice).CoverPicture, "cover/"))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/users/"+alice+"/picture?kind=cover", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, "png-bytes", rec.Body.String())
}

func TestServiceWithoutMedia(t *testing.T) {
	users := storetest.NewUsers()
	u := users.Put(models.NewUser("alice", "alice@example.com", "h"))
	svc := NewService(users, nil, bcrypt.MinCost)

	_, err := svc.SetPicture(context.Background(), u.HexID(), u.HexID(), false,
		Upload{Kind: ProfilePicture, Body: strings.NewReader("x"), Size: 1, ContentType: "image/png"})
	assert.ErrorIs(t, err, ErrNoMediaStore)
	assert.NotErrorIs(t, err, apperr.ErrNotFound)

	_, _, _, err = svc.OpenPicture(context.Background(), u.HexID(), CoverPicture)
	assert.ErrorIs(t, err, ErrNoMediaStore)

	router := newRouter(NewHandler(svc))
	rec, body := do(t, router, http.MethodGet, "/api/users/"+u.HexID()+"/picture", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `"Picture storage is not configured"`, string(body["message"]))

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("userId", u.HexID()))
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", `form-data; name="image"; filename="me.png"`)
	hdr.Set("Content-Type", "image/png")
	part, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write([]byte("png-bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPut, "/api/users/"+u.HexID()+"/picture", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	up := httptest.NewRecorder()
	router.ServeHTTP(up, req)
	assert.Equal(t, http.StatusServiceUnavailable, up.Code)
}
