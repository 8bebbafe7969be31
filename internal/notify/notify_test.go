package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayush/social-media-api/internal/models"
	"github.com/ayush/social-media-api/internal/store/storetest"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []Message
	err  error
}

func (s *fakeSender) Send(_ context.Context, m Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, m)
	return nil
}

func (s *fakeSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

type fakeRecorder struct {
	mu   sync.Mutex
	recs []models.Delivery
}

func (r *fakeRecorder) Record(_ context.Context, d models.Delivery) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recs = append(r.recs, d)
	return nil
}

func (r *fakeRecorder) all() []models.Delivery {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Delivery(nil), r.recs...)
}

type chanQueue struct {
	ch chan models.Notification
}

func (q *chanQueue) Push(_ context.Context, n models.Notification) error {
	q.ch <- n
	return nil
}

func (q *chanQueue) Pop(ctx context.Context) (*models.Notification, error) {
	select {
	case n := <-q.ch:
		return &n, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(10 * time.Millisecond):
		return nil, nil
	}
}

func seedUser(t *testing.T) (*storetest.Users, *models.User) {
	t.Helper()
	users := storetest.NewUsers()
	u := users.Put(models.NewUser("alice", "alice@example.com", "hash"))
	return users, u
}

func TestNotifyDoesNotBlockWhenBufferFull(t *testing.T) {
	users, u := seedUser(t)
	d := NewDispatcher(users, NewRenderer("SocialMedia", "https://example.com/"), &fakeSender{}, Options{Buffer: 1})

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			d.Notify(models.Notification{Kind: models.NotifyLoggedIn, UserID: u.HexID()})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Notify blocked with no workers running")
	}
}

func TestDispatcherDeliversAndRecords(t *testing.T) {
	users, u := seedUser(t)
	sender := &fakeSender{}
	rec := &fakeRecorder{}
	d := NewDispatcher(users, NewRenderer("SocialMedia", "https://example.com/"), sender, Options{Recorder: rec, Workers: 2})

	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)
	d.Notify(models.Notification{Kind: models.NotifyPostCreated, UserID: u.HexID(), PostTitle: "Hello"})

	require.Eventually(t, func() bool { return len(rec.all()) == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	d.Wait()

	got := rec.all()[0]
	assert.Equal(t, models.DeliverySent, got.Status)
	assert.Equal(t, "alice@example.com", got.Recipient)
	assert.Equal(t, "New Post Created", got.Subject)
	assert.NotEmpty(t, got.ID)

	require.Equal(t, 1, sender.count())
	assert.Contains(t, sender.sent[0].Text, "Hello")
}

func TestDispatcherSwallowsSendFailure(t *testing.T) {
	users, u := seedUser(t)
	rec := &fakeRecorder{}
	d := NewDispatcher(users, NewRenderer("SocialMedia", "https://example.com/"),
		&fakeSender{err: errors.New("smtp down")}, Options{Recorder: rec})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)
	d.Notify(models.Notification{Kind: models.NotifyRegistered, UserID: u.HexID()})

	require.Eventually(t, func() bool { return len(rec.all()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, models.DeliveryFailed, rec.all()[0].Status)
	assert.Equal(t, "smtp down", rec.all()[0].Error)
}

func TestDispatcherSkipsUnknownRecipient(t *testing.T) {
	users, _ := seedUser(t)
	sender := &fakeSender{}
	rec := &fakeRecorder{}
	d := NewDispatcher(users, NewRenderer("SocialMedia", "https://example.com/"), sender, Options{Recorder: rec})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)
	d.Notify(models.Notification{Kind: models.NotifyLoggedIn, UserID: "000000000000000000000000"})

	require.Eventually(t, func() bool { return len(rec.all()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, models.DeliverySkipped, rec.all()[0].Status)
	assert.Zero(t, sender.count())
}

func TestDispatcherThroughExternalQueue(t *testing.T) {
	users, u := seedUser(t)
	sender := &fakeSender{}
	q := &chanQueue{ch: make(chan models.Notification, 8)}
	d := NewDispatcher(users, NewRenderer("SocialMedia", "https://example.com/"), sender, Options{Queue: q})

	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)
	d.Notify(models.Notification{Kind: models.NotifyPostDeleted, UserID: u.HexID(), PostTitle: "Old"})

	require.Eventually(t, func() bool { return sender.count() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	d.Wait()
	assert.Equal(t, "Post Deleted", sender.sent[0].Subject)
}

func TestRendererSubjects(t *testing.T) {
	r := NewRenderer("SocialMedia", "https://example.com/")
	u := &models.User{Username: "alice", Email: "alice@example.com"}

	subjects := map[models.NotificationKind]string{
		models.NotifyRegistered:  "Registration Successful",
		models.NotifyLoggedIn:    "Login Notification",
		models.NotifyPostCreated: "New Post Created",
		models.NotifyPostUpdated: "Post Updated",
		models.NotifyPostDeleted: "Post Deleted",
	}
	for kind, subject := range subjects {
		msg, err := r.Render(models.Notification{Kind: kind, PostTitle: "Trip"}, u)
		require.NoError(t, err, kind)
		assert.Equal(t, subject, msg.Subject)
		assert.Equal(t, "alice@example.com", msg.To)
		assert.NotEmpty(t, msg.HTML)
	}

	msg, err := r.Render(models.Notification{Kind: models.NotifyRegistered}, u)
	require.NoError(t, err)
	assert.Contains(t, msg.HTML, "https://example.com/confirm")

	_, err = r.Render(models.Notification{Kind: "bogus"}, u)
	assert.Error(t, err)
}
