package notify

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/ayush/social-media-api/internal/models"
)

// Queue is an external buffer between the request path and the workers.
// Pop returns nil, nil when nothing is waiting.
type Queue interface {
	Push(ctx context.Context, n models.Notification) error
	Pop(ctx context.Context) (*models.Notification, error)
}

// Directory resolves the recipient of a notification.
type Directory interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// Recorder keeps a log of processed notifications.
type Recorder interface {
	Record(ctx context.Context, d models.Delivery) error
}

// Options tune a Dispatcher. Queue and Recorder are optional.
type Options struct {
	Queue    Queue
	Recorder Recorder
	Workers  int
	Buffer   int
}

// Dispatcher accepts notifications without blocking and delivers them on
// its own goroutines. Delivery failures are logged and recorded, never
// returned to the caller.
type Dispatcher struct {
	pending  chan models.Notification
	queue    Queue
	recorder Recorder
	users    Directory
	renderer *Renderer
	sender   Sender
	workers  int
	wg       sync.WaitGroup
}

func NewDispatcher(users Directory, renderer *Renderer, sender Sender, opts Options) *Dispatcher {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Buffer <= 0 {
		opts.Buffer = 64
	}
	return &Dispatcher{
		pending:  make(chan models.Notification, opts.Buffer),
		queue:    opts.Queue,
		recorder: opts.Recorder,
		users:    users,
		renderer: renderer,
		sender:   sender,
		workers:  opts.Workers,
	}
}

// Notify enqueues n. When the buffer is full the notification is dropped.
func (d *Dispatcher) Notify(n models.Notification) {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	select {
	case d.pending <- n:
	default:
		log.Warn().Str("kind", string(n.Kind)).Str("user_id", n.UserID).Msg("Notification buffer full, dropping")
	}
}

// Start launches the workers. They run until ctx is cancelled; call Wait
// afterwards to let in-flight deliveries finish.
func (d *Dispatcher) Start(ctx context.Context) {
	if d.queue != nil {
		d.wg.Add(1)
		go d.pump(ctx)
	}
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.work(ctx)
	}
	log.Info().Int("workers", d.workers).Bool("external_queue", d.queue != nil).Msg("Notification workers started")
}

func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// pump moves notifications from the in-process buffer to the external queue.
// If the queue rejects one it is delivered directly instead.
func (d *Dispatcher) pump(ctx context.Context) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case n := <-d.pending:
			if err := d.queue.Push(ctx, n); err != nil {
				log.Error().Err(err).Str("id", n.ID).Msg("Failed to queue notification, delivering inline")
				d.deliver(ctx, n)
			}
		}
	}
}

func (d *Dispatcher) work(ctx context.Context) {
	defer d.wg.Done()
	if d.queue == nil {
		for {
			select {
			case <-ctx.Done():
				return
			case n := <-d.pending:
				d.deliver(ctx, n)
			}
		}
	}

	for ctx.Err() == nil {
		n, err := d.queue.Pop(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Error().Err(err).Msg("Failed to read notification queue")
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		if n != nil {
			d.deliver(ctx, *n)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, n models.Notification) {
	rec := models.Delivery{
		ID:        n.ID,
		Kind:      n.Kind,
		UserID:    n.UserID,
		CreatedAt: time.Now().UTC(),
	}
	defer func() { d.record(ctx, rec) }()

	user, err := d.users.GetUserByID(ctx, n.UserID)
	if err != nil {
		rec.Status, rec.Error = models.DeliverySkipped, err.Error()
		log.Warn().Err(err).Str("kind", string(n.Kind)).Str("user_id", n.UserID).Msg("No recipient for notification")
		return
	}
	rec.Recipient = user.Email

	msg, err := d.renderer.Render(n, user)
	if err != nil {
		rec.Status, rec.Error = models.DeliveryFailed, err.Error()
		log.Error().Err(err).Str("kind", string(n.Kind)).Msg("Failed to render notification")
		return
	}
	rec.Subject = msg.Subject

	if err := d.sender.Send(ctx, msg); err != nil {
		rec.Status, rec.Error = models.DeliveryFailed, err.Error()
		log.Error().Err(err).Str("to", msg.To).Str("subject", msg.Subject).Msg("Failed to send email")
		return
	}
	rec.Status = models.DeliverySent
	log.Debug().Str("to", msg.To).Str("subject", msg.Subject).Msg("Email sent")
}

func (d *Dispatcher) record(ctx context.Context, rec models.Delivery) {
	if d.recorder == nil {
		return
	}
	if err := d.recorder.Record(ctx, rec); err != nil {
		log.Error().Err(err).Str("id", rec.ID).Msg("Failed to record notification delivery")
	}
}
