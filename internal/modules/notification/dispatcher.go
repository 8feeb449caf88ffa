// README: Fire-and-forget notification fan-out: persist, then best-effort push.
package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"hatid/internal/observability"
	"hatid/internal/types"
)

const jobTimeout = 10 * time.Second

type Sink interface {
	Insert(ctx context.Context, n *Notification) error
}

type TokenSource interface {
	Token(ctx context.Context, userID types.ID) (string, error)
}

type Pusher interface {
	Push(ctx context.Context, token, title, body string, data map[string]string) error
}

// Dispatcher never reports failures to the caller. Every failure is logged
// and counted, and a failed push never undoes the persisted notification.
type Dispatcher struct {
	sink    Sink
	tokens  TokenSource
	pusher  Pusher
	jobs    chan Job
	workers int
	log     *slog.Logger
	now     func() time.Time

	mu       sync.Mutex
	stopped  bool
	inflight sync.WaitGroup
}

// NewDispatcher builds a dispatcher; pusher may be nil to disable push.
func NewDispatcher(sink Sink, tokens TokenSource, pusher Pusher, workers, queueSize int, log *slog.Logger) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	return &Dispatcher{
		sink:    sink,
		tokens:  tokens,
		pusher:  pusher,
		jobs:    make(chan Job, queueSize),
		workers: workers,
		log:     log,
		now:     time.Now,
	}
}

// Dispatch enqueues job and returns immediately. When the queue is full the
// job is handled on its own goroutine instead of blocking the caller. Once
// Run has stopped its workers the job is handled synchronously.
func (d *Dispatcher) Dispatch(job Job) {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		observability.NotificationsTotal.WithLabelValues("queue", "after_stop").Inc()
		d.handle(job)
		return
	}
	select {
	case d.jobs <- job:
		observability.NotifyQueueDepth.Inc()
	default:
		observability.NotificationsTotal.WithLabelValues("queue", "overflow").Inc()
		d.inflight.Add(1)
		go func() {
			defer d.inflight.Done()
			d.handle(job)
		}()
	}
	d.mu.Unlock()
}

// Run starts the workers and blocks until ctx is done. It then drains whatever
// is still queued and waits for overflow jobs before returning.
func (d *Dispatcher) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < d.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case job := <-d.jobs:
					observability.NotifyQueueDepth.Dec()
					d.handle(job)
				}
			}
		}()
	}
	<-ctx.Done()
	wg.Wait()

	d.mu.Lock()
	d.stopped = true
	d.mu.Unlock()

	for drained := false; !drained; {
		select {
		case job := <-d.jobs:
			observability.NotifyQueueDepth.Dec()
			d.handle(job)
		default:
			drained = true
		}
	}
	d.inflight.Wait()
}

func (d *Dispatcher) handle(job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			observability.NotificationsTotal.WithLabelValues("handle", "panic").Inc()
			d.log.Error("notification job panicked", slog.Any("panic", r), slog.String("user_id", string(job.UserID)))
		}
	}()

	if job.UserID == "" {
		observability.NotificationsTotal.WithLabelValues("handle", "invalid").Inc()
		d.log.Warn("notification job without recipient", slog.String("title", job.Title))
		return
	}
	category := job.Category
	if category == "" {
		category = CategoryBooking
	}

	n := &Notification{
		ID:        types.NewID(),
		UserID:    job.UserID,
		Title:     job.Title,
		Message:   job.Message,
		Category:  category,
		CreatedAt: d.now(),
	}
	if err := d.sink.Insert(ctx, n); err != nil {
		observability.NotificationsTotal.WithLabelValues("persist", "error").Inc()
		d.log.Error("persist notification failed", slog.String("user_id", string(job.UserID)), slog.Any("err", err))
	} else {
		observability.NotificationsTotal.WithLabelValues("persist", "ok").Inc()
	}

	if d.pusher == nil || d.tokens == nil {
		return
	}
	token, err := d.tokens.Token(ctx, job.UserID)
	if errors.Is(err, ErrNoToken) {
		observability.NotificationsTotal.WithLabelValues("push", "no_token").Inc()
		d.log.Debug("no device token", slog.String("user_id", string(job.UserID)))
		return
	}
	if err != nil {
		observability.NotificationsTotal.WithLabelValues("push", "error").Inc()
		d.log.Error("device token lookup failed", slog.String("user_id", string(job.UserID)), slog.Any("err", err))
		return
	}
	if err := d.pusher.Push(ctx, token, job.Title, job.Message, StringifyData(job.Data)); err != nil {
		observability.NotificationsTotal.WithLabelValues("push", "error").Inc()
		d.log.Error("push failed", slog.String("user_id", string(job.UserID)), slog.Any("err", err))
		return
	}
	observability.NotificationsTotal.WithLabelValues("push", "ok").Inc()
}

// StringifyData coerces payload values to strings; FCM data payloads only
// carry strings.
func StringifyData(data map[string]any) map[string]string {
	out := make(map[string]string, len(data))
	for k, v := range data {
		switch x := v.(type) {
		case nil:
			out[k] = ""
		case string:
			out[k] = x
		case types.ID:
			out[k] = string(x)
		case fmt.Stringer:
			out[k] = x.String()
		case bool:
			out[k] = strconv.FormatBool(x)
		case int:
			out[k] = strconv.Itoa(x)
		case int64:
			out[k] = strconv.FormatInt(x, 10)
		case float64:
			out[k] = strconv.FormatFloat(x, 'f', -1, 64)
		default:
			out[k] = fmt.Sprint(x)
		}
	}
	return out
}
