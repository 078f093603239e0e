package notify

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"itops-backend/internal/platform/config"
	"itops-backend/internal/platform/idgen"
)

const (
	baseBackoff = 30 * time.Second
	maxBackoff  = time.Hour
)

// Backoff is the wait after the n-th failed attempt: 30s, 1m, 2m, ... capped at 1h.
func Backoff(n int) time.Duration {
	if n < 1 {
		n = 1
	}
	d := baseBackoff
	for i := 1; i < n; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	return d
}

type outbox interface {
	Claim(ctx context.Context, now time.Time, limit int, lease time.Duration) ([]Notification, error)
	MarkDelivered(ctx context.Context, id string, at time.Time) error
	MarkFailed(ctx context.Context, id string, attempts int, status Status, next time.Time, reason string) error
}

type Dispatcher struct {
	store       outbox
	sender      Sender
	clock       idgen.Clock
	endpoints   map[string]string
	maxAttempts int
	batchSize   int
	lease       time.Duration
}

func NewDispatcher(store *Store, sender Sender, cfg config.NotifyConfig) *Dispatcher {
	return &Dispatcher{
		store:       store,
		sender:      sender,
		clock:       idgen.SystemClock{},
		endpoints:   cfg.Endpoints,
		maxAttempts: cfg.MaxAttempts,
		batchSize:   cfg.BatchSize,
		lease:       claimLease(cfg.BatchSize, cfg.Timeout),
	}
}

// claimLease outlasts a batch whose sends all run to the timeout, plus one
// timeout of slack for the status writes.
func claimLease(batchSize int, timeout time.Duration) time.Duration {
	if batchSize < 1 {
		batchSize = 1
	}
	return time.Duration(batchSize+1) * timeout
}

type RunStats struct {
	Delivered int
	Retried   int
	Dead      int
}

// RunOnce delivers every due notification once.
func (d *Dispatcher) RunOnce(ctx context.Context) (RunStats, error) {
	var st RunStats
	now := d.clock.Now()
	batch, err := d.store.Claim(ctx, now, d.batchSize, d.lease)
	if err != nil {
		return st, err
	}

	for _, n := range batch {
		url := d.endpoints[string(n.Kind)]
		if url == "" {
			log.Printf("[WARN] notify %s (%s): no endpoint configured, dropping", n.ID, n.Kind)
			if err := d.store.MarkFailed(ctx, n.ID, n.Attempts, StatusDead, now, "no endpoint configured"); err != nil {
				return st, err
			}
			st.Dead++
			continue
		}

		sendErr := d.sender.Send(ctx, url, n.Payload)
		at := d.clock.Now()
		if sendErr == nil {
			if err := d.store.MarkDelivered(ctx, n.ID, at); err != nil {
				return st, err
			}
			st.Delivered++
			continue
		}

		attempts := n.Attempts + 1
		if attempts >= d.maxAttempts {
			log.Printf("[ERROR] notify %s (%s): giving up after %d attempts: %v", n.ID, n.Kind, attempts, sendErr)
			if err := d.store.MarkFailed(ctx, n.ID, attempts, StatusDead, at, sendErr.Error()); err != nil {
				return st, err
			}
			st.Dead++
			continue
		}
		next := at.Add(Backoff(attempts))
		log.Printf("[WARN] notify %s (%s): attempt %d failed, retry at %s: %v",
			n.ID, n.Kind, attempts, next.Format(time.RFC3339), sendErr)
		if err := d.store.MarkFailed(ctx, n.ID, attempts, StatusPending, next, sendErr.Error()); err != nil {
			return st, err
		}
		st.Retried++
	}
	return st, nil
}

// Start schedules RunOnce on spec. Stop the returned cron on shutdown.
func (d *Dispatcher) Start(spec string) (*cron.Cron, error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 4*time.Minute)
		defer cancel()
		st, err := d.RunOnce(ctx)
		if err != nil {
			log.Printf("[ERROR] notify dispatch: %v", err)
			return
		}
		if st != (RunStats{}) {
			log.Printf("[INFO] notify dispatch: delivered=%d retried=%d dead=%d", st.Delivered, st.Retried, st.Dead)
		}
	})
	if err != nil {
		return nil, err
	}
	c.Start()
	log.Printf("[INFO] notify dispatcher started schedule=%q", spec)
	return c, nil
}
