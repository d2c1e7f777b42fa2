package queue

import (
	"context"
	"hash/fnv"

	"github.com/rs/zerolog"

	"github.com/facilityops/facility-system/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
)

// Dispatcher routes expiry checks to a fixed set of workers using consistent
// hashing on the permit id, so a permit is never evaluated by two workers at
// the same time.
type Dispatcher struct {
	workers []chan ports.ExpiryCheckInput
	service ports.ExpiryService
	log     zerolog.Logger
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, service ports.ExpiryService, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan ports.ExpiryCheckInput, numWorkers),
		service: service,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan ports.ExpiryCheckInput, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		go d.runWorker(ctx, i, ch)
	}
}

// Enqueue sends a check to the worker responsible for the permit.
// The call is non-blocking up to channelBuffer capacity.
func (d *Dispatcher) Enqueue(check ports.ExpiryCheckInput) {
	d.workers[d.shardIndex(check.PermitID)] <- check
}

// EnqueueBatch enqueues multiple checks preserving per-permit ordering.
func (d *Dispatcher) EnqueueBatch(checks []ports.ExpiryCheckInput) {
	for _, c := range checks {
		d.Enqueue(c)
	}
}

// shardIndex maps a permit id deterministically to a worker index.
func (d *Dispatcher) shardIndex(permitID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(permitID))
	return int(h.Sum32()) % len(d.workers)
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan ports.ExpiryCheckInput) {
	for {
		select {
		case <-ctx.Done():
			return
		case check, ok := <-ch:
			if !ok {
				return
			}
			if err := d.service.Process(ctx, check); err != nil {
				d.log.Error().Err(err).
					Str("permit_id", check.PermitID).
					Int("worker_id", id).
					Msg("expiry check failed")
			}
		}
	}
}
