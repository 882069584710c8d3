package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/cbdb-network/cbdbnet/internal/models"
)

// Explorer runs a network exploration.
type Explorer interface {
	Explore(ctx context.Context, req models.ExploreRequest) (*models.NetworkResult, error)
}

// WarmWorker precomputes explorations in the background so later identical
// requests are served from the result cache.
type WarmWorker struct {
	explorer Explorer
	log      *logrus.Logger
	jobs     chan models.ExploreRequest
}

// NewWarmWorker creates a WarmWorker with the given queue capacity.
func NewWarmWorker(explorer Explorer, log *logrus.Logger, queueSize int) *WarmWorker {
	if queueSize <= 0 {
		queueSize = 100
	}

	return &WarmWorker{
		explorer: explorer,
		log:      log,
		jobs:     make(chan models.ExploreRequest, queueSize),
	}
}

// Enqueue adds a request. Non-blocking; returns false and drops the request
// if the queue is full.
func (w *WarmWorker) Enqueue(req models.ExploreRequest) bool {
	select {
	case w.jobs <- req:
		return true
	default:
		w.log.WithField("person_ids", req.PersonIDs).Warn("warm queue full, dropping request")
		return false
	}
}

// Pending reports the number of queued requests.
func (w *WarmWorker) Pending() int {
	return len(w.jobs)
}

// Run processes queued requests until ctx is cancelled. Queued requests left
// at cancellation are discarded.
func (w *WarmWorker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-w.jobs:
			w.process(ctx, req)
		}
	}
}

func (w *WarmWorker) process(ctx context.Context, req models.ExploreRequest) {
	res, err := w.explorer.Explore(ctx, req)
	if err != nil {
		w.log.WithError(err).WithField("person_ids", req.PersonIDs).Warn("cache warm failed")
		return
	}

	w.log.WithFields(logrus.Fields{
		"person_ids": req.PersonIDs,
		"nodes":      len(res.Nodes),
		"edges":      len(res.Edges),
	}).Debug("network.warm")
}
