package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	failureMaxAttempts = 5
	failureWindow      = 15 * time.Minute
	failureLockout     = 5 * time.Minute
	failureCleanup     = 60 * time.Second
	failureMaxRecords  = 10000
)

type failureRecord struct {
	attempts  int
	firstFail time.Time
	lockedAt  time.Time
}

// FailureGuard tracks authentication failures per client IP and locks out
// clients that exceed the threshold within the tracking window.
type FailureGuard struct {
	mu      sync.Mutex
	records map[string]*failureRecord
	log     *logrus.Logger
	now     func() time.Time
}

// NewFailureGuard creates a guard whose cleanup goroutine stops when ctx is cancelled.
func NewFailureGuard(ctx context.Context, log *logrus.Logger) *FailureGuard {
	g := &FailureGuard{
		records: make(map[string]*failureRecord),
		log:     log,
		now:     time.Now,
	}
	go g.cleanupLoop(ctx)
	return g
}

// IsBlocked reports whether client is currently locked out.
func (g *FailureGuard) IsBlocked(client string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	rec, ok := g.records[client]
	if !ok || rec.lockedAt.IsZero() {
		return false
	}

	return g.now().Sub(rec.lockedAt) < failureLockout
}

// RecordFailure counts a failed attempt for client.
func (g *FailureGuard) RecordFailure(client string) {
	now := g.now()

	g.mu.Lock()
	defer g.mu.Unlock()

	rec, ok := g.records[client]
	if !ok {
		if len(g.records) >= failureMaxRecords {
			g.evictOldest()
		}

		g.records[client] = &failureRecord{attempts: 1, firstFail: now}
		return
	}

	if now.Sub(rec.firstFail) > failureWindow {
		*rec = failureRecord{attempts: 1, firstFail: now}
		return
	}

	rec.attempts++
	if rec.attempts >= failureMaxAttempts && rec.lockedAt.IsZero() {
		rec.lockedAt = now
		g.log.WithField("client_ip", client).Warn("client locked out after repeated auth failures")
	}
}

// Reset clears failure tracking for client.
func (g *FailureGuard) Reset(client string) {
	g.mu.Lock()
	delete(g.records, client)
	g.mu.Unlock()
}

func (g *FailureGuard) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(failureCleanup)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.sweep()
		}
	}
}

// sweep removes expired lockouts and stale windows.
func (g *FailureGuard) sweep() {
	now := g.now()

	g.mu.Lock()
	defer g.mu.Unlock()

	for k, rec := range g.records {
		if !rec.lockedAt.IsZero() && now.Sub(rec.lockedAt) >= failureLockout {
			delete(g.records, k)
		} else if rec.lockedAt.IsZero() && now.Sub(rec.firstFail) >= failureWindow {
			delete(g.records, k)
		}
	}
}

// evictOldest drops the record with the oldest first failure. Caller holds g.mu.
func (g *FailureGuard) evictOldest() {
	var (
		oldestKey  string
		oldestTime time.Time
	)

	for k, rec := range g.records {
		if oldestKey == "" || rec.firstFail.Before(oldestTime) {
			oldestKey, oldestTime = k, rec.firstFail
		}
	}

	delete(g.records, oldestKey)
}
