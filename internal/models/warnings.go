package models

import (
	"context"
	"sync"
)

type warningsKey struct{}

// Warnings collects non-fatal notices raised below the service layer while a
// single request is being answered.
type Warnings struct {
	mu    sync.Mutex
	items []string
}

// WithWarnings returns a context carrying a fresh collector.
func WithWarnings(ctx context.Context) (context.Context, *Warnings) {
	w := &Warnings{}
	return context.WithValue(ctx, warningsKey{}, w), w
}

// AddWarning records msg on the collector carried by ctx, if any. Repeated
// messages are kept once.
func AddWarning(ctx context.Context, msg string) {
	w, ok := ctx.Value(warningsKey{}).(*Warnings)
	if !ok {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	for _, m := range w.items {
		if m == msg {
			return
		}
	}

	w.items = append(w.items, msg)
}

// List returns the recorded messages in the order they were first added.
func (w *Warnings) List() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]string, len(w.items))
	copy(out, w.items)

	return out
}
