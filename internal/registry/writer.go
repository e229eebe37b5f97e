package registry

import (
	"context"
	"errors"
	"sync"
	"time"

	"concierge/internal/records"
	"concierge/internal/store"
)

const saveTimeout = 30 * time.Second

var errWriterClosed = errors.New("registry closed")

// writer serializes saves. Requests queued while a save is running are
// answered by the next save, whose snapshot already contains their
// mutations.
type writer struct {
	store    store.Store
	snapshot func() records.Collection

	mu       sync.RWMutex
	closed   bool
	requests chan chan error
	done     chan struct{}
}

func startWriter(st store.Store, snapshot func() records.Collection) *writer {
	w := &writer{
		store:    st,
		snapshot: snapshot,
		requests: make(chan chan error, 64),
		done:     make(chan struct{}),
	}
	go w.run()
	return w
}

func (w *writer) save() error {
	w.mu.RLock()
	if w.closed {
		w.mu.RUnlock()
		return errWriterClosed
	}
	result := make(chan error, 1)
	w.requests <- result
	w.mu.RUnlock()
	return <-result
}

func (w *writer) stop() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	close(w.requests)
	w.mu.Unlock()
	<-w.done
}

func (w *writer) run() {
	defer close(w.done)
	for first := range w.requests {
		batch := []chan error{first}
	drain:
		for {
			select {
			case next, ok := <-w.requests:
				if !ok {
					break drain
				}
				batch = append(batch, next)
			default:
				break drain
			}
		}

		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		err := w.store.Save(ctx, w.snapshot())
		cancel()
		for _, result := range batch {
			result <- err
		}
	}
}
