// Package observer is a small generic publish/subscribe helper. Listeners are
// notified fire-and-forget, each in its own goroutine, unless the observer is
// created synchronous.
package observer

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
)

func random(length int) (string, error) {
	randomData := make([]byte, length)
	if _, err := rand.Read(randomData); err != nil {
		return "", err
	}
	return hex.EncodeToString(randomData), nil
}

// Observer fans a message of type T out to registered listeners.
type Observer[T any] struct {
	mu      sync.RWMutex
	clients map[string]func(T)
	sync    bool
	wg      sync.WaitGroup
}

// Option configures an Observer.
type Option func(*observerOptions)

type observerOptions struct {
	sync bool
}

// Synchronous makes Notify call listeners inline, in no particular order.
func Synchronous() Option {
	return func(o *observerOptions) { o.sync = true }
}

// New returns an observer without listeners.
func New[T any](opts ...Option) *Observer[T] {
	var o observerOptions
	for _, opt := range opts {
		opt(&o)
	}
	return &Observer[T]{
		clients: make(map[string]func(T)),
		sync:    o.sync,
	}
}

// Register adds a listener and returns the id to deregister it with.
func (o *Observer[T]) Register(f func(T)) (id string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	id, _ = random(10)
	o.clients[id] = f
	return id
}

// Deregister removes the listener with the given id.
func (o *Observer[T]) Deregister(id string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	delete(o.clients, id)
}

// Len returns the number of listeners.
func (o *Observer[T]) Len() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.clients)
}

// Notify delivers message to every listener.
func (o *Observer[T]) Notify(message T) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	for _, f := range o.clients {
		if o.sync {
			f(message)
			continue
		}
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			f(message)
		}()
	}
}

// Wait blocks until listeners started by earlier Notify calls return.
func (o *Observer[T]) Wait() {
	o.wg.Wait()
}
