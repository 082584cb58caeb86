package livequery

import (
	"context"
	"sync"

	"agency/internal/domain/repository"
)

// Binding ties a live query to the lifetime of a view. Rebinding with the same
// constraint set keeps the current subscription; a different one replaces it.
type Binding struct {
	manager  *Manager
	listener Listener

	mu  sync.Mutex
	sub *Subscription
	key string
}

// NewBinding creates an unbound Binding delivering to listener.
func NewBinding(manager *Manager, listener Listener) *Binding {
	return &Binding{manager: manager, listener: listener}
}

// Bind subscribes to q unless the binding already follows the same constraint set.
// The previous subscription is closed before the new one is opened.
func (b *Binding) Bind(ctx context.Context, q repository.Query) *Subscription {
	key := q.Key()

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.sub != nil && b.key == key {
		return b.sub
	}
	if b.sub != nil {
		b.sub.Close()
	}

	b.sub = b.manager.Subscribe(ctx, q, b.listener)
	b.key = key

	return b.sub
}

// Current returns the active subscription, or nil when unbound.
func (b *Binding) Current() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.sub
}

// Unbind closes the active subscription.
func (b *Binding) Unbind() {
	b.mu.Lock()
	sub := b.sub
	b.sub = nil
	b.key = ""
	b.mu.Unlock()

	if sub != nil {
		sub.Close()
	}
}
