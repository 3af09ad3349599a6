package integration

import (
	"context"
	"sync"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
)

// inMemoryAuditRepo collects audit rows in place of the postgres table.
type inMemoryAuditRepo struct {
	mu      sync.Mutex
	entries []domain.AuditLog
}

var _ ports.AuditRepository = (*inMemoryAuditRepo)(nil)

func newInMemoryAuditRepo() *inMemoryAuditRepo {
	return &inMemoryAuditRepo{}
}

func (r *inMemoryAuditRepo) Create(_ context.Context, entry *domain.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *inMemoryAuditRepo) actions() []domain.AuditAction {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.AuditAction, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.Action
	}
	return out
}

// inMemoryPublisher records ledger events in place of RabbitMQ.
type inMemoryPublisher struct {
	mu     sync.Mutex
	events []domain.LedgerEvent
}

var _ ports.EventPublisher = (*inMemoryPublisher)(nil)

func newInMemoryPublisher() *inMemoryPublisher {
	return &inMemoryPublisher{}
}

func (p *inMemoryPublisher) Publish(_ context.Context, event domain.LedgerEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *inMemoryPublisher) Close() error { return nil }

func (p *inMemoryPublisher) published() []domain.LedgerEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.LedgerEvent(nil), p.events...)
}
