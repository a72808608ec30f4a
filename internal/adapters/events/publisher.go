package events

import (
	"context"
	"log/slog"
	"sync"

	"github.com/viralforge/mesh/services/financial-rails/M42-incentive-service/internal/contracts"
)

// LoggingPublisher is the fallback when no broker is configured; events are
// still visible in the structured log stream.
type LoggingPublisher struct {
	logger *slog.Logger
}

func NewLoggingPublisher(logger *slog.Logger) *LoggingPublisher {
	return &LoggingPublisher{logger: logger}
}

func (p *LoggingPublisher) PublishDomain(ctx context.Context, event contracts.EventEnvelope) error {
	p.logger.InfoContext(ctx, "domain event published",
		"module", "events.publisher",
		"layer", "adapter",
		"event_type", event.EventType,
		"event_id", event.EventID,
		"partition_key", event.PartitionKey,
	)
	return nil
}

// MemoryPublisher collects envelopes for assertions in tests.
type MemoryPublisher struct {
	mu     sync.Mutex
	events []contracts.EventEnvelope
}

func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

func (p *MemoryPublisher) PublishDomain(_ context.Context, event contracts.EventEnvelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *MemoryPublisher) Events() []contracts.EventEnvelope {
	p.mu.Lock()
	defer p.mu.Unlock()
	snapshot := make([]contracts.EventEnvelope, len(p.events))
	copy(snapshot, p.events)
	return snapshot
}
