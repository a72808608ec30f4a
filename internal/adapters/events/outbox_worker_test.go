package events

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/financial-rails/M42-incentive-service/internal/adapters/memory"
	"github.com/viralforge/mesh/services/financial-rails/M42-incentive-service/internal/contracts"
	"github.com/viralforge/mesh/services/financial-rails/M42-incentive-service/internal/ports"
)

func enqueue(t *testing.T, outbox ports.OutboxRepository, eventType, partitionKey string) {
	t.Helper()
	err := outbox.Enqueue(context.Background(), ports.OutboxRecord{
		RecordID: uuid.NewString(),
		Envelope: contracts.EventEnvelope{
			EventID:      uuid.NewString(),
			EventType:    eventType,
			OccurredAt:   time.Now().UTC(),
			PartitionKey: partitionKey,
		},
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
}

func TestOutboxWorkerDrainsPendingRecords(t *testing.T) {
	t.Parallel()
	repos := memory.NewRepositories()
	publisher := NewMemoryPublisher()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	worker := NewOutboxWorker(logger, repos.Outbox, publisher, time.Second, 10)

	enqueue(t, repos.Outbox, "incentive.created", "incentive_a")
	enqueue(t, repos.Outbox, "incentive.approved", "incentive_a")
	enqueue(t, repos.Outbox, "incentive.created", "incentive_b")

	if err := worker.processOnce(context.Background()); err != nil {
		t.Fatalf("processOnce: %v", err)
	}

	published := publisher.Events()
	if len(published) != 3 {
		t.Fatalf("published = %d, want 3", len(published))
	}
	if published[0].EventType != "incentive.created" || published[1].EventType != "incentive.approved" {
		t.Fatalf("order = %s, %s", published[0].EventType, published[1].EventType)
	}

	pending, err := repos.Outbox.ListPending(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("pending = %d, want drained", len(pending))
	}

	// A second pass over a drained outbox publishes nothing new.
	if err := worker.processOnce(context.Background()); err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if len(publisher.Events()) != 3 {
		t.Fatal("drained outbox re-published records")
	}
}

func TestOutboxWorkerRespectsBatchSize(t *testing.T) {
	t.Parallel()
	repos := memory.NewRepositories()
	publisher := NewMemoryPublisher()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	worker := NewOutboxWorker(logger, repos.Outbox, publisher, time.Second, 2)

	for i := 0; i < 5; i++ {
		enqueue(t, repos.Outbox, "incentive.created", "incentive_a")
	}
	if err := worker.processOnce(context.Background()); err != nil {
		t.Fatalf("processOnce: %v", err)
	}
	if got := len(publisher.Events()); got != 2 {
		t.Fatalf("published = %d, want batch of 2", got)
	}
}
