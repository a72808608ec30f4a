package bootstrap

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.ServiceName != "M42-Incentive-Service" {
		t.Fatalf("service name = %q", cfg.ServiceName)
	}
	if cfg.HTTP.Addr != ":8042" || cfg.GRPC.Addr != ":9042" {
		t.Fatalf("addrs = %q / %q", cfg.HTTP.Addr, cfg.GRPC.Addr)
	}
	if cfg.Worker.OutboxInterval != 2*time.Second || cfg.Worker.OutboxBatch != 100 {
		t.Fatalf("worker = %+v", cfg.Worker)
	}
}

func TestLoadConfigFileAndEnvLayering(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("service_name: incentive-stage\nhttp:\n  addr: \":9000\"\nkafka:\n  brokers: [\"kafka-1:9092\"]\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("HTTP_ADDR", ":7000")
	t.Setenv("KAFKA_BROKERS", "kafka-a:9092, kafka-b:9092")
	t.Setenv("OUTBOX_BATCH", "25")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.ServiceName != "incentive-stage" {
		t.Fatalf("service name = %q, want file value", cfg.ServiceName)
	}
	if cfg.HTTP.Addr != ":7000" {
		t.Fatalf("http addr = %q, want env override", cfg.HTTP.Addr)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "kafka-b:9092" {
		t.Fatalf("brokers = %v, want env csv override", cfg.Kafka.Brokers)
	}
	if cfg.Worker.OutboxBatch != 25 {
		t.Fatalf("outbox batch = %d, want 25", cfg.Worker.OutboxBatch)
	}
	// File values not overridden by env survive the layering.
	if cfg.Redis.Addr != "localhost:6379" {
		t.Fatalf("redis addr = %q, want default", cfg.Redis.Addr)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig("/does/not/exist.yaml"); err == nil {
		t.Fatal("missing file accepted")
	}
}
