package sim

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"droneops-dispatch/internal/telemetry"
)

type memRedis struct {
	data   map[string]string
	ttl    map[string]time.Duration
	closed bool
}

func newMemRedis() *memRedis {
	return &memRedis{data: map[string]string{}, ttl: map[string]time.Duration{}}
}

func (m *memRedis) Ping(ctx context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (m *memRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	switch v := value.(type) {
	case []byte:
		m.data[key] = string(v)
	case string:
		m.data[key] = v
	}
	m.ttl[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (m *memRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *memRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, k := range keys {
		if _, ok := m.data[k]; ok {
			delete(m.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func (m *memRedis) Close() error {
	m.closed = true
	return nil
}

func TestRedisStateWriterCachesLatestPosition(t *testing.T) {
	mem := newMemRedis()
	w := NewRedisStateWriterWithClient(mem)
	ctx := context.Background()

	for _, lat := range []float64{46.1, 46.2} {
		if err := w.Write(telemetry.PositionRow{ClusterID: "c1", DroneID: "D1", Lat: lat}); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	row, ok, err := w.LatestPosition(ctx, "c1", "D1")
	if err != nil || !ok {
		t.Fatalf("latest position: ok=%v err=%v", ok, err)
	}
	if row.Lat != 46.2 {
		t.Fatalf("expected the latest row, got lat %v", row.Lat)
	}
	if ttl := mem.ttl["dronedash:c1:drone:D1"]; ttl != PositionTTL {
		t.Fatalf("unexpected ttl %s", ttl)
	}

	if _, ok, err := w.LatestPosition(ctx, "c1", "D9"); err != nil || ok {
		t.Fatalf("unknown drone: ok=%v err=%v", ok, err)
	}
}

func TestRedisStateWriterAlertLifecycle(t *testing.T) {
	mem := newMemRedis()
	w := NewRedisStateWriterWithClient(mem)
	ctx := context.Background()
	ts := time.Date(2024, 3, 20, 10, 0, 0, 0, time.UTC)

	write := func(row telemetry.AlertRow) {
		t.Helper()
		if err := w.WriteAlert(row); err != nil {
			t.Fatalf("write alert %s/%s: %v", row.AlertID, row.State, err)
		}
	}
	raise := func(id string) telemetry.AlertRow {
		return telemetry.AlertRow{ClusterID: "c1", AlertID: id, State: telemetry.AlertRaised, Timestamp: ts, ExpiresAt: ts.Add(30 * time.Second)}
	}
	write(raise("ev-1"))
	if ttl := mem.ttl["dronedash:c1:alert:active"]; ttl != 30*time.Second {
		t.Fatalf("unexpected alert ttl %s", ttl)
	}
	write(raise("ev-2"))

	// expiry of an alert that was already replaced keeps the newer one
	write(telemetry.AlertRow{ClusterID: "c1", AlertID: "ev-1", State: telemetry.AlertExpired})
	cur, ok, err := w.ActiveAlert(ctx, "c1")
	if err != nil || !ok {
		t.Fatalf("active alert: ok=%v err=%v", ok, err)
	}
	if cur.AlertID != "ev-2" {
		t.Fatalf("expected ev-2 to stay active, got %s", cur.AlertID)
	}

	write(telemetry.AlertRow{ClusterID: "c1", AlertID: "ev-2", State: telemetry.AlertDismissed})
	if _, ok, err := w.ActiveAlert(ctx, "c1"); err != nil || ok {
		t.Fatalf("dismissed alert still active: ok=%v err=%v", ok, err)
	}

	// nothing cached, nothing to clear
	write(telemetry.AlertRow{ClusterID: "c1", AlertID: "ev-3", State: telemetry.AlertExpired})

	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !mem.closed {
		t.Fatal("client not closed")
	}
}
