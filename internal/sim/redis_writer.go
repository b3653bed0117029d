package sim

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"droneops-dispatch/internal/telemetry"
)

// RedisClientInterface defines the Redis operations used by the state writer.
type RedisClientInterface interface {
	Ping(ctx context.Context) *redis.StatusCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Close() error
}

// PositionTTL bounds how long a drone's last position stays cached.
const PositionTTL = 10 * time.Minute

// RedisStateWriter caches the latest position of every drone and the alert
// currently on screen, so dashboards can render without replaying history.
type RedisStateWriter struct {
	client  RedisClientInterface
	timeout time.Duration
}

// NewRedisStateWriter connects to addr and checks the connection.
func NewRedisStateWriter(addr string) (*RedisStateWriter, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return NewRedisStateWriterWithClient(client), nil
}

// NewRedisStateWriterWithClient wraps an existing client.
func NewRedisStateWriterWithClient(c RedisClientInterface) *RedisStateWriter {
	return &RedisStateWriter{client: c, timeout: 2 * time.Second}
}

func positionKey(clusterID, droneID string) string {
	return fmt.Sprintf("dronedash:%s:drone:%s", clusterID, droneID)
}

func activeAlertKey(clusterID string) string {
	return fmt.Sprintf("dronedash:%s:alert:active", clusterID)
}

func (w *RedisStateWriter) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), w.timeout)
}

// Write caches the row as the drone's latest position.
func (w *RedisStateWriter) Write(row telemetry.PositionRow) error {
	data, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("failed to marshal position: %w", err)
	}
	ctx, cancel := w.ctx()
	defer cancel()
	return w.client.Set(ctx, positionKey(row.ClusterID, row.DroneID), data, PositionTTL).Err()
}

// WriteAlert caches raised alerts until they expire and clears the cache
// when the cached alert expires or is dismissed.
func (w *RedisStateWriter) WriteAlert(row telemetry.AlertRow) error {
	ctx, cancel := w.ctx()
	defer cancel()
	key := activeAlertKey(row.ClusterID)
	if row.State == telemetry.AlertRaised {
		data, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("failed to marshal alert: %w", err)
		}
		ttl := row.ExpiresAt.Sub(row.Timestamp)
		if ttl <= 0 {
			ttl = time.Second
		}
		return w.client.Set(ctx, key, data, ttl).Err()
	}
	cur, ok, err := w.getAlert(ctx, key)
	if err != nil || !ok {
		return err
	}
	if row.State == telemetry.AlertDismissed || cur.AlertID == row.AlertID {
		return w.client.Del(ctx, key).Err()
	}
	return nil
}

// LatestPosition returns the cached position of a drone.
func (w *RedisStateWriter) LatestPosition(ctx context.Context, clusterID, droneID string) (telemetry.PositionRow, bool, error) {
	var row telemetry.PositionRow
	ok, err := w.get(ctx, positionKey(clusterID, droneID), &row)
	return row, ok, err
}

// ActiveAlert returns the cached visible alert.
func (w *RedisStateWriter) ActiveAlert(ctx context.Context, clusterID string) (telemetry.AlertRow, bool, error) {
	return w.getAlert(ctx, activeAlertKey(clusterID))
}

func (w *RedisStateWriter) getAlert(ctx context.Context, key string) (telemetry.AlertRow, bool, error) {
	var row telemetry.AlertRow
	ok, err := w.get(ctx, key, &row)
	return row, ok, err
}

func (w *RedisStateWriter) get(ctx context.Context, key string, target any) (bool, error) {
	data, err := w.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, target); err != nil {
		return false, fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}
	return true, nil
}

// Close closes the Redis connection.
func (w *RedisStateWriter) Close() error {
	return w.client.Close()
}
