package order

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func setupRedisLog(t *testing.T) *RedisLog {
	t.Helper()

	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	log := NewRedisLogFromClient(client, "test:orders")

	t.Cleanup(func() {
		_ = log.Close()
	})

	return log
}

func TestRedisLogAppendAndList(t *testing.T) {
	log := setupRedisLog(t)
	ctx := context.Background()

	first := newTestOrder(t, "mouse", 500)
	second := newTestOrder(t, "keyboard", 800)

	if err := log.Append(ctx, first); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := log.Append(ctx, second); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	orders, err := log.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(orders) != 2 {
		t.Fatalf("got %d orders, want 2", len(orders))
	}
	if orders[0].ID != first.ID || orders[1].ID != second.ID {
		t.Errorf("append order not preserved: %s, %s", orders[0].ID, orders[1].ID)
	}
}

func TestRedisLogUpdateStatus(t *testing.T) {
	log := setupRedisLog(t)
	ctx := context.Background()

	o := newTestOrder(t, "mouse", 500)
	if err := log.Append(ctx, o); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	if err := log.UpdateStatus(ctx, o.ID, StatusDelivered); err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}

	got, err := log.Get(ctx, o.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Status != StatusDelivered {
		t.Errorf("status = %s, want %s", got.Status, StatusDelivered)
	}
}

func TestRedisLogUpdateStatusUnknownOrder(t *testing.T) {
	log := setupRedisLog(t)

	err := log.UpdateStatus(context.Background(), "ORD-missing", StatusShipped)
	if err != ErrOrderNotFound {
		t.Errorf("err = %v, want ErrOrderNotFound", err)
	}
}

func TestRedisLogClosed(t *testing.T) {
	log := setupRedisLog(t)
	if err := log.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if err := log.Append(context.Background(), newTestOrder(t, "mouse", 500)); err != ErrLogClosed {
		t.Errorf("err = %v, want ErrLogClosed", err)
	}
}
