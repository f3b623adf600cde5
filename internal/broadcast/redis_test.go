package broadcast

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestRedisPublishesJSON(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(func() { mr.Close() })

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	ctx := context.Background()
	sub := rdb.Subscribe(ctx, "arena:notify:player:alice")
	t.Cleanup(func() { sub.Close() })
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	NewRedis(rdb).PublishToPlayer(ctx, "alice", map[string]string{"kind": "queue_timeout"})

	select {
	case msg := <-sub.Channel():
		var decoded map[string]string
		if err := json.Unmarshal([]byte(msg.Payload), &decoded); err != nil {
			t.Fatalf("payload not JSON: %v", err)
		}
		if decoded["kind"] != "queue_timeout" {
			t.Fatalf("unexpected payload: %v", decoded)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no message received")
	}
}
