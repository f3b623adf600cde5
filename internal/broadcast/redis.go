package broadcast

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/indichess/arena/internal/obslog"
)

// Redis publishes JSON messages on per-session and per-player pub/sub
// channels. Subscribing transports (websocket fanout etc.) live outside
// the core.
type Redis struct {
	rdb *redis.Client
}

func NewRedis(rdb *redis.Client) *Redis { return &Redis{rdb: rdb} }

func (r *Redis) PublishToSession(ctx context.Context, sessionID string, message any) {
	r.publish(ctx, chanSession(sessionID), message)
}

func (r *Redis) PublishToPlayer(ctx context.Context, playerID string, message any) {
	r.publish(ctx, chanPlayer(playerID), message)
}

func (r *Redis) publish(ctx context.Context, channel string, message any) {
	if r == nil || r.rdb == nil {
		return
	}
	raw, err := json.Marshal(message)
	if err != nil {
		obslog.L().Warn("broadcast_encode_error", zap.String("channel", channel), zap.Error(err))
		return
	}
	// at-most-once: a publish error is logged and dropped
	if err := r.rdb.Publish(ctx, channel, raw).Err(); err != nil {
		obslog.L().Warn("broadcast_publish_error", zap.String("channel", channel), zap.Error(err))
	}
}

func chanSession(id string) string { return "arena:notify:session:" + strings.TrimSpace(id) }
func chanPlayer(id string) string  { return "arena:notify:player:" + strings.TrimSpace(id) }
