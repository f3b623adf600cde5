package store

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/indichess/arena/internal/domain"
)

// Session records outlive any single process but are not kept forever in
// redis; long-term archival belongs to the postgres archive.
const ttlSession = 7 * 24 * time.Hour

// Redis stores sessions and players as JSON values with per-player index
// sets so FindSessionsFor stays a set lookup instead of a scan.
type Redis struct {
	rdb *redis.Client
}

// NewRedis connects using a redis:// URL and verifies the connection.
func NewRedis(redisURL string) (*Redis, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("REDIS_URL required for session store")
	}
	opts, err := parseRedisURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Redis{rdb: rdb}, nil
}

// NewRedisFromClient wraps an existing client (tests, shared pools).
func NewRedisFromClient(rdb *redis.Client) *Redis { return &Redis{rdb: rdb} }

func (r *Redis) Close() error {
	if r == nil || r.rdb == nil {
		return nil
	}
	return r.rdb.Close()
}

func (r *Redis) Load(ctx context.Context, id string) (*domain.Session, error) {
	raw, err := r.rdb.Get(ctx, keySession(id)).Bytes()
	if err == redis.Nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	var s domain.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	return &s, nil
}

func (r *Redis) Save(ctx context.Context, s *domain.Session) (*domain.Session, error) {
	if s == nil {
		return nil, fmt.Errorf("nil session")
	}
	cp := s.Clone()
	if strings.TrimSpace(cp.ID) == "" {
		cp.ID = uuid.NewString()
	}
	raw, err := json.Marshal(cp)
	if err != nil {
		return nil, err
	}
	if err := r.rdb.Set(ctx, keySession(cp.ID), raw, ttlSession).Err(); err != nil {
		return nil, err
	}
	if err := r.indexParticipants(ctx, cp); err != nil {
		return nil, err
	}
	return cp, nil
}

func (r *Redis) FindSessionsFor(ctx context.Context, player string) ([]*domain.Session, error) {
	if strings.TrimSpace(player) == "" {
		return nil, nil
	}
	ids, err := r.rdb.SMembers(ctx, keyPlayerIdx(player)).Result()
	if err != nil {
		return nil, err
	}
	var list []*domain.Session
	for _, id := range ids {
		s, lerr := r.Load(ctx, id)
		if lerr != nil {
			continue // expired entries linger in the index
		}
		list = append(list, s)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].UpdatedAt.After(list[j].UpdatedAt) })
	return list, nil
}

func (r *Redis) LoadPlayer(ctx context.Context, id string) (*domain.Player, error) {
	raw, err := r.rdb.Get(ctx, keyPlayer(id)).Bytes()
	if err == redis.Nil {
		return nil, fmt.Errorf("%w: %s", ErrPlayerNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	var p domain.Player
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode player %s: %w", id, err)
	}
	return &p, nil
}

func (r *Redis) SavePlayer(ctx context.Context, p *domain.Player) error {
	if p == nil || strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("player id required")
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return r.rdb.Set(ctx, keyPlayer(p.ID), raw, 0).Err()
}

func (r *Redis) indexParticipants(ctx context.Context, s *domain.Session) error {
	for _, id := range []string{s.WhiteID, s.BlackID} {
		if strings.TrimSpace(id) == "" {
			continue
		}
		key := keyPlayerIdx(id)
		if err := r.rdb.SAdd(ctx, key, s.ID).Err(); err != nil {
			return err
		}
		// keep index TTL in step with the session records
		_ = r.rdb.Expire(ctx, key, ttlSession).Err()
	}
	return nil
}

func keySession(id string) string   { return "arena:session:" + strings.TrimSpace(id) }
func keyPlayer(id string) string    { return "arena:player:" + strings.TrimSpace(id) }
func keyPlayerIdx(id string) string { return "arena:index:player:" + strings.TrimSpace(id) }

func parseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			db = n
		}
	}
	pass, _ := u.User.Password()
	return &redis.Options{Addr: u.Host, Password: pass, DB: db}, nil
}
