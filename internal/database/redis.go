package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisDB struct {
	Client *redis.Client
}

// Redis holds small values only (cached QR PNGs, album sets, rate-limit
// counters), so timeouts are tight and the pool stays modest.
const (
	redisDialTimeout  = 5 * time.Second
	redisReadTimeout  = 2 * time.Second
	redisWriteTimeout = 2 * time.Second
	redisPoolSize     = 12
	redisMinIdleConns = 2
)

var (
	newRedisClient = redis.NewClient
	redisPing      = func(ctx context.Context, client *redis.Client) error {
		return client.Ping(ctx).Err()
	}
)

func NewRedisDB(addr, password string, db int) (*RedisDB, error) {
	client := newRedisClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  redisDialTimeout,
		ReadTimeout:  redisReadTimeout,
		WriteTimeout: redisWriteTimeout,
		PoolSize:     redisPoolSize,
		MinIdleConns: redisMinIdleConns,
	})

	ctx, cancel := context.WithTimeout(context.Background(), redisDialTimeout)
	defer cancel()

	if err := redisPing(ctx, client); err != nil {
		return nil, fmt.Errorf("pinging redis: %w", err)
	}

	return &RedisDB{Client: client}, nil
}

func (r *RedisDB) Close() error {
	if r.Client != nil {
		return r.Client.Close()
	}
	return nil
}

func (r *RedisDB) Health(ctx context.Context) error {
	return redisPing(ctx, r.Client)
}
