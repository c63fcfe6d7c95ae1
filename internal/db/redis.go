package db

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// OpenRedis opens a Redis client and verifies connectivity with a short ping.
// Caller must call Close when done. Redis holds OTP records and rate-limit counters.
func OpenRedis(addr, password string, dbNum int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       dbNum,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}
