// Package redislock provides a single-holder lease on a Redis key, used to keep
// background jobs from running on more than one replica at a time.
package redislock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotReady is returned when Redis cannot be reached at startup.
var ErrNotReady = errors.New("redis not ready")

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Connect parses url and pings the server, retrying up to attempts times.
func Connect(ctx context.Context, url string, attempts int, interval time.Duration) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if attempts < 1 {
		attempts = 1
	}

	for range attempts {
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err == nil {
			return client, nil
		}
		_ = client.Close()

		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrNotReady, ctx.Err())
		case <-time.After(interval):
		}
	}
	return nil, ErrNotReady
}

// Locker hands out leases on keys under a common prefix.
type Locker struct {
	client *redis.Client
	prefix string
}

// New creates a Locker.
func New(client *redis.Client, prefix string) *Locker {
	return &Locker{client: client, prefix: prefix}
}

// TryLock takes the lease on key for ttl. ok is false when another holder has it.
// The returned release func is a no-op when ok is false.
func (l *Locker) TryLock(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error) {
	token, err := newToken()
	if err != nil {
		return func() {}, false, err
	}

	full := l.prefix + key
	ok, err = l.client.SetNX(ctx, full, token, ttl).Result()
	if err != nil {
		return func() {}, false, fmt.Errorf("acquire lock %s: %w", full, err)
	}
	if !ok {
		return func() {}, false, nil
	}

	release = func() {
		_ = releaseScript.Run(context.WithoutCancel(ctx), l.client, []string{full}, token).Err()
	}
	return release, true, nil
}

func newToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate lock token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
