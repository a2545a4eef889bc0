package rate

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "rate_limit:"

// INCR and the first-hit EXPIRE run together so a crash between the two can
// never leave a counter without a TTL.
const incrWithTTLScript = `
local count = redis.call("INCR", KEYS[1])
if count == 1 then
	redis.call("EXPIRE", KEYS[1], ARGV[1])
end
return count
`

var incrWithTTLLua = redis.NewScript(incrWithTTLScript)

// RedisBackend is a fixed-window counter shared across instances.
type RedisBackend struct {
	redis  redis.UniversalClient
	policy Policy
}

// NewRedisBackend returns a backend over client.
func NewRedisBackend(client redis.UniversalClient, policy Policy) *RedisBackend {
	return &RedisBackend{redis: client, policy: policy}
}

func (b *RedisBackend) Allow(ctx context.Context, key string) (bool, error) {
	seconds := int64(b.policy.Window.Seconds())
	if seconds < 1 {
		seconds = 1
	}

	count, err := incrWithTTLLua.Run(ctx, b.redis, []string{keyPrefix + key}, seconds).Int64()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return count <= int64(b.policy.MaxRequests), nil
}

func (b *RedisBackend) Reset(ctx context.Context, key string) error {
	if err := b.redis.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return nil
}
