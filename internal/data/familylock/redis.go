package familylock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/briefs-backend/internal/pkg/dbctx"
)

var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a lease-based lock shared by every process using the same Redis. The TTL bounds
// how long a crashed holder can keep a family blocked.
type Redis struct {
	rdb    *goredis.Client
	prefix string
	ttl    time.Duration
}

func NewRedis(rdb *goredis.Client, prefix string, ttl time.Duration) (*Redis, error) {
	if rdb == nil {
		return nil, errors.New("redis client required")
	}
	if prefix == "" {
		prefix = DefaultNamespace
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Redis{rdb: rdb, prefix: prefix, ttl: ttl}, nil
}

func (r *Redis) TxScoped() bool { return false }

func (r *Redis) Name() string { return "redis" }

func (r *Redis) key(rootID uuid.UUID) string { return r.prefix + ":" + rootID.String() }

func (r *Redis) TryLock(dbc dbctx.Context, rootID uuid.UUID) (func(), error) {
	ctx := dbc.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	token := uuid.NewString()
	key := r.key(rootID)
	ok, err := r.rdb.SetNX(ctx, key, token, r.ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrBusy
	}
	return func() {
		// the caller's context may already be cancelled; release must still happen
		rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = releaseScript.Run(rctx, r.rdb, []string{key}, token).Err()
	}, nil
}
