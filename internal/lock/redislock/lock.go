package redislock

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spigell/hh-interviewer/internal/interview"
	"github.com/spigell/hh-interviewer/internal/utils"
)

const (
	defaultPrefix        = "hh-interviewer:lock:"
	defaultTTL           = 2 * time.Minute
	defaultRetryInterval = 50 * time.Millisecond
	defaultWaitTimeout   = time.Minute
)

// ErrTimeout is returned when the lock stayed taken for the whole wait timeout.
var ErrTimeout = errors.New("timed out waiting for lock")

// releaseScript deletes the key only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type Options struct {
	Prefix        string
	TTL           time.Duration
	RetryInterval time.Duration
	WaitTimeout   time.Duration
	Logger        *zap.Logger
}

// Locker is a Redis SET NX lease lock shared by every engine instance
// pointing at the same Redis. Leases expire after TTL so a crashed holder
// cannot block a session forever.
type Locker struct {
	rdb           redis.UniversalClient
	prefix        string
	ttl           time.Duration
	retryInterval time.Duration
	waitTimeout   time.Duration
	logger        *zap.Logger
}

var _ interview.Locker = (*Locker)(nil)

func New(rdb redis.UniversalClient, opts Options) *Locker {
	prefix := opts.Prefix
	if strings.TrimSpace(prefix) == "" {
		prefix = defaultPrefix
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	retry := opts.RetryInterval
	if retry <= 0 {
		retry = defaultRetryInterval
	}
	wait := opts.WaitTimeout
	if wait <= 0 {
		wait = defaultWaitTimeout
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &Locker{
		rdb:           rdb,
		prefix:        prefix,
		ttl:           ttl,
		retryInterval: retry,
		waitTimeout:   wait,
		logger:        log,
	}
}

func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := l.prefix + key
	token := uuid.NewString()

	waitCtx, cancel := context.WithTimeout(ctx, l.waitTimeout)
	defer cancel()

	for {
		ok, err := l.rdb.SetNX(waitCtx, redisKey, token, l.ttl).Result()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			if errors.Is(waitCtx.Err(), context.DeadlineExceeded) {
				return nil, fmt.Errorf("%w: %s", ErrTimeout, key)
			}
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			break
		}

		if err := utils.WaitFor(waitCtx, l.retryInterval); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("%w: %s", ErrTimeout, key)
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := releaseScript.Run(releaseCtx, l.rdb, []string{redisKey}, token).Err(); err != nil {
				l.logger.Warn("release redis lock", zap.String("key", redisKey), zap.Error(err))
			}
		})
	}, nil
}
