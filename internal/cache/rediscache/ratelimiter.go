package rediscache

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

type RateLimiter struct {
	c   *redis.Client
	now func() time.Time
}

func NewRateLimiter(addr string) *RateLimiter {
	return &RateLimiter{
		c:   redis.NewClient(&redis.Options{Addr: addr}),
		now: time.Now,
	}
}

// Allow conta a chamada na janela corrente da chave (INCR + TTL na criação)
// e informa se o limite ainda comporta. A contagem é compartilhada por todas
// as instâncias que apontam para o mesmo Redis.
func (rl *RateLimiter) Allow(ctx context.Context, chave string, limite int, janela time.Duration) (bool, error) {
	bucket := rl.now().UTC().Truncate(janela).Unix()
	key := "rl:" + chave + ":" + time.Unix(bucket, 0).UTC().Format("20060102150405")

	pipe := rl.c.TxPipeline()
	incr := pipe.Incr(ctx, key)
	// TTL um pouco maior que a janela, para a chave sumir sozinha.
	pipe.Expire(ctx, key, janela+10*time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, errors.Wrap(err, "redis ratelimit")
	}
	return incr.Val() <= int64(limite), nil
}
