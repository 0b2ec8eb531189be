// Package rediscache guarda o último retrato conhecido de cada processo e
// aplica o rate-limit compartilhado entre instâncias.
package rediscache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/JusTrack/JusTrack/internal/models"
)

type RedisCache struct {
	c *redis.Client
}

func New(addr string) *RedisCache {
	return &RedisCache{
		c: redis.NewClient(&redis.Options{
			Addr: addr,
		}),
	}
}

// ChaveProcesso é a chave canônica do retrato de um processo num tribunal.
func ChaveProcesso(processoID, tribunalID string) string {
	return "processo:" + processoID + ":" + tribunalID
}

func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := r.c.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "redis get")
	}
	return val, true, nil
}

func (r *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.c.Set(ctx, key, value, ttl).Err(); err != nil {
		return errors.Wrap(err, "redis set")
	}
	return nil
}

func (r *RedisCache) Delete(ctx context.Context, key string) error {
	if err := r.c.Del(ctx, key).Err(); err != nil {
		return errors.Wrap(err, "redis del")
	}
	return nil
}

// GetProcesso lê o retrato em cache, se houver.
func (r *RedisCache) GetProcesso(ctx context.Context, processoID, tribunalID string) (*models.ProcessoTribunalData, bool, error) {
	b, ok, err := r.Get(ctx, ChaveProcesso(processoID, tribunalID))
	if err != nil || !ok {
		return nil, false, err
	}
	var d models.ProcessoTribunalData
	if err := json.Unmarshal(b, &d); err != nil {
		// entrada corrompida conta como ausente
		return nil, false, nil
	}
	return &d, true, nil
}

// SetProcesso grava o retrato com o TTL dado.
func (r *RedisCache) SetProcesso(ctx context.Context, processoID, tribunalID string, d *models.ProcessoTribunalData, ttl time.Duration) error {
	b, err := json.Marshal(d)
	if err != nil {
		return errors.Wrap(err, "marshal processo")
	}
	return r.Set(ctx, ChaveProcesso(processoID, tribunalID), b, ttl)
}

// InvalidarProcesso remove o retrato; a próxima leitura volta ao histórico.
func (r *RedisCache) InvalidarProcesso(ctx context.Context, processoID, tribunalID string) error {
	return r.Delete(ctx, ChaveProcesso(processoID, tribunalID))
}
