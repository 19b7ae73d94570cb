package orchestrator

import (
	"context"

	redis "github.com/redis/go-redis/v9"

	"github.com/local/pdftools/internal/statuscheck"
)

// redisPinger wraps *redis.Client to match statuscheck.RedisPinger.
type redisPinger struct {
	client *redis.Client
}

func NewRedisPinger(client *redis.Client) statuscheck.RedisPinger {
	return &redisPinger{client: client}
}

func (r *redisPinger) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
