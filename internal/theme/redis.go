package theme

import (
	"context"
	"errors"
	"strings"

	"github.com/redis/go-redis/v9"
)

// RedisBackend keeps themes as plain keys and announces changes on a pub/sub channel per owner.
type RedisBackend struct {
	client *redis.Client
	prefix string
}

func NewRedisBackend(client *redis.Client, prefix string) *RedisBackend {
	p := strings.TrimSpace(prefix)
	if p == "" {
		p = "swiftsnip:theme:"
	}
	return &RedisBackend{client: client, prefix: p}
}

func (r *RedisBackend) key(owner string) string {
	return r.prefix + owner
}

func (r *RedisBackend) channel(owner string) string {
	return r.prefix + "events:" + owner
}

func (r *RedisBackend) Load(ctx context.Context, owner string) (Theme, bool, error) {
	val, err := r.client.Get(ctx, r.key(owner)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, err
	}
	t, err := ParseTheme(val)
	if err != nil {
		return "", false, nil
	}
	return t, true, nil
}

func (r *RedisBackend) Save(ctx context.Context, owner string, t Theme) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.key(owner), string(t), 0)
		pipe.Publish(ctx, r.channel(owner), string(t))
		return nil
	})
	return err
}

func (r *RedisBackend) Subscribe(ctx context.Context, owner string) (<-chan Theme, error) {
	pubsub := r.client.Subscribe(ctx, r.channel(owner))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, err
	}

	out := make(chan Theme, subscriberBuffer)
	go func() {
		defer close(out)
		defer pubsub.Close()

		msgs := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				t, err := ParseTheme(msg.Payload)
				if err != nil {
					continue
				}
				select {
				case out <- t:
				default:
				}
			}
		}
	}()
	return out, nil
}
