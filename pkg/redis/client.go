// Package redis wraps rueidis for three concerns shared across the core:
// the search-result cache, the dual-store repair log, and per-document
// locks.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/rueidis"

	"github.com/qanoon/halp/pkg/config"
)

type RedisClient interface {
	Set(ctx context.Context, key string, value string, expiration time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)

	SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	GetJSON(ctx context.Context, key string, dest interface{}) (bool, error)

	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)
	Unlock(ctx context.Context, key, token string) error

	AppendRepairLog(ctx context.Context, entry string) error
	ListRepairLog(ctx context.Context, limit int64) ([]string, error)

	Ping(ctx context.Context) error
	Close()
}

type Client struct {
	client rueidis.Client
}

var _ RedisClient = (*Client)(nil)

type ClientOptions struct {
	Host     string
	Port     int
	Password string
	DB       int
}

func NewClient(opts ClientOptions) (*Client, error) {
	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress: []string{fmt.Sprintf("%s:%d", opts.Host, opts.Port)},
		Password:    opts.Password,
		SelectDB:    opts.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("create redis client: %w", err)
	}
	return &Client{client: client}, nil
}

func NewClientFromConfig(cfg config.Config) (*Client, error) {
	return NewClient(ClientOptions{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

func (c *Client) Close() { c.client.Close() }

func (c *Client) Set(ctx context.Context, key string, value string, expiration time.Duration) error {
	var cmd rueidis.Completed
	if expiration > 0 {
		cmd = c.client.B().Set().Key(key).Value(value).ExSeconds(int64(expiration.Seconds())).Build()
	} else {
		cmd = c.client.B().Set().Key(key).Value(value).Build()
	}
	return c.client.Do(ctx, cmd).Error()
}

func (c *Client) Get(ctx context.Context, key string) (string, error) {
	cmd := c.client.B().Get().Key(key).Build()
	result := c.client.Do(ctx, cmd)
	if result.Error() != nil {
		if rueidis.IsRedisNil(result.Error()) {
			return "", nil
		}
		return "", result.Error()
	}
	return result.ToString()
}

func (c *Client) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	cmd := c.client.B().Del().Key(keys...).Build()
	return c.client.Do(ctx, cmd).Error()
}

func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	cmd := c.client.B().Exists().Key(key).Build()
	result := c.client.Do(ctx, cmd)
	if result.Error() != nil {
		return false, result.Error()
	}
	count, err := result.ToInt64()
	return count > 0, err
}

func (c *Client) SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := marshalJSON(value)
	if err != nil {
		return fmt.Errorf("marshal json for key %s: %w", key, err)
	}
	return c.Set(ctx, key, string(data), expiration)
}

// GetJSON reports ok=false (with no error) on a cache miss so callers can
// tell "absent" from "present but empty".
func (c *Client) GetJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := c.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if data == "" {
		return false, nil
	}
	if err := unmarshalJSON([]byte(data), dest); err != nil {
		return false, fmt.Errorf("unmarshal json for key %s: %w", key, err)
	}
	return true, nil
}

// TryLock acquires a per-key lock using SET NX PX, used by the ingest
// coordinator to serialize writes to the same document. The returned
// token must be presented to Unlock so a lock can't be released by a
// holder that lost it to TTL expiry and someone else's acquisition.
func (c *Client) TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()
	cmd := c.client.B().Set().Key(lockKey(key)).Value(token).Nx().Px(ttl).Build()
	result := c.client.Do(ctx, cmd)
	if result.Error() != nil {
		if rueidis.IsRedisNil(result.Error()) {
			return "", false, nil
		}
		return "", false, result.Error()
	}
	return token, true, nil
}

func (c *Client) Unlock(ctx context.Context, key, token string) error {
	held, err := c.Get(ctx, lockKey(key))
	if err != nil {
		return err
	}
	if held != token {
		return nil // already expired or taken over by someone else; nothing to release
	}
	return c.Delete(ctx, lockKey(key))
}

func lockKey(key string) string { return "lock:" + key }

const repairLogKey = "repair_log"

func (c *Client) AppendRepairLog(ctx context.Context, entry string) error {
	cmd := c.client.B().Rpush().Key(repairLogKey).Element(entry).Build()
	return c.client.Do(ctx, cmd).Error()
}

func (c *Client) ListRepairLog(ctx context.Context, limit int64) ([]string, error) {
	if limit <= 0 {
		limit = -1
	} else {
		limit = limit - 1
	}
	cmd := c.client.B().Lrange().Key(repairLogKey).Start(0).Stop(limit).Build()
	result := c.client.Do(ctx, cmd)
	if result.Error() != nil {
		return nil, result.Error()
	}
	return result.AsStrSlice()
}

func (c *Client) Ping(ctx context.Context) error {
	cmd := c.client.B().Ping().Build()
	return c.client.Do(ctx, cmd).Error()
}
