package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vibast-solutions/ms-go-passes/app/entity"
)

const passKeyPrefix = "passes:order:"

type cachedPass struct {
	ID           string               `json:"id"`
	UserID       string               `json:"userId"`
	PassType     string               `json:"passType"`
	Amount       int64                `json:"amount"`
	PaymentID    string               `json:"paymentId"`
	Status       string               `json:"status"`
	QRCode       string               `json:"qrCode"`
	TeamSnapshot *entity.TeamSnapshot `json:"teamSnapshot,omitempty"`
	CreatedAt    time.Time            `json:"createdAt"`
}

// PassCache maps a gateway order id to the pass issued for it. It is a read
// shortcut only; the passes table stays the source of truth.
type PassCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewPassCache(client redis.Cmdable, ttl time.Duration) *PassCache {
	return &PassCache{client: client, ttl: ttl}
}

// NewRedisClient builds a client from a redis:// URL, falling back to a bare
// address when the value does not parse as a URL.
func NewRedisClient(url string) *redis.Client {
	opts, err := redis.ParseURL(url)
	if err != nil {
		opts = &redis.Options{Addr: url}
	}
	opts.PoolSize = 20
	opts.MinIdleConns = 2
	opts.MaxRetries = 3
	return redis.NewClient(opts)
}

func passKey(orderID string) string {
	return passKeyPrefix + orderID
}

// Get returns nil without error on a cache miss.
func (c *PassCache) Get(ctx context.Context, orderID string) (*entity.Pass, error) {
	raw, err := c.client.Get(ctx, passKey(orderID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var item cachedPass
	if err := json.Unmarshal([]byte(raw), &item); err != nil {
		return nil, err
	}
	return item.toEntity(), nil
}

func (c *PassCache) Set(ctx context.Context, pass *entity.Pass) error {
	payload, err := json.Marshal(fromEntity(pass))
	if err != nil {
		return err
	}
	return c.client.Set(ctx, passKey(pass.PaymentID), string(payload), c.ttl).Err()
}

func (c *PassCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func fromEntity(pass *entity.Pass) cachedPass {
	return cachedPass{
		ID:           pass.ID,
		UserID:       pass.UserID,
		PassType:     pass.PassType,
		Amount:       pass.Amount,
		PaymentID:    pass.PaymentID,
		Status:       pass.Status,
		QRCode:       pass.QRCode,
		TeamSnapshot: pass.TeamSnapshot,
		CreatedAt:    pass.CreatedAt,
	}
}

func (c cachedPass) toEntity() *entity.Pass {
	return &entity.Pass{
		ID:           c.ID,
		UserID:       c.UserID,
		PassType:     c.PassType,
		Amount:       c.Amount,
		PaymentID:    c.PaymentID,
		Status:       c.Status,
		QRCode:       c.QRCode,
		TeamSnapshot: c.TeamSnapshot,
		CreatedAt:    c.CreatedAt,
	}
}
