package redisclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"storefront/internal/models"

	"github.com/go-redis/redis/v8"
)

type Client struct {
	rdb     *redis.Client
	cartTTL time.Duration
}

// NewClient connects to Redis and verifies the connection with a ping
func NewClient(addr, password string, db int, cartTTL time.Duration) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb, cartTTL: cartTTL}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping is used by the readiness probe.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func cartKey(cartID string) string {
	return "cart:" + cartID
}

func idempotencyKey(key string) string {
	return "idempotency:" + key
}

// LoadCart returns the stored cart, or an empty one when nothing is stored under id.
func (c *Client) LoadCart(ctx context.Context, cartID string) (*models.Cart, error) {
	data, err := c.rdb.Get(ctx, cartKey(cartID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.NewCart(cartID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	var cart models.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, fmt.Errorf("failed to decode cart: %w", err)
	}
	cart.ID = cartID
	if cart.Items == nil {
		cart.Items = []models.CartItem{}
	}
	return &cart, nil
}

// SaveCart persists the cart and refreshes its TTL. Empty carts are deleted.
func (c *Client) SaveCart(ctx context.Context, cart *models.Cart) error {
	if cart.IsEmpty() {
		return c.DeleteCart(ctx, cart.ID)
	}

	cart.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("failed to encode cart: %w", err)
	}

	if err := c.rdb.Set(ctx, cartKey(cart.ID), data, c.cartTTL).Err(); err != nil {
		return fmt.Errorf("failed to save cart: %w", err)
	}
	return nil
}

// DeleteCart removes a stored cart
func (c *Client) DeleteCart(ctx context.Context, cartID string) error {
	if err := c.rdb.Del(ctx, cartKey(cartID)).Err(); err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	return nil
}

// ClaimIdempotencyKey sets the key only if absent. It returns false when the
// key was already claimed within its TTL.
func (c *Client) ClaimIdempotencyKey(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := c.rdb.SetNX(ctx, idempotencyKey(key), "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim idempotency key: %w", err)
	}
	return ok, nil
}

// ReleaseIdempotencyKey drops a claim so the same delivery can be retried
func (c *Client) ReleaseIdempotencyKey(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, idempotencyKey(key)).Err()
}
