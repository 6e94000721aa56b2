package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"storefront_service/internal/domain"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// redisCartRepository stores each session cart as one JSON snapshot under
// cart:<sessionID>, read and written whole. Carts are ephemeral: the TTL is
// the session lifetime and expiry simply loses the cart.
type redisCartRepository struct {
	client *redis.Client
	ttl    time.Duration
	log    *logrus.Logger
}

func NewRedisCartRepository(client *redis.Client, ttl time.Duration, logger *logrus.Logger) domain.CartRepository {
	return &redisCartRepository{
		client: client,
		ttl:    ttl,
		log:    logger,
	}
}

func cartKey(sessionID string) string {
	return fmt.Sprintf("cart:%s", sessionID)
}

func (r *redisCartRepository) GetCart(ctx context.Context, sessionID string) (*domain.Cart, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session ID cannot be empty")
	}

	val, err := r.client.Get(ctx, cartKey(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return &domain.Cart{SessionID: sessionID}, nil
	}
	if err != nil {
		r.log.Errorf("Failed to read cart for session %s: %v", sessionID, err)
		return nil, fmt.Errorf("could not read cart: %w", err)
	}

	cart := &domain.Cart{}
	if err := json.Unmarshal([]byte(val), cart); err != nil {
		// A malformed snapshot is dropped rather than poisoning the session.
		r.log.Warnf("Discarding malformed cart snapshot for session %s: %v", sessionID, err)
		return &domain.Cart{SessionID: sessionID}, nil
	}
	cart.SessionID = sessionID

	r.log.Debugf("Cart for session %s loaded with %d entries", sessionID, len(cart.Entries))
	return cart, nil
}

func (r *redisCartRepository) SaveCart(ctx context.Context, cart *domain.Cart) error {
	if cart == nil || cart.SessionID == "" {
		return fmt.Errorf("cart session ID cannot be empty")
	}

	data, err := json.Marshal(cart)
	if err != nil {
		r.log.Errorf("Failed to marshal cart for session %s: %v", cart.SessionID, err)
		return fmt.Errorf("could not encode cart: %w", err)
	}

	if err := r.client.Set(ctx, cartKey(cart.SessionID), data, r.ttl).Err(); err != nil {
		r.log.Errorf("Failed to save cart for session %s: %v", cart.SessionID, err)
		return fmt.Errorf("could not save cart: %w", err)
	}

	r.log.Debugf("Cart for session %s saved with %d entries", cart.SessionID, len(cart.Entries))
	return nil
}

func (r *redisCartRepository) ClearCart(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session ID cannot be empty")
	}

	if err := r.client.Del(ctx, cartKey(sessionID)).Err(); err != nil {
		r.log.Errorf("Failed to clear cart for session %s: %v", sessionID, err)
		return fmt.Errorf("could not clear cart: %w", err)
	}

	r.log.Infof("Cart for session %s cleared", sessionID)
	return nil
}
