package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"votebooth/internal/otp"
	"votebooth/pkg/platform/sentinel"
)

const otpKeyPrefix = "votebooth:otp:"

// Redis stores codes with a native key TTL so every server instance sees the
// same entry and Redis discards it on expiry.
type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (s *Redis) Put(ctx context.Context, contact string, entry otp.Entry, ttl time.Duration) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal otp entry: %w", err)
	}
	return s.client.Set(ctx, otpKeyPrefix+contact, payload, ttl).Err()
}

func (s *Redis) Get(ctx context.Context, contact string) (*otp.Entry, error) {
	return getEntry(ctx, s.client, otpKeyPrefix+contact)
}

func (s *Redis) Delete(ctx context.Context, contact string) error {
	return s.client.Del(ctx, otpKeyPrefix+contact).Err()
}

// DeleteIf watches the key so a Put landing between the read and the delete
// aborts the delete instead of losing the newer code.
func (s *Redis) DeleteIf(ctx context.Context, contact string, entry otp.Entry) error {
	key := otpKeyPrefix + contact
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := getEntry(ctx, tx, key)
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if !current.Same(entry) {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			return nil
		})
		return err
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("conditional delete otp entry: %w", err)
	}
	return nil
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func getEntry(ctx context.Context, c getter, key string) (*otp.Entry, error) {
	raw, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get otp entry: %w", err)
	}
	var entry otp.Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, fmt.Errorf("decode otp entry: %w", err)
	}
	return &entry, nil
}
