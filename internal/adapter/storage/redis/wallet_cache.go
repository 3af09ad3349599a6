package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"

	goredis "github.com/redis/go-redis/v9"
)

// setIfNewer writes the wallet unless the entry already holds the same or
// a later version.
//
// KEYS[1] wallet key; ARGV[1] version, ARGV[2] JSON, ARGV[3] ttl in ms.
var setIfNewer = goredis.NewScript(`
local current = redis.call('HGET', KEYS[1], 'version')
if current and tonumber(current) >= tonumber(ARGV[1]) then
	return 0
end
redis.call('HSET', KEYS[1], 'version', ARGV[1], 'data', ARGV[2])
if tonumber(ARGV[3]) > 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[3])
end
return 1
`)

// WalletCache implements ports.WalletCache. Each wallet is a hash holding
// its version next to the JSON document.
type WalletCache struct {
	client *goredis.Client
	prefix string
	ttl    time.Duration
}

var _ ports.WalletCache = (*WalletCache)(nil)

// NewWalletCache creates a cache whose entries live for ttl.
func NewWalletCache(client *goredis.Client, ttl time.Duration) *WalletCache {
	return &WalletCache{
		client: client,
		prefix: "wallet:",
		ttl:    ttl,
	}
}

// Get returns nil, nil on a miss.
func (c *WalletCache) Get(ctx context.Context, ownerKey string) (*domain.Wallet, error) {
	val, err := c.client.HGet(ctx, c.prefix+ownerKey, "data").Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis wallet get: %w", err)
	}

	var w domain.Wallet
	if err := json.Unmarshal(val, &w); err != nil {
		return nil, fmt.Errorf("decode cached wallet: %w", err)
	}
	return &w, nil
}

// Set stores w unless the cached entry is already at w.Version or later.
func (c *WalletCache) Set(ctx context.Context, w *domain.Wallet) error {
	val, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("encode wallet: %w", err)
	}
	args := []any{w.Version, val, c.ttl.Milliseconds()}
	if err := setIfNewer.Run(ctx, c.client, []string{c.prefix + w.OwnerKey}, args...).Err(); err != nil {
		return fmt.Errorf("redis wallet set: %w", err)
	}
	return nil
}

func (c *WalletCache) Invalidate(ctx context.Context, ownerKey string) error {
	if err := c.client.Del(ctx, c.prefix+ownerKey).Err(); err != nil {
		return fmt.Errorf("redis wallet del: %w", err)
	}
	return nil
}
