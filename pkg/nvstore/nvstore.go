// Package nvstore implements the durable key/value NV store the core
// depends on for every persisted structure: pairing entries, the NIB, ZID
// pair_info, proxy entries, non-std-descriptor fragments, NULL reports, the
// boot flag and the startup-control byte.
//
// Each NV item id becomes one Redis hash; each record within that item (a
// pairing slot, a proxy-entry index, ...) becomes one hash field holding a
// JSON-encoded value, one Redis hash per table with one field per entry.
package nvstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/rf4ce/remoti/internal/obs"
)

// Item identifies an NV item id. Numeric values are stable across boots;
// each item occupies a stable numeric NV item id.
type Item uint16

const (
	ItemBootFlag        Item = 0x0001
	ItemStartupControl  Item = 0x0002
	ItemNIB             Item = 0x0003
	ItemCPTable         Item = 0x0004
	ItemPairingTable    Item = 0x0010
	ItemZIDPairInfo     Item = 0x0020
	ItemProxyEntry      Item = 0x0030
	ItemNonStdDescFrags Item = 0x0031
	ItemNullReport      Item = 0x0032
)

// keyFor builds the Redis key for an NV item. Pure and unit-testable
// without a live Redis instance.
func keyFor(item Item) string {
	return fmt.Sprintf("rf4ce:nv:%04x", uint16(item))
}

// Store is a Redis-backed NV store. One *Store per node (single-node NV,
// per the non-goal against a networked multi-node pairing database).
type Store struct {
	client *redis.Client
	ctx    context.Context
}

// Open creates a Store bound to a Redis instance at addr, DB db.
func Open(addr string, db int) *Store {
	return &Store{
		client: redis.NewClient(&redis.Options{Addr: addr, DB: db}),
		ctx:    context.Background(),
	}
}

// Connect verifies connectivity to the backing Redis instance.
func (s *Store) Connect() error {
	return s.client.Ping(s.ctx).Err()
}

// Close closes the underlying Redis connection.
func (s *Store) Close() error {
	return s.client.Close()
}

// Put writes one record (field) of an NV item. NV writes are treated as
// atomic-but-potentially-slow; failures surface as wrapped errors for the
// caller to retry, mirroring the firmware's OSAL_NV_OPER_FAILED policy.
func (s *Store) Put(item Item, field string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding nv item %04x field %s: %w", uint16(item), field, err)
	}
	key := keyFor(item)
	if err := s.client.HSet(s.ctx, key, field, data).Err(); err != nil {
		obs.WithFields(map[string]interface{}{"item": key, "field": field}).
			WithError(err).Warn("nv store write failed")
		return fmt.Errorf("OSAL_NV_OPER_FAILED writing %s/%s: %w", key, field, err)
	}
	return nil
}

// Get reads one record of an NV item into out. Returns found=false (no
// error) if the field does not exist, matching lookup()'s Option semantics
// for an unused pairing slot.
func (s *Store) Get(item Item, field string, out interface{}) (found bool, err error) {
	key := keyFor(item)
	data, err := s.client.HGet(s.ctx, key, field).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("OSAL_NV_OPER_FAILED reading %s/%s: %w", key, field, err)
	}
	if err := json.Unmarshal([]byte(data), out); err != nil {
		return false, fmt.Errorf("decoding nv item %s/%s: %w", key, field, err)
	}
	return true, nil
}

// Delete removes one record of an NV item.
func (s *Store) Delete(item Item, field string) error {
	key := keyFor(item)
	if err := s.client.HDel(s.ctx, key, field).Err(); err != nil {
		return fmt.Errorf("OSAL_NV_OPER_FAILED deleting %s/%s: %w", key, field, err)
	}
	return nil
}

// Fields lists every record field currently stored under an NV item,
// for iter_active()-style enumeration of occupied pairing-table slots.
func (s *Store) Fields(item Item) ([]string, error) {
	key := keyFor(item)
	vals, err := s.client.HKeys(s.ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("OSAL_NV_OPER_FAILED listing %s: %w", key, err)
	}
	return vals, nil
}

// ClearItem deletes an entire NV item (all of its records). Used for
// set_default_nib / CLEAR_STATE handling.
func (s *Store) ClearItem(item Item) error {
	key := keyFor(item)
	if err := s.client.Del(s.ctx, key).Err(); err != nil {
		return fmt.Errorf("OSAL_NV_OPER_FAILED clearing %s: %w", key, err)
	}
	return nil
}
