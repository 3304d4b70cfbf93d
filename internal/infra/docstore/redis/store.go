// Package redis implements the document store on Redis. Each document is a
// JSON string value. A per-collection set records the ids it holds, and
// per-field sets index documents by their owner ids:
//
//	{prefix}:doc:{collection}:{id}
//	{prefix}:ids:{collection}
//	{prefix}:idx:{collection}:{field}:{value}
package redis

import (
	"carecore/internal/docstore/core"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	goredis "github.com/go-redis/redis/v8"
)

// Options configures the client.
type Options struct {
	Addr     string
	Password string
	DB       int
	Prefix   string // key namespace, default "carecore"
}

// Store persists documents in Redis.
type Store struct {
	client *goredis.Client
	prefix string
}

// New connects to opts.Addr and verifies the connection.
func New(ctx context.Context, opts Options) (*Store, error) {
	if opts.Addr == "" {
		opts.Addr = "localhost:6379"
	}
	client := goredis.NewClient(&goredis.Options{Addr: opts.Addr, Password: opts.Password, DB: opts.DB})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewWithClient(client, opts.Prefix), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *goredis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = "carecore"
	}
	return &Store{client: client, prefix: prefix}
}

// Driver returns the driver identifier.
func (s *Store) Driver() core.Driver { return core.DriverRedis }

// Close closes the client.
func (s *Store) Close() error { return s.client.Close() }

func (s *Store) docKey(collection core.Collection, id string) string {
	return fmt.Sprintf("%s:doc:%s:%s", s.prefix, collection, id)
}

func (s *Store) idsKey(collection core.Collection) string {
	return fmt.Sprintf("%s:ids:%s", s.prefix, collection)
}

func (s *Store) idxKey(collection core.Collection, field, value string) string {
	return fmt.Sprintf("%s:idx:%s:%s:%s", s.prefix, collection, field, value)
}

// indexedFields are the owner references queries filter on.
var indexedFields = []string{"caregiver_id", "recipient_id", "collection_id"}

func indexed(field string) bool {
	for _, f := range indexedFields {
		if f == field {
			return true
		}
	}
	return false
}

// owners extracts the indexed string fields of doc. A nil doc has none.
func owners(doc []byte) map[string]string {
	out := map[string]string{}
	if doc == nil {
		return out
	}
	obj := map[string]json.RawMessage{}
	if err := json.Unmarshal(doc, &obj); err != nil {
		return out
	}
	for _, f := range indexedFields {
		var v string
		if raw, ok := obj[f]; ok && json.Unmarshal(raw, &v) == nil && v != "" {
			out[f] = v
		}
	}
	return out
}

// reindex moves id between index sets as its owner fields change.
func (s *Store) reindex(ctx context.Context, pipe goredis.Pipeliner, collection core.Collection, id string, before, after map[string]string) {
	for _, f := range indexedFields {
		old, had := before[f]
		cur, has := after[f]
		if had && (!has || old != cur) {
			pipe.SRem(ctx, s.idxKey(collection, f, old), id)
		}
		if has {
			pipe.SAdd(ctx, s.idxKey(collection, f, cur), id)
		}
	}
}

const maxRetries = 5

// watch runs fn under WATCH key, retrying when another writer got there first.
func (s *Store) watch(ctx context.Context, key string, fn func(*goredis.Tx) error) error {
	for i := 0; i < maxRetries; i++ {
		err := s.client.Watch(ctx, fn, key)
		if errors.Is(err, goredis.TxFailedErr) {
			continue
		}
		return err
	}
	return errors.New("too many concurrent writers")
}

func current(ctx context.Context, tx *goredis.Tx, key string) ([]byte, error) {
	doc, err := tx.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	return doc, err
}

// Set writes the document, registers its id and updates the owner indexes
// in one MULTI block.
func (s *Store) Set(ctx context.Context, collection core.Collection, id string, doc any) error {
	if err := core.ValidateKey(collection, id); err != nil {
		return err
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", collection, id, err)
	}
	key := s.docKey(collection, id)
	err = s.watch(ctx, key, func(tx *goredis.Tx) error {
		prev, err := current(ctx, tx, key)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, key, b, 0)
			pipe.SAdd(ctx, s.idsKey(collection), id)
			s.reindex(ctx, pipe, collection, id, owners(prev), owners(b))
			return nil
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("set %s/%s: %w", collection, id, err)
	}
	return nil
}

// Update merges fields under WATCH so concurrent writers retry instead of
// losing each other's fields.
func (s *Store) Update(ctx context.Context, collection core.Collection, id string, fields map[string]any) error {
	key := s.docKey(collection, id)
	err := s.watch(ctx, key, func(tx *goredis.Tx) error {
		doc, err := current(ctx, tx, key)
		if err != nil {
			return err
		}
		if doc == nil {
			return core.NotFound(collection, id)
		}
		merged, err := core.Merge(doc, fields)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, key, merged, 0)
			s.reindex(ctx, pipe, collection, id, owners(doc), owners(merged))
			return nil
		})
		return err
	})
	if err != nil && !errors.Is(err, core.ErrNotFound) {
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	return err
}

// Delete removes the document, its id registration and its index entries.
func (s *Store) Delete(ctx context.Context, collection core.Collection, id string) error {
	key := s.docKey(collection, id)
	err := s.watch(ctx, key, func(tx *goredis.Tx) error {
		prev, err := current(ctx, tx, key)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Del(ctx, key)
			pipe.SRem(ctx, s.idsKey(collection), id)
			s.reindex(ctx, pipe, collection, id, owners(prev), nil)
			return nil
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	return nil
}

// Get decodes one document into out.
func (s *Store) Get(ctx context.Context, collection core.Collection, id string, out any) error {
	b, err := s.client.Get(ctx, s.docKey(collection, id)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return core.NotFound(collection, id)
	}
	if err != nil {
		return fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return json.Unmarshal(b, out)
}

// Query reads the matching ids from an owner index, or the whole collection
// for other fields, and loads those documents.
func (s *Store) Query(ctx context.Context, collection core.Collection, filter core.Filter) ([][]byte, error) {
	set := s.idsKey(collection)
	if indexed(filter.Field) {
		set = s.idxKey(collection, filter.Field, filter.Value)
	}
	ids, err := s.client.SMembers(ctx, set).Result()
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	sort.Strings(ids)
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.docKey(collection, id)
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", collection, err)
	}
	var out [][]byte
	for _, v := range vals {
		str, ok := v.(string)
		if !ok {
			continue
		}
		if core.Matches([]byte(str), filter) {
			out = append(out, []byte(str))
		}
	}
	return out, nil
}
