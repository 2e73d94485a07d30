// Package redisdb is the ASIC_DB backend: every object is a Redis hash in
// DB 1 keyed "ASIC_STATE:<object type>:oid:0x<id>", and every change is
// announced on ASIC_STATE_CHANNEL for syncd to pick up.
package redisdb

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-redis/redis/v8"
	"github.com/hashicorp/go-multierror"

	"github.com/newtron-network/sairedis/pkg/dispatch"
	"github.com/newtron-network/sairedis/pkg/meta"
	"github.com/newtron-network/sairedis/pkg/registry"
	"github.com/newtron-network/sairedis/pkg/sai"
	"github.com/newtron-network/sairedis/pkg/util"
)

const (
	// ASICDB is the Redis database holding ASIC_STATE.
	ASICDB = 1

	KeyPrefix  = "ASIC_STATE"
	Channel    = "ASIC_STATE_CHANNEL"
	CounterKey = "VIDCOUNTER"
)

var (
	_ dispatch.Handler = (*Backend)(nil)
	_ dispatch.Lister  = (*Backend)(nil)
)

// Options configures a connection.
type Options struct {
	Addr     string
	DB       int
	Password string

	// SSH, when set, reaches Redis through an SSH tunnel to the switch.
	SSH *SSHOptions

	// Schema converts attributes to hash fields; nil uses meta.Default().
	Schema meta.Schema
}

// Backend writes objects to ASIC_DB.
type Backend struct {
	client *redis.Client
	ctx    context.Context
	schema meta.Schema
	tunnel *SSHTunnel
}

// Notification is published on Channel for every committed change.
type Notification struct {
	Op         string            `json:"op"`
	Key        string            `json:"key"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Connect opens the connection and checks it with PING.
func Connect(opts Options) (*Backend, error) {
	b := &Backend{ctx: context.Background(), schema: opts.Schema}
	if b.schema == nil {
		b.schema = meta.Default()
	}

	addr := opts.Addr
	if opts.SSH != nil {
		tunnel, err := NewSSHTunnel(*opts.SSH, addr)
		if err != nil {
			return nil, err
		}
		b.tunnel = tunnel
		addr = tunnel.LocalAddr()
	}

	b.client = redis.NewClient(&redis.Options{
		Addr:     addr,
		DB:       opts.DB,
		Password: opts.Password,
	})
	if err := b.client.Ping(b.ctx).Err(); err != nil {
		b.Close()
		return nil, fmt.Errorf("asic_db ping %s: %w", opts.Addr, err)
	}

	util.WithBackend("redis").WithField("addr", opts.Addr).Info("Connected to ASIC_DB")
	return b, nil
}

// Close closes the Redis connection and the SSH tunnel, if any.
func (b *Backend) Close() error {
	var result *multierror.Error
	if b.client != nil {
		if err := b.client.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("closing redis client: %w", err))
		}
	}
	if b.tunnel != nil {
		if err := b.tunnel.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("closing ssh tunnel: %w", err))
		}
	}
	return result.ErrorOrNil()
}

// Key returns the ASIC_STATE hash key of an object.
func Key(t sai.ObjectType, id sai.ObjectID) string {
	return KeyPrefix + ":" + t.String() + ":" + id.String()
}

// ParseKey splits an ASIC_STATE key into its object type and id.
func ParseKey(key string) (sai.ObjectKey, error) {
	rest, ok := strings.CutPrefix(key, KeyPrefix+":")
	if !ok {
		return sai.ObjectKey{}, fmt.Errorf("key %q: missing %s prefix", key, KeyPrefix)
	}
	typeName, oid, ok := strings.Cut(rest, ":")
	if !ok {
		return sai.ObjectKey{}, fmt.Errorf("key %q: missing object id", key)
	}
	t, err := sai.ParseObjectType(typeName)
	if err != nil {
		return sai.ObjectKey{}, fmt.Errorf("key %q: %w", key, err)
	}
	id, err := sai.ParseObjectID(oid)
	if err != nil {
		return sai.ObjectKey{}, fmt.Errorf("key %q: %w", key, err)
	}
	return sai.ObjectKey{Type: t, ID: id}, nil
}

// Create implements dispatch.Handler.
func (b *Backend) Create(t sai.ObjectType, id sai.ObjectID, attrs []sai.Attribute) error {
	key := Key(t, id)
	n, err := b.client.Exists(b.ctx, key).Result()
	if err != nil {
		return fmt.Errorf("checking %s: %w", key, err)
	}
	if n > 0 {
		return fmt.Errorf("%w: %s", sai.StatusItemAlreadyExists, key)
	}

	fields, err := meta.Serialize(b.schema, t, attrs)
	if err != nil {
		return fmt.Errorf("%w: %v", sai.StatusInvalidParameter, err)
	}

	pipe := b.client.TxPipeline()
	pipe.HSet(b.ctx, key, hashArgs(fields)...)
	if err := b.publish(pipe, dispatch.OpCreate, key, fields); err != nil {
		return err
	}
	if _, err := pipe.Exec(b.ctx); err != nil {
		return fmt.Errorf("create %s: %w", key, err)
	}
	return nil
}

// Remove implements dispatch.Handler.
func (b *Backend) Remove(t sai.ObjectType, id sai.ObjectID) error {
	key, err := b.existing(t, id)
	if err != nil {
		return err
	}

	pipe := b.client.TxPipeline()
	pipe.Del(b.ctx, key)
	if err := b.publish(pipe, dispatch.OpRemove, key, nil); err != nil {
		return err
	}
	if _, err := pipe.Exec(b.ctx); err != nil {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}

// Set implements dispatch.Handler.
func (b *Backend) Set(t sai.ObjectType, id sai.ObjectID, attr sai.Attribute) error {
	key, err := b.existing(t, id)
	if err != nil {
		return err
	}

	fields, err := meta.Serialize(b.schema, t, []sai.Attribute{attr})
	if err != nil {
		return fmt.Errorf("%w: %v", sai.StatusInvalidParameter, err)
	}

	pipe := b.client.TxPipeline()
	pipe.HDel(b.ctx, key, meta.NullField)
	pipe.HSet(b.ctx, key, hashArgs(fields)...)
	if err := b.publish(pipe, dispatch.OpSet, key, fields); err != nil {
		return err
	}
	if _, err := pipe.Exec(b.ctx); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// Get implements dispatch.Handler. An attribute that is not stored fails
// the whole read with StatusItemNotFound.
func (b *Backend) Get(t sai.ObjectType, id sai.ObjectID, ids []sai.AttrID) ([]sai.Attribute, error) {
	key, err := b.existing(t, id)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	names := make([]string, len(ids))
	for i, attrID := range ids {
		names[i] = string(attrID)
	}
	vals, err := b.client.HMGet(b.ctx, key, names...).Result()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", key, err)
	}

	fields := make(map[string]string, len(vals))
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %s has no %s", sai.StatusItemNotFound, key, names[i])
		}
		fields[names[i]] = s
	}
	attrs, err := meta.Deserialize(b.schema, t, fields)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sai.StatusFailure, err)
	}
	return attrs, nil
}

// Objects implements dispatch.Lister. Keys that are not object-id keyed,
// such as route entries, are skipped.
func (b *Backend) Objects() ([]sai.ObjectKey, error) {
	keys, err := b.scanKeys(KeyPrefix + ":*")
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", KeyPrefix, err)
	}

	var out []sai.ObjectKey
	for _, key := range keys {
		k, err := ParseKey(key)
		if err != nil {
			util.WithBackend("redis").Debugf("Skipping key: %v", err)
			continue
		}
		out = append(out, k)
	}
	return out, nil
}

// Attributes returns every stored attribute of an object, sorted by id.
func (b *Backend) Attributes(t sai.ObjectType, id sai.ObjectID) ([]sai.Attribute, error) {
	key, err := b.existing(t, id)
	if err != nil {
		return nil, err
	}
	fields, err := b.client.HGetAll(b.ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", key, err)
	}
	return meta.Deserialize(b.schema, t, fields)
}

// Sequence returns an id source backed by INCR on VIDCOUNTER, so ids stay
// unique across restarts and across processes sharing the database.
func (b *Backend) Sequence() registry.Sequence {
	return &vidCounter{b: b}
}

type vidCounter struct {
	b *Backend
}

func (c *vidCounter) Next() (uint64, error) {
	n, err := c.b.client.Incr(c.b.ctx, CounterKey).Result()
	if err != nil {
		return 0, fmt.Errorf("incrementing %s: %w", CounterKey, err)
	}
	return uint64(n), nil
}

// existing returns the key of a stored object, or StatusItemNotFound.
func (b *Backend) existing(t sai.ObjectType, id sai.ObjectID) (string, error) {
	key := Key(t, id)
	n, err := b.client.Exists(b.ctx, key).Result()
	if err != nil {
		return "", fmt.Errorf("checking %s: %w", key, err)
	}
	if n == 0 {
		return "", fmt.Errorf("%w: %s", sai.StatusItemNotFound, key)
	}
	return key, nil
}

func (b *Backend) publish(pipe redis.Pipeliner, op, key string, fields map[string]string) error {
	if op == dispatch.OpCreate && fields[meta.NullField] == meta.NullField {
		fields = nil
	}
	payload, err := json.Marshal(Notification{
		Op:         op,
		Key:        strings.TrimPrefix(key, KeyPrefix+":"),
		Attributes: fields,
	})
	if err != nil {
		return fmt.Errorf("encoding notification: %w", err)
	}
	pipe.Publish(b.ctx, Channel, payload)
	return nil
}

// scanKeys uses SCAN rather than KEYS so large databases are not blocked.
func (b *Backend) scanKeys(pattern string) ([]string, error) {
	var allKeys []string
	var cursor uint64
	for {
		keys, next, err := b.client.Scan(b.ctx, cursor, pattern, 1000).Result()
		if err != nil {
			return nil, err
		}
		allKeys = append(allKeys, keys...)
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return allKeys, nil
}

func hashArgs(fields map[string]string) []interface{} {
	args := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return args
}
