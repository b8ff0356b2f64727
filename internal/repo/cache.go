package repo

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"homehub/internal/logs"
	"homehub/internal/models"

	"github.com/go-redis/redis/v8"
)

const (
	cacheKeyPrefix = "homehub:device:"
	genKeyPrefix   = "homehub:device-gen:"
)

// errStaleRead — запись по устройству прошла, пока читали хранилище; снимок в кэш не кладём.
var errStaleRead = errors.New("cache: stale read")

// Store — то, что умеет любое хранилище устройств (gorm, mongo, кэш поверх них).
type Store interface {
	InsertDevice(ctx context.Context, d *models.Device) (string, error)
	FindDeviceByID(ctx context.Context, devicesID string) (*models.Device, error)
	UpdateEquipmentState(ctx context.Context, devicesID, eqpNo string, state any) (bool, error)
	EnsureIndexes(ctx context.Context) error
	Ping(ctx context.Context) error
}

// CachedDeviceStore кэширует FindDeviceByID в Redis.
// Любая запись по devices_id увеличивает счётчик поколения и сбрасывает ключ.
// Читатель кладёт снимок только если поколение не сменилось с начала чтения (WATCH).
// Ошибки Redis не фатальны.
type CachedDeviceStore struct {
	next  Store
	redis *redis.Client
	ttl   time.Duration
}

func NewCachedDeviceStore(next Store, client *redis.Client, ttl time.Duration) *CachedDeviceStore {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedDeviceStore{next: next, redis: client, ttl: ttl}
}

func cacheKey(devicesID string) string { return cacheKeyPrefix + devicesID }
func genKey(devicesID string) string   { return genKeyPrefix + devicesID }

func (c *CachedDeviceStore) InsertDevice(ctx context.Context, d *models.Device) (string, error) {
	id, err := c.next.InsertDevice(ctx, d)
	if err != nil {
		return "", err
	}
	c.invalidate(ctx, d.DevicesID)
	return id, nil
}

func (c *CachedDeviceStore) FindDeviceByID(ctx context.Context, devicesID string) (*models.Device, error) {
	key := cacheKey(devicesID)

	b, err := c.redis.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var d models.Device
		if uerr := json.Unmarshal(b, &d); uerr == nil {
			return &d, nil
		}
		logs.FromContext(ctx).Warnf("cache: drop corrupt entry %s", key)
		c.invalidate(ctx, devicesID)
	case !errors.Is(err, redis.Nil):
		logs.FromContext(ctx).Warnf("cache: get %s: %v", key, err)
	}

	gen, genErr := c.generation(ctx, c.redis, devicesID)

	d, err := c.next.FindDeviceByID(ctx, devicesID)
	if err != nil {
		return nil, err
	}
	if genErr != nil {
		logs.FromContext(ctx).Warnf("cache: gen %s: %v", devicesID, genErr)
		return d, nil
	}
	if err := c.fill(ctx, devicesID, gen, d); err != nil {
		if errors.Is(err, errStaleRead) || errors.Is(err, redis.TxFailedErr) {
			logs.FromContext(ctx).Debugf("cache: skip fill %s: device changed during read", key)
		} else {
			logs.FromContext(ctx).Warnf("cache: set %s: %v", key, err)
		}
	}
	return d, nil
}

func (c *CachedDeviceStore) generation(ctx context.Context, cmd redis.Cmdable, devicesID string) (int64, error) {
	n, err := cmd.Get(ctx, genKey(devicesID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

// fill пишет снимок, только если поколение всё ещё gen.
func (c *CachedDeviceStore) fill(ctx context.Context, devicesID string, gen int64, d *models.Device) error {
	b, err := json.Marshal(d)
	if err != nil {
		return err
	}
	return c.redis.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := c.generation(ctx, tx, devicesID)
		if err != nil {
			return err
		}
		if cur != gen {
			return errStaleRead
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, cacheKey(devicesID), b, c.ttl)
			return nil
		})
		return err
	}, genKey(devicesID))
}

func (c *CachedDeviceStore) UpdateEquipmentState(ctx context.Context, devicesID, eqpNo string, state any) (bool, error) {
	matched, err := c.next.UpdateEquipmentState(ctx, devicesID, eqpNo, state)
	if err != nil {
		return false, err
	}
	c.invalidate(ctx, devicesID)
	return matched, nil
}

func (c *CachedDeviceStore) EnsureIndexes(ctx context.Context) error {
	return c.next.EnsureIndexes(ctx)
}

func (c *CachedDeviceStore) Ping(ctx context.Context) error {
	if err := c.next.Ping(ctx); err != nil {
		return err
	}
	return c.redis.Ping(ctx).Err()
}

func (c *CachedDeviceStore) invalidate(ctx context.Context, devicesID string) {
	_, err := c.redis.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Incr(ctx, genKey(devicesID))
		p.Del(ctx, cacheKey(devicesID))
		return nil
	})
	if err != nil {
		logs.FromContext(ctx).Warnf("cache: invalidate %s: %v", devicesID, err)
	}
}
