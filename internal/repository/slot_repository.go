package repository

import (
	"context"
	"errors"
	"sync"
	"time"

	redisapp "school_gallery/internal/storage/redis"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// RedisSlotRepo хранит одноразовые токены загрузки в redis
type RedisSlotRepo struct {
	Client *redisapp.Client
}

func NewRedisSlotRepo(client *redisapp.Client) *RedisSlotRepo {
	return &RedisSlotRepo{Client: client}
}

func (r *RedisSlotRepo) SaveSlot(ctx context.Context, token string, ttl time.Duration) error {
	return r.Client.Set(ctx, uploadSlotKey(token), "1", ttl).Err()
}

// ConsumeSlot атомарно забирает токен (GETDEL): второй вызов вернет false
func (r *RedisSlotRepo) ConsumeSlot(ctx context.Context, token string) (bool, error) {
	val, err := r.Client.GetDel(ctx, uploadSlotKey(token)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return val == "1", nil
}

// MemorySlotRepo in-process store for a single instance without redis
type MemorySlotRepo struct {
	mu    sync.Mutex
	cache *cache.Cache
}

func NewMemorySlotRepo(cleanupInterval time.Duration) *MemorySlotRepo {
	return &MemorySlotRepo{
		cache: cache.New(cache.NoExpiration, cleanupInterval),
	}
}

func (r *MemorySlotRepo) SaveSlot(_ context.Context, token string, ttl time.Duration) error {
	r.cache.Set(uploadSlotKey(token), struct{}{}, ttl)
	return nil
}

func (r *MemorySlotRepo) ConsumeSlot(_ context.Context, token string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := uploadSlotKey(token)
	if _, ok := r.cache.Get(key); !ok {
		return false, nil
	}
	r.cache.Delete(key)

	return true, nil
}

func uploadSlotKey(token string) string {
	return "upload_slot:" + token
}
