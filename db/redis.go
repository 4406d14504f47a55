package db

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// RedisClient is the global Redis client instance
	RedisClient *redis.Client
)

const (
	historyCacheKey  = "crash:history"
	settingCacheKey  = "crash:setting:%s"
	historyCacheTTL  = 24 * time.Hour
	settingCacheTTL  = 10 * time.Second
	historyCacheSize = 50
)

// InitRedis initializes the Redis client connection
func InitRedis() error {
	log.Println("🔌 Connecting to Redis...")

	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = "localhost:6379"
	}

	redisPassword := os.Getenv("REDIS_PASSWORD")
	redisDB := 0
	if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
		if db, err := strconv.Atoi(dbStr); err == nil {
			redisDB = db
		}
	}

	RedisClient = redis.NewClient(&redis.Options{
		Addr:         redisURL,
		Password:     redisPassword,
		DB:           redisDB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := RedisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Println("✅ Redis connected successfully")
	return nil
}

// CloseRedis closes the Redis client connection
func CloseRedis() {
	if RedisClient != nil {
		log.Println("🔌 Closing Redis connection...")
		RedisClient.Close()
	}
}

// cachedSetting reads a setting through the Redis cache. Cache misses
// and Redis outages both fall through to load.
func (s *Store) cachedSetting(ctx context.Context, name string, load func(context.Context) (string, error)) (string, error) {
	key := fmt.Sprintf(settingCacheKey, name)

	if s.cache != nil {
		if val, err := s.cache.Get(ctx, key).Result(); err == nil {
			return val, nil
		}
	}

	val, err := load(ctx)
	if err != nil {
		return "", err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, val, settingCacheTTL).Err(); err != nil {
			log.Printf("⚠️ Failed to cache setting %s: %v", name, err)
		}
	}
	return val, nil
}

// PushHistory prepends a finished round to the cached history list.
func (s *Store) PushHistory(ctx context.Context, rec HistoryRecord) {
	if s.cache == nil {
		return
	}

	data, err := json.Marshal(rec)
	if err != nil {
		log.Printf("⚠️ Failed to marshal history record: %v", err)
		return
	}

	pipe := s.cache.Pipeline()
	pipe.LPush(ctx, historyCacheKey, data)
	pipe.LTrim(ctx, historyCacheKey, 0, historyCacheSize-1)
	pipe.Expire(ctx, historyCacheKey, historyCacheTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("⚠️ Failed to cache history: %v", err)
	}
}

// CachedHistory returns the cached recent rounds, newest first. An
// empty slice with nil error means a cache miss.
func (s *Store) CachedHistory(ctx context.Context, limit int64) ([]HistoryRecord, error) {
	if s.cache == nil {
		return nil, nil
	}

	raw, err := s.cache.LRange(ctx, historyCacheKey, 0, limit-1).Result()
	if err != nil {
		return nil, err
	}

	records := make([]HistoryRecord, 0, len(raw))
	for _, item := range raw {
		var rec HistoryRecord
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}
