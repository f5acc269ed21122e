package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/arjun7095/Chat-Application/models"
	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// CachedStore 在 Redis 快取房間記錄，其餘操作直接委派給內層 Store。
// Redis 發生錯誤時只記錄 log，改由內層 Store 回應。
type CachedStore struct {
	Store
	rdb *redis.Client
	ttl time.Duration
}

// ConnectRedis 解析 REDIS_URL 並確認連線可用
func ConnectRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	log.Info().Str("module", "database").Msg("connected to Redis")
	return rdb, nil
}

func NewCachedStore(inner Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{Store: inner, rdb: rdb, ttl: ttl}
}

func roomKey(name string) string {
	return "room:" + name
}

func (s *CachedStore) FindRoomByName(ctx context.Context, name string) (*models.Room, error) {
	raw, err := s.rdb.Get(ctx, roomKey(name)).Bytes()
	switch {
	case err == nil:
		var room models.Room
		if err := json.Unmarshal(raw, &room); err == nil {
			return &room, nil
		}
		log.Warn().Str("module", "database").Str("room", name).Msg("discarding corrupt cached room")
	case !errors.Is(err, redis.Nil):
		log.Warn().Err(err).Str("module", "database").Str("room", name).Msg("room cache read failed")
	}

	room, err := s.Store.FindRoomByName(ctx, name)
	if err != nil {
		return nil, err
	}
	s.put(ctx, room)
	return room, nil
}

func (s *CachedStore) InsertRoom(ctx context.Context, room *models.Room) error {
	if err := s.Store.InsertRoom(ctx, room); err != nil {
		return err
	}
	s.put(ctx, room)
	return nil
}

// DeleteRoom 在刪除前後各清一次快取；刪除期間的查詢可能把舊記錄寫回
func (s *CachedStore) DeleteRoom(ctx context.Context, name string) error {
	s.evict(ctx, name)
	if err := s.Store.DeleteRoom(ctx, name); err != nil {
		return err
	}
	s.evict(ctx, name)
	return nil
}

func (s *CachedStore) evict(ctx context.Context, name string) {
	if err := s.rdb.Del(ctx, roomKey(name)).Err(); err != nil {
		log.Warn().Err(err).Str("module", "database").Str("room", name).Msg("room cache evict failed")
	}
}

func (s *CachedStore) Ping(ctx context.Context) error {
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Str("module", "database").Msg("redis ping failed")
	}
	return s.Store.Ping(ctx)
}

func (s *CachedStore) Close(ctx context.Context) error {
	return errors.Join(s.rdb.Close(), s.Store.Close(ctx))
}

func (s *CachedStore) put(ctx context.Context, room *models.Room) {
	raw, err := json.Marshal(room)
	if err != nil {
		return
	}
	if err := s.rdb.Set(ctx, roomKey(room.Name), raw, s.ttl).Err(); err != nil {
		log.Warn().Err(err).Str("module", "database").Str("room", room.Name).Msg("room cache write failed")
	}
}
