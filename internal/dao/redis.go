package dao

import (
	"context"
	"fmt"
	"log"
	"time"

	"mygame/server/player-service/pkg/config"

	"github.com/redis/go-redis/v9"
)

var RDB *redis.Client

const (
	KeyRoomPrefix   = "room:"   // Hash: room:{id} -> { token, ... } written by match-service
	KeyPlayerPrefix = "player:" // String: player:{room}:{uid} -> framed player payload
)

func InitRedis() {
	cfg := config.AppConfig.Redis
	RDB = redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := RDB.Ping(ctx).Result(); err != nil {
		log.Fatalf("Redis connect failed: %v", err)
	}
}

// ValidateRoomToken checks whether the given token matches the stored room token.
func ValidateRoomToken(ctx context.Context, roomID, token string) (bool, error) {
	val, err := RDB.HGet(ctx, KeyRoomPrefix+roomID, "token").Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return val == token, nil
}

func playerKey(roomID string, uid int64) string {
	return fmt.Sprintf("%s%s:%d", KeyPlayerPrefix, roomID, uid)
}

// SavePlayerState stores the last known state of a player who left the room
// so a reconnect within ttl resumes from it. ttl <= 0 keeps it forever.
func SavePlayerState(ctx context.Context, roomID string, uid int64, data []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	return RDB.Set(ctx, playerKey(roomID, uid), data, ttl).Err()
}

// LoadPlayerState returns nil, nil when nothing is stored.
func LoadPlayerState(ctx context.Context, roomID string, uid int64) ([]byte, error) {
	data, err := RDB.Get(ctx, playerKey(roomID, uid)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

func DeletePlayerState(ctx context.Context, roomID string, uid int64) error {
	return RDB.Del(ctx, playerKey(roomID, uid)).Err()
}
