package dao

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func setupRedis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	RDB = redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { RDB.Close() })
	return mr
}

func TestValidateRoomToken(t *testing.T) {
	mr := setupRedis(t)
	mr.HSet(KeyRoomPrefix+"r1", "token", "secret")
	ctx := context.Background()

	ok, err := ValidateRoomToken(ctx, "r1", "secret")
	if err != nil || !ok {
		t.Fatalf("ValidateRoomToken(match) = %v, %v", ok, err)
	}
	ok, err = ValidateRoomToken(ctx, "r1", "wrong")
	if err != nil || ok {
		t.Fatalf("ValidateRoomToken(mismatch) = %v, %v", ok, err)
	}
	ok, err = ValidateRoomToken(ctx, "missing", "secret")
	if err != nil || ok {
		t.Fatalf("ValidateRoomToken(missing room) = %v, %v", ok, err)
	}
}

func TestPlayerStatePersistence(t *testing.T) {
	mr := setupRedis(t)
	ctx := context.Background()

	data, err := LoadPlayerState(ctx, "r1", 7)
	if err != nil || data != nil {
		t.Fatalf("LoadPlayerState(empty) = %q, %v", data, err)
	}

	if err := SavePlayerState(ctx, "r1", 7, []byte(`{"userID":7}`), time.Minute); err != nil {
		t.Fatalf("SavePlayerState: %v", err)
	}
	if ttl := mr.TTL("player:r1:7"); ttl != time.Minute {
		t.Fatalf("ttl = %v, want 1m", ttl)
	}
	data, err = LoadPlayerState(ctx, "r1", 7)
	if err != nil || string(data) != `{"userID":7}` {
		t.Fatalf("LoadPlayerState = %q, %v", data, err)
	}

	mr.FastForward(2 * time.Minute)
	data, err = LoadPlayerState(ctx, "r1", 7)
	if err != nil || data != nil {
		t.Fatalf("LoadPlayerState after expiry = %q, %v", data, err)
	}
}

func TestDeletePlayerState(t *testing.T) {
	setupRedis(t)
	ctx := context.Background()
	if err := SavePlayerState(ctx, "r1", 1, []byte("x"), 0); err != nil {
		t.Fatalf("SavePlayerState: %v", err)
	}
	if err := DeletePlayerState(ctx, "r1", 1); err != nil {
		t.Fatalf("DeletePlayerState: %v", err)
	}
	if data, _ := LoadPlayerState(ctx, "r1", 1); data != nil {
		t.Fatalf("state still present: %q", data)
	}
}
