package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"mygame/server/player-service/internal/mq"
	"mygame/server/player-service/internal/player"
	"mygame/server/player-service/internal/wire"
)

func testOptions() Options {
	return Options{
		Room:         RoomOptions{TickDuration: 5 * time.Millisecond, Damping: 0.9},
		MapSize:      100,
		PlayerRadius: 6,
	}
}

func TestGetOrCreateRoom(t *testing.T) {
	m := NewManager(testOptions())
	r1 := m.GetOrCreateRoom("a")
	if m.GetOrCreateRoom("a") != r1 {
		t.Fatalf("second GetOrCreateRoom returned a different room")
	}
	m.GetOrCreateRoom("b")

	rooms := m.ListRooms()
	if len(rooms) != 2 || rooms[0].ID != "a" || rooms[1].ID != "b" {
		t.Fatalf("ListRooms = %+v", rooms)
	}

	m.RemoveRoom("a")
	if m.GetRoom("a") != nil {
		t.Fatalf("room a still registered")
	}
	s, _ := newTestSession(t, "x", 1, wire.JSON)
	if r1.Join(s) {
		t.Fatalf("removed room still accepts joins")
	}
	m.RemoveRoom("b")
}

func TestCleanupIdleRooms(t *testing.T) {
	m := NewManager(testOptions())
	idle := m.GetOrCreateRoom("idle")
	m.GetOrCreateRoom("fresh")

	idle.Mutex.Lock()
	idle.LastActiveTime = time.Now().Add(-2 * time.Minute).Unix()
	idle.Mutex.Unlock()

	if n := m.CleanupIdleRooms(time.Minute); n != 1 {
		t.Fatalf("removed %d rooms, want 1", n)
	}
	if m.GetRoom("idle") != nil || m.GetRoom("fresh") == nil {
		t.Fatalf("wrong room removed: %+v", m.ListRooms())
	}
	m.RemoveRoom("fresh")
}

func TestNewPlayerStateSpawns(t *testing.T) {
	m := NewManager(testOptions())
	s, err := m.NewPlayerState(context.Background(), "r", 12, "Ann")
	if err != nil {
		t.Fatalf("NewPlayerState: %v", err)
	}
	if s.UserID() != 12 || s.PlayerName() != "Ann" || s.Hitbox().Radius != 6 {
		t.Fatalf("state = %+v", player.Encode(s))
	}
	pos := s.Position()
	if pos.X < 0 || pos.X >= 100 || pos.Y < 0 || pos.Y >= 100 {
		t.Fatalf("spawn %+v outside map", pos)
	}
	if s.Velocity() != (player.Vec2{}) {
		t.Fatalf("spawn velocity = %+v", s.Velocity())
	}
}

func storedState(t *testing.T, uid int64) []byte {
	t.Helper()
	st, _ := player.New(40, 50, 6, "Stored")
	st.SetUserID(uid)
	st.SetScore(77)
	st.SetVelocity(player.Vec2{X: 1, Y: 2})
	b, err := wire.JSON.MarshalState(player.Encode(st))
	if err != nil {
		t.Fatalf("MarshalState: %v", err)
	}
	return b
}

func TestNewPlayerStateResumes(t *testing.T) {
	m := NewManager(testOptions())
	m.LoadState = func(_ context.Context, roomID string, uid int64) ([]byte, error) {
		if roomID != "r" {
			t.Fatalf("LoadState room = %q", roomID)
		}
		return storedState(t, uid), nil
	}

	s, err := m.NewPlayerState(context.Background(), "r", 12, "")
	if err != nil {
		t.Fatalf("NewPlayerState: %v", err)
	}
	if s.Score() != 77 || s.PlayerName() != "Stored" || s.Position() != (player.Vec2{X: 40, Y: 50}) {
		t.Fatalf("resumed state = %+v", player.Encode(s))
	}

	s, _ = m.NewPlayerState(context.Background(), "r", 12, "Renamed")
	if s.PlayerName() != "Renamed" {
		t.Fatalf("name = %q, want Renamed", s.PlayerName())
	}
}

func TestNewPlayerStateConsumesStoredState(t *testing.T) {
	for _, delErr := range []error{nil, errors.New("down")} {
		m := NewManager(testOptions())
		m.LoadState = func(_ context.Context, _ string, uid int64) ([]byte, error) {
			return storedState(t, uid), nil
		}
		var deleted []int64
		m.DeleteState = func(_ context.Context, roomID string, uid int64) error {
			if roomID != "r" {
				t.Fatalf("DeleteState room = %q", roomID)
			}
			deleted = append(deleted, uid)
			return delErr
		}

		s, err := m.NewPlayerState(context.Background(), "r", 12, "")
		if err != nil {
			t.Fatalf("NewPlayerState: %v", err)
		}
		if s.Score() != 77 {
			t.Fatalf("delete error %v: score = %d, want resumed 77", delErr, s.Score())
		}
		if len(deleted) != 1 || deleted[0] != 12 {
			t.Fatalf("deleted = %v, want [12]", deleted)
		}
	}

	m := NewManager(testOptions())
	m.LoadState = func(context.Context, string, int64) ([]byte, error) { return nil, nil }
	m.DeleteState = func(context.Context, string, int64) error {
		t.Fatalf("DeleteState called without a stored state")
		return nil
	}
	if _, err := m.NewPlayerState(context.Background(), "r", 12, "Ann"); err != nil {
		t.Fatalf("NewPlayerState: %v", err)
	}
}

func TestNewPlayerStateIgnoresBadStoredState(t *testing.T) {
	cases := map[string]func(context.Context, string, int64) ([]byte, error){
		"load error": func(context.Context, string, int64) ([]byte, error) { return nil, errors.New("down") },
		"garbage":    func(context.Context, string, int64) ([]byte, error) { return []byte("{"), nil },
		"foreign":    func(context.Context, string, int64) ([]byte, error) { return storedState(t, 99), nil },
		"unassigned": func(context.Context, string, int64) ([]byte, error) {
			return storedState(t, player.UnassignedID), nil
		},
	}
	for name, load := range cases {
		m := NewManager(testOptions())
		m.LoadState = load
		s, err := m.NewPlayerState(context.Background(), "r", 12, "Ann")
		if err != nil {
			t.Fatalf("%s: NewPlayerState: %v", name, err)
		}
		if s.Score() != 0 || s.UserID() != 12 || s.PlayerName() != "Ann" {
			t.Fatalf("%s: state = %+v, want fresh spawn", name, player.Encode(s))
		}
	}
}

func TestLeavePersistsAndPublishes(t *testing.T) {
	m := NewManager(testOptions())
	saved := make(chan []byte, 1)
	published := make(chan mq.PlayerResult, 1)
	m.SaveState = func(_ context.Context, roomID string, uid int64, data []byte) error {
		if roomID != "r" || uid != 3 {
			t.Errorf("SaveState(%q, %d)", roomID, uid)
		}
		saved <- data
		return nil
	}
	m.PublishResult = func(res mq.PlayerResult) error {
		published <- res
		return nil
	}

	r := m.GetOrCreateRoom("r")
	s, _ := newTestSession(t, "a", 3, wire.JSON)
	s.State.SetScore(5)
	if !r.Join(s) {
		t.Fatalf("Join failed")
	}
	r.Leave(s)

	select {
	case data := <-saved:
		p, err := wire.JSON.UnmarshalState(data)
		if err != nil {
			t.Fatalf("saved state: %v", err)
		}
		st, err := player.Decode(p)
		if err != nil || st.UserID() != 3 || st.Score() != 5 {
			t.Fatalf("saved state = %v, %v", p, err)
		}
	case <-time.After(time.Second):
		t.Fatalf("state was not saved")
	}
	select {
	case res := <-published:
		if res.RoomID != "r" || res.UserID != 3 || res.Score != 5 {
			t.Fatalf("published %+v", res)
		}
	case <-time.After(time.Second):
		t.Fatalf("result was not published")
	}

	deadline := time.Now().Add(time.Second)
	for m.GetRoom("r") != nil {
		if time.Now().After(deadline) {
			t.Fatalf("empty room was not removed")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
