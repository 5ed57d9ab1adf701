package core

import (
	"context"
	"log"
	"math/rand"
	"sort"
	"sync"
	"time"

	"mygame/server/player-service/internal/mq"
	"mygame/server/player-service/internal/player"
	"mygame/server/player-service/internal/wire"
	"mygame/server/player-service/pkg/config"
)

type Options struct {
	Room         RoomOptions
	MapSize      float64
	PlayerRadius float64
	WireFormat   string // default codec when a client does not ask for one
}

func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Room: RoomOptions{
			TickDuration:   cfg.TickDuration(),
			BroadcastEvery: int64(cfg.Server.BroadcastEvery),
			Damping:        cfg.Game.DampingCoefficient,
		},
		MapSize:      cfg.Game.MapSize,
		PlayerRadius: cfg.Game.PlayerRadius,
		WireFormat:   cfg.Server.WireFormat,
	}
}

// RoomInfo is returned by the HTTP API for the room list.
type RoomInfo struct {
	ID      string `json:"room_id"`
	Players int    `json:"players"`
	Tick    int64  `json:"tick"`
}

// Manager holds the rooms of this game server. A nil hook is skipped.
type Manager struct {
	mu    sync.RWMutex
	rooms map[string]*Room
	opts  Options

	ValidateToken func(ctx context.Context, roomID, token string) (bool, error)
	LoadState     func(ctx context.Context, roomID string, uid int64) ([]byte, error)
	SaveState     func(ctx context.Context, roomID string, uid int64, data []byte) error
	DeleteState   func(ctx context.Context, roomID string, uid int64) error
	PublishResult func(result mq.PlayerResult) error
}

func NewManager(opts Options) *Manager {
	if opts.WireFormat == "" {
		opts.WireFormat = wire.JSON.Name()
	}
	return &Manager{
		rooms: make(map[string]*Room),
		opts:  opts,
	}
}

func (m *Manager) GetRoom(roomID string) *Room {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rooms[roomID]
}

// GetOrCreateRoom returns the running room for roomID, starting it if needed.
func (m *Manager) GetOrCreateRoom(roomID string) *Room {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.rooms[roomID]; ok {
		return r
	}
	r := NewRoom(roomID, m.opts.Room)
	r.OnLeave = m.onLeave
	r.OnEmpty = m.RemoveRoom
	m.rooms[roomID] = r
	go r.Run()
	return r
}

func (m *Manager) RemoveRoom(roomID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.rooms[roomID]; ok {
		r.Stop()
		delete(m.rooms, roomID)
	}
}

func (m *Manager) ListRooms() []RoomInfo {
	m.mu.RLock()
	out := make([]RoomInfo, 0, len(m.rooms))
	for id, r := range m.rooms {
		r.Mutex.RLock()
		out = append(out, RoomInfo{ID: id, Players: len(r.Sessions), Tick: r.CurrentTick})
		r.Mutex.RUnlock()
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// CleanupIdleRooms stops rooms that have had no players for longer than idle.
func (m *Manager) CleanupIdleRooms(idle time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().Unix()
	removed := 0
	for id, room := range m.rooms {
		room.Mutex.RLock()
		playerCount := len(room.Sessions)
		lastActive := room.LastActiveTime
		room.Mutex.RUnlock()

		if playerCount == 0 && now-lastActive > int64(idle/time.Second) {
			room.Stop()
			delete(m.rooms, id)
			removed++
		}
	}
	return removed
}

func (m *Manager) StartCleanup(ctx context.Context, every, idle time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.CleanupIdleRooms(idle); n > 0 {
				log.Printf("Removed %d idle rooms", n)
			}
		}
	}
}

// NewPlayerState resumes the stored state of uid in roomID when there is
// one, otherwise spawns a fresh player at a random point on the map. A stored
// state is resumed at most once.
func (m *Manager) NewPlayerState(ctx context.Context, roomID string, uid int64, name string) (*player.State, error) {
	if s := m.restoreState(ctx, roomID, uid); s != nil {
		if m.DeleteState != nil {
			if err := m.DeleteState(ctx, roomID, uid); err != nil {
				log.Printf("deleting stored state of player %d in room %s: %v", uid, roomID, err)
			}
		}
		if name != "" {
			s.SetPlayerName(name)
		}
		return s, nil
	}

	size := int(m.opts.MapSize)
	x, y := 0, 0
	if size > 0 {
		x, y = rand.Intn(size), rand.Intn(size)
	}
	s, err := player.New(x, y, m.opts.PlayerRadius, name, player.WithDamping(m.opts.Room.Damping))
	if err != nil {
		return nil, err
	}
	s.SetUserID(uid)
	return s, nil
}

func (m *Manager) restoreState(ctx context.Context, roomID string, uid int64) *player.State {
	if m.LoadState == nil {
		return nil
	}
	data, err := m.LoadState(ctx, roomID, uid)
	if err != nil {
		log.Printf("loading state of player %d in room %s: %v", uid, roomID, err)
		return nil
	}
	if data == nil {
		return nil
	}
	s, err := decodeUpdate(wire.JSON, data, m.opts.Room.Damping)
	if err == nil && (!s.HasUserID() || s.UserID() != uid) {
		err = errForeignState
	}
	if err != nil {
		log.Printf("discarding stored state of player %d in room %s: %v", uid, roomID, err)
		return nil
	}
	return s
}

// onLeave persists the final state for resume and publishes the result.
// The state is encoded here, on the room goroutine; I/O happens elsewhere.
func (m *Manager) onLeave(roomID string, s *Session) {
	result := mq.NewPlayerResult(roomID, s.State)
	data, encErr := wire.JSON.MarshalState(result.State)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if m.SaveState != nil {
			if encErr != nil {
				log.Printf("encoding state of player %d: %v", s.UID, encErr)
			} else if err := m.SaveState(ctx, roomID, s.UID, data); err != nil {
				log.Printf("saving state of player %d in room %s: %v", s.UID, roomID, err)
			}
		}
		if m.PublishResult != nil {
			if err := m.PublishResult(result); err != nil {
				log.Printf("Failed to publish result: %v", err)
			}
		}
	}()
}
