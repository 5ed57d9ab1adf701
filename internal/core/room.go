package core

import (
	"errors"
	"log"
	"math"
	"sort"
	"sync"
	"time"

	"mygame/server/player-service/internal/player"
	"mygame/server/player-service/internal/wire"
)

var (
	errForeignState = errors.New("state belongs to another user")
	errNonFinite    = errors.New("non-finite position or velocity")
)

type RoomOptions struct {
	TickDuration   time.Duration
	BroadcastEvery int64 // ticks between snapshots
	Damping        float64
}

type Room struct {
	ID       string
	Sessions map[int64]*Session

	register   chan *Session
	unregister chan *Session
	updates    chan Update
	quit       chan struct{}
	stopOnce   sync.Once

	Mutex          sync.RWMutex
	CurrentTick    int64
	LastActiveTime int64

	tickDuration   time.Duration
	broadcastEvery int64
	damping        float64

	OnLeave func(roomID string, s *Session) // called from the room goroutine
	OnEmpty func(roomID string)
}

func NewRoom(id string, opts RoomOptions) *Room {
	if opts.TickDuration <= 0 {
		opts.TickDuration = time.Second / 64
	}
	if opts.BroadcastEvery <= 0 {
		opts.BroadcastEvery = 1
	}
	if opts.Damping == 0 {
		opts.Damping = player.DefaultDamping
	}
	return &Room{
		ID:             id,
		Sessions:       make(map[int64]*Session),
		register:       make(chan *Session),
		unregister:     make(chan *Session),
		updates:        make(chan Update, 256),
		quit:           make(chan struct{}),
		LastActiveTime: time.Now().Unix(),
		tickDuration:   opts.TickDuration,
		broadcastEvery: opts.BroadcastEvery,
		damping:        opts.Damping,
	}
}

// Run owns every session state in the room until Stop is called.
func (r *Room) Run() {
	ticker := time.NewTicker(r.tickDuration)
	defer ticker.Stop()

	for {
		select {
		case <-r.quit:
			return
		case s := <-r.register:
			r.addSession(s)
		case s := <-r.unregister:
			r.removeSession(s)
		case u := <-r.updates:
			r.applyUpdate(u)
		case <-ticker.C:
			r.GameLoop()
		}
	}
}

func (r *Room) Stop() {
	r.stopOnce.Do(func() { close(r.quit) })
}

// Join hands s to the room. It reports false if the room has stopped.
func (r *Room) Join(s *Session) bool {
	select {
	case r.register <- s:
		return true
	case <-r.quit:
		return false
	}
}

func (r *Room) Leave(s *Session) {
	select {
	case r.unregister <- s:
	case <-r.quit:
	}
}

// Submit queues a state frame. It reports false if the room has stopped.
func (r *Room) Submit(u Update) bool {
	select {
	case <-r.quit:
		return false
	default:
	}
	select {
	case r.updates <- u:
		return true
	case <-r.quit:
		return false
	}
}

func (r *Room) NumPlayers() int {
	r.Mutex.RLock()
	defer r.Mutex.RUnlock()
	return len(r.Sessions)
}

func (r *Room) addSession(s *Session) {
	r.Mutex.Lock()
	if old, ok := r.Sessions[s.UID]; ok && old.ID != s.ID {
		// same user reconnected; the new connection takes over the live state
		_ = old.Conn.Close()
		s.State = old.State
	}
	s.State.SetUserID(s.UID)
	r.Sessions[s.UID] = s
	r.LastActiveTime = time.Now().Unix()
	r.Mutex.Unlock()

	log.Printf("Player %d joined room %s", s.UID, r.ID)
	r.sendSnapshotTo(s)
}

func (r *Room) removeSession(s *Session) {
	r.Mutex.Lock()
	cur, ok := r.Sessions[s.UID]
	if !ok || cur.ID != s.ID {
		r.Mutex.Unlock()
		return
	}
	delete(r.Sessions, s.UID)
	r.LastActiveTime = time.Now().Unix()
	empty := len(r.Sessions) == 0
	r.Mutex.Unlock()

	_ = cur.Conn.Close()
	log.Printf("Player %d left room %s", s.UID, r.ID)
	if r.OnLeave != nil {
		r.OnLeave(r.ID, cur)
	}
	if empty && r.OnEmpty != nil {
		r.OnEmpty(r.ID)
	}
}

// applyUpdate replaces the sender's state with the decoded frame. Frames
// that fail to decode or claim another identity are dropped.
func (r *Room) applyUpdate(u Update) {
	r.Mutex.Lock()
	defer r.Mutex.Unlock()

	s, ok := r.Sessions[u.UID]
	if !ok || s.ID != u.SessionID {
		return
	}
	st, err := decodeUpdate(s.Codec, u.Data, r.damping)
	if err == nil && st.UserID() != s.UID {
		err = errForeignState
	}
	if err != nil {
		log.Printf("room %s: dropping update from player %d: %v", r.ID, u.UID, err)
		return
	}
	s.State = st
}

func decodeUpdate(c wire.Codec, data []byte, damping float64) (*player.State, error) {
	p, err := c.UnmarshalState(data)
	if err != nil {
		return nil, err
	}
	st, err := player.Decode(p, player.WithDamping(damping))
	if err != nil {
		return nil, err
	}
	// Inf or NaN would poison every snapshot and the JSON resume record.
	pos, vel := st.Position(), st.Velocity()
	for _, f := range [...]float64{pos.X, pos.Y, vel.X, vel.Y} {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, errNonFinite
		}
	}
	return st, nil
}

// GameLoop advances every player by one tick and broadcasts on schedule.
func (r *Room) GameLoop() {
	r.Mutex.Lock()
	r.CurrentTick++
	for _, s := range r.Sessions {
		player.Advance(s.State)
	}
	broadcast := r.CurrentTick%r.broadcastEvery == 0
	r.Mutex.Unlock()

	if broadcast {
		r.BroadcastSnapshot()
	}
}

// Snapshot returns the current tick and every player's payload ordered by user ID.
func (r *Room) Snapshot() wire.Snapshot {
	r.Mutex.RLock()
	defer r.Mutex.RUnlock()
	return r.snapshotLocked()
}

func (r *Room) snapshotLocked() wire.Snapshot {
	uids := make([]int64, 0, len(r.Sessions))
	for uid := range r.Sessions {
		uids = append(uids, uid)
	}
	sort.Slice(uids, func(i, j int) bool { return uids[i] < uids[j] })

	snap := wire.Snapshot{Tick: r.CurrentTick, Players: make([]player.Payload, 0, len(uids))}
	for _, uid := range uids {
		snap.Players = append(snap.Players, player.Encode(r.Sessions[uid].State))
	}
	return snap
}

func (r *Room) BroadcastSnapshot() {
	r.Mutex.RLock()
	snap := r.snapshotLocked()
	sessions := make([]*Session, 0, len(r.Sessions))
	for _, s := range r.Sessions {
		sessions = append(sessions, s)
	}
	r.Mutex.RUnlock()

	frames := make(map[string][]byte)
	var failed []*Session
	for _, s := range sessions {
		frame, ok := frames[s.Codec.Name()]
		if !ok {
			var err error
			frame, err = s.Codec.MarshalSnapshot(snap)
			if err != nil {
				log.Printf("room %s: encoding %s snapshot: %v", r.ID, s.Codec.Name(), err)
				continue
			}
			frames[s.Codec.Name()] = frame
		}
		if err := s.Conn.Send(frame); err != nil {
			failed = append(failed, s)
		}
	}
	for _, s := range failed {
		r.removeSession(s)
	}
}

func (r *Room) sendSnapshotTo(s *Session) {
	frame, err := s.Codec.MarshalSnapshot(r.Snapshot())
	if err != nil {
		log.Printf("room %s: encoding %s snapshot: %v", r.ID, s.Codec.Name(), err)
		return
	}
	_ = s.Conn.Send(frame)
}
