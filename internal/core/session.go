package core

import (
	"mygame/server/player-service/internal/player"
	"mygame/server/player-service/internal/wire"
)

// Session binds one connected player to its state. Only the owning room's
// goroutine touches State.
type Session struct {
	ID    string // per connection; a reconnect gets a new one
	UID   int64
	Conn  Conn
	Codec wire.Codec
	State *player.State
}

// Update is a raw state frame received from a player.
type Update struct {
	SessionID string
	UID       int64
	Data      []byte
}
