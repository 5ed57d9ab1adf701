package core

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"mygame/server/player-service/internal/wire"
)

var upgrader = websocket.Upgrader{
	CheckOrigin:     func(r *http.Request) bool { return true },
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

const (
	wsReadDeadline  = 60 * time.Second
	wsWriteDeadline = 10 * time.Second
	wsPingPeriod    = 30 * time.Second
	wsReadLimit     = 64 * 1024
)

// HandleWebSocket serves /ws?room_id=&token=&uid=[&username=][&format=].
// Every inbound frame is a full player state in the chosen wire format.
func (m *Manager) HandleWebSocket(c *gin.Context) {
	roomID := c.Query("room_id")
	token := c.Query("token")

	if roomID == "" || token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "room_id and token required"})
		return
	}

	uidStr := c.Query("uid")
	if uidStr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "uid required"})
		return
	}
	uid, err := strconv.ParseInt(uidStr, 10, 64)
	if err != nil || uid < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid uid"})
		return
	}

	codec, err := wire.Lookup(c.DefaultQuery("format", m.opts.WireFormat))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	if m.ValidateToken != nil {
		if ok, err := m.ValidateToken(ctx, roomID, token); err != nil {
			log.Println("redis error:", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		} else if !ok {
			c.JSON(http.StatusForbidden, gin.H{"error": "invalid room token"})
			return
		}
	}

	state, err := m.NewPlayerState(ctx, roomID, uid, c.Query("username"))
	if err != nil {
		log.Println("creating player state:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Println("Upgrade failed:", err)
		return
	}
	defer ws.Close()
	ws.SetReadLimit(wsReadLimit)

	conn := &WebSocketConn{Conn: ws, Binary: codec.Binary()}
	session := &Session{
		ID:    uuid.NewString(),
		UID:   uid,
		Conn:  conn,
		Codec: codec,
		State: state,
	}

	// The room may stop between lookup and join when its last player leaves.
	var room *Room
	for attempt := 0; attempt < 3 && room == nil; attempt++ {
		if r := m.GetOrCreateRoom(roomID); r.Join(session) {
			room = r
		}
	}
	if room == nil {
		log.Printf("room %s: could not join player %d", roomID, uid)
		return
	}
	defer room.Leave(session)

	ws.SetReadDeadline(time.Now().Add(wsReadDeadline))
	ws.SetPongHandler(func(string) error {
		ws.SetReadDeadline(time.Now().Add(wsReadDeadline))
		return nil
	})

	pingTicker := time.NewTicker(wsPingPeriod)
	defer pingTicker.Stop()

	messageChan := make(chan []byte)
	doneChan := make(chan struct{})
	stopChan := make(chan struct{})
	defer close(stopChan)

	go func() {
		defer close(doneChan)
		for {
			_, data, err := ws.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.Println("Read error:", err)
				}
				return
			}
			ws.SetReadDeadline(time.Now().Add(wsReadDeadline))
			select {
			case messageChan <- data:
			case <-stopChan:
				return
			}
		}
	}()

	for {
		select {
		case <-pingTicker.C:
			if err := conn.Ping(); err != nil {
				log.Println("Ping error:", err)
				return
			}

		case data := <-messageChan:
			if !room.Submit(Update{SessionID: session.ID, UID: uid, Data: data}) {
				return
			}

		case <-doneChan:
			return
		}
	}
}
