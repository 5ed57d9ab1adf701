package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"mygame/server/player-service/internal/core"
)

func Cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

func RegisterRoutes(r *gin.Engine, m *core.Manager) {
	r.GET("/ws", m.HandleWebSocket)

	rooms := r.Group("/rooms")
	{
		rooms.GET("", HandleListRooms(m))
		rooms.GET("/:id", HandleRoomSnapshot(m))
	}
}

func HandleListRooms(m *core.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"rooms": m.ListRooms()})
	}
}

// HandleRoomSnapshot returns the current tick and every player payload of a room.
func HandleRoomSnapshot(m *core.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		room := m.GetRoom(c.Param("id"))
		if room == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
			return
		}
		snap := room.Snapshot()
		c.JSON(http.StatusOK, gin.H{
			"room_id": room.ID,
			"tick":    snap.Tick,
			"players": snap.Players,
		})
	}
}
