package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"mygame/server/player-service/internal/core"
	"mygame/server/player-service/internal/dao"
	"mygame/server/player-service/internal/handler"
	"mygame/server/player-service/internal/mq"
	"mygame/server/player-service/pkg/config"

	"github.com/gin-gonic/gin"
)

func main() {
	config.InitConfig()
	cfg := config.AppConfig

	// Redis 校验房间 ticket，并保存离开玩家的状态
	dao.InitRedis()

	mq.InitMQ()

	go func() {
		if err := handler.StartGRPC(cfg.Server.GrpcPort); err != nil {
			log.Fatalf("gRPC server failed: %v", err)
		}
	}()

	manager := core.NewManager(core.OptionsFromConfig(cfg))
	manager.ValidateToken = dao.ValidateRoomToken
	manager.LoadState = dao.LoadPlayerState
	manager.SaveState = func(ctx context.Context, roomID string, uid int64, data []byte) error {
		return dao.SavePlayerState(ctx, roomID, uid, data, cfg.Redis.StateTTL)
	}
	manager.DeleteState = dao.DeletePlayerState
	manager.PublishResult = mq.PublishPlayerResult

	go manager.StartCleanup(context.Background(), 30*time.Second, 60*time.Second)

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()
	r.Use(handler.Cors())
	handler.RegisterRoutes(r, manager)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	fmt.Printf("Player Service running on %s\n", addr)
	if err := r.Run(addr); err != nil {
		log.Fatalf("HTTP server failed: %v", err)
	}
}
