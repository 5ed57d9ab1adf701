package mq

import (
	"errors"
	"log"
	"time"

	"mygame/server/player-service/internal/player"
	"mygame/server/player-service/pkg/config"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/streadway/amqp"
)

var Channel *amqp.Channel

var ErrNotConnected = errors.New("mq: not connected")

// PlayerResult is published when a player leaves a room.
type PlayerResult struct {
	RoomID    string         `json:"room_id"`
	UserID    int64          `json:"user_id"`
	UserName  string         `json:"user_name"`
	Score     int64          `json:"score"`
	State     player.Payload `json:"state"`
	Timestamp int64          `json:"timestamp"`
}

// NewPlayerResult snapshots s for publishing.
func NewPlayerResult(roomID string, s *player.State) PlayerResult {
	return PlayerResult{
		RoomID:    roomID,
		UserID:    s.UserID(),
		UserName:  s.PlayerName(),
		Score:     s.Score(),
		State:     player.Encode(s),
		Timestamp: time.Now().Unix(),
	}
}

func InitMQ() {
	conn, err := amqp.Dial(config.AppConfig.MQ.Url)
	if err != nil {
		log.Fatalf("MQ connect failed: %v", err)
	}

	Channel, err = conn.Channel()
	if err != nil {
		log.Fatalf("MQ channel failed: %v", err)
	}

	_, err = Channel.QueueDeclare(
		config.AppConfig.MQ.QueueName,
		true, false, false, false, nil,
	)
	if err != nil {
		log.Fatalf("MQ queue declare failed: %v", err)
	}
}

func buildPublishing(result PlayerResult) (amqp.Publishing, error) {
	body, err := json.Marshal(result)
	if err != nil {
		return amqp.Publishing{}, err
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    time.Unix(result.Timestamp, 0),
		Body:         body,
	}, nil
}

func PublishPlayerResult(result PlayerResult) error {
	if Channel == nil {
		return ErrNotConnected
	}
	msg, err := buildPublishing(result)
	if err != nil {
		return err
	}
	return Channel.Publish(
		"",
		config.AppConfig.MQ.QueueName,
		false, false,
		msg,
	)
}
