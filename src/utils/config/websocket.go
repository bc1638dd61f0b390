package config

import (
	"time"

	"github.com/spf13/viper"
)

type Websocket struct {
	// Client to server events
	EventJoinRoom           string
	EventJoinUserRoom       string
	EventSendNewMessage     string
	EventSendMessageReceipt string
	EventSendWriting        string
	EventSendStopWriting    string

	// Server to client events
	EventNewMessage            string
	EventMessageReceiptUpdated string
	EventWritingMessage        string
	EventStopWritingMessage    string
	EventNewNotification       string
	EventEscrowStateUpdated    string
	EventError                 string

	// Keepalive
	PingInterval time.Duration

	// Maximum size of an incoming frame
	MaxMessageSize int64

	// Incoming frames allowed per second per connection
	MessagesPerSecond float64

	// Size of the per connection send buffer
	SendBufferSize int

	// Redis channel used to fan out events between instances
	RedisChannel string

	// Postgres channel notified by the escrow state trigger
	EscrowNotifyChannel string
}

func setWebsocketDefaults() {
	viper.SetDefault("Websocket.EventJoinRoom", "joinRoom")
	viper.SetDefault("Websocket.EventJoinUserRoom", "joinUserRoom")
	viper.SetDefault("Websocket.EventSendNewMessage", "sendNewMessage")
	viper.SetDefault("Websocket.EventSendMessageReceipt", "sendMessageReceipt")
	viper.SetDefault("Websocket.EventSendWriting", "sendWritingMessage")
	viper.SetDefault("Websocket.EventSendStopWriting", "sendStopWritingMessage")
	viper.SetDefault("Websocket.EventNewMessage", "newMessage")
	viper.SetDefault("Websocket.EventMessageReceiptUpdated", "messageReceiptUpdated")
	viper.SetDefault("Websocket.EventWritingMessage", "writingMessage")
	viper.SetDefault("Websocket.EventStopWritingMessage", "stopWritingMessage")
	viper.SetDefault("Websocket.EventNewNotification", "newNotification")
	viper.SetDefault("Websocket.EventEscrowStateUpdated", "escrowStateUpdated")
	viper.SetDefault("Websocket.EventError", "error")
	viper.SetDefault("Websocket.PingInterval", "25s")
	viper.SetDefault("Websocket.MaxMessageSize", "65536")
	viper.SetDefault("Websocket.MessagesPerSecond", "20")
	viper.SetDefault("Websocket.SendBufferSize", "64")
	viper.SetDefault("Websocket.RedisChannel", "market:socket")
	viper.SetDefault("Websocket.EscrowNotifyChannel", "escrow_state_changed")
}
