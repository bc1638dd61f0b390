package socket

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/xid"
	"github.com/teivah/onecontext"
	"github.com/warp-contracts/marketplace/src/service"
	"github.com/warp-contracts/marketplace/src/utils/apperr"
	"github.com/warp-contracts/marketplace/src/utils/auth"
	"github.com/warp-contracts/marketplace/src/utils/config"
	"github.com/warp-contracts/marketplace/src/utils/model"
	"github.com/warp-contracts/marketplace/src/utils/monitoring"
	"github.com/warp-contracts/marketplace/src/utils/notify"
	"github.com/warp-contracts/marketplace/src/utils/publisher"
	"github.com/warp-contracts/marketplace/src/utils/task"
	"nhooyr.io/websocket"
)

// Websocket server. Keeps rooms of connected clients in memory.
// With redis configured, events emitted on one instance reach clients of all instances.
type Hub struct {
	*task.Task

	// Distinguishes our own events coming back from redis
	id string

	tokens   *auth.Tokens
	services *service.Services
	monitor  *monitoring.Monitor

	mtx     sync.RWMutex
	clients map[*Client]struct{}
	rooms   map[string]map[*Client]struct{}

	// Connections being served
	connections sync.WaitGroup

	// Events for other instances, nil without redis
	published chan *envelope

	// Events from other instances
	remote chan string

	// Escrow state changes from postgres
	escrows chan *model.EscrowStateChange
}

func NewHub(config *config.Config) (self *Hub) {
	self = new(Hub)
	self.id = xid.New().String()
	self.tokens = auth.NewTokens(config)
	self.clients = make(map[*Client]struct{})
	self.rooms = make(map[string]map[*Client]struct{})

	self.Task = task.NewTask(config, "socket").
		WithSubtaskFunc(self.run).
		WithOnAfterStop(self.connections.Wait)

	return
}

func (self *Hub) WithServices(services *service.Services) *Hub {
	self.services = services
	return self
}

func (self *Hub) WithMonitor(monitor *monitoring.Monitor) *Hub {
	self.monitor = monitor
	return self
}

// Fans events out through the redis channel. Call after WithMonitor.
func (self *Hub) WithRedis(client *redis.Client) *Hub {
	self.published = make(chan *envelope, self.Config.Websocket.SendBufferSize)

	redisPublisher := publisher.NewRedisPublisher[*envelope](self.Config, client, "socket-publisher").
		WithChannelName(self.Config.Websocket.RedisChannel).
		WithInputChannel(self.published).
		WithMonitor(self.monitor)

	subscriber := publisher.NewRedisSubscriber(self.Config, client, "socket-subscriber").
		WithChannelName(self.Config.Websocket.RedisChannel).
		WithMonitor(self.monitor)
	self.remote = subscriber.Output

	self.Task = self.Task.
		WithSubtask(redisPublisher.Task).
		WithSubtask(subscriber.Task)
	return self
}

// Listens to escrow state changes made by any instance
func (self *Hub) WithEscrowNotifications() *Hub {
	streamer := notify.NewStreamer[model.EscrowStateChange](self.Config, "escrow-streamer").
		WithNotificationChannelName(self.Config.Websocket.EscrowNotifyChannel).
		WithCapacity(self.Config.Websocket.SendBufferSize).
		WithOnInvalid(func(string, error) {
			self.monitor.GetReport().Socket.Errors.BridgeErrors.Inc()
		})
	self.escrows = streamer.Output

	self.Task = self.Task.WithSubtask(streamer.Task)
	return self
}

// Emitter used by the services
func (self *Hub) Emit(room, event string, data interface{}) {
	raw, err := json.Marshal(data)
	if err != nil {
		self.Log.WithError(err).WithField("event", event).Error("Failed to encode event")
		return
	}

	self.broadcast(room, event, raw, nil)

	if self.published == nil {
		return
	}
	select {
	case self.published <- &envelope{Origin: self.id, Room: room, Event: event, Data: raw}:
	default:
		self.monitor.GetReport().Socket.Errors.BridgeErrors.Inc()
		self.Log.WithField("room", room).Warn("Redis queue full, event not shared")
	}
}

// Sends the event to everyone in the room except the given client
func (self *Hub) broadcast(room, event string, data json.RawMessage, except *Client) {
	buf, err := encode(event, data)
	if err != nil {
		self.Log.WithError(err).Error("Failed to encode frame")
		return
	}

	self.mtx.RLock()
	members := make([]*Client, 0, len(self.rooms[room]))
	for client := range self.rooms[room] {
		if client != except {
			members = append(members, client)
		}
	}
	self.mtx.RUnlock()

	for _, client := range members {
		client.enqueue(buf)
	}
}

func (self *Hub) join(client *Client, room string) {
	self.mtx.Lock()
	defer self.mtx.Unlock()

	members, ok := self.rooms[room]
	if !ok {
		members = make(map[*Client]struct{})
		self.rooms[room] = members
		self.monitor.GetReport().Socket.State.Rooms.Inc()
	}
	members[client] = struct{}{}
	client.rooms[room] = struct{}{}
}

func (self *Hub) register(client *Client) {
	self.mtx.Lock()
	defer self.mtx.Unlock()
	self.clients[client] = struct{}{}
	self.monitor.GetReport().Socket.State.Connections.Inc()
}

func (self *Hub) unregister(client *Client) {
	self.mtx.Lock()
	defer self.mtx.Unlock()

	delete(self.clients, client)
	for room := range client.rooms {
		delete(self.rooms[room], client)
		if len(self.rooms[room]) == 0 {
			delete(self.rooms, room)
			self.monitor.GetReport().Socket.State.Rooms.Dec()
		}
	}
	client.rooms = make(map[string]struct{})
	self.monitor.GetReport().Socket.State.Connections.Dec()
}

func (self *Hub) isMember(client *Client, room string) bool {
	self.mtx.RLock()
	defer self.mtx.RUnlock()
	_, ok := client.rooms[room]
	return ok
}

func token(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return c.Query("token")
}

// Upgrades an authenticated request to a websocket connection
func (self *Hub) Handle(c *gin.Context) {
	if self.IsStopping.Load() {
		_ = c.Error(apperr.Unavailable("SOCKET_UNAVAILABLE", "Server is shutting down"))
		return
	}

	claims, err := self.tokens.Verify(token(c))
	if err != nil {
		_ = c.Error(apperr.Unauthorized("Invalid or missing token"))
		return
	}

	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		OriginPatterns: self.Config.API.CorsOrigins,
	})
	if err != nil {
		// Accept already replied
		self.Log.WithError(err).Debug("Failed to accept websocket")
		return
	}
	conn.SetReadLimit(self.Config.Websocket.MaxMessageSize)

	self.connections.Add(1)
	defer self.connections.Done()

	// Ends with the request or when the hub stops
	ctx, cancel := onecontext.Merge(self.Ctx, c.Request.Context())
	defer cancel()

	client := newClient(self, conn, claims)
	self.register(client)
	defer self.unregister(client)

	client.log.Debug("Connected")
	client.serve(ctx)
	client.log.Debug("Disconnected")
}

func (self *Hub) run() error {
	for {
		select {
		case <-self.StopChannel:
			return nil

		case payload, ok := <-self.remote:
			if !ok {
				self.remote = nil
				continue
			}
			self.onRemote(payload)

		case payload, ok := <-self.escrows:
			if !ok {
				self.escrows = nil
				continue
			}
			self.onEscrowChanged(payload)
		}
	}
}

func (self *Hub) onRemote(payload string) {
	var env envelope
	err := json.Unmarshal([]byte(payload), &env)
	if err != nil {
		self.monitor.GetReport().Socket.Errors.BridgeErrors.Inc()
		self.Log.WithError(err).Warn("Invalid event from redis")
		return
	}
	if env.Origin == self.id {
		// Already delivered locally
		return
	}
	self.broadcast(env.Room, env.Event, env.Data, nil)
}

// Every instance gets the notification, so it's delivered only locally
func (self *Hub) onEscrowChanged(change *model.EscrowStateChange) {
	raw, err := json.Marshal(change)
	if err != nil {
		self.Log.WithError(err).Error("Failed to encode escrow change")
		return
	}
	self.monitor.GetReport().Socket.State.EscrowEvents.Inc()

	for _, userId := range []string{change.BuyerID, change.SellerID} {
		self.broadcast(service.UserRoom(userId), self.Config.Websocket.EventEscrowStateUpdated, raw, nil)
	}
}
