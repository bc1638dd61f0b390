package socket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/warp-contracts/marketplace/src/utils/apperr"
	"github.com/warp-contracts/marketplace/src/utils/auth"
	"golang.org/x/time/rate"
	"nhooyr.io/websocket"
)

const writeTimeout = 10 * time.Second

// One websocket connection of an authenticated user
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	claims *auth.Claims
	log    *logrus.Entry

	limiter *rate.Limiter
	send    chan []byte

	// Rooms joined, guarded by the hub
	rooms map[string]struct{}

	done      chan struct{}
	closeOnce sync.Once
}

func newClient(hub *Hub, conn *websocket.Conn, claims *auth.Claims) (self *Client) {
	self = new(Client)
	self.hub = hub
	self.conn = conn
	self.claims = claims
	self.log = hub.Log.WithField("user_id", claims.UserID)
	self.send = make(chan []byte, hub.Config.Websocket.SendBufferSize)
	self.rooms = make(map[string]struct{})
	self.done = make(chan struct{})

	perSecond := hub.Config.Websocket.MessagesPerSecond
	burst := int(perSecond)
	if burst < 1 {
		burst = 1
	}
	self.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	return
}

// Queues an encoded frame. A client that can't keep up gets disconnected.
func (self *Client) enqueue(buf []byte) {
	select {
	case self.send <- buf:
	default:
		self.hub.monitor.GetReport().Socket.Errors.DroppedMessages.Inc()
		self.log.Warn("Send buffer full, disconnecting")
		self.close(websocket.StatusPolicyViolation, "too slow")
	}
}

func (self *Client) emit(event string, data interface{}) {
	raw, err := json.Marshal(data)
	if err != nil {
		self.log.WithError(err).Error("Failed to encode event")
		return
	}
	buf, err := encode(event, raw)
	if err != nil {
		self.log.WithError(err).Error("Failed to encode frame")
		return
	}
	self.enqueue(buf)
}

func (self *Client) emitError(event string, err error) {
	data := &ErrorData{Event: event, Code: "SOCKET_ERROR", Message: "Internal error"}
	if appErr, ok := apperr.As(err); ok {
		data.Code = appErr.Code
		data.Message = appErr.Message
	} else {
		self.log.WithError(err).WithField("event", event).Error("Failed to handle event")
	}
	self.emit(self.hub.Config.Websocket.EventError, data)
}

func (self *Client) close(code websocket.StatusCode, reason string) {
	self.closeOnce.Do(func() {
		close(self.done)
		// Close waits for the peer's reply
		go func() {
			_ = self.conn.Close(code, reason)
		}()
	})
}

// Blocks until the connection ends
func (self *Client) serve(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		self.writeLoop(ctx)
	}()

	self.readLoop(ctx)

	self.close(websocket.StatusNormalClosure, "")
	cancel()
	wg.Wait()
}

func (self *Client) readLoop(ctx context.Context) {
	for {
		typ, buf, err := self.conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == -1 && ctx.Err() == nil {
				self.log.WithError(err).Debug("Read failed")
			}
			return
		}
		self.hub.monitor.GetReport().Socket.State.MessagesReceived.Inc()

		if !self.limiter.Allow() {
			self.hub.monitor.GetReport().Socket.Errors.RateLimited.Inc()
			self.emitError("", apperr.New(http.StatusTooManyRequests, "RATE_LIMITED", "Too many messages"))
			continue
		}

		var frame Frame
		if typ != websocket.MessageText || json.Unmarshal(buf, &frame) != nil || frame.Event == "" {
			self.hub.monitor.GetReport().Socket.Errors.InvalidFrames.Inc()
			self.emitError("", apperr.BadRequest("INVALID_FRAME", "Expected {\"event\": string, \"data\": any}"))
			continue
		}

		err = self.hub.handle(ctx, self, &frame)
		if err != nil {
			self.emitError(frame.Event, err)
		}
	}
}

func (self *Client) writeLoop(ctx context.Context) {
	ticker := time.NewTicker(self.hub.Config.Websocket.PingInterval)
	defer ticker.Stop()

	write := func(f func(ctx context.Context) error) bool {
		ctx, cancel := context.WithTimeout(ctx, writeTimeout)
		defer cancel()
		err := f(ctx)
		if err != nil {
			self.log.WithError(err).Debug("Write failed")
			self.close(websocket.StatusInternalError, "write failed")
			return false
		}
		return true
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-self.done:
			return
		case buf := <-self.send:
			ok := write(func(ctx context.Context) error {
				return self.conn.Write(ctx, websocket.MessageText, buf)
			})
			if !ok {
				return
			}
			self.hub.monitor.GetReport().Socket.State.MessagesSent.Inc()
		case <-ticker.C:
			if !write(self.conn.Ping) {
				return
			}
		}
	}
}
