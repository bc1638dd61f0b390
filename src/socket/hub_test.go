package socket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/warp-contracts/marketplace/src/service"
	"github.com/warp-contracts/marketplace/src/utils/apperr"
	"github.com/warp-contracts/marketplace/src/utils/auth"
	"github.com/warp-contracts/marketplace/src/utils/config"
	"github.com/warp-contracts/marketplace/src/utils/model"
	"github.com/warp-contracts/marketplace/src/utils/model/modeltest"
	"github.com/warp-contracts/marketplace/src/utils/monitoring"
	"gorm.io/gorm"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

func TestHubTestSuite(t *testing.T) {
	suite.Run(t, new(HubTestSuite))
}

type HubTestSuite struct {
	suite.Suite
	ctx          context.Context
	config       *config.Config
	db           *gorm.DB
	hub          *Hub
	services     *service.Services
	server       *httptest.Server
	conversation *model.Conversation
}

func (s *HubTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)

	s.ctx = context.Background()
	s.config = config.Default()
	s.config.StopTimeout = 5 * time.Second
	s.config.Auth.JwtSecret = "test-secret"

	s.db = modeltest.NewDB(s.T())
	db := s.db
	s.hub = NewHub(s.config).WithMonitor(monitoring.NewMonitor(s.config))
	s.services = service.New(s.config, db, s.hub)
	s.hub.WithServices(s.services)
	require.NoError(s.T(), s.hub.Start())

	modeltest.CreateUser(s.T(), db, "client", model.UserRoleClient)
	modeltest.CreateUser(s.T(), db, "freelancer", model.UserRoleFreelancer)
	modeltest.CreateUser(s.T(), db, "outsider", model.UserRoleFreelancer)

	var err error
	s.conversation, err = s.services.Chat.CreateConversation(s.ctx, nil, &service.ConversationInput{
		ClientID:     "client",
		FreelancerID: "freelancer",
	})
	require.NoError(s.T(), err)

	router := gin.New()
	router.GET("/ws", s.hub.Handle, func(c *gin.Context) {
		if err := c.Errors.Last(); err != nil {
			appErr, _ := apperr.As(err.Err)
			c.AbortWithStatus(appErr.StatusCode)
		}
	})
	s.server = httptest.NewServer(router)

	s.T().Cleanup(func() {
		s.hub.StopWait()
		s.server.Close()
	})
}

func (s *HubTestSuite) token(userId string, role model.UserRole) string {
	token, _, err := auth.NewTokens(s.config).Issue(userId, role)
	require.NoError(s.T(), err)
	return token
}

func (s *HubTestSuite) dial(userId string, role model.UserRole) *websocket.Conn {
	url := "ws" + strings.TrimPrefix(s.server.URL, "http") + "/ws?token=" + s.token(userId, role)
	conn, _, err := websocket.Dial(s.ctx, url, nil)
	require.NoError(s.T(), err)
	s.T().Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func (s *HubTestSuite) send(conn *websocket.Conn, event string, data interface{}) {
	raw, err := json.Marshal(data)
	require.NoError(s.T(), err)
	require.NoError(s.T(), wsjson.Write(s.ctx, conn, &Frame{Event: event, Data: raw}))
}

func (s *HubTestSuite) read(conn *websocket.Conn) *Frame {
	ctx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
	defer cancel()

	var frame Frame
	require.NoError(s.T(), wsjson.Read(ctx, conn, &frame))
	return &frame
}

func (s *HubTestSuite) readError(conn *websocket.Conn) *ErrorData {
	frame := s.read(conn)
	require.Equal(s.T(), s.config.Websocket.EventError, frame.Event)

	var data ErrorData
	require.NoError(s.T(), json.Unmarshal(frame.Data, &data))
	return &data
}

func (s *HubTestSuite) members(room string) int {
	s.hub.mtx.RLock()
	defer s.hub.mtx.RUnlock()
	return len(s.hub.rooms[room])
}

func (s *HubTestSuite) waitMembers(room string, n int) {
	require.Eventually(s.T(), func() bool { return s.members(room) == n }, 5*time.Second, 10*time.Millisecond)
}

func (s *HubTestSuite) TestRejectsMissingToken() {
	url := "ws" + strings.TrimPrefix(s.server.URL, "http") + "/ws"
	_, resp, err := websocket.Dial(s.ctx, url, nil)
	require.Error(s.T(), err)
	require.Equal(s.T(), http.StatusUnauthorized, resp.StatusCode)
}

func (s *HubTestSuite) TestUserRoomReceivesNotifications() {
	conn := s.dial("client", model.UserRoleClient)
	s.send(conn, s.config.Websocket.EventJoinUserRoom, "client")
	s.waitMembers(service.UserRoom("client"), 1)

	s.hub.Emit(service.UserRoom("client"), s.config.Websocket.EventNewNotification, map[string]string{"title": "Hello"})

	frame := s.read(conn)
	require.Equal(s.T(), s.config.Websocket.EventNewNotification, frame.Event)
	require.JSONEq(s.T(), `{"title":"Hello"}`, string(frame.Data))
}

func (s *HubTestSuite) TestCantJoinOtherUsersRoom() {
	conn := s.dial("client", model.UserRoleClient)
	s.send(conn, s.config.Websocket.EventJoinUserRoom, map[string]string{"user_id": "freelancer"})

	data := s.readError(conn)
	require.Equal(s.T(), "FORBIDDEN", data.Code)
	require.Equal(s.T(), s.config.Websocket.EventJoinUserRoom, data.Event)
	require.Equal(s.T(), 0, s.members(service.UserRoom("freelancer")))
}

func (s *HubTestSuite) TestOutsiderCantJoinConversation() {
	conn := s.dial("outsider", model.UserRoleFreelancer)
	s.send(conn, s.config.Websocket.EventJoinRoom, s.conversation.ID)

	require.Equal(s.T(), "FORBIDDEN", s.readError(conn).Code)
}

func (s *HubTestSuite) TestAdminJoinsAnyConversation() {
	modeltest.CreateUser(s.T(), s.db, "admin", model.UserRoleAdmin)
	conn := s.dial("admin", model.UserRoleAdmin)
	s.send(conn, s.config.Websocket.EventJoinRoom, s.conversation.ID)
	s.waitMembers(service.ConversationRoom(s.conversation.ID), 1)
}

func (s *HubTestSuite) TestMessageAndReceipt() {
	room := service.ConversationRoom(s.conversation.ID)
	client := s.dial("client", model.UserRoleClient)
	freelancer := s.dial("freelancer", model.UserRoleFreelancer)
	s.send(client, s.config.Websocket.EventJoinRoom, s.conversation.ID)
	s.send(freelancer, s.config.Websocket.EventJoinRoom, map[string]string{"conversation_id": s.conversation.ID})
	s.waitMembers(room, 2)

	s.send(client, s.config.Websocket.EventSendNewMessage, map[string]string{
		"conversation_id": s.conversation.ID,
		"body":            "Hi there",
	})

	frame := s.read(freelancer)
	require.Equal(s.T(), s.config.Websocket.EventNewMessage, frame.Event)
	var message model.Message
	require.NoError(s.T(), json.Unmarshal(frame.Data, &message))
	require.Equal(s.T(), "client", message.SenderID)
	require.Equal(s.T(), "Hi there", message.Body)

	// Sender is in the room too
	require.Equal(s.T(), s.config.Websocket.EventNewMessage, s.read(client).Event)

	s.send(freelancer, s.config.Websocket.EventSendMessageReceipt, map[string]string{
		"message_id": message.ID,
		"user_id":    "freelancer",
		"state":      "delivered",
	})

	frame = s.read(client)
	require.Equal(s.T(), s.config.Websocket.EventMessageReceiptUpdated, frame.Event)
	var update service.ReceiptUpdate
	require.NoError(s.T(), json.Unmarshal(frame.Data, &update))
	require.Equal(s.T(), model.ReceiptStateDelivered, update.Receipt.State)
}

func (s *HubTestSuite) TestReceiptOfSomeoneElse() {
	conn := s.dial("client", model.UserRoleClient)
	s.send(conn, s.config.Websocket.EventSendMessageReceipt, map[string]string{
		"message_id": "m1",
		"user_id":    "freelancer",
		"state":      "read",
	})
	require.Equal(s.T(), "FORBIDDEN", s.readError(conn).Code)
}

func (s *HubTestSuite) TestWritingGoesToOthers() {
	room := service.ConversationRoom(s.conversation.ID)
	client := s.dial("client", model.UserRoleClient)
	freelancer := s.dial("freelancer", model.UserRoleFreelancer)
	s.send(client, s.config.Websocket.EventJoinRoom, s.conversation.ID)
	s.send(freelancer, s.config.Websocket.EventJoinRoom, s.conversation.ID)
	s.waitMembers(room, 2)

	s.send(client, s.config.Websocket.EventSendWriting, s.conversation.ID)

	frame := s.read(freelancer)
	require.Equal(s.T(), s.config.Websocket.EventWritingMessage, frame.Event)
	var data WritingData
	require.NoError(s.T(), json.Unmarshal(frame.Data, &data))
	require.Equal(s.T(), WritingData{ConversationID: s.conversation.ID, UserID: "client"}, data)

	// Nothing comes back to the writer, the next frame is the answer to a bad event
	s.send(client, "noSuchEvent", nil)
	require.Equal(s.T(), "UNKNOWN_EVENT", s.readError(client).Code)
}

func (s *HubTestSuite) TestWritingNeedsMembership() {
	conn := s.dial("client", model.UserRoleClient)
	s.send(conn, s.config.Websocket.EventSendStopWriting, s.conversation.ID)
	require.Equal(s.T(), "FORBIDDEN", s.readError(conn).Code)
}

func (s *HubTestSuite) TestInvalidFrame() {
	conn := s.dial("client", model.UserRoleClient)
	require.NoError(s.T(), conn.Write(s.ctx, websocket.MessageText, []byte("not json")))
	require.Equal(s.T(), "INVALID_FRAME", s.readError(conn).Code)

	// Connection survives
	s.send(conn, s.config.Websocket.EventJoinUserRoom, "client")
	s.waitMembers(service.UserRoom("client"), 1)
}

func (s *HubTestSuite) TestRateLimit() {
	s.config.Websocket.MessagesPerSecond = 1
	conn := s.dial("client", model.UserRoleClient)

	s.send(conn, s.config.Websocket.EventJoinUserRoom, "client")
	s.send(conn, s.config.Websocket.EventJoinUserRoom, "client")
	require.Equal(s.T(), "RATE_LIMITED", s.readError(conn).Code)
}

func (s *HubTestSuite) TestRemoteEvents() {
	conn := s.dial("client", model.UserRoleClient)
	s.send(conn, s.config.Websocket.EventJoinUserRoom, "client")
	s.waitMembers(service.UserRoom("client"), 1)

	own, err := json.Marshal(&envelope{Origin: s.hub.id, Room: service.UserRoom("client"), Event: "own", Data: json.RawMessage(`1`)})
	require.NoError(s.T(), err)
	s.hub.onRemote(string(own))

	other, err := json.Marshal(&envelope{Origin: "other", Room: service.UserRoom("client"), Event: "other", Data: json.RawMessage(`2`)})
	require.NoError(s.T(), err)
	s.hub.onRemote(string(other))

	frame := s.read(conn)
	require.Equal(s.T(), "other", frame.Event)
}

func (s *HubTestSuite) TestEscrowNotification() {
	buyer := s.dial("client", model.UserRoleClient)
	s.send(buyer, s.config.Websocket.EventJoinUserRoom, "client")
	s.waitMembers(service.UserRoom("client"), 1)

	s.hub.onEscrowChanged(&model.EscrowStateChange{
		EscrowID:  "e1",
		BuyerID:   "client",
		SellerID:  "freelancer",
		FromState: model.EscrowStateUnfunded,
		ToState:   model.EscrowStateFunded,
	})

	frame := s.read(buyer)
	require.Equal(s.T(), s.config.Websocket.EventEscrowStateUpdated, frame.Event)
	var change model.EscrowStateChange
	require.NoError(s.T(), json.Unmarshal(frame.Data, &change))
	require.Equal(s.T(), model.EscrowStateFunded, change.ToState)
}
