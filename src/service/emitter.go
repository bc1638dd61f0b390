package service

// Delivers events to socket rooms. Implemented by the socket hub.
type Emitter interface {
	Emit(room, event string, data interface{})
}

type noopEmitter struct{}

func (noopEmitter) Emit(room, event string, data interface{}) {}

func UserRoom(userId string) string {
	return "user:" + userId
}

func ConversationRoom(conversationId string) string {
	return "conversation:" + conversationId
}
