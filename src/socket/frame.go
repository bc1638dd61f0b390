package socket

import (
	"encoding/json"
	"errors"
)

// Every message in both directions
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Payload of the error event
type ErrorData struct {
	Event   string `json:"event,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Event passed between instances through redis
type envelope struct {
	Origin string          `json:"origin"`
	Room   string          `json:"room"`
	Event  string          `json:"event"`
	Data   json.RawMessage `json:"data"`
}

func (self *envelope) MarshalBinary() ([]byte, error) {
	return json.Marshal(self)
}

func encode(event string, data json.RawMessage) ([]byte, error) {
	return json.Marshal(&Frame{Event: event, Data: data})
}

// Accepts a bare string or an object with the given key
func stringArg(data json.RawMessage, key string) (out string, err error) {
	if len(data) == 0 {
		return "", errors.New("missing argument")
	}

	err = json.Unmarshal(data, &out)
	if err == nil {
		return
	}

	var obj map[string]interface{}
	err = json.Unmarshal(data, &obj)
	if err != nil {
		return "", errors.New("argument must be a string or an object")
	}
	out, _ = obj[key].(string)
	if out == "" {
		return "", errors.New("missing " + key)
	}
	return out, nil
}
