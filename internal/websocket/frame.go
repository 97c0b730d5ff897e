package websocket

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Frame types carried in the messageType field.
const (
	FrameUsers    = "users"
	FrameMessage  = "message"
	FrameRegister = "register"
)

// Frame is the wire format exchanged with clients, in both directions:
//
//	{"messageType":"register","data":"alice"}
//	{"messageType":"message","data":"{\"from\":\"alice\",\"body\":\"hi\"}"}
//	{"messageType":"users","dataArray":["alice","bob"]}
//
// Data and DataArray are mutually exclusive; which one is set depends on
// the frame type.
type Frame struct {
	MessageType string   `json:"messageType" validate:"required,oneof=users message register"`
	Data        string   `json:"data,omitempty"`
	DataArray   []string `json:"dataArray,omitempty"`
}

// MessagePayload is the nested JSON document carried in the Data field
// of a message frame.
type MessagePayload struct {
	From string `json:"from"`
	Body string `json:"body"`
}

var frameValidator = validator.New()

// DecodeFrame parses raw bytes into a Frame. It returns an error for
// malformed JSON and for unrecognized messageType values; callers are
// expected to log and discard, never to abort.
func DecodeFrame(raw []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return Frame{}, fmt.Errorf("malformed frame: %w", err)
	}
	if err := frameValidator.Struct(f); err != nil {
		return Frame{}, fmt.Errorf("invalid frame %q: %w", f.MessageType, err)
	}
	return f, nil
}

// Encode serializes the frame for the wire.
func (f Frame) Encode() ([]byte, error) {
	return json.Marshal(f)
}

// Message decodes the nested message payload of a message frame. An
// empty or malformed Data field yields an error, not a panic.
func (f Frame) Message() (MessagePayload, error) {
	if f.MessageType != FrameMessage {
		return MessagePayload{}, fmt.Errorf("frame type %q carries no message payload", f.MessageType)
	}
	var p MessagePayload
	if err := json.Unmarshal([]byte(f.Data), &p); err != nil {
		return MessagePayload{}, fmt.Errorf("malformed message payload: %w", err)
	}
	return p, nil
}

// NewRegisterFrame builds the frame a client sends to announce itself.
func NewRegisterFrame(username string) Frame {
	return Frame{MessageType: FrameRegister, Data: username}
}

// NewUsersFrame builds a full-replace roster snapshot frame.
func NewUsersFrame(names []string) Frame {
	return Frame{MessageType: FrameUsers, DataArray: names}
}

// NewMessageFrame builds an outbound chat message frame. The payload is
// nested as a JSON string inside the Data field, mirroring what clients
// send.
func NewMessageFrame(from, body string) (Frame, error) {
	data, err := json.Marshal(MessagePayload{From: from, Body: body})
	if err != nil {
		return Frame{}, fmt.Errorf("encoding message payload: %w", err)
	}
	return Frame{MessageType: FrameMessage, Data: string(data)}, nil
}
