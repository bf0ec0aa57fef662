package boarddto

import "encoding/json"

// MessageType tags frames on the session WebSocket feed.
type MessageType string

const (
	MessageTypeState     MessageType = "state"
	MessageTypeError     MessageType = "error"
	MessageTypeClick     MessageType = "click"
	MessageTypeReset     MessageType = "reset"
	MessageTypeUndo      MessageType = "undo"
	MessageTypeJump      MessageType = "jump"
	MessageTypeFlip      MessageType = "flip"
	MessageTypePromotion MessageType = "promotion"
)

type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewMessage marshals payload into a frame.
func NewMessage(t MessageType, payload any) (Message, error) {
	if payload == nil {
		return Message{Type: t}, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Message{}, err
	}
	return Message{Type: t, Payload: raw}, nil
}
