package chat

import (
	"fmt"

	"AProject/module/activity/model"

	json "github.com/goccy/go-json"
)

// FrameType is the closed set of envelope kinds on the wire. Adding a kind
// means adding a constant here, a branch in ParseFrame, and a handler.
type FrameType string

const (
	FrameAuth         FrameType = "auth"
	FrameSubscribe    FrameType = "subscribe"
	FrameChat         FrameType = "chat"
	FrameNotification FrameType = "notification"
)

// Frame is the inbound client envelope. Which fields are meaningful depends
// on Type; ParseFrame only guarantees the type tag is one of the known kinds.
type Frame struct {
	Type       FrameType `json:"type"`
	UserID     int64     `json:"userId,omitempty"`
	ActivityID int64     `json:"activityId,omitempty"`
	SenderID   int64     `json:"senderId,omitempty"`
	Content    string    `json:"content,omitempty"`
}

// ParseFrame decodes a raw text frame. Unknown type tags are an error so the
// read loop can drop the frame without guessing.
func ParseFrame(raw []byte) (*Frame, error) {
	f := &Frame{}
	if err := json.Unmarshal(raw, f); err != nil {
		return nil, fmt.Errorf("unmarshal frame: %w", err)
	}
	switch f.Type {
	case FrameAuth, FrameSubscribe, FrameChat, FrameNotification:
		return f, nil
	default:
		return nil, fmt.Errorf("unknown frame type %q", f.Type)
	}
}

// ---- server-side frame builders ----

type authAck struct {
	Type    FrameType `json:"type"`
	Success bool      `json:"success"`
}

type subscribeOK struct {
	Type       FrameType            `json:"type"`
	Success    bool                 `json:"success"`
	ActivityID int64                `json:"activityId"`
	Messages   []*model.ChatMessage `json:"messages"`
}

type subscribeFail struct {
	Type       FrameType `json:"type"`
	Success    bool      `json:"success"`
	ActivityID int64     `json:"activityId"`
	Error      string    `json:"error"`
}

type chatFrame struct {
	Type FrameType `json:"type"`
	*model.ChatMessage
}

type notificationFrame struct {
	Type    FrameType      `json:"type"`
	ID      string         `json:"id"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data"`
	Ts      string         `json:"timestamp"`
}

func BuildAuthAck() []byte {
	b, _ := json.Marshal(authAck{Type: FrameAuth, Success: true})
	return b
}

func BuildSubscribeOK(activityID int64, msgs []*model.ChatMessage) []byte {
	if msgs == nil {
		msgs = []*model.ChatMessage{}
	}
	b, _ := json.Marshal(subscribeOK{
		Type:       FrameSubscribe,
		Success:    true,
		ActivityID: activityID,
		Messages:   msgs,
	})
	return b
}

func BuildSubscribeFail(activityID int64, errMsg string) []byte {
	b, _ := json.Marshal(subscribeFail{
		Type:       FrameSubscribe,
		Success:    false,
		ActivityID: activityID,
		Error:      errMsg,
	})
	return b
}

func BuildChatFrame(m *model.ChatMessage) []byte {
	b, _ := json.Marshal(chatFrame{Type: FrameChat, ChatMessage: m})
	return b
}

func BuildNotificationFrame(id, message, ts string, data map[string]any) []byte {
	b, _ := json.Marshal(notificationFrame{
		Type:    FrameNotification,
		ID:      id,
		Message: message,
		Data:    data,
		Ts:      ts,
	})
	return b
}
