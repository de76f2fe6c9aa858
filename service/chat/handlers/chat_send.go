package handlers

import (
	"context"

	"AProject/logger"
	"AProject/module/activity/model"
	"AProject/service/chat"
)

// ChatHandler persists then broadcasts a room message. Access is re-checked
// on every send: a participant the host rejected mid-session loses posting
// rights immediately even while their subscription entry is still around.
type ChatHandler struct{ s *chat.Server }

func NewChatHandler(s *chat.Server) chat.Handler { return &ChatHandler{s: s} }

func (h *ChatHandler) Type() chat.FrameType { return chat.FrameChat }

func (h *ChatHandler) Handle(ctx context.Context, f *chat.Frame, c *chat.Client) error {
	if !c.Authed {
		logger.Infof("[chat] drop, unauthenticated conn=%s room=%d", c.ConnID, f.ActivityID)
		return nil
	}
	if f.ActivityID <= 0 || f.Content == "" {
		logger.Infof("[chat] drop, incomplete frame conn=%s room=%d", c.ConnID, f.ActivityID)
		return nil
	}
	if f.SenderID != 0 && f.SenderID != c.UserID {
		// the bound identity wins over whatever the payload claims
		logger.Warnf("[chat] senderId mismatch conn=%s bound=%d claimed=%d", c.ConnID, c.UserID, f.SenderID)
	}

	ok, err := h.s.Gateway().CanUserAccessChat(ctx, c.UserID, f.ActivityID)
	if err != nil {
		logger.Errorf("[chat] access check user=%d room=%d err: %v", c.UserID, f.ActivityID, err)
		return nil
	}
	if !ok {
		// silent drop: no persist, no broadcast, no error frame
		logger.Warnf("[chat] drop unauthorized send user=%d room=%d", c.UserID, f.ActivityID)
		return nil
	}

	msg, err := h.s.Gateway().CreateMessage(ctx, f.ActivityID, c.UserID, f.Content)
	if err != nil {
		logger.Errorf("[chat] persist user=%d room=%d err: %v", c.UserID, f.ActivityID, err)
		return nil
	}

	senderName := ""
	if u, err := h.s.Gateway().GetUser(ctx, c.UserID); err != nil {
		logger.Infof("[chat] sender lookup user=%d err=%v", c.UserID, err)
	} else {
		senderName = u.Username
	}

	out := &model.ChatMessage{
		ID:         msg.ID,
		ActivityID: f.ActivityID,
		SenderID:   c.UserID,
		SenderName: senderName,
		Content:    f.Content,
		CreatedAt:  msg.CreatedAt,
	}
	h.s.Broadcast().BroadcastRoom(f.ActivityID, chat.BuildChatFrame(out))
	return nil
}
