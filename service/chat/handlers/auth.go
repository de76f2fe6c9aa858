package handlers

import (
	"context"

	"AProject/logger"
	"AProject/service/chat"
)

// AuthHandler binds a claimed user identity to the connection. Credential
// verification happens upstream (session cookie / token exchange before the
// socket opens); this layer only records the binding and acks in-band.
type AuthHandler struct{ s *chat.Server }

func NewAuthHandler(s *chat.Server) chat.Handler { return &AuthHandler{s: s} }

func (h *AuthHandler) Type() chat.FrameType { return chat.FrameAuth }

func (h *AuthHandler) Handle(ctx context.Context, f *chat.Frame, c *chat.Client) error {
	if c.Authed {
		// one identity per connection for its lifetime
		logger.Infof("[auth] drop re-auth conn=%s user=%d claimed=%d", c.ConnID, c.UserID, f.UserID)
		return nil
	}
	if f.UserID <= 0 {
		logger.Infof("[auth] drop, missing userId conn=%s", c.ConnID)
		return nil
	}

	c.UserID = f.UserID
	c.Authed = true
	h.s.Reg().Add(c)

	if p := h.s.Presence(); p != nil {
		if err := p.MarkOnline(ctx, c.UserID, c.ConnID); err != nil {
			logger.Infof("[auth] presence online user=%d err=%v", c.UserID, err)
		}
	}

	c.Enqueue(chat.BuildAuthAck())
	return nil
}
