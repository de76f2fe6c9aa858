package handlers

import (
	"context"

	"AProject/logger"
	"AProject/service/chat"
)

// SubscribeHandler gates room subscriptions behind the storage access check
// and seeds the subscriber with the room's recent message window.
type SubscribeHandler struct{ s *chat.Server }

func NewSubscribeHandler(s *chat.Server) chat.Handler { return &SubscribeHandler{s: s} }

func (h *SubscribeHandler) Type() chat.FrameType { return chat.FrameSubscribe }

func (h *SubscribeHandler) Handle(ctx context.Context, f *chat.Frame, c *chat.Client) error {
	if !c.Authed {
		logger.Infof("[subscribe] drop, unauthenticated conn=%s room=%d", c.ConnID, f.ActivityID)
		return nil
	}
	if f.ActivityID <= 0 {
		logger.Infof("[subscribe] drop, missing activityId conn=%s", c.ConnID)
		return nil
	}

	ok, err := h.s.Gateway().CanUserAccessChat(ctx, c.UserID, f.ActivityID)
	if err != nil {
		logger.Errorf("[subscribe] access check user=%d room=%d err: %v", c.UserID, f.ActivityID, err)
		c.Enqueue(chat.BuildSubscribeFail(f.ActivityID, "internal error"))
		return nil
	}
	if !ok {
		c.Enqueue(chat.BuildSubscribeFail(f.ActivityID, "access denied"))
		return nil
	}

	h.s.Reg().SubscribeRoom(f.ActivityID, c)
	c.AddRoom(f.ActivityID)

	msgs, err := h.s.Gateway().RecentMessages(ctx, f.ActivityID, h.s.Conf().RecentWindow)
	if err != nil {
		// subscription is registered; sync with an empty window rather
		// than tearing the frame down
		logger.Errorf("[subscribe] recent window room=%d err: %v", f.ActivityID, err)
		msgs = nil
	}
	c.Enqueue(chat.BuildSubscribeOK(f.ActivityID, msgs))
	return nil
}
