package chat

import (
	"context"
	"net"
	"net/http"
	"time"

	"AProject/logger"
	"AProject/tools/ids"
	"AProject/tools/safe"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// HandleWS upgrades the request and runs the connection's read loop until
// the transport dies. Frames from one connection are processed to
// completion in arrival order; concurrency exists only across connections.
func (s *Server) HandleWS(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Infof("[ws] upgrade error: %v", err)
		return
	}
	ws.SetReadLimit(s.conf.ReadLimit)
	_ = ws.SetReadDeadline(time.Now().Add(s.conf.PongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(s.conf.PongWait))
	})

	client := NewClient(ids.GenerateString(), ws, s.conf.SendQueueSize)
	safe.Go(func() { s.writePump(client) })

	defer s.teardown(client)

	for {
		mt, data, rerr := ws.ReadMessage()
		if rerr != nil {
			if websocket.IsCloseError(rerr,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Infof("[ws] peer closed conn=%s err=%v", client.ConnID, rerr)
			} else if ne, ok := rerr.(net.Error); ok && ne.Timeout() {
				logger.Infof("[ws] read timeout conn=%s err=%v", client.ConnID, rerr)
			} else {
				logger.Infof("[ws] read err conn=%s err=%v", client.ConnID, rerr)
			}
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}

		_ = ws.SetReadDeadline(time.Now().Add(s.conf.PongWait))

		frame, perr := ParseFrame(data)
		if perr != nil {
			sample := data
			if len(sample) > 256 {
				sample = sample[:256]
			}
			logger.Infof("[ws] drop malformed frame conn=%s err=%v sample=%q", client.ConnID, perr, sample)
			continue
		}

		h := s.disp.GetHandler(frame.Type)
		if h == nil {
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), s.conf.FrameTimeout)
		if herr := h.Handle(ctx, frame, client); herr != nil {
			logger.Errorf("[ws] handler type=%s conn=%s err: %v", frame.Type, client.ConnID, herr)
		}
		cancel()

		if client.Authed && s.presence != nil {
			pctx, pcancel := context.WithTimeout(context.Background(), 2*time.Second)
			if err := s.presence.Touch(pctx, client.UserID); err != nil {
				logger.Debug("[ws] presence touch failed")
			}
			pcancel()
		}
	}
}

// writePump is the single writer for one connection. It owns the socket's
// close: any exit closes the transport so the read loop unblocks with an
// error and runs teardown, keeping cleanup on the one path.
func (s *Server) writePump(c *Client) {
	ticker := time.NewTicker(s.conf.pingPeriod())
	defer func() {
		ticker.Stop()
		_ = c.WS.Close()
	}()
	for {
		select {
		case payload := <-c.Send:
			if err := c.WS.SetWriteDeadline(time.Now().Add(s.conf.WriteDeadline)); err != nil {
				logger.Infof("[ws] set write deadline conn=%s err=%v", c.ConnID, err)
				return
			}
			if err := c.WS.WriteMessage(websocket.TextMessage, payload); err != nil {
				logger.Infof("[ws] write conn=%s err=%v", c.ConnID, err)
				return
			}
		case <-ticker.C:
			if err := c.WS.WriteControl(websocket.PingMessage, nil,
				time.Now().Add(s.conf.WriteDeadline)); err != nil {
				logger.Infof("[ws] ping conn=%s err=%v", c.ConnID, err)
				return
			}
		case <-c.Done():
			// teardown finished; say goodbye before the deferred close
			_ = c.WS.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			return
		}
	}
}

// teardown runs exactly once per connection, whatever state it reached:
// registry cleanup, presence offline, writer shutdown.
func (s *Server) teardown(c *Client) {
	s.reg.Remove(c)

	if c.Authed && s.presence != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := s.presence.MarkOffline(ctx, c.UserID, c.ConnID); err != nil {
			logger.Infof("[ws] presence offline user=%d err=%v", c.UserID, err)
		}
		cancel()
	}

	close(c.done)
	logger.Infof("[ws] conn closed conn=%s user=%d", c.ConnID, c.UserID)
}
