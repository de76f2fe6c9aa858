package notify

import (
	"errors"
	"net/http"

	"AProject/logger"
	errs "AProject/tools/errs"

	"github.com/gin-gonic/gin"
)

// Handler is the internal REST surface the activity CRUD layer calls when
// join requests, decisions, or reviews happen.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Register mounts the notify routes on an (authenticated) route group.
func (h *Handler) Register(g *gin.RouterGroup) {
	g.POST("/notify", h.send)
}

type sendReq struct {
	RecipientID int64          `json:"recipientId" binding:"required"`
	Message     string         `json:"message" binding:"required"`
	Data        map[string]any `json:"data"`
}

func (h *Handler) send(c *gin.Context) {
	var req sendReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
		return
	}
	if err := h.svc.Send(req.RecipientID, req.Message, req.Data); err != nil {
		var ce *errs.CodeError
		if errors.As(err, &ce) {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": ce.Msg, "detail": ce.Detail})
			return
		}
		logger.Errorf("[notify] send recipient=%d err: %v", req.RecipientID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false})
		return
	}
	// delivery is best-effort to live connections; 202 regardless of
	// whether anyone was online
	c.JSON(http.StatusAccepted, gin.H{"ok": true})
}
