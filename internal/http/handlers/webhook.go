// Package handlers contains the Gin endpoint handlers of the ops/webhook
// server. The webhook endpoint is a thin adapter: it decodes transport
// updates into engine events and never carries chat logic itself.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/warrantyhub/warranty-bot/internal/chat"
	"github.com/warrantyhub/warranty-bot/internal/engine"
)

// webhookUpdate is the transport-neutral update shape. Exactly one of Text or
// Callback is expected; a callback takes precedence when both are present.
type webhookUpdate struct {
	ChatID      int64  `json:"chat_id" binding:"required"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Text        string `json:"text"`
	Callback    string `json:"callback"`
}

// Webhook returns the POST /webhook handler feeding the engine.
func Webhook(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var upd webhookUpdate
		if err := c.ShouldBindJSON(&upd); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": "bad_request", "message": "invalid update payload"})
			return
		}
		if upd.Text == "" && upd.Callback == "" {
			c.JSON(http.StatusBadRequest, gin.H{"code": "bad_request", "message": "update carries neither text nor callback"})
			return
		}

		ctx := c.Request.Context()
		if upd.Callback != "" {
			eng.HandleCallback(ctx, chat.IncomingCallback{
				ChatID:  upd.ChatID,
				Payload: upd.Callback,
			})
		} else {
			eng.HandleMessage(ctx, chat.IncomingMessage{
				ChatID:      upd.ChatID,
				Username:    upd.Username,
				DisplayName: upd.DisplayName,
				Text:        upd.Text,
			})
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// Health returns the liveness handler.
func Health() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
