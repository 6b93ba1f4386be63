// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"smart-chat-go/internal/model"
	"smart-chat-go/internal/service"
)

// MessageHandler 处理与聊天历史相关的 API 请求。
type MessageHandler struct {
	messageService service.MessageService
}

// NewMessageHandler 创建一个新的 MessageHandler。
func NewMessageHandler(messageService service.MessageService) *MessageHandler {
	return &MessageHandler{messageService: messageService}
}

// GetMessages 处理获取当前用户聊天历史的请求，按创建时间升序返回。
func (h *MessageHandler) GetMessages(c *gin.Context) {
	user := c.MustGet("user").(*model.User)

	messages, err := h.messageService.ListByUser(c.Request.Context(), user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    http.StatusInternalServerError,
			"message": "Failed to retrieve chat history",
			"data":    nil,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "success",
		"data":    messages,
	})
}
