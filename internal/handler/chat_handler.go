// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"smart-chat-go/internal/model"
	"smart-chat-go/internal/service"
	"smart-chat-go/pkg/log"
	"smart-chat-go/pkg/token"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // 允许所有来源
	},
}

// 流式下发时单帧携带的最大字符数。
const chunkRunes = 64

// ChatHandler 负责处理 HTTP 聊天请求与 WebSocket 聊天连接。
type ChatHandler struct {
	responderService service.ResponderService
	messageService   service.MessageService
	authService      service.AuthService
	jwtManager       *token.JWTManager
}

// NewChatHandler 创建一个新的 ChatHandler。
func NewChatHandler(responderService service.ResponderService, messageService service.MessageService, authService service.AuthService, jwtManager *token.JWTManager) *ChatHandler {
	return &ChatHandler{
		responderService: responderService,
		messageService:   messageService,
		authService:      authService,
		jwtManager:       jwtManager,
	}
}

// ChatRequest 定义了 HTTP 聊天 API 的请求体结构。
type ChatRequest struct {
	Message string `json:"message" binding:"required"`
}

// Chat 处理一次完整的问答：生成回答、追加到聊天记录并返回完整记录。
func (h *ChatHandler) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("Chat: Invalid request payload, error: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    http.StatusBadRequest,
			"message": "无效的请求负载：message 不能为空",
		})
		return
	}

	user := c.MustGet("user").(*model.User)

	response := h.responderService.GenerateResponse(c.Request.Context(), req.Message)
	record, err := h.messageService.Append(c.Request.Context(), user.ID, req.Message, response)
	if err != nil {
		log.Errorf("Chat: Failed to save message for user '%s': %v", user.Email, err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    http.StatusInternalServerError,
			"message": "保存聊天记录失败",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "success",
		"data":    record,
	})
}

// Handle 处理一个传入的 WebSocket 聊天连接。每条文本帧视为一次提问，
// 回答按分块帧下发并以完成通知收尾，完整问答随后写入聊天记录。
func (h *ChatHandler) Handle(c *gin.Context) {
	tokenString := c.Param("token")
	claims, err := h.jwtManager.VerifyToken(tokenString)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "message": "无效的 token", "data": nil})
		return
	}

	// 单会话模型：令牌必须属于当前活跃会话
	session := h.authService.CurrentSession()
	if session == nil || session.AccessToken != tokenString {
		c.JSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "message": "会话已失效，请重新登录", "data": nil})
		return
	}
	user := session.User

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("WebSocket 升级失败", err)
		return
	}
	defer conn.Close()

	log.Infof("WebSocket 连接已建立，用户: %s", claims.Email)

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			log.Warnf("从 WebSocket 读取消息失败: %v", err)
			break
		}
		query := string(message)
		log.Infof("收到 WebSocket 消息: %s", query)

		response := h.responderService.GenerateResponse(c.Request.Context(), query)
		if err := streamResponse(conn, response); err != nil {
			log.Errorf("下发流式响应失败: %v", err)
			break
		}
		sendCompletion(conn)

		// 使用后台上下文：即使连接随后断开，也要保存已生成的问答
		if _, err := h.messageService.Append(context.Background(), user.ID, query, response); err != nil {
			// 只记录错误，不中断连接，因为响应已经下发成功
			log.Errorf("保存聊天记录失败: %v", err)
		}
	}
}

// streamResponse 将完整回答切成小块逐帧下发，模拟流式输出。
func streamResponse(conn *websocket.Conn, response string) error {
	runes := []rune(response)
	for start := 0; start < len(runes); start += chunkRunes {
		end := start + chunkRunes
		if end > len(runes) {
			end = len(runes)
		}
		payload, err := json.Marshal(map[string]string{"chunk": string(runes[start:end])})
		if err != nil {
			return err
		}
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return err
		}
	}
	return nil
}

// sendCompletion 发送完成通知 JSON
func sendCompletion(conn *websocket.Conn) {
	now := time.Now()
	notif := map[string]interface{}{
		"type":      "completion",
		"status":    "finished",
		"message":   "响应已完成",
		"timestamp": now.UnixMilli(),
		"date":      model.LocalTime(now),
	}
	payload, _ := json.Marshal(notif)
	_ = conn.WriteMessage(websocket.TextMessage, payload)
}
