// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"smart-chat-go/internal/model"
	"smart-chat-go/internal/service"
	"smart-chat-go/pkg/log"
	"smart-chat-go/pkg/token"
)

// AuthHandler 负责处理注册、登录、第三方登录与登出等认证相关的 API 请求。
type AuthHandler struct {
	authService    service.AuthService
	sessionContext *service.SessionContext
	jwtManager     *token.JWTManager
}

// NewAuthHandler 创建一个新的 AuthHandler 实例。
func NewAuthHandler(authService service.AuthService, sessionContext *service.SessionContext, jwtManager *token.JWTManager) *AuthHandler {
	return &AuthHandler{
		authService:    authService,
		sessionContext: sessionContext,
		jwtManager:     jwtManager,
	}
}

// SignUpRequest 定义了用户注册 API 的请求体结构。
type SignUpRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	FullName string `json:"fullName"`
}

// SignUp 处理用户注册请求。
func (h *AuthHandler) SignUp(c *gin.Context) {
	var req SignUpRequest
	// 绑定并验证 JSON 请求体
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("SignUp: Invalid request payload, error: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    http.StatusBadRequest,
			"message": "无效的请求负载：邮箱和密码不能为空",
		})
		return
	}

	// 调用 service 层执行注册逻辑
	user, err := h.authService.SignUp(c.Request.Context(), req.Email, req.Password, req.FullName)
	if err != nil {
		if errors.Is(err, model.ErrDuplicateUser) {
			log.Warnf("SignUp: Email '%s' already registered", req.Email)
			c.JSON(http.StatusConflict, gin.H{
				"code":    http.StatusConflict,
				"message": "用户已存在",
			})
			return
		}
		log.Error("SignUp: Registration failed", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    http.StatusInternalServerError,
			"message": "注册失败",
		})
		return
	}

	log.Infof("User '%s' registered successfully", user.Email)
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "注册成功",
		"data":    user,
	})
}

// LoginRequest 定义了用户登录 API 的请求体结构。
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login 处理密码登录请求。
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("Login: Invalid request payload, error: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    http.StatusBadRequest,
			"message": "无效的请求负载：邮箱和密码不能为空",
		})
		return
	}

	session, err := h.authService.SignInWithPassword(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, model.ErrInvalidCredentials) {
			log.Warnf("Login: Authentication failed for '%s'", req.Email)
			c.JSON(http.StatusUnauthorized, gin.H{
				"code":    http.StatusUnauthorized,
				"message": "无效的凭证",
			})
			return
		}
		log.Error("Login: Sign in failed", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    http.StatusInternalServerError,
			"message": "登录失败",
		})
		return
	}

	log.Infof("User '%s' logged in successfully", req.Email)
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "Login successful",
		"data": gin.H{
			"token":     session.AccessToken,
			"expiresAt": session.ExpiresAt,
			"user":      session.User,
		},
	})
}

// LoginWithGoogle 处理模拟的第三方登录请求，总是成功。
func (h *AuthHandler) LoginWithGoogle(c *gin.Context) {
	session, err := h.authService.SignInWithOAuth(c.Request.Context())
	if err != nil {
		log.Error("LoginWithGoogle: OAuth sign in failed", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    http.StatusInternalServerError,
			"message": "第三方登录失败",
		})
		return
	}

	log.Infof("User '%s' logged in via OAuth", session.User.Email)
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "Login successful",
		"data": gin.H{
			"token":     session.AccessToken,
			"expiresAt": session.ExpiresAt,
			"user":      session.User,
		},
	})
}

// Logout 处理用户登出请求。
func (h *AuthHandler) Logout(c *gin.Context) {
	userValue, _ := c.Get("user")
	user := userValue.(*model.User)

	if err := h.authService.SignOut(c.Request.Context()); err != nil {
		log.Error("Logout: Failed to sign out", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    http.StatusInternalServerError,
			"message": "登出失败",
		})
		return
	}

	log.Infof("User '%s' logged out successfully", user.Email)
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "登出成功",
	})
}

// GetSession 返回当前会话信息。会话已经由 AuthMiddleware 校验并注入上下文。
func (h *AuthHandler) GetSession(c *gin.Context) {
	session, exists := c.Get("session")
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "无法获取会话信息"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "data": session, "message": "success"})
}

// GetProfile 获取当前登录用户的个人信息。
// 用户信息已经由 AuthMiddleware 注入到上下文中。
func (h *AuthHandler) GetProfile(c *gin.Context) {
	user, exists := c.Get("user")
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "无法获取用户信息"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "data": user, "message": "success"})
}

// Watch 处理登录态订阅的 WebSocket 连接：建立后先推送一帧当前状态，
// 之后每次会话变更都会推送一帧事件，直到客户端断开。
func (h *AuthHandler) Watch(c *gin.Context) {
	tokenString := c.Param("token")
	if _, err := h.jwtManager.VerifyToken(tokenString); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "message": "无效的 token", "data": nil})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("WebSocket 升级失败", err)
		return
	}
	defer conn.Close()

	// WebSocket 连接只允许单个写入方，回调与初始帧共用一把锁
	var writeMu sync.Mutex
	send := func(session *model.Session) {
		payload, merr := json.Marshal(model.NewAuthEvent(session))
		if merr != nil {
			return
		}
		writeMu.Lock()
		defer writeMu.Unlock()
		if werr := conn.WriteMessage(websocket.TextMessage, payload); werr != nil {
			log.Warnf("推送登录态变更失败: %v", werr)
		}
	}

	// 初始快照一帧，之后按变更推送
	send(h.sessionContext.CurrentSession())
	cancel := h.sessionContext.Watch(send)
	defer cancel()

	log.Info("登录态订阅连接已建立")
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			log.Infof("登录态订阅连接已断开: %v", err)
			return
		}
	}
}
