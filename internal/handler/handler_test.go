package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smart-chat-go/internal/config"
	"smart-chat-go/internal/middleware"
	"smart-chat-go/internal/model"
	"smart-chat-go/internal/repository"
	"smart-chat-go/internal/service"
	"smart-chat-go/internal/storage"
	"smart-chat-go/pkg/token"
)

type testEnv struct {
	router      *gin.Engine
	authService service.AuthService
}

// newTestEnv 按 main.go 的方式装配全部路由，使用临时文件存储与零延迟配置。
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := storage.NewFileStore(filepath.Join(t.TempDir(), "state.json"))
	require.NoError(t, err)

	jwtManager := token.NewJWTManager("test-secret", time.Hour)
	authService, err := service.NewAuthService(repository.NewAuthRepository(store), jwtManager, config.MockConfig{})
	require.NoError(t, err)
	messageRepo, err := repository.NewMessageRepository(store)
	require.NoError(t, err)
	messageService := service.NewMessageService(messageRepo)
	responderService := service.NewResponderService(config.MockConfig{})
	sessionContext := service.NewSessionContext(authService)
	t.Cleanup(sessionContext.Close)

	authHandler := NewAuthHandler(authService, sessionContext, jwtManager)
	messageHandler := NewMessageHandler(messageService)
	chatHandler := NewChatHandler(responderService, messageService, authService, jwtManager)
	authMiddleware := middleware.AuthMiddleware(jwtManager, authService)

	r := gin.New()
	apiV1 := r.Group("/api/v1")
	auth := apiV1.Group("/auth")
	auth.POST("/signup", authHandler.SignUp)
	auth.POST("/login", authHandler.Login)
	auth.POST("/oauth/google", authHandler.LoginWithGoogle)
	authed := auth.Group("/")
	authed.Use(authMiddleware)
	authed.POST("/logout", authHandler.Logout)
	authed.GET("/session", authHandler.GetSession)

	users := apiV1.Group("/users")
	users.Use(authMiddleware)
	users.GET("/me", authHandler.GetProfile)
	users.GET("/messages", messageHandler.GetMessages)

	chat := apiV1.Group("/chat")
	chat.Use(authMiddleware)
	chat.POST("", chatHandler.Chat)

	r.GET("/chat/:token", chatHandler.Handle)
	r.GET("/auth/watch/:token", authHandler.Watch)

	return &testEnv{router: r, authService: authService}
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (e *testEnv) do(t *testing.T, method, path, bearer string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

// signUpAndLogin 注册并登录一个用户，返回访问令牌。
func (e *testEnv) signUpAndLogin(t *testing.T, email, password string) string {
	t.Helper()

	w, _ := e.do(t, http.MethodPost, "/api/v1/auth/signup", "", gin.H{"email": email, "password": password, "fullName": "Test User"})
	require.Equal(t, http.StatusOK, w.Code)

	w, env := e.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": email, "password": password})
	require.Equal(t, http.StatusOK, w.Code)

	var data struct {
		Token string     `json:"token"`
		User  model.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.NotEmpty(t, data.Token)
	return data.Token
}

func TestSignUp(t *testing.T) {
	env := newTestEnv(t)

	w, resp := env.do(t, http.MethodPost, "/api/v1/auth/signup", "", gin.H{"email": "alice@example.com", "password": "pw1", "fullName": "Alice"})
	require.Equal(t, http.StatusOK, w.Code)
	var user model.User
	require.NoError(t, json.Unmarshal(resp.Data, &user))
	assert.Equal(t, "alice@example.com", user.Email)

	// 重复注册
	w, resp = env.do(t, http.MethodPost, "/api/v1/auth/signup", "", gin.H{"email": "alice@example.com", "password": "other"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "用户已存在", resp.Message)

	// 缺少密码
	w, _ = env.do(t, http.MethodPost, "/api/v1/auth/signup", "", gin.H{"email": "bob@example.com"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// 非法邮箱
	w, _ = env.do(t, http.MethodPost, "/api/v1/auth/signup", "", gin.H{"email": "not-an-email", "password": "pw"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)

	w, _ := env.do(t, http.MethodPost, "/api/v1/auth/signup", "", gin.H{"email": "alice@example.com", "password": "pw1"})
	require.Equal(t, http.StatusOK, w.Code)

	w, resp := env.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "alice@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "无效的凭证", resp.Message)

	w, resp = env.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "alice@example.com", "password": "pw1"})
	require.Equal(t, http.StatusOK, w.Code)
	var data struct {
		Token     string     `json:"token"`
		ExpiresAt time.Time  `json:"expiresAt"`
		User      model.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	assert.NotEmpty(t, data.Token)
	assert.True(t, data.ExpiresAt.After(time.Now()))
	assert.Equal(t, "alice@example.com", data.User.Email)
}

func TestLoginWithGoogle(t *testing.T) {
	env := newTestEnv(t)

	w, resp := env.do(t, http.MethodPost, "/api/v1/auth/oauth/google", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var data struct {
		Token string     `json:"token"`
		User  model.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	assert.NotEmpty(t, data.Token)
	assert.Equal(t, "demo@gmail.com", data.User.Email)
	assert.True(t, strings.HasPrefix(data.User.ID, "google_"))
}

func TestAuthMiddleware(t *testing.T) {
	env := newTestEnv(t)

	// 未携带令牌
	w, _ := env.do(t, http.MethodGet, "/api/v1/users/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// 非法令牌
	w, _ = env.do(t, http.MethodGet, "/api/v1/users/me", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	accessToken := env.signUpAndLogin(t, "alice@example.com", "pw1")
	w, _ = env.do(t, http.MethodGet, "/api/v1/users/me", accessToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// 重新登录后旧令牌随会话一起失效
	w, resp := env.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "alice@example.com", "password": "pw1"})
	require.Equal(t, http.StatusOK, w.Code)
	var data struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &data))

	w, _ = env.do(t, http.MethodGet, "/api/v1/users/me", accessToken, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w, _ = env.do(t, http.MethodGet, "/api/v1/users/me", data.Token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLogoutInvalidatesToken(t *testing.T) {
	env := newTestEnv(t)
	accessToken := env.signUpAndLogin(t, "alice@example.com", "pw1")

	w, resp := env.do(t, http.MethodGet, "/api/v1/auth/session", accessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var session model.Session
	require.NoError(t, json.Unmarshal(resp.Data, &session))
	assert.Equal(t, accessToken, session.AccessToken)

	w, _ = env.do(t, http.MethodPost, "/api/v1/auth/logout", accessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = env.do(t, http.MethodGet, "/api/v1/auth/session", accessToken, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestChatAndHistory(t *testing.T) {
	env := newTestEnv(t)
	accessToken := env.signUpAndLogin(t, "alice@example.com", "pw1")

	w, resp := env.do(t, http.MethodPost, "/api/v1/chat", accessToken, gin.H{"message": "hello"})
	require.Equal(t, http.StatusOK, w.Code)
	var record model.ChatMessage
	require.NoError(t, json.Unmarshal(resp.Data, &record))
	assert.Equal(t, "hello", record.Message)
	assert.Contains(t, record.Response, "I'm your AI assistant")

	// message 为空
	w, _ = env.do(t, http.MethodPost, "/api/v1/chat", accessToken, gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, resp = env.do(t, http.MethodGet, "/api/v1/users/messages", accessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var records []model.ChatMessage
	require.NoError(t, json.Unmarshal(resp.Data, &records))
	require.Len(t, records, 1)
	assert.Equal(t, record.ID, records[0].ID)
}

func wsURL(serverURL, path string) string {
	return "ws" + strings.TrimPrefix(serverURL, "http") + path
}

func TestChatWebSocket(t *testing.T) {
	env := newTestEnv(t)
	accessToken := env.signUpAndLogin(t, "alice@example.com", "pw1")

	server := httptest.NewServer(env.router)
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(server.URL, "/chat/"+accessToken), nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("hello")))

	// 读取分块帧直到收到完成通知
	var response strings.Builder
	for {
		_, payload, err := conn.ReadMessage()
		require.NoError(t, err)

		var frame map[string]interface{}
		require.NoError(t, json.Unmarshal(payload, &frame))
		if chunk, ok := frame["chunk"].(string); ok {
			response.WriteString(chunk)
			continue
		}
		assert.Equal(t, "completion", frame["type"])
		assert.Equal(t, "finished", frame["status"])
		break
	}
	assert.Contains(t, response.String(), "I'm your AI assistant")

	// 完成帧下发后问答才落库，这里轮询等待写入完成
	var records []model.ChatMessage
	require.Eventually(t, func() bool {
		w, resp := env.do(t, http.MethodGet, "/api/v1/users/messages", accessToken, nil)
		if w.Code != http.StatusOK || json.Unmarshal(resp.Data, &records) != nil {
			return false
		}
		return len(records) == 1
	}, 2*time.Second, 20*time.Millisecond)
	assert.Equal(t, "hello", records[0].Message)
}

func TestChatWebSocket_RejectsStaleToken(t *testing.T) {
	env := newTestEnv(t)
	accessToken := env.signUpAndLogin(t, "alice@example.com", "pw1")
	require.NoError(t, env.authService.SignOut(context.Background()))

	server := httptest.NewServer(env.router)
	defer server.Close()

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(server.URL, "/chat/"+accessToken), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWatchWebSocket(t *testing.T) {
	env := newTestEnv(t)
	accessToken := env.signUpAndLogin(t, "alice@example.com", "pw1")

	server := httptest.NewServer(env.router)
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(server.URL, "/auth/watch/"+accessToken), nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	// 初始快照帧
	var event struct {
		Event   string         `json:"event"`
		Email   string         `json:"email"`
		Session *model.Session `json:"session"`
	}
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(payload, &event))
	assert.Equal(t, model.AuthEventSignedIn, event.Event)
	assert.Equal(t, "alice@example.com", event.Email)
	require.NotNil(t, event.Session)
	assert.Equal(t, accessToken, event.Session.AccessToken)

	// 登出触发变更帧
	require.NoError(t, env.authService.SignOut(context.Background()))
	_, payload, err = conn.ReadMessage()
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(payload, &event))
	assert.Equal(t, model.AuthEventSignedOut, event.Event)
	assert.Nil(t, event.Session)
}
