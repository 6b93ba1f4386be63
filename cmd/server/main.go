// Package main 是应用程序的入口点。
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"smart-chat-go/internal/config"
	"smart-chat-go/internal/handler"
	"smart-chat-go/internal/middleware"
	"smart-chat-go/internal/model"
	"smart-chat-go/internal/repository"
	"smart-chat-go/internal/service"
	"smart-chat-go/internal/storage"
	"smart-chat-go/pkg/database"
	"smart-chat-go/pkg/kafka"
	"smart-chat-go/pkg/log"
	"smart-chat-go/pkg/token"
)

func main() {
	// 1. 初始化配置
	config.Init("./configs/config.yaml")
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync() // 确保在程序退出时刷新所有缓冲的日志条目
	log.Info("日志记录器初始化成功")

	// 3. 初始化键值存储驱动
	var kvStore storage.Store
	switch cfg.Storage.Driver {
	case "redis":
		database.InitRedis(cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)
		kvStore = storage.NewRedisStore(database.RDB)
	default:
		var err error
		kvStore, err = storage.NewFileStore(cfg.Storage.FilePath)
		if err != nil {
			log.Fatal("初始化文件存储失败", err)
		}
	}

	// 4. 初始化 Repository
	authRepo := repository.NewAuthRepository(kvStore)
	var messageRepo repository.MessageRepository
	if cfg.Storage.MessageBackend == "mysql" {
		database.InitMySQL(cfg.Database.MySQL.DSN)
		var err error
		messageRepo, err = repository.NewGormMessageRepository(database.DB)
		if err != nil {
			log.Fatal("初始化 MySQL 聊天记录存储失败", err)
		}
	} else {
		var err error
		messageRepo, err = repository.NewMessageRepository(kvStore)
		if err != nil {
			log.Fatal("初始化聊天记录存储失败", err)
		}
	}

	// 5. 初始化 Service (依赖注入)
	jwtManager := token.NewJWTManager(cfg.JWT.Secret, time.Duration(cfg.JWT.SessionTTLMinutes)*time.Minute)
	authService, err := service.NewAuthService(authRepo, jwtManager, cfg.Mock)
	if err != nil {
		log.Fatal("初始化认证服务失败", err)
	}
	messageService := service.NewMessageService(messageRepo)
	responderService := service.NewResponderService(cfg.Mock)
	sessionContext := service.NewSessionContext(authService)
	defer sessionContext.Close()

	// 6. 可选：把登录态变更事件发布到 Kafka
	if cfg.Kafka.Enabled {
		kafka.InitProducer(cfg.Kafka)
		defer kafka.Close()
		unsubscribe := authService.Subscribe(func(session *model.Session) {
			event := model.NewAuthEvent(session)
			event.Session = nil // 令牌不进消息队列
			if err := kafka.PublishAuthEvent(context.Background(), event); err != nil {
				log.Errorf("发布登录态变更事件失败: %v", err)
			}
		})
		defer unsubscribe()
	}

	// 7. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	r := gin.New() // 使用 New() 创建一个不带默认中间件的引擎
	// 添加我们自定义的日志中间件和 Gin 的 Recovery 中间件
	r.Use(middleware.RequestLogger(), gin.Recovery())

	authHandler := handler.NewAuthHandler(authService, sessionContext, jwtManager)
	messageHandler := handler.NewMessageHandler(messageService)
	chatHandler := handler.NewChatHandler(responderService, messageService, authService, jwtManager)

	// 8. 注册路由
	apiV1 := r.Group("/api/v1")
	{
		// Auth 路由组
		auth := apiV1.Group("/auth")
		{
			// 无需认证的路由 (公开访问)
			auth.POST("/signup", authHandler.SignUp)
			auth.POST("/login", authHandler.Login)
			auth.POST("/oauth/google", authHandler.LoginWithGoogle)

			// 需要认证的路由 (仅限登录用户访问)
			authed := auth.Group("/")
			authed.Use(middleware.AuthMiddleware(jwtManager, authService))
			{
				authed.POST("/logout", authHandler.Logout)
				authed.GET("/session", authHandler.GetSession)
			}
		}

		users := apiV1.Group("/users")
		users.Use(middleware.AuthMiddleware(jwtManager, authService))
		{
			users.GET("/me", authHandler.GetProfile)
			users.GET("/messages", messageHandler.GetMessages)
		}

		// Chat 路由组，需要认证
		chat := apiV1.Group("/chat")
		chat.Use(middleware.AuthMiddleware(jwtManager, authService))
		{
			chat.POST("", chatHandler.Chat)
		}
	}

	// WebSocket 路由 (token 随路径传递，浏览器无法在 WS 握手中携带请求头)
	r.GET("/chat/:token", chatHandler.Handle)
	r.GET("/auth/watch/:token", authHandler.Watch)

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	// 等待中断信号以实现优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	// 设置一个5秒的超时上下文
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// 关闭 HTTP 服务器
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("HTTP 服务器关闭失败: %v", err)
	}

	log.Info("服务已优雅关闭")
}
