// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"sync"
	"time"

	"smart-chat-go/internal/config"
	"smart-chat-go/internal/model"
	"smart-chat-go/internal/repository"
	"smart-chat-go/pkg/hash"
	"smart-chat-go/pkg/log"
	"smart-chat-go/pkg/token"
)

// AuthService 接口定义了所有与登录态相关的业务操作。
// 实现是进程内的会话存储：凭证表与当前会话保存在内存中，
// 每次变更先持久化再通知订阅者。
type AuthService interface {
	// SignUp 注册一个新用户。邮箱已被占用时返回 ErrDuplicateUser。
	SignUp(ctx context.Context, email, password, fullName string) (*model.User, error)
	// SignInWithPassword 校验凭证并建立新会话，替换现有会话。
	SignInWithPassword(ctx context.Context, email, password string) (*model.Session, error)
	// SignInWithOAuth 模拟第三方登录，总是成功并返回固定的演示身份。
	SignInWithOAuth(ctx context.Context) (*model.Session, error)
	// SignOut 清除当前会话。
	SignOut(ctx context.Context) error
	// CurrentSession 同步读取当前会话；已过期的会话按登出状态返回 nil。
	CurrentSession() *model.Session
	// Subscribe 注册一个在每次会话变更时被调用的回调，返回取消函数。
	// 订阅时不会回放当前状态；取消函数可以安全地重复调用。
	Subscribe(callback func(*model.Session)) (unsubscribe func())
}

// authService 是 AuthService 接口的实现。
type authService struct {
	repo       repository.AuthRepository
	jwtManager *token.JWTManager
	sessionTTL time.Duration

	signUpDelay time.Duration
	signInDelay time.Duration
	oauthDelay  time.Duration

	oauthEmail    string
	oauthFullName string

	// mu 保护凭证表、当前会话与订阅者表。业务操作存在
	// “先检查后写入”的窗口，并发调用必须串行化。
	mu          sync.Mutex
	users       map[string]model.Credential
	session     *model.Session
	listeners   map[int]func(*model.Session)
	nextHandle  int
}

// NewAuthService 创建一个新的 AuthService 实例，并从持久化存储恢复状态。
// 损坏的持久化数据会被重置为空，只有存储读失败才返回错误。
func NewAuthService(repo repository.AuthRepository, jwtManager *token.JWTManager, cfg config.MockConfig) (AuthService, error) {
	state, err := repo.Load(context.Background())
	if err != nil {
		return nil, err
	}

	oauthEmail := cfg.OAuthEmail
	if oauthEmail == "" {
		oauthEmail = "demo@gmail.com"
	}
	oauthFullName := cfg.OAuthFullName
	if oauthFullName == "" {
		oauthFullName = "Demo User"
	}

	return &authService{
		repo:          repo,
		jwtManager:    jwtManager,
		sessionTTL:    jwtManager.SessionTTL(),
		signUpDelay:   time.Duration(cfg.SignUpDelayMs) * time.Millisecond,
		signInDelay:   time.Duration(cfg.SignInDelayMs) * time.Millisecond,
		oauthDelay:    time.Duration(cfg.OAuthDelayMs) * time.Millisecond,
		oauthEmail:    oauthEmail,
		oauthFullName: oauthFullName,
		users:         state.Users,
		session:       state.Session,
		listeners:     make(map[int]func(*model.Session)),
	}, nil
}

// SignUp 处理用户注册的业务逻辑。
func (s *authService) SignUp(ctx context.Context, email, password, fullName string) (*model.User, error) {
	simulateLatency(s.signUpDelay)

	s.mu.Lock()
	defer s.mu.Unlock()

	// 1. 检查邮箱是否已被占用（区分大小写）
	if _, exists := s.users[email]; exists {
		return nil, model.ErrDuplicateUser
	}

	// 2. 对密码进行哈希处理
	hashedPassword, err := hash.HashPassword(password)
	if err != nil {
		return nil, err
	}

	// 3. 创建新用户并登记凭证条目
	user := model.User{
		ID:        token.GenerateRandomString(8),
		Email:     email,
		FullName:  optionalName(fullName),
		CreatedAt: time.Now(),
	}
	s.users[email] = model.Credential{Password: hashedPassword, User: user}

	// 4. 持久化完整凭证表；失败时回滚内存状态
	if err := s.repo.SaveUsers(ctx, s.users); err != nil {
		delete(s.users, email)
		log.Errorf("[AuthService] 注册持久化失败，已回滚, email: %s, error: %v", email, err)
		return nil, err
	}

	return &user, nil
}

// SignInWithPassword 处理密码登录的业务逻辑。
func (s *authService) SignInWithPassword(ctx context.Context, email, password string) (*model.Session, error) {
	simulateLatency(s.signInDelay)

	s.mu.Lock()
	cred, exists := s.users[email]
	if !exists || !hash.CheckPasswordHash(password, cred.Password) {
		s.mu.Unlock()
		return nil, model.ErrInvalidCredentials
	}

	session, err := s.replaceSessionLocked(ctx, cred.User)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	s.notify(session)
	return session, nil
}

// SignInWithOAuth 模拟第三方登录。没有真实的身份校验，
// 每次都会凭空生成一个带 google_ 前缀 ID 的演示用户。
func (s *authService) SignInWithOAuth(ctx context.Context) (*model.Session, error) {
	simulateLatency(s.oauthDelay)

	user := model.User{
		ID:        "google_" + token.GenerateRandomString(8),
		Email:     s.oauthEmail,
		FullName:  optionalName(s.oauthFullName),
		CreatedAt: time.Now(),
	}

	s.mu.Lock()
	session, err := s.replaceSessionLocked(ctx, user)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	s.notify(session)
	return session, nil
}

// SignOut 清除当前会话并通知所有订阅者。
// 与原有语义一致：未登录状态下调用同样会持久化并广播一次。
func (s *authService) SignOut(ctx context.Context) error {
	s.mu.Lock()
	prev := s.session
	s.session = nil
	if err := s.repo.SaveSession(ctx, nil); err != nil {
		s.session = prev
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	s.notify(nil)
	return nil
}

// CurrentSession 同步读取当前会话状态。
func (s *authService) CurrentSession() *model.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil || s.session.Expired(time.Now()) {
		return nil
	}
	return s.session
}

// Subscribe 注册一个会话变更回调。
func (s *authService) Subscribe(callback func(*model.Session)) func() {
	s.mu.Lock()
	handle := s.nextHandle
	s.nextHandle++
	s.listeners[handle] = callback
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, handle)
		s.mu.Unlock()
	}
}

// replaceSessionLocked 构建新会话、整体替换当前会话并持久化。
// 持久化失败时恢复原有会话。调用方必须持有 s.mu。
func (s *authService) replaceSessionLocked(ctx context.Context, user model.User) (*model.Session, error) {
	accessToken, err := s.jwtManager.GenerateToken(user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	session := &model.Session{
		User:        user,
		AccessToken: accessToken,
		ExpiresAt:   time.Now().Add(s.sessionTTL),
	}

	prev := s.session
	s.session = session
	if err := s.repo.SaveSession(ctx, session); err != nil {
		s.session = prev
		return nil, err
	}
	return session, nil
}

// notify 将最新会话投递给所有订阅者。订阅者之间没有顺序保证。
// 先在锁内生成快照再投递，因此回调中可以安全地取消订阅或读取状态。
func (s *authService) notify(session *model.Session) {
	s.mu.Lock()
	callbacks := make([]func(*model.Session), 0, len(s.listeners))
	for _, cb := range s.listeners {
		callbacks = append(callbacks, cb)
	}
	s.mu.Unlock()

	for _, cb := range callbacks {
		cb(session)
	}
}

// simulateLatency 模拟外部认证服务的网络延迟。
// 延迟一旦开始就不可被调用方中断，操作总是运行到完成。
func simulateLatency(d time.Duration) {
	if d > 0 {
		time.Sleep(d)
	}
}

func optionalName(name string) *string {
	if name == "" {
		return nil
	}
	return &name
}
