// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"sync"

	"smart-chat-go/internal/model"
)

// SessionContext 将会话存储的回调式订阅桥接为可随时读取的登录态快照，
// 供界面层消费。构造时同步读取一次当前会话并清除 loading 标记，
// 之后通过订阅保持快照最新；持有者废弃时应调用 Close 解除订阅。
type SessionContext struct {
	auth AuthService

	mu      sync.RWMutex
	session *model.Session
	loading bool

	closeOnce   sync.Once
	unsubscribe func()
}

// NewSessionContext 创建一个新的 SessionContext 并完成初始状态读取。
func NewSessionContext(auth AuthService) *SessionContext {
	sc := &SessionContext{auth: auth, loading: true}

	// 订阅不会回放当前状态，初始值需要单独同步读取
	sc.unsubscribe = auth.Subscribe(sc.onChange)
	sc.onChange(auth.CurrentSession())
	return sc
}

// onChange 更新快照。首次调用（无论初始读取还是变更通知）都会清除 loading。
func (sc *SessionContext) onChange(session *model.Session) {
	sc.mu.Lock()
	sc.session = session
	sc.loading = false
	sc.mu.Unlock()
}

// CurrentSession 返回最近一次观察到的会话，未登录时为 nil。
func (sc *SessionContext) CurrentSession() *model.Session {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.session
}

// CurrentUser 返回当前登录用户，未登录时为 nil。
func (sc *SessionContext) CurrentUser() *model.User {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	if sc.session == nil {
		return nil
	}
	return &sc.session.User
}

// IsLoading 在初始状态读取完成前为 true。
func (sc *SessionContext) IsLoading() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.loading
}

// Watch 注册一个额外的会话变更回调，返回取消函数。
// 用于把变更进一步推送给 WebSocket 连接等下游消费者。
func (sc *SessionContext) Watch(callback func(*model.Session)) func() {
	return sc.auth.Subscribe(callback)
}

// SignUp 透传注册操作。
func (sc *SessionContext) SignUp(ctx context.Context, email, password, fullName string) (*model.User, error) {
	return sc.auth.SignUp(ctx, email, password, fullName)
}

// SignIn 透传密码登录操作。
func (sc *SessionContext) SignIn(ctx context.Context, email, password string) (*model.Session, error) {
	return sc.auth.SignInWithPassword(ctx, email, password)
}

// SignInWithGoogle 透传模拟第三方登录操作。
func (sc *SessionContext) SignInWithGoogle(ctx context.Context) (*model.Session, error) {
	return sc.auth.SignInWithOAuth(ctx)
}

// SignOut 透传登出操作。
func (sc *SessionContext) SignOut(ctx context.Context) error {
	return sc.auth.SignOut(ctx)
}

// Close 解除订阅。可以安全地重复调用。
func (sc *SessionContext) Close() {
	sc.closeOnce.Do(func() {
		if sc.unsubscribe != nil {
			sc.unsubscribe()
		}
	})
}
