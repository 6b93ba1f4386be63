package model

import "time"

// Session 代表当前登录态。进程内至多存在一个活跃会话：
// 重新登录会整体替换，登出会清空。
type Session struct {
	User User `json:"user"`
	// AccessToken 是签名后的访问令牌，对调用方而言是不透明字符串。
	AccessToken string `json:"access_token"`
	// ExpiresAt 是会话过期时间，读取会话时会进行校验。
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired 判断会话在给定时刻是否已过期。
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
