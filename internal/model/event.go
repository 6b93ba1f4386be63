package model

import "time"

// 登录态变更事件的类型。
const (
	AuthEventSignedIn  = "signed_in"
	AuthEventSignedOut = "signed_out"
)

// AuthEvent 描述一次登录态变更，用于 WebSocket 推送与 Kafka 事件发布。
// 发布到外部系统时 Session 字段应置空，避免令牌泄露到消息队列。
type AuthEvent struct {
	Event     string    `json:"event"`
	UserID    string    `json:"user_id,omitempty"`
	Email     string    `json:"email,omitempty"`
	Session   *Session  `json:"session,omitempty"`
	Timestamp int64     `json:"timestamp"`
	Date      LocalTime `json:"date"`
}

// NewAuthEvent 根据当前会话构造一个变更事件；session 为 nil 时表示登出。
func NewAuthEvent(session *Session) AuthEvent {
	now := time.Now()
	event := AuthEvent{
		Event:     AuthEventSignedOut,
		Timestamp: now.UnixMilli(),
		Date:      LocalTime(now),
	}
	if session != nil {
		event.Event = AuthEventSignedIn
		event.UserID = session.User.ID
		event.Email = session.User.Email
		event.Session = session
	}
	return event
}
