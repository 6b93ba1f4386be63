// Package model 包含了应用的数据模型定义。
package model

import "time"

// User 代表一个注册用户。注册成功后用户信息不可变更。
// JSON 字段名与持久化存储的既有格式保持一致（snake_case）。
type User struct {
	// ID 是用户的不透明唯一标识。
	ID string `gorm:"type:varchar(32);primaryKey" json:"id"`
	// Email 是用户的唯一登录邮箱，区分大小写。
	Email string `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	// FullName 是用户的显示名称。使用指针以接受 NULL 值。
	FullName *string `gorm:"type:varchar(255)" json:"full_name"`
	// CreatedAt 记录注册时间。
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// Credential 是按邮箱索引的私有凭证条目，仅用于密码登录校验。
// 条目创建后不再更新或删除（不支持改密与注销）。
type Credential struct {
	// Password 存储 bcrypt 哈希，而非明文。
	Password string `json:"password"`
	User     User   `json:"user"`
}
