package model

import "time"

// ChatMessage 对应一次完整的问答记录，追加后不可变更。
type ChatMessage struct {
	// Seq 是追加序号，仅用作 MySQL 后端下相同时间戳记录的次级排序键。
	Seq uint64 `gorm:"primaryKey;autoIncrement" json:"-"`
	// ID 是记录的不透明唯一标识。
	ID string `gorm:"type:varchar(32);uniqueIndex;not null" json:"id"`
	// UserID 关联到 User.ID。写入时不校验用户是否存在。
	UserID string `gorm:"type:varchar(32);index;not null" json:"user_id"`
	// Message 是用户的原始提问。
	Message string `gorm:"type:text;not null" json:"message"`
	// Response 是生成的回答文本。
	Response string `gorm:"type:text;not null" json:"response"`
	// CreatedAt 记录创建时间，同一用户的记录按此字段升序返回。
	CreatedAt time.Time `json:"created_at"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (ChatMessage) TableName() string {
	return "chat_messages"
}
