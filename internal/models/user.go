package models

import "time"

// User 玩家账户表
type User struct {
	BaseModel
	Username       string     `gorm:"uniqueIndex;size:50;not null" json:"username"`
	Password       string     `gorm:"size:255;not null" json:"-"` // argon2id 哈希
	SessionToken   string     `gorm:"index;size:64" json:"-"`
	CurrentRoomID  *uint      `gorm:"column:current_room_id" json:"current_room_id"`
	LastActiveAt   *time.Time `json:"last_active_at,omitempty"`
	MaxCarryWeight float64    `gorm:"not null;default:50" json:"max_carry_weight"` // 负重上限(kg)
}

// TableName 指定User表名
func (User) TableName() string {
	return "users"
}

// Touch 更新最后活跃时间
func (u *User) Touch(now time.Time) {
	u.LastActiveAt = &now
}

// IsExpired 检查用户会话是否已超时
func (u *User) IsExpired(now time.Time, timeout time.Duration) bool {
	if u.LastActiveAt == nil {
		return true
	}
	return now.Sub(*u.LastActiveAt) > timeout
}
