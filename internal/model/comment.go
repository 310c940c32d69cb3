package model

import "time"

type Comment struct {
	ID        uint64    `gorm:"primaryKey" json:"id"`
	MomentID  uint64    `gorm:"not null;index:idx_comment_moment_id,priority:1" json:"moment_id"`
	UserID    uint64    `gorm:"not null;index" json:"user_id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
