package model

import "time"

type CircleFollow struct {
	ID        uint64 `gorm:"primaryKey"`
	CircleID  uint64 `gorm:"not null;uniqueIndex:uk_follow_circle_user"`
	UserID    uint64 `gorm:"not null;uniqueIndex:uk_follow_circle_user;index:idx_follow_user"`
	Status    int8   `gorm:"not null;default:1;comment:'1=follow,0=unfollow'"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (CircleFollow) TableName() string {
	return "circle_follow"
}
