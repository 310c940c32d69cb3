package model

import "time"

const (
	UserRoleMember = 0
	UserRoleAdmin  = 1
)

type User struct {
	ID        uint64 `gorm:"primaryKey"`
	Username  string `gorm:"uniqueIndex;size:32;not null"`
	Role      int    `gorm:"default:0"`
	Email     string `gorm:"uniqueIndex;size:64;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == UserRoleAdmin
}
