package model

import "time"

type Visibility string

const (
	VisibilityPublic  Visibility = "PUBLIC"
	VisibilityPrivate Visibility = "PRIVATE"
)

type Role string

const (
	RoleHost   Role = "HOST"
	RolePlayer Role = "PLAYER"
)

type Circle struct {
	ID          uint64     `gorm:"primaryKey" json:"id"`
	Slug        string     `gorm:"uniqueIndex;size:96;not null" json:"slug"`
	Name        string     `gorm:"size:64;not null" json:"name"`
	Description string     `gorm:"type:text" json:"description"`
	Visibility  Visibility `gorm:"size:16;not null;default:PUBLIC" json:"visibility"`
	Category    string     `gorm:"size:32" json:"category"`
	City        string     `gorm:"size:64" json:"city"`
	CreatedByID uint64     `gorm:"not null;index" json:"created_by_id"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// CircleMember 一个用户在一个 circle 里最多一行
type CircleMember struct {
	ID        uint64    `gorm:"primaryKey" json:"id"`
	CircleID  uint64    `gorm:"not null;index;uniqueIndex:uk_circle_user" json:"circle_id"`
	UserID    uint64    `gorm:"not null;index;uniqueIndex:uk_circle_user" json:"user_id"`
	Role      Role      `gorm:"size:16;not null;default:PLAYER" json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (m *CircleMember) IsHost() bool {
	return m != nil && m.Role == RoleHost
}
