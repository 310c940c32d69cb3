package model

import "time"

type RegistrationStatus string

const (
	RegistrationRegistered RegistrationStatus = "REGISTERED"
	RegistrationWaitlisted RegistrationStatus = "WAITLISTED"
	RegistrationCancelled  RegistrationStatus = "CANCELLED"
	RegistrationCheckedIn  RegistrationStatus = "CHECKED_IN"
)

// Registration 唯一 (moment_id, user_id)：取消后再报名复用同一行
type Registration struct {
	ID           uint64             `gorm:"primaryKey" json:"id"`
	MomentID     uint64             `gorm:"not null;uniqueIndex:uk_moment_user;index:idx_moment_status_time,priority:1" json:"moment_id"`
	UserID       uint64             `gorm:"not null;uniqueIndex:uk_moment_user;index" json:"user_id"`
	Status       RegistrationStatus `gorm:"size:16;not null;index:idx_moment_status_time,priority:2" json:"status"`
	RegisteredAt time.Time          `gorm:"not null;index:idx_moment_status_time,priority:3" json:"registered_at"`
	CancelledAt  *time.Time         `json:"cancelled_at,omitempty"`
	CheckedInAt  *time.Time         `json:"checked_in_at,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

func (r *Registration) Active() bool {
	return r != nil && r.Status != RegistrationCancelled
}
