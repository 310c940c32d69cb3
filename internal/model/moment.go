package model

import "time"

type MomentStatus string

const (
	MomentDraft     MomentStatus = "DRAFT"
	MomentPublished MomentStatus = "PUBLISHED"
	MomentCancelled MomentStatus = "CANCELLED"
	MomentPast      MomentStatus = "PAST"
)

type LocationType string

const (
	LocationInPerson LocationType = "IN_PERSON"
	LocationOnline   LocationType = "ONLINE"
	LocationHybrid   LocationType = "HYBRID"
)

func (t LocationType) Valid() bool {
	switch t {
	case LocationInPerson, LocationOnline, LocationHybrid:
		return true
	}
	return false
}

type Moment struct {
	ID           uint64       `gorm:"primaryKey" json:"id"`
	Slug         string       `gorm:"uniqueIndex;size:128;not null" json:"slug"`
	CircleID     uint64       `gorm:"not null;index:idx_moment_circle_start,priority:1" json:"circle_id"`
	CreatedByID  uint64       `gorm:"not null" json:"created_by_id"`
	Title        string       `gorm:"size:200;not null" json:"title"`
	Description  string       `gorm:"type:text" json:"description"`
	StartsAt     time.Time    `gorm:"not null;index:idx_moment_circle_start,priority:2" json:"starts_at"`
	EndsAt       *time.Time   `json:"ends_at,omitempty"`
	LocationType LocationType `gorm:"size:16;not null" json:"location_type"`
	LocationName string       `gorm:"size:200" json:"location_name,omitempty"`
	Address      string       `gorm:"size:255" json:"address,omitempty"`
	OnlineURL    string       `gorm:"size:255" json:"online_url,omitempty"`
	Capacity     *int         `json:"capacity,omitempty"`              // nil 表示不限
	Price        int64        `gorm:"not null;default:0" json:"price"` // 单位：分
	Currency     string       `gorm:"size:3" json:"currency,omitempty"`
	Status       MomentStatus `gorm:"size:16;not null;default:PUBLISHED;index" json:"status"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}
