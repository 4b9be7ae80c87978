package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// ErrSelfFollow is returned when a follow edge would point at its own source.
var ErrSelfFollow = errors.New("users cannot follow themselves")

// Follow is a directed edge: FollowerID follows FollowingID.
type Follow struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	FollowerID  uint      `gorm:"not null;uniqueIndex:idx_follows_pair;check:chk_follows_not_self,follower_id <> following_id" json:"follower_id"`
	FollowingID uint      `gorm:"not null;uniqueIndex:idx_follows_pair;index" json:"following_id"`
	Follower    User      `gorm:"foreignKey:FollowerID;constraint:OnDelete:CASCADE" json:"-"`
	Following   User      `gorm:"foreignKey:FollowingID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}

// BeforeCreate rejects self-follows before they reach the database check.
func (f *Follow) BeforeCreate(*gorm.DB) error {
	if f.FollowerID == f.FollowingID {
		return ErrSelfFollow
	}
	return nil
}
