package models

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
)

// PostContentMaxLength bounds Post.Content in characters.
const PostContentMaxLength = 280

// ErrEmptyPost is returned when a post would have neither content nor image.
var ErrEmptyPost = errors.New("post must have content or an image")

// Post is authored text and/or an image. Likes mirrors the number of Like
// rows for the post and is only changed together with them.
type Post struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"-"`
	User      User      `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Content   string    `gorm:"type:text;not null;default:''" json:"content"`
	Image     string    `gorm:"size:255;not null;default:''" json:"-"`
	Likes     int       `gorm:"not null;default:0;check:chk_posts_likes_non_negative,likes >= 0" json:"likes"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// HasBody reports whether the post carries content or an image.
func (p *Post) HasBody() bool {
	return strings.TrimSpace(p.Content) != "" || p.Image != ""
}

// BeforeSave enforces the content-or-image rule for every write path.
func (p *Post) BeforeSave(*gorm.DB) error {
	if !p.HasBody() {
		return ErrEmptyPost
	}
	return nil
}
