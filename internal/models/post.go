// Package models contains data structures for the blog's domain models.
package models

import (
	"time"
)

// Post is a blog entry written by a user inside a category.
type Post struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"size:256;not null" json:"title"`
	Text        string    `gorm:"type:text;not null" json:"text"`
	PubDate     time.Time `gorm:"not null;index" json:"pub_date"`
	Image       string    `gorm:"size:255;not null;default:''" json:"image,omitempty"`
	IsPublished bool      `gorm:"not null;index" json:"is_published"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`

	AuthorID   uint      `gorm:"not null;index" json:"author_id"`
	Author     User      `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"author"`
	CategoryID uint      `gorm:"not null;index" json:"category_id"`
	Category   Category  `gorm:"foreignKey:CategoryID;constraint:OnDelete:CASCADE" json:"category"`
	LocationID *uint     `gorm:"index" json:"location_id,omitempty"`
	Location   *Location `gorm:"foreignKey:LocationID;constraint:OnDelete:SET NULL" json:"location,omitempty"`

	// CommentCount is not persisted; computed at query time
	CommentCount int `gorm:"->;-:migration" json:"comment_count"`
}

// TableName returns the database table name for Post.
func (Post) TableName() string {
	return "posts"
}

// IsAuthoredBy reports whether userID wrote the post. Zero never matches.
func (p *Post) IsAuthoredBy(userID uint) bool {
	return userID != 0 && p.AuthorID == userID
}

// HasImage reports whether an image was uploaded for the post.
func (p *Post) HasImage() bool {
	return p.Image != ""
}
