package models

import "time"

// Comment is a reply left by a user under a post.
type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	AuthorID  uint      `gorm:"not null;index" json:"author_id"`
	Author    User      `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"author"`
	PostID    uint      `gorm:"not null;index" json:"post_id"`
	Post      *Post     `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"post,omitempty"`
}

// TableName returns the database table name for Comment.
func (Comment) TableName() string {
	return "comments"
}

// IsAuthoredBy reports whether userID wrote the comment. Zero never matches.
func (c *Comment) IsAuthoredBy(userID uint) bool {
	return userID != 0 && c.AuthorID == userID
}
