package models

import "time"

// Category groups posts under a URL slug. Unpublished categories hide their posts.
type Category struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"size:256;not null" json:"title"`
	Description string    `gorm:"type:text;not null" json:"description"`
	Slug        string    `gorm:"size:64;not null;uniqueIndex" json:"slug"`
	IsPublished bool      `gorm:"not null" json:"is_published"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName returns the database table name for Category.
func (Category) TableName() string {
	return "categories"
}
