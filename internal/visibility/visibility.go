// Package visibility decides which posts a viewer may see.
//
// A post is public once it is published, its pub date has passed and its
// category is published. Authors always see their own posts. The post's
// Category must be loaded before calling these functions.
package visibility

import (
	"time"

	"blogicum/internal/models"
)

// Anonymous is the viewer id used for unauthenticated requests.
const Anonymous uint = 0

// IsPublic reports whether p can be shown to anyone at instant now.
func IsPublic(p *models.Post, now time.Time) bool {
	if p == nil {
		return false
	}
	return p.IsPublished && !p.PubDate.After(now) && p.Category.IsPublished
}

// IsVisible reports whether the viewer may see p at instant now.
func IsVisible(p *models.Post, viewerID uint, now time.Time) bool {
	if p == nil {
		return false
	}
	if p.IsAuthoredBy(viewerID) {
		return true
	}
	return IsPublic(p, now)
}

// ShowsAllOnProfile reports whether a profile listing should skip the public
// filter, which is only the case when the owner looks at their own page.
func ShowsAllOnProfile(profileUserID, viewerID uint) bool {
	return viewerID != Anonymous && profileUserID == viewerID
}
