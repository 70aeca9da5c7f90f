package server

import (
	"blogicum/internal/models"
	"blogicum/internal/repository"
	"blogicum/internal/validation"
)

// PageContext carries what every page template reads: the signed-in user,
// the CSRF token for forms and the request path.
type PageContext struct {
	User      *models.User
	CSRFToken string
	Path      string
}

func (p *PageContext) page() *PageContext { return p }

// pageView is implemented by every view through its embedded PageContext.
type pageView interface {
	page() *PageContext
}

// IndexView is the home feed.
type IndexView struct {
	PageContext
	Page *repository.PostPage
}

// CategoryView is the feed of one category.
type CategoryView struct {
	PageContext
	Category *models.Category
	Page     *repository.PostPage
}

// ProfileView is a user's page and feed.
type ProfileView struct {
	PageContext
	Profile *models.User
	Page    *repository.PostPage
	IsOwner bool
}

// PostDetailView is a single post with its comments and the comment form.
type PostDetailView struct {
	PageContext
	Post           *models.Post
	Comments       []*models.Comment
	Form           validation.CommentForm
	CanEdit        bool
	CommentsClosed bool
}

// PostFormView backs the create, edit and delete post pages. Post is nil on
// create.
type PostFormView struct {
	PageContext
	Form       validation.PostForm
	Errors     models.FieldErrors
	Categories []*models.Category
	Locations  []*models.Location
	Post       *models.Post
	IsDelete   bool
}

// CommentFormView backs the edit and delete comment pages.
type CommentFormView struct {
	PageContext
	Comment  *models.Comment
	Form     validation.CommentForm
	Errors   models.FieldErrors
	IsDelete bool
}

// ProfileFormView backs the profile edit page.
type ProfileFormView struct {
	PageContext
	Form   validation.ProfileForm
	Errors models.FieldErrors
}

// AuthFormView backs the registration, login and password pages.
type AuthFormView struct {
	PageContext
	Form      any
	Errors    models.FieldErrors
	Next      string
	ValidLink bool
}

// StaticView is a page with no data of its own.
type StaticView struct {
	PageContext
}
