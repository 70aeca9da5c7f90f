package validation

import (
	"strings"

	"blogicum/internal/models"
)

// MaxLocationNameLength matches the locations.name column.
const MaxLocationNameLength = 256

// MsgSlugTaken is reported when another category already uses the slug.
const MsgSlugTaken = "Category with this Slug already exists."

// CategoryForm is the staff create/update payload of a category.
// IsPublished defaults to true when omitted.
type CategoryForm struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Slug        string `json:"slug"`
	IsPublished *bool  `json:"is_published"`
}

// Clean validates the payload into a category without an id.
func (f CategoryForm) Clean() (*models.Category, error) {
	fe := models.FieldErrors{}
	c := &models.Category{
		Title:       requireText(fe, "title", f.Title, MaxTitleLength),
		Description: requireText(fe, "description", f.Description, 0),
		Slug:        strings.TrimSpace(f.Slug),
		IsPublished: f.IsPublished == nil || *f.IsPublished,
	}
	if err := ValidateSlug(c.Slug); err != nil {
		fe.Add("slug", err.Error())
	}
	return c, errOrNil(fe)
}

// LocationForm is the staff create/update payload of a location.
type LocationForm struct {
	Name        string `json:"name"`
	IsPublished *bool  `json:"is_published"`
}

// Clean validates the payload into a location without an id.
func (f LocationForm) Clean() (*models.Location, error) {
	fe := models.FieldErrors{}
	l := &models.Location{
		Name:        requireText(fe, "name", f.Name, MaxLocationNameLength),
		IsPublished: f.IsPublished == nil || *f.IsPublished,
	}
	return l, errOrNil(fe)
}
