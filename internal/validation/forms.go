package validation

import (
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"blogicum/internal/models"
)

const (
	msgRequired        = "This field is required."
	msgInvalidEmail    = "Enter a valid email address."
	msgInvalidDateTime = "Enter a valid date/time."
	msgInvalidChoice   = "Select a valid choice. That choice is not one of the available choices."
	// MsgPasswordMismatch is reported on the confirmation field.
	MsgPasswordMismatch = "The two password fields didn’t match."
	// MsgUsernameTaken is reported when the username already exists.
	MsgUsernameTaken = "A user with that username already exists."
	// MsgInvalidLogin is the non-field error of a failed login.
	MsgInvalidLogin = "Please enter a correct username and password. Note that both fields may be case-sensitive."
	// MsgInactiveLogin is the non-field error for a disabled account.
	MsgInactiveLogin = "This account is inactive."
	// MsgWrongOldPassword is reported when a password change gets the wrong current password.
	MsgWrongOldPassword = "Your old password was entered incorrectly. Please enter it again."
	// MsgInvalidChoice is exported for checks done against the database.
	MsgInvalidChoice = msgInvalidChoice
)

// MaxTitleLength matches the posts.title and categories.title columns.
const MaxTitleLength = 256

// DateTimeLayouts are the accepted pub_date input formats, all read as UTC.
var DateTimeLayouts = []string{
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
}

// PubDateInputLayout renders a time for a datetime-local input.
const PubDateInputLayout = "2006-01-02T15:04"

// ParseDateTime parses value with the first matching layout.
func ParseDateTime(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	for _, layout := range DateTimeLayouts {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseCheckbox interprets an HTML checkbox value.
func ParseCheckbox(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "on", "true", "1", "yes":
		return true
	default:
		return false
	}
}

func parseID(value string) (uint, bool) {
	n, err := strconv.ParseUint(strings.TrimSpace(value), 10, 64)
	if err != nil || n == 0 {
		return 0, false
	}
	return uint(n), true
}

func requireText(fe models.FieldErrors, field, value string, maxLen int) string {
	value = strings.TrimSpace(value)
	if value == "" {
		fe.Add(field, msgRequired)
		return value
	}
	if maxLen > 0 {
		if n := utf8.RuneCountInString(value); n > maxLen {
			fe.Add(field, formatMaxLength(maxLen, n))
		}
	}
	return value
}

func optionalText(fe models.FieldErrors, field, value string, maxLen int) string {
	value = strings.TrimSpace(value)
	if n := utf8.RuneCountInString(value); n > maxLen {
		fe.Add(field, formatMaxLength(maxLen, n))
	}
	return value
}

func formatMaxLength(limit, got int) string {
	return "Ensure this value has at most " + strconv.Itoa(limit) + " characters (it has " + strconv.Itoa(got) + ")."
}

func errOrNil(fe models.FieldErrors) error {
	if fe.Any() {
		return fe
	}
	return nil
}

// PostForm is the raw create/edit post submission. The image file travels
// separately as a multipart part named "image".
type PostForm struct {
	Title       string `form:"title"`
	Text        string `form:"text"`
	PubDate     string `form:"pub_date"`
	Category    string `form:"category"`
	Location    string `form:"location"`
	IsPublished string `form:"is_published"`
	ClearImage  string `form:"image-clear"`
}

// PostInput is a cleaned PostForm.
type PostInput struct {
	Title       string
	Text        string
	PubDate     time.Time
	CategoryID  uint
	LocationID  *uint
	IsPublished bool
	ClearImage  bool
}

// NewPostForm returns the initial values of an empty post form.
func NewPostForm(now time.Time) PostForm {
	return PostForm{
		PubDate:     now.UTC().Format(PubDateInputLayout),
		IsPublished: "on",
	}
}

// PostFormFrom fills a form with an existing post's values.
func PostFormFrom(p *models.Post) PostForm {
	f := PostForm{
		Title:    p.Title,
		Text:     p.Text,
		PubDate:  p.PubDate.UTC().Format(PubDateInputLayout),
		Category: strconv.FormatUint(uint64(p.CategoryID), 10),
	}
	if p.LocationID != nil {
		f.Location = strconv.FormatUint(uint64(*p.LocationID), 10)
	}
	if p.IsPublished {
		f.IsPublished = "on"
	}
	return f
}

// Clean validates field syntax. Whether the category and location exist is
// checked by the caller against the database.
func (f PostForm) Clean() (PostInput, error) {
	fe := models.FieldErrors{}
	in := PostInput{
		Title:       requireText(fe, "title", f.Title, MaxTitleLength),
		Text:        requireText(fe, "text", f.Text, 0),
		IsPublished: ParseCheckbox(f.IsPublished),
		ClearImage:  ParseCheckbox(f.ClearImage),
	}

	if strings.TrimSpace(f.PubDate) == "" {
		fe.Add("pub_date", msgRequired)
	} else if t, ok := ParseDateTime(f.PubDate); ok {
		in.PubDate = t
	} else {
		fe.Add("pub_date", msgInvalidDateTime)
	}

	if strings.TrimSpace(f.Category) == "" {
		fe.Add("category", msgRequired)
	} else if id, ok := parseID(f.Category); ok {
		in.CategoryID = id
	} else {
		fe.Add("category", msgInvalidChoice)
	}

	if strings.TrimSpace(f.Location) != "" {
		if id, ok := parseID(f.Location); ok {
			in.LocationID = &id
		} else {
			fe.Add("location", msgInvalidChoice)
		}
	}

	return in, errOrNil(fe)
}

// CommentForm is the raw comment submission.
type CommentForm struct {
	Text string `form:"text"`
}

// Clean returns the trimmed comment text.
func (f CommentForm) Clean() (string, error) {
	fe := models.FieldErrors{}
	text := requireText(fe, "text", f.Text, 0)
	return text, errOrNil(fe)
}

// RegistrationForm is the raw sign-up submission.
type RegistrationForm struct {
	Username  string `form:"username"`
	Email     string `form:"email"`
	FirstName string `form:"first_name"`
	LastName  string `form:"last_name"`
	Password1 string `form:"password1"`
	Password2 string `form:"password2"`
}

// RegistrationInput is a cleaned RegistrationForm.
type RegistrationInput struct {
	Username  string
	Email     string
	FirstName string
	LastName  string
	Password  string
}

// Clean validates everything except username uniqueness.
func (f RegistrationForm) Clean() (RegistrationInput, error) {
	fe := models.FieldErrors{}
	in := RegistrationInput{
		Username:  strings.TrimSpace(f.Username),
		FirstName: optionalText(fe, "first_name", f.FirstName, 150),
		LastName:  optionalText(fe, "last_name", f.LastName, 150),
	}
	if err := ValidateUsername(in.Username); err != nil {
		fe.Add("username", err.Error())
	}

	email := strings.TrimSpace(f.Email)
	if email == "" {
		fe.Add("email", msgRequired)
	} else if err := ValidateEmail(email); err != nil {
		fe.Add("email", err.Error())
	} else {
		in.Email = NormalizeEmail(email)
	}

	in.Password = cleanNewPassword(fe, "password1", "password2", f.Password1, f.Password2, UserAttributes{
		Username:  in.Username,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     in.Email,
	})
	return in, errOrNil(fe)
}

// cleanNewPassword checks a password pair. Mismatch and rule failures are
// both reported on the confirmation field.
func cleanNewPassword(fe models.FieldErrors, field1, field2, p1, p2 string, attrs UserAttributes) string {
	if p1 == "" {
		fe.Add(field1, msgRequired)
	}
	if p2 == "" {
		fe.Add(field2, msgRequired)
	}
	if p1 == "" || p2 == "" {
		return ""
	}
	if p1 != p2 {
		fe.Add(field2, MsgPasswordMismatch)
		return ""
	}
	if err := ValidatePassword(p2, attrs); err != nil {
		for _, msg := range PasswordMessages(err) {
			fe.Add(field2, msg)
		}
		return ""
	}
	return p1
}

// ProfileForm is the raw edit-profile submission.
type ProfileForm struct {
	Username  string `form:"username"`
	FirstName string `form:"first_name"`
	LastName  string `form:"last_name"`
	Email     string `form:"email"`
}

// ProfileInput is a cleaned ProfileForm.
type ProfileInput struct {
	Username  string
	FirstName string
	LastName  string
	Email     string
}

// ProfileFormFrom fills a form with the user's current values.
func ProfileFormFrom(u *models.User) ProfileForm {
	return ProfileForm{
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
	}
}

// Clean validates everything except username uniqueness.
func (f ProfileForm) Clean() (ProfileInput, error) {
	fe := models.FieldErrors{}
	in := ProfileInput{
		Username:  strings.TrimSpace(f.Username),
		FirstName: optionalText(fe, "first_name", f.FirstName, 150),
		LastName:  optionalText(fe, "last_name", f.LastName, 150),
	}
	if err := ValidateUsername(in.Username); err != nil {
		fe.Add("username", err.Error())
	}
	if email := strings.TrimSpace(f.Email); email != "" {
		if err := ValidateEmail(email); err != nil {
			fe.Add("email", err.Error())
		} else {
			in.Email = NormalizeEmail(email)
		}
	}
	return in, errOrNil(fe)
}

// LoginForm is the raw login submission.
type LoginForm struct {
	Username string `form:"username"`
	Password string `form:"password"`
	Next     string `form:"next"`
}

// Clean checks that both credentials were supplied.
func (f LoginForm) Clean() (LoginForm, error) {
	fe := models.FieldErrors{}
	f.Username = strings.TrimSpace(f.Username)
	if f.Username == "" {
		fe.Add("username", msgRequired)
	}
	if f.Password == "" {
		fe.Add("password", msgRequired)
	}
	return f, errOrNil(fe)
}

// PasswordResetForm asks for the address a reset link is mailed to.
type PasswordResetForm struct {
	Email string `form:"email"`
}

// Clean validates the address.
func (f PasswordResetForm) Clean() (string, error) {
	fe := models.FieldErrors{}
	email := strings.TrimSpace(f.Email)
	if email == "" {
		fe.Add("email", msgRequired)
	} else if err := ValidateEmail(email); err != nil {
		fe.Add("email", err.Error())
	}
	return email, errOrNil(fe)
}

// SetPasswordForm sets a new password without knowing the old one.
type SetPasswordForm struct {
	NewPassword1 string `form:"new_password1"`
	NewPassword2 string `form:"new_password2"`
}

// Clean validates the pair against the user's attributes.
func (f SetPasswordForm) Clean(u *models.User) (string, error) {
	fe := models.FieldErrors{}
	pw := cleanNewPassword(fe, "new_password1", "new_password2", f.NewPassword1, f.NewPassword2, AttributesOf(u))
	return pw, errOrNil(fe)
}

// PasswordChangeForm additionally requires the current password.
type PasswordChangeForm struct {
	OldPassword  string `form:"old_password"`
	NewPassword1 string `form:"new_password1"`
	NewPassword2 string `form:"new_password2"`
}

// Clean validates the new pair. Verifying OldPassword is left to the caller.
func (f PasswordChangeForm) Clean(u *models.User) (string, error) {
	fe := models.FieldErrors{}
	if f.OldPassword == "" {
		fe.Add("old_password", msgRequired)
	}
	pw := cleanNewPassword(fe, "new_password1", "new_password2", f.NewPassword1, f.NewPassword2, AttributesOf(u))
	return pw, errOrNil(fe)
}

// AttributesOf collects the similarity attributes of u.
func AttributesOf(u *models.User) UserAttributes {
	if u == nil {
		return UserAttributes{}
	}
	return UserAttributes{
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
	}
}
