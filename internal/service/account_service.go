package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"blogicum/internal/auth"
	"blogicum/internal/models"
	"blogicum/internal/observability"
	"blogicum/internal/repository"
	"blogicum/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

// ResetLinkFunc builds the absolute reset URL for a uid/token pair.
type ResetLinkFunc func(uidb64, token string) string

// AccountService covers registration, login, profile edits and passwords.
type AccountService struct {
	users    repository.UserRepository
	tokens   *auth.ResetTokens
	mailer   Mailer
	siteName string
	cost     int
	now      func() time.Time
}

func NewAccountService(users repository.UserRepository, tokens *auth.ResetTokens, mailer Mailer, siteName string) *AccountService {
	return &AccountService{
		users:    users,
		tokens:   tokens,
		mailer:   mailer,
		siteName: siteName,
		cost:     bcrypt.DefaultCost,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// HashPassword hashes a raw password with bcrypt.
func HashPassword(raw string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(raw), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func checkPassword(hash, raw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(raw)) == nil
}

// Register creates an active account from form.
func (s *AccountService) Register(ctx context.Context, form validation.RegistrationForm) (*models.User, error) {
	in, err := form.Clean()
	fe, ok := models.AsFieldErrors(err)
	if err != nil && !ok {
		return nil, err
	}
	if fe == nil {
		fe = models.FieldErrors{}
	}
	if !fe.Has("username") {
		taken, err := s.users.UsernameTaken(ctx, in.Username, 0)
		if err != nil {
			return nil, err
		}
		if taken {
			fe.Add("username", validation.MsgUsernameTaken)
		}
	}
	if fe.Any() {
		return nil, fe
	}

	hash, err := HashPassword(in.Password, s.cost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	user := &models.User{
		Username:  in.Username,
		Email:     in.Email,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Password:  hash,
		IsActive:  true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if models.HasCode(err, models.CodeConflict) {
			return nil, models.FieldErrors{"username": {validation.MsgUsernameTaken}}
		}
		return nil, err
	}
	observability.Registrations.Inc()
	return user, nil
}

// Authenticate checks credentials. Failures come back as a non-field
// models.FieldErrors.
func (s *AccountService) Authenticate(ctx context.Context, form validation.LoginForm) (*models.User, error) {
	form, err := form.Clean()
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetByUsername(ctx, form.Username)
	if err != nil {
		return nil, err
	}
	if user == nil || !checkPassword(user.Password, form.Password) {
		observability.LoginAttempts.WithLabelValues("failure").Inc()
		return nil, models.FieldErrors{models.NonFieldErrors: {validation.MsgInvalidLogin}}
	}
	if !user.IsActive {
		observability.LoginAttempts.WithLabelValues("inactive").Inc()
		return nil, models.FieldErrors{models.NonFieldErrors: {validation.MsgInactiveLogin}}
	}
	observability.LoginAttempts.WithLabelValues("success").Inc()
	return user, nil
}

// RecordLogin stamps the last login time.
func (s *AccountService) RecordLogin(ctx context.Context, user *models.User) error {
	now := s.now()
	if err := s.users.TouchLastLogin(ctx, user.ID, now); err != nil {
		return err
	}
	user.LastLogin = &now
	return nil
}

// UpdateProfile applies the editable profile fields to user.
func (s *AccountService) UpdateProfile(ctx context.Context, user *models.User, form validation.ProfileForm) error {
	in, err := form.Clean()
	fe, ok := models.AsFieldErrors(err)
	if err != nil && !ok {
		return err
	}
	if fe == nil {
		fe = models.FieldErrors{}
	}
	if !fe.Has("username") {
		taken, err := s.users.UsernameTaken(ctx, in.Username, user.ID)
		if err != nil {
			return err
		}
		if taken {
			fe.Add("username", validation.MsgUsernameTaken)
		}
	}
	if fe.Any() {
		return fe
	}

	updated := *user
	updated.Username = in.Username
	updated.FirstName = in.FirstName
	updated.LastName = in.LastName
	updated.Email = in.Email
	if err := s.users.UpdateProfile(ctx, &updated); err != nil {
		if models.HasCode(err, models.CodeConflict) {
			return models.FieldErrors{"username": {validation.MsgUsernameTaken}}
		}
		return err
	}
	*user = updated
	return nil
}

// ChangePassword verifies the old password and stores the new one.
func (s *AccountService) ChangePassword(ctx context.Context, user *models.User, form validation.PasswordChangeForm) error {
	raw, err := form.Clean(user)
	fe, ok := models.AsFieldErrors(err)
	if err != nil && !ok {
		return err
	}
	if fe == nil {
		fe = models.FieldErrors{}
	}
	if form.OldPassword != "" && !checkPassword(user.Password, form.OldPassword) {
		fe.Add("old_password", validation.MsgWrongOldPassword)
	}
	if fe.Any() {
		return fe
	}
	return s.storePassword(ctx, user, raw)
}

// SetPassword stores a new password without checking the old one.
func (s *AccountService) SetPassword(ctx context.Context, user *models.User, form validation.SetPasswordForm) error {
	raw, err := form.Clean(user)
	if err != nil {
		return err
	}
	return s.storePassword(ctx, user, raw)
}

func (s *AccountService) storePassword(ctx context.Context, user *models.User, raw string) error {
	hash, err := HashPassword(raw, s.cost)
	if err != nil {
		return models.NewInternalError(err)
	}
	if err := s.users.SetPassword(ctx, user.ID, hash); err != nil {
		return err
	}
	user.Password = hash
	return nil
}

// RequestPasswordReset mails a reset link to every active account using
// the submitted address. Unknown addresses are not reported.
func (s *AccountService) RequestPasswordReset(ctx context.Context, form validation.PasswordResetForm, link ResetLinkFunc) error {
	email, err := form.Clean()
	if err != nil {
		return err
	}
	users, err := s.users.ListActiveByEmail(ctx, email)
	if err != nil {
		return err
	}
	var errs []error
	for _, u := range users {
		token, err := s.tokens.Make(u)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		msg := Message{
			To:      []string{u.Email},
			Subject: "Password reset on " + s.siteName,
			Body:    resetMailBody(s.siteName, u.Username, link(auth.EncodeUID(u.ID), token)),
		}
		if err := s.mailer.Send(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// ResetUser resolves a reset link. ok is false for a bad or stale link.
func (s *AccountService) ResetUser(ctx context.Context, uidb64, token string) (*models.User, bool, error) {
	id, err := auth.DecodeUID(uidb64)
	if err != nil {
		return nil, false, nil
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if user == nil || !user.IsActive || !s.tokens.Check(user, token) {
		return nil, false, nil
	}
	return user, true, nil
}

// GetUser returns nil, nil for an unknown id.
func (s *AccountService) GetUser(ctx context.Context, id uint) (*models.User, error) {
	return s.users.GetByID(ctx, id)
}

func resetMailBody(site, username, link string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You're receiving this email because you requested a password reset for your user account at %s.\n\n", site)
	b.WriteString("Please go to the following page and choose a new password:\n\n")
	b.WriteString(link + "\n\n")
	fmt.Fprintf(&b, "Your username, in case you’ve forgotten: %s\n\n", username)
	b.WriteString("Thanks for using our site!\n\n")
	fmt.Fprintf(&b, "The %s team\n", site)
	return b.String()
}
