// Package validation provides input validation for the account and post forms.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Field limits.
const (
	UsernameMin   = 2
	UsernameMax   = 20
	PasswordMin   = 6
	PasswordMax   = 20
	TitleMax      = 100
	ContentMax    = 50000
	EmailMax      = 254
	passwordMatch = "Passwords don't match"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// ValidateUsername checks the username length.
func ValidateUsername(username string) error {
	n := utf8.RuneCountInString(username)
	if n < UsernameMin || n > UsernameMax {
		return fmt.Errorf("Field must be between %d and %d characters long.", UsernameMin, UsernameMax)
	}
	return nil
}

// ValidateEmail checks basic email format
func ValidateEmail(email string) error {
	if email == "" {
		return errors.New("This field is required.")
	}
	if len(email) > EmailMax {
		return fmt.Errorf("Email must not exceed %d characters.", EmailMax)
	}
	if !emailRegex.MatchString(email) {
		return errors.New("Invalid email address.")
	}
	return nil
}

// ValidatePassword checks the password length.
func ValidatePassword(password string) error {
	n := utf8.RuneCountInString(password)
	if n < PasswordMin || n > PasswordMax {
		return fmt.Errorf("Field must be between %d and %d characters long.", PasswordMin, PasswordMax)
	}
	return nil
}

// Errors maps a form field name to its first validation message.
type Errors map[string]string

// Add records msg for field unless the field already has an error.
func (e Errors) Add(field, msg string) {
	if _, exists := e[field]; !exists {
		e[field] = msg
	}
}

// Check records err under field when err is non-nil.
func (e Errors) Check(field string, err error) {
	if err != nil {
		e.Add(field, err.Error())
	}
}

// Any reports whether any field failed validation.
func (e Errors) Any() bool {
	return len(e) > 0
}

// First returns one message, preferring the order of fields.
func (e Errors) First(fields ...string) string {
	for _, f := range fields {
		if msg, ok := e[f]; ok {
			return msg
		}
	}
	for _, msg := range e {
		return msg
	}
	return ""
}

func required(value string) error {
	if strings.TrimSpace(value) == "" {
		return errors.New("This field is required.")
	}
	return nil
}

// RegistrationForm is submitted by POST /register.
type RegistrationForm struct {
	Username        string `form:"username"`
	Email           string `form:"email"`
	Password        string `form:"password"`
	ConfirmPassword string `form:"confirm_password"`
}

// Normalize trims whitespace from identifying fields.
func (f *RegistrationForm) Normalize() {
	f.Username = strings.TrimSpace(f.Username)
	f.Email = strings.TrimSpace(f.Email)
}

// Validate checks field rules; uniqueness is checked by the user service.
func (f RegistrationForm) Validate() Errors {
	errs := Errors{}
	errs.Check("username", ValidateUsername(f.Username))
	errs.Check("email", ValidateEmail(f.Email))
	errs.Check("password", ValidatePassword(f.Password))
	if f.ConfirmPassword != f.Password {
		errs.Add("confirm_password", passwordMatch)
	}
	return errs
}

// LoginForm is submitted by POST /login.
type LoginForm struct {
	Email    string `form:"email"`
	Password string `form:"password"`
	Remember string `form:"remember"`
}

// RememberMe reports whether the "remember me" box was ticked.
func (f LoginForm) RememberMe() bool {
	switch strings.ToLower(f.Remember) {
	case "y", "on", "true", "1":
		return true
	}
	return false
}

func (f LoginForm) Validate() Errors {
	errs := Errors{}
	errs.Check("email", ValidateEmail(strings.TrimSpace(f.Email)))
	errs.Check("password", required(f.Password))
	return errs
}

// AccountForm is submitted by POST /account.
type AccountForm struct {
	Username string `form:"username"`
	Email    string `form:"email"`
}

func (f *AccountForm) Normalize() {
	f.Username = strings.TrimSpace(f.Username)
	f.Email = strings.TrimSpace(f.Email)
}

func (f AccountForm) Validate() Errors {
	errs := Errors{}
	errs.Check("username", ValidateUsername(f.Username))
	errs.Check("email", ValidateEmail(f.Email))
	return errs
}

// PostForm is submitted when creating or editing a post.
type PostForm struct {
	Title   string `form:"title"`
	Content string `form:"content"`
}

func (f *PostForm) Normalize() {
	f.Title = strings.TrimSpace(f.Title)
}

func (f PostForm) Validate() Errors {
	errs := Errors{}
	errs.Check("title", required(f.Title))
	if utf8.RuneCountInString(f.Title) > TitleMax {
		errs.Add("title", fmt.Sprintf("Title must not exceed %d characters.", TitleMax))
	}
	errs.Check("content", required(f.Content))
	if utf8.RuneCountInString(f.Content) > ContentMax {
		errs.Add("content", fmt.Sprintf("Content must not exceed %d characters.", ContentMax))
	}
	return errs
}

// ResetRequestForm is submitted by POST /reset_password.
type ResetRequestForm struct {
	Email string `form:"email"`
}

func (f ResetRequestForm) Validate() Errors {
	errs := Errors{}
	errs.Check("email", ValidateEmail(strings.TrimSpace(f.Email)))
	return errs
}

// ResetPasswordForm is submitted by POST /reset_password/:token.
type ResetPasswordForm struct {
	Password        string `form:"password"`
	ConfirmPassword string `form:"confirm_password"`
}

func (f ResetPasswordForm) Validate() Errors {
	errs := Errors{}
	errs.Check("password", ValidatePassword(f.Password))
	if f.ConfirmPassword != f.Password {
		errs.Add("confirm_password", passwordMatch)
	}
	return errs
}
