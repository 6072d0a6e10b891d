// Package form binds and validates the HTML forms of the site.
package form

import (
	"net/mail"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Errors maps a field name to the message describing why it is invalid.
type Errors map[string]string

// Has reports whether the field has an error.
func (e Errors) Has(field string) bool {
	_, ok := e[field]
	return ok
}

// Ask is the form used to ask a question.
type Ask struct {
	Title  string
	Text   string
	Errors Errors
}

// Validate trims and validates the f.
func (f *Ask) Validate() bool {
	f.Errors = Errors{}
	f.Title = strings.TrimSpace(f.Title)
	f.Text = strings.TrimSpace(f.Text)

	switch l := utf8.RuneCountInString(f.Title); {
	case l == 0:
		f.Errors["title"] = "This field is required."
	case l > 255:
		f.Errors["title"] = "Ensure this value has at most 255 characters."
	}

	if f.Text == "" {
		f.Errors["text"] = "This field is required."
	}

	return len(f.Errors) == 0
}

// Answer is the form used to answer a question.
type Answer struct {
	Text   string
	Errors Errors
}

// Validate trims and validates the f.
func (f *Answer) Validate() bool {
	f.Errors = Errors{}
	f.Text = strings.TrimSpace(f.Text)
	if f.Text == "" {
		f.Errors["text"] = "This field is required."
	}

	return len(f.Errors) == 0
}

// MinPasswordLength is the minimum number of characters of a password.
const MinPasswordLength = 6

// Signup is the form used to create an account.
type Signup struct {
	Username string
	Email    string
	Password string
	Errors   Errors
}

// Validate trims and validates the f.
func (f *Signup) Validate() bool {
	f.Errors = Errors{}
	f.Username = strings.TrimSpace(f.Username)
	f.Email = strings.TrimSpace(f.Email)

	switch l := utf8.RuneCountInString(f.Username); {
	case l == 0:
		f.Errors["username"] = "This field is required."
	case l > 150:
		f.Errors["username"] = "Ensure this value has at most 150 " +
			"characters."
	case !validUsername(f.Username):
		f.Errors["username"] = "Enter a valid username. This value " +
			"may contain only letters, numbers, and @/./+/-/_ " +
			"characters."
	}

	if f.Email == "" {
		f.Errors["email"] = "This field is required."
	} else if a, err := mail.ParseAddress(f.Email); err != nil ||
		a.Address != f.Email {
		f.Errors["email"] = "Enter a valid email address."
	}

	if utf8.RuneCountInString(f.Password) < MinPasswordLength {
		f.Errors["password"] = "Ensure this value has at least 6 " +
			"characters."
	}

	return len(f.Errors) == 0
}

// Login is the form used to log in.
type Login struct {
	Username string
	Password string
	Errors   Errors
}

// Validate trims and validates the f.
func (f *Login) Validate() bool {
	f.Errors = Errors{}
	f.Username = strings.TrimSpace(f.Username)
	if f.Username == "" {
		f.Errors["username"] = "This field is required."
	}

	if f.Password == "" {
		f.Errors["password"] = "This field is required."
	}

	return len(f.Errors) == 0
}

// validUsername reports whether the s only contains letters, digits, and
// "@.+-_".
func validUsername(s string) bool {
	for _, r := range s {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
		case strings.ContainsRune("@.+-_", r):
		default:
			return false
		}
	}

	return true
}
