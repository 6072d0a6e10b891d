package form

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAskValidate(t *testing.T) {
	f := &Ask{Title: "  How do channels work?  ", Text: " body "}
	assert.True(t, f.Validate())
	assert.Equal(t, "How do channels work?", f.Title)
	assert.Equal(t, "body", f.Text)
	assert.Empty(t, f.Errors)

	f = &Ask{Title: "   ", Text: ""}
	assert.False(t, f.Validate())
	assert.True(t, f.Errors.Has("title"))
	assert.True(t, f.Errors.Has("text"))

	f = &Ask{Title: strings.Repeat("x", 256), Text: "body"}
	assert.False(t, f.Validate())
	assert.Contains(t, f.Errors["title"], "255")
}

func TestAnswerValidate(t *testing.T) {
	f := &Answer{Text: "use a mutex"}
	assert.True(t, f.Validate())

	f = &Answer{Text: "\n\t"}
	assert.False(t, f.Validate())
	assert.True(t, f.Errors.Has("text"))
}

func TestSignupValidate(t *testing.T) {
	f := &Signup{
		Username: " gopher ",
		Email:    "gopher@example.com",
		Password: "secret",
	}
	assert.True(t, f.Validate())
	assert.Equal(t, "gopher", f.Username)

	for _, username := range []string{"Иван", "张三", "go.pher+1@ex_a-m"} {
		f := &Signup{
			Username: username,
			Email:    "gopher@example.com",
			Password: "secret",
		}
		assert.True(t, f.Validate(), username)
	}

	for _, tt := range []struct {
		name  string
		form  Signup
		field string
	}{
		{"missing username", Signup{Email: "a@b.c", Password: "secret"}, "username"},
		{"bad username", Signup{Username: "go pher", Email: "a@b.c", Password: "secret"}, "username"},
		{"long username", Signup{Username: strings.Repeat("g", 151), Email: "a@b.c", Password: "secret"}, "username"},
		{"missing email", Signup{Username: "gopher", Password: "secret"}, "email"},
		{"bad email", Signup{Username: "gopher", Email: "not-an-email", Password: "secret"}, "email"},
		{"named email", Signup{Username: "gopher", Email: "Go <a@b.c>", Password: "secret"}, "email"},
		{"short password", Signup{Username: "gopher", Email: "a@b.c", Password: "12345"}, "password"},
	} {
		t.Run(tt.name, func(t *testing.T) {
			f := tt.form
			assert.False(t, f.Validate())
			assert.True(t, f.Errors.Has(tt.field), f.Errors)
		})
	}
}

func TestLoginValidate(t *testing.T) {
	f := &Login{Username: "gopher", Password: "secret"}
	assert.True(t, f.Validate())

	f = &Login{}
	assert.False(t, f.Validate())
	assert.True(t, f.Errors.Has("username"))
	assert.True(t, f.Errors.Has("password"))
}
