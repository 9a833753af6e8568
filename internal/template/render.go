// Package template renders the password reset email.
//
// Supported variables:
//
//	{{user.username}}, {{user.email}}, {{user.first_name}}, {{user.last_name}}
//
//	{{reset.url}}, {{reset.expires_at}}
package template

import (
	"strings"
	"time"

	"github.com/core-admin/backend/internal/model"
)

const (
	ResetSubject = "Password reset"

	ResetBody = `Hello {{user.first_name}},

A password reset was requested for the account {{user.username}}.
Follow the link below to choose a new password:

{{reset.url}}

The link is valid until {{reset.expires_at}}. If you did not request a reset,
you can ignore this message.
`
)

// UserData is the part of a user that templates may reference.
type UserData struct {
	Username  string
	Email     string
	FirstName string
	LastName  string
}

type ResetData struct {
	URL       string
	ExpiresAt time.Time
}

func UserDataFromModel(u *model.User) UserData {
	return UserData{
		Username:  u.Username,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
}

// RenderBody substitutes template variables in body. Variables of a nil
// argument render as empty strings.
func RenderBody(body string, user *UserData, reset *ResetData) string {
	pairs := make([]string, 0, 12)

	if user != nil {
		pairs = append(pairs,
			"{{user.username}}", user.Username,
			"{{user.email}}", user.Email,
			"{{user.first_name}}", user.FirstName,
			"{{user.last_name}}", user.LastName,
		)
	} else {
		pairs = append(pairs,
			"{{user.username}}", "",
			"{{user.email}}", "",
			"{{user.first_name}}", "",
			"{{user.last_name}}", "",
		)
	}

	if reset != nil {
		expiresAt := ""
		if !reset.ExpiresAt.IsZero() {
			expiresAt = reset.ExpiresAt.UTC().Format(time.RFC1123)
		}
		pairs = append(pairs,
			"{{reset.url}}", reset.URL,
			"{{reset.expires_at}}", expiresAt,
		)
	} else {
		pairs = append(pairs,
			"{{reset.url}}", "",
			"{{reset.expires_at}}", "",
		)
	}

	return strings.NewReplacer(pairs...).Replace(body)
}
