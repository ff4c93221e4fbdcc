package toml

import (
	"time"

	"github.com/lmoreno/railguard/internal/domain"
)

const schemaVersion = 1

type fileSchema struct {
	Version           int               `toml:"version"`
	LastAuthenticated string            `toml:"last_authenticated"`
	UserAgent         string            `toml:"user_agent"`
	Storage           map[string]string `toml:"storage"`
	Cookies           []cookieSchema    `toml:"cookies"`
}

type cookieSchema struct {
	Name     string `toml:"name"`
	Value    string `toml:"value"`
	Domain   string `toml:"domain"`
	Path     string `toml:"path"`
	Expires  string `toml:"expires,omitempty"`
	Secure   bool   `toml:"secure"`
	HTTPOnly bool   `toml:"http_only"`
}

func toSchema(session domain.Session) fileSchema {
	file := fileSchema{
		Version:           schemaVersion,
		LastAuthenticated: session.LastAuthenticated.UTC().Format(time.RFC3339),
		UserAgent:         session.UserAgent,
		Storage:           session.Storage,
	}
	for _, cookie := range session.Cookies {
		entry := cookieSchema{
			Name:     cookie.Name,
			Value:    cookie.Value,
			Domain:   cookie.Domain,
			Path:     cookie.Path,
			Secure:   cookie.Secure,
			HTTPOnly: cookie.HTTPOnly,
		}
		if !cookie.Expires.IsZero() {
			entry.Expires = cookie.Expires.UTC().Format(time.RFC3339)
		}
		file.Cookies = append(file.Cookies, entry)
	}
	return file
}

func fromSchema(file fileSchema) (domain.Session, error) {
	lastAuthenticated, err := time.Parse(time.RFC3339, file.LastAuthenticated)
	if err != nil {
		return domain.Session{}, err
	}

	session := domain.Session{
		Storage:           file.Storage,
		LastAuthenticated: lastAuthenticated,
		UserAgent:         file.UserAgent,
	}
	for _, entry := range file.Cookies {
		cookie := domain.Cookie{
			Name:     entry.Name,
			Value:    entry.Value,
			Domain:   entry.Domain,
			Path:     entry.Path,
			Secure:   entry.Secure,
			HTTPOnly: entry.HTTPOnly,
		}
		if entry.Expires != "" {
			// Cookie expiries are advisory; a bad one does not invalidate
			// the whole record.
			if expires, err := time.Parse(time.RFC3339, entry.Expires); err == nil {
				cookie.Expires = expires
			}
		}
		session.Cookies = append(session.Cookies, cookie)
	}
	return session, nil
}
