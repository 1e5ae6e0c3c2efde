package auth

import (
	"net/http"
	"net/url"
	"time"
)

// CookieSettings contains cookie security settings derived from base URL.
type CookieSettings struct {
	// Secure indicates whether the cookie should only be sent over HTTPS.
	Secure bool
}

// DeriveCookieSettings determines cookie security settings from base URL.
//   - http://localhost:3443 → Secure: false
//   - https://datadoc.example.com → Secure: true
//
// Empty or unparseable URLs get Secure: true.
func DeriveCookieSettings(baseURL string) CookieSettings {
	if baseURL == "" {
		return CookieSettings{Secure: true}
	}
	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return CookieSettings{Secure: true}
	}
	return CookieSettings{Secure: parsedURL.Scheme != "http"}
}

// SetTokenCookie writes the login token cookie.
func SetTokenCookie(w http.ResponseWriter, token string, expiresAt time.Time, settings CookieSettings) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   settings.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}
