package auth

import (
	"crypto/sha256"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
)

// SessionName is the name of the explorer session cookie.
const SessionName = "datadoc-session"

// SessionKeyID is the session value holding the explorer session UUID.
const SessionKeyID = "sid"

// SessionCookies issues and reads the signed cookie that binds a browser to
// its explorer session.
type SessionCookies struct {
	store *sessions.CookieStore
}

// NewSessionCookies creates the cookie-backed session store.
//
// The secret parameter is used to sign session cookies. It can be any
// passphrase - it will be SHA-256 hashed to derive a 32-byte key. An empty
// secret uses a random key, so sessions do not survive a restart.
//
// maxAge is the cookie lifetime in seconds.
func NewSessionCookies(secret string, maxAge int, secure bool) *SessionCookies {
	var key []byte
	if secret == "" {
		key = securecookie.GenerateRandomKey(32)
	} else {
		sum := sha256.Sum256([]byte(secret))
		key = sum[:]
	}

	store := sessions.NewCookieStore(key)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &SessionCookies{store: store}
}

// SessionID returns the explorer session ID carried by the request. When the
// request has no valid session cookie a new ID is minted and the cookie is
// written to w, so this must run before the response body is written.
// The boolean reports whether the ID is new.
func (c *SessionCookies) SessionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool, error) {
	// A decode failure (rotated key, tampered cookie) still yields a usable
	// empty session.
	session, _ := c.store.Get(r, SessionName)

	if raw, ok := session.Values[SessionKeyID].(string); ok {
		if id, err := uuid.Parse(raw); err == nil {
			// Refresh the cookie expiry.
			if err := session.Save(r, w); err != nil {
				return uuid.Nil, false, err
			}
			return id, false, nil
		}
	}

	id := uuid.New()
	session.Values[SessionKeyID] = id.String()
	if err := session.Save(r, w); err != nil {
		return uuid.Nil, false, err
	}
	return id, true, nil
}
