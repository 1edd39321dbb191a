package session

import (
	"net/http"
	"time"
)

// CookieName is the cookie carrying the opaque session id.
const CookieName = "tunegate_session"

// Cookies reads and writes the session cookie.
type Cookies struct {
	Secure bool
	TTL    time.Duration
}

// Read returns the session id from r, or "" when the cookie is missing.
func (c Cookies) Read(r *http.Request) string {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// Write sets the session cookie on w.
func (c Cookies) Write(w http.ResponseWriter, id string) {
	ttl := c.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Clear expires the session cookie on w.
func (c Cookies) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
