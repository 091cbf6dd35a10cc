package utils

import (
	"net/http"
	"time"

	"github.com/google/uuid"
)

const (
	HeaderUserID   = "X-User-ID"
	HeaderUsername = "X-Username"

	CookieNameMemberID = "member_id"
)

// UserID resolves the caller's identity. The auth layer in front of
// this service injects the headers; a query parameter keeps plain
// websocket clients workable.
func UserID(r *http.Request) string {
	if id := r.Header.Get(HeaderUserID); id != "" {
		return id
	}
	return r.URL.Query().Get("userId")
}

// Username resolves the caller's display name for presence.
func Username(r *http.Request) string {
	if name := r.Header.Get(HeaderUsername); name != "" {
		return name
	}
	return r.URL.Query().Get("username")
}

// EnsureMemberID returns a stable anonymous identity for callers the
// auth layer did not tag, minting and setting a cookie on first contact.
func EnsureMemberID(w http.ResponseWriter, r *http.Request) string {
	if cookie, err := r.Cookie(CookieNameMemberID); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     CookieNameMemberID,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Expires:  time.Now().Add(240 * time.Hour),
		SameSite: http.SameSiteLaxMode,
	})
	return id
}
