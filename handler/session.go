package handler

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/aofei/air"
	"github.com/askcn/ask/auth"
	"github.com/askcn/ask/base"
	"github.com/askcn/ask/model"
	"github.com/askcn/ask/store"
)

var (
	// sessionCookieName is the name of the session cookie.
	sessionCookieName = "ask_session"

	// sessionMaxAge is how long a session lasts.
	sessionMaxAge = 14 * 24 * time.Hour

	// sessionCookieSecure forces the Secure attribute on the session cookie
	// even for plain HTTP requests, as when TLS ends at a reverse proxy.
	sessionCookieSecure = false

	// authLimiter throttles login and signup attempts per client.
	authLimiter = auth.NewLimiter(1, 5, time.Hour)
)

// currentUserKey is the context key of the current user.
type currentUserKey struct{}

// sessionGas loads the user of the session cookie, if any, into the request
// context.
func sessionGas(next air.Handler) air.Handler {
	return func(req *air.Request, res *air.Response) error {
		c, err := req.HTTPRequest().Cookie(sessionCookieName)
		if err != nil || c.Value == "" || qaStore == nil {
			return next(req, res)
		}

		u, err := qaStore.SessionUser(req.Context, c.Value, now())
		if errors.Is(err, store.ErrNotFound) {
			expireSessionCookie(res)
			return next(req, res)
		} else if err != nil {
			return err
		}

		req.Context = context.WithValue(req.Context, currentUserKey{}, u)

		return next(req, res)
	}
}

// currentUser returns the logged-in user of the req, or nil if the client is
// anonymous.
func currentUser(req *air.Request) *model.User {
	u, _ := req.Context.Value(currentUserKey{}).(*model.User)
	return u
}

// login starts a new session for the u and sets its cookie on the res.
func login(req *air.Request, res *air.Response, u *model.User) error {
	c, err := req.HTTPRequest().Cookie(sessionCookieName)
	if err == nil && c.Value != "" {
		if err := qaStore.DeleteSession(req.Context, c.Value); err != nil {
			return err
		}
	}

	s := model.Session{
		Token:     auth.NewSessionToken(),
		UserID:    u.ID,
		ExpiresAt: now().Add(sessionMaxAge),
	}
	if err := qaStore.CreateSession(req.Context, s); err != nil {
		return err
	}

	res.Header.Add("Set-Cookie", (&http.Cookie{
		Name:     sessionCookieName,
		Value:    s.Token,
		Path:     "/",
		Expires:  s.ExpiresAt,
		MaxAge:   int(sessionMaxAge / time.Second),
		Secure:   secureCookie(req),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}).String())

	req.Context = context.WithValue(req.Context, currentUserKey{}, u)

	base.Logger.Info().
		Int64("user_id", u.ID).
		Str("username", u.Username).
		Msg("user logged in")

	return nil
}

// logout ends the session of the req, if any.
func logout(req *air.Request, res *air.Response) error {
	c, err := req.HTTPRequest().Cookie(sessionCookieName)
	if err == nil && c.Value != "" {
		if err := qaStore.DeleteSession(req.Context, c.Value); err != nil {
			return err
		}
	}

	expireSessionCookie(res)

	return nil
}

// secureCookie reports whether the session cookie set for the req must carry
// the Secure attribute.
func secureCookie(req *air.Request) bool {
	return sessionCookieSecure || req.HTTPRequest().TLS != nil
}

// expireSessionCookie tells the client to drop the session cookie.
func expireSessionCookie(res *air.Response) {
	res.Header.Add("Set-Cookie", (&http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}).String())
}

// requireUser redirects anonymous clients to the login page. It reports
// whether the req has a logged-in user.
func requireUser(req *air.Request, res *air.Response) (*model.User, bool, error) {
	if u := currentUser(req); u != nil {
		return u, true, nil
	}

	return nil, false, redirect(res, "/login")
}

// clientKey returns the key of the client of the req used for throttling.
func clientKey(req *air.Request) string {
	addr := req.HTTPRequest().RemoteAddr
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}

	return addr
}

// throttle reports whether the client of the req is allowed to make another
// authentication attempt. If not, the status of the res is set to 429.
func throttle(req *air.Request, res *air.Response) bool {
	if authLimiter.Allow(clientKey(req)) {
		return true
	}

	res.Status = http.StatusTooManyRequests
	base.Logger.Warn().
		Str("client", clientKey(req)).
		Str("path", req.Path).
		Msg("authentication attempt throttled")

	return false
}
