package handler

import (
	"errors"
	"net/http"

	"github.com/aofei/air"
	"github.com/askcn/ask/auth"
	"github.com/askcn/ask/base"
	"github.com/askcn/ask/form"
	"github.com/askcn/ask/model"
	"github.com/askcn/ask/store"
)

func init() {
	base.Air.BATCH(getPostMethods, "/signup", hSignup, noStoreCachemanGas)
	base.Air.BATCH(getPostMethods, "/login", hLogin, noStoreCachemanGas)
	base.Air.POST("/logout", hLogout)
}

// hSignup handles requests to create an account.
func hSignup(req *air.Request, res *air.Response) error {
	f := &form.Signup{}
	if req.Method == http.MethodGet {
		return renderSignup(req, res, f)
	}

	if !throttle(req, res) {
		return errors.New("too many signup attempts")
	}

	f.Username = paramString(req, "username")
	f.Email = paramString(req, "email")
	f.Password = paramString(req, "password")
	if !f.Validate() {
		res.Status = http.StatusBadRequest
		return renderSignup(req, res, f)
	}

	hash, err := auth.HashPassword(f.Password)
	if err != nil {
		return err
	}

	u, err := qaStore.CreateUser(req.Context, model.User{
		Username:     f.Username,
		Email:        f.Email,
		PasswordHash: hash,
		JoinedAt:     now(),
	})
	if errors.Is(err, store.ErrConflict) {
		f.Errors["username"] = "A user with that username already exists."
		res.Status = http.StatusBadRequest
		return renderSignup(req, res, f)
	} else if err != nil {
		return err
	}

	signupsTotal.Inc()
	base.Logger.Info().
		Int64("user_id", u.ID).
		Str("username", u.Username).
		Msg("user signed up")

	if err := login(req, res, u); err != nil {
		return err
	}

	return redirect(res, "/")
}

// renderSignup renders the signup page with the f.
func renderSignup(req *air.Request, res *air.Response, f *form.Signup) error {
	return render(req, res, "signup.html", map[string]interface{}{
		"PageTitle":     req.LocalizedString("Sign up"),
		"CanonicalPath": "/signup",
		"Form":          f,
	})
}

// hLogin handles requests to log in.
func hLogin(req *air.Request, res *air.Response) error {
	f := &form.Login{}
	if req.Method == http.MethodGet {
		return renderLogin(req, res, f)
	}

	if !throttle(req, res) {
		return errors.New("too many login attempts")
	}

	f.Username = paramString(req, "username")
	f.Password = paramString(req, "password")
	if !f.Validate() {
		res.Status = http.StatusBadRequest
		return renderLogin(req, res, f)
	}

	u, err := qaStore.UserByUsername(req.Context, f.Username)
	if errors.Is(err, store.ErrNotFound) {
		loginsTotal.WithLabelValues("unknown_user").Inc()
		return redirect(res, "/signup")
	} else if err != nil {
		return err
	}

	if !auth.CheckPassword(u.PasswordHash, f.Password) {
		loginsTotal.WithLabelValues("wrong_password").Inc()
		return redirect(res, "/signup")
	}

	if err := login(req, res, u); err != nil {
		return err
	}

	loginsTotal.WithLabelValues("success").Inc()

	return redirect(res, "/")
}

// renderLogin renders the login page with the f.
func renderLogin(req *air.Request, res *air.Response, f *form.Login) error {
	return render(req, res, "login.html", map[string]interface{}{
		"PageTitle":     req.LocalizedString("Log in"),
		"CanonicalPath": "/login",
		"Form":          f,
	})
}

// hLogout handles requests to log out.
func hLogout(req *air.Request, res *air.Response) error {
	if err := logout(req, res); err != nil {
		return err
	}

	return redirect(res, "/")
}
