package fiber

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"net/http"

	"github.com/gofiber/fiber/v3"

	"github.com/lborres/tala/core"
	"github.com/lborres/tala/pkg/errutil"
)

//go:embed templates/*.html
var templatesFS embed.FS

var pages = template.Must(template.ParseFS(templatesFS, "templates/*.html"))

type pageData struct {
	Title           string
	Message         string
	Username        string
	Action          string
	Next            string
	IdentifierLabel string
	WithEmail       bool
}

func render(c fiber.Ctx, name string, data pageData) error {
	var buf bytes.Buffer
	if err := pages.ExecuteTemplate(&buf, name, data); err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.Status(http.StatusOK).Send(buf.Bytes())
}

func (a *Adapter) redirect(c fiber.Ctx, to string) error {
	return c.Redirect().Status(fiber.StatusFound).To(to)
}

// signedIn reports whether the request carries an active session.
// Store failures count as signed out.
func (a *Adapter) signedIn(c fiber.Ctx) bool {
	_, err := a.auth.Authenticate(c.Context(), extractToken(c, a.opts.Cookie.Name))
	return err == nil
}

func (a *Adapter) indexPage(c fiber.Ctx) error {
	if a.signedIn(c) {
		return a.redirect(c, "/dashboard")
	}
	return render(c, "index", pageData{
		Title:   "Welcome",
		Message: "Please sign up or log in to continue",
	})
}

func (a *Adapter) signUpPage(c fiber.Ctx) error {
	if a.signedIn(c) {
		return a.redirect(c, "/dashboard")
	}
	return render(c, "signup", pageData{
		Title:           "Sign Up",
		Action:          "/api/signup",
		Next:            "/login",
		IdentifierLabel: "Username",
		WithEmail:       true,
	})
}

func (a *Adapter) loginPage(c fiber.Ctx) error {
	if a.signedIn(c) {
		return a.redirect(c, "/dashboard")
	}
	return render(c, "login", pageData{
		Title:           "Login",
		Action:          "/api/login",
		Next:            "/dashboard",
		IdentifierLabel: "Username or email",
	})
}

func (a *Adapter) dashboardPage(c fiber.Ctx) error {
	identity, err := a.auth.Authenticate(c.Context(), extractToken(c, a.opts.Cookie.Name))
	if err != nil {
		if errors.Is(err, core.ErrUnauthenticated) {
			a.clearSessionCookie(c)
		} else {
			errutil.LogError(a.log, "dashboard failed", err)
		}
		return a.redirect(c, "/login")
	}
	return render(c, "dashboard", pageData{
		Title:    "Dashboard",
		Username: identity.Username,
	})
}

func (a *Adapter) logoutPage(c fiber.Ctx) error {
	a.auth.Logout(c.Context(), extractToken(c, a.opts.Cookie.Name))
	a.clearSessionCookie(c)
	return a.redirect(c, "/")
}
