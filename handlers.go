package rilis

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

type adminData struct {
	Site     SiteConfig
	LoggedIn bool
	CSRF     string
}

type loginPage struct {
	adminData
	Error string
}

type messagePage struct {
	adminData
	Message string
	Link    string
}

type errorPage struct {
	adminData
	Message string
}

type searchPage struct {
	siteData
	Query   string
	Results []Post
}

func (a *App) adminData(c echo.Context) adminData {
	return adminData{Site: a.Config, LoggedIn: IsLoggedIn(c), CSRF: CsrfToken(c)}
}

// render writes the named page as an HTML response with the given status.
func (a *App) render(c echo.Context, code int, name string, data any) error {
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(code)
	return a.Views.Component(name, data).Render(c.Request().Context(), c.Response().Writer)
}

func (a *App) handleLoginPage(c echo.Context) error {
	if IsLoggedIn(c) {
		return c.Redirect(http.StatusSeeOther, "/posts")
	}
	return a.render(c, http.StatusOK, "login.html", loginPage{adminData: a.adminData(c)})
}

func (a *App) handleLogin(c echo.Context) error {
	username := strings.TrimSpace(c.FormValue("username"))
	password := c.FormValue("password")
	u, err := a.Store.Authenticate(c.Request().Context(), username, password)
	if err != nil {
		if !errors.Is(err, ErrInvalidCredentials) {
			return err
		}
		a.Log.With(map[string]interface{}{"ip": c.RealIP()}).Warn("failed login")
		return a.render(c, http.StatusUnauthorized, "login.html", loginPage{
			adminData: a.adminData(c),
			Error:     "Invalid credentials",
		})
	}
	if err := setUserSession(c, u); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/posts")
}

func handleLogout(c echo.Context) error {
	if err := clearUserSession(c); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/login")
}

func (a *App) handleSearch(c echo.Context) error {
	query := c.Param("query")
	results, err := a.Posts.Search(c.Request().Context(), query)
	if err != nil {
		return err
	}
	return a.render(c, http.StatusOK, "search.html", searchPage{
		siteData: siteData{Site: a.Config, BaseURL: a.Config.URL},
		Query:    query,
		Results:  results,
	})
}

func (a *App) handleRoot(c echo.Context) error {
	if IsLoggedIn(c) {
		return c.Redirect(http.StatusSeeOther, "/posts")
	}
	return c.Redirect(http.StatusSeeOther, "/login")
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	if errors.Is(err, ErrNotFound) {
		err = echo.ErrNotFound
	}
	var he *echo.HTTPError
	ok := errors.As(err, &he)
	if ok && he.Code == http.StatusNotFound {
		_ = a.render(c, http.StatusNotFound, "notfound.html", errorPage{adminData: a.adminData(c)})
		return
	}
	code := http.StatusInternalServerError
	if ok {
		code = he.Code
	}
	if code >= 500 {
		a.Log.Error(err, "server error")
		_ = a.render(c, code, "error.html", errorPage{adminData: a.adminData(c)})
		return
	}
	a.Echo.DefaultHTTPErrorHandler(err, c)
}
