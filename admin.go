package rilis

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

type postsPage struct {
	adminData
	Posts   []Post
	Message string
}

type postFormPage struct {
	adminData
	Post   Post
	IsNew  bool
	Action string
}

func postID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.ErrNotFound
	}
	return id, nil
}

func postInputFromForm(c echo.Context) PostInput {
	return PostInput{
		Title:           strings.TrimSpace(c.FormValue("title")),
		Content:         c.FormValue("content"),
		Thumbnail:       strings.TrimSpace(c.FormValue("thumbnail")),
		Categories:      strings.Split(c.FormValue("categories"), ","),
		Tags:            strings.Split(c.FormValue("tags"), ","),
		MetaTitle:       strings.TrimSpace(c.FormValue("meta_title")),
		MetaDescription: strings.TrimSpace(c.FormValue("meta_description")),
		MetaKeywords:    strings.TrimSpace(c.FormValue("meta_keywords")),
		Featured:        c.FormValue("featured") != "",
	}
}

func redirectWithMessage(c echo.Context, msg string) error {
	return c.Redirect(http.StatusSeeOther, "/posts?msg="+url.QueryEscape(msg))
}

func (a *App) handlePosts(c echo.Context) error {
	posts, err := a.Posts.List(c.Request().Context())
	if err != nil {
		return err
	}
	return a.render(c, http.StatusOK, "posts.html", postsPage{
		adminData: a.adminData(c),
		Posts:     posts,
		Message:   c.QueryParam("msg"),
	})
}

func (a *App) handleNewPost(c echo.Context) error {
	return a.render(c, http.StatusOK, "post_form.html", postFormPage{
		adminData: a.adminData(c),
		IsNew:     true,
		Action:    "/posts",
	})
}

func (a *App) handleCreatePost(c echo.Context) error {
	p, err := a.Posts.Create(c.Request().Context(), postInputFromForm(c))
	if err != nil {
		return err
	}
	return redirectWithMessage(c, fmt.Sprintf("Created %q (%s)", p.Title, p.Slug))
}

func (a *App) handleEditPost(c echo.Context) error {
	id, err := postID(c)
	if err != nil {
		return err
	}
	p, err := a.Posts.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return a.render(c, http.StatusOK, "post_form.html", postFormPage{
		adminData: a.adminData(c),
		Post:      p,
		Action:    fmt.Sprintf("/posts/update/%d", p.ID),
	})
}

func (a *App) handleUpdatePost(c echo.Context) error {
	id, err := postID(c)
	if err != nil {
		return err
	}
	p, err := a.Posts.Update(c.Request().Context(), id, postInputFromForm(c))
	if err != nil {
		return err
	}
	return redirectWithMessage(c, fmt.Sprintf("Updated %q (%s)", p.Title, p.Slug))
}

func (a *App) handleDeletePost(c echo.Context) error {
	id, err := postID(c)
	if err != nil {
		return err
	}
	if err := a.Posts.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return redirectWithMessage(c, "Post deleted")
}

func (a *App) handleReleasePost(c echo.Context) error {
	id, err := postID(c)
	if err != nil {
		return err
	}
	p, err := a.Exporter.ExportPost(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return a.render(c, http.StatusOK, "message.html", messagePage{
		adminData: a.adminData(c),
		Message:   fmt.Sprintf("Post %q released.", p.Title),
		Link:      publicPath(PostFile(p.Slug)),
	})
}

func (a *App) handleMakeSitemap(c echo.Context) error {
	n, err := a.Exporter.ExportSitemap(c.Request().Context())
	if err != nil {
		return err
	}
	return a.render(c, http.StatusOK, "message.html", messagePage{
		adminData: a.adminData(c),
		Message:   fmt.Sprintf("Sitemap built with %d posts.", n),
		Link:      publicPath(SitemapFile),
	})
}

func (a *App) handleReleaseIndex(c echo.Context) error {
	home, err := a.Exporter.ExportIndex(c.Request().Context())
	if err != nil {
		return err
	}
	return a.render(c, http.StatusOK, "message.html", messagePage{
		adminData: a.adminData(c),
		Message:   fmt.Sprintf("Homepage released with %d featured and %d latest posts.", len(home.Featured), len(home.Latest)),
		Link:      publicPath(IndexFile),
	})
}

func (a *App) handleReleaseFeed(c echo.Context) error {
	n, err := a.Exporter.ExportFeed(c.Request().Context())
	if err != nil {
		return err
	}
	return a.render(c, http.StatusOK, "message.html", messagePage{
		adminData: a.adminData(c),
		Message:   fmt.Sprintf("Article feed built with %d articles.", n),
		Link:      publicPath(ArticlesFile),
	})
}
