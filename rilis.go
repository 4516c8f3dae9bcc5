// Package rilis is a small blog CMS: operators write posts behind a login,
// and the site is released as static HTML pages, a homepage, a sitemap and
// an article feed that a front end can read.
package rilis

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/spf13/afero"

	"github.com/eringen/rilis/logger"
	"github.com/eringen/rilis/views"
)

// App wires together the store, the post service, the exporter and the
// HTTP handlers.
type App struct {
	Config   SiteConfig
	Echo     *echo.Echo
	Store    *Store
	Posts    *PostService
	Exporter *Exporter
	Images   *ImageStore
	Views    *views.Views
	Log      logger.Logger

	fs  afero.Fs
	now func() time.Time
}

// New creates an App. Call Init before serving or exporting.
func New(cfg SiteConfig, log logger.Logger, opts ...Option) *App {
	cfg.setDefaults()
	if log == nil {
		log = logger.Nop()
	}

	a := &App{
		Config: cfg,
		Echo:   echo.New(),
		Log:    log,
		fs:     afero.NewOsFs(),
		now:    time.Now,
	}
	a.Echo.HideBanner = true
	a.Echo.HidePort = true

	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Init opens the database, makes sure the default operator exists and
// registers middleware and routes.
// A failed Init leaves no database open.
func (a *App) Init(ctx context.Context) (err error) {
	if err := a.Config.validate(); err != nil {
		return err
	}

	store, err := NewStore(a.Config.DatabasePath)
	if err != nil {
		return fmt.Errorf("rilis: init store: %w", err)
	}
	defer func() {
		if err != nil {
			store.Close()
			a.Store = nil
		}
	}()
	a.Store = store

	created, err := store.EnsureDefaultUser(ctx, a.Config.AdminUsername, a.Config.AdminPassword)
	if err != nil {
		return fmt.Errorf("rilis: default user: %w", err)
	}
	if created {
		a.Log.With(map[string]interface{}{"username": a.Config.AdminUsername}).Info("default user created")
	}

	v, err := views.Default()
	if err != nil {
		return fmt.Errorf("rilis: parse templates: %w", err)
	}
	a.Views = v

	if err := os.MkdirAll(a.Config.SessionDir, 0o700); err != nil {
		return fmt.Errorf("rilis: session dir: %w", err)
	}

	a.Posts = NewPostService(store, a.now)
	a.Exporter = NewExporter(store, v, a.fs, a.Config, a.Log)
	a.Images = NewImageStore(a.fs, a.Config.UploadDir, a.now)

	a.setupMiddleware()
	a.setupRoutes()
	return nil
}

// Start serves HTTP until Shutdown is called.
func (a *App) Start() error {
	a.Log.With(map[string]interface{}{"addr": a.Config.Addr}).Info("listening")
	if err := a.Echo.Start(a.Config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the HTTP server, waiting for in-flight requests.
func (a *App) Shutdown(ctx context.Context) error {
	return a.Echo.Shutdown(ctx)
}

func (a *App) setupRoutes() {
	e := a.Echo

	e.GET("/", a.handleRoot)
	e.GET("/login", a.handleLoginPage)
	e.POST("/login", a.handleLogin)
	e.GET("/logout", handleLogout)

	e.GET("/posts", a.handlePosts, requireLogin)
	e.GET("/posts/new", a.handleNewPost, requireLogin)
	e.POST("/posts", a.handleCreatePost, requireLogin)
	e.GET("/posts/edit/:id", a.handleEditPost, requireLogin)
	e.POST("/posts/update/:id", a.handleUpdatePost, requireLogin)
	e.GET("/posts/delete/:id", a.handleDeletePost, requireLogin)
	e.GET("/posts/rilis/:id", a.handleReleasePost, requireLogin)

	e.GET("/make-sitemap", a.handleMakeSitemap, requireLogin)
	e.GET("/rilis-index", a.handleReleaseIndex, requireLogin)
	e.GET("/rilis-feed", a.handleReleaseFeed, requireLogin)

	if a.Config.SearchRequiresAuth {
		e.GET("/search/:query", a.handleSearch, requireLogin)
	} else {
		e.GET("/search/:query", a.handleSearch)
	}

	e.GET("/images", a.handleImageList, requireLogin)
	e.POST("/images/upload", a.handleImageUpload, requireLogin)
	e.GET("/images/delete/:name", a.handleImageDelete, requireLogin)
	e.GET("/image-manager", a.handleImageManager, requireLogin)

	// Exported files and uploads, read through the same filesystem the
	// exporter and image store write to.
	e.GET("/site/*", echo.WrapHandler(http.StripPrefix("/site",
		http.FileServer(afero.NewHttpFs(a.fs).Dir(a.Config.OutputDir)))), requireLogin)
	e.GET(uploadsURL+"/*", echo.WrapHandler(http.StripPrefix(uploadsURL,
		http.FileServer(afero.NewHttpFs(a.fs).Dir(a.Config.UploadDir)))))
}

// Close releases the database.
func (a *App) Close() error {
	if a.Store != nil {
		return a.Store.Close()
	}
	return nil
}
