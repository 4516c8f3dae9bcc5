package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eringen/rilis"
	"github.com/eringen/rilis/logger"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe()
	case "export":
		err = runExport()
	case "articles":
		err = runArticles(os.Args[2:])
	case "init":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: rilis init <directory>")
			os.Exit(1)
		}
		err = runInit(os.Args[2])
	case "version":
		fmt.Printf("rilis %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadApp(ctx context.Context) (*rilis.App, logger.Logger, error) {
	cfg, err := rilis.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg.Log, os.Stderr)
	app := rilis.New(cfg, log)
	if err := app.Init(ctx); err != nil {
		return nil, nil, err
	}
	return app, log, nil
}

func runServe() error {
	app, log, err := loadApp(context.Background())
	if err != nil {
		return err
	}
	defer app.Close()

	go func() {
		if err := app.Start(); err != nil {
			log.Fatal(err, "Could not start HTTP server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Warn("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := app.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	log.Info("Server exiting")
	return nil
}

func runExport() error {
	ctx := context.Background()
	app, log, err := loadApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.Exporter.ExportAll(ctx); err != nil {
		return err
	}
	log.Info(fmt.Sprintf("site exported to %s", app.Config.OutputDir))
	return nil
}

func printUsage() {
	fmt.Println(`rilis - a small blog CMS that releases static pages

Usage:
  rilis <command> [arguments]

Commands:
  serve         Run the operator web interface
  export        Release every post, the homepage, sitemap and feeds
  articles      Query an exported article feed
  init <dir>    Create a new site directory with a config.yml
  version       Print the rilis version
  help          Show this help message

Configuration is read from config.yml and RILIS_* environment variables.

Examples:
  rilis init myblog
  RILIS_ADMIN_PASSWORD=secret rilis serve
  rilis articles -tag go -latest 5`)
}
