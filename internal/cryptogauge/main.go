package cryptogauge

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
)

var buildVersion = "dev"

func Main() int {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "failed loading .env file: %v\n", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	return 0
}

// serveWithReload serves the application and restarts it whenever the config
// file changes. An invalid new config is reported and the running one is kept.
func serveWithReload(ctx context.Context, configPath string) error {
	config, err := newConfigFromFile(configPath)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer watcher.Close()

	if err = watcher.Add(configPath); err != nil {
		return fmt.Errorf("watching config file: %w", err)
	}

	for {
		app, err := newApplication(config)
		if err != nil {
			return fmt.Errorf("creating application: %w", err)
		}

		start, stop := app.server()
		serveErr := make(chan error, 1)
		go func() {
			serveErr <- start()
		}()

	wait:
		for {
			select {
			case err := <-serveErr:
				return err
			case <-ctx.Done():
				if err := stop(); err != nil {
					slog.Error("Failed to shutdown application", "error", err)
				}
				return nil
			case err, ok := <-watcher.Errors:
				if !ok {
					return nil
				}
				slog.Error("Error watching config file", "error", err)
			case event, ok := <-watcher.Events:
				if !ok {
					return nil
				}

				if !event.Has(fsnotify.Write) {
					continue
				}

				next, err := newConfigFromFile(configPath)
				if err != nil {
					slog.Error("Failed to reload config file, keeping the current config", "error", err)
					continue
				}

				slog.Info("Config file modified, restarting application")
				if err := stop(); err != nil {
					slog.Error("Failed to shutdown application", "error", err)
				}
				<-serveErr

				config = next
				break wait
			}
		}
	}
}
