// Package main is the entry point for the bubbleshelld session daemon.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/diamondburned/gotk4-adwaita/pkg/adw"
	"github.com/diamondburned/gotk4/pkg/glib/v2"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"

	"github.com/jmylchreest/bubbleshell/internal/config"
	"github.com/jmylchreest/bubbleshell/internal/coordinator"
	"github.com/jmylchreest/bubbleshell/internal/daemon"
	"github.com/jmylchreest/bubbleshell/internal/dbus"
	"github.com/jmylchreest/bubbleshell/internal/display"
	"github.com/jmylchreest/bubbleshell/internal/favicon"
	"github.com/jmylchreest/bubbleshell/internal/metrics"
	"github.com/jmylchreest/bubbleshell/internal/store"
	"github.com/jmylchreest/bubbleshell/internal/webview"
)

const (
	appID   = "io.github.jmylchreest.bubbleshelld"
	appName = "bubbleshelld"

	// shutdownTimeout bounds the final session file write.
	shutdownTimeout = 5 * time.Second
)

var (
	// Build-time variables
	version = "dev"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version and exit")
	quiet := flag.Bool("quiet", false, "Log at info level instead of debug")
	flag.Parse()

	if *showVersion {
		fmt.Println(appName, "version", version)
		os.Exit(0)
	}

	level := slog.LevelDebug
	if *quiet {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	os.Exit(run(logger))
}

// idleExecutor runs async completions on the GTK main loop.
func idleExecutor(fn func()) {
	glib.IdleAdd(fn)
}

// run starts the GTK application and returns its exit status.
func run(logger *slog.Logger) int {
	logger.Info("starting bubbleshelld", "version", version)

	cfg, err := config.LoadDaemonConfig()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return 1
	}

	app := adw.NewApplication(appID, 0)

	// Shared state between GTK main loop and signal handlers
	var (
		coord            *coordinator.Coordinator
		presenter        *display.Presenter
		service          *dbus.Service
		configWatcher    *daemon.ConfigWatcher
		internalNotifier *daemon.InternalNotifier
		running          atomic.Bool
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// stop tears components down in reverse start order. Main loop only.
	stop := func() {
		if !running.Swap(false) {
			return
		}
		if configWatcher != nil {
			configWatcher.Stop()
		}
		if service != nil {
			_ = service.Stop()
		}
		if coord != nil {
			shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
			if err := coord.Shutdown(shutdownCtx); err != nil {
				logger.Error("failed to write final session snapshot", "error", err)
			}
			done()
		}
		if presenter != nil {
			presenter.Stop()
		}
		cancel()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig)
		glib.IdleAdd(func() {
			stop()
			app.Quit()
		})
	}()

	app.ConnectActivate(func() {
		if running.Load() {
			logger.Warn("application already running")
			return
		}
		running.Store(true)

		monitors, err := display.NewMonitors(logger)
		if err != nil {
			logger.Error("failed to read monitors", "error", err)
			app.Quit()
			return
		}

		sessionPath, err := store.ResolvePath(cfg.Persistence.Path)
		if err != nil {
			logger.Error("failed to resolve session file path", "error", err)
			app.Quit()
			return
		}

		var m *metrics.Metrics
		if cfg.Metrics.Listen != "" {
			m = metrics.New()
			go func() {
				if err := m.Serve(ctx, cfg.Metrics.Listen, logger); err != nil {
					logger.Warn("metrics exporter stopped", "addr", cfg.Metrics.Listen, "error", err)
				}
			}()
		}

		internalNotifier = daemon.NewInternalNotifier(logger)

		coord = coordinator.New(coordinator.Options{
			Geometry: monitors,
			Hosts:    webview.NewHeadlessFactory(),
			Store:    store.NewJSONPersistence(sessionPath, logger),
			Favicons: favicon.New(favicon.Options{
				Timeout:   cfg.Favicon.Timeout.Duration(),
				MaxBytes:  cfg.Favicon.MaxBytes,
				UserAgent: cfg.Favicon.UserAgent,
				Logger:    logger,
			}),
			Executor: idleExecutor,
			Config:   cfg,
			Logger:   logger,
			Metrics:  m,
			// The presenter commits collapses after the panel exit animation
			AnimatedCollapse: true,
			OnStoreError: func(err error) {
				if store.IsCorrupt(err) {
					internalNotifier.NotifyCorruptSessions(sessionPath)
					return
				}
				internalNotifier.NotifyPersistenceError(err)
			},
		})

		presenter = display.NewPresenter(&app.Application, coord, monitors, cfg, logger)
		coord.AddObserver(presenter)

		service = dbus.NewService(coord, logger)
		if err := service.Start(); err != nil {
			logger.Error("failed to start D-Bus service", "error", err)
			stop()
			app.Quit()
			return
		}
		coord.AddObserver(dbus.NewSignalBridge(service.Connection(), logger))
		internalNotifier.SetNotifyHandler(daemon.DesktopNotifyHandler(service.Connection()))

		// Restore after observers are attached so restored bubbles are drawn
		if err := coord.Init(ctx); err != nil {
			logger.Error("failed to initialize coordinator", "error", err)
			stop()
			app.Quit()
			return
		}
		logger.Info("sessions restored", "path", sessionPath, "count", coord.Count())

		configWatcher, err = daemon.NewConfigWatcher(logger)
		if err != nil {
			logger.Warn("failed to create config watcher", "error", err)
		} else {
			configWatcher.SetReloadCallback(func(newConfig *config.DaemonConfig) {
				glib.IdleAdd(func() {
					coord.UpdateConfig(newConfig)
					presenter.UpdateConfig(newConfig)
					if newConfig.Persistence.Path != cfg.Persistence.Path {
						logger.Warn("persistence.path changes apply after restart")
					}
					if newConfig.Metrics.Listen != cfg.Metrics.Listen {
						logger.Warn("metrics.listen changes apply after restart")
					}
					cfg = newConfig
					internalNotifier.NotifyConfigReloaded()
				})
			})
			configWatcher.SetErrorCallback(func(err error) {
				internalNotifier.NotifyConfigError(err)
			})
			if err := configWatcher.Start(cfg); err != nil {
				logger.Warn("failed to start config watcher", "error", err)
			}
		}

		logger.Info("bubbleshelld ready", "dbus_interface", dbus.DBusInterface)

		// Create a hidden window to keep the application running
		// (GTK apps quit when all windows are closed)
		keepAliveWindow := gtk.NewWindow()
		keepAliveWindow.SetApplication(&app.Application)
		keepAliveWindow.SetDefaultSize(1, 1)
		keepAliveWindow.SetDecorated(false)
		keepAliveWindow.SetVisible(false)
	})

	app.ConnectShutdown(func() {
		logger.Info("application shutting down")
		stop()
	})

	status := app.Run(os.Args[:1])
	if status != 0 {
		logger.Error("application exited with error", "status", status)
		return status
	}

	logger.Info("bubbleshelld stopped")
	return 0
}
