package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"modulehost/internal/activation"
	"modulehost/internal/api"
	"modulehost/internal/clock"
	"modulehost/internal/config"
	"modulehost/internal/events"
	"modulehost/internal/journal"
	"modulehost/internal/loader"
	_ "modulehost/internal/modules/inspector"
	"modulehost/internal/registry"
	"modulehost/internal/session"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

func main() {
	// Load environment variables before LOG_LEVEL is read
	envErr := godotenv.Load()

	logger, err := newLogger(os.Getenv("LOG_LEVEL"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if envErr != nil {
		logger.Warn("No .env file found, using environment variables")
	}

	args := os.Args[1:]
	configDir := getEnv("MODULEHOST_CONFIG_DIR", "./config")
	autoLoad := os.Getenv("MODULEHOST_AUTOLOAD") == "true"

	logger.Info("Starting Module Host",
		zap.String("config_dir", configDir),
		zap.Bool("auto_load", autoLoad))

	// Module catalog and launch list
	cfgLoader := config.NewLoader(configDir, logger)
	if err := cfgLoader.Load(); err != nil {
		logger.Warn("Module catalog not loaded, using launch list only", zap.Error(err))
	}
	catalog := cfgLoader.Catalog()
	launch := config.LaunchModules(args, os.Getenv("MODULES"), catalog)

	reg := registry.NewRegistry(logger)
	added := config.Populate(reg, launch, catalog, logger)
	logger.Info("Modules registered", zap.Int("count", added), zap.Strings("modules", reg.Names()))

	// Loaders: compiled-in modules first, then plugin libraries on disk
	pluginLoader := loader.NewPluginLoader(logger, filepath.SplitList(os.Getenv("MODULEHOST_PLUGIN_PATH"))...)
	search := loader.NewLibrarySearch(reg.Library, loader.Static, pluginLoader.Dirs())
	reg.SetAvailabilityPredicate(search.Available)

	bus := events.NewBus(clock.Real{})

	userJournal, err := openJournal(args)
	if err != nil {
		logger.Fatal("Failed to open user event journal", zap.Error(err))
	}
	journal.Attach(bus, userJournal, logger)
	reader, _ := userJournal.(journal.Reader)

	sess := session.New(logger, clock.Real{})
	controller := activation.NewController(reg, loader.Chain{loader.Static, pluginLoader}, sess, bus, logger, configDir)
	sess.SetListener(controller)

	if err := controller.Start(autoLoad); err != nil {
		logger.Warn("Some modules failed to load", zap.Error(err))
	}

	if v := os.Getenv("MODULEHOST_CATALOG_RELOAD"); v != "" {
		interval, err := time.ParseDuration(v)
		if err != nil || interval <= 0 {
			logger.Fatal("Invalid MODULEHOST_CATALOG_RELOAD", zap.String("value", v))
		}
		cfgLoader.StartAutoReload(interval, func(c *config.Catalog) {
			if n := config.Populate(reg, config.LaunchModules(args, os.Getenv("MODULES"), c), c, logger); n > 0 {
				reg.CheckAll()
				logger.Info("New modules registered from catalog", zap.Int("count", n))
			}
		})
	}

	if name := os.Getenv("MODULEHOST_STUDY"); name != "" {
		if _, err := sess.OpenDocument(name); err != nil {
			logger.Fatal("Failed to open study", zap.Error(err))
		}
		if def := os.Getenv("MODULEHOST_DEFAULT_MODULE"); def != "" {
			if err := controller.ActivateModule(def); err != nil {
				logger.Warn("Default module not activated", zap.String("module", def), zap.Error(err))
			}
		}
	}

	port, err := strconv.Atoi(getEnv("MODULEHOST_API_PORT", "8080"))
	if err != nil {
		logger.Fatal("Invalid MODULEHOST_API_PORT", zap.Error(err))
	}
	var server *api.Server
	if port > 0 {
		server = api.NewServer(controller, sess, reader, logger, port)
		if err := server.Start(); err != nil {
			logger.Fatal("Failed to start API server", zap.Error(err))
		}
	}

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Module host running. Press Ctrl+C to exit.")

	// Wait for shutdown signal
	<-sigChan

	logger.Info("Shutting down gracefully...")

	var errs error
	if server != nil {
		errs = multierr.Append(errs, server.Stop())
	}
	cfgLoader.Stop()
	if sess.Study() != nil {
		errs = multierr.Append(errs, sess.CloseDocument(true))
	}
	errs = multierr.Append(errs, controller.Close())
	errs = multierr.Append(errs, userJournal.Close())

	for _, err := range multierr.Errors(errs) {
		logger.Error("Shutdown error", zap.Error(err))
	}
}

func newLogger(level string) (*zap.Logger, error) {
	if level == "debug" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// openJournal picks the SQLite journal when MODULEHOST_JOURNAL_DSN is set,
// otherwise the --gui-log-file / MODULEHOST_GUI_LOG_FILE text file, and
// discards events when neither is configured.
func openJournal(args []string) (journal.Journal, error) {
	if dsn := os.Getenv("MODULEHOST_JOURNAL_DSN"); dsn != "" {
		return journal.OpenSQLite(dsn, clock.Real{})
	}
	path := config.GUILogFile(args)
	if path == "" {
		path = os.Getenv("MODULEHOST_GUI_LOG_FILE")
	}
	if path != "" {
		return journal.OpenFile(path, clock.Real{})
	}
	return journal.Nop{}, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
