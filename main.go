package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/raine/storefront/config"
	"github.com/raine/storefront/internal/api"
	"github.com/raine/storefront/internal/cart"
	"github.com/raine/storefront/internal/cli"
	"github.com/raine/storefront/internal/session"
	"github.com/raine/storefront/internal/storage"
)

func main() {
	os.Exit(run())
}

// run starts the client and returns the process exit code.
func run() int {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to a YAML config file")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [-config file] [command...]\n\n", os.Args[0])
		fmt.Fprintln(flag.CommandLine.Output(), "Without a command, starts the interactive shell.")
		flag.PrintDefaults()
	}
	flag.Parse()

	// Try to load existing .env file
	config.LoadEnvFile()

	cfg, err := config.Load(configPath)
	if errors.Is(err, config.ErrMissingTokenKey) && cli.IsInteractiveTerminal() {
		if !runSetupWizard() {
			waitOnWindows()
			return 1
		}
		cfg, err = config.Load(configPath)
	}
	if err != nil {
		fatalWithWait("invalid configuration: %v", err)
	}

	closeLog, err := setupLogging(cfg.Log)
	if err != nil {
		fatalWithWait("failed to set up logging: %v", err)
	}
	defer closeLog()

	// Create context that cancels on SIGINT or SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Derive encryption key from passphrase
	encryptionKey, err := storage.DeriveKey(cfg.TokenKey)
	if err != nil {
		fatalWithWait("failed to derive encryption key: %v", err)
	}

	store, err := openStore(ctx, cfg.Storage, encryptionKey)
	if err != nil {
		fatalWithWait("failed to initialize store: %v", err)
	}
	defer store.Close()

	installationID, err := store.InstallationID(ctx)
	if err != nil {
		fatalWithWait("failed to read installation id: %v", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	metrics := api.NewMetrics(registry)

	clientOpts := api.ClientOpts{
		BaseURL:        cfg.APIURL,
		InstallationID: installationID,
		Timeout:        cfg.Timeouts.Request,
		Metrics:        metrics,
		Debug:          cfg.Debug,
	}

	screen := cli.NewScreen(os.Stdout)
	sessions := session.NewManager(session.NewStore(ctx, store), api.NewAuthClient(clientOpts), session.ManagerOpts{
		Navigator:      screen,
		Notifier:       screen,
		RefreshTimeout: cfg.Timeouts.Refresh,
	})
	clientOpts.Tokens = sessions
	client := api.NewClient(clientOpts)

	var prompter cli.Prompter
	if cli.IsInteractiveTerminal() {
		prompter = cli.FormPrompter{}
	}
	shell := cli.NewShell(cli.ShellOpts{
		Screen:   screen,
		Sessions: sessions,
		Client:   client,
		Cart:     cart.New(ctx, store),
		Prompter: prompter,
	})

	// One-shot mode: run the command given on the command line and exit
	if flag.NArg() > 0 {
		if err := shell.RunCommand(ctx, joinArgs(flag.Args())); err != nil {
			log.Debug().Err(err).Msg("command failed")
			return 1
		}
		return 0
	}

	watchdog := session.NewWatchdog(sessions, session.WatchdogOpts{
		Interval:  cfg.Watchdog.Interval,
		Threshold: cfg.Watchdog.Threshold,
	})

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := shell.Run(ctx, os.Stdin)
		// Leaving the shell stops everything else
		cancel()
		return err
	})

	g.Go(func() error {
		return watchdog.Run(ctx)
	})

	if cfg.MetricsAddr != "" {
		g.Go(func() error {
			return serveMetrics(ctx, cfg.MetricsAddr, registry)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("shutdown with error")
		return 1
	}
	log.Debug().Msg("shutdown complete")
	return 0
}

func setupLogging(cfg config.LogConfig) (func(), error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	zerolog.SetGlobalLevel(level)

	consoleWriter := zerolog.ConsoleWriter{Out: os.Stderr}
	if cfg.File == "" {
		log.Logger = log.Output(consoleWriter)
		return func() {}, nil
	}

	logFile, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	fileWriter := zerolog.ConsoleWriter{Out: logFile, NoColor: true}
	log.Logger = log.Output(io.MultiWriter(consoleWriter, fileWriter))
	log.Debug().Str("logFile", cfg.File).Msg("logging to file")

	return func() { logFile.Close() }, nil
}

func openStore(ctx context.Context, cfg config.StorageConfig, key []byte) (storage.Store, error) {
	switch cfg.Backend {
	case config.BackendRedis:
		store, err := storage.NewRedisStore(ctx, cfg.RedisURL, cfg.RedisPrefix, key)
		if err != nil {
			return nil, err
		}
		log.Debug().Str("prefix", cfg.RedisPrefix).Msg("redis store initialized")
		return store, nil
	default:
		store, err := storage.NewSQLiteStore(cfg.DBPath, key)
		if err != nil {
			return nil, err
		}
		log.Debug().Str("dbPath", cfg.DBPath).Msg("sqlite store initialized")
		return store, nil
	}
}

func serveMetrics(ctx context.Context, addr string, registry *prometheus.Registry) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Debug().Str("addr", addr).Msg("serving metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// joinArgs rebuilds a command line, quoting arguments that contain spaces.
func joinArgs(args []string) string {
	quoted := make([]string, len(args))
	for i, arg := range args {
		if strings.ContainsAny(arg, " \t") {
			arg = `"` + arg + `"`
		}
		quoted[i] = arg
	}
	return strings.Join(quoted, " ")
}
