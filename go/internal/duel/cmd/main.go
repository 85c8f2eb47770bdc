package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/duelclient/go/clients"
	"github.com/mcdev12/duelclient/go/internal/duel/client"
	"github.com/mcdev12/duelclient/go/internal/duel/gateway"
	"github.com/mcdev12/duelclient/go/internal/duel/mirror"
	"github.com/mcdev12/duelclient/go/internal/duel/render"
	"github.com/mcdev12/duelclient/go/internal/duel/urlsync"
	"github.com/mcdev12/duelclient/go/internal/duel/viewserver"
	"github.com/mcdev12/duelclient/go/internal/duelconfig"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	configPath := flag.String("config", "", "YAML file overriding addresses and timings")
	pageURL := flag.String("url", "", "page address to open, e.g. http://localhost:11995/?duelId=X&playerId=Y")
	duelID := flag.String("duel", "", "duel to join on start")
	playerID := flag.String("player", "", "player to join as")
	flag.Parse()

	cfg, err := duelconfig.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	instanceID := uuid.NewString()[:8]
	setupLogging(cfg.LogLevel, instanceID)

	address := cfg.PageURL
	if *pageURL != "" {
		address = *pageURL
	}
	bar, err := urlsync.NewMemoryAddressBar(address)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid page url")
	}
	if *duelID != "" && *playerID != "" {
		urlsync.New(bar).Sync(*duelID, *playerID)
	}

	log.Info().
		Str("backend", cfg.BackendURL).
		Str("socket", cfg.SocketURL()).
		Str("address", bar.Location().String()).
		Msg("starting duel client")

	terminal := render.NewTerminal(os.Stdout)
	displays := []client.Display{terminal}

	var duelClient *client.Client
	var views *viewserver.Server
	if cfg.ViewAddr != "" {
		views = viewserver.New(func(ctx context.Context) (map[string]interface{}, error) {
			return duelClient.Stats(ctx)
		})
		displays = append(displays, views)
	}

	var sink client.SnapshotSink
	if cfg.NatsURL != "" {
		mirrorCfg := mirror.DefaultConfig()
		mirrorCfg.URL = cfg.NatsURL
		mirrorCfg.InstanceID = instanceID
		m, err := mirror.Connect(mirrorCfg)
		if err != nil {
			log.Error().Err(err).Msg("snapshot mirror disabled")
		} else {
			defer m.Close()
			sink = m
		}
	}

	connCfg := gateway.DefaultConnectionConfig()
	connCfg.URL = cfg.SocketURL()
	connCfg.ReconnectDelay = cfg.Timing.ReconnectDelay
	connCfg.DialTimeout = cfg.Timing.DialTimeout
	connCfg.WriteTimeout = cfg.Timing.WriteTimeout

	duelClient, err = client.New(client.Config{
		Connection:  connCfg,
		OverlayTTL:  cfg.Timing.OverlayTTL,
		JoinTimeout: cfg.Timing.JoinTimeout,
		JoinPoll:    cfg.Timing.JoinPoll,
		InstanceID:  instanceID,
	}, client.Options{
		Address:  bar,
		Displays: displays,
		Sink:     sink,
		Liveness: clients.NewDuelApiClient(cfg.BackendURL),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create duel client")
	}

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var server *http.Server
	if views != nil {
		server = views.NewHTTPServer(cfg.ViewAddr)
		go func() {
			log.Info().Str("addr", server.Addr).Msg("view server starting")
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error().Err(err).Msg("view server failed")
			}
		}()
	}

	go runCommands(ctx, duelClient, os.Stdin, os.Stdout, cancel)

	// Wait for interrupt signal
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		select {
		case sig := <-sigChan:
			log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := duelClient.Run(ctx); err != nil {
		log.Error().Err(err).Msg("duel client stopped")
	}

	if server != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("view server shutdown failed")
		}
	}

	log.Info().Msg("duel client shutdown complete")
}

func setupLogging(level, instanceID string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	// stdout carries the board, logs go to stderr
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).
		With().
		Str("instance", instanceID).
		Caller().
		Logger()
}
