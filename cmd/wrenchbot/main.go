package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomaskol/wrenchbot/internal/auth"
	"github.com/tomaskol/wrenchbot/internal/blob"
	"github.com/tomaskol/wrenchbot/internal/chat"
	"github.com/tomaskol/wrenchbot/internal/completion"
	"github.com/tomaskol/wrenchbot/internal/config"
	"github.com/tomaskol/wrenchbot/internal/gateway"
	"github.com/tomaskol/wrenchbot/internal/search"
	"github.com/tomaskol/wrenchbot/internal/store"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(0)
	}

	switch os.Args[1] {
	case "version":
		fmt.Printf("wrenchbot v%s\n", version)
	case "serve":
		if err := serve(); err != nil {
			slog.Error("fatal", "error", err)
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Wrenchbot - grounded maintenance chatbot backend")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  wrenchbot serve     Start the gateway server")
	fmt.Println("  wrenchbot version   Show version info")
}

func serve() error {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	home := config.ResolveHome()
	slog.Info("wrenchbot starting", "version", version, "home", home)

	cfgPath := config.ResolveConfigPath("")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Warn("config not found, using defaults", "path", cfgPath, "error", err)
		cfg = config.DefaultConfig()
	}
	config.Set(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutdown signal received", "signal", sig)
		cancel()
	}()

	// Most settings take effect through config.Get on the next use; the
	// listen port is bound once at startup.
	startPort := cfg.Gateway.Port
	config.RegisterOnReload(func(next *config.Config) {
		if next.Gateway.Port != startPort {
			slog.Warn("gateway port changed in config, restart required to apply",
				"running", startPort, "configured", next.Gateway.Port)
		}
	})
	go config.Watch(ctx)

	storePath := cfg.Store.Path
	if storePath == "" {
		storePath = config.DefaultStorePath()
	}
	st, err := store.Open(storePath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	verifier, err := auth.NewVerifier(cfg.Auth.PublicKey, cfg.Auth.AuthorizedParties)
	if err != nil {
		return fmt.Errorf("init verifier: %w", err)
	}

	blobs, err := blob.New(ctx, cfg.Blob.Region, cfg.Blob.Endpoint)
	if err != nil {
		return fmt.Errorf("init blob store: %w", err)
	}

	completer := completion.NewClient(
		cfg.OpenAI.Endpoint, cfg.OpenAI.APIKey, cfg.OpenAI.Deployment,
		cfg.Search.Endpoint, cfg.Search.APIKey)
	vision := completion.NewVisionClient(cfg.Vision.Endpoint, cfg.Vision.APIKey, cfg.Vision.Deployment)
	indexes := search.NewClient(cfg.Search.Endpoint, cfg.Search.APIKey)

	srv := gateway.NewServer(cfg, nil, st, verifier, blobs)

	processor := chat.NewProcessor(chat.Deps{
		Verifier:  verifier,
		Store:     st,
		Completer: completer,
		Vision:    vision,
		Indexes:   indexes,
		Blobs:     blobs,
		Publisher: srv.Conns,
	}, chat.Options{
		Windows:        cfg.Chat.Windows,
		HistorySize:    cfg.Chat.HistorySize,
		MaxTokens:      cfg.Chat.MaxTokens,
		MaxImageWidth:  cfg.Chat.MaxImageWidth,
		ImageBucket:    cfg.Blob.ImageBucket,
		DocumentBucket: cfg.Blob.DocumentBucket,
		SignedURLTTL:   time.Duration(cfg.Chat.SignedURLTTLMinutes) * time.Minute,
	})
	srv.Processor = processor

	return srv.Start(ctx)
}
