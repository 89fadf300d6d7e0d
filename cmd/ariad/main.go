// Command ariad runs the Aria assistant backend: HTTP/WebSocket API, AI
// routing, voice engines, automation, and the SQLite store.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	cli "github.com/spf13/pflag"

	"github.com/aria-ai/aria/internal/api"
	"github.com/aria-ai/aria/internal/assistant"
	"github.com/aria-ai/aria/internal/auth"
	"github.com/aria-ai/aria/internal/automation"
	"github.com/aria-ai/aria/internal/config"
	"github.com/aria-ai/aria/internal/identity"
	"github.com/aria-ai/aria/internal/logging"
	"github.com/aria-ai/aria/internal/orchestrator"
	"github.com/aria-ai/aria/internal/provider"
	"github.com/aria-ai/aria/internal/store"
	"github.com/aria-ai/aria/internal/voice"
	"github.com/aria-ai/aria/internal/web"
)

const shutdownTimeout = 10 * time.Second

func main() {
	envFile := cli.StringP("env", "e", ".env", "env file path")
	configPath := cli.StringP("config", "c", "", "config file path (TOML)")
	addr := cli.StringP("addr", "a", "", "listen address (overrides config)")
	cli.Parse()

	godotenv.Load(*envFile)

	if *configPath == "" {
		home, _ := os.UserHomeDir()
		*configPath = filepath.Join(home, ".aria", "config.toml")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	log, logCloser, err := logging.New(&logging.Config{
		LogDir:  cfg.Logging.LogsDir,
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
	})
	if err != nil {
		os.Stderr.WriteString("failed to set up logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	if logCloser != nil {
		defer logCloser.Close()
	}

	log.Info().Str("config", *configPath).Msg("aria starting")

	secret := os.Getenv(cfg.Auth.SecretEnv)
	if secret == "" {
		log.Fatal().Str("env", cfg.Auth.SecretEnv).Msg("JWT secret not set")
	}
	tokenTTL, err := time.ParseDuration(cfg.Auth.TokenTTL)
	if err != nil {
		log.Warn().Str("ttl", cfg.Auth.TokenTTL).Msg("invalid token TTL, using 24h")
		tokenTTL = 24 * time.Hour
	}
	authMgr, err := auth.NewManager([]byte(secret), tokenTTL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up auth")
	}

	if err := os.MkdirAll(cfg.Paths.DataDir, 0o755); err != nil {
		log.Fatal().Err(err).Str("dir", cfg.Paths.DataDir).Msg("failed to create data directory")
	}
	st, err := store.Open(cfg.Paths.DB)
	if err != nil {
		log.Fatal().Err(err).Str("db", cfg.Paths.DB).Msg("failed to open store")
	}
	defer st.Close()

	registry := provider.NewRegistry()
	registry.Register(provider.NewDeepSeekClient(provider.Config{
		BaseURL: cfg.Providers.DeepSeek.BaseURL,
		Model:   cfg.Providers.DeepSeek.Model,
		APIKey:  os.Getenv(cfg.Providers.DeepSeek.KeyEnv),
	}, log))
	registry.Register(provider.NewOpenAIClient(provider.Config{
		BaseURL: cfg.Providers.OpenAI.BaseURL,
		Model:   cfg.Providers.OpenAI.Model,
		APIKey:  os.Getenv(cfg.Providers.OpenAI.KeyEnv),
	}, log))
	registry.Register(provider.NewAnthropicClient(provider.Config{
		BaseURL: cfg.Providers.Anthropic.BaseURL,
		Model:   cfg.Providers.Anthropic.Model,
		APIKey:  os.Getenv(cfg.Providers.Anthropic.KeyEnv),
	}, log))
	registry.Register(provider.NewLlamaClient(provider.Config{
		ModelPath: cfg.Providers.Llama.ModelPath,
	}, log))

	orch := orchestrator.New(registry, log)

	transcriber := voice.NewSimTranscriber(log)
	synthesizer := voice.NewSimSynthesizer(log)
	synthesizer.SetProperties(cfg.Voice.SpeechRate, cfg.Voice.Volume)
	wakeDetector := voice.NewSimWakeDetector(time.Now().UnixNano(), log)

	engine := automation.NewEngine(cfg.Automation.AllowedCommands, log)
	search := web.NewSearchEngine(log)
	fetcher := web.NewFetcher(log)

	core := assistant.New(assistant.Deps{
		Orchestrator: orch,
		Transcriber:  transcriber,
		Synthesizer:  synthesizer,
		WakeDetector: wakeDetector,
		Automation:   engine,
		Search:       search,
		Fetcher:      fetcher,
		Store:        st,
	}, log)
	defer core.Shutdown()

	server := api.NewServer(api.Deps{
		Core:         core,
		Orchestrator: orch,
		Auth:         authMgr,
		Identity:     identity.NewManager(log),
		Store:        st,
		Transcriber:  transcriber,
		Synthesizer:  synthesizer,
		WakeDetector: wakeDetector,
		Automation:   engine,
		Search:       search,
	}, log)

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("listening")
		errCh <- httpServer.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server failed")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("graceful shutdown failed")
	}

	log.Info().Msg("aria stopped")
}
