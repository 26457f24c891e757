// Command server runs the modelgate inference gateway.
//
// Configuration is layered: built-in defaults, a YAML config file
// (-config flag, MODELGATE_CONFIG, ./config.yaml, /etc/modelgate/config.yaml),
// then MODELGATE_* environment overrides. See pkg/config.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelgate/modelgate/pkg/audit"
	"github.com/modelgate/modelgate/pkg/auth"
	"github.com/modelgate/modelgate/pkg/config"
	"github.com/modelgate/modelgate/pkg/identity"
	"github.com/modelgate/modelgate/pkg/pipeline"
	"github.com/modelgate/modelgate/pkg/provider"
	"github.com/modelgate/modelgate/pkg/provider/anthropic"
	"github.com/modelgate/modelgate/pkg/provider/cohere"
	"github.com/modelgate/modelgate/pkg/provider/googleai"
	"github.com/modelgate/modelgate/pkg/provider/openai"
	"github.com/modelgate/modelgate/pkg/quota"
	"github.com/modelgate/modelgate/pkg/storage"
	"github.com/modelgate/modelgate/pkg/storage/memory"
	"github.com/modelgate/modelgate/pkg/storage/postgres"
	"github.com/modelgate/modelgate/pkg/transport"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := newStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("creating store: %w", err)
	}
	defer store.Close()

	signer := auth.NewTokenSigner(cfg.Auth.SigningSecret, cfg.Auth.TokenTTL)
	verifier := auth.NewVerifier(store, signer)
	identities := identity.NewService(store, signer, cfg.Auth.BcryptCost)

	router, closeAdapters := newProviderRouter(cfg)
	defer closeAdapters()

	tracker := quota.NewTracker(store, quotaTiers(cfg.Quota.Tiers), quotaTier(cfg.Quota.Default))

	auditLog := audit.NewLogger(store, cfg.Audit.BufferSize)
	defer auditLog.Close()

	orch := pipeline.New(verifier, tracker, auditLog)
	handler := transport.NewHandler(store, identities, router, orch, cfg.Providers.Timeout)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      handler.Routes(cfg),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "port", cfg.Server.Port, "storage", cfg.Storage.Type)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// newStore selects the durable store per configuration.
func newStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	switch cfg.Storage.Type {
	case "postgres":
		return postgres.New(ctx, postgres.Config{
			DSN:            cfg.Storage.Postgres.DSN,
			MaxConns:       cfg.Storage.Postgres.MaxConns,
			MigrateOnStart: cfg.Storage.Postgres.MigrateOnStart,
		})
	default:
		slog.Warn("using in-memory storage, state is lost on restart")
		return memory.New(), nil
	}
}

// newProviderRouter builds adapters for every configured provider. Providers
// without an API key are still registered; their upstream calls fail with a
// provider error rather than an unsupported-model error.
func newProviderRouter(cfg *config.Config) (*provider.Router, func()) {
	timeout := cfg.Providers.Timeout

	adapters := []provider.Adapter{
		openai.New(openai.Config{BaseURL: cfg.Providers.OpenAI.BaseURL, Timeout: timeout}),
		anthropic.New(anthropic.Config{BaseURL: cfg.Providers.Anthropic.BaseURL, Timeout: timeout}),
		googleai.New(googleai.Config{BaseURL: cfg.Providers.Google.BaseURL, Timeout: timeout}),
		cohere.New(cohere.Config{BaseURL: cfg.Providers.Cohere.BaseURL, Timeout: timeout}),
	}

	creds := map[provider.Name]provider.Credentials{
		provider.OpenAI:    {APIKey: cfg.Providers.OpenAI.APIKey},
		provider.Anthropic: {APIKey: cfg.Providers.Anthropic.APIKey},
		provider.Google:    {APIKey: cfg.Providers.Google.APIKey},
		provider.Cohere:    {APIKey: cfg.Providers.Cohere.APIKey},
	}

	closeAll := func() {
		for _, a := range adapters {
			a.Close()
		}
	}
	return provider.NewRouter(adapters, creds), closeAll
}

func quotaTier(tc config.TierConfig) quota.Tier {
	return quota.Tier{
		PathPrefix:  tc.PathPrefix,
		MaxRequests: tc.MaxRequests,
		Window:      time.Duration(tc.WindowMinutes) * time.Minute,
	}
}

func quotaTiers(tcs []config.TierConfig) []quota.Tier {
	tiers := make([]quota.Tier, 0, len(tcs))
	for _, tc := range tcs {
		tiers = append(tiers, quotaTier(tc))
	}
	return tiers
}
