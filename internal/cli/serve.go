package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/msomdec/recall/internal/config"
	"github.com/msomdec/recall/internal/graph"
	"github.com/msomdec/recall/internal/handler"
	"github.com/msomdec/recall/internal/service"
	"github.com/msomdec/recall/internal/token"
)

func newServeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the GraphQL server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
}

// newTokens builds the token signer/verifier from the auth configuration.
func newTokens(cfg config.AuthConfig, log *slog.Logger) (*token.JWT, error) {
	if !cfg.UsesRSA() {
		return token.NewHMAC([]byte(cfg.JWTSecret))
	}

	publicPEM, err := os.ReadFile(cfg.PublicKeyFile)
	if err != nil {
		return nil, fmt.Errorf("read public key: %w", err)
	}
	var privatePEM []byte
	if cfg.PrivateKeyFile != "" {
		if privatePEM, err = os.ReadFile(cfg.PrivateKeyFile); err != nil {
			return nil, fmt.Errorf("read private key: %w", err)
		}
	} else {
		log.Warn("no private key configured; logins will fail")
	}
	return token.NewRSA(privatePEM, publicPEM)
}

func (a *app) serve(ctx context.Context) error {
	cfg, log := a.cfg, a.log

	st, err := openStores(ctx, cfg, log, true)
	if err != nil {
		return err
	}
	defer st.Close()

	tokens, err := newTokens(cfg.Auth, log)
	if err != nil {
		return err
	}

	limiter := service.NewTokenBucket(cfg.Auth.LoginRate, float64(cfg.Auth.LoginBurst))
	defer limiter.Close()

	cards := service.NewCardService(st.cards, st.drafts, log)
	auth := service.NewAuthService(st.credentials, tokens, tokens, st.drafts, log,
		service.WithTokenLifetime(cfg.Auth.TokenLifetime))

	schema, err := graph.NewSchema(graph.NewResolver(cards, auth, graph.Config{
		RequireAuth:   cfg.Auth.RequireAuth(),
		AnonymousUser: cfg.Auth.AnonymousUser,
		LoginLimiter:  limiter,
	}, log))
	if err != nil {
		return err
	}

	gql := handler.NewGraphQLHandler(schema, auth, handler.CookieConfig{
		Name:   cfg.Auth.CookieName,
		Path:   cfg.Auth.CookiePath,
		Secure: cfg.Auth.CookieSecure,
	})

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           handler.NewRouter(gql, st.health, log),
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1MB
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting",
			slog.String("addr", srv.Addr),
			slog.String("storage", cfg.Storage.Driver),
			slog.String("auth_mode", cfg.Auth.Mode),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	log.Info("server stopped")
	return nil
}
