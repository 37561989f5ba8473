package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	httpDelivery "github.com/pricelens/backend/internal/delivery/http"
)

const shutdownTimeout = 10 * time.Second

// Handler builds the gin router serving the REST API
func (a *App) Handler() http.Handler {
	var stats httpDelivery.CacheStats
	if a.cache != nil {
		stats = a.cache
	}
	handler := httpDelivery.NewHandler(a.Analysis, a.Exporter, stats)
	return httpDelivery.SetupRouter(a.Config, handler, a.Logger)
}

// Serve listens on the configured port until ctx is cancelled, then gives
// outstanding requests shutdownTimeout to complete.
func (a *App) Serve(ctx context.Context) error {
	server := &http.Server{
		Addr:              net.JoinHostPort("", a.Config.Server.Port),
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		a.Logger.Info().
			Str("addr", server.Addr).
			Str("environment", a.Config.Server.Environment).
			Msg("starting server")
		serverErrors <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		a.Logger.Info().Msg("shutdown initiated")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			a.Logger.Error().Err(err).Msg("graceful shutdown failed")
			return server.Close()
		}
	}

	return nil
}
