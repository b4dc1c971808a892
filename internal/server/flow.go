package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytmigrate/internal/shared"
	"golang.org/x/oauth2"
)

const (
	DefaultAuthTimeout = 2 * time.Minute
	shutdownTimeout    = 5 * time.Second
)

// AuthFlow runs the authorization code flow against a local callback server.
type AuthFlow struct {
	Config *oauth2.Config
	Addr   string // host:port of the callback server; ignored when Listener is set
	// Listener overrides Addr, mostly for tests.
	Listener net.Listener
	Timeout  time.Duration
	// Open is handed the authorization URL once the server is listening.
	Open   func(authURL string) error
	Logger *log.Logger
}

// Run blocks until the callback delivers a token, ctx ends or the timeout passes.
func (f *AuthFlow) Run(ctx context.Context) (*oauth2.Token, error) {
	if f.Config == nil {
		return nil, fmt.Errorf("%w: oauth config", shared.ErrMissingArgument)
	}
	logger := f.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	timeout := f.Timeout
	if timeout <= 0 {
		timeout = DefaultAuthTimeout
	}

	state, err := shared.GenerateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state token: %w", err)
	}

	ln := f.Listener
	if ln == nil {
		if ln, err = net.Listen("tcp", f.Addr); err != nil {
			return nil, fmt.Errorf("failed to listen on %s: %w", f.Addr, err)
		}
	}

	handler := NewOAuthHandler(f.Config, state)
	router := NewBasicRouter()
	router.Use(RequestLogger(logger))
	router.Handler(handler)

	httpServer := &http.Server{Handler: router, ReadHeaderTimeout: 10 * time.Second}
	serverErrors := make(chan error, 1)
	go func() {
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("error shutting down callback server", "error", err)
		}
	}()

	logger.Info("waiting for spotify authorization", "addr", ln.Addr().String())
	if f.Open != nil {
		if err := f.Open(f.Config.AuthCodeURL(state, oauth2.AccessTypeOffline)); err != nil {
			return nil, err
		}
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case result := <-handler.Result():
		if err := result.Error(); err != nil {
			return nil, fmt.Errorf("authorization failed: %w", err)
		}
		if result.Token == nil {
			return nil, fmt.Errorf("%w: no token received", shared.ErrAuthFailed)
		}
		return result.Token, nil
	case err := <-serverErrors:
		return nil, fmt.Errorf("callback server error: %w", err)
	case <-timer.C:
		return nil, fmt.Errorf("%w: authorization timed out after %s", shared.ErrTimeout, timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
