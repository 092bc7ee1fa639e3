// Package main provides the command-line interface for place-picker.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Ch00k/place-picker/internal/api"
	"github.com/Ch00k/place-picker/internal/auth"
	"github.com/Ch00k/place-picker/internal/cli"
	"github.com/Ch00k/place-picker/internal/config"
	"github.com/Ch00k/place-picker/internal/geolocation"
	"github.com/Ch00k/place-picker/internal/logging"
	"github.com/Ch00k/place-picker/internal/picker"
	"github.com/Ch00k/place-picker/internal/telemetry"
	"github.com/Ch00k/place-picker/internal/web"
)

var Version = "dev"

// Dependencies encapsulates external dependencies for testing
type Dependencies struct {
	Environ config.Environ
	// Locator overrides the locator otherwise chosen from the flags
	Locator geolocation.Locator
	Stdout  io.Writer
	Stderr  io.Writer
}

// DefaultDependencies returns production dependencies
func DefaultDependencies() Dependencies {
	return Dependencies{
		Environ: config.Load(),
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
	}
}

func main() {
	// Create a context that can be cancelled with SIGINT or SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	if err := run(ctx, os.Args[1:], DefaultDependencies()); err != nil {
		// Don't print error if user cancelled with Ctrl-C
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "Operation cancelled")
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		cancel()
		os.Exit(1)
	}
	cancel()
}

func run(ctx context.Context, args []string, deps Dependencies) error {
	cfg, err := cli.ParseFlags(args, deps.Environ)
	if err != nil {
		return err
	}

	if cfg.ShowHelp {
		cli.PrintUsage(deps.Stdout, Version)
		return nil
	}

	if cfg.ShowVersion {
		_, _ = fmt.Fprintf(deps.Stdout, "place-picker %s\n", Version)
		return nil
	}

	stderr := deps.Stderr
	if stderr == nil {
		stderr = io.Discard
	}
	logger := logging.NewLogger(stderr, cfg.LogLevel)
	logger.Debug("Config", slog.Any("config", cfg))

	operationStart := time.Now()
	defer func() {
		logger.Debug("Total operation completed", slog.Duration("elapsed", time.Since(operationStart)))
	}()

	shutdown, err := telemetry.Init(ctx, telemetry.Settings{
		Endpoint:       deps.Environ.OTELEndpoint,
		Insecure:       deps.Environ.OTELInsecure,
		MeterInterval:  deps.Environ.MeterInterval,
		ServiceName:    config.ServiceName,
		ServiceVersion: Version,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			logger.Warn("Telemetry shutdown failed", logging.ErrAttr(err))
		}
	}()

	client, err := newClient(cfg, deps.Environ, logger)
	if err != nil {
		return err
	}
	locator := deps.Locator
	if locator == nil {
		locator = newLocator(cfg, logger)
	}
	p := picker.New(client, logger)

	if cfg.Serve {
		server := web.NewServer(client, locator, p,
			web.WithTimeout(cfg.Timeout),
			web.WithLogger(logger),
		)
		return server.ListenAndServe(ctx, cfg.ListenAddr)
	}

	switch {
	case cfg.AddID != "":
		message, err := addPlace(ctx, logger, client, p, cfg.AddID)
		if err != nil {
			return err
		}
		printNotice(deps.Stdout, message)
	case cfg.RemoveID != "":
		message, err := removePlace(ctx, logger, p, cfg.RemoveID)
		if err != nil {
			return err
		}
		printNotice(deps.Stdout, message)
	}

	return listPlaces(ctx, logger, cfg, client, locator, p, deps.Stdout)
}

// newClient builds the backend client, signing requests when a secret and user are configured
func newClient(cfg *cli.Config, env config.Environ, logger *slog.Logger) (*api.Client, error) {
	opts := []api.ClientOption{
		api.WithBaseURL(cfg.APIURL),
		api.WithTimeout(cfg.Timeout),
		api.WithVersion(Version),
		api.WithLogger(logger),
	}
	if env.JWTSecret != "" {
		signer, err := auth.NewSigner(env.JWTSecret, cfg.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to configure authentication: %w", err)
		}
		token, err := signer.Token()
		if err != nil {
			return nil, fmt.Errorf("failed to configure authentication: %w", err)
		}
		subject, err := auth.Subject(env.JWTSecret, token)
		if err != nil {
			return nil, fmt.Errorf("failed to configure authentication: %w", err)
		}
		logger.Info("Authenticating to places backend", slog.String("user", subject))
		opts = append(opts, api.WithTokenSource(signer))
	}
	return api.NewClient(opts...), nil
}

// newLocator prefers coordinates given on the command line over an IP lookup
func newLocator(cfg *cli.Config, logger *slog.Logger) geolocation.Locator {
	if cfg.HasLocation {
		return geolocation.StaticLocator{Coordinate: coordinate(cfg.Latitude, cfg.Longitude)}
	}
	return geolocation.NewIPLocator(
		geolocation.WithURL(cfg.LocationURL),
		geolocation.WithTimeout(cfg.Timeout),
		geolocation.WithVersion(Version),
		geolocation.WithLogger(logger),
	)
}

func printNotice(w io.Writer, message string) {
	if message != "" {
		_, _ = fmt.Fprintf(w, "%s\n\n", message)
	}
}
