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

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/worldcal/internal/cache"
	"github.com/roach88/worldcal/internal/config"
	"github.com/roach88/worldcal/internal/httpapi"
	"github.com/roach88/worldcal/internal/loader"
	"github.com/roach88/worldcal/internal/service"
	"github.com/roach88/worldcal/internal/store"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Listen string
	DB     string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve calendars over HTTP",
		Long: `Serve the built-in templates, and the calendars of the SQLite store when
one is configured, over a JSON HTTP API.

With redis_url set, invalidations are broadcast to every worldcal process
sharing the Redis server so their compiled-calendar caches stay current.
The server shuts down gracefully on SIGINT or SIGTERM.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Listen, "listen", "", "listen address (overrides config)")
	cmd.Flags().StringVar(&opts.DB, "db", "", "SQLite calendar store (overrides config)")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	cfg, err := opts.LoadConfig()
	if err != nil {
		return err
	}
	if opts.Listen != "" {
		cfg.Listen = opts.Listen
	}
	if opts.DB != "" {
		cfg.DBPath = opts.DB
	}
	level, _ := cfg.SlogLevel()
	logger := opts.Logger(cmd.ErrOrStderr(), level)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stack, err := newServeStack(ctx, cfg, logger)
	if err != nil {
		return WrapExitError(ExitCommandError, "starting server", err)
	}
	defer stack.Close()

	srv := httpapi.NewServer(cfg.Listen, stack.Handler, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.ListenAndServe)
	if stack.Invalidator != nil {
		g.Go(func() error {
			if err := stack.Invalidator.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("server stopping")
		return srv.Shutdown(cfg.ShutdownTimeout)
	})

	if err := g.Wait(); err != nil {
		return WrapExitError(ExitFailure, "server failed", err)
	}
	return nil
}

// serveStack is everything behind the HTTP router.
type serveStack struct {
	Handler     http.Handler
	Service     *service.Service
	Templates   *cache.MapSource
	Store       *store.Store
	Invalidator *cache.Invalidator

	redis *redis.Client
}

// newServeStack wires the configured calendar sources, the compiled
// calendar cache, the optional Redis invalidator and the router.
func newServeStack(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*serveStack, error) {
	s := &serveStack{Templates: cache.NewMapSource()}

	for _, name := range cfg.Templates {
		cal, err := loader.Template(name)
		if err != nil {
			return nil, err
		}
		s.Templates.Put(cal)
	}

	var src cache.Source = s.Templates
	if cfg.DBPath != "" {
		st, err := store.Open(cfg.DBPath)
		if err != nil {
			return nil, &storeError{err: err}
		}
		s.Store = st
		src = cache.Chain{s.Templates, st}
	}

	c := cache.New(src, cache.WithLogger(logger))
	s.Service = service.New(c, logger)

	routerOpts := []httpapi.Option{
		httpapi.WithLogger(logger),
		httpapi.WithTimeout(cfg.RequestTimeout),
	}
	if cfg.RedisURL != "" {
		client, err := cache.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.redis = client
		s.Invalidator = cache.NewInvalidator(client, c,
			cache.WithChannel(cfg.InvalidateChannel),
			cache.WithInvalidatorLogger(logger),
		)
		routerOpts = append(routerOpts, httpapi.WithPublisher(s.Invalidator))
	}

	s.Handler = httpapi.NewRouter(s.Service, routerOpts...)
	logger.Info("calendar sources ready",
		"templates", s.Templates.IDs(),
		"store", cfg.DBPath,
		"redis", cfg.RedisURL != "",
	)
	return s, nil
}

// Close releases the store and the Redis client.
func (s *serveStack) Close() error {
	var errs []error
	if s.redis != nil {
		errs = append(errs, s.redis.Close())
	}
	if s.Store != nil {
		errs = append(errs, s.Store.Close())
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("close serve stack: %w", err)
	}
	return nil
}
