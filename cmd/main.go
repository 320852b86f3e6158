package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/okian/teamform/internal/adapters/http/api"
	"github.com/okian/teamform/internal/adapters/http/swagger"
	app "github.com/okian/teamform/internal/app"
	"github.com/okian/teamform/internal/config"
	"github.com/okian/teamform/internal/seed"
	"github.com/okian/teamform/pkg/logger"
	"github.com/okian/teamform/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout           = 10 * time.Second
	writeTimeout          = 10 * time.Second
	idleTimeout           = 60 * time.Second
	readHeaderTimeout     = 5 * time.Second
	shutdownTimeout       = 30 * time.Second
	systemMetricsInterval = 10 * time.Second
	statsInterval         = 5 * time.Second
)

// configKey stores the loaded configuration in cli.App.Metadata.
const configKey = "config"

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newApp(os.Stdout, os.Stderr).RunContext(ctx, os.Args); err != nil {
		os.Stderr.WriteString("teamform: " + err.Error() + "\n")
		stop()
		os.Exit(1)
	}
}

func newApp(out, errOut io.Writer) *cli.App {
	return &cli.App{
		Name:      "teamform",
		Usage:     "Keyword matching and teammate suggestions for a team-formation directory",
		Writer:    out,
		ErrWriter: errOut,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "YAML config file (overrides TEAMFORM_CONFIG)",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
			},
			&cli.StringFlag{
				Name:  "store",
				Usage: "Entity store: memory, badger or sqlite",
			},
			&cli.StringFlag{
				Name:  "data-dir",
				Usage: "Directory for the badger and sqlite stores",
			},
		},
		Before: setup,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API",
				Action: serveCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "addr", Usage: "Listen address"},
				},
			},
			{
				Name:   "seed",
				Usage:  "Load YAML fixtures or a generated directory into the store",
				Action: seedCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "YAML fixture file"},
					&cli.IntFlag{Name: "generate", Usage: "Generate a synthetic directory with this many profiles"},
					&cli.Uint64Flag{Name: "random-seed", Usage: "Seed for --generate", Value: 1},
					&cli.BoolFlag{Name: "dump", Usage: "Print the fixtures as YAML instead of storing them"},
				},
			},
			{
				Name:   "search",
				Usage:  "Search people by comma-separated keywords",
				Action: searchCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "query", Aliases: []string{"q"}, Usage: "Keywords, e.g. \"react, backend\"", Required: true},
				},
			},
			{
				Name:   "suggest",
				Usage:  "Suggest teammates for required skills or a stored project",
				Action: suggestCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "skills", Aliases: []string{"s"}, Usage: "Required skills, e.g. \"Go, React\""},
					&cli.StringFlag{Name: "project", Aliases: []string{"p"}, Usage: "Project ID"},
				},
			},
			{
				Name:   "explore",
				Usage:  "Explore projects",
				Action: exploreCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "query", Aliases: []string{"q"}, Usage: "Text to look for"},
					&cli.StringFlag{Name: "sort", Usage: "relevance or recent", Value: app.SortRelevance},
				},
			},
		},
	}
}

// setup loads configuration, applies flag overrides and initializes logging.
func setup(c *cli.Context) error {
	if path := c.String("config"); path != "" {
		if err := os.Setenv("TEAMFORM_CONFIG", path); err != nil {
			return err
		}
	}
	cfg, err := config.Load(c.Context)
	if err != nil {
		return err
	}
	if v := c.String("log-level"); v != "" {
		cfg.LogLevel = v
	}
	if v := c.String("store"); v != "" {
		cfg.StoreDriver = v
	}
	if v := c.String("data-dir"); v != "" {
		cfg.DataDir = v
	}

	// Logs go to stderr so command output on stdout stays parseable.
	if err := logger.Init(logger.WithFormat(cfg.LogFormat), logger.WithWriter(c.App.ErrWriter)); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		logger.Get().Warn(c.Context, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	c.App.Metadata = map[string]interface{}{configKey: cfg}
	return nil
}

func configFrom(c *cli.Context) *config.Config {
	return c.App.Metadata[configKey].(*config.Config)
}

// newService builds the matching service from configuration.
func newService(cfg *config.Config) *app.Service {
	return app.New(
		app.WithLogger(logger.Named("service")),
		app.WithStoreDriver(cfg.StoreDriver, cfg.DataDir),
		app.WithScoreWorkers(cfg.ScoreWorkers),
		app.WithSuggestionLimit(cfg.SuggestionLimit),
		app.WithMaxTestimonials(cfg.MaxTestimonials),
		app.WithDedupeSize(cfg.DedupeSize),
		app.WithTable(cfg.Table()),
	)
}

// withService starts a service, seeds it from the configured fixture file
// and runs fn against it.
func withService(c *cli.Context, fn func(ctx context.Context, svc *app.Service) error) error {
	ctx := c.Context
	cfg := configFrom(c)
	svc := newService(cfg)
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("failed to start service: %w", err)
	}
	defer svc.Stop()

	if cfg.SeedFile != "" {
		f, err := seed.LoadFile(cfg.SeedFile)
		if err != nil {
			return err
		}
		if _, err := seed.Apply(ctx, svc.Store(), f, time.Now().UTC()); err != nil {
			return err
		}
	}
	return fn(ctx, svc)
}

func printJSON(c *cli.Context, v any) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func serveCommand(c *cli.Context) error {
	cfg := configFrom(c)
	if v := c.String("addr"); v != "" {
		cfg.Addr = v
	}
	log := logger.Get()

	return withService(c, func(ctx context.Context, svc *app.Service) error {
		go startSystemMetricsUpdater(ctx)
		go startStatsUpdater(ctx, svc)

		// HTTP mux and routes.
		mux := http.NewServeMux()
		swagger.Register(ctx, mux)
		apiServer := api.NewServer(svc, svc,
			api.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
			api.WithServerLogger(logger.Named("api")),
		)
		apiServer.Register(ctx, mux)

		srv := &http.Server{
			Addr:              cfg.Addr,
			Handler:           mux,
			ReadTimeout:       readTimeout,
			WriteTimeout:      writeTimeout,
			IdleTimeout:       idleTimeout,
			ReadHeaderTimeout: readHeaderTimeout,
		}

		errc := make(chan error, 1)
		go func() {
			log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errc <- err
			}
			close(errc)
		}()

		// Wait for shutdown signal or a listener failure
		select {
		case err := <-errc:
			return fmt.Errorf("HTTP server failed: %w", err)
		case <-ctx.Done():
		}
		log.Info(ctx, "shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error(ctx, "server shutdown failed", logger.Error(err))
		}
		log.Info(ctx, "server stopped")
		return nil
	})
}

func seedCommand(c *cli.Context) error {
	var f *seed.Fixtures
	switch {
	case c.String("file") != "":
		loaded, err := seed.LoadFile(c.String("file"))
		if err != nil {
			return err
		}
		f = loaded
	case c.Int("generate") > 0:
		gen := seed.DefaultGenerateConfig()
		n := c.Int("generate")
		gen.Profiles = n
		gen.Projects = max(n/4, 1)
		gen.Teams = max(n/6, 1)
		gen.Testimonials = max(n/8, 1)
		gen.Seed = c.Uint64("random-seed")
		f = seed.Generate(gen)
	default:
		return errors.New("seed needs --file or --generate")
	}

	if c.Bool("dump") {
		return seed.Write(c.App.Writer, f)
	}
	return withService(c, func(ctx context.Context, svc *app.Service) error {
		res, err := seed.Apply(ctx, svc.Store(), f, time.Now().UTC())
		if err != nil {
			return err
		}
		return printJSON(c, res)
	})
}

func searchCommand(c *cli.Context) error {
	return withService(c, func(ctx context.Context, svc *app.Service) error {
		out, err := svc.SearchProfiles(ctx, c.String("query"))
		if err != nil {
			return err
		}
		return printJSON(c, out)
	})
}

func suggestCommand(c *cli.Context) error {
	skills, project := c.String("skills"), c.String("project")
	if project == "" && !c.IsSet("skills") {
		return errors.New("suggest needs --skills or --project")
	}
	return withService(c, func(ctx context.Context, svc *app.Service) error {
		var (
			out any
			err error
		)
		if project != "" {
			out, err = svc.SuggestForProject(ctx, project)
		} else {
			out, err = svc.Suggest(ctx, skills)
		}
		if err != nil {
			return err
		}
		return printJSON(c, out)
	})
}

func exploreCommand(c *cli.Context) error {
	return withService(c, func(ctx context.Context, svc *app.Service) error {
		out, err := svc.ExploreProjects(ctx, c.String("query"), c.String("sort"))
		if err != nil {
			return err
		}
		return printJSON(c, out)
	})
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// startStatsUpdater refreshes the entity count gauges from service stats.
func startStatsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			svc.GetStats(ctx)
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
}
