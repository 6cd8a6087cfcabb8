package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/PabloPavan/swiftsnip/internal/access"
	"github.com/PabloPavan/swiftsnip/internal/auth"
	"github.com/PabloPavan/swiftsnip/internal/config"
	"github.com/PabloPavan/swiftsnip/internal/db"
	"github.com/PabloPavan/swiftsnip/internal/httpapi"
	"github.com/PabloPavan/swiftsnip/internal/markdown"
	"github.com/PabloPavan/swiftsnip/internal/ratelimit"
	"github.com/PabloPavan/swiftsnip/internal/runner"
	"github.com/PabloPavan/swiftsnip/internal/runner/docker"
	"github.com/PabloPavan/swiftsnip/internal/session"
	"github.com/PabloPavan/swiftsnip/internal/snippets"
	"github.com/PabloPavan/swiftsnip/internal/telemetry"
	"github.com/PabloPavan/swiftsnip/internal/theme"
	"github.com/PabloPavan/swiftsnip/internal/users"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	_ "github.com/PabloPavan/swiftsnip/docs"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if cfg.TelemetryOn {
		inits := []func(context.Context, string) (func(context.Context) error, error){
			telemetry.InitTracer, telemetry.InitMetrics, telemetry.InitLogger,
		}
		for _, start := range inits {
			shutdown, err := start(ctx, config.ServiceName)
			if shutdown != nil {
				defer shutdown(context.Background())
			}
			if err != nil {
				return fmt.Errorf("telemetry: %w", err)
			}
		}
		db.InitTelemetry(config.ServiceName)
	}

	if cfg.MigrateOnStart {
		if err := db.Migrate(cfg.DatabaseURL, db.Up); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	d, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("db connect: %w", err)
	}
	defer d.Close()

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("redis url: %w", err)
		}
		redisClient = redis.NewClient(opt)
		defer redisClient.Close()
	}

	base := db.NewBase(d.Pool, 3*time.Second)
	userRepo := users.NewRepository(base)

	policy, err := access.NewPolicy()
	if err != nil {
		return fmt.Errorf("access policy: %w", err)
	}

	deps := newBackends(cfg, redisClient)

	sessions := &session.Manager{
		Store:   deps.sessions,
		TTL:     cfg.SessionTTL,
		IDBytes: 32,
	}

	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.JWTTTL)
	if err != nil {
		return fmt.Errorf("jwt: %w", err)
	}

	authService := &auth.Service{
		Users:        userRepo,
		Sessions:     sessions,
		Tokens:       tokens,
		LoginLimiter: deps.loginLimiter,
	}

	snippetService := &snippets.Service{
		Store:        snippets.NewRepository(base),
		Policy:       policy,
		CacheTTL:     cfg.CacheTTL,
		ListCacheTTL: cfg.ListCacheTTL,
	}
	if redisClient != nil {
		snippetService.Cache = snippets.NewRedisCache(redisClient, "swiftsnip:cache:")
	}

	runService := &runner.Service{Limiter: deps.runLimiter}
	if cfg.RunnerEnabled {
		exec, err := docker.New(ctx, docker.Config{
			Image:       cfg.RunnerImage,
			MemoryLimit: int64(cfg.RunnerMemoryMB) * 1024 * 1024,
			Timeout:     cfg.RunnerTimeout,
			PoolSize:    cfg.RunnerPoolSize,
		})
		if err != nil {
			telemetry.LogWarn(ctx, "sandbox runner disabled",
				telemetry.LogErr(err),
			)
		} else {
			defer exec.Close()
			runService.Executor = exec
		}
	}

	if cfg.TelemetryOn {
		if err := telemetry.InitAppMetrics(config.ServiceName, d.Pool, sessions.Active); err != nil {
			log.Printf("app metrics: %v", err)
		}
	}

	health := &httpapi.HealthHandler{DB: d.Pool}
	if redisClient != nil {
		health.Redis = httpapi.PingFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}

	serviceName := ""
	if cfg.TelemetryOn {
		serviceName = config.ServiceName
	}

	app := &httpapi.App{
		ServiceName: serviceName,
		Auth:        authService,
		Cookie:      cfg.Cookie,
		TrustProxy:  cfg.TrustProxy,
		Health:      health,
		Sessions:    &httpapi.AuthHandler{Service: authService, Cookie: cfg.Cookie},
		Users:       &httpapi.UsersHandler{Service: &users.Service{Store: userRepo, Owned: snippetService}, Cookie: cfg.Cookie},
		Snippets:    &httpapi.SnippetsHandler{Service: snippetService, Runner: runService},
		Theme:       &httpapi.ThemeHandler{Store: theme.NewStore(deps.themes, cfg.ThemeDefault)},
		Markdown:    &httpapi.MarkdownHandler{Renderer: markdown.NewRenderer()},
		Run:         &httpapi.RunHandler{Runner: runService},
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           httpapi.NewRouter(app),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("api listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// backends groups the stores that live in Redis when it is configured and
// in process memory otherwise.
type backends struct {
	sessions     session.Store
	themes       theme.Backend
	loginLimiter auth.RateLimiter
	runLimiter   runner.RateLimiter
}

func newBackends(cfg config.Config, client *redis.Client) backends {
	if client == nil {
		return backends{
			sessions:     session.NewMemoryStore(),
			themes:       theme.NewMemoryBackend(),
			loginLimiter: ratelimit.NewLocalLimiter(cfg.LoginRateLimit, cfg.LoginRateWindow),
			runLimiter:   ratelimit.NewLocalLimiter(cfg.RunRateLimit, cfg.RunRateWindow),
		}
	}
	return backends{
		sessions: session.NewRedisStore(client, cfg.SessionPrefix),
		themes:   theme.NewRedisBackend(client, "swiftsnip:theme:"),
		loginLimiter: &ratelimit.Limiter{
			Client: client,
			Prefix: "swiftsnip:ratelimit:",
			Limit:  cfg.LoginRateLimit,
			Window: cfg.LoginRateWindow,
		},
		runLimiter: &ratelimit.Limiter{
			Client: client,
			Prefix: "swiftsnip:ratelimit:",
			Limit:  cfg.RunRateLimit,
			Window: cfg.RunRateWindow,
		},
	}
}
