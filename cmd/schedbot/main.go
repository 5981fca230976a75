package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	gin "github.com/gin-gonic/gin"
	godotenv "github.com/joho/godotenv"
	zap "go.uber.org/zap"
	oauth2 "golang.org/x/oauth2"
	option "google.golang.org/api/option"

	agentpkg "github.com/schedbot/schedbot/agent"
	api "github.com/schedbot/schedbot/api"
	commands "github.com/schedbot/schedbot/commands"
	config "github.com/schedbot/schedbot/config"
	google "github.com/schedbot/schedbot/google"
	google_mocks "github.com/schedbot/schedbot/google/mocks"
	"github.com/schedbot/schedbot/internal/logging"
	llm "github.com/schedbot/schedbot/llm"
	session "github.com/schedbot/schedbot/session"
	tools "github.com/schedbot/schedbot/tools"
)

var (
	// Version information - will be set by build flags
	version = "dev"
	commit  = "unknown"
	date    = "unknown"

	showVersion = flag.Bool("version", false, "show version information and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("schedbot\n")
		fmt.Printf("  Version:    %s\n", version)
		fmt.Printf("  Commit:     %s\n", commit)
		fmt.Printf("  Build Date: %s\n", date)
		os.Exit(0)
	}

	_ = godotenv.Load()

	ctx := context.Background()
	cfg, err := config.Load(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	logger.Info("starting schedbot",
		zap.String("version", version),
		zap.String("commit", commit),
		zap.String("buildDate", date))

	gin.SetMode(cfg.Server.Mode)

	calendarService := buildCalendarService(ctx, cfg, logger)
	store := session.NewMemoryStore(cfg.Agent.MaxHistoryTurns * 2)
	planner := buildPlanner(cfg, logger)
	authorizer := buildAuthorizer(cfg, logger)

	// connected users act on their own calendar; everyone else shares the
	// configured service
	var services google.ServiceProvider = google.StaticServiceProvider{Service: calendarService}
	if _, ok := authorizer.(*google.OAuthAuthorizer); ok {
		services = google.NewUserServiceProvider(authorizer, calendarService, logger)
	}
	toolbox := tools.NewToolboxWithProvider(logger, services, cfg.Agent.MaxSearchResults).
		WithRequestTimeout(cfg.Google.RequestTimeout)

	agent := agentpkg.New(logger, planner, toolbox, store, agentpkg.Options{
		CalendarID:      cfg.Google.CalendarID,
		DefaultTimezone: cfg.Agent.DefaultTimezone,
		TurnTimeout:     cfg.Agent.TurnTimeout,
		ConfirmTTL:      cfg.Agent.ConfirmTTL,
	})

	dispatcher := commands.NewDispatcher(logger, store, authorizer, toolbox, commands.Options{
		CalendarID:      cfg.Google.CalendarID,
		DefaultTimezone: cfg.Agent.DefaultTimezone,
	})

	server := api.NewServer(logger, agent, dispatcher, authorizer, store, api.Options{
		RequireConnection: !cfg.ShouldUseMockService(),
		MaxRequestSize:    cfg.App.MaxRequestSize,
	})

	httpServer := &http.Server{
		Addr:         cfg.GetServerAddress(),
		Handler:      server.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("listening", zap.String("address", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	stop, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	<-stop.Done()

	logger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown was not clean", zap.Error(err))
	}
}

func buildCalendarService(ctx context.Context, cfg *config.Config, logger *zap.Logger) google.CalendarService {
	if cfg.ShouldUseMockService() {
		logger.Info("demo mode enabled, using in-memory calendar")
		return google_mocks.NewMockCalendarService()
	}

	var opts []option.ClientOption
	if cfg.Google.ServiceAccountJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.Google.ServiceAccountJSON)))
	} else if cfg.Google.CredentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.Google.CredentialsPath))
	}

	svc, err := google.NewCalendarService(ctx, logger, opts...)
	if err != nil {
		if cfg.IsDevelopment() {
			logger.Warn("calendar service unavailable, falling back to in-memory calendar", zap.Error(err))
			return google_mocks.NewMockCalendarService()
		}
		logger.Fatal("failed to initialize calendar service", zap.Error(err))
	}
	return svc
}

func buildPlanner(cfg *config.Config, logger *zap.Logger) llm.Planner {
	if cfg.LLM.Enabled {
		planner, err := llm.NewGatewayPlanner(cfg.LLM, logger)
		if err == nil {
			return planner
		}
		logger.Warn("llm planner unavailable, using keyword planner", zap.Error(err))
	}
	return agentpkg.NewRulePlanner(logger)
}

func buildAuthorizer(cfg *config.Config, logger *zap.Logger) google.Authorizer {
	auth, err := google.NewOAuthAuthorizer(
		cfg.Google.OAuthClientID,
		cfg.Google.OAuthClientSecret,
		cfg.Google.OAuthRedirectURL,
		logger,
	)
	if err != nil {
		logger.Warn("oauth is not configured, /connect will be unavailable", zap.Error(err))
		return unconfiguredAuthorizer{}
	}
	return auth
}

// unconfiguredAuthorizer stands in when no OAuth client is configured
type unconfiguredAuthorizer struct{}

func (unconfiguredAuthorizer) BeginAuth(string) (string, error) {
	return "", fmt.Errorf("calendar linking is not configured on this deployment")
}

func (unconfiguredAuthorizer) CompleteAuth(context.Context, string, string) error {
	return fmt.Errorf("calendar linking is not configured on this deployment")
}

func (unconfiguredAuthorizer) TokenSource(context.Context, string) (oauth2.TokenSource, error) {
	return nil, fmt.Errorf("calendar linking is not configured on this deployment")
}

func (unconfiguredAuthorizer) Revoke(string) error { return nil }
