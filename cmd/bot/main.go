package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/craftline/shopbot/internal/di"
	"github.com/craftline/shopbot/internal/handlers"
	"github.com/craftline/shopbot/internal/platform/config"
	"github.com/craftline/shopbot/internal/platform/events"
	pfirestore "github.com/craftline/shopbot/internal/platform/firestore"
	"github.com/craftline/shopbot/internal/platform/media"
	"github.com/craftline/shopbot/internal/platform/observability"
	"github.com/craftline/shopbot/internal/platform/secrets"
	"github.com/craftline/shopbot/internal/platform/sink"
	firestoreRepo "github.com/craftline/shopbot/internal/repositories/firestore"
	"github.com/craftline/shopbot/internal/services"
)

func main() {
	ctx := context.Background()

	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("bot")
	ctx = observability.WithLogger(ctx, logger)

	envValues, err := config.EnvironmentValues()
	if err != nil {
		logger.Fatal("failed to read environment values", zap.Error(err))
	}

	fetcher, err := newSecretFetcher(ctx, logger, envValues)
	if err != nil {
		logger.Fatal("failed to initialise secret fetcher", zap.Error(err))
	}
	defer func() {
		if err := fetcher.Close(); err != nil {
			logger.Warn("secret fetcher close error", zap.Error(err))
		}
	}()

	cfg, err := config.Load(ctx,
		config.WithSecretResolver(config.SecretResolverFunc(fetcher.ResolveSecret)),
		config.WithRequiredSecrets("Bot.SinkToken"),
	)
	if err != nil {
		var missing *config.MissingSecretsError
		if errors.As(err, &missing) {
			logger.Fatal("missing required secrets", zap.Strings("secrets", missing.RedactedNames()))
		}
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	if strings.TrimSpace(cfg.Bot.SinkEndpoint) == "" {
		logger.Fatal("sink endpoint is required")
	}

	firestoreProvider := pfirestore.NewProvider(cfg.Firestore)
	firestoreClient, err := firestoreProvider.Client(ctx)
	if err != nil {
		logger.Fatal("failed to initialise firestore client", zap.Error(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := firestoreProvider.Close(closeCtx); err != nil {
			logger.Warn("firestore close error", zap.Error(err))
		}
	}()

	registry, err := firestoreRepo.NewRegistry(firestoreProvider, firestoreRepo.WithSessionTTL(cfg.Bot.SessionTTL))
	if err != nil {
		logger.Fatal("failed to initialise repositories", zap.Error(err))
	}

	publisher, pubsubClient, err := newEventPublisher(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to initialise event publisher", zap.Error(err))
	}
	if publisher == nil {
		logger.Warn("pubsub project not configured; domain events are disabled")
	}
	defer func() {
		if pubsubClient != nil {
			if err := pubsubClient.Close(); err != nil {
				logger.Warn("pubsub close error", zap.Error(err))
			}
		}
	}()

	mediaResolver, err := newMediaResolver(cfg, envValues)
	if err != nil {
		logger.Fatal("failed to initialise media resolver", zap.Error(err))
	}
	if mediaResolver == nil {
		logger.Warn("media bucket or signer not configured; product media is disabled")
	}

	viewSink, err := sink.NewHTTPSink(cfg.Bot.SinkEndpoint, cfg.Bot.SinkToken, sink.Options{})
	if err != nil {
		logger.Fatal("failed to initialise view sink", zap.Error(err))
	}

	container, err := di.NewContainer(ctx, cfg, di.Dependencies{
		Registry: registry,
		Events:   publisher,
		Media:    mediaResolver,
		Sink:     viewSink,
		Logger:   logger,
	})
	if err != nil {
		logger.Fatal("failed to assemble container", zap.Error(err))
	}

	eventOpts := []handlers.EventHandlerOption{
		handlers.WithEventRateLimit(cfg.RateLimits.PerUserPerMinute, time.Now),
	}
	if cfg.Bot.WebhookSecret != "" {
		eventOpts = append(eventOpts, handlers.WithWebhookSecret(cfg.Bot.WebhookSecret))
	} else {
		logger.Warn("webhook secret not configured; the event endpoint is open")
	}
	eventHandlers := handlers.NewEventHandlers(container.Engine, eventOpts...)
	orderHandlers := handlers.NewOrderHandlers(container.Services.Orders, container.Services.Catalog)

	middlewares := []func(http.Handler) http.Handler{
		observability.InjectLoggerMiddleware(logger.Named("http")),
		observability.TraceMiddleware(),
		observability.RecoveryMiddleware(logger.Named("http")),
		observability.RequestLoggerMiddleware(),
	}

	router := handlers.NewRouter(
		handlers.WithMiddlewares(middlewares...),
		handlers.WithHealthHandlers(handlers.NewHealthHandlers(firestoreReadyCheck(firestoreClient))),
		handlers.WithEventRoutes(eventHandlers.Routes),
		handlers.WithOrderRoutes(orderHandlers.Routes),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("shopbot listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}

	if err := container.Close(shutdownCtx); err != nil {
		logger.Warn("container close error", zap.Error(err))
	}
}

func newSecretFetcher(ctx context.Context, logger *zap.Logger, env map[string]string) (*secrets.Fetcher, error) {
	lookup := func(key string) string {
		if env == nil {
			return ""
		}
		return strings.TrimSpace(env[key])
	}

	defaultProject := lookup("BOT_SECRETS_PROJECT_ID")
	if defaultProject == "" {
		defaultProject = lookup("BOT_FIRESTORE_PROJECT_ID")
	}
	fallbackPath := lookup("BOT_SECRETS_FALLBACK_FILE")
	if fallbackPath == "" {
		fallbackPath = ".secrets.local"
	}
	credentialsFile := lookup("BOT_SECRETS_CREDENTIALS_FILE")

	opts := []secrets.Option{
		secrets.WithLogger(logger.Named("secrets")),
		secrets.WithFallbackPath(fallbackPath),
	}
	if defaultProject != "" {
		opts = append(opts, secrets.WithDefaultProject(defaultProject))
	}
	if credentialsFile != "" {
		opts = append(opts, secrets.WithClientOptions(option.WithCredentialsFile(credentialsFile)))
	}

	return secrets.NewFetcher(ctx, opts...)
}

func newEventPublisher(ctx context.Context, cfg config.Config) (events.Publisher, *pubsub.Client, error) {
	projectID := strings.TrimSpace(cfg.PubSub.ProjectID)
	if projectID == "" {
		return nil, nil, nil
	}
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, nil, fmt.Errorf("pubsub client: %w", err)
	}
	publisher, err := events.NewPubSubPublisher(client.Topic(cfg.PubSub.EventsTopic))
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	return publisher, client, nil
}

func newMediaResolver(cfg config.Config, env map[string]string) (services.MediaURLResolver, error) {
	bucket := strings.TrimSpace(cfg.Media.Bucket)
	keyFile := ""
	if env != nil {
		keyFile = strings.TrimSpace(env["BOT_MEDIA_SIGNER_KEY_FILE"])
	}
	if bucket == "" || keyFile == "" {
		return nil, nil
	}
	signer, err := media.NewServiceAccountSignerFromFile(keyFile)
	if err != nil {
		return nil, fmt.Errorf("media signer: %w", err)
	}
	return media.NewResolver(signer, bucket, media.WithURLTTL(cfg.Media.URLTTL))
}

func firestoreReadyCheck(client *firestore.Client) func() bool {
	if client == nil {
		return func() bool { return false }
	}
	return func() bool {
		ctx, cancel := context.WithTimeout(context.Background(), 1500*time.Millisecond)
		defer cancel()
		iter := client.Collections(ctx)
		_, err := iter.Next()
		return err == nil || errors.Is(err, iterator.Done)
	}
}
