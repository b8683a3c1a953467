package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"actionhub/docs/swagger"
	"actionhub/internal/actions"
	"actionhub/internal/api"
	"actionhub/internal/api/validator"
	"actionhub/internal/authz"
	"actionhub/internal/backend"
	"actionhub/internal/config"
	"actionhub/internal/events"
	"actionhub/internal/membership"
	"actionhub/internal/metrics"
	"actionhub/internal/notify"
	"actionhub/internal/notify/channels"
	"actionhub/internal/notify/ws"
	"actionhub/internal/services"
	"actionhub/internal/tasks"
	"actionhub/internal/tasks/rate"
	"actionhub/internal/utils/logger"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
)

// 🚀 Main function
// @title Actions API
// @version 1.0
// @description Unified action execution endpoint with notification fan-out.
// @BasePath /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {

	console := logger.New("actionhub")

	// check if .env file exists
	if _, err := os.Stat(".env"); os.IsNotExist(err) {
		console.Info("No .env file found, skipping environment variable loading")
	} else {
		console.Info("Loading environment variables from .env file")
		if err := godotenv.Load(); err != nil {
			log.Fatalf("Failed to load environment variables: %v", err)
		}
	}
	logger.SetLevel(logger.ParseLevel(os.Getenv("LOG_LEVEL")))

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Load the action catalogue
	catalog, err := actions.LoadCatalog(cfg.Actions.CatalogPath, authz.Builtins())
	if err != nil {
		log.Fatalf("Failed to load action catalogue: %v", err)
	}
	registry := actions.NewRegistry()
	if err := catalog.RegisterInto(registry); err != nil {
		log.Fatalf("Failed to register actions: %v", err)
	}
	for _, a := range catalog.Actions {
		if err := validator.CheckSchema(a.Params); err != nil {
			log.Fatalf("Action %s has an invalid schema: %v", a.Key, err)
		}
	}
	console.Success("Loaded %d actions from %s", registry.Len(), cfg.Actions.CatalogPath)

	client := backend.NewClient(cfg.Backend.URL, catalog.Operations, cfg.Backend.Timeout)
	if !client.HasOperation(cfg.Members.Operation) {
		log.Fatalf("Membership operation %q is not declared in %s", cfg.Members.Operation, cfg.Actions.CatalogPath)
	}
	if cfg.Backend.ServiceToken == "" {
		console.Warn("BACKEND_SERVICE_TOKEN not set, membership lookups run as the caller and are not cached")
	}

	// Redis backs the queue, the shared cache and the throttle
	var rdb *redis.Client
	if cfg.UsesRedis() {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Username: cfg.Redis.Username,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			console.Warn("Redis at %s is not reachable yet: %v", cfg.Redis.Addr, err)
		}
		cancel()
	}

	// Membership cache
	var (
		cache    membership.Cache
		memCache *membership.MemoryCache
	)
	switch cfg.Cache.Provider {
	case config.CacheProviderRedis:
		cache = membership.NewRedisCache(rdb, cfg.Cache.KeyPrefix, cfg.Cache.TTL)
	default:
		memCache = membership.NewMemoryCache(cfg.Cache.TTL)
		cache = memCache
	}
	resolver := membership.NewResolver(client, cache, cfg.Members.Operation, cfg.Members.ResultPath, cfg.Backend.ServiceToken)

	// Notification channels
	hub := ws.NewHub(func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || cfg.Server.OriginAllowed(origin)
	})
	senders := []channels.Sender{channels.NewSocket(hub)}
	if cfg.SMTP.Host != "" {
		mailer := channels.NewSMTPMailer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.From)
		senders = append(senders, channels.NewEmail(mailer))
	} else {
		console.Warn("SMTP_HOST not set, email notifications disabled")
	}
	if cfg.Telegram.BotToken != "" {
		senders = append(senders, channels.NewTelegram(cfg.Telegram.APIURL, cfg.Telegram.BotToken, 10*time.Second))
	} else {
		console.Warn("TELEGRAM_BOT_TOKEN not set, telegram notifications disabled")
	}
	if cfg.Push.GatewayURL != "" {
		senders = append(senders, channels.NewPush(cfg.Push.GatewayURL, cfg.Push.AccessKey, 10*time.Second))
	} else {
		console.Warn("PUSH_GATEWAY_URL not set, push notifications disabled")
	}

	orchestrator := notify.New(resolver, senders,
		notify.WithConcurrency(cfg.Notify.Concurrency),
		notify.WithDefaultLocale(cfg.Notify.DefaultLocale),
	)

	// Dispatch
	bus := events.NewEventBus()
	var (
		dispatcher *services.BusDispatcher
		taskClient *tasks.TaskClient
	)
	switch cfg.Notify.Mode {
	case config.NotifyModeQueue:
		taskClient = tasks.NewTaskClient(cfg.Redis.Addr, cfg.Redis.Username, cfg.Redis.Password, cfg.Redis.DB)
		dispatcher = services.NewQueueDispatcher(bus, taskClient)
	default:
		dispatcher = services.NewInlineDispatcher(bus, orchestrator)
	}
	console.Info("Notifications dispatched %s", cfg.Notify.Mode)

	// Task server and scheduler, whenever redis is around
	var (
		taskServer    *tasks.Server
		taskScheduler *tasks.Scheduler
		localCron     *cron.Cron
	)
	var sweeper tasks.Sweeper
	if memCache != nil {
		sweeper = memCache
	}
	if rdb != nil {
		redisOpt := tasks.RedisOpt(cfg.Redis.Addr, cfg.Redis.Username, cfg.Redis.Password, cfg.Redis.DB)

		taskServer = tasks.NewServer(redisOpt, cfg.Notify.Concurrency, tasks.NewTaskHandler(orchestrator, sweeper), console)
		if err := taskServer.Start(); err != nil {
			log.Fatalf("Task server error: %v", err)
		}

		taskScheduler = tasks.NewScheduler(redisOpt, console)
		if memCache != nil {
			if err := taskScheduler.RegisterMembershipSweep(cfg.Cache.SweepCron); err != nil {
				log.Fatalf("Failed to schedule membership sweep: %v", err)
			}
		}
		if err := taskScheduler.Start(); err != nil {
			console.Error("Task scheduler error", err)
		}
	} else if memCache != nil {
		// No redis: sweep in-process.
		if err := tasks.ValidateCron(cfg.Cache.SweepCron); err != nil {
			log.Fatalf("Invalid CACHE_SWEEP_CRON: %v", err)
		}
		localCron = cron.New()
		if _, err := localCron.AddFunc(cfg.Cache.SweepCron, func() {
			if n := memCache.Sweep(); n > 0 {
				metrics.CacheSwept.Add(float64(n))
			}
		}); err != nil {
			log.Fatalf("Failed to schedule membership sweep: %v", err)
		}
		localCron.Start()
	}
	if memCache != nil {
		if next, err := tasks.NextRun(cfg.Cache.SweepCron, time.Now()); err == nil {
			console.Info("Membership cache sweep %q, next at %s", cfg.Cache.SweepCron, next.Format(time.RFC3339))
		}
	}

	// Action service
	opts := []services.Option{services.WithTimeout(cfg.Actions.Timeout)}
	if cfg.Actions.Throttle {
		opts = append(opts, services.WithThrottle(rate.NewActionLimiter(rdb, "actionhub:")))
	}
	actionService := services.NewActionService(registry, client, authz.NewEngine(resolver), dispatcher, opts...)

	// Initialize API server
	apiServer := api.NewServer(cfg, api.Dependencies{Actions: actionService, Sockets: hub})
	go func() {
		// Swagger documentation
		swagger.SwaggerInfo.Title = "Actions API"
		swagger.SwaggerInfo.Description = "Unified action execution endpoint with notification fan-out."
		swagger.SwaggerInfo.Version = "1.0"
		swagger.SwaggerInfo.Host = ""

		console.Success("API server started")
		if err := apiServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			console.Error("API server error", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the servers
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	// Create a deadline for graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Shutdown API server
	if err := apiServer.Shutdown(ctx); err != nil {
		console.Error("Failed to shutdown API server", err)
	}

	// Let in-flight notifications finish
	drained := make(chan struct{})
	go func() {
		bus.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-ctx.Done():
		console.Warn("Gave up waiting for in-flight notifications")
	}

	if localCron != nil {
		<-localCron.Stop().Done()
	}
	if taskScheduler != nil {
		taskScheduler.Stop()
	}
	if taskServer != nil {
		taskServer.Shutdown()
	}
	if taskClient != nil {
		if err := taskClient.Close(); err != nil {
			console.Error("Failed to close task client", err)
		}
	}
	if rdb != nil {
		if err := rdb.Close(); err != nil {
			console.Error("Failed to close redis", err)
		}
	}

	console.Info("Servers shutdown gracefully")
}
