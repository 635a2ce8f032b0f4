package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"

	"github.com/LuisPExd/nasa-apps-challenge-1/internal/airquality"
	httpapi "github.com/LuisPExd/nasa-apps-challenge-1/internal/api/http"
	"github.com/LuisPExd/nasa-apps-challenge-1/internal/config"
	"github.com/LuisPExd/nasa-apps-challenge-1/internal/openaq"
	"github.com/LuisPExd/nasa-apps-challenge-1/internal/scheduler"
	"github.com/LuisPExd/nasa-apps-challenge-1/internal/store"
)

const (
	serviceName = "airquality-api"
	probeTarget = "openaq"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Shared HTTP client for upstream calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	// Upstream transport guarded by a circuit breaker.
	transport := openaq.NewHTTPTransport(httpClient, openaq.BreakerConfig{
		MaxRequests: cfg.BreakerMaxRequests,
		Timeout:     cfg.BreakerTimeout,
	})
	client := openaq.NewClient(transport, cfg.OpenAQBaseURL, cfg.OpenAQAPIKey)

	// Parameter catalog, loaded once. A failure leaves it empty.
	catalogCtx, cancelCatalog := context.WithTimeout(context.Background(), openaq.ListingTimeout)
	catalog := openaq.LoadCatalog(catalogCtx, client)
	cancelCatalog()

	service := airquality.NewService(client, catalog)

	// Upstream probe history with configured retention.
	probes := store.NewMemoryStore(cfg.ProbeMaxHistory, cfg.ProbeMaxAge)

	// Scheduler that periodically probes the upstream.
	sched := scheduler.New([]scheduler.Target{{
		Name:  probeTarget,
		Check: client.Ping,
		State: transport.State,
	}}, cfg.ProbeInterval, probes)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               serviceName,
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		// Paginated history requests can take several upstream round trips.
		WriteTimeout: 5 * time.Minute,
		ErrorHandler: httpapi.ErrorHandler,
	})

	// Global middleware
	app.Use(requestid.New(requestid.Config{
		Generator: uuid.NewString,
	}))
	app.Use(logger.New(logger.Config{
		Format: "${time} ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(recover.New())
	app.Use(cors.New())

	app.Get("/health", httpapi.Health(serviceName, probes, probeTarget))

	// API routes.
	httpapi.RegisterRoutes(app, service, probes, probeTarget)

	go func() {
		log.Printf("INFO: listening on :%s (upstream %s, %d catalog entries)", cfg.Port, client.BaseURL(), catalog.Len())
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}
