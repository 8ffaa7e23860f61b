package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"sync"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"climatedash/internal/config"
	apierrors "climatedash/internal/errors"
	"climatedash/internal/forecast"
	"climatedash/internal/infrastructure"
	customMiddleware "climatedash/internal/middleware"
	"climatedash/internal/operations"
	"climatedash/internal/services"
	handlers "climatedash/internal/transport/http"
	ws "climatedash/internal/websocket"
	"climatedash/pkg/contracts"
	"climatedash/pkg/contracts/domain"
	"climatedash/pkg/contracts/events"
)

// AppName is shown in logs and the version endpoint
const AppName = "Climate Change Analysis Dashboard"

// Options select what the application serves
type Options struct {
	// DemoOnly serves only the demo page
	DemoOnly bool
}

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Paths         *config.Paths
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.BusinessMetrics
	Router        *chi.Mux
	Server        *http.Server

	WebSocketHub *ws.Hub
	Dataset      *services.DatasetService
	Pipeline     *services.PipelineService
	Health       *services.HealthService
	FigureCache  *services.FigureCache
	Forecasts    *forecast.FileProvider

	opts     Options
	listener net.Listener
	ready    chan struct{}
	serveErr chan error

	watchCancel context.CancelFunc
	watchWG     sync.WaitGroup
}

// NewApplication wires configuration, telemetry, services and the router.
// A nil logger falls back to the global logger.
func NewApplication(cfg *config.Config, logger *slog.Logger, opts Options) (*Application, error) {
	if cfg == nil {
		var err error
		if cfg, err = config.Load(); err != nil {
			return nil, apierrors.NewConfigError("failed to load configuration", err)
		}
	}
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	paths, err := config.ResolvePaths(cfg.Paths, cfg.Pipeline)
	if err != nil {
		return nil, apierrors.NewConfigError("failed to resolve paths", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}
	paths.LogPathResolution(logger)

	providers, err := infrastructure.InitializeOTel(cfg.Telemetry, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	metrics, err := infrastructure.CreateBusinessMetrics(providers.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create business metrics: %w", err)
	}

	a := &Application{
		Config:        cfg,
		Paths:         paths,
		Logger:        logger,
		OTelProviders: providers,
		Metrics:       metrics,
		opts:          opts,
		ready:         make(chan struct{}),
		serveErr:      make(chan error, 1),
	}

	if err := a.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}
	a.setupRouter()
	a.createServer()

	return a, nil
}

// initializeServices builds the hub, dataset, pipeline and health services
func (a *Application) initializeServices() error {
	hub := ws.NewHub(a.Logger)
	hubMetrics, err := ws.NewMetrics(a.OTelProviders.Meter)
	if err != nil {
		return fmt.Errorf("failed to create websocket metrics: %w", err)
	}
	hub.SetMetrics(hubMetrics)
	a.WebSocketHub = hub

	a.Forecasts = forecast.NewFileProvider(a.Paths.ForecastsCSV, infrastructure.WithComponent(a.Logger, "forecast"))
	if err := a.Forecasts.Load(); err != nil {
		a.Logger.Warn("forecast file ignored", slog.String("error", err.Error()))
	}
	forecaster := forecast.Chain{
		a.Forecasts,
		forecast.NewLinearTrend(a.Config.Dashboard.ForecastHorizon, a.Config.Dashboard.ForecastZ),
	}

	a.Dataset = services.NewDatasetService(a.Paths.ProcessedCSV, forecaster, infrastructure.WithComponent(a.Logger, "dataset"))
	a.FigureCache = services.NewFigureCache(a.Config.Dashboard.CacheTTL)
	a.Dataset.OnReload(a.onDatasetReloaded)

	registry := operations.NewPipelineRegistry(a.Paths, a.Config.Pipeline, a.Metrics, a.Logger)
	manager := operations.NewManager(hub, registry, &operations.Config{Timeout: a.Config.Pipeline.Timeout})
	manager.SetLogger(a.Logger)
	manager.SetMetrics(a.Metrics)
	a.Pipeline = services.NewPipelineService(manager, a.Dataset, infrastructure.WithComponent(a.Logger, "pipeline_service"))

	a.Health = services.NewHealthService(a.Dataset, a.Pipeline, hub, infrastructure.WithComponent(a.Logger, "health"))
	return nil
}

// onDatasetReloaded invalidates rendered figures and tells the browsers
func (a *Application) onDatasetReloaded(ev events.DatasetReloaded) {
	ctx := context.Background()
	a.FigureCache.Flush()
	if err := a.Forecasts.Load(); err != nil {
		a.Logger.WarnContext(ctx, "forecast file ignored", slog.String("error", err.Error()))
	}
	infrastructure.RecordDatasetReload(ctx, a.Metrics, ev.Source)
	a.WebSocketHub.DatasetReloaded(ev)
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() {
	errorHandler := apierrors.NewErrorHandler(a.Logger, false)

	r := chi.NewRouter()
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)
	r.NotFound(errorHandler.NotFound)
	r.MethodNotAllowed(errorHandler.MethodNotAllowed)

	// The websocket route must not see middleware that wraps the ResponseWriter.
	if !a.opts.DemoOnly {
		wsHandler := handlers.NewWebSocketHandler(
			a.WebSocketHub,
			a.Config.Security.AllowedOrigins,
			a.Config.WebSocket.ReadBufferSize,
			a.Config.WebSocket.WriteBufferSize,
			a.Logger,
		)
		r.With(customMiddleware.Recoverer(a.Logger)).Get("/ws", wsHandler.ServeHTTP)
	}

	r.Group(func(r chi.Router) {
		r.Use(customMiddleware.NewOTelMiddleware(a.OTelProviders, a.Metrics).Handler)
		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.Recoverer(a.Logger))
		r.Use(customMiddleware.SecurityHeaders)
		if a.Config.Security.EnableCORS {
			r.Use(customMiddleware.CORS(customMiddleware.CORSConfig{
				AllowedOrigins: a.Config.Security.AllowedOrigins,
				Logger:         a.Logger,
			}))
		}
		if a.Config.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
			).Handler)
		}
		r.Use(customMiddleware.Compress(5))

		a.setupDashboardRoutes(r, errorHandler)
		a.setupAPIRoutes(r, errorHandler)
	})

	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	a.Router = r
}

// setupDashboardRoutes serves the pages and rendered charts
func (a *Application) setupDashboardRoutes(r chi.Router, errorHandler *apierrors.ErrorHandler) {
	dashboard := handlers.NewDashboardHandler(
		a.Dataset,
		a.FigureCache,
		a.Metrics,
		handlers.DashboardDefaults{
			Country: a.Config.Dashboard.DefaultCountry,
			Metric:  domain.Metric(a.Config.Dashboard.DefaultMetric),
		},
		a.Logger,
		errorHandler,
	)

	r.Group(func(r chi.Router) {
		r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout))
		if a.opts.DemoOnly {
			r.Get("/", dashboard.Demo)
		} else {
			r.Get("/", dashboard.Page)
			r.Get("/charts/{figure}.svg", dashboard.GetChart)
		}
		r.Get("/demo", dashboard.Demo)
		r.Get("/demo/chart.svg", dashboard.DemoChart)
	})

	if a.opts.DemoOnly {
		return
	}
	r.Group(func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout))
		r.Get("/api/options", dashboard.GetOptions)
		r.Get("/api/figures", dashboard.GetFigures)
	})
}

// setupAPIRoutes configures health, data and pipeline endpoints
func (a *Application) setupAPIRoutes(r chi.Router, errorHandler *apierrors.ErrorHandler) {
	health := handlers.NewHealthHandler(a.Health, a.Logger)
	r.Get("/api/health", health.HealthCheck)
	r.Get("/api/health/ready", health.ReadinessCheck)
	r.Get("/api/health/live", health.LivenessCheck)
	r.Get("/api/version", health.Version)

	if a.opts.DemoOnly {
		return
	}

	data := handlers.NewDataHandler(a.Paths, a.Logger, errorHandler)
	pipeline := handlers.NewPipelineHandler(a.Pipeline, a.Logger, errorHandler)
	r.Group(func(r chi.Router) {
		r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout))
		r.Get("/api/data/download/{name}", data.Download)
		r.Post("/api/pipeline/run", pipeline.Run)
		r.Get("/api/pipeline/status", pipeline.Status)
	})
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           a.Config.Server.Addr(),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// PrepareData loads the processed dataset, running the pipeline first when
// the file is missing and processIfMissing is set. A dataset that cannot be
// loaded is logged; the dashboard then shows an empty state.
func (a *Application) PrepareData(ctx context.Context, processIfMissing bool) {
	if processIfMissing && !config.FileExists(a.Paths.ProcessedCSV) {
		a.Logger.InfoContext(ctx, "processed data missing, running pipeline",
			slog.String("path", a.Paths.ProcessedCSV))
		if _, err := a.Pipeline.Run(ctx); err != nil {
			a.Logger.ErrorContext(ctx, "pipeline run failed", slog.String("error", err.Error()))
		}
		if a.Dataset.Loaded() {
			return
		}
	}

	if err := a.Dataset.Load(ctx); err != nil {
		a.Logger.WarnContext(ctx, "dashboard starts without data",
			slog.String("path", a.Paths.ProcessedCSV),
			slog.String("hint", "run `climatedash process` or POST /api/pipeline/run"))
	}
}

// Start starts the hub, the file watcher and the HTTP server. It returns
// once the listener is bound.
func (a *Application) Start(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("name", AppName),
		slog.String("version", contracts.Version),
		slog.String("addr", a.Server.Addr),
		slog.Bool("demo_only", a.opts.DemoOnly))

	ln, err := net.Listen("tcp", a.Server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.Server.Addr, err)
	}
	a.listener = ln
	close(a.ready)

	a.WebSocketHub.Start()

	if !a.opts.DemoOnly && a.Config.Dashboard.WatchFile {
		watchCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		a.watchCancel = cancel
		a.watchWG.Add(1)
		go func() {
			defer a.watchWG.Done()
			if err := a.Dataset.Watch(watchCtx, a.Config.Dashboard.WatchDebounce); err != nil {
				a.Logger.ErrorContext(watchCtx, "file watcher stopped", slog.String("error", err.Error()))
			}
		}()
	}

	go func() {
		if err := a.Server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			a.serveErr <- err
		}
	}()

	a.Logger.InfoContext(ctx, "Application started successfully",
		slog.String("url", a.URL()))
	return nil
}

// Ready is closed once the server is listening
func (a *Application) Ready() <-chan struct{} {
	return a.ready
}

// URL returns the base URL of the running server
func (a *Application) URL() string {
	addr := a.Server.Addr
	if a.listener != nil {
		addr = a.listener.Addr().String()
	}
	return "http://" + addr
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
	}

	if a.watchCancel != nil {
		a.watchCancel()
		a.watchWG.Wait()
	}
	a.Pipeline.Wait()
	a.WebSocketHub.Stop()

	if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
		a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return errors.Join(errs...)
}

// Run starts the application and blocks until SIGINT, SIGTERM, ctx
// cancellation or a server failure, then shuts down gracefully.
func (a *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := a.Start(ctx); err != nil {
		return err
	}

	var serveErr error
	select {
	case <-ctx.Done():
		a.Logger.InfoContext(ctx, "Received shutdown signal")
	case serveErr = <-a.serveErr:
	}

	if err := a.Stop(context.WithoutCancel(ctx)); err != nil {
		return errors.Join(serveErr, err)
	}
	return serveErr
}
