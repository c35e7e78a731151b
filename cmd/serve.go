package cmd

import (
	"context"
	"database/sql"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/amtech-gn/ms-go-orangemoney/app/cart"
	"github.com/amtech-gn/ms-go-orangemoney/app/controller"
	"github.com/amtech-gn/ms-go-orangemoney/app/gateway"
	"github.com/amtech-gn/ms-go-orangemoney/app/repository"
	"github.com/amtech-gn/ms-go-orangemoney/app/service"
	"github.com/amtech-gn/ms-go-orangemoney/app/types"
	"github.com/amtech-gn/ms-go-orangemoney/config"

	_ "github.com/go-sql-driver/mysql"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  "Start the HTTP (Echo) server exposing the order, checkout, and IPN endpoints.",
	Run:   runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) {
	cfg, orderService, cleanup := mustCreateOrderService()
	defer cleanup()

	orderController := controller.NewOrderController(orderService)

	e := setupHTTPServer(orderController, cfg.App.APIKey)

	go func() {
		httpAddr := net.JoinHostPort(cfg.HTTP.Host, cfg.HTTP.Port)
		logrus.WithField("addr", httpAddr).Info("Starting HTTP server")
		if err := e.Start(httpAddr); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("HTTP shutdown error")
	}

	logrus.Info("Server stopped")
}

func setupHTTPServer(orderController *controller.OrderController, appAPIKey string) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogRemoteIP:  true,
		LogLatency:   true,
		LogUserAgent: true,
		LogError:     true,
		HandleError:  true,
		LogRequestID: true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			fields := logrus.Fields{
				"remote_ip":  v.RemoteIP,
				"host":       v.Host,
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency":    v.Latency.String(),
				"latency_ns": v.Latency.Nanoseconds(),
				"user_agent": v.UserAgent,
			}
			entry := logrus.WithFields(fields)
			if v.Error != nil {
				entry = entry.WithError(v.Error)
			}
			entry.Info("http_request")
			return nil
		},
	}))
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())

	e.GET("/health", orderController.Health)
	e.GET("/metrics", func(ctx echo.Context) error {
		metrics.WritePrometheus(ctx.Response().Writer, true)
		return nil
	})

	orders := e.Group("/orders", requireAPIKey(appAPIKey))
	orders.POST("", orderController.CreateOrder)
	orders.GET("/:id", orderController.GetOrder)
	orders.POST("/:id/pay", orderController.InitiateCheckout)
	orders.POST("/:id/cancel", orderController.CancelOrder)

	// The IPN endpoint stays outside the API-key group: the provider
	// authenticates with the per-order token and the body signature.
	e.POST("/ipn/orange-money/:token", orderController.HandleIPN)

	return e
}

func requireAPIKey(appAPIKey string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if appAPIKey == "" {
				return next(ctx)
			}
			provided := strings.TrimSpace(ctx.Request().Header.Get("X-API-Key"))
			if provided != appAPIKey {
				return ctx.JSON(http.StatusUnauthorized, &types.ErrorResponse{Error: "invalid api key"})
			}
			return next(ctx)
		}
	}
}

func mustCreateOrderService() (*config.Config, *service.OrderService, func()) {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if err := configureLogging(cfg); err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}

	db, err := sql.Open("mysql", cfg.MySQL.DSN)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}

	db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		logrus.WithError(err).Fatal("Failed to ping database")
	}

	redisClient, err := cart.NewRedisClient(cfg.Redis.URL)
	if err != nil {
		_ = db.Close()
		logrus.WithError(err).Fatal("Failed to configure redis")
	}
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		logrus.WithError(err).Warn("Redis ping failed; cart clearing may be degraded")
	}

	orderRepo := repository.NewOrderRepository(db)
	eventRepo := repository.NewOrderEventRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	orangeMoney := gateway.NewOrangeMoneyGateway(gateway.OrangeMoneyConfig{
		Enabled:             cfg.OrangeMoney.Enabled,
		Title:               cfg.OrangeMoney.Title,
		Description:         cfg.OrangeMoney.Description,
		APIKey:              cfg.OrangeMoney.APIKey,
		APISecret:           cfg.OrangeMoney.APISecret,
		Sandbox:             cfg.OrangeMoney.Sandbox,
		LiveEndpoint:        cfg.OrangeMoney.LiveEndpoint,
		SandboxEndpoint:     cfg.OrangeMoney.SandboxEndpoint,
		HTTPTimeout:         cfg.OrangeMoney.HTTPTimeout,
		BreakerMaxFailures:  cfg.OrangeMoney.BreakerMaxFailures,
		BreakerOpenInterval: cfg.OrangeMoney.BreakerOpenInterval,
	})

	gatewayRegistry := gateway.NewRegistry(orangeMoney)
	orderService := service.NewOrderService(
		orderRepo,
		eventRepo,
		notificationRepo,
		gatewayRegistry,
		cart.NewRedisStore(redisClient),
		cfg.Orders,
		cfg.OrangeMoney.IPNBaseURL,
	)

	cleanup := func() {
		if err := redisClient.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close redis client")
		}
		if err := db.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close database")
		}
	}

	return cfg, orderService, cleanup
}
