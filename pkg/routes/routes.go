// Package routes assembles the fx application: storage, services, the echo
// server and its route table.
package routes

import (
	"SmartNotice/internal/analytics"
	"SmartNotice/internal/approval"
	"SmartNotice/internal/auth"
	"SmartNotice/internal/config"
	"SmartNotice/internal/directory"
	"SmartNotice/internal/logging"
	"SmartNotice/internal/mailer"
	"SmartNotice/internal/notice"
	"SmartNotice/internal/reads"
	"SmartNotice/internal/realtime"
	"SmartNotice/pkg/middleware"
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Modules returns the whole application for cfg.
func Modules(cfg *config.Config) fx.Option {
	return fx.Options(
		fx.Supply(cfg),
		fx.Provide(logging.New),
		Storage(cfg),
		fx.Provide(
			directory.NewResolver,
			realtime.NewHub,
			func(h *realtime.Hub) realtime.Publisher { return h },
			realtime.NewNotifier,
			newPolicy,
			mailer.New,
			mailer.NewBackground,
			approval.NewEngine,
			func(e *approval.Engine) notice.ApprovalStarter { return e },
			analytics.NewBroadcaster,
			func(b *analytics.Broadcaster) notice.AnalyticsRefresher { return b },
			notice.NewService,
			reads.NewTracker,
			notice.NewHandler,
			approval.NewHandler,
			reads.NewHandler,
			realtime.NewHandler,
			NewEchoServer,
		),
		fx.Invoke(registerShutdown, analytics.Register, RegisterRoutes),
	)
}

// Storage binds the repositories to MongoDB or to process memory.
func Storage(cfg *config.Config) fx.Option {
	if cfg.StoreDriver == config.StoreMemory {
		return fx.Provide(
			fx.Annotate(notice.NewMemoryRepository, fx.As(new(notice.Repository))),
			fx.Annotate(approval.NewMemoryRepository, fx.As(new(approval.Repository))),
			fx.Annotate(approval.NewMemoryOTPStore, fx.As(new(approval.OTPStore))),
			fx.Annotate(directory.NewMemoryRepository, fx.As(new(directory.Repository))),
		)
	}
	return fx.Options(
		fx.Provide(
			config.NewMongoDatabase,
			fx.Annotate(notice.NewMongoRepository, fx.As(new(notice.Repository))),
			fx.Annotate(approval.NewMongoRepository, fx.As(new(approval.Repository))),
			fx.Annotate(approval.NewMongoOTPStore, fx.As(new(approval.OTPStore))),
			fx.Annotate(directory.NewMongoRepository, fx.As(new(directory.Repository))),
		),
		fx.Invoke(func(lc fx.Lifecycle, db *mongo.Database) {
			lc.Append(fx.Hook{OnStart: func(ctx context.Context) error {
				return config.EnsureIndexes(ctx, db)
			}})
		}),
	)
}

func newPolicy(cfg *config.Config) (auth.Policy, error) {
	return auth.NewAuthorizer(cfg.PrivilegedRoles)
}

// NewEchoServer builds the server and ties it to the fx lifecycle.
func NewEchoServer(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	log := logger.Named("server")
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := e.Start(cfg.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("failed to start the server", zap.Error(err))
				}
			}()
			log.Info("server listening", zap.String("addr", cfg.Addr()))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("shutting down the server")
			return e.Shutdown(ctx)
		},
	})
	return e
}

// registerShutdown closes websocket clients and drains queued mail. fx runs
// stop hooks in reverse, so these run after the server stops.
func registerShutdown(lc fx.Lifecycle, hub *realtime.Hub, bg *mailer.Background) {
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			hub.Close()
			bg.Wait()
			return nil
		},
	})
}

type Handlers struct {
	fx.In

	Notices   *notice.Handler
	Approvals *approval.Handler
	Reads     *reads.Handler
	Realtime  *realtime.Handler
	Policy    auth.Policy
	Config    *config.Config
	Logger    *zap.Logger
}

// otpLimiter limits OTP endpoints per caller. Each call returns a limiter
// with its own store.
func otpLimiter(perMinute int) echo.MiddlewareFunc {
	if perMinute <= 0 {
		perMinute = 5
	}
	return echomw.RateLimiterWithConfig(echomw.RateLimiterConfig{
		Store: echomw.NewRateLimiterMemoryStoreWithConfig(echomw.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(float64(perMinute) / 60),
			Burst:     perMinute,
			ExpiresIn: 3 * time.Minute,
		}),
		IdentifierExtractor: func(c echo.Context) (string, error) {
			if a, ok := auth.ActorFrom(c); ok {
				return a.ID, nil
			}
			return c.RealIP(), nil
		},
		DenyHandler: func(c echo.Context, _ string, _ error) error {
			return c.JSON(http.StatusTooManyRequests, echo.Map{"success": false, "error": "Too many OTP requests. Please wait a minute."})
		},
	})
}

func RegisterRoutes(e *echo.Echo, h Handlers) {
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})

	jwt := middleware.JWT(h.Config.JWTKey, h.Logger)
	e.GET("/ws/notices", h.Realtime.Serve, middleware.QueryToken, jwt)

	api := e.Group("/api", jwt)

	notices := api.Group("/notices")
	notices.GET("", h.Notices.List)
	notices.POST("", h.Notices.Create)
	notices.GET("/analytics", h.Notices.Totals, middleware.Require(h.Policy, auth.ObjAnalytics, auth.ActRead))
	notices.GET("/created-by/:user_id", h.Notices.ListByCreator)
	notices.GET("/:id", h.Notices.Get)
	notices.PUT("/:id", h.Notices.Update)
	notices.DELETE("/:id", h.Notices.Delete)
	notices.GET("/:id/analytics", h.Notices.Analytics)
	notices.POST("/:id/read", h.Reads.Record)
	notices.GET("/:id/reads", h.Reads.Report)
	notices.GET("/:id/my-reads", h.Reads.Mine)

	approvals := api.Group("/approvals")
	approvals.POST("/request", h.Approvals.Request)
	approvals.GET("/my", h.Approvals.My)
	approvals.POST("/send-otp", h.Approvals.SendOTP, otpLimiter(h.Config.OTPRatePerMinute))
	approvals.POST("/verify-otp", h.Approvals.VerifyOTP, otpLimiter(h.Config.OTPRatePerMinute))
	approvals.GET("/track/:notice_id", h.Approvals.Tracking)
	approvals.PUT("/track/:notice_id/settings", h.Approvals.UpdateSettings)
	approvals.POST("/track/:notice_id/publish", h.Approvals.Publish)
	approvals.POST("/:id/approve", h.Approvals.Approve)
	approvals.POST("/:id/reject", h.Approvals.Reject)
	approvals.POST("/:id/sign", h.Approvals.Sign)
}
