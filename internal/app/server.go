// Package app builds the fiber applications shared by both back-offices:
// middleware chain, health and metrics endpoints, graceful serving.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"

	"github.com/ksInsandji/pensezy-edition/internal/httpx"
	"github.com/ksInsandji/pensezy-edition/internal/logging"
	"github.com/ksInsandji/pensezy-edition/internal/metrics"
	"github.com/ksInsandji/pensezy-edition/internal/observability"
)

type Pinger interface {
	PingContext(ctx context.Context) error
}

type Options struct {
	Name         string // "marketplace" or "memoires", used as the metrics label
	Log          *zap.Logger
	DB           Pinger
	AllowOrigins string
	BodyLimit    int
}

// New returns a fiber app with the common middleware and /healthz, /metrics mounted.
// Order: requestid, compress, cors, metrics, request log, recover. Recover sits innermost so a
// panic is rendered, logged and counted like any other 500.
func New(o Options) *fiber.App {
	if o.BodyLimit == 0 {
		o.BodyLimit = 25 << 20
	}
	if o.AllowOrigins == "" {
		o.AllowOrigins = "*"
	}
	app := fiber.New(fiber.Config{
		AppName:               "pensezy-" + o.Name,
		JSONEncoder:           sonic.Marshal,
		JSONDecoder:           sonic.Unmarshal,
		DisableStartupMessage: true,
		BodyLimit:             o.BodyLimit,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          60 * time.Second,
		ErrorHandler:          httpx.ErrorHandler(o.Log),
	})

	app.Use(requestid.New())
	app.Use(compress.New(compress.Config{Level: compress.LevelDefault}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: o.AllowOrigins,
		AllowMethods: "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	app.Use(Metrics(o.Name))
	app.Use(logging.RequestLogger(o.Log))
	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c *fiber.Ctx, e any) {
			observability.CaptureCtx(c.UserContext(), fmt.Errorf("panic %s %s: %v", c.Method(), c.Path(), e))
		},
	}))

	app.Get("/healthz", Health(o.DB))
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))
	return app
}

// Metrics records request count and latency labelled by route pattern.
func Metrics(name string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		route := c.Route().Path
		if route == "" || (route == "/" && c.Path() != "/") {
			route = "unmatched"
		}
		metrics.ObserveRequest(name, route, c.Response().StatusCode(), time.Since(start))
		return err
	}
}

func Health(db Pinger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 800*time.Millisecond)
		defer cancel()
		t0 := time.Now()
		if err := db.PingContext(ctx); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).SendString("db not ok: " + err.Error())
		}
		metrics.ObserveDBPing(time.Since(t0))
		return c.SendString("ok")
	}
}

// Serve listens on addr until ctx is cancelled, then shuts down within 5s.
func Serve(ctx context.Context, app *fiber.App, addr string, log *zap.Logger) error {
	errc := make(chan error, 1)
	go func() {
		log.Info("http listening", zap.String("addr", addr))
		errc <- app.Listen(addr)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	if err := app.ShutdownWithTimeout(5 * time.Second); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errc
}
