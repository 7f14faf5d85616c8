package fiber

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"

	"github.com/lborres/tala/core"
	"github.com/lborres/tala/internal/logging"
	"github.com/lborres/tala/pkg/errutil"
)

type AppConfig struct {
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// AccessLog enables the fiber request logger
	AccessLog bool
	Logger    *slog.Logger
}

// NewApp builds a fiber app with panic recovery and a JSON error handler
func NewApp(cfg AppConfig) *fiber.App {
	log := logging.OrDefault(cfg.Logger)

	app := fiber.New(fiber.Config{
		AppName:      "tala",
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		ErrorHandler: func(c fiber.Ctx, err error) error {
			var fe *fiber.Error
			if errors.As(err, &fe) && fe.Code < http.StatusInternalServerError {
				return c.Status(fe.Code).JSON(core.ErrorResponse{Error: fe.Message})
			}
			errutil.LogError(log, "unhandled request error", err)
			return c.Status(http.StatusInternalServerError).JSON(core.ErrorResponse{Error: msgInternal})
		},
	})

	app.Use(recover.New())
	if cfg.AccessLog {
		app.Use(logger.New(logger.Config{
			Format:     "${time}|${status}|${latency}|${ip}|${method}|${path}|${error}\n",
			TimeFormat: "2006/01/02 15:04:05",
		}))
	}

	return app
}
