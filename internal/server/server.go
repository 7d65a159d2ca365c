// Package server is the HTTP API for submitting imports and reading their
// status.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/OFFIS-RIT/kgimport/internal/db"
	"github.com/OFFIS-RIT/kgimport/internal/queue"
	mid "github.com/OFFIS-RIT/kgimport/internal/server/middleware"
	"github.com/OFFIS-RIT/kgimport/internal/storage"
	"github.com/OFFIS-RIT/kgimport/internal/util"
	"github.com/OFFIS-RIT/kgimport/pkg/logger"
	graphstorage "github.com/OFFIS-RIT/kgimport/pkg/store/pgx"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i any) error {
	return cv.validator.Struct(i)
}

// New builds the echo instance with middlewares and routes for app.
func New(app *mid.App) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = &CustomValidator{validator: validator.New()}

	e.Use(mid.AppContextMiddleware(app))
	e.Use(middleware.CORS())
	e.Use(middleware.RequestLogger())
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit(util.GetEnvString("MAX_BODY_SIZE", "64M")))

	RegisterRoutes(e)
	return e
}

// Init connects to Postgres, RabbitMQ and S3 and serves the API on PORT
// until ctx is done.
func Init(ctx context.Context) error {
	databaseURL := util.GetEnv("DATABASE_URL")
	if err := db.Migrate(databaseURL); err != nil {
		return err
	}
	pool, err := db.Connect(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	conn, err := queue.Init(ctx, queue.URLFromEnv())
	if err != nil {
		return err
	}
	defer conn.Close()
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()
	if err := queue.SetupQueues(ch, queue.ImportQueue); err != nil {
		return err
	}

	s3Client, err := storage.NewS3Client(ctx)
	if err != nil {
		return err
	}

	app := &mid.App{
		Imports: graphstorage.NewImportStorage(pool),
		Queue:   ch,
		S3:      s3Client,
		Bucket:  storage.Bucket(),
		APIKey:  util.GetEnv("API_KEY"),
	}
	if authURL := util.GetEnv("AUTH_URL"); authURL != "" {
		k, err := keyfunc.NewDefault([]string{authURL + "/jwks"})
		if err != nil {
			return fmt.Errorf("failed to load jwks keys: %w", err)
		}
		app.KeyFunc = k.Keyfunc
	}
	if app.APIKey == "" && app.KeyFunc == nil {
		logger.Warn("[Server] Neither API_KEY nor AUTH_URL is set, all API requests will be rejected")
	}

	e := New(app)
	errCh := make(chan error, 1)
	go func() {
		port := util.GetEnvString("PORT", "8080")
		logger.Info("[Server] Starting server", "port", port)
		if err := e.Start(":" + port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("[Server] Failed to shutdown server", "err", err)
	}
	return nil
}
