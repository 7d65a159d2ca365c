package middleware

import (
	"context"

	"github.com/OFFIS-RIT/kgimport/internal/queue"
	"github.com/OFFIS-RIT/kgimport/internal/storage"
	graphstorage "github.com/OFFIS-RIT/kgimport/pkg/store/pgx"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// ImportStore is the import bookkeeping used by the API.
// *graphstorage.ImportStorage implements it.
type ImportStore interface {
	CreateImport(ctx context.Context, id, filePath string) error
	SetImportStatus(ctx context.Context, id, status, errMsg string) error
	GetImport(ctx context.Context, id string) (*graphstorage.Import, error)
}

type AppUser struct {
	ID          string
	Role        string
	Permissions []string
}

// App holds the shared dependencies of all handlers.
//
// KeyFunc verifies bearer JWTs; nil disables JWT auth. APIKey grants every
// permission; empty disables it.
type App struct {
	Imports ImportStore
	Queue   queue.Publisher
	S3      storage.ObjectStore
	Bucket  string
	KeyFunc jwt.Keyfunc
	APIKey  string
}

type AppContext struct {
	echo.Context
	App  *App
	User *AppUser
}

// AppContextMiddleware makes app available to handlers through AppContext.
func AppContextMiddleware(app *App) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			return next(&AppContext{Context: c, App: app})
		}
	}
}
