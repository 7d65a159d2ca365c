package server

import (
	"net/http"

	"github.com/OFFIS-RIT/kgimport/internal/server/middleware"
	"github.com/OFFIS-RIT/kgimport/internal/server/routes"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo) {
	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	})

	apiRoutes := e.Group("/api", middleware.AuthMiddleware)

	apiRoutes.POST("/imports", routes.CreateImportHandler, middleware.RequirePermission(middleware.PermissionImportCreate))
	apiRoutes.GET("/imports/:id", routes.GetImportHandler, middleware.RequirePermission(middleware.PermissionImportView))
}
