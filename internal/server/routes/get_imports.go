package routes

import (
	"errors"
	"net/http"

	"github.com/OFFIS-RIT/kgimport/internal/server/middleware"
	"github.com/OFFIS-RIT/kgimport/internal/util"
	"github.com/OFFIS-RIT/kgimport/pkg/logger"
	graphstorage "github.com/OFFIS-RIT/kgimport/pkg/store/pgx"

	"github.com/labstack/echo/v4"
)

// GetImportHandler returns the status and counters of one import.
func GetImportHandler(c echo.Context) error {
	id := c.Param("id")
	if !util.IsID(id) {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid import id"})
	}

	app := c.(*middleware.AppContext).App
	imp, err := app.Imports.GetImport(c.Request().Context(), id)
	if errors.Is(err, graphstorage.ErrImportNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"message": "Import not found"})
	}
	if err != nil {
		logger.Error("[Server] Failed to load import", "import", id, "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Internal server error"})
	}
	return c.JSON(http.StatusOK, imp)
}
