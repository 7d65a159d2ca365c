package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/OFFIS-RIT/kgimport/internal/queue"
	"github.com/OFFIS-RIT/kgimport/internal/server/middleware"
	"github.com/OFFIS-RIT/kgimport/internal/storage"
	"github.com/OFFIS-RIT/kgimport/internal/util"
	"github.com/OFFIS-RIT/kgimport/pkg/logger"
	graphstorage "github.com/OFFIS-RIT/kgimport/pkg/store/pgx"

	"github.com/labstack/echo/v4"
)

type createImportResponse struct {
	Message  string `json:"message"`
	ImportID string `json:"import_id,omitempty"`
	Status   string `json:"status,omitempty"`
}

// CreateImportHandler stores the posted text, registers the import and
// queues it for the worker.
func CreateImportHandler(c echo.Context) error {
	type createImportBody struct {
		FilePath string `json:"file_path" validate:"required,max=1024"`
		Text     string `json:"text" validate:"required"`
	}

	data := new(createImportBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, createImportResponse{Message: "Invalid request body"})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, createImportResponse{Message: "Invalid request body"})
	}

	app := c.(*middleware.AppContext).App
	ctx := c.Request().Context()

	id := util.NewID()
	key := storage.DocumentKey(id, data.FilePath)
	if err := storage.PutText(ctx, app.S3, app.Bucket, key, data.Text); err != nil {
		logger.Error("[Server] Failed to store import text", "import", id, "err", err)
		return c.JSON(http.StatusInternalServerError, createImportResponse{Message: "Internal server error"})
	}

	if err := app.Imports.CreateImport(ctx, id, data.FilePath); err != nil {
		logger.Error("[Server] Failed to create import", "import", id, "err", err)
		removeDocument(app, key)
		return c.JSON(http.StatusInternalServerError, createImportResponse{Message: "Internal server error"})
	}

	msg, err := json.Marshal(queue.ImportMsg{ImportID: id, FileKey: key, FilePath: data.FilePath})
	if err == nil {
		err = queue.PublishFIFO(app.Queue, queue.ImportQueue, msg)
	}
	if err != nil {
		logger.Error("[Server] Failed to enqueue import", "import", id, "err", err)
		if statusErr := app.Imports.SetImportStatus(ctx, id, graphstorage.StatusFailed, "failed to enqueue import"); statusErr != nil {
			logger.Warn("[Server] Failed to mark import as failed", "import", id, "err", statusErr)
		}
		removeDocument(app, key)
		return c.JSON(http.StatusInternalServerError, createImportResponse{Message: "Internal server error"})
	}

	logger.Info("[Server] Import queued", "import", id, "file", data.FilePath, "length", len(data.Text))
	return c.JSON(http.StatusAccepted, createImportResponse{
		Message:  "Import queued",
		ImportID: id,
		Status:   graphstorage.StatusPending,
	})
}

func removeDocument(app *middleware.App, key string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := storage.DeleteFile(ctx, app.S3, app.Bucket, key); err != nil {
		logger.Warn("[Server] Failed to remove import text", "key", key, "err", err)
	}
}
