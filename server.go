package main

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mutchinick/ai-workflow-architect-sub001/domain"
)

type latestKeyReader interface {
	LatestObjectKey(ctx context.Context, workflowID string) (string, error)
}

// registerRoutes wires the worker's HTTP surface: a health probe and a
// read-only workflow status endpoint backed by the snapshot store.
func registerRoutes(e *echo.Echo, snapshots domain.SnapshotReader, latest latestKeyReader) {
	e.GET("/healthz", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	e.GET("/api/workflows/:id", func(c echo.Context) error {
		ctx := c.Request().Context()
		workflowID := c.Param("id")
		if workflowID == "" {
			return c.String(http.StatusBadRequest, "workflow id is required")
		}
		objectKey, err := latest.LatestObjectKey(ctx, workflowID)
		if err != nil {
			if domain.IsKind(err, domain.ErrSnapshotNotFound) {
				return c.String(http.StatusNotFound, "workflow not found")
			}
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, "internal error")
		}
		wf, err := snapshots.ReadSnapshot(ctx, objectKey)
		if err != nil {
			switch domain.KindOf(err) {
			case domain.ErrSnapshotNotFound:
				return c.String(http.StatusNotFound, "workflow snapshot not found")
			case domain.ErrSnapshotCorrupted:
				return c.String(http.StatusUnprocessableEntity, "workflow snapshot unreadable")
			default:
				c.Logger().Error(err)
				return c.String(http.StatusInternalServerError, "internal error")
			}
		}
		return c.JSON(http.StatusOK, wf)
	})
}
