package ingest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"cvpro-backend/internal/shared/server/middleware"
	"cvpro-backend/internal/shared/server/respond"
)

// Handler exposes the ingestion pipeline over HTTP.
type Handler struct {
	Svc            *Service
	MaxUploadBytes int64
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, maxUploadBytes int64) *Handler {
	return &Handler{Svc: svc, MaxUploadBytes: maxUploadBytes}
}

// RegisterRoutes attaches the extraction route. Extra middleware (rate
// limiting, auth) runs before the handler.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, mw ...gin.HandlerFunc) {
	handlers := append(append([]gin.HandlerFunc{}, mw...), h.extract)
	rg.POST("/extract/", handlers...)
}

func (h *Handler) extract(c *gin.Context) {
	if h.MaxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadBytes)
	}

	var up *Upload
	fh, err := c.FormFile("file")
	switch {
	case err == nil:
		f, openErr := fh.Open()
		if openErr != nil {
			respond.Error(c, http.StatusBadRequest, string(KindBadRequest), MsgNoFile)
			return
		}
		defer f.Close()
		up = &Upload{Filename: fh.Filename, Body: f}
	case isTooLarge(err):
		respond.Error(c, http.StatusRequestEntityTooLarge, "too_large", "File too large")
		return
	}

	out, err := h.Svc.Ingest(c.Request.Context(), middleware.RequestIDFromContext(c), up)
	if err != nil {
		c.Set(middleware.IngestStateKey, string(StateFailed))
		var ierr *Error
		if errors.As(err, &ierr) {
			respond.Error(c, ierr.HTTPStatus(), string(ierr.Kind), ierr.Message)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}

	c.Set(middleware.IngestStateKey, string(StateDone))
	c.Data(http.StatusOK, "application/json; charset=utf-8", out)
}

func isTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}
