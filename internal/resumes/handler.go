package resumes

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"cvpro-backend/internal/shared/server/middleware"
	"cvpro-backend/internal/shared/server/respond"
	"cvpro-backend/internal/shared/storage/blob"
)

const defaultMaxUpload = 10 << 20 // 10MB

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc            *Service
	MaxUploadBytes int64
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, maxUploadBytes int64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = defaultMaxUpload
	}
	return &Handler{Svc: svc, MaxUploadBytes: maxUploadBytes}
}

// RegisterRoutes attaches resume routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/create/", h.create)
	rg.GET("/retrieve/", h.retrieve)
	rg.PUT("/update/:id/", h.update)
	rg.DELETE("/delete/:id/", h.delete)
	rg.GET("/image/:image_id/", h.image)
}

func (h *Handler) limitBody(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadBytes)
}

// formImage returns the optional "image" file. A missing file is not an
// error.
func formImage(c *gin.Context) (*multipart.FileHeader, error) {
	fh, err := c.FormFile("image")
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return nil, err
		}
		return nil, nil
	}
	return fh, nil
}

func openImage(fh *multipart.FileHeader) (*Image, io.Closer, error) {
	if fh == nil {
		return nil, nil, nil
	}
	f, err := fh.Open()
	if err != nil {
		return nil, nil, err
	}
	return &Image{Filename: fh.Filename, Body: f}, f, nil
}

func (h *Handler) create(c *gin.Context) {
	h.limitBody(c)

	fh, err := formImage(c)
	if err != nil {
		respond.Error(c, http.StatusRequestEntityTooLarge, "too_large", "File too large")
		return
	}
	img, closer, err := openImage(fh)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read image")
		return
	}
	if closer != nil {
		defer closer.Close()
	}

	userID := c.PostForm("user_id")
	if userID == "" {
		userID = middleware.UserIDFromContext(c)
	}
	email := c.PostForm("email")
	if email == "" {
		email = middleware.UserEmailFromContext(c)
	}

	res, err := h.Svc.Create(c.Request.Context(), CreateInput{
		UserID:     userID,
		Email:      email,
		ResumeData: c.PostForm("resumeData"),
		Image:      img,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidJSON):
			respond.Error(c, http.StatusBadRequest, "validation_error", "Invalid JSON format in resumeData")
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", err.Error())
		}
		return
	}

	c.Set(middleware.ResumeIDKey, res.ID)
	respond.JSON(c, http.StatusCreated, gin.H{
		"message":   "Resume saved successfully",
		"resume_id": res.ID,
	})
}

func (h *Handler) retrieve(c *gin.Context) {
	ctx := c.Request.Context()
	email := strings.TrimSpace(c.Query("email"))
	id := strings.TrimSpace(c.Query("id"))
	userID := strings.TrimSpace(c.Query("user_id"))

	switch {
	case id != "":
		c.Set(middleware.ResumeIDKey, id)
		res, err := h.Svc.Get(ctx, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				respond.Error(c, http.StatusNotFound, "not_found", "Resume not found")
				return
			}
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch resume")
			return
		}
		respond.JSON(c, http.StatusOK, ToView(res))
	case userID != "":
		list, err := h.Svc.ListByUser(ctx, userID)
		if err != nil {
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list resumes")
			return
		}
		respond.JSON(c, http.StatusOK, ToViews(list))
	case email != "":
		list, err := h.Svc.ListByEmail(ctx, email)
		if err != nil {
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list resumes")
			return
		}
		respond.JSON(c, http.StatusOK, ToViews(list))
	default:
		respond.Error(c, http.StatusBadRequest, "validation_error", "Please provide email, user ID, or resume ID")
	}
}

func (h *Handler) update(c *gin.Context) {
	id := c.Param("id")
	c.Set(middleware.ResumeIDKey, id)
	h.limitBody(c)

	fh, err := formImage(c)
	if err != nil {
		respond.Error(c, http.StatusRequestEntityTooLarge, "too_large", "File too large")
		return
	}
	img, closer, err := openImage(fh)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read image")
		return
	}
	if closer != nil {
		defer closer.Close()
	}

	var in UpdateInput
	if v, ok := c.GetPostForm("title"); ok {
		in.Title = &v
	}
	if v, ok := c.GetPostForm("user_id"); ok {
		in.UserID = &v
	}
	if v, ok := c.GetPostForm("resumeData"); ok {
		in.ResumeData = &v
	}
	in.Image = img

	if _, err := h.Svc.Update(c.Request.Context(), id, in); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "Resume not found")
		case errors.Is(err, ErrInvalidJSON):
			respond.Error(c, http.StatusBadRequest, "validation_error", "Invalid JSON format in resumeData")
		case errors.Is(err, ErrNoFields):
			respond.Error(c, http.StatusBadRequest, "validation_error", "No valid fields provided to update")
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", err.Error())
		}
		return
	}

	respond.JSON(c, http.StatusOK, gin.H{"message": "Resume updated successfully"})
}

func (h *Handler) delete(c *gin.Context) {
	id := c.Param("id")
	c.Set(middleware.ResumeIDKey, id)

	if err := h.Svc.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "Resume not found")
			return
		}
		respond.Error(c, http.StatusBadRequest, "delete_failed", "Failed to delete resume")
		return
	}
	respond.JSON(c, http.StatusOK, gin.H{"message": "Resume deleted successfully"})
}

func (h *Handler) image(c *gin.Context) {
	b, err := h.Svc.Image(c.Request.Context(), c.Param("image_id"))
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "Image not found")
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "Error loading image: "+err.Error())
		return
	}
	defer b.Body.Close()

	contentType := b.ContentType
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = "image/png"
	}
	headers := map[string]string{
		"Content-Disposition": `inline; filename=` + strconv.Quote(b.Filename),
	}
	c.DataFromReader(http.StatusOK, b.Size, contentType, b.Body, headers)
}
