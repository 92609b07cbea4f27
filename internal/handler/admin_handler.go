package handler

import (
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/certilink/certilink-api/internal/dto"
	"github.com/certilink/certilink-api/internal/models"
	"github.com/certilink/certilink-api/internal/service"
	appErrors "github.com/certilink/certilink-api/pkg/errors"
	"github.com/certilink/certilink-api/pkg/response"
)

type documentOpener interface {
	Open(relPath string) (*os.File, error)
}

// AdminHandler wires the review endpoints: status transitions and stored
// document access.
type AdminHandler struct {
	service *service.InstitutionService
	files   documentOpener
}

// NewAdminHandler creates a new handler.
func NewAdminHandler(svc *service.InstitutionService, files documentOpener) *AdminHandler {
	return &AdminHandler{service: svc, files: files}
}

// SetStatus godoc
// @Summary Transition an institution's status
// @Description Move an institution to ACTIVE, REJECTED or SUSPENDED
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Institution ID"
// @Param payload body dto.SetStatusRequest true "Transition payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/institution/{id}/status [patch]
func (h *AdminHandler) SetStatus(c *gin.Context) {
	var req dto.SetStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid transition payload"))
		return
	}

	inst, err := h.service.SetStatus(c.Request.Context(), c.Param("id"), req.Status, req.Comments)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, inst, "institution status updated")
}

// Suspend godoc
// @Summary Suspend an institution
// @Description Shorthand for a SUSPENDED transition
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Institution ID"
// @Param payload body dto.SuspendRequest true "Suspension payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/institution/{id}/suspend [patch]
func (h *AdminHandler) Suspend(c *gin.Context) {
	var req dto.SuspendRequest
	if err := c.ShouldBindJSON(&req); err != nil && err != io.EOF {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid suspension payload"))
		return
	}

	inst, err := h.service.SetStatus(c.Request.Context(), c.Param("id"), string(models.InstitutionSuspended), req.Comments)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, inst, "institution suspended")
}

// ViewDocument godoc
// @Summary View a submitted document
// @Description Streams the document inline; external locators redirect
// @Tags Admin
// @Produce octet-stream
// @Param id path string true "Document ID"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Router /admin/document/{id}/view [get]
func (h *AdminHandler) ViewDocument(c *gin.Context) {
	h.streamDocument(c, "inline")
}

// DownloadDocument godoc
// @Summary Download a submitted document
// @Description Streams the document as an attachment; external locators redirect
// @Tags Admin
// @Produce octet-stream
// @Param id path string true "Document ID"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Router /admin/document/{id}/download [get]
func (h *AdminHandler) DownloadDocument(c *gin.Context) {
	h.streamDocument(c, "attachment")
}

func (h *AdminHandler) streamDocument(c *gin.Context, disposition string) {
	doc, err := h.service.Document(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	if doc.External() {
		c.Redirect(http.StatusTemporaryRedirect, doc.StorageLocator)
		return
	}

	file, err := h.files.Open(doc.StorageLocator)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "document file missing from storage"))
		return
	}
	defer file.Close() //nolint:errcheck

	mimeType := doc.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	c.Header("Content-Disposition", fmt.Sprintf("%s; filename=%q", disposition, doc.OriginalFilename))
	c.Header("Content-Type", mimeType)
	if doc.SizeBytes > 0 {
		c.Header("Content-Length", fmt.Sprintf("%d", doc.SizeBytes))
	}
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, file); err != nil {
		// Headers are gone at this point; nothing to do but drop the conn.
		c.Abort()
	}
}
