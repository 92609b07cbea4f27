package handler

import (
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/certilink/certilink-api/internal/dto"
	"github.com/certilink/certilink-api/internal/middleware"
	"github.com/certilink/certilink-api/internal/service"
	appErrors "github.com/certilink/certilink-api/pkg/errors"
	"github.com/certilink/certilink-api/pkg/response"
)

type certificateFileOpener interface {
	Open(relPath string) (*os.File, error)
}

// CertificateHandler wires public verification and institution issuance.
type CertificateHandler struct {
	service *service.CertificateService
	files   certificateFileOpener
}

// NewCertificateHandler creates a new handler.
func NewCertificateHandler(svc *service.CertificateService, files certificateFileOpener) *CertificateHandler {
	return &CertificateHandler{service: svc, files: files}
}

// Get godoc
// @Summary Resolve a certificate
// @Description Public verification by UUID; no authentication
// @Tags Certificates
// @Produce json
// @Param uuid path string true "Certificate UUID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /certificats/public/{uuid} [get]
func (h *CertificateHandler) Get(c *gin.Context) {
	view, err := h.service.GetByUUID(c.Request.Context(), c.Param("uuid"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view)
}

// Verify godoc
// @Summary Check on-chain anchoring
// @Description Best-effort attestation lookup; degraded chains answer onchain:false
// @Tags Certificates
// @Produce json
// @Param uuid path string true "Certificate UUID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /certificats/public/{uuid}/verify [get]
func (h *CertificateHandler) Verify(c *gin.Context) {
	proof, err := h.service.OnchainProof(c.Request.Context(), c.Param("uuid"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, proof)
}

// Issue godoc
// @Summary Issue a certificate
// @Description ACTIVE institutions create a certificate with a rendered PDF
// @Tags Certificates
// @Accept json
// @Produce json
// @Param payload body dto.IssueCertificateRequest true "Issuance payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /certificats [post]
func (h *CertificateHandler) Issue(c *gin.Context) {
	claims, ok := middleware.CurrentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.IssueCertificateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid issuance payload"))
		return
	}

	cert, err := h.service.Issue(c.Request.Context(), claims.PrincipalID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, cert, "certificate issued")
}

// List godoc
// @Summary List own certificates
// @Description Certificates issued by the authenticated institution
// @Tags Certificates
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /certificats [get]
func (h *CertificateHandler) List(c *gin.Context) {
	claims, ok := middleware.CurrentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	certs, err := h.service.ListByInstitution(c.Request.Context(), claims.PrincipalID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, certs)
}

// Download godoc
// @Summary Download a certificate PDF
// @Description Streams the PDF referenced by a signed download token
// @Tags Certificates
// @Produce application/pdf
// @Param token path string true "Signed download token"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /certificats/files/{token} [get]
func (h *CertificateHandler) Download(c *gin.Context) {
	relPath, err := h.service.ResolveDownload(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}

	file, err := h.files.Open(relPath)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "certificate file missing from storage"))
		return
	}
	defer file.Close() //nolint:errcheck

	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", "certificate.pdf"))
	c.Header("Content-Type", "application/pdf")
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, file); err != nil {
		c.Abort()
	}
}
