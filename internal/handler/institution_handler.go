package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/certilink/certilink-api/internal/dto"
	"github.com/certilink/certilink-api/internal/middleware"
	"github.com/certilink/certilink-api/internal/models"
	"github.com/certilink/certilink-api/internal/service"
	appErrors "github.com/certilink/certilink-api/pkg/errors"
	"github.com/certilink/certilink-api/pkg/response"
	"github.com/certilink/certilink-api/pkg/storage"
)

// InstitutionHandler wires the registration and listing endpoints to the
// institution lifecycle service.
type InstitutionHandler struct {
	service *service.InstitutionService
	intake  *service.IntakeService
}

// NewInstitutionHandler creates a new handler.
func NewInstitutionHandler(svc *service.InstitutionService, intake *service.IntakeService) *InstitutionHandler {
	return &InstitutionHandler{service: svc, intake: intake}
}

// Register godoc
// @Summary Register an institution
// @Description Create a PENDING institution with inline document metadata
// @Tags Institutions
// @Accept json
// @Produce json
// @Param payload body dto.RegisterInstitutionRequest true "Registration payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /register/institution [post]
func (h *InstitutionHandler) Register(c *gin.Context) {
	var req dto.RegisterInstitutionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid registration payload"))
		return
	}

	category, ok := models.ParseCategory(req.Category)
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown institution category"))
		return
	}

	docs := make([]service.DocumentInput, 0, len(req.Documents))
	for _, d := range req.Documents {
		docType := models.DocumentType(d.Type)
		if !models.KnownDocumentType(category, docType) {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown document type: "+d.Type))
			return
		}
		docs = append(docs, service.DocumentInput{
			Type:             docType,
			OriginalFilename: d.OriginalFilename,
			MimeType:         d.MimeType,
			SizeBytes:        d.SizeBytes,
			StorageLocator:   d.URL,
		})
	}

	inst, err := h.service.Register(c.Request.Context(), req, docs)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, inst, "registration received, review pending")
}

// RegisterUpload godoc
// @Summary Register an institution with document uploads
// @Description Multipart registration; each file field names a document type
// @Tags Institutions
// @Accept multipart/form-data
// @Produce json
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /register/institution/upload [post]
func (h *InstitutionHandler) RegisterUpload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid multipart payload"))
		return
	}

	req := dto.RegisterInstitutionRequest{
		Name:               c.PostForm("name"),
		Email:              c.PostForm("email"),
		Password:           c.PostForm("password"),
		RegistrationNumber: c.PostForm("registration_number"),
		Category:           c.PostForm("category"),
		Address:            c.PostForm("address"),
		Phone:              c.PostForm("phone"),
		RepName:            c.PostForm("rep_name"),
		RepEmail:           c.PostForm("rep_email"),
		RepPhone:           c.PostForm("rep_phone"),
	}

	category, ok := models.ParseCategory(req.Category)
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown institution category"))
		return
	}

	total := 0
	for _, headers := range form.File {
		total += len(headers)
	}
	if err := h.intake.ValidateCount(total); err != nil {
		response.Error(c, err)
		return
	}

	// Files are staged under a throwaway id first so a failed registration
	// leaves nothing orphaned under a real institution directory.
	tempID := storage.TempPrefix + uuid.NewString()
	inputs := make([]service.DocumentInput, 0, total)
	for field, headers := range form.File {
		docType := models.DocumentType(field)
		for _, header := range headers {
			input, err := h.intake.Store(category, tempID, docType, header)
			if err != nil {
				h.intake.Cleanup(inputs)
				response.Error(c, err)
				return
			}
			inputs = append(inputs, *input)
		}
	}

	inst, err := h.service.Register(c.Request.Context(), req, inputs)
	if err != nil {
		h.intake.Cleanup(inputs)
		response.Error(c, err)
		return
	}

	h.intake.Finalize(c.Request.Context(), tempID, inst.ID, inst.Documents)
	response.Created(c, inst, "registration received, review pending")
}

// RegisterExternal godoc
// @Summary Register an institution with externally stored documents
// @Description Documents already live in external object storage, keyed by type
// @Tags Institutions
// @Accept json
// @Produce json
// @Param payload body dto.ExternalStorageRequest true "Registration payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /register/institution/external-storage [post]
func (h *InstitutionHandler) RegisterExternal(c *gin.Context) {
	var req dto.ExternalStorageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid registration payload"))
		return
	}

	category, ok := models.ParseCategory(req.Category)
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown institution category"))
		return
	}

	inputs, err := h.intake.ExternalDocuments(category, req.DocumentURLs)
	if err != nil {
		response.Error(c, err)
		return
	}

	inst, err := h.service.Register(c.Request.Context(), req.RegisterInstitutionRequest, inputs)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, inst, "registration received, review pending")
}

// List godoc
// @Summary List all institutions
// @Description Admin listing including document metadata
// @Tags Institutions
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /institutions [get]
func (h *InstitutionHandler) List(c *gin.Context) {
	institutions, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, institutions)
}

// PublicList godoc
// @Summary List institutions publicly
// @Description Unauthenticated directory of registered institutions
// @Tags Institutions
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /public/institutions [get]
func (h *InstitutionHandler) PublicList(c *gin.Context) {
	institutions, err := h.service.PublicList(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, institutions)
}

// Documents godoc
// @Summary List an institution's documents
// @Description Document metadata for one institution; admin or the owner
// @Tags Institutions
// @Produce json
// @Param id path string true "Institution ID"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /institution/{id}/documents [get]
func (h *InstitutionHandler) Documents(c *gin.Context) {
	claims, ok := middleware.CurrentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	id := c.Param("id")
	if claims.Role != models.RoleAdmin && claims.PrincipalID != id {
		response.Error(c, appErrors.ErrForbidden)
		return
	}

	docs, err := h.service.Documents(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, docs)
}
