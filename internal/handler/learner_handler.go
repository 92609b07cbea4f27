package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/certilink/certilink-api/internal/dto"
	"github.com/certilink/certilink-api/internal/middleware"
	"github.com/certilink/certilink-api/internal/service"
	appErrors "github.com/certilink/certilink-api/pkg/errors"
	"github.com/certilink/certilink-api/pkg/response"
)

// LearnerHandler wires learner registration and linkage listing.
type LearnerHandler struct {
	service *service.LearnerService
}

// NewLearnerHandler creates a new handler.
func NewLearnerHandler(svc *service.LearnerService) *LearnerHandler {
	return &LearnerHandler{service: svc}
}

// Register godoc
// @Summary Register a learner
// @Description Create a learner account and request institution linkages
// @Tags Learners
// @Accept json
// @Produce json
// @Param payload body dto.RegisterLearnerRequest true "Registration payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /register/learner [post]
func (h *LearnerHandler) Register(c *gin.Context) {
	var req dto.RegisterLearnerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid registration payload"))
		return
	}

	learner, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, learner, "learner account created")
}

// Linkages godoc
// @Summary List own linkage requests
// @Description Linkage requests of the authenticated learner
// @Tags Learners
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /learner/linkages [get]
func (h *LearnerHandler) Linkages(c *gin.Context) {
	claims, ok := middleware.CurrentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	linkages, err := h.service.Linkages(c.Request.Context(), claims.PrincipalID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, linkages)
}
